package layout

import (
	"testing"

	"github.com/leapstack-labs/relsplit/internal/template"
	"github.com/leapstack-labs/relsplit/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tpl := template.MustCompile("{base}/{schema}/{object_type}/{object_name}.sql")

	tests := []struct {
		name   string
		params map[string]string
		want   string
	}{
		{
			name:   "all present",
			params: map[string]string{"base": "/out", "schema": "core", "object_type": "tables", "object_name": "v_x"},
			want:   "/out/core/tables/v_x.sql",
		},
		{
			name:   "empty value collapses",
			params: map[string]string{"base": "/out", "schema": "core", "object_type": "", "object_name": "v_x"},
			want:   "/out/core/v_x.sql",
		},
		{
			name:   "missing value collapses",
			params: map[string]string{"base": "/out", "object_name": "v_x"},
			want:   "/out/v_x.sql",
		},
		{
			name:   "base with trailing slash",
			params: map[string]string{"base": "/out/", "schema": "core", "object_type": "views", "object_name": "v"},
			want:   "/out/core/views/v.sql",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render(tpl, tt.params)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "//")
		})
	}
}

func TestSplitObject(t *testing.T) {
	tests := []struct {
		in, schema, name string
	}{
		{"mis.v_patients", "mis", "v_patients"},
		{"db.schema.table", "db", "schema.table"},
		{"lonely", core.UnknownObjectType, "lonely"},
		{"", core.UnknownObjectType, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			schema, name := SplitObject(tt.in)
			assert.Equal(t, tt.schema, schema)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestParams(t *testing.T) {
	p := &core.BlockPattern{Name: "model", SplitObject: "object"}
	b := &core.Block{Pattern: p, Params: map[string]string{"object": "mis.v_patients"}}

	got := Params(b, map[string]string{"base": "/out", "dag_folder": "/dags"}, "")
	assert.Equal(t, map[string]string{
		"base":        "/out",
		"dag_folder":  "/dags",
		"object":      "mis.v_patients",
		"schema":      "mis",
		"object_name": "v_patients",
	}, got)

	got = Params(b, nil, "views")
	assert.Equal(t, "views", got["object_type"])
}

func TestParams_CapturesWin(t *testing.T) {
	p := &core.BlockPattern{Name: "x", SplitObject: "object"}
	b := &core.Block{Pattern: p, Params: map[string]string{
		"object": "a.b",
		"schema": "explicit",
		"base":   "/captured",
	}}

	got := Params(b, map[string]string{"base": "/out"}, "")
	assert.Equal(t, "explicit", got["schema"])
	assert.Equal(t, "b", got["object_name"])
	assert.Equal(t, "/captured", got["base"])
}

func TestRenderBlock(t *testing.T) {
	p := &core.BlockPattern{
		Name: "model",
		OutputPath: core.OutputPath{
			Template: template.MustCompile("{base}/{schema}/{object_name}.sql"),
			Params:   []string{"base", "schema", "object_name"},
		},
	}
	b := &core.Block{Pattern: p}

	got := RenderBlock(b, map[string]string{"base": "/out", "schema": "mis", "object_name": "v", "extra": "ignored"})
	assert.Equal(t, "/out/mis/v.sql", got)
	assert.Equal(t, got, b.OutputPath)
}

func TestParams_Seq(t *testing.T) {
	p := &core.BlockPattern{Name: "anchor"}
	b := &core.Block{Pattern: p, Params: map[string]string{}, Seq: 3}

	got := Params(b, map[string]string{"base": "/out"}, "")
	assert.Equal(t, "3", got["seq"])

	// A capture named seq wins over the block number.
	b.Params["seq"] = "010"
	got = Params(b, nil, "")
	assert.Equal(t, "010", got["seq"])
}
