package output

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/relsplit/internal/diag"
	"github.com/leapstack-labs/relsplit/pkg/core"
)

func newTestRenderer(mode Mode) (*Renderer, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	return NewRendererWithTTY(buf, buf, mode, false), buf
}

func TestRenderer_EffectiveMode(t *testing.T) {
	tests := []struct {
		mode Mode
		want Mode
	}{
		{"", ModeText},
		{ModeAuto, ModeText},
		{ModeText, ModeText},
		{ModeMarkdown, ModeMarkdown},
		{ModeJSON, ModeJSON},
	}
	for _, tt := range tests {
		r, _ := newTestRenderer(tt.mode)
		assert.Equal(t, tt.want, r.EffectiveMode(), "mode %q", tt.mode)
	}
}

func TestRenderer_NotATerminal(t *testing.T) {
	r := NewRenderer(new(bytes.Buffer), new(bytes.Buffer), ModeAuto)
	assert.False(t, r.IsTTY())
}

func TestRenderer_EmitText(t *testing.T) {
	r, buf := newTestRenderer(ModeText)

	require.NoError(t, r.Emit(context.Background(), diag.Event{
		Level: core.StatusSuccess, Block: "model", Path: "/out/mis/v_patients.sql", Message: "written",
	}))
	require.NoError(t, r.Emit(context.Background(), diag.Event{
		Level: core.StatusError, Input: "release.sql", Message: "read release.sql: no such file",
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "success  model  /out/mis/v_patients.sql  written", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "error"))
	assert.Contains(t, lines[1], "release.sql")
	assert.Contains(t, lines[1], "no such file")
	assert.NotContains(t, buf.String(), "\x1b[", "no escape codes when not a terminal")
}

func TestRenderer_EmitMarkdown(t *testing.T) {
	r, buf := newTestRenderer(ModeMarkdown)
	require.NoError(t, r.Emit(context.Background(), diag.Event{Level: core.StatusWarning, Block: "ddl", Path: "/o/x.sql"}))
	assert.Equal(t, "- **warning**  ddl  /o/x.sql\n", buf.String())
}

func TestRenderer_EmitJSON(t *testing.T) {
	r, buf := newTestRenderer(ModeJSON)
	require.NoError(t, r.Emit(context.Background(), diag.Event{
		Level: core.StatusWarning, Block: "ddl", Path: "/o/x.sql", Line: 7, Message: "manual review",
	}))

	var got StatusEvent
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, StatusEvent{
		Event: "block", Status: "warning", Block: "ddl", Path: "/o/x.sql", Line: 7, Message: "manual review",
	}, got)
}

func TestRenderer_Summary(t *testing.T) {
	sum := RunSummary{
		RunID:  "abc",
		Inputs: []string{"a.sql", "b.sql"},
		Blocks: 3,
		Counts: diag.Counts{Success: 2, Warning: 1},
	}

	r, buf := newTestRenderer(ModeText)
	require.NoError(t, r.Summary(sum, 1500*time.Millisecond))
	out := buf.String()
	assert.Contains(t, out, "3 file(s) written from 2 release(s) in 1.5s")
	assert.Contains(t, out, "2 success")
	assert.Contains(t, out, "1 warning")
	assert.Contains(t, out, "run abc")

	r, buf = newTestRenderer(ModeJSON)
	sum.DryRun = true
	require.NoError(t, r.Summary(sum, time.Second))
	var got RunSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run_complete", got.Event)
	assert.Equal(t, "1s", got.Duration)
	assert.True(t, got.DryRun)
	assert.Equal(t, sum.Counts, got.Counts)
}

func TestRenderer_Table(t *testing.T) {
	r, buf := newTestRenderer(ModeText)
	r.Table([]string{"Name", "Begin"}, [][]any{{"model", "--model {object}"}})
	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "--model {object}")
	assert.Contains(t, out, "┌")

	r, buf = newTestRenderer(ModeMarkdown)
	r.Table([]string{"Name"}, [][]any{{"model"}})
	out = buf.String()
	assert.True(t, strings.HasPrefix(out, "|"), "markdown table, got %q", out)
	assert.Contains(t, out, "---")
	assert.Contains(t, out, "model")
}

func TestStyles_StatusStyle(t *testing.T) {
	s := NewStyles(false)
	for _, st := range []core.Status{core.StatusSuccess, core.StatusWarning, core.StatusError} {
		assert.Equal(t, st.String(), s.StatusStyle(st).Render(st.String()))
	}
}
