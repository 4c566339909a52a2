// Package main provides tests for the relsplit CLI.
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/relsplit/internal/cli"
)

func testdataDir(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	return filepath.Join(wd, "testdata", "project")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	output, err := execute(t, "version")
	if err != nil {
		t.Errorf("version command error = %v", err)
	}
	if !strings.Contains(output, "relsplit") {
		t.Errorf("version output should contain 'relsplit', got: %s", output)
	}
}

func TestHelpCommand(t *testing.T) {
	output, err := execute(t, "--help")
	if err != nil {
		t.Errorf("help command error = %v", err)
	}

	expectedCommands := []string{"split", "match", "classify", "rules", "history", "init", "completion"}
	for _, expected := range expectedCommands {
		if !strings.Contains(output, expected) {
			t.Errorf("help output should contain '%s', got: %s", expected, output)
		}
	}
}

func TestSplitCommand(t *testing.T) {
	td := testdataDir(t)
	out := t.TempDir()

	output, err := execute(t,
		"split",
		"--config", filepath.Join(td, "relsplit.yaml"),
		"--output-dir", out,
		"--no-journal",
		"--output", "text",
	)
	if err != nil {
		t.Fatalf("split command error = %v\n%s", err, output)
	}

	model, err := os.ReadFile(filepath.Join(out, "mis", "v_patients.sql"))
	if err != nil {
		t.Fatalf("model file not written: %v", err)
	}
	if string(model) != "select id, name from mis.patients\n" {
		t.Errorf("unexpected model content: %q", model)
	}

	table, err := os.ReadFile(filepath.Join(out, "ddl", "tables", "mis", "visits.sql"))
	if err != nil {
		t.Fatalf("ddl file not written: %v", err)
	}
	if !strings.HasPrefix(string(table), "-- mis.visits\n") {
		t.Errorf("ddl file should start with the rendered header, got: %q", table)
	}

	if _, err := os.Stat(filepath.Join(out, "ddl", "unknown", "mis", "thing.sql")); err != nil {
		t.Errorf("unrecognized object should land in the unknown bucket: %v", err)
	}
	if !strings.Contains(output, "manual review required") {
		t.Errorf("split output should flag the unknown object, got: %s", output)
	}
	if !strings.Contains(output, "3 file(s) written") {
		t.Errorf("split output should summarize 3 files, got: %s", output)
	}
}

func TestSplitCommandJSONWithJournal(t *testing.T) {
	td := testdataDir(t)
	tmp := t.TempDir()
	out := filepath.Join(tmp, "out")
	journal := filepath.Join(tmp, "journal.db")

	output, err := execute(t,
		"split",
		"--config", filepath.Join(td, "relsplit.yaml"),
		"--output-dir", out,
		"--journal", journal,
		"--dry-run",
		"-o", "json",
	)
	if err != nil {
		t.Fatalf("split command error = %v\n%s", err, output)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("dry run should not create the output tree, stat err = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	var summary struct {
		Event  string `json:"event"`
		RunID  string `json:"run_id"`
		Blocks int    `json:"blocks"`
		DryRun bool   `json:"dry_run"`
	}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &summary); err != nil {
		t.Fatalf("last line should be the JSON summary: %v\n%s", err, output)
	}
	if summary.Event != "run_complete" || summary.Blocks != 3 || !summary.DryRun || summary.RunID == "" {
		t.Errorf("unexpected summary: %+v", summary)
	}

	history, err := execute(t,
		"history",
		"--config", filepath.Join(td, "relsplit.yaml"),
		"--journal", journal,
		"-o", "json",
	)
	if err != nil {
		t.Fatalf("history command error = %v", err)
	}
	if !strings.Contains(history, summary.RunID) {
		t.Errorf("history should list run %s, got: %s", summary.RunID, history)
	}
}

func TestSplitCommandMissingInput(t *testing.T) {
	td := testdataDir(t)

	_, err := execute(t,
		"split",
		"--config", filepath.Join(td, "relsplit.yaml"),
		"--input", filepath.Join(t.TempDir(), "missing.sql"),
		"--output-dir", t.TempDir(),
		"--no-journal",
	)
	if err == nil {
		t.Error("split with a missing release should fail")
	}
}

func TestMatchCommand(t *testing.T) {
	output, err := execute(t, "match", "--model {object}", "--model mis.v_patients", "-o", "text")
	if err != nil {
		t.Errorf("match command error = %v", err)
	}
	if !strings.Contains(output, `"mis.v_patients"`) {
		t.Errorf("match output should contain the capture, got: %s", output)
	}

	if _, err := execute(t, "match", "--model {object}", "select 1"); err == nil {
		t.Error("match should fail when the line does not match")
	}
}
