package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testdata = "../../internal/fixture/testdata"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--color", "off"}, args...))
	err := root.Execute()
	return out.String() + errOut.String(), err
}

func exitCode(err error) int {
	var ee exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if err != nil {
		return -1
	}
	return 0
}

func TestSolveCommand(t *testing.T) {
	out, err := execute(t, "solve", filepath.Join(testdata, "closure.toml"))
	if err != nil {
		t.Fatalf("solve: %v\n%s", err, out)
	}
	if !strings.Contains(out, "requires 'a: 'b") || !strings.Contains(out, "expectations: ok") {
		t.Fatalf("output:\n%s", out)
	}

	out, err = execute(t, "solve", "--format", "short", filepath.Join(testdata, "closure_error.yaml"))
	if exitCode(err) != 1 {
		t.Fatalf("err = %v, want exit 1", err)
	}
	if !strings.Contains(out, "REG1001") {
		t.Fatalf("output:\n%s", out)
	}
}

func TestSolveCommandJSON(t *testing.T) {
	out, err := execute(t, "solve", "--format", "json", filepath.Join(testdata, "type_test.toml"))
	if err != nil {
		t.Fatalf("solve: %v\n%s", err, out)
	}
	var payload struct {
		Fixture      string   `json:"fixture"`
		Requirements []string `json:"requirements"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, out)
	}
	if len(payload.Requirements) != 1 || payload.Requirements[0] != "T: 'c" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestSolveCommandRejectsBadInput(t *testing.T) {
	if _, err := execute(t, "solve", "--format", "xml", filepath.Join(testdata, "simple.toml")); exitCode(err) != -1 {
		t.Fatalf("err = %v, want a usage error", err)
	}
	out, err := execute(t, "solve", filepath.Join(t.TempDir(), "missing.toml"))
	if exitCode(err) != 1 || !strings.Contains(out, "missing.toml") {
		t.Fatalf("err = %v, output:\n%s", err, out)
	}
}

func TestDumpCommand(t *testing.T) {
	out, err := execute(t, "dump", filepath.Join(testdata, "simple.toml"))
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	if !strings.Contains(out, "| Inferred Region Values") || !strings.Contains(out, "'a") || strings.Contains(out, "'?1 ") {
		t.Fatalf("output:\n%s", out)
	}
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"simple.toml", "member.toml"} {
		data, err := os.ReadFile(filepath.Join(testdata, name))
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	out, err := execute(t, "check", "--ui", "off", "--cache-dir", t.TempDir(), "--format", "json", dir)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	var sum summaryJSON
	if err := json.Unmarshal([]byte(out), &sum); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, out)
	}
	if sum.Passed != 2 || sum.Failed != 0 || len(sum.Outcomes) != 2 || sum.Outcomes[0].Path != "member.toml" {
		t.Fatalf("summary = %+v", sum)
	}

	if err := os.WriteFile(filepath.Join(dir, "broken.toml"), []byte("schema = 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "check", "--ui", "off", "--no-cache", dir)
	if exitCode(err) != 1 {
		t.Fatalf("err = %v, want exit 1\n%s", err, out)
	}
	if !strings.Contains(out, "FAIL broken.toml") || !strings.Contains(out, "2 passed, 1 failed") {
		t.Fatalf("output:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--format", "json", "--full")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var payload versionPayload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, out)
	}
	if payload.Tool != "regionck" || payload.Schema == "" || payload.GitCommit != "unknown" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "ON": uiModeOn, " off ": uiModeOff} {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Fatalf("readUIMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Fatalf("expected an error")
	}
	if !shouldUseTUI(uiModeOn, true) || shouldUseTUI(uiModeOff, false) || shouldUseTUI(uiModeAuto, true) {
		t.Fatalf("shouldUseTUI wrong")
	}
}
