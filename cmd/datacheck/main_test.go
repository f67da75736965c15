package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// executeCommand runs the root command with args, resetting flag state
// left behind by earlier runs.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgFile, debug, quiet = "", false, true
	checkFlags = rangeFlags{format: formatTable}
	alignFlags = rangeFlags{format: formatTable, enforce: true}
	cleanRecursive = false
	historyFlags.source, historyFlags.mode, historyFlags.since = "", "", ""
	historyFlags.limit, historyFlags.format = 20, formatTable
	resetChanged(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--quiet"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func resetChanged(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) { f.Changed = false }
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetChanged(c)
	}
}

// writeFixture creates a data directory with one good and one undersized
// file and a config pointing at it.
func writeFixture(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	data := filepath.Join(base, "data")
	if err := os.MkdirAll(data, 0o755); err != nil {
		t.Fatalf("mkdir data: %v", err)
	}
	if err := os.WriteFile(filepath.Join(data, "obs_20240101.nc"), make([]byte, 2048), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(data, "obs_20240102.nc"), make([]byte, 8), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	cfgPath := filepath.Join(base, "datacheck.yaml")
	cfg := `storage:
  type: localfs
  path: ` + data + `
catalog:
  layout: obs_%Y%m%d.nc
check:
  min_file_size: 1024
  workers: 2
`
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "datacheck dev") {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestCheckCommand(t *testing.T) {
	cfgPath := writeFixture(t)

	out, err := executeCommand(t, "check", "-c", cfgPath, "--from", "2024-01-01", "--to", "2024-01-03", "--format", "csv")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	want := "date,status,code\n2024-01-01,available,1\n2024-01-02,corrupt,2\n2024-01-03,missing,0\n"
	if out != want {
		t.Fatalf("unexpected output\n got: %q\nwant: %q", out, want)
	}
}

func TestCheckCommandDatesOnly(t *testing.T) {
	cfgPath := writeFixture(t)

	out, err := executeCommand(t, "check", "-c", cfgPath, "--from", "2024-01-01", "--to", "2024-01-02", "--format", "csv", "--dates-only")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, "2024-01-02,available,1") {
		t.Fatalf("expected membership-only availability, got %q", out)
	}
}

func TestCheckCommandFailOnGaps(t *testing.T) {
	cfgPath := writeFixture(t)

	_, err := executeCommand(t, "check", "-c", cfgPath, "--from", "2024-01-01", "--to", "2024-01-03", "--fail-on-gaps")
	if err == nil || !strings.Contains(err.Error(), "2 of 3 dates") {
		t.Fatalf("expected gap failure, got %v", err)
	}
}

func TestCheckCommandInvalidRange(t *testing.T) {
	cfgPath := writeFixture(t)

	if _, err := executeCommand(t, "check", "-c", cfgPath, "--from", "2024-01-03", "--to", "2024-01-01"); err == nil {
		t.Fatal("expected error for reversed range")
	}
	if _, err := executeCommand(t, "check", "-c", cfgPath, "--from", "2024-01-01", "--to", "2024-01-02", "--format", "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestCheckCommandRejectsEnforce(t *testing.T) {
	cfgPath := writeFixture(t)

	_, err := executeCommand(t, "check", "-c", cfgPath, "--from", "2024-01-01", "--to", "2024-01-02", "--enforce=false")
	if err == nil || !strings.Contains(err.Error(), "unknown flag: --enforce") {
		t.Fatalf("expected unknown flag error, got %v", err)
	}
	if checkCmd.Flags().Lookup("enforce") != nil {
		t.Fatal("check should not register --enforce")
	}
	if alignCmd.Flags().Lookup("enforce") == nil {
		t.Fatal("align should register --enforce")
	}
}

func TestAlignCommandOutputFile(t *testing.T) {
	cfgPath := writeFixture(t)
	outPath := filepath.Join(t.TempDir(), "reports", "nested", "align.json")

	out, err := executeCommand(t, "align", "-c", cfgPath, "--from", "2024-01-01", "--to", "2024-01-02",
		"--enforce=false", "--format", "json", "--output", outPath)
	if err != nil {
		t.Fatalf("align: %v", err)
	}
	if out != "" {
		t.Fatalf("expected nothing on stdout, got %q", out)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "obs_20240102.nc") {
		t.Fatalf("expected undersized file to be aligned without size check:\n%s", data)
	}
}

func TestCleanCommand(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.nc"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if _, err := executeCommand(t, "clean", dir); err != nil {
		t.Fatalf("clean: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "sub" {
		t.Fatalf("expected only sub to remain, got %v", entries)
	}

	if _, err := executeCommand(t, "clean", "--recursive", dir); err != nil {
		t.Fatalf("clean --recursive: %v", err)
	}
	entries, _ = os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected empty dir, got %v", entries)
	}
}

func TestHistoryCommand(t *testing.T) {
	cfgPath := writeFixture(t)
	dbPath := filepath.Join(filepath.Dir(cfgPath), "state", "history.db")
	f, err := os.OpenFile(cfgPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("history:\n  type: sqlite\n  path: " + dbPath + "\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := executeCommand(t, "-c", cfgPath, "check", "--from", "2024-01-01", "--to", "2024-01-03"); err != nil {
		t.Fatalf("check: %v", err)
	}

	out, err := executeCommand(t, "-c", cfgPath, "history", "--format", "json")
	if err != nil {
		t.Fatalf("history: %v", err)
	}

	var records []struct {
		Mode    string `json:"mode"`
		Summary struct {
			Total   int `json:"total"`
			Missing int `json:"missing"`
			Corrupt int `json:"corrupt"`
		} `json:"summary"`
	}
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.Mode != "check" || r.Summary.Total != 3 || r.Summary.Missing != 1 || r.Summary.Corrupt != 1 {
		t.Errorf("unexpected record %+v", r)
	}

	table, err := executeCommand(t, "-c", cfgPath, "history", "--mode", "align")
	if err != nil {
		t.Fatalf("history table: %v", err)
	}
	if !strings.Contains(table, "No runs recorded.") {
		t.Errorf("expected empty history, got %q", table)
	}
}

func TestCheckCommandPublish(t *testing.T) {
	cfgPath := writeFixture(t)
	data := filepath.Join(filepath.Dir(cfgPath), "data")

	_, err := executeCommand(t, "check", "-c", cfgPath, "--from", "2024-01-01", "--to", "2024-01-02",
		"--format", "csv", "--publish", "reports/jan.csv")
	if err != nil {
		t.Fatalf("check: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(data, "reports", "jan.csv"))
	if err != nil {
		t.Fatalf("published report: %v", err)
	}
	want := "date,status,code\n2024-01-01,available,1\n2024-01-02,corrupt,2\n"
	if string(got) != want {
		t.Errorf("published report = %q, want %q", got, want)
	}
}
