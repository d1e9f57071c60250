package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"versecast/internal/config"
	"versecast/internal/ledger"
)

func writeTestConfig(t *testing.T) (string, *config.Config) {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	body := `
[paths]
source_dir = "` + filepath.Join(base, "poems") + `"
output_dir = "` + filepath.Join(base, "out") + `"
data_dir = "` + filepath.Join(base, "data") + `"
log_dir = "` + filepath.Join(base, "logs") + `"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return path, cfg
}

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	output, err := runCommandErr(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\noutput:\n%s", args, err, output)
	}
	return output
}

func runCommandErr(args ...string) (string, error) {
	var buf bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestConfigInitAndOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	output := runCommand(t, "config", "init", "--path", target)
	if !strings.Contains(output, "Wrote sample configuration") {
		t.Fatalf("unexpected output: %s", output)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[paths]") {
		t.Fatal("sample config missing paths section")
	}

	if _, err := runCommandErr("config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal without --overwrite")
	}
	runCommand(t, "config", "init", "--path", target, "--overwrite")
}

func TestConfigValidateWithDefaults(t *testing.T) {
	path, _ := writeTestConfig(t)
	output := runCommand(t, "config", "validate", "--path", path)
	if !strings.Contains(output, "Configuration valid") {
		t.Fatalf("unexpected output: %s", output)
	}
}

func TestLedgerStatsEmpty(t *testing.T) {
	path, _ := writeTestConfig(t)
	output := runCommand(t, "--config", path, "ledger", "stats")
	if !strings.Contains(output, "Ledger is empty") {
		t.Fatalf("unexpected output: %s", output)
	}
}

func TestLedgerListShowsSeededItems(t *testing.T) {
	path, cfg := writeTestConfig(t)

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	ctx := context.Background()
	if _, err := store.Upsert(ctx, &ledger.Item{
		ID:         "oda_al_mar",
		SourcePath: "/poems/Oda al Mar.md",
		Title:      "Oda al Mar",
		Author:     "Pablo Neruda",
		Body:       "Título: Oda al Mar\nAutor: Pablo Neruda\n\nverso\n",
		Language:   "es",
	}); err != nil {
		t.Fatalf("seed item: %v", err)
	}
	store.Close()

	output := runCommand(t, "--config", path, "ledger", "list")
	if !strings.Contains(output, "oda_al_mar") || !strings.Contains(output, "pending") {
		t.Fatalf("unexpected output:\n%s", output)
	}

	output = runCommand(t, "--config", path, "ledger", "show", "oda_al_mar")
	if !strings.Contains(output, "Pablo Neruda") {
		t.Fatalf("unexpected output:\n%s", output)
	}
}

func TestLedgerRetryResetsFailedItems(t *testing.T) {
	path, cfg := writeTestConfig(t)

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	ctx := context.Background()
	if _, err := store.Upsert(ctx, &ledger.Item{ID: "copla", Body: "x"}); err != nil {
		t.Fatalf("seed item: %v", err)
	}
	if _, ok, err := store.Claim(ctx, "copla", 3); err != nil || !ok {
		t.Fatalf("claim: ok=%v err=%v", ok, err)
	}
	if err := store.MarkFailed(ctx, "copla", "boom", true, 3); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	store.Close()

	output := runCommand(t, "--config", path, "ledger", "retry")
	if !strings.Contains(output, "Reset 1 failed items") {
		t.Fatalf("unexpected output: %s", output)
	}
}

func TestScanRegistersPoems(t *testing.T) {
	path, cfg := writeTestConfig(t)
	poemPath := filepath.Join(cfg.Paths.SourceDir, "La Cancion.md")
	body := "Título: La Canción\nAutor: Anónimo\n\nverso uno\n"
	if err := os.WriteFile(poemPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write poem: %v", err)
	}

	output := runCommand(t, "--config", path, "scan")
	if !strings.Contains(output, "Found 1 poem files") {
		t.Fatalf("unexpected output: %s", output)
	}

	output = runCommand(t, "--config", path, "ledger", "list")
	if !strings.Contains(output, "la_cancion") {
		t.Fatalf("unexpected output:\n%s", output)
	}
}

func TestLedgerListRejectsUnknownStatus(t *testing.T) {
	path, _ := writeTestConfig(t)
	if _, err := runCommandErr("--config", path, "ledger", "list", "--status", "bogus"); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}
}
