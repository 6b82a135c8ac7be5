package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wudi/pdfdedup/internal/pdftest"
	"github.com/wudi/pdfdedup/pdfcpugraph"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Rollback == nil || !*cfg.Rollback {
		t.Fatalf("rollback should default on")
	}
	if cfg.LogLevel != "info" || cfg.Limits.MaxDecodeTime != 30*time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dedup.yaml")
	data := "skip_filter_check: true\nrollback: false\nlog_level: debug\nlimits:\n  max_decode_time: 2s\nreport:\n  format: html\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.SkipFilterCheck || *cfg.Rollback || cfg.LogLevel != "debug" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Limits.MaxDecodeTime != 2*time.Second || cfg.Report.Format != "html" {
		t.Fatalf("nested values not applied: %+v", cfg)
	}
}

func TestLoadConfigRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dedup.yaml")
	os.WriteFile(path, []byte("report:\n  format: pdf\n"), 0o600)
	if _, err := loadConfig(path); err == nil {
		t.Fatalf("expected unknown report format to fail")
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	opts, err := parseFlags([]string{"-no-rollback", "-report", "md", "-v", "in.pdf"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.inPath != "in.pdf" {
		t.Fatalf("unexpected input %q", opts.inPath)
	}
	cfg, _ := loadConfig("")
	cfg.SkipFilterCheck = true
	opts.apply(cfg)
	if *cfg.Rollback {
		t.Fatalf("-no-rollback not applied")
	}
	if cfg.Report.Format != "md" || cfg.LogLevel != "debug" {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if !cfg.SkipFilterCheck {
		t.Fatalf("unset flag must not override the file value")
	}
}

func TestParseFlagsRequiresInput(t *testing.T) {
	if _, err := parseFlags([]string{}); err == nil {
		t.Fatalf("expected missing input to fail")
	}
	opts, err := parseFlags([]string{"-serve", ":0"})
	if err != nil || opts.serveAddr != ":0" {
		t.Fatalf("serve mode needs no input: %v", err)
	}
}

func runFile(t *testing.T, opts options) (string, error) {
	t.Helper()
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	var stdout bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err = run(context.Background(), opts, cfg, logger, &stdout)
	return stdout.String(), err
}

func imageCount(t *testing.T, path string) int {
	t.Helper()
	pdf, err := pdfcpugraph.ReadFile(path, nil)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return len(pdftest.Images(pdf))
}

func TestRunRewritesInputWhenImagesRemoved(t *testing.T) {
	in := filepath.Join(t.TempDir(), "in.pdf")
	os.WriteFile(in, pdftest.Build("AAAA", "AAAA", "BBBB"), 0o644)

	out, err := runFile(t, options{inPath: in})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "removed 1 duplicate images\n" {
		t.Fatalf("unexpected output %q", out)
	}
	if n := imageCount(t, in); n != 2 {
		t.Fatalf("input should now hold 2 images, got %d", n)
	}
}

func TestRunLeavesInputWhenNothingRemoved(t *testing.T) {
	in := filepath.Join(t.TempDir(), "in.pdf")
	original := pdftest.Build("AAAA", "BBBB")
	os.WriteFile(in, original, 0o644)

	out, err := runFile(t, options{inPath: in})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "removed 0 duplicate images\n" {
		t.Fatalf("unexpected output %q", out)
	}
	after, _ := os.ReadFile(in)
	if !bytes.Equal(after, original) {
		t.Fatalf("input must not be rewritten when nothing was removed")
	}
}

func TestRunWritesExplicitOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	dst := filepath.Join(dir, "out.pdf")
	original := pdftest.Build("AAAA", "AAAA")
	os.WriteFile(in, original, 0o644)

	if _, err := runFile(t, options{inPath: in, outPath: dst}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if n := imageCount(t, dst); n != 1 {
		t.Fatalf("output should hold 1 image, got %d", n)
	}
	after, _ := os.ReadFile(in)
	if !bytes.Equal(after, original) {
		t.Fatalf("input must stay untouched when -o is given")
	}
}

func TestRunReportsMalformedInput(t *testing.T) {
	in := filepath.Join(t.TempDir(), "in.pdf")
	os.WriteFile(in, []byte("not a pdf"), 0o644)
	if _, err := runFile(t, options{inPath: in}); err == nil {
		t.Fatalf("expected malformed input to fail")
	}
}

func TestWriteReportMarkdown(t *testing.T) {
	in := filepath.Join(t.TempDir(), "in.pdf")
	os.WriteFile(in, pdftest.Build("AAAA", "AAAA"), 0o644)
	cfg, _ := loadConfig("")
	cfg.Report.Format = "md"

	var stdout bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := run(context.Background(), options{inPath: in}, cfg, logger, &stdout); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "| duplicates removed | 1 |") {
		t.Fatalf("report missing from stdout: %q", stdout.String())
	}
}
