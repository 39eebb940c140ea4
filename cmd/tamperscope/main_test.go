package main

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tamperscope/tamperscope/pkg/config"
	"github.com/tamperscope/tamperscope/pkg/risk"
)

func TestAnalyzeCmdFlags(t *testing.T) {
	cmd := newAnalyzeCmd(&globalOpts{})
	f := cmd.Flags()

	output, _ := f.GetString("output")
	if output != "text" {
		t.Errorf("default output = %q, want text", output)
	}

	for _, flag := range []string{"text-file", "geometry", "meta", "invoice", "emission-date", "kind", "output", "verbose", "fail-on"} {
		if f.Lookup(flag) == nil {
			t.Errorf("missing flag: %s", flag)
		}
	}
}

func TestBatchCmdFlags(t *testing.T) {
	cmd := newBatchCmd(&globalOpts{})
	f := cmd.Flags()

	workers, _ := f.GetInt("workers")
	if workers != 0 {
		t.Errorf("default workers = %d, want 0", workers)
	}
	for _, flag := range []string{"text-file", "geometry", "meta", "output", "workers"} {
		if f.Lookup(flag) == nil {
			t.Errorf("missing flag: %s", flag)
		}
	}
}

func TestRootCmdPersistentFlags(t *testing.T) {
	root := newRootCmd()
	for _, flag := range []string{"config", "log-level", "log-format"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag: %s", flag)
		}
	}
	for _, name := range []string{"analyze", "batch", "config"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("missing subcommand: %s", name)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"a", "b", "c"}, "a"},
		{[]string{"", "b", "c"}, "b"},
		{[]string{"", "", "c"}, "c"},
		{[]string{"", "", ""}, ""},
	}

	for _, tt := range tests {
		got := firstNonEmpty(tt.args...)
		if got != tt.want {
			t.Errorf("firstNonEmpty(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 16, 16))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDetectKind(t *testing.T) {
	dir := t.TempDir()
	pdf := []byte("%PDF-1.7\n%%EOF\n")
	img := pngBytes(t)

	tests := []struct {
		name    string
		data    []byte
		want    risk.Kind
		wantErr bool
	}{
		{"invoice.PDF", []byte("anything"), risk.KindPDF, false},
		{"scan.jpeg", []byte("anything"), risk.KindImage, false},
		{"upload.bin", pdf, risk.KindPDF, false},
		{"upload.dat", img, risk.KindImage, false},
		{"notes.txt", []byte("hello"), "", true},
	}
	for _, tc := range tests {
		path := writeFile(t, dir, tc.name, tc.data)
		got, err := detectKind(path, tc.data)
		if (err != nil) != tc.wantErr {
			t.Errorf("detectKind(%s): expected error %v, got %v", tc.name, tc.wantErr, err)
			continue
		}
		if got != tc.want {
			t.Errorf("detectKind(%s) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestBuildDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "invoice.pdf", []byte("%PDF-1.7\n%%EOF\n"))
	textPath := writeFile(t, dir, "invoice.txt", []byte("Total 100.00\n"))

	doc, err := buildDocument(path, docOpts{
		textFile:     textPath,
		geometryFile: filepath.Join(dir, "geometry.json"),
		meta:         map[string]string{"Producer": "iText"},
		emissionDate: "02/01/2026",
	})
	if err != nil {
		t.Fatalf("buildDocument: %v", err)
	}
	if doc.Name != "invoice.pdf" || doc.Kind != risk.KindPDF {
		t.Errorf("unexpected document %q kind %q", doc.Name, doc.Kind)
	}
	if doc.Text != "Total 100.00\n" {
		t.Errorf("expected text loaded, got %q", doc.Text)
	}
	if !doc.Invoice {
		t.Error("expected an emission date to imply invoice checks")
	}
	if doc.Geometry == nil {
		t.Error("expected geometry provider")
	}
	if doc.Pixels != nil {
		t.Error("expected no pixel provider for a PDF")
	}
	if v, _ := doc.Metadata.Get("Producer"); v != "iText" {
		t.Errorf("expected producer metadata, got %q", v)
	}

	if _, err := buildDocument(path, docOpts{kind: "docx"}); err == nil {
		t.Error("expected error for unknown kind")
	}
	if _, err := buildDocument(filepath.Join(dir, "missing.pdf"), docOpts{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCheckFailOn(t *testing.T) {
	cfg := config.DefaultConfig()
	tests := []struct {
		level   string
		failOn  string
		wantErr bool
	}{
		{"low", "", false},
		{"low", "medium", false},
		{"medium", "medium", true},
		{"high", "medium", true},
		{"medium", "high", false},
		{"high", "HIGH", true},
		{"low", "severe", true},
	}
	for _, tc := range tests {
		err := checkFailOn(cfg, &risk.Report{RiskLevel: tc.level}, tc.failOn)
		if (err != nil) != tc.wantErr {
			t.Errorf("checkFailOn(%s, %s): expected error %v, got %v", tc.level, tc.failOn, tc.wantErr, err)
		}
	}
}

func TestConfigShowDefaults(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "show", "--defaults"})
	if err := root.Execute(); err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out.String(), "base_weight: 15") {
		t.Errorf("expected default base weight in output:\n%s", out.String())
	}
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.yaml", []byte("fusion:\n  base_weight: 20\n"))
	bad := writeFile(t, dir, "bad.yaml", []byte("fusion:\n  base_weight: -5\n"))

	tests := []struct {
		path    string
		wantErr bool
	}{
		{good, false},
		{bad, true},
		{filepath.Join(dir, "missing.yaml"), true},
	}
	for _, tc := range tests {
		root := newRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetArgs([]string{"config", "validate", tc.path})
		err := root.Execute()
		if (err != nil) != tc.wantErr {
			t.Errorf("validate %s: expected error %v, got %v", filepath.Base(tc.path), tc.wantErr, err)
		}
	}
}
