package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tamperscope/tamperscope/pkg/config"
	"github.com/tamperscope/tamperscope/pkg/detect"
	"github.com/tamperscope/tamperscope/pkg/metadata"
	"github.com/tamperscope/tamperscope/pkg/risk"
	"github.com/tamperscope/tamperscope/pkg/surface"
)

// docOpts describe the inputs that accompany a document file.
type docOpts struct {
	textFile     string
	geometryFile string
	meta         map[string]string
	invoice      bool
	emissionDate string
	kind         string
}

func (d *docOpts) addFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&d.textFile, "text-file", "", "File holding OCR or extracted text of the document")
	f.StringVar(&d.geometryFile, "geometry", "", "Page geometry JSON produced by a layout parser")
	f.StringToStringVar(&d.meta, "meta", nil, "Metadata field, repeatable (e.g. --meta Producer=iText)")
	f.BoolVar(&d.invoice, "invoice", false, "Treat the document as an invoice and run issue date checks")
	f.StringVar(&d.emissionDate, "emission-date", "", "Invoice issue date, dd/mm/yyyy")
	f.StringVar(&d.kind, "kind", "", "Document kind: pdf or image (default: detect from file)")
}

func newAnalyzeCmd(g *globalOpts) *cobra.Command {
	var (
		doc     docOpts
		format  string
		verbose bool
		failOn  string
	)

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Score one document for tamper risk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), g, args[0], doc, format, verbose, failOn)
		},
	}

	doc.addFlags(cmd)
	cmd.Flags().StringVarP(&format, "output", "o", "text", "Output format: text, json or markdown")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List checks that found nothing")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "Exit non-zero when the risk level is this or worse (medium or high)")

	return cmd
}

func runAnalyze(ctx context.Context, g *globalOpts, path string, opts docOpts, format string, verbose bool, failOn string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, err := g.logger()
	if err != nil {
		return err
	}
	cfg, cfgPath, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger.Debug("config resolved", "path", firstNonEmpty(cfgPath, "(defaults)"))

	renderer, err := surface.ForFormat(format)
	if err != nil {
		return err
	}
	if tr, ok := renderer.(*surface.TerminalRenderer); ok {
		tr.Verbose = verbose
	}

	doc, err := buildDocument(path, opts)
	if err != nil {
		return err
	}

	orch := risk.NewOrchestrator(config.NewStaticStore(cfg), risk.WithLogger(logger))
	report, err := orch.Evaluate(ctx, doc)
	if err != nil {
		return err
	}
	if err := renderer.Render(os.Stdout, report); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	return checkFailOn(cfg, report, failOn)
}

// checkFailOn returns an error when the report's level ranks at or above
// the named level in the configured risk levels.
func checkFailOn(cfg *config.Config, report *risk.Report, failOn string) error {
	if failOn == "" {
		return nil
	}
	threshold, current := -1, -1
	for i, l := range cfg.RiskLevels {
		if strings.EqualFold(l.Name, failOn) {
			threshold = i
		}
		if l.Name == report.RiskLevel {
			current = i
		}
	}
	if threshold < 0 {
		return fmt.Errorf("unknown risk level %q", failOn)
	}
	if current >= threshold {
		return fmt.Errorf("%s: risk level %s (score %d)", report.Document, report.RiskLevel, report.TotalScore)
	}
	return nil
}

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// detectKind picks the document kind from the extension, then the header.
func detectKind(path string, data []byte) (risk.Kind, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		return risk.KindPDF, nil
	case imageExts[ext]:
		return risk.KindImage, nil
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return risk.KindPDF, nil
	}
	if _, err := detect.DecodeImage(data); err == nil {
		return risk.KindImage, nil
	}
	return "", fmt.Errorf("%s: not a PDF or a supported image", path)
}

func buildDocument(path string, opts docOpts) (*risk.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	doc := &risk.Document{
		Name:         filepath.Base(path),
		Bytes:        data,
		Metadata:     metadata.Metadata(opts.meta),
		Invoice:      opts.invoice || opts.emissionDate != "",
		EmissionDate: opts.emissionDate,
	}

	switch strings.ToLower(opts.kind) {
	case "":
		if doc.Kind, err = detectKind(path, data); err != nil {
			return nil, err
		}
	case "pdf":
		doc.Kind = risk.KindPDF
	case "image":
		doc.Kind = risk.KindImage
	default:
		return nil, fmt.Errorf("unknown document kind %q", opts.kind)
	}

	if opts.textFile != "" {
		text, err := os.ReadFile(opts.textFile)
		if err != nil {
			return nil, fmt.Errorf("reading text: %w", err)
		}
		doc.Text = string(text)
	}
	if opts.geometryFile != "" {
		doc.Geometry = detect.GeometryFile(opts.geometryFile)
	}
	if doc.Kind == risk.KindImage {
		doc.Pixels = detect.ImageFile(path)
	}
	return doc, nil
}
