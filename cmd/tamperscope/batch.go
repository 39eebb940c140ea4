package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tamperscope/tamperscope/pkg/config"
	"github.com/tamperscope/tamperscope/pkg/risk"
	"github.com/tamperscope/tamperscope/pkg/surface"
)

func newBatchCmd(g *globalOpts) *cobra.Command {
	var (
		doc     docOpts
		format  string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "batch <file>...",
		Short: "Score many documents concurrently",
		Long: `Scores each file independently. A file that cannot be read or evaluated
is reported on stderr and does not stop the others. Per-document flags
such as --text-file apply to every file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), g, args, doc, format, workers)
		},
	}

	doc.addFlags(cmd)
	cmd.Flags().StringVarP(&format, "output", "o", "text", "Output format: text, json or markdown")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent evaluations (default: analysis.workers from config)")

	return cmd
}

func runBatch(ctx context.Context, g *globalOpts, paths []string, opts docOpts, format string, workers int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, err := g.logger()
	if err != nil {
		return err
	}
	cfg, _, err := g.loadConfig()
	if err != nil {
		return err
	}
	if workers > 0 {
		cfg.Analysis.Workers = workers
	}

	renderer, err := surface.ForFormat(format)
	if err != nil {
		return err
	}

	failed := 0
	docs := make([]*risk.Document, 0, len(paths))
	for _, p := range paths {
		doc, err := buildDocument(p, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping %s: %v\n", p, err)
			failed++
			continue
		}
		docs = append(docs, doc)
	}

	orch := risk.NewOrchestrator(config.NewStaticStore(cfg), risk.WithLogger(logger))
	results := orch.EvaluateBatch(ctx, docs)

	var reports []*risk.Report
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", res.Document, res.Err)
			failed++
			continue
		}
		reports = append(reports, res.Report)
	}

	if jr, ok := renderer.(*surface.JSONRenderer); ok {
		if err := jr.RenderBatch(os.Stdout, reports); err != nil {
			return fmt.Errorf("rendering reports: %w", err)
		}
	} else {
		for i, report := range reports {
			if i > 0 {
				fmt.Fprintln(os.Stdout)
			}
			if err := renderer.Render(os.Stdout, report); err != nil {
				return fmt.Errorf("rendering %s: %w", report.Document, err)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(paths))
	}
	return nil
}
