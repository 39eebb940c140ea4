// Package main provides the tamperscope CLI entry point.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tamperscope/tamperscope/internal/platform"
	"github.com/tamperscope/tamperscope/pkg/config"
)

var version = "dev"

// globalOpts are the persistent flags shared by every subcommand.
type globalOpts struct {
	configPath string
	logLevel   string
	logFormat  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOpts{}

	rootCmd := &cobra.Command{
		Use:   "tamperscope",
		Short: "Tamper risk scoring for PDF and image documents",
		Long: `Tamperscope inspects PDFs and images for signs of editing: layered
content, overlays, duplicated text, structural anomalies and recompression.
It fuses the evidence into a 0-100 risk score with per-check explanations.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Path to config.yaml (default: search for .tamperscope/config.yaml)")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	pf.StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(
		newAnalyzeCmd(opts),
		newBatchCmd(opts),
		newConfigCmd(opts),
	)
	return rootCmd
}

func (g *globalOpts) logger() (*slog.Logger, error) {
	return platform.NewLogger(os.Stderr, g.logLevel, g.logFormat)
}

// loadConfig reads the config named by --config, or the nearest
// .tamperscope/config.yaml above the working directory, or the defaults.
func (g *globalOpts) loadConfig() (*config.Config, string, error) {
	path := g.configPath
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			path = config.FindConfigFile(wd)
		}
	}
	if path == "" {
		return config.DefaultConfig(), "", nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
