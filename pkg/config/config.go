// Package config handles loading and managing tamperscope configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tamperscope/tamperscope/pkg/detect"
	"github.com/tamperscope/tamperscope/pkg/scoring"
	"github.com/tamperscope/tamperscope/pkg/signal"
)

// Config is the top-level configuration for tamperscope.
type Config struct {
	Fusion     FusionConfig   `yaml:"fusion"`
	Checks     ChecksConfig   `yaml:"checks"`
	RiskLevels []RiskLevel    `yaml:"risk_levels"`
	Analysis   AnalysisConfig `yaml:"analysis"`
	Storage    StorageConfig  `yaml:"storage"`
}

// FusionConfig controls how detector signals are combined.
type FusionConfig struct {
	Weights       map[string]float64 `yaml:"weights"`
	Thresholds    []scoring.Threshold `yaml:"thresholds"`
	Multipliers   map[string]float64 `yaml:"multipliers"`
	BaseWeight    int                `yaml:"base_weight"`
	PenaltyMethod string             `yaml:"penalty_method"` // proportional, tiered or max_of_both
}

// ChecksConfig controls the orchestrator's check catalog.
type ChecksConfig struct {
	Weights                 map[string]int `yaml:"weights"` // base weight per check key; negative is a credit
	MaxDaysCreationEmission int            `yaml:"max_days_creation_emission"`
	KnownProducers          []string       `yaml:"known_producers"`
	StandardFilters         []string       `yaml:"standard_filters"`
	EditingSoftware         []string       `yaml:"editing_software"`
}

// RiskLevel names an inclusive range of total scores.
type RiskLevel struct {
	Name string `yaml:"name" json:"name"`
	Min  int    `yaml:"min" json:"min"`
	Max  int    `yaml:"max" json:"max"`
}

// AnalysisConfig bounds the work done per document.
type AnalysisConfig struct {
	SampleBytes      int           `yaml:"sample_bytes"`
	MaxTextLines     int           `yaml:"max_text_lines"`
	MaxLineRunes     int           `yaml:"max_line_runes"`
	MaxBlocksPerPage int           `yaml:"max_blocks_per_page"`
	ACComponents     int           `yaml:"ac_components"`
	JPEGOnly         bool          `yaml:"jpeg_only"`
	Deadline         time.Duration `yaml:"deadline"`
	Workers          int           `yaml:"workers"` // batch concurrency
}

// StorageConfig selects where documents and reports are kept.
type StorageConfig struct {
	Backend string `yaml:"backend"` // local, s3 or gcs
	Dir     string `yaml:"dir"`     // local backend root
	Bucket  string `yaml:"bucket"`  // s3/gcs bucket

	Prefix   string `yaml:"prefix,omitempty"`   // object key prefix
	Region   string `yaml:"region,omitempty"`   // s3 only
	Endpoint string `yaml:"endpoint,omitempty"` // s3-compatible endpoint, e.g. MinIO
}

// DefaultCheckWeights returns the base weight of every built-in check.
// The fused multiple_layers check takes its base from the fusion section.
func DefaultCheckWeights() map[string]int {
	return map[string]int{
		"creation_vs_emission":      15,
		"modification_vs_creation":  12,
		"known_software":            12,
		"font_consistency":          8,
		"dpi_uniformity":            8,
		"standard_compression":      6,
		"text_alignment":            6,
		"forms_or_annotations":      3,
		"embedded_javascript":       2,
		"embedded_files":            3,
		"digital_signature":         -4,
		"incremental_updates":       3,
		"encryption":                2,
		"suspicious_structure":      10,
		"recompression":             12,
		"metadata_editing_software": 5,
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	p := scoring.Defaults()
	weights := make(map[string]float64, len(p.Weights))
	for k, v := range p.Weights {
		weights[string(k)] = v
	}
	mults := make(map[string]float64, len(p.Multipliers))
	for k, v := range p.Multipliers {
		mults[string(k)] = v
	}
	limits := detect.DefaultLimits()

	return &Config{
		Fusion: FusionConfig{
			Weights:       weights,
			Thresholds:    p.Thresholds,
			Multipliers:   mults,
			BaseWeight:    p.BaseWeight,
			PenaltyMethod: string(p.Method),
		},
		Checks: ChecksConfig{
			Weights:                 DefaultCheckWeights(),
			MaxDaysCreationEmission: 10,
			KnownProducers: []string{
				"adobe", "itext", "apache pdfbox", "libreoffice", "microsoft", "wkhtmltopdf",
				"reportlab", "foxit", "tcpdf", "aspose", "prince", "weasyprint",
			},
			StandardFilters: []string{
				"DCTDecode", "FlateDecode", "JPXDecode", "JBIG2Decode",
				"CCITTFaxDecode", "RunLengthDecode", "LZWDecode",
			},
			EditingSoftware: []string{
				"photoshop", "gimp", "lightroom", "affinity", "pixelmator",
				"paint.net", "canva", "snapseed", "picsart",
			},
		},
		RiskLevels: []RiskLevel{
			{Name: "low", Min: 0, Max: 29},
			{Name: "medium", Min: 30, Max: 59},
			{Name: "high", Min: 60, Max: 100},
		},
		Analysis: AnalysisConfig{
			SampleBytes:      limits.SampleBytes,
			MaxTextLines:     limits.MaxTextLines,
			MaxLineRunes:     limits.MaxLineRunes,
			MaxBlocksPerPage: limits.MaxBlocksPerPage,
			ACComponents:     limits.ACComponents,
			Deadline:         30 * time.Second,
			Workers:          4,
		},
		Storage: StorageConfig{
			Backend: "local",
		},
	}
}

// Load reads a config file from the given path and validates it.
// If the file does not exist, it returns the default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// yaml.v3 merges into existing maps; fusion weights replace the defaults
	// so that a file listing only some signals drops the rest.
	var raw Config
	if err := yaml.Unmarshal(data, &raw); err == nil && raw.Fusion.Weights != nil {
		cfg.Fusion.Weights = raw.Fusion.Weights
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// ScoringParams converts the fusion section into engine parameters.
func (c *Config) ScoringParams() scoring.Params {
	p := scoring.Params{
		Weights:     make(scoring.Weights, len(c.Fusion.Weights)),
		Thresholds:  scoring.Thresholds(c.Fusion.Thresholds),
		Multipliers: make(scoring.Multipliers, len(c.Fusion.Multipliers)),
		BaseWeight:  c.Fusion.BaseWeight,
		Method:      scoring.PenaltyMethod(strings.ToLower(c.Fusion.PenaltyMethod)),
	}
	for k, v := range c.Fusion.Weights {
		p.Weights[signal.Name(k)] = v
	}
	for k, v := range c.Fusion.Multipliers {
		p.Multipliers[scoring.Tier(strings.ToUpper(k))] = v
	}
	return p
}

// Limits converts the analysis section into detector limits.
func (c *Config) Limits() detect.Limits {
	return detect.Limits{
		SampleBytes:      c.Analysis.SampleBytes,
		MaxTextLines:     c.Analysis.MaxTextLines,
		MaxLineRunes:     c.Analysis.MaxLineRunes,
		MaxBlocksPerPage: c.Analysis.MaxBlocksPerPage,
		ACComponents:     c.Analysis.ACComponents,
		JPEGOnly:         c.Analysis.JPEGOnly,
	}
}

// CheckWeight returns the configured base weight of a check, falling back
// to the built-in default.
func (c *Config) CheckWeight(key string) int {
	if key == "multiple_layers" {
		return c.Fusion.BaseWeight
	}
	if w, ok := c.Checks.Weights[key]; ok {
		return w
	}
	return DefaultCheckWeights()[key]
}

// RiskLevel returns the name of the first level whose range contains score.
func (c *Config) RiskLevel(score int) string {
	for _, l := range c.RiskLevels {
		if score >= l.Min && score <= l.Max {
			return l.Name
		}
	}
	return ""
}

// FindConfigFile looks for .tamperscope/config.yaml in the given directory
// and its parents, returning the path if found, or "" if not.
func FindConfigFile(dir string) string {
	for {
		candidate := filepath.Join(dir, ".tamperscope", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// CacheDir returns the per-user tamperscope cache directory.
func CacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to temp dir if HOME isn't available
		home = os.TempDir()
	}
	return filepath.Join(home, ".cache", "tamperscope")
}

// ReportDir returns the default local storage root for documents and reports.
func ReportDir() string {
	return filepath.Join(CacheDir(), "store")
}
