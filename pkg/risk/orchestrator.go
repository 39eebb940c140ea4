package risk

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/tamperscope/tamperscope/pkg/config"
	"github.com/tamperscope/tamperscope/pkg/detect"
	"github.com/tamperscope/tamperscope/pkg/metadata"
	"github.com/tamperscope/tamperscope/pkg/scoring"
	"github.com/tamperscope/tamperscope/pkg/signal"
)

// Observer receives the outcome of every analysis. Implementations must be
// safe for concurrent use.
type Observer interface {
	ObserveReport(r *Report)
	ObserveCheck(c CheckResult)
}

// Orchestrator evaluates documents against the live configuration.
type Orchestrator struct {
	store    *config.Store
	checks   []Check
	logger   *slog.Logger
	observer Observer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithChecks replaces the check catalog.
func WithChecks(checks ...Check) Option {
	return func(o *Orchestrator) { o.checks = checks }
}

// WithObserver attaches an observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// NewOrchestrator creates an orchestrator reading its config from store.
func NewOrchestrator(store *config.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{store: store, checks: DefaultChecks()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Evaluate analyzes one document. The config snapshot is read once at the
// start. Unavailable inputs and failing checks degrade the report instead
// of failing it; the only errors are a nil document and an expired context.
func (o *Orchestrator) Evaluate(ctx context.Context, doc *Document) (*Report, error) {
	if doc == nil {
		return nil, fmt.Errorf("evaluating document: %w", ErrInputUnavailable)
	}
	snap := o.store.Current()
	cfg := snap.Config

	if cfg.Analysis.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Analysis.Deadline)
		defer cancel()
	}

	report := &Report{
		Document:      doc.Name,
		Kind:          doc.Kind,
		ConfigVersion: snap.Version,
		StartedAt:     time.Now().UTC(),
	}
	if report.Kind == "" {
		report.Kind = KindPDF
	}

	in := o.resolve(ctx, doc, cfg, report)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluating %s: %w", doc.Name, err)
	}

	o.analyze(in, report)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluating %s: %w", doc.Name, err)
	}

	engine := scoring.NewEngine(cfg.ScoringParams())
	in.Fusion = engine.Fuse(in.Signals.All()...)
	report.Fusion = in.Fusion
	report.Signals = in.Signals

	total := 0
	for _, c := range o.checks {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("evaluating %s: %w", doc.Name, err)
		}
		res := o.runCheck(c, in, cfg)
		total += res.Penalty
		report.Checks = append(report.Checks, res)
		if o.observer != nil {
			o.observer.ObserveCheck(res)
		}
	}
	sortChecks(report.Checks)

	report.TotalScore = max(0, min(total, 100))
	report.RiskLevel = cfg.RiskLevel(report.TotalScore)
	report.LikelyFalsified = likelyFalsified(in)
	s := in.Signals
	report.Indicators = detect.Indicators(s.Layers, s.Overlay, s.Text, s.Structure)
	report.LayerEstimate = detect.EstimateLayerCount(s.Layers, s.Overlay)
	report.Elapsed = time.Since(report.StartedAt)

	o.logger.Debug("document evaluated",
		"document", doc.Name,
		"score", report.TotalScore,
		"risk_level", report.RiskLevel,
		"config_version", snap.Version,
		"elapsed", report.Elapsed,
	)
	if o.observer != nil {
		o.observer.ObserveReport(report)
	}
	return report, nil
}

// resolve gathers the provider inputs. Provider failures become notes.
func (o *Orchestrator) resolve(ctx context.Context, doc *Document, cfg *config.Config, report *Report) *Inputs {
	in := &Inputs{Doc: doc, Config: cfg, Metadata: doc.Metadata}
	if in.Metadata == nil {
		in.Metadata = metadata.Metadata{}
	}
	note := func(what string, err error) {
		msg := fmt.Errorf("%s: %w: %v", what, ErrInputUnavailable, err).Error()
		report.Notes = append(report.Notes, msg)
		o.logger.Warn("input unavailable", "document", doc.Name, "input", what, "error", err)
	}

	if doc.Geometry != nil {
		g, err := doc.Geometry.PageGeometry(ctx)
		if err != nil {
			note("page geometry", err)
		} else {
			in.Geometry = g
		}
	}

	if doc.Kind == KindImage {
		px := doc.Pixels
		if px == nil && len(doc.Bytes) > 0 {
			px = detect.ImageBytes(doc.Bytes)
		}
		if px != nil {
			g, err := px.Pixels(ctx)
			if err != nil {
				note("pixels", err)
			} else {
				in.Pixels = g
			}
		}
		if len(doc.Bytes) > 0 {
			exifMD, err := metadata.FromEXIF(doc.Bytes)
			if err != nil {
				note("exif", err)
			} else {
				in.Metadata = exifMD.Merge(in.Metadata)
			}
		}
	} else {
		in.Markers = detect.ScanMarkers(doc.Bytes)
		if doc.Signature != nil {
			in.Signature = *doc.Signature
		} else {
			in.Signature = InferSignature(doc.Bytes)
		}
		in.Encrypted = doc.Encrypted || InferEncrypted(detect.Sample(doc.Bytes, cfg.Analysis.SampleBytes))
	}
	report.Markers = in.Markers

	in.Created, in.HasCreated = metadata.CreationDate(in.Metadata)
	in.Modified, in.HasModified = metadata.ModificationDate(in.Metadata)
	return in
}

// analyze runs every detector behind a recover guard.
func (o *Orchestrator) analyze(in *Inputs, report *Report) {
	a := detect.New(in.Config.Limits())
	doc := in.Doc
	s := &in.Signals

	s.Layers.Signal = signal.Absent(signal.NameLayer, "not a PDF document")
	s.Overlay.Signal = signal.Absent(signal.NameOverlay, "not a PDF document")
	s.Text.Signal = signal.Absent(signal.NameText, "no text to analyze")
	s.Structure.Signal = signal.Absent(signal.NameStructural, "page geometry unavailable")
	s.Recompression.Signal = signal.Absent(signal.NameRecompression, "not an image document")
	s.Recompression.Tier = detect.TierBaja

	if doc.Kind != KindImage {
		o.guard(report, "layer", func() { s.Layers = a.Layers(doc.Bytes, in.Geometry) })
		o.guard(report, "overlay", func() { s.Overlay = a.Overlay(doc.Bytes) })
	}
	o.guard(report, "text", func() { s.Text = a.Text(doc.Text) })
	o.guard(report, "structure", func() { s.Structure = a.Structure(in.Geometry) })
	if doc.Kind == KindImage {
		o.guard(report, "recompression", func() { s.Recompression = a.Recompression(in.Pixels) })
	}
}

func (o *Orchestrator) guard(report *Report, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			report.Notes = append(report.Notes, fmt.Sprintf("%s analyzer failed: %v", name, r))
			o.logger.Error("analyzer panicked", "analyzer", name, "panic", r)
		}
	}()
	fn()
}

// runCheck evaluates one check, turning errors and panics into a zero
// penalty entry.
func (o *Orchestrator) runCheck(c Check, in *Inputs, cfg *config.Config) (res CheckResult) {
	base := cfg.CheckWeight(c.Key())
	res = CheckResult{Key: c.Key(), Label: c.Label(), Tier: c.Tier(), BaseWeight: base}
	defer func() {
		if r := recover(); r != nil {
			res.Penalty = 0
			res.Error = fmt.Sprintf("check panicked: %v", r)
			o.logger.Error("check panicked", "check", c.Key(), "panic", r)
		}
	}()

	penalty, detail, err := c.Evaluate(in, base)
	res.Detail = detail
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Penalty = bound(penalty, base)
	return res
}

func sortChecks(checks []CheckResult) {
	rank := map[CheckTier]int{TierPrioritized: 0, TierSecondary: 1, TierAdditional: 2}
	sort.SliceStable(checks, func(i, j int) bool {
		return rank[checks[i].Tier] < rank[checks[j].Tier]
	})
}

// likelyFalsified flags documents carrying strong single indicators.
func likelyFalsified(in *Inputs) bool {
	if f := in.Fusion; f != nil && f.Tier != scoring.TierVeryLow && f.Confidence >= 0.7 {
		return true
	}
	if in.HasCreated && in.HasModified && !in.Created.Equal(in.Modified) {
		d := metadata.WholeDays(in.Created, in.Modified)
		if d > 1 || d < -1 {
			return true
		}
	}
	t := in.Signals.Text
	return t.Signal.Presence && len(t.Duplicates) > 2
}
