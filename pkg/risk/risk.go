// Package risk combines the detector signals, the fused layer score and a
// catalog of document checks into a single 0-100 tamper risk report.
package risk

import (
	"errors"
	"time"

	"github.com/tamperscope/tamperscope/pkg/detect"
	"github.com/tamperscope/tamperscope/pkg/metadata"
	"github.com/tamperscope/tamperscope/pkg/scoring"
	"github.com/tamperscope/tamperscope/pkg/signal"
)

// ErrInputUnavailable marks a collaborator (geometry parser, pixel decoder)
// that could not supply data. The affected signals degrade to absent.
var ErrInputUnavailable = errors.New("input unavailable")

// Kind is the broad document type.
type Kind string

const (
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
)

// SignatureInfo describes a document's digital signature as reported by a
// signature validator, or as inferred from its bytes.
type SignatureInfo struct {
	Signed   bool `json:"signed"`
	Verified bool `json:"verified"` // certificate chain and digest checked
	Intact   bool `json:"intact"`   // no bytes appended after the signed range
}

// Document is everything known about one submitted file. Providers are
// optional; a nil provider means the input is unavailable.
type Document struct {
	Name         string
	Kind         Kind
	Bytes        []byte
	Text         string // OCR or extracted text
	Geometry     detect.GeometryProvider
	Pixels       detect.PixelProvider
	Metadata     metadata.Metadata
	Invoice      bool   // issue date checks apply
	EmissionDate string // invoice issue date, dd/mm/yyyy
	Encrypted    bool
	Signature    *SignatureInfo // nil means infer from Bytes
}

// CheckTier groups checks for presentation. It does not affect scoring.
type CheckTier string

const (
	TierPrioritized CheckTier = "prioritized"
	TierSecondary   CheckTier = "secondary"
	TierAdditional  CheckTier = "additional"
)

// Tiers lists check tiers in report order.
var Tiers = []CheckTier{TierPrioritized, TierSecondary, TierAdditional}

// CheckResult is the outcome of one check. A check that failed carries a
// zero penalty and its error message.
type CheckResult struct {
	Key        string    `json:"key"`
	Label      string    `json:"label"`
	Tier       CheckTier `json:"tier"`
	Penalty    int       `json:"penalty"`
	BaseWeight int       `json:"base_weight"`
	Detail     string    `json:"detail,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Signals bundles the per-detector reports of one analysis.
type Signals struct {
	Layers        detect.LayerReport         `json:"layers"`
	Overlay       detect.OverlayReport       `json:"overlay"`
	Text          detect.TextReport          `json:"text"`
	Structure     detect.StructureReport     `json:"structure"`
	Recompression detect.RecompressionReport `json:"recompression"`
}

// All returns the bare signals in fusion order.
func (s Signals) All() []signal.Signal {
	return []signal.Signal{
		s.Layers.Signal,
		s.Overlay.Signal,
		s.Text.Signal,
		s.Structure.Signal,
		s.Recompression.Signal,
	}
}

// Report is the result of evaluating one document.
type Report struct {
	Document        string                `json:"document"`
	Kind            Kind                  `json:"kind"`
	ConfigVersion   uint64                `json:"config_version"`
	TotalScore      int                   `json:"total_score"`
	RiskLevel       string                `json:"risk_level"`
	LikelyFalsified bool                  `json:"likely_falsified"`
	Checks          []CheckResult         `json:"checks"`
	Fusion          *scoring.FusionResult `json:"fusion"`
	Signals         Signals               `json:"signals"`
	Markers         detect.Markers        `json:"markers"`
	Indicators      []string              `json:"indicators,omitempty"`
	LayerEstimate   int                   `json:"layer_count_estimate"`
	Notes           []string              `json:"notes,omitempty"`
	StartedAt       time.Time             `json:"started_at"`
	Elapsed         time.Duration         `json:"elapsed_ns"`
}

// ChecksByTier returns the checks of one tier in catalog order.
func (r *Report) ChecksByTier(t CheckTier) []CheckResult {
	var out []CheckResult
	for _, c := range r.Checks {
		if c.Tier == t {
			out = append(out, c)
		}
	}
	return out
}

// Check returns the result for key.
func (r *Report) Check(key string) (CheckResult, bool) {
	for _, c := range r.Checks {
		if c.Key == key {
			return c, true
		}
	}
	return CheckResult{}, false
}

// TierPenalty sums penalties per tier.
func (r *Report) TierPenalty() map[CheckTier]int {
	out := make(map[CheckTier]int, len(Tiers))
	for _, c := range r.Checks {
		out[c.Tier] += c.Penalty
	}
	return out
}
