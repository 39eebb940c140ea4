package risk

import (
	"time"

	"github.com/tamperscope/tamperscope/pkg/config"
	"github.com/tamperscope/tamperscope/pkg/detect"
	"github.com/tamperscope/tamperscope/pkg/metadata"
	"github.com/tamperscope/tamperscope/pkg/scoring"
)

// Check is one rule of the risk catalog.
type Check interface {
	// Key returns the machine-readable check identifier, also used as the
	// config key for its base weight.
	Key() string
	// Label returns the human-readable check name.
	Label() string
	// Tier returns the presentation group.
	Tier() CheckTier
	// Evaluate computes the penalty for a document given its base weight.
	// The orchestrator bounds the returned penalty by base.
	Evaluate(in *Inputs, base int) (penalty int, detail string, err error)
}

// Inputs is the resolved evidence a check reads. It is built once per
// analysis and shared read-only by every check.
type Inputs struct {
	Doc       *Document
	Config    *config.Config
	Geometry  *detect.Geometry // nil when unavailable
	Pixels    *detect.Gray     // nil when unavailable
	Metadata  metadata.Metadata
	Markers   detect.Markers
	Signals   Signals
	Fusion    *scoring.FusionResult
	Signature SignatureInfo
	Encrypted bool

	Created     time.Time
	HasCreated  bool
	Modified    time.Time
	HasModified bool
}

// IsPDF reports whether PDF-only checks apply.
func (in *Inputs) IsPDF() bool {
	return in.Doc.Kind != KindImage
}

// DefaultChecks returns the built-in catalog in report order.
func DefaultChecks() []Check {
	return []Check{
		creationVsEmission{},
		modificationVsCreation{},
		knownSoftware{},
		multipleLayers{},

		fontConsistency{},
		dpiUniformity{},
		standardCompression{},
		textAlignment{},

		formsOrAnnotations,
		embeddedJavaScript,
		embeddedFiles,
		digitalSignature{},
		incrementalUpdates{},
		encryption,
		suspiciousStructure{},
		recompression{},
		metadataEditingSoftware{},
	}
}

// scaled returns a fraction of base, truncated toward zero.
func scaled(base int, f float64) int {
	return int(float64(base) * f)
}

// bound keeps a penalty within [0, base], or [base, 0] for credits.
func bound(penalty, base int) int {
	if base < 0 {
		return max(base, min(penalty, 0))
	}
	return max(0, min(penalty, base))
}

const notApplicableImage = "not applicable to image documents"
