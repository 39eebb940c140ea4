package risk

import "fmt"

// markerCheck applies its full base weight when a byte marker is present.
type markerCheck struct {
	key, label string
	present    func(in *Inputs) bool
	found      string
}

func (m markerCheck) Key() string     { return m.key }
func (m markerCheck) Label() string   { return m.label }
func (m markerCheck) Tier() CheckTier { return TierAdditional }

func (m markerCheck) Evaluate(in *Inputs, base int) (int, string, error) {
	if !in.IsPDF() {
		return 0, notApplicableImage, nil
	}
	if m.present(in) {
		return base, m.found, nil
	}
	return 0, "none", nil
}

var (
	formsOrAnnotations = markerCheck{
		key: "forms_or_annotations", label: "Forms or annotations",
		present: func(in *Inputs) bool { return in.Markers.FormsOrAnnotations },
		found:   "interactive form or annotation objects present",
	}
	embeddedJavaScript = markerCheck{
		key: "embedded_javascript", label: "Embedded JavaScript",
		present: func(in *Inputs) bool { return in.Markers.JavaScript },
		found:   "JavaScript actions present",
	}
	embeddedFiles = markerCheck{
		key: "embedded_files", label: "Embedded files",
		present: func(in *Inputs) bool { return in.Markers.EmbeddedFiles },
		found:   "file attachments present",
	}
	encryption = markerCheck{
		key: "encryption", label: "Encryption or permissions",
		present: func(in *Inputs) bool { return in.Encrypted },
		found:   "document is encrypted",
	}
)

// digitalSignature credits signed documents. The credit shrinks when the
// signature cannot be verified and almost vanishes when bytes were appended
// after signing.
type digitalSignature struct{}

func (digitalSignature) Key() string     { return "digital_signature" }
func (digitalSignature) Label() string   { return "Digital signature" }
func (digitalSignature) Tier() CheckTier { return TierAdditional }

func (digitalSignature) Evaluate(in *Inputs, base int) (int, string, error) {
	if !in.IsPDF() {
		return 0, notApplicableImage, nil
	}
	sig := in.Signature
	switch {
	case !sig.Signed:
		return 0, "not signed", nil
	case !sig.Intact:
		return scaled(base, 0.3), "signed, modified after signing", nil
	case sig.Verified:
		return base, "signed, signature verified", nil
	default:
		return scaled(base, 0.6), "signed, signature not verified", nil
	}
}

// incrementalUpdates flags files saved several times on top of the original.
type incrementalUpdates struct{}

func (incrementalUpdates) Key() string     { return "incremental_updates" }
func (incrementalUpdates) Label() string   { return "Incremental updates" }
func (incrementalUpdates) Tier() CheckTier { return TierAdditional }

func (incrementalUpdates) Evaluate(in *Inputs, base int) (int, string, error) {
	if !in.IsPDF() {
		return 0, notApplicableImage, nil
	}
	n := in.Markers.IncrementalUpdates
	detail := fmt.Sprintf("%d cross-reference sections", n)
	switch {
	case n >= 3:
		return base, detail, nil
	case n > 1:
		return scaled(base, 0.6), detail, nil
	}
	return 0, detail, nil
}
