package risk

import (
	"fmt"
	"strings"

	"github.com/tamperscope/tamperscope/pkg/metadata"
)

// creationVsEmission flags invoices whose file was created long before or
// after the date printed on them.
type creationVsEmission struct{}

func (creationVsEmission) Key() string     { return "creation_vs_emission" }
func (creationVsEmission) Label() string   { return "Creation date vs issue date" }
func (creationVsEmission) Tier() CheckTier { return TierPrioritized }

func (creationVsEmission) Evaluate(in *Inputs, base int) (int, string, error) {
	if !in.Doc.Invoice {
		return 0, "not an invoice", nil
	}
	emitted, ok := metadata.ParseEmissionDate(in.Doc.EmissionDate)
	if !ok || !in.HasCreated {
		return base, "missing issue date or creation date", nil
	}
	days := metadata.DaysBetween(emitted, in.Created)
	if days < 0 {
		days = -days
	}
	detail := fmt.Sprintf("%d day(s) between creation and issue", days)
	if days > in.Config.Checks.MaxDaysCreationEmission {
		return base, detail, nil
	}
	return 0, detail, nil
}

// modificationVsCreation flags files modified on a different day than they
// were created.
type modificationVsCreation struct{}

func (modificationVsCreation) Key() string     { return "modification_vs_creation" }
func (modificationVsCreation) Label() string   { return "Modification date vs creation date" }
func (modificationVsCreation) Tier() CheckTier { return TierPrioritized }

func (modificationVsCreation) Evaluate(in *Inputs, base int) (int, string, error) {
	if !in.HasCreated || !in.HasModified {
		return 0, "insufficient data", nil
	}
	diff := metadata.WholeDays(in.Created, in.Modified)
	detail := fmt.Sprintf("%d day(s) between creation and modification", diff)
	if diff != 0 {
		return base, detail, nil
	}
	return 0, detail, nil
}

// knownSoftware flags PDFs whose producer is not a recognized generator.
type knownSoftware struct{}

func (knownSoftware) Key() string     { return "known_software" }
func (knownSoftware) Label() string   { return "Known producer software" }
func (knownSoftware) Tier() CheckTier { return TierPrioritized }

func (knownSoftware) Evaluate(in *Inputs, base int) (int, string, error) {
	if !in.IsPDF() {
		return 0, notApplicableImage, nil
	}
	producer := metadata.Producer(in.Metadata)
	if producer == "" {
		return base, "no producer or creator recorded", nil
	}
	for _, known := range in.Config.Checks.KnownProducers {
		if known != "" && strings.Contains(producer, strings.ToLower(known)) {
			return 0, fmt.Sprintf("producer %q matches %q", producer, known), nil
		}
	}
	return base, fmt.Sprintf("unrecognized producer %q", producer), nil
}

// metadataEditingSoftware flags files whose EXIF or XMP tool field names an
// image editor.
type metadataEditingSoftware struct{}

func (metadataEditingSoftware) Key() string     { return "metadata_editing_software" }
func (metadataEditingSoftware) Label() string   { return "Editing software in metadata" }
func (metadataEditingSoftware) Tier() CheckTier { return TierAdditional }

func (metadataEditingSoftware) Evaluate(in *Inputs, base int) (int, string, error) {
	sw, ok := metadata.Software(in.Metadata)
	if !ok {
		return 0, "no software tag", nil
	}
	lower := strings.ToLower(sw)
	for _, editor := range in.Config.Checks.EditingSoftware {
		if editor != "" && strings.Contains(lower, strings.ToLower(editor)) {
			return base, fmt.Sprintf("edited with %s", sw), nil
		}
	}
	return 0, fmt.Sprintf("software %s", sw), nil
}
