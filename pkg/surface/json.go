package surface

import (
	"encoding/json"
	"io"

	"github.com/tamperscope/tamperscope/pkg/risk"
)

// JSONRenderer marshals a Report to indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(w io.Writer, report *risk.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// RenderBatch writes several reports as one JSON array.
func (r *JSONRenderer) RenderBatch(w io.Writer, reports []*risk.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}
