// Package surface renders risk reports for different output targets:
// terminal, JSON and Markdown.
package surface

import (
	"fmt"
	"io"

	"github.com/tamperscope/tamperscope/pkg/risk"
)

// Renderer produces formatted output from a risk report.
type Renderer interface {
	// Render writes the formatted report to the writer.
	Render(w io.Writer, report *risk.Report) error
}

// ForFormat returns the renderer for a named output format.
func ForFormat(format string) (Renderer, error) {
	switch format {
	case "", "text", "terminal":
		return &TerminalRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	case "markdown", "md":
		return &MarkdownRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text, json or markdown)", format)
	}
}

// signed formats a penalty with an explicit sign.
func signed(p int) string {
	if p > 0 {
		return fmt.Sprintf("+%d", p)
	}
	return fmt.Sprintf("%d", p)
}
