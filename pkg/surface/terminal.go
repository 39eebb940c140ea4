package surface

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tamperscope/tamperscope/pkg/risk"
)

// TerminalRenderer renders a Report as colored terminal output.
type TerminalRenderer struct {
	// Verbose also lists checks that contributed nothing.
	Verbose bool
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

var titleCase = cases.Title(language.English)

func levelColor(level string) string {
	if noColor() {
		return ""
	}
	switch level {
	case "low":
		return colorGreen
	case "medium":
		return colorYellow
	case "high":
		return colorRed
	default:
		return ""
	}
}

func noColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

func bold(s string) string {
	if noColor() {
		return s
	}
	return colorBold + s + colorReset
}

func dim(s string) string {
	if noColor() {
		return s
	}
	return colorDim + s + colorReset
}

func colored(s, color string) string {
	if noColor() || color == "" {
		return s
	}
	return color + s + colorReset
}

func (r *TerminalRenderer) Render(w io.Writer, report *risk.Report) error {
	lc := levelColor(report.RiskLevel)

	name := report.Document
	if name == "" {
		name = "document"
	}
	fmt.Fprintf(w, "%s\n",
		bold(fmt.Sprintf("%s: risk %s, score %d/100",
			name, colored(strings.ToUpper(report.RiskLevel), lc), report.TotalScore)))
	if report.LikelyFalsified {
		fmt.Fprintln(w, colored("Likely falsified", colorRed))
	}
	fmt.Fprintln(w)

	if f := report.Fusion; f != nil {
		fmt.Fprintf(w, "Fused layer score: %.3f (%s, %.1f%%), %d point(s) by %s\n",
			f.Score, f.Tier, f.ProbabilityPercentage, f.Penalty.Points, f.Penalty.Method)
		for _, c := range f.Breakdown {
			mark := " "
			if c.Presence {
				mark = "●"
			}
			fmt.Fprintf(w, "  %s %-12s weight %.2f  confidence %.3f  contribution %.3f\n",
				mark, c.Signal, c.Weight, c.Confidence, c.Contribution)
		}
		fmt.Fprintln(w)
	}

	for _, tier := range risk.Tiers {
		checks := report.ChecksByTier(tier)
		if len(checks) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s checks:\n", titleCase.String(string(tier)))
		shown := 0
		for _, c := range checks {
			if c.Penalty == 0 && c.Error == "" && !r.Verbose {
				continue
			}
			line := fmt.Sprintf("  (%s/%d) %s", signed(c.Penalty), c.BaseWeight, bold(c.Label))
			if c.Detail != "" {
				line += ": " + c.Detail
			}
			fmt.Fprintln(w, line)
			if c.Error != "" {
				fmt.Fprintf(w, "         %s\n", colored("error: "+c.Error, colorRed))
			}
			shown++
		}
		if shown == 0 {
			fmt.Fprintf(w, "  %s\n", dim("no findings"))
		}
		fmt.Fprintln(w)
	}

	if len(report.Indicators) > 0 {
		fmt.Fprintln(w, "Indicators:")
		for _, ind := range report.Indicators {
			fmt.Fprintf(w, "  %s %s\n", colored("●", colorRed), ind)
		}
		if report.LayerEstimate > 0 {
			fmt.Fprintf(w, "  estimated layers: %d\n", report.LayerEstimate)
		}
		fmt.Fprintln(w)
	}

	if len(report.Notes) > 0 {
		fmt.Fprintln(w, "Notes:")
		for _, n := range report.Notes {
			for _, line := range wrapText(n, 70) {
				fmt.Fprintf(w, "    %s\n", dim(line))
			}
		}
		fmt.Fprintln(w)
	}

	return nil
}

// wrapText wraps a string at the given width, returning lines.
func wrapText(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]

	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
		} else {
			current += " " + word
		}
	}
	lines = append(lines, current)
	return lines
}
