package surface

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/tamperscope/tamperscope/pkg/risk"
)

// MarkdownRenderer renders a Report as GitHub-flavored Markdown, with a
// mermaid pie chart of penalty points per check tier.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Render(w io.Writer, report *risk.Report) error {
	md := markdown.NewMarkdown(w)

	name := report.Document
	if name == "" {
		name = "document"
	}
	md.H1("Tamper risk report: " + name)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Score", strconv.Itoa(report.TotalScore) + "/100"},
			{"Risk level", report.RiskLevel},
			{"Likely falsified", strconv.FormatBool(report.LikelyFalsified)},
			{"Document kind", string(report.Kind)},
			{"Analyzed at", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Config version", strconv.FormatUint(report.ConfigVersion, 10)},
		},
	})
	md.PlainText("")

	writeVerdict(md, report)
	writeTierChart(md, report)
	writeFusion(md, report)

	for _, tier := range risk.Tiers {
		checks := report.ChecksByTier(tier)
		if len(checks) == 0 {
			continue
		}
		md.H2(titleCase.String(string(tier)) + " checks")
		md.PlainText("")
		rows := make([][]string, len(checks))
		for i, c := range checks {
			detail := c.Detail
			if c.Error != "" {
				detail = "error: " + c.Error
			}
			if detail == "" {
				detail = "-"
			}
			rows[i] = []string{c.Label, signed(c.Penalty), strconv.Itoa(c.BaseWeight), truncate(detail, 80)}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Check", "Penalty", "Base", "Detail"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(report.Indicators) > 0 {
		md.H2("Indicators")
		md.PlainText("")
		md.BulletList(report.Indicators...)
		md.PlainText("")
	}
	if len(report.Notes) > 0 {
		md.H2("Notes")
		md.PlainText("")
		md.BulletList(report.Notes...)
		md.PlainText("")
	}

	return md.Build()
}

func writeVerdict(md *markdown.Markdown, report *risk.Report) {
	switch {
	case report.LikelyFalsified:
		md.Cautionf("Document is likely falsified (score %d).", report.TotalScore)
	case report.RiskLevel == "high":
		md.Warningf("High tamper risk (score %d).", report.TotalScore)
	case report.RiskLevel == "medium":
		md.Importantf("Medium tamper risk (score %d).", report.TotalScore)
	default:
		md.Tip("No significant tampering indicators.")
	}
	md.PlainText("")
}

// writeTierChart charts the positive penalty points of each tier. Credits
// are left out since a pie cannot show negative slices.
func writeTierChart(md *markdown.Markdown, report *risk.Report) {
	totals := report.TierPenalty()
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Penalty points by tier"),
		piechart.WithShowData(true),
	)
	charted := false
	for _, tier := range risk.Tiers {
		if p := totals[tier]; p > 0 {
			chart.LabelAndIntValue(titleCase.String(string(tier)), uint64(p))
			charted = true
		}
	}
	if !charted {
		return
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func writeFusion(md *markdown.Markdown, report *risk.Report) {
	f := report.Fusion
	if f == nil {
		return
	}
	md.H2("Fused layer score")
	md.PlainText("")
	md.PlainTextf("Score %.3f (%s), penalty %d point(s) by %s: proportional %d, tiered %d.",
		f.Score, f.Tier, f.Penalty.Points, f.Penalty.Method, f.Penalty.Proportional, f.Penalty.Tiered)
	md.PlainText("")

	rows := make([][]string, len(f.Breakdown))
	for i, c := range f.Breakdown {
		rows[i] = []string{
			string(c.Signal),
			fmt.Sprintf("%.2f", c.Weight),
			fmt.Sprintf("%.3f", c.Confidence),
			strconv.FormatBool(c.Presence),
			fmt.Sprintf("%.3f", c.Contribution),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Signal", "Weight", "Confidence", "Present", "Contribution"},
		Rows:   rows,
	})
	md.PlainText("")
}

// truncate shortens s to maxLen bytes with an ellipsis.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
