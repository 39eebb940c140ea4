package detect

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/tamperscope/tamperscope/pkg/signal"
)

var (
	wideSpacingRe  = regexp.MustCompile(`[\s\p{Zs}]{10,}`)
	controlCharsRe = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
)

// SimilarPair is two distinct lines that are nearly identical.
type SimilarPair struct {
	A          string  `json:"a"`
	B          string  `json:"b"`
	Similarity float64 `json:"similarity"`
}

// TextReport is the output of the duplicate text detector.
type TextReport struct {
	Signal           signal.Signal  `json:"signal"`
	Probability      float64        `json:"probability"`
	Duplicates       map[string]int `json:"duplicates,omitempty"`
	SimilarPairs     []SimilarPair  `json:"similar_pairs,omitempty"`
	Suspicious       []string       `json:"suspicious_formatting,omitempty"`
	TotalLines       int            `json:"total_lines"`
	UniqueLines      int            `json:"unique_lines"`
	DuplicationRatio float64        `json:"duplication_ratio"`
	AvgLineLength    float64        `json:"avg_line_length"`
}

// Text looks for repeated and near-repeated lines in extracted text, a
// common trace of text pasted over an original.
func (a *Analyzer) Text(text string) TextReport {
	lines := splitLines(text, a.limits.MaxTextLines, a.limits.MaxLineRunes)
	if len(lines) == 0 {
		return TextReport{Signal: signal.Absent(signal.NameText, "no text to analyze")}
	}

	r := TextReport{TotalLines: len(lines)}

	counts := make(map[string]int, len(lines))
	runes := 0
	for _, l := range lines {
		counts[l]++
		runes += utf8.RuneCountInString(l)
	}
	for l, n := range counts {
		if n > 1 {
			if r.Duplicates == nil {
				r.Duplicates = make(map[string]int)
			}
			r.Duplicates[l] = n
		}
	}
	r.UniqueLines = len(counts)
	r.DuplicationRatio = 1 - float64(r.UniqueLines)/float64(len(lines))
	r.AvgLineLength = float64(runes) / float64(len(lines))

	r.SimilarPairs = similarLines(lines, 10)
	r.Suspicious = suspiciousFormatting(lines, counts)

	p := 0.0
	if len(r.Duplicates) > 0 {
		p += minf(0.6, 2*float64(len(r.Duplicates))/float64(len(lines)))
	}
	if len(r.SimilarPairs) > 0 {
		p += minf(0.3, 5*float64(len(r.SimilarPairs))/float64(len(lines)))
	}
	if len(r.Suspicious) > 0 {
		p += minf(0.1, 0.05*float64(len(r.Suspicious)))
	}
	r.Probability = minf(1, p)

	r.Signal = signal.New(signal.NameText, r.Probability, r.Probability > 0.3)
	r.Signal.Metrics["total_lines"] = float64(r.TotalLines)
	r.Signal.Metrics["duplicated_lines"] = float64(len(r.Duplicates))
	r.Signal.Metrics["similar_pairs"] = float64(len(r.SimilarPairs))
	r.Signal.Metrics["suspicious_formatting"] = float64(len(r.Suspicious))
	r.Signal.Metrics["duplication_ratio"] = signal.Round(r.DuplicationRatio, 3)
	return r
}

// splitLines keeps up to limit non-empty lines, each cut to maxRunes so the
// pairwise comparison stays bounded.
func splitLines(text string, limit, maxRunes int) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		lines = append(lines, truncateRunes(l, maxRunes))
		if limit > 0 && len(lines) >= limit {
			break
		}
	}
	return lines
}

// truncateRunes cuts s to at most n runes. n <= 0 means no cut.
func truncateRunes(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// similarLines returns up to max pairs with a similarity ratio in [0.7, 1),
// in scan order.
func similarLines(lines []string, max int) []SimilarPair {
	lens := make([]int, len(lines))
	for i, l := range lines {
		lens[i] = utf8.RuneCountInString(l)
	}

	var pairs []SimilarPair
	for i := 0; i < len(lines); i++ {
		for j := i + 1; j < len(lines); j++ {
			if lines[i] == lines[j] || ratioUpperBound(lens[i], lens[j]) < 0.7 {
				continue
			}
			s := SimilarityRatio(lines[i], lines[j])
			if s >= 0.7 && s < 1.0 {
				pairs = append(pairs, SimilarPair{A: lines[i], B: lines[j], Similarity: signal.Round(s, 4)})
				if len(pairs) >= max {
					return pairs
				}
			}
		}
	}
	return pairs
}

func suspiciousFormatting(lines []string, counts map[string]int) []string {
	var out []string

	spacing, control := 0, 0
	shortSet := map[string]bool{}
	for _, l := range lines {
		if wideSpacingRe.MatchString(l) {
			spacing++
		}
		if controlCharsRe.MatchString(l) {
			control++
		}
		if utf8.RuneCountInString(l) <= 3 && counts[l] > 5 {
			shortSet[l] = true
		}
	}

	if spacing > 0 {
		out = append(out, fmt.Sprintf("unusual spacing in %d lines", spacing))
	}
	if control > 0 {
		out = append(out, fmt.Sprintf("control characters in %d lines", control))
	}
	if len(shortSet) > 0 {
		short := make([]string, 0, len(shortSet))
		for s := range shortSet {
			short = append(short, fmt.Sprintf("%q", s))
		}
		sort.Strings(short)
		out = append(out, fmt.Sprintf("short text repeated: %s", strings.Join(short, ", ")))
	}
	return out
}
