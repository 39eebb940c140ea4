package detect

import "fmt"

// Indicators lists the human-readable findings behind the layer, overlay,
// text and structure reports.
func Indicators(l LayerReport, o OverlayReport, t TextReport, s StructureReport) []string {
	var out []string
	if l.Signal.Presence {
		out = append(out, fmt.Sprintf("optional content objects detected: %d", l.Hits))
	}
	if o.Signal.Presence {
		out = append(out, fmt.Sprintf("overlay objects: %d", o.Hits))
	}
	if o.Streams > 5 {
		out = append(out, fmt.Sprintf("multiple content streams: %d", o.Streams))
	}
	if o.SuspiciousOperators > 20 {
		out = append(out, fmt.Sprintf("suspicious operators: %d", o.SuspiciousOperators))
	}
	if t.Signal.Presence {
		out = append(out, fmt.Sprintf("text overlap: %.1f%%", t.Probability*100))
	}
	if s.Signal.Presence {
		out = append(out, "suspicious page structure")
	}
	return out
}

// EstimateLayerCount guesses how many stacked layers a document carries.
func EstimateLayerCount(l LayerReport, o OverlayReport) int {
	switch {
	case l.Hits > 0:
		return min(l.Hits/2, 10)
	case o.Hits > 10:
		return min(o.Hits/5, 8)
	default:
		return 0
	}
}
