package config

import (
	"fmt"
	"sort"
)

// Validate checks the whole configuration. Errors wrap the sentinels in
// errors.go and can be matched with errors.Is.
func (c *Config) Validate() error {
	if err := c.ScoringParams().Validate(); err != nil {
		return fmt.Errorf("fusion: %w", err)
	}
	if c.Fusion.BaseWeight < 0 || c.Fusion.BaseWeight > 100 {
		return fmt.Errorf("fusion base weight %d: %w", c.Fusion.BaseWeight, ErrCheckWeight)
	}
	for key, w := range c.Checks.Weights {
		if w < -100 || w > 100 {
			return fmt.Errorf("check %s weight %d: %w", key, w, ErrCheckWeight)
		}
	}
	if err := validateRiskLevels(c.RiskLevels); err != nil {
		return err
	}

	a := c.Analysis
	if a.SampleBytes < 0 || a.MaxTextLines < 0 || a.MaxLineRunes < 0 || a.MaxBlocksPerPage < 0 ||
		a.ACComponents < 0 || a.Deadline < 0 || a.Workers < 0 || c.Checks.MaxDaysCreationEmission < 0 {
		return ErrAnalysisLimits
	}

	switch c.Storage.Backend {
	case "", "local", "s3", "gcs":
	default:
		return fmt.Errorf("%q: %w", c.Storage.Backend, ErrStorageBackend)
	}
	return nil
}

// validateRiskLevels requires integer ranges that tile 0-100 exactly.
func validateRiskLevels(levels []RiskLevel) error {
	if len(levels) == 0 {
		return fmt.Errorf("no risk levels: %w", ErrRiskLevelsGap)
	}
	sorted := append([]RiskLevel(nil), levels...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })

	for _, l := range sorted {
		if l.Min > l.Max {
			return fmt.Errorf("level %s has min %d above max %d: %w", l.Name, l.Min, l.Max, ErrRiskLevelsGap)
		}
	}
	if sorted[0].Min > 0 {
		return fmt.Errorf("scores below %d have no level: %w", sorted[0].Min, ErrRiskLevelsGap)
	}
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		switch {
		case cur.Min <= prev.Max:
			return fmt.Errorf("levels %s and %s: %w", prev.Name, cur.Name, ErrRiskLevelsOverlap)
		case cur.Min > prev.Max+1:
			return fmt.Errorf("scores %d-%d have no level: %w", prev.Max+1, cur.Min-1, ErrRiskLevelsGap)
		}
	}
	if last := sorted[len(sorted)-1]; last.Max < 100 {
		return fmt.Errorf("scores above %d have no level: %w", last.Max, ErrRiskLevelsGap)
	}
	return nil
}
