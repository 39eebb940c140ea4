package config

import (
	"errors"

	"github.com/tamperscope/tamperscope/pkg/scoring"
)

// Configuration errors. All of them are fatal at load time.
var (
	ErrWeightsSum        = scoring.ErrWeightsSum
	ErrThresholdsOrder   = scoring.ErrThresholdsOrder
	ErrMultiplierMissing = scoring.ErrMultiplierMissing
	ErrMultiplierRange   = scoring.ErrMultiplierRange
	ErrPenaltyMethod     = scoring.ErrPenaltyMethod

	ErrRiskLevelsGap     = errors.New("risk levels must cover 0-100 without gaps")
	ErrRiskLevelsOverlap = errors.New("risk levels must not overlap")
	ErrCheckWeight       = errors.New("check base weight out of range")
	ErrAnalysisLimits    = errors.New("analysis limits must be non-negative")
	ErrStorageBackend    = errors.New("unknown storage backend")
)
