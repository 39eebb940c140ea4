package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tamperscope/tamperscope/internal/ingestion"
	"github.com/tamperscope/tamperscope/pkg/risk"
)

// Event types.
const (
	EventAnalysisCompleted = "analysis.completed"
	EventAnalysisFailed    = "analysis.failed"
)

// Event is the JSON body of a delivery.
type Event struct {
	Type            string    `json:"type"`
	AnalysisID      string    `json:"analysis_id"`
	Document        string    `json:"document"`
	SHA256          string    `json:"sha256,omitempty"`
	Status          string    `json:"status"`
	TotalScore      int       `json:"total_score"`
	RiskLevel       string    `json:"risk_level,omitempty"`
	LikelyFalsified bool      `json:"likely_falsified"`
	Indicators      []string  `json:"indicators,omitempty"`
	ConfigVersion   uint64    `json:"config_version"`
	Error           string    `json:"error,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NewEvent describes a finished analysis. A nil report means it failed.
func NewEvent(a *ingestion.Analysis, report *risk.Report) Event {
	e := Event{
		Type:          EventAnalysisCompleted,
		AnalysisID:    a.ID,
		Document:      a.DocumentName,
		SHA256:        a.SHA256,
		Status:        a.Status,
		ConfigVersion: a.ConfigVersion,
		OccurredAt:    time.Now().UTC(),
	}
	if report == nil {
		e.Type = EventAnalysisFailed
		if a.ErrorMessage != nil {
			e.Error = *a.ErrorMessage
		}
		return e
	}
	e.TotalScore = report.TotalScore
	e.RiskLevel = report.RiskLevel
	e.LikelyFalsified = report.LikelyFalsified
	e.Indicators = report.Indicators
	e.ConfigVersion = report.ConfigVersion
	return e
}

// ParseEvent decodes a delivery body, checking it against the event header.
func ParseEvent(eventType string, payload []byte) (*Event, error) {
	switch eventType {
	case EventAnalysisCompleted, EventAnalysisFailed:
	default:
		return nil, fmt.Errorf("unsupported event type: %s", eventType)
	}
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("parse %s event: %w", eventType, err)
	}
	if e.Type != eventType {
		return nil, fmt.Errorf("event header %s does not match body type %s", eventType, e.Type)
	}
	return &e, nil
}
