// Package metrics exposes Prometheus instruments for document analyses.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tamperscope/tamperscope/pkg/risk"
)

const namespace = "tamperscope"

var (
	// analysesTotal counts completed analyses by risk level and document kind
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analyses_total",
		Help:      "Completed document analyses by risk level and kind",
	}, []string{"risk_level", "kind"})

	falsifiedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "likely_falsified_total",
		Help:      "Analyses flagged as likely falsified",
	}, []string{"kind"})

	analysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "analysis_duration_seconds",
		Help:      "Wall time of one document analysis",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	}, []string{"kind"})

	riskScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "risk_score",
		Help:      "Distribution of total risk scores",
		Buckets:   prometheus.LinearBuckets(0, 10, 11),
	})

	checkPenalty = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "check",
		Name:      "penalty_points_total",
		Help:      "Penalty points charged per check; credits are negative and not counted",
	}, []string{"check"})

	checkTriggered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "check",
		Name:      "triggered_total",
		Help:      "Times a check produced a non-zero penalty or credit",
	}, []string{"check"})

	checkErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "check",
		Name:      "errors_total",
		Help:      "Checks that failed and were scored as zero",
	}, []string{"check"})

	configReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "config",
		Name:      "reloads_total",
		Help:      "Configuration reload attempts by result",
	}, []string{"result"})
)

// RecordAnalysis records one finished report.
func RecordAnalysis(r *risk.Report) {
	kind := string(r.Kind)
	analysesTotal.WithLabelValues(r.RiskLevel, kind).Inc()
	if r.LikelyFalsified {
		falsifiedTotal.WithLabelValues(kind).Inc()
	}
	analysisDuration.WithLabelValues(kind).Observe(r.Elapsed.Seconds())
	riskScore.Observe(float64(r.TotalScore))
}

// RecordCheck records one check outcome.
func RecordCheck(c risk.CheckResult) {
	if c.Error != "" {
		checkErrors.WithLabelValues(c.Key).Inc()
		return
	}
	if c.Penalty != 0 {
		checkTriggered.WithLabelValues(c.Key).Inc()
	}
	if c.Penalty > 0 {
		checkPenalty.WithLabelValues(c.Key).Add(float64(c.Penalty))
	}
}

// RecordConfigReload counts a reload attempt.
func RecordConfigReload(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	configReloads.WithLabelValues(result).Inc()
}

// Observer feeds orchestrator results into the package instruments.
type Observer struct{}

func (Observer) ObserveReport(r *risk.Report)   { RecordAnalysis(r) }
func (Observer) ObserveCheck(c risk.CheckResult) { RecordCheck(c) }

var _ risk.Observer = Observer{}
