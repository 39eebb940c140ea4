package ingestion

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tamperscope/tamperscope/pkg/config"
	"github.com/tamperscope/tamperscope/pkg/detect"
	"github.com/tamperscope/tamperscope/pkg/metadata"
	"github.com/tamperscope/tamperscope/pkg/risk"
)

// Analysis lifecycle states.
const (
	StatusQueued    = "QUEUED"
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

var (
	// ErrAnalysisNotFound is returned for unknown analysis IDs.
	ErrAnalysisNotFound = errors.New("analysis not found")
	// ErrEmptyDocument is returned when a request carries no bytes.
	ErrEmptyDocument = errors.New("empty document")
	// ErrUnknownKind is returned for a document kind other than pdf or image.
	ErrUnknownKind = errors.New("unknown document kind")
)

// submission is what Analyze does with a row returned by createAnalysis.
type submission int

const (
	submitNew     submission = iota // fresh row, evaluate it
	submitReuse                     // completed earlier, return the stored report
	submitPending                   // another request is evaluating it
	submitRetry                     // failed earlier, evaluate again if the claim wins
)

func classifySubmission(status string, inserted bool) submission {
	switch {
	case inserted:
		return submitNew
	case status == StatusCompleted:
		return submitReuse
	case status == StatusFailed:
		return submitRetry
	default:
		return submitPending
	}
}

// AnalysisRequest describes one submitted document.
type AnalysisRequest struct {
	Name         string              `json:"name"`
	Kind         risk.Kind           `json:"kind"`
	Data         []byte              `json:"data"` // base64 in JSON
	Text         string              `json:"text,omitempty"`
	Metadata     map[string]string   `json:"metadata,omitempty"`
	Invoice      bool                `json:"invoice,omitempty"`
	EmissionDate string              `json:"emission_date,omitempty"`
	Geometry     *detect.Geometry    `json:"geometry,omitempty"`
	Signature    *risk.SignatureInfo `json:"signature,omitempty"`
}

// Analysis is one row of the analyses table.
type Analysis struct {
	ID              string    `json:"id"`
	DocumentName    string    `json:"document_name"`
	Kind            string    `json:"kind"`
	SHA256          string    `json:"sha256"`
	Status          string    `json:"status"`
	TotalScore      *int      `json:"total_score,omitempty"`
	RiskLevel       *string   `json:"risk_level,omitempty"`
	LikelyFalsified *bool     `json:"likely_falsified,omitempty"`
	ConfigVersion   uint64    `json:"config_version"`
	ErrorMessage    *string   `json:"error_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ListFilter narrows ListAnalyses.
type ListFilter struct {
	RiskLevel string
	Limit     int
	Offset    int
}

// Notifier is told about every analysis that finishes. report is nil when
// the analysis failed.
type Notifier interface {
	Notify(ctx context.Context, a *Analysis, report *risk.Report)
}

// Service runs submitted documents through the orchestrator and keeps the
// results: rows in Postgres, document and report blobs in storage.
type Service struct {
	db       *sql.DB
	storage  StorageClient
	orch     *risk.Orchestrator
	store    *config.Store
	logger   *slog.Logger
	notifier Notifier
}

// NewService creates a new ingestion Service.
func NewService(db *sql.DB, storage StorageClient, orch *risk.Orchestrator, store *config.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, storage: storage, orch: orch, store: store, logger: logger}
}

// SetNotifier registers n to receive finished analyses. Notifications are
// sent in the background and never affect the analysis result.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *Service) notify(ctx context.Context, a *Analysis, report *risk.Report) {
	if s.notifier == nil {
		return
	}
	go s.notifier.Notify(context.WithoutCancel(ctx), a, report)
}

// Analyze stores and evaluates a document. Resubmitting the same bytes under
// the same config version returns the earlier completed analysis. While that
// analysis is still queued or running, the row is returned with a nil report
// and nothing is evaluated again.
func (s *Service) Analyze(ctx context.Context, req AnalysisRequest) (*Analysis, *risk.Report, error) {
	if len(req.Data) == 0 {
		return nil, nil, ErrEmptyDocument
	}
	switch req.Kind {
	case "":
		req.Kind = risk.KindPDF
	case risk.KindPDF, risk.KindImage:
	default:
		return nil, nil, fmt.Errorf("%q: %w", req.Kind, ErrUnknownKind)
	}
	sum := sha256.Sum256(req.Data)
	digest := hex.EncodeToString(sum[:])
	version := s.store.Current().Version

	id, status, inserted, err := s.createAnalysis(ctx, req, digest, version)
	if err != nil {
		return nil, nil, err
	}
	switch classifySubmission(status, inserted) {
	case submitReuse:
		s.logger.Info("analysis already completed", "analysis_id", id, "sha256", digest)
		return s.loadCompleted(ctx, id)
	case submitPending:
		return s.pending(ctx, id, digest)
	case submitRetry:
		claimed, err := s.claimFailed(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if !claimed {
			return s.pending(ctx, id, digest)
		}
		s.logger.Info("retrying failed analysis", "analysis_id", id, "sha256", digest)
	}

	report, err := s.process(ctx, id, req)
	if err != nil {
		msg := err.Error()
		if updateErr := s.updateStatus(ctx, id, StatusFailed, &msg); updateErr != nil {
			s.logger.Error("failed to mark analysis failed", "analysis_id", id, "error", updateErr)
		}
		s.notify(ctx, &Analysis{
			ID:            id,
			DocumentName:  req.Name,
			Kind:          string(req.Kind),
			SHA256:        digest,
			Status:        StatusFailed,
			ConfigVersion: version,
			ErrorMessage:  &msg,
		}, nil)
		return nil, nil, err
	}

	a, err := s.GetAnalysis(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	s.notify(ctx, a, report)
	return a, report, nil
}

func (s *Service) process(ctx context.Context, id string, req AnalysisRequest) (*risk.Report, error) {
	if err := s.storage.PutDocument(ctx, id, req.Data); err != nil {
		return nil, fmt.Errorf("put document blob: %w", err)
	}
	if err := s.updateStatus(ctx, id, StatusRunning, nil); err != nil {
		return nil, err
	}

	report, err := s.orch.Evaluate(ctx, BuildDocument(req))
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	if err := s.storage.PutReport(ctx, id, data); err != nil {
		return nil, fmt.Errorf("put report blob: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE analyses
		 SET status = $1, total_score = $2, risk_level = $3, likely_falsified = $4,
		     config_version = $5, error_message = NULL, updated_at = now()
		 WHERE id = $6`,
		StatusCompleted, report.TotalScore, report.RiskLevel, report.LikelyFalsified,
		int64(report.ConfigVersion), id,
	)
	if err != nil {
		return nil, fmt.Errorf("finalize analysis: %w", err)
	}

	s.logger.Info("analysis completed",
		"analysis_id", id,
		"score", report.TotalScore,
		"risk_level", report.RiskLevel,
	)
	return report, nil
}

// createAnalysis inserts a row or returns the one already holding the
// idempotency key. inserted is false when the row existed.
func (s *Service) createAnalysis(ctx context.Context, req AnalysisRequest, digest string, version uint64) (id, status string, inserted bool, err error) {
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO analyses (id, document_name, kind, sha256, idempotency_key, config_version)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (idempotency_key) DO UPDATE SET updated_at = now()
		 RETURNING id, status, (xmax = 0) AS inserted`,
		uuid.NewString(), req.Name, string(req.Kind), digest,
		IdempotencyKey(digest, req.Kind, version), int64(version),
	).Scan(&id, &status, &inserted)
	if err != nil {
		return "", "", false, fmt.Errorf("create analysis: %w", err)
	}
	return id, status, inserted, nil
}

// claimFailed moves a failed row back to queued. Only one concurrent caller
// sees claimed == true.
func (s *Service) claimFailed(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET status = $1, error_message = NULL, updated_at = now()
		 WHERE id = $2 AND status = $3`,
		StatusQueued, id, StatusFailed,
	)
	if err != nil {
		return false, fmt.Errorf("claim failed analysis: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim failed analysis: %w", err)
	}
	return n == 1, nil
}

func (s *Service) pending(ctx context.Context, id, digest string) (*Analysis, *risk.Report, error) {
	s.logger.Info("analysis already in progress", "analysis_id", id, "sha256", digest)
	a, err := s.GetAnalysis(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return a, nil, nil
}

func (s *Service) updateStatus(ctx context.Context, id, status string, errMsg *string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET status = $1, error_message = $2, updated_at = now() WHERE id = $3`,
		status, errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("update analysis status: %w", err)
	}
	return nil
}

func (s *Service) loadCompleted(ctx context.Context, id string) (*Analysis, *risk.Report, error) {
	a, err := s.GetAnalysis(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	report, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return a, report, nil
}

const analysisColumns = `id, document_name, kind, sha256, status, total_score, risk_level,
	likely_falsified, config_version, error_message, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*Analysis, error) {
	var a Analysis
	var version int64
	if err := row.Scan(&a.ID, &a.DocumentName, &a.Kind, &a.SHA256, &a.Status, &a.TotalScore,
		&a.RiskLevel, &a.LikelyFalsified, &version, &a.ErrorMessage, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.ConfigVersion = uint64(version)
	return &a, nil
}

// GetAnalysis returns one analysis row.
func (s *Service) GetAnalysis(ctx context.Context, id string) (*Analysis, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("analysis %q: %w", id, ErrAnalysisNotFound)
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE id = $1`, id)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis %s: %w", id, ErrAnalysisNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis %s: %w", id, err)
	}
	return a, nil
}

// GetReport loads the stored report of a completed analysis.
func (s *Service) GetReport(ctx context.Context, id string) (*risk.Report, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("analysis %q: %w", id, ErrAnalysisNotFound)
	}
	data, err := s.storage.GetReport(ctx, id)
	if errors.Is(err, ErrBlobNotFound) {
		return nil, fmt.Errorf("report %s: %w", id, ErrAnalysisNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load report blob: %w", err)
	}
	var report risk.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &report, nil
}

// ListAnalyses returns analyses newest first.
func (s *Service) ListAnalyses(ctx context.Context, f ListFilter) ([]Analysis, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+analysisColumns+` FROM analyses
		 WHERE ($1 = '' OR risk_level = $1)
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		f.RiskLevel, limit, max(f.Offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Ping checks the database connection.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// IdempotencyKey identifies a document evaluated under one config version.
func IdempotencyKey(digest string, kind risk.Kind, version uint64) string {
	return fmt.Sprintf("%s:%s:v%d", digest, kind, version)
}

// BuildDocument turns a request into an orchestrator document.
func BuildDocument(req AnalysisRequest) *risk.Document {
	doc := &risk.Document{
		Name:         req.Name,
		Kind:         req.Kind,
		Bytes:        req.Data,
		Text:         req.Text,
		Metadata:     metadata.Metadata(req.Metadata),
		Invoice:      req.Invoice,
		EmissionDate: req.EmissionDate,
		Signature:    req.Signature,
	}
	if doc.Kind == "" {
		doc.Kind = risk.KindPDF
	}
	if req.Geometry != nil {
		doc.Geometry = detect.StaticGeometry{G: req.Geometry}
	}
	return doc
}
