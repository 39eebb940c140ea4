package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/tamperscope/tamperscope/internal/ingestion"
	"github.com/tamperscope/tamperscope/pkg/config"
	"github.com/tamperscope/tamperscope/pkg/risk"
)

const testID = "3f2b8c1e-8d7a-4f7e-9c55-2a1d0e6b7c90"

// fakeService keeps analyses in memory.
type fakeService struct {
	mu          sync.Mutex
	analyses    map[string]*ingestion.Analysis
	reports     map[string]*risk.Report
	lastRequest ingestion.AnalysisRequest
	reportLoads int
	pingErr     error
	analyzeErr  error
	lastFilter  ingestion.ListFilter
}

func newFakeService() *fakeService {
	return &fakeService{
		analyses: map[string]*ingestion.Analysis{},
		reports:  map[string]*risk.Report{},
	}
}

func (f *fakeService) Analyze(ctx context.Context, req ingestion.AnalysisRequest) (*ingestion.Analysis, *risk.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRequest = req
	if f.analyzeErr != nil {
		return nil, nil, f.analyzeErr
	}
	if string(req.Data) == "in-progress" {
		a := &ingestion.Analysis{ID: testID, DocumentName: req.Name, Kind: string(req.Kind), Status: ingestion.StatusRunning}
		f.analyses[testID] = a
		return a, nil, nil
	}
	if len(req.Data) == 0 {
		return nil, nil, ingestion.ErrEmptyDocument
	}
	score, level := 12, "low"
	a := &ingestion.Analysis{ID: testID, DocumentName: req.Name, Kind: string(req.Kind), Status: ingestion.StatusCompleted, TotalScore: &score, RiskLevel: &level}
	r := &risk.Report{Document: req.Name, Kind: req.Kind, TotalScore: score, RiskLevel: level}
	f.analyses[testID] = a
	f.reports[testID] = r
	return a, r, nil
}

func (f *fakeService) GetAnalysis(ctx context.Context, id string) (*ingestion.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.analyses[id]
	if !ok {
		return nil, fmt.Errorf("analysis %s: %w", id, ingestion.ErrAnalysisNotFound)
	}
	return a, nil
}

func (f *fakeService) GetReport(ctx context.Context, id string) (*risk.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reportLoads++
	r, ok := f.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", id, ingestion.ErrAnalysisNotFound)
	}
	return r, nil
}

func (f *fakeService) ListAnalyses(ctx context.Context, filter ingestion.ListFilter) ([]ingestion.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	var out []ingestion.Analysis
	for _, a := range f.analyses {
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeService) Ping(ctx context.Context) error { return f.pingErr }

func newTestServer(t *testing.T, svc *fakeService, store *config.Store) *httptest.Server {
	t.Helper()
	if store == nil {
		store = config.NewStaticStore(config.DefaultConfig())
	}
	h := NewHandler(svc, store, NewReportCache(10), slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(APIKeyAuth("secret")(mux))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, contentType string, body []byte, key string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestCreateAnalysisJSON(t *testing.T) {
	svc := newFakeService()
	srv := newTestServer(t, svc, nil)

	body, _ := json.Marshal(ingestion.AnalysisRequest{
		Name:         "invoice.pdf",
		Kind:         risk.KindPDF,
		Data:         []byte("%PDF-1.7"),
		Invoice:      true,
		EmissionDate: "01/02/2026",
	})
	resp := post(t, srv.URL+"/api/v1/analyses", "application/json", body, "secret")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var out analysisResponse
	decode(t, resp, &out)
	if out.Analysis == nil || out.Analysis.ID != testID {
		t.Errorf("unexpected analysis %+v", out.Analysis)
	}
	if out.Report == nil || out.Report.TotalScore != 12 {
		t.Errorf("unexpected report %+v", out.Report)
	}
	if string(svc.lastRequest.Data) != "%PDF-1.7" || !svc.lastRequest.Invoice {
		t.Errorf("request not decoded: %+v", svc.lastRequest)
	}
}

func TestCreateAnalysisRawUpload(t *testing.T) {
	svc := newFakeService()
	srv := newTestServer(t, svc, nil)

	resp := post(t, srv.URL+"/api/v1/analyses?name=scan.jpg&invoice=true", "image/jpeg", []byte{0xff, 0xd8, 0xff}, "secret")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if svc.lastRequest.Kind != risk.KindImage || svc.lastRequest.Name != "scan.jpg" || !svc.lastRequest.Invoice {
		t.Errorf("unexpected request %+v", svc.lastRequest)
	}
}

func TestCreateAnalysisErrors(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        []byte
		key         string
		analyzeErr  error
		want        int
	}{
		{"missing api key", "application/json", []byte(`{}`), "", nil, http.StatusUnauthorized},
		{"invalid json", "application/json", []byte(`{`), "secret", nil, http.StatusBadRequest},
		{"empty document", "application/pdf", nil, "secret", nil, http.StatusBadRequest},
		{"unsupported type", "text/csv", []byte("a,b"), "secret", nil, http.StatusBadRequest},
		{"unknown kind", "application/json", []byte(`{"name":"a.docx","kind":"docx","data":"UEs="}`), "secret", nil, http.StatusBadRequest},
		{"unknown kind from service", "application/pdf", []byte("%PDF"), "secret", fmt.Errorf("%q: %w", "docx", ingestion.ErrUnknownKind), http.StatusBadRequest},
		{"service failure", "application/pdf", []byte("%PDF"), "secret", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := newFakeService()
			svc.analyzeErr = tc.analyzeErr
			srv := newTestServer(t, svc, nil)
			resp := post(t, srv.URL+"/api/v1/analyses", tc.contentType, tc.body, tc.key)
			if resp.StatusCode != tc.want {
				t.Errorf("expected %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}
}

func TestCreateAnalysisTooLarge(t *testing.T) {
	svc := newFakeService()
	h := NewHandler(svc, config.NewStaticStore(config.DefaultConfig()), nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.MaxUploadBytes = 8
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", strings.NewReader("%PDF-1.7 and then some"))
	req.Header.Set("Content-Type", "application/pdf")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestCreateAnalysisGzipLimit(t *testing.T) {
	var small bytes.Buffer
	zw := gzip.NewWriter(&small)
	zw.Write(bytes.Repeat([]byte{0}, 1<<20))
	zw.Close()

	tests := []struct {
		name  string
		limit int64
		want  int
	}{
		{"expands past limit", 64 << 10, http.StatusRequestEntityTooLarge},
		{"fits after decoding", 2 << 20, http.StatusCreated},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if int64(small.Len()) >= tc.limit {
				t.Fatalf("expected compressed body under %d bytes, got %d", tc.limit, small.Len())
			}
			h := NewHandler(newFakeService(), config.NewStaticStore(config.DefaultConfig()), nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
			h.MaxUploadBytes = tc.limit
			mux := http.NewServeMux()
			h.RegisterRoutes(mux)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", bytes.NewReader(small.Bytes()))
			req.Header.Set("Content-Type", "application/pdf")
			req.Header.Set("Content-Encoding", "gzip")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestCreateAnalysisInProgress(t *testing.T) {
	svc := newFakeService()
	srv := newTestServer(t, svc, nil)

	resp := post(t, srv.URL+"/api/v1/analyses?name=inv.pdf", "application/pdf", []byte("in-progress"), "secret")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var out analysisResponse
	decode(t, resp, &out)
	if out.Analysis == nil || out.Analysis.Status != ingestion.StatusRunning {
		t.Errorf("expected running analysis, got %+v", out.Analysis)
	}
	if out.Report != nil {
		t.Errorf("expected no report, got %+v", out.Report)
	}
}

func TestGetAnalysisUsesCache(t *testing.T) {
	svc := newFakeService()
	srv := newTestServer(t, svc, nil)

	post(t, srv.URL+"/api/v1/analyses?name=a.pdf", "application/pdf", []byte("%PDF"), "secret")

	for i := 0; i < 2; i++ {
		resp, err := http.Get(srv.URL + "/api/v1/analyses/" + testID)
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		var out analysisResponse
		decode(t, resp, &out)
		if out.Report == nil || out.Report.Document != "a.pdf" {
			t.Errorf("expected report in response, got %+v", out.Report)
		}
	}
	if svc.reportLoads != 0 {
		t.Errorf("expected report served from cache, got %d loads", svc.reportLoads)
	}

	resp, err := http.Get(srv.URL + "/api/v1/analyses/" + "00000000-0000-4000-8000-000000000000")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetReportFormats(t *testing.T) {
	svc := newFakeService()
	svc.reports[testID] = &risk.Report{
		Document:   "b.pdf",
		TotalScore: 35,
		RiskLevel:  "medium",
		Checks: []risk.CheckResult{
			{Key: "encryption", Label: "Encryption", Tier: risk.TierAdditional, Penalty: 2, BaseWeight: 2},
		},
	}
	srv := newTestServer(t, svc, nil)

	tests := []struct {
		format      string
		status      int
		contentType string
		contains    string
	}{
		{"", http.StatusOK, "application/json", `"total_score": 35`},
		{"markdown", http.StatusOK, "text/markdown", "# Tamper risk report: b.pdf"},
		{"text", http.StatusOK, "text/plain", "score 35/100"},
		{"pdf", http.StatusBadRequest, "application/json", "unknown format"},
	}
	for _, tc := range tests {
		t.Run(tc.format, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/api/v1/analyses/" + testID + "/report?format=" + tc.format)
			if err != nil {
				t.Fatalf("GET: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, tc.contentType) {
				t.Errorf("expected content type %s, got %s", tc.contentType, ct)
			}
			data, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(data), tc.contains) {
				t.Errorf("expected %q in body:\n%s", tc.contains, data)
			}
		})
	}
}

func TestListAnalyses(t *testing.T) {
	svc := newFakeService()
	srv := newTestServer(t, svc, nil)

	resp, err := http.Get(srv.URL + "/api/v1/analyses?risk_level=high&limit=5&offset=10")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out map[string][]ingestion.Analysis
	decode(t, resp, &out)
	if out["analyses"] == nil {
		t.Error("expected empty list, not null")
	}
	want := ingestion.ListFilter{RiskLevel: "high", Limit: 5, Offset: 10}
	if svc.lastFilter != want {
		t.Errorf("expected filter %+v, got %+v", want, svc.lastFilter)
	}

	bad, err := http.Get(srv.URL + "/api/v1/analyses?limit=-1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for negative limit, got %d", bad.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	svc := newFakeService()
	srv := newTestServer(t, svc, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	svc.pingErr = errors.New("connection refused")
	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, newFakeService(), nil)
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(data), "go_goroutines") {
		t.Errorf("expected prometheus exposition, got %d", resp.StatusCode)
	}
}

func TestConfigReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("fusion:\n  base_weight: 20\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := config.NewStore(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	srv := newTestServer(t, newFakeService(), store)

	if err := os.WriteFile(path, []byte("fusion:\n  base_weight: 30\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	resp := post(t, srv.URL+"/api/v1/config/reload", "application/json", nil, "secret")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := store.Current().Config.Fusion.BaseWeight; got != 30 {
		t.Errorf("expected base weight 30 after reload, got %d", got)
	}

	if err := os.WriteFile(path, []byte("fusion:\n  base_weight: 500\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	resp = post(t, srv.URL+"/api/v1/config/reload", "application/json", nil, "secret")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for invalid config, got %d", resp.StatusCode)
	}
	if got := store.Current().Config.Fusion.BaseWeight; got != 30 {
		t.Errorf("expected previous snapshot kept, got base weight %d", got)
	}

	cfgResp, err := http.Get(srv.URL + "/api/v1/config")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer cfgResp.Body.Close()
	var snap struct {
		Version uint64 `json:"version"`
	}
	decode(t, cfgResp, &snap)
	if snap.Version != store.Current().Version {
		t.Errorf("expected version %d, got %d", store.Current().Version, snap.Version)
	}
}

func TestReportCacheEviction(t *testing.T) {
	c := NewReportCache(2)
	c.Put("a", &risk.Report{Document: "a"})
	c.Put("b", &risk.Report{Document: "b"})
	c.Get("a") // a is now most recent
	c.Put("c", &risk.Report{Document: "c"})

	if c.Get("b") != nil {
		t.Error("expected b evicted")
	}
	if c.Get("a") == nil || c.Get("c") == nil {
		t.Error("expected a and c cached")
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if !strings.Contains(buf.String(), "status=418") {
		t.Errorf("expected status logged, got %s", buf.String())
	}
}
