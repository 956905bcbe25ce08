package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"DiscussionScanner/internal/config"
	"DiscussionScanner/internal/domain"
	"DiscussionScanner/internal/search"
	"DiscussionScanner/internal/status"
	"DiscussionScanner/internal/usecase"
)

type stubAdapter struct {
	name    string
	records []domain.NormalizedRecord
}

func (a *stubAdapter) Name() string { return a.name }

func (a *stubAdapter) Search(_ context.Context, _ search.Unit, _ int) ([]domain.NormalizedRecord, error) {
	return a.records, nil
}

// blockingAdapter holds every Search call until release is closed, so
// tests can act while a scan is provably in flight.
type blockingAdapter struct {
	name    string
	release chan struct{}
	records []domain.NormalizedRecord
}

func (a *blockingAdapter) Name() string { return a.name }

func (a *blockingAdapter) Search(ctx context.Context, _ search.Unit, _ int) ([]domain.NormalizedRecord, error) {
	select {
	case <-a.release:
		return a.records, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type stubWriter struct {
	path string
}

func (w *stubWriter) Write(path string, discussions []domain.Discussion) error {
	w.path = path
	raw, err := json.Marshal(discussions)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

type stubChat struct {
	result string
}

func (c *stubChat) Analyze(_ context.Context, _ string, _ []byte) (string, error) {
	return c.result, nil
}

type harness struct {
	server *Server
	router *gin.Engine
	cfg    config.Config
}

func relevantRecord() domain.NormalizedRecord {
	return domain.NormalizedRecord{
		Title:   "agent to agent protocol pain point",
		Content: "implementation problem with agent communication",
		URL:     "https://news.ycombinator.com/item?id=1",
	}
}

func newHarness(t *testing.T, adapter search.Adapter, chat *stubChat, categories config.CategoriesConfig) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Server: config.ServerConfig{Addr: ":0"},
		Scan: config.ScanConfig{
			RelevanceThreshold: 0.3,
			ResultsPerSearch:   5,
			OutputFile:         filepath.Join(t.TempDir(), "results.json"),
			Sources: config.SourcesConfig{
				HackerNews: config.SourceConfig{Enabled: true},
			},
			Categories: categories,
		},
	}

	registry := search.NewRegistry()
	registry.Register(adapter)

	orch := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Registry: registry,
		Writer:   &stubWriter{},
		Tracker:  status.NewTracker(),
	})

	var analyzer *usecase.Analyzer
	if chat != nil {
		analyzer = usecase.NewAnalyzer(chat, status.NewTracker(), nil)
	} else {
		analyzer = usecase.NewAnalyzer(nil, status.NewTracker(), nil)
	}

	server := NewServer(cfg, orch, analyzer, nil)
	return &harness{server: server, router: server.Router(), cfg: cfg}
}

func setupServer(t *testing.T, chat *stubChat) *harness {
	t.Helper()
	adapter := &stubAdapter{
		name:    search.SourceHackerNews,
		records: []domain.NormalizedRecord{relevantRecord()},
	}
	return newHarness(t, adapter, chat, config.CategoriesConfig{
		Connectivity: config.CategoryConfig{Enabled: true},
	})
}

// setupBlockingServer enables two categories so a cancellation issued
// during the first unit is observed at the second unit's boundary.
func setupBlockingServer(t *testing.T) (*harness, *blockingAdapter) {
	t.Helper()
	adapter := &blockingAdapter{
		name:    search.SourceHackerNews,
		release: make(chan struct{}),
		records: []domain.NormalizedRecord{relevantRecord()},
	}
	h := newHarness(t, adapter, nil, config.CategoriesConfig{
		Connectivity: config.CategoryConfig{Enabled: true},
		Discovery:    config.CategoryConfig{Enabled: true},
	})
	return h, adapter
}

func (h *harness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func waitForScan(t *testing.T, h *harness) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		snap := h.server.orch.Tracker().Snapshot()
		if !snap.Running && (snap.Progress > 0 || snap.Error != "") {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("scan did not finish in time")
}

func waitForRunning(t *testing.T, h *harness) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if h.server.orch.Tracker().Running() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("scan did not start in time")
}

func TestHealth(t *testing.T) {
	h := setupServer(t, nil)

	resp := h.do(t, http.MethodGet, "/health", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if body := decodeBody(t, resp); body["status"] != "healthy" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestStartScanRunsToCompletion(t *testing.T) {
	h := setupServer(t, nil)

	resp := h.do(t, http.MethodPost, "/api/scan/start", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	waitForScan(t, h)

	statusResp := h.do(t, http.MethodGet, "/api/scan/status", nil)
	body := decodeBody(t, statusResp)
	if body["running"] != false {
		t.Fatalf("expected scan to be finished: %v", body)
	}
	if body["progress"] != float64(100) {
		t.Fatalf("expected progress 100, got %v", body["progress"])
	}
	if body["total_results"] != float64(1) {
		t.Fatalf("expected one result, got %v", body["total_results"])
	}

	if _, err := os.Stat(h.cfg.Scan.OutputFile); err != nil {
		t.Fatalf("results file not written: %v", err)
	}
}

func TestConcurrentStartsDoNotCancelTheWinner(t *testing.T) {
	h, adapter := setupBlockingServer(t)

	const starts = 8
	codes := make([]int, starts)

	var wg sync.WaitGroup
	for i := 0; i < starts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = h.do(t, http.MethodPost, "/api/scan/start", nil).Code
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			accepted++
		case http.StatusConflict:
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	if accepted != 1 {
		t.Fatalf("expected exactly one accepted start, got %d", accepted)
	}

	waitForRunning(t, h)
	close(adapter.release)
	waitForScan(t, h)

	snap := h.server.orch.Tracker().Snapshot()
	if snap.Error != "" {
		t.Fatalf("rejected starts cancelled the winning run: %+v", snap)
	}
	if snap.Progress != 100 {
		t.Fatalf("expected progress 100, got %d", snap.Progress)
	}
}

func TestStopCancelsRunningScan(t *testing.T) {
	h, _ := setupBlockingServer(t)

	if resp := h.do(t, http.MethodPost, "/api/scan/start", nil); resp.Code != http.StatusOK {
		t.Fatalf("start failed: %d", resp.Code)
	}
	waitForRunning(t, h)

	resp := h.do(t, http.MethodPost, "/api/scan/stop", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if body := decodeBody(t, resp); body["status"] != "stopping" {
		t.Fatalf("unexpected body: %v", body)
	}

	waitForScan(t, h)

	snap := h.server.orch.Tracker().Snapshot()
	if snap.Error != "Stopped by user" {
		t.Fatalf("expected user stop, got %+v", snap)
	}
	if _, err := os.Stat(h.cfg.Scan.OutputFile); err == nil {
		t.Fatal("cancelled run must not persist results")
	}
}

func TestStartScanRejectsInvalidRunConfig(t *testing.T) {
	h := setupServer(t, nil)

	resp := h.do(t, http.MethodPost, "/api/scan/start", map[string]any{
		"results_per_search": -1,
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if body := decodeBody(t, resp); body["error"] != "results per search must be at least 1" {
		t.Fatalf("unexpected error: %v", body["error"])
	}
}

func TestStartScanRejectsConcurrentRun(t *testing.T) {
	h := setupServer(t, nil)

	if !h.server.orch.Tracker().Begin(time.Now()) {
		t.Fatal("claim tracker")
	}

	resp := h.do(t, http.MethodPost, "/api/scan/start", nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestScanStatusReportsElapsedWhileRunning(t *testing.T) {
	h := setupServer(t, nil)

	if !h.server.orch.Tracker().Begin(time.Now().Add(-5 * time.Second)) {
		t.Fatal("claim tracker")
	}

	resp := h.do(t, http.MethodGet, "/api/scan/status", nil)
	body := decodeBody(t, resp)
	if body["running"] != true {
		t.Fatalf("expected running status: %v", body)
	}
	if _, ok := body["elapsed"]; !ok {
		t.Fatal("expected elapsed field while running")
	}
}

func TestStopScanWithoutRun(t *testing.T) {
	h := setupServer(t, nil)

	resp := h.do(t, http.MethodPost, "/api/scan/stop", nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestStartAnalysisRequiresPrompt(t *testing.T) {
	h := setupServer(t, &stubChat{result: "ok"})

	resp := h.do(t, http.MethodPost, "/api/analysis/start", map[string]any{})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestStartAnalysisRequiresConfiguredClient(t *testing.T) {
	h := setupServer(t, nil)

	resp := h.do(t, http.MethodPost, "/api/analysis/start", map[string]any{"prompt": "p"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if body := decodeBody(t, resp); body["error"] != "analysis is not configured: missing API key" {
		t.Fatalf("unexpected error: %v", body["error"])
	}
}

func TestStartAnalysisWithoutAnyResultsFile(t *testing.T) {
	h := setupServer(t, &stubChat{result: "ok"})

	resp := h.do(t, http.MethodPost, "/api/analysis/start", map[string]any{"prompt": "p"})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func writeDiscussionFixture(t *testing.T, path string) {
	t.Helper()
	raw, err := json.Marshal([]domain.Discussion{{Title: "t", URL: "u"}})
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func TestAnalysisFlowProducesResult(t *testing.T) {
	h := setupServer(t, &stubChat{result: "key themes identified"})

	writeDiscussionFixture(t, h.cfg.Scan.OutputFile)

	resp := h.do(t, http.MethodPost, "/api/analysis/start", map[string]any{"prompt": "summarize"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if !h.server.analyzer.Tracker().Running() && h.server.analyzer.Tracker().Snapshot().Progress > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	statusResp := h.do(t, http.MethodGet, "/api/analysis/status", nil)
	body := decodeBody(t, statusResp)
	if body["result"] != "key themes identified" {
		t.Fatalf("unexpected analysis status: %v", body)
	}
}

func TestStartAnalysisUsesRequestedFile(t *testing.T) {
	h := setupServer(t, &stubChat{result: "ok"})

	other := filepath.Join(h.server.resultsDir(), "agent_archive.json")
	writeDiscussionFixture(t, other)

	resp := h.do(t, http.MethodPost, "/api/analysis/start", map[string]any{
		"prompt":       "summarize",
		"results_file": "agent_archive.json",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if body := decodeBody(t, resp); body["results_file"] != "agent_archive.json" {
		t.Fatalf("unexpected file selection: %v", body)
	}
}

func TestStartAnalysisFallsBackToNewestResultFile(t *testing.T) {
	h := setupServer(t, &stubChat{result: "ok"})

	// Configured output file is absent; an older scan's document exists.
	fallback := filepath.Join(h.server.resultsDir(), "agent_discussions.json")
	writeDiscussionFixture(t, fallback)

	resp := h.do(t, http.MethodPost, "/api/analysis/start", map[string]any{"prompt": "summarize"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if body := decodeBody(t, resp); body["results_file"] != "agent_discussions.json" {
		t.Fatalf("unexpected fallback: %v", body)
	}
}

func TestSaveAnalysisWritesTextFile(t *testing.T) {
	h := setupServer(t, nil)

	resp := h.do(t, http.MethodPost, "/api/analysis/save", map[string]any{
		"filename": "insights",
		"content":  "top pain points",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if body := decodeBody(t, resp); body["filename"] != "insights.txt" {
		t.Fatalf("expected .txt suffix, got %v", body["filename"])
	}

	raw, err := os.ReadFile(filepath.Join(h.server.resultsDir(), "insights.txt"))
	if err != nil {
		t.Fatalf("read saved analysis: %v", err)
	}
	if string(raw) != "top pain points" {
		t.Fatalf("unexpected content: %q", raw)
	}
}

func TestSaveAnalysisRequiresContent(t *testing.T) {
	h := setupServer(t, nil)

	resp := h.do(t, http.MethodPost, "/api/analysis/save", map[string]any{"filename": "x"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSaveAnalysisRejectsPathInFilename(t *testing.T) {
	h := setupServer(t, nil)

	resp := h.do(t, http.MethodPost, "/api/analysis/save", map[string]any{
		"filename": "../escape",
		"content":  "c",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestListResultFiles(t *testing.T) {
	h := setupServer(t, nil)
	dir := h.server.resultsDir()

	writeDiscussionFixture(t, h.cfg.Scan.OutputFile)
	writeDiscussionFixture(t, filepath.Join(dir, "agent_old.json"))
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "unrelated.json"), []byte("[]"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "agent_old.json"), old, old); err != nil {
		t.Fatalf("age fixture: %v", err)
	}

	resp := h.do(t, http.MethodGet, "/api/results/files", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		Files []resultFile `json:"files"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Files) != 2 {
		t.Fatalf("expected 2 result files, got %+v", body.Files)
	}
	if body.Files[0].Filename != "results.json" || body.Files[1].Filename != "agent_old.json" {
		t.Fatalf("expected newest first, got %+v", body.Files)
	}
}

func TestDownloadResultsMissingFile(t *testing.T) {
	h := setupServer(t, nil)

	resp := h.do(t, http.MethodGet, "/api/results/download", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestDownloadResultsServesFile(t *testing.T) {
	h := setupServer(t, nil)

	if err := os.WriteFile(h.cfg.Scan.OutputFile, []byte(`[]`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	resp := h.do(t, http.MethodGet, "/api/results/download", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp.Body.String() != `[]` {
		t.Fatalf("unexpected body: %q", resp.Body.String())
	}
}

func TestDownloadResultsByName(t *testing.T) {
	h := setupServer(t, nil)

	other := filepath.Join(h.server.resultsDir(), "agent_old.json")
	if err := os.WriteFile(other, []byte(`[{"title":"t"}]`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	resp := h.do(t, http.MethodGet, "/api/results/download?file=agent_old.json", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp.Body.String() != `[{"title":"t"}]` {
		t.Fatalf("unexpected body: %q", resp.Body.String())
	}
}

func TestDownloadResultsRejectsPathInName(t *testing.T) {
	h := setupServer(t, nil)

	resp := h.do(t, http.MethodGet, "/api/results/download?file=../escape.json", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
