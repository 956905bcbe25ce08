package web

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"DiscussionScanner/internal/usecase"
)

// startScan launches a background scan. The request body may carry a
// run config in the same JSON shape as the file's scan section; absent
// fields keep the configured defaults.
func (s *Server) startScan(c *gin.Context) {
	if s.orch.Tracker().Running() {
		c.JSON(http.StatusConflict, gin.H{"error": "scan already in progress"})
		return
	}

	runCfg := s.cfg.Scan
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&runCfg); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run config: " + err.Error()})
			return
		}
	}
	if err := runCfg.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runCtx, cancel := context.WithCancel(context.Background())
	gen, ok := s.claimScan(cancel)
	if !ok {
		cancel()
		c.JSON(http.StatusConflict, gin.H{"error": "scan already in progress"})
		return
	}

	go func() {
		defer s.releaseScan(gen)
		defer cancel()
		if err := s.orch.Run(runCtx, runCfg); err != nil && !errors.Is(err, usecase.ErrScanActive) {
			s.logger.Error("scan run failed", "error", err)
		}
	}()

	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

// scanStatus reports the tracker snapshot, with elapsed time while the
// scan is running.
func (s *Server) scanStatus(c *gin.Context) {
	snap := s.orch.Tracker().Snapshot()

	body := gin.H{
		"running":       snap.Running,
		"progress":      snap.Progress,
		"current_task":  snap.CurrentTask,
		"total_results": snap.TotalResults,
	}
	if snap.Error != "" {
		body["error"] = snap.Error
	}
	if snap.Running {
		body["elapsed"] = time.Since(snap.StartTime).Truncate(time.Second).String()
	}

	c.JSON(http.StatusOK, body)
}

// stopScan requests cancellation; the run observes it at the next unit
// boundary.
func (s *Server) stopScan(c *gin.Context) {
	if !s.orch.Tracker().Running() || !s.stopRunningScan() {
		c.JSON(http.StatusConflict, gin.H{"error": "no scan in progress"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopping"})
}

type analysisRequest struct {
	Prompt      string `json:"prompt"`
	ResultsFile string `json:"results_file"`
}

// startAnalysis launches a background analysis of a result file with
// the operator's prompt. The file defaults to the configured output
// path; a missing file falls back to the newest result document.
func (s *Server) startAnalysis(c *gin.Context) {
	var req analysisRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	if !s.analyzer.Configured() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "analysis is not configured: missing API key"})
		return
	}

	path, err := s.resolveResultsFile(req.ResultsFile)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	if s.analyzer.Tracker().Running() {
		c.JSON(http.StatusConflict, gin.H{"error": "analysis already in progress"})
		return
	}

	go func() {
		if err := s.analyzer.Run(context.Background(), path, req.Prompt); err != nil &&
			!errors.Is(err, usecase.ErrAnalysisActive) {
			s.logger.Error("analysis run failed", "error", err)
		}
	}()

	c.JSON(http.StatusOK, gin.H{"status": "started", "results_file": filepath.Base(path)})
}

func (s *Server) analysisStatus(c *gin.Context) {
	snap := s.analyzer.Tracker().Snapshot()

	body := gin.H{
		"running":      snap.Running,
		"progress":     snap.Progress,
		"current_task": snap.CurrentTask,
	}
	if snap.Result != "" {
		body["result"] = snap.Result
	}
	if snap.Error != "" {
		body["error"] = snap.Error
	}

	c.JSON(http.StatusOK, body)
}

type saveAnalysisRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// saveAnalysis persists analysis text to a .txt file next to the
// result documents.
func (s *Server) saveAnalysis(c *gin.Context) {
	var req saveAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	name := req.Filename
	if name == "" {
		name = "analysis_results.txt"
	}
	if filepath.Base(name) != name {
		c.JSON(http.StatusBadRequest, gin.H{"error": "filename must not contain a path"})
		return
	}
	if !strings.HasSuffix(name, ".txt") {
		name += ".txt"
	}

	path := filepath.Join(s.resultsDir(), name)
	if err := os.WriteFile(path, []byte(req.Content), 0o644); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "saved", "filename": name})
}

// listResults enumerates the result documents available for analysis
// and download, newest first.
func (s *Server) listResults(c *gin.Context) {
	files := s.listResultFiles()
	if files == nil {
		files = []resultFile{}
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// downloadResults streams a result document as an attachment. Without a
// file parameter it serves the configured output file.
func (s *Server) downloadResults(c *gin.Context) {
	path := s.cfg.Scan.OutputFile
	if name := c.Query("file"); name != "" {
		if filepath.Base(name) != name {
			c.JSON(http.StatusBadRequest, gin.H{"error": "filename must not contain a path"})
			return
		}
		path = filepath.Join(s.resultsDir(), name)
	}

	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no results file available"})
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

type resultFile struct {
	Filename string    `json:"filename"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// resultsDir is the directory holding result documents and saved
// analyses: wherever the configured output file lives.
func (s *Server) resultsDir() string {
	return filepath.Dir(s.cfg.Scan.OutputFile)
}

// listResultFiles returns the result documents in the results
// directory, newest first. A file qualifies by being the configured
// output file or by carrying a recognizable result name.
func (s *Server) listResultFiles() []resultFile {
	entries, err := os.ReadDir(s.resultsDir())
	if err != nil {
		return nil
	}

	configured := filepath.Base(s.cfg.Scan.OutputFile)

	var files []resultFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		lower := strings.ToLower(name)
		if !strings.HasSuffix(lower, ".json") {
			continue
		}
		if name != configured && !strings.Contains(lower, "agent") && !strings.Contains(lower, "discussions") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, resultFile{
			Filename: name,
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Modified.After(files[j].Modified)
	})
	return files
}

// resolveResultsFile picks the document to analyze: the requested name
// when it exists, otherwise the configured output file, otherwise the
// newest available result document.
func (s *Server) resolveResultsFile(requested string) (string, error) {
	candidate := s.cfg.Scan.OutputFile
	if requested != "" {
		if filepath.Base(requested) != requested {
			return "", errors.New("results file must not contain a path")
		}
		candidate = filepath.Join(s.resultsDir(), requested)
	}

	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}

	files := s.listResultFiles()
	if len(files) == 0 {
		return "", errors.New("no results file available")
	}
	return filepath.Join(s.resultsDir(), files[0].Filename), nil
}
