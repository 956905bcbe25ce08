// Package web exposes the control panel API: starting and stopping
// scans, polling status, launching analysis, and downloading results.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"DiscussionScanner/internal/config"
	"DiscussionScanner/internal/usecase"
)

// Server owns the HTTP surface and the cancel handle of the scan it
// launched. Scans and analyses run in background goroutines; their
// trackers are the single source of truth for status.
type Server struct {
	cfg      config.Config
	orch     *usecase.Orchestrator
	analyzer *usecase.Analyzer
	logger   *slog.Logger

	mu         sync.Mutex
	scanGen    uint64
	cancelScan context.CancelFunc
}

// NewServer wires the control panel around the two use case flows.
func NewServer(cfg config.Config, orch *usecase.Orchestrator, analyzer *usecase.Analyzer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, orch: orch, analyzer: analyzer, logger: logger}
}

// Router builds the gin engine with all control panel routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "discussionscanner"})
	})

	api := router.Group("/api")
	{
		api.POST("/scan/start", s.startScan)
		api.GET("/scan/status", s.scanStatus)
		api.POST("/scan/stop", s.stopScan)
		api.POST("/analysis/start", s.startAnalysis)
		api.GET("/analysis/status", s.analysisStatus)
		api.POST("/analysis/save", s.saveAnalysis)
		api.GET("/results/files", s.listResults)
		api.GET("/results/download", s.downloadResults)
	}

	return router
}

// Run serves the control panel until ctx is cancelled, then shuts
// down gracefully with a 30 second drain window.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control panel listening", "addr", s.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("control panel shutting down")
	s.stopRunningScan()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// claimScan stores the cancel handle of a new web-started scan. The
// claim fails while another handle is held, so concurrent start
// requests can never cancel each other's run.
func (s *Server) claimScan(cancel context.CancelFunc) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelScan != nil {
		return 0, false
	}
	s.scanGen++
	s.cancelScan = cancel
	return s.scanGen, true
}

// releaseScan drops the handle once the run that claimed it finished.
// The generation check makes a late release a no-op after another run
// has taken over the slot.
func (s *Server) releaseScan(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scanGen != gen {
		return
	}
	s.cancelScan = nil
}

// stopRunningScan cancels the in-flight scan, if any.
func (s *Server) stopRunningScan() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelScan == nil {
		return false
	}
	s.cancelScan()
	s.cancelScan = nil
	return true
}
