package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"grantbot/orchestrator"
	"grantbot/types"
)

// Server exposes the orchestrator over HTTP and runs the cron schedule
type Server struct {
	orch       *orchestrator.Orchestrator
	logger     *zap.Logger
	router     *gin.Engine
	httpServer *http.Server
	cron       *cron.Cron

	mu       sync.Mutex
	checking bool

	// background runs outlive the request that started them
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates the HTTP server. addr is e.g. ":8080".
func NewServer(orch *orchestrator.Orchestrator, addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		orch:    orch,
		logger:  logger,
		cron:    cron.New(),
		baseCtx: ctx,
		cancel:  cancel,
	}
	s.router = s.newRouter()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the gin engine, mainly for tests
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) newRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/api/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.registerDiscoveryRoutes(r)
	s.registerCandidateRoutes(r)
	s.registerTrackedRoutes(r)
	s.registerScoringRoutes(r)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

// Start serves HTTP in the background
func (s *Server) Start() error {
	s.logger.Info("Starting API server", zap.String("addr", s.httpServer.Addr))
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// StartCron schedules discovery runs and tracked item checks. An empty
// schedule disables that job. Ticks are skipped while work is in progress.
func (s *Server) StartCron(discoverySchedule, changesSchedule string) error {
	if discoverySchedule != "" {
		if _, err := s.cron.AddFunc(discoverySchedule, func() {
			if s.orch.State().IsRunning() {
				s.logger.Info("Cron skipped: discovery run in progress")
				return
			}
			s.logger.Info("Cron triggered: starting discovery run")
			s.startRun(orchestrator.RunOptions{RequestedBy: "cron"})
		}); err != nil {
			return fmt.Errorf("failed to add discovery cron job: %w", err)
		}
	}
	if changesSchedule != "" {
		if _, err := s.cron.AddFunc(changesSchedule, func() {
			if !s.startCheck() {
				s.logger.Info("Cron skipped: change check in progress")
			}
		}); err != nil {
			return fmt.Errorf("failed to add change check cron job: %w", err)
		}
	}
	s.cron.Start()
	s.logger.Info("Cron started", zap.String("discovery", discoverySchedule), zap.String("changes", changesSchedule))
	return nil
}

// Shutdown stops cron, cancels background work and drains HTTP
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	<-s.cron.Stop().Done()
	s.cancel()
	err := s.httpServer.Shutdown(ctx)
	s.Wait()
	return err
}

// Wait blocks until background runs and checks have finished
func (s *Server) Wait() { s.wg.Wait() }

// startRun launches a discovery run in the background
func (s *Server) startRun(opts orchestrator.RunOptions) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		report, _, err := s.orch.Run(s.baseCtx, opts)
		if err != nil {
			s.logger.Error("Discovery run failed", zap.String("run_id", report.ID), zap.Error(err))
		}
	}()
}

// startCheck launches a tracked item check unless one is running
func (s *Server) startCheck() bool {
	s.mu.Lock()
	if s.checking {
		s.mu.Unlock()
		return false
	}
	s.checking = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer func() {
			s.mu.Lock()
			s.checking = false
			s.mu.Unlock()
			s.wg.Done()
		}()
		records, err := s.orch.CheckAllTracked(s.baseCtx)
		if err != nil {
			s.logger.Error("Change check failed", zap.Error(err))
			return
		}
		s.logger.Info("Change check finished", zap.Int("changes", len(records)))
		if _, err := s.orch.ExpireCandidates(s.baseCtx); err != nil {
			s.logger.Error("Candidate expiry failed", zap.Error(err))
		}
	}()
	return true
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "state": s.orch.State().GetState()})
}

func errorResponse(c *gin.Context, status int, message string, err error) {
	body := gin.H{"error": message}
	if err != nil {
		body["detail"] = err.Error()
	}
	c.JSON(status, body)
}

// startedResponse is returned for accepted background work
type startedResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	State   types.RunState `json:"state,omitempty"`
}
