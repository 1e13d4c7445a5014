package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"grantbot/orchestrator"
	"grantbot/storage"
)

func (s *Server) registerDiscoveryRoutes(r *gin.Engine) {
	g := r.Group("/api/discovery")
	g.POST("/run", s.handleStartRun)
	g.GET("/status", s.handleStatus)
	g.GET("/runs/latest", s.handleLatestRun)
}

// StartRunRequest is the optional body of POST /api/discovery/run
type StartRunRequest struct {
	MaxSources int `json:"max_sources"`
}

// handleStartRun starts a discovery run and returns 202 immediately
func (s *Server) handleStartRun(c *gin.Context) {
	var req StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		errorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.MaxSources < 0 {
		errorResponse(c, http.StatusBadRequest, "max_sources must not be negative", nil)
		return
	}
	if s.orch.State().IsRunning() {
		status := s.orch.State().GetStatus()
		c.JSON(http.StatusConflict, gin.H{"error": "discovery run already in progress", "run_id": status.RunID})
		return
	}

	s.startRun(orchestrator.RunOptions{MaxSources: req.MaxSources, RequestedBy: "api"})
	c.JSON(http.StatusAccepted, startedResponse{Status: "started", Message: "Discovery run initiated"})
}

// handleStatus returns state, recent logs and the last report
func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.orch.State().GetStatus())
}

func (s *Server) handleLatestRun(c *gin.Context) {
	report, err := s.orch.Store().LatestRunReport(c.Request.Context())
	if errors.Is(err, storage.ErrNotFound) {
		errorResponse(c, http.StatusNotFound, "no runs recorded yet", nil)
		return
	}
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to load run report", err)
		return
	}
	c.JSON(http.StatusOK, report)
}
