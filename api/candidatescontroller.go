package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"grantbot/storage"
	"grantbot/types"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (s *Server) registerCandidateRoutes(r *gin.Engine) {
	g := r.Group("/api/candidates")
	g.GET("", s.handleListCandidates)
	g.GET("/:id", s.handleGetCandidate)
	g.PATCH("/:id", s.handleUpdateCandidate)
}

// UpdateCandidateRequest is the body of PATCH /api/candidates/:id
type UpdateCandidateRequest struct {
	Status types.CandidateStatus `json:"status" binding:"required"`
}

// handleListCandidates handles GET /api/candidates?status=&limit=
func (s *Server) handleListCandidates(c *gin.Context) {
	status := types.CandidateStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		errorResponse(c, http.StatusBadRequest, "unknown status "+string(status), nil)
		return
	}
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid limit", err)
		return
	}

	list, err := s.orch.Store().ListCandidates(c.Request.Context(), status, limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to list candidates", err)
		return
	}
	if list == nil {
		list = []types.Candidate{}
	}
	c.JSON(http.StatusOK, gin.H{"candidates": list, "count": len(list)})
}

func (s *Server) handleGetCandidate(c *gin.Context) {
	cand, err := s.orch.Store().GetCandidate(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		errorResponse(c, http.StatusNotFound, "candidate not found", nil)
		return
	}
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to load candidate", err)
		return
	}
	c.JSON(http.StatusOK, cand)
}

// handleUpdateCandidate applies a review decision
func (s *Server) handleUpdateCandidate(c *gin.Context) {
	var req UpdateCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if !req.Status.Valid() {
		errorResponse(c, http.StatusBadRequest, "unknown status "+string(req.Status), nil)
		return
	}

	cand, err := s.orch.SetCandidateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if errors.Is(err, storage.ErrNotFound) {
		errorResponse(c, http.StatusNotFound, "candidate not found", nil)
		return
	}
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to update candidate", err)
		return
	}
	c.JSON(http.StatusOK, cand)
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("limit must be positive")
	}
	return min(n, maxListLimit), nil
}
