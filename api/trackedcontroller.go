package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"grantbot/types"
)

func (s *Server) registerTrackedRoutes(r *gin.Engine) {
	r.POST("/api/changes/check", s.handleCheckChanges)
	r.GET("/api/changes/:id", s.handleListChanges)

	g := r.Group("/api/tracked")
	g.GET("", s.handleListTracked)
	g.POST("", s.handleTrackURL)
}

// TrackRequest is the body of POST /api/tracked
type TrackRequest struct {
	URL   string `json:"url" binding:"required"`
	Title string `json:"title"`
}

// handleCheckChanges starts a tracked item check and returns 202
func (s *Server) handleCheckChanges(c *gin.Context) {
	if !s.startCheck() {
		errorResponse(c, http.StatusConflict, "change check already in progress", nil)
		return
	}
	c.JSON(http.StatusAccepted, startedResponse{Status: "started", Message: "Change check initiated"})
}

func (s *Server) handleListChanges(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid limit", err)
		return
	}
	records, err := s.orch.Store().ListChangeRecords(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to list changes", err)
		return
	}
	if records == nil {
		records = []types.ChangeRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"changes": records, "count": len(records)})
}

func (s *Server) handleListTracked(c *gin.Context) {
	items, err := s.orch.Store().ListTrackedItems(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to list tracked items", err)
		return
	}
	if items == nil {
		items = []types.TrackedItem{}
	}
	c.JSON(http.StatusOK, gin.H{"tracked": items, "count": len(items)})
}

func (s *Server) handleTrackURL(c *gin.Context) {
	var req TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	item, err := s.orch.TrackURL(c.Request.Context(), req.URL, req.Title)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to track url", err)
		return
	}
	c.JSON(http.StatusCreated, item)
}
