package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"grantbot/extract"
	"grantbot/scoring"
)

func (s *Server) registerScoringRoutes(r *gin.Engine) {
	r.POST("/api/score", s.handleScore)
	r.GET("/api/sources", s.handleListSources)
}

// ScoreRequest is the body of POST /api/score. HTML is reduced to text
// before scoring.
type ScoreRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	HTML  string `json:"html"`
}

// ScoreResponse reports fields and score for an ad-hoc corpus
type ScoreResponse struct {
	Scorer string         `json:"scorer"`
	Fields extract.Fields `json:"fields"`
	scoring.Result
}

func (s *Server) handleScore(c *gin.Context) {
	var req ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	body := req.Text
	if req.HTML != "" {
		body = strings.TrimSpace(body + " " + extract.Text(req.HTML))
	}
	text := strings.TrimSpace(req.Title + " " + body)
	if text == "" {
		errorResponse(c, http.StatusBadRequest, "title, text or html is required", nil)
		return
	}

	fields := extract.Extract(body)
	scorer := s.orch.Scorer()
	res, err := scorer.Score(c.Request.Context(), scoring.Input{Text: text, Fields: &fields})
	if err != nil {
		errorResponse(c, http.StatusBadGateway, "scorer failed", err)
		return
	}
	c.JSON(http.StatusOK, ScoreResponse{Scorer: scorer.Name(), Fields: fields, Result: res})
}

func (s *Server) handleListSources(c *gin.Context) {
	sources := s.orch.Sources()
	enabled := 0
	for _, src := range sources {
		if src.Enabled {
			enabled++
		}
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources, "count": len(sources), "enabled": enabled})
}
