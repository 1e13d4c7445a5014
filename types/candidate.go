package types

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// CandidateStatus is the review state of a discovered item
type CandidateStatus string

const (
	CandidateNew      CandidateStatus = "new"
	CandidateReviewed CandidateStatus = "reviewed"
	CandidateAdded    CandidateStatus = "added"
	CandidateRejected CandidateStatus = "rejected"
	CandidateExpired  CandidateStatus = "expired"
)

// Valid reports whether s is a known candidate status
func (s CandidateStatus) Valid() bool {
	switch s {
	case CandidateNew, CandidateReviewed, CandidateAdded, CandidateRejected, CandidateExpired:
		return true
	}
	return false
}

// Candidate is a discovered grant-like item awaiting review
type Candidate struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	URL          string              `json:"url"`
	SourceID     string              `json:"source_id"`
	SourceName   string              `json:"source_name,omitempty"`
	Region       string              `json:"region,omitempty"`
	Score        int                 `json:"score"`
	MatchedTerms map[string][]string `json:"matched_terms,omitempty"`
	Excerpt      string              `json:"excerpt,omitempty"`
	Deadline     string              `json:"deadline,omitempty"`
	Amount       string              `json:"amount,omitempty"`
	Eligibility  string              `json:"eligibility,omitempty"`
	DiscoveredAt time.Time           `json:"discovered_at"`
	Status       CandidateStatus     `json:"status"`
}

// GenerateID creates a short, stable ID by hashing the provided string input
func GenerateID(input string) string {
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16]
}
