package storage

import (
	"context"
	"errors"
	"sort"

	"grantbot/types"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("not found")

// Store is the persistence collaborator of the discovery engine.
// Every write is an idempotent upsert keyed by the record's stable id.
type Store interface {
	// ListKnownIDs returns the union of stored candidate and tracked item ids
	ListKnownIDs(ctx context.Context) ([]string, error)

	// UpsertCandidate inserts c or refreshes its discovery fields. The review
	// status and first discovery time of an existing candidate are kept.
	UpsertCandidate(ctx context.Context, c types.Candidate) error
	GetCandidate(ctx context.Context, id string) (types.Candidate, error)
	// ListCandidates filters by status ("" for all), ordered by score desc.
	// limit <= 0 means no limit.
	ListCandidates(ctx context.Context, status types.CandidateStatus, limit int) ([]types.Candidate, error)
	UpdateCandidateStatus(ctx context.Context, id string, status types.CandidateStatus) error

	AppendRunReport(ctx context.Context, r types.RunReport) error
	LatestRunReport(ctx context.Context) (types.RunReport, error)

	UpsertTrackedItem(ctx context.Context, item types.TrackedItem) error
	GetTrackedItem(ctx context.Context, id string) (types.TrackedItem, error)
	ListTrackedItems(ctx context.Context) ([]types.TrackedItem, error)

	AppendChangeRecord(ctx context.Context, rec types.ChangeRecord) error
	// ListChangeRecords returns the newest records first; itemID "" lists all
	ListChangeRecords(ctx context.Context, itemID string, limit int) ([]types.ChangeRecord, error)

	Close() error
}

// SortCandidates orders by score desc, then newest first, then id
func SortCandidates(list []types.Candidate) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.DiscoveredAt.Equal(b.DiscoveredAt) {
			return a.DiscoveredAt.After(b.DiscoveredAt)
		}
		return a.ID < b.ID
	})
}

// SortChanges orders newest first
func SortChanges(list []types.ChangeRecord) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].DetectedAt.Equal(list[j].DetectedAt) {
			return list[i].DetectedAt.After(list[j].DetectedAt)
		}
		return list[i].ID < list[j].ID
	})
}

// MergeCandidate applies an upsert of incoming over existing
func MergeCandidate(existing, incoming types.Candidate) types.Candidate {
	incoming.Status = existing.Status
	if !existing.DiscoveredAt.IsZero() {
		incoming.DiscoveredAt = existing.DiscoveredAt
	}
	return incoming
}

// Truncate caps a slice at limit when limit > 0
func Truncate[T any](list []T, limit int) []T {
	if limit > 0 && len(list) > limit {
		return list[:limit]
	}
	return list
}
