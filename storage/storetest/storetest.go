// Package storetest holds the behaviour every storage.Store must satisfy.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantbot/storage"
	"grantbot/types"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func candidate(id string, score int, at time.Time) types.Candidate {
	return types.Candidate{
		ID:           id,
		Title:        "Grant " + id,
		URL:          "https://example.org/" + id,
		SourceID:     "src",
		Score:        score,
		MatchedTerms: map[string][]string{"core": {"cacao"}},
		Deadline:     "15 March 2026",
		DiscoveredAt: at,
		Status:       types.CandidateNew,
	}
}

// Run exercises s against the storage.Store contract
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("candidates", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.UpsertCandidate(ctx, candidate("a", 5, base)))
		require.NoError(t, s.UpsertCandidate(ctx, candidate("b", 9, base)))
		require.NoError(t, s.UpsertCandidate(ctx, candidate("c", 5, base.Add(time.Hour))))

		got, err := s.GetCandidate(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "Grant a", got.Title)
		assert.Equal(t, []string{"cacao"}, got.MatchedTerms["core"])
		assert.True(t, base.Equal(got.DiscoveredAt))

		_, err = s.GetCandidate(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		list, err := s.ListCandidates(ctx, "", 0)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{"b", "c", "a"}, []string{list[0].ID, list[1].ID, list[2].ID})

		list, err = s.ListCandidates(ctx, "", 2)
		require.NoError(t, err)
		assert.Len(t, list, 2)

		require.NoError(t, s.UpdateCandidateStatus(ctx, "b", types.CandidateReviewed))
		assert.ErrorIs(t, s.UpdateCandidateStatus(ctx, "missing", types.CandidateReviewed), storage.ErrNotFound)

		list, err = s.ListCandidates(ctx, types.CandidateReviewed, 0)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "b", list[0].ID)

		// re-delivery keeps review state and first discovery time
		again := candidate("b", 11, base.Add(48*time.Hour))
		require.NoError(t, s.UpsertCandidate(ctx, again))
		got, err = s.GetCandidate(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, 11, got.Score)
		assert.Equal(t, types.CandidateReviewed, got.Status)
		assert.True(t, base.Equal(got.DiscoveredAt))

		list, err = s.ListCandidates(ctx, "", 0)
		require.NoError(t, err)
		assert.Len(t, list, 3)
	})

	t.Run("known ids", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		ids, err := s.ListKnownIDs(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)

		require.NoError(t, s.UpsertCandidate(ctx, candidate("a", 1, base)))
		require.NoError(t, s.UpsertTrackedItem(ctx, types.TrackedItem{ID: "t1", URL: "https://example.org/t1", Status: types.TrackedOpen}))

		ids, err = s.ListKnownIDs(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "t1"}, ids)
	})

	t.Run("run reports", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.LatestRunReport(ctx)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		first := types.RunReport{ID: "r1", State: types.RunCompleted, StartedAt: base, CompletedAt: base.Add(time.Minute), Errors: []types.SourceError{}}
		second := types.RunReport{
			ID: "r2", State: types.RunCompletedWithErrors, StartedAt: base.Add(time.Hour), CompletedAt: base.Add(time.Hour + time.Minute),
			SourcesAttempted: 5, SourcesSucceeded: 4,
			Errors: []types.SourceError{{SourceID: "s3", Kind: "timeout", Message: "deadline exceeded"}},
		}
		require.NoError(t, s.AppendRunReport(ctx, second))
		require.NoError(t, s.AppendRunReport(ctx, first))
		require.NoError(t, s.AppendRunReport(ctx, second))

		latest, err := s.LatestRunReport(ctx)
		require.NoError(t, err)
		assert.Equal(t, "r2", latest.ID)
		assert.Equal(t, types.RunCompletedWithErrors, latest.State)
		assert.Equal(t, 4, latest.SourcesSucceeded)
		require.Len(t, latest.Errors, 1)
		assert.Equal(t, "s3", latest.Errors[0].SourceID)
	})

	t.Run("tracked items and changes", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		item := types.TrackedItem{ID: "t1", Title: "Seed", URL: "https://example.org/seed", Status: types.TrackedOpen}
		require.NoError(t, s.UpsertTrackedItem(ctx, item))

		item.ContentHash = "abc"
		item.Snapshot = types.FieldSnapshot{Deadline: "1 May 2026", Amount: "€5,000"}
		item.LastChecked = base
		require.NoError(t, s.UpsertTrackedItem(ctx, item))
		require.NoError(t, s.UpsertTrackedItem(ctx, types.TrackedItem{ID: "t0", URL: "https://example.org/t0", Status: types.TrackedClosed}))

		items, err := s.ListTrackedItems(ctx)
		require.NoError(t, err)
		require.Len(t, items, 2)
		got, err := s.GetTrackedItem(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, "abc", got.ContentHash)
		assert.Equal(t, "1 May 2026", got.Snapshot.Deadline)
		assert.True(t, base.Equal(got.LastChecked))

		_, err = s.GetTrackedItem(ctx, "nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		older := types.ChangeRecord{ID: "c1", ItemID: "t1", Field: types.FieldDeadline, OldValue: "1 May 2026", NewValue: "15 May 2026", DetectedAt: base}
		newer := types.ChangeRecord{ID: "c2", ItemID: "t1", Field: types.FieldStatus, OldValue: "open", NewValue: "closed", DetectedAt: base.Add(time.Hour)}
		other := types.ChangeRecord{ID: "c3", ItemID: "t0", Field: types.FieldPageContent, DetectedAt: base}
		for _, rec := range []types.ChangeRecord{older, newer, other, older} {
			require.NoError(t, s.AppendChangeRecord(ctx, rec))
		}

		recs, err := s.ListChangeRecords(ctx, "t1", 0)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "c2", recs[0].ID)
		assert.Equal(t, "15 May 2026", recs[1].NewValue)

		recs, err = s.ListChangeRecords(ctx, "", 0)
		require.NoError(t, err)
		assert.Len(t, recs, 3)

		recs, err = s.ListChangeRecords(ctx, "", 1)
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})
}
