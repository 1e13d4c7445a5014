package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"grantbot/changes"
	"grantbot/deduplication"
	"grantbot/extract"
	"grantbot/storage"
	"grantbot/types"
)

const trackedSourceID = "tracked"

// CheckForChanges re-scrapes each tracked item and records field deltas.
// Fetch failures are logged and skip the item; only store failures are
// returned, wrapped in ErrPersistence.
func (o *Orchestrator) CheckForChanges(ctx context.Context, items []types.TrackedItem) ([]types.ChangeRecord, error) {
	all := []types.ChangeRecord{}
	var persistErr error

	for i, item := range items {
		if i > 0 {
			if err := sleep(ctx, o.cfg.ChangeDelay); err != nil {
				break
			}
		}

		detail, err := o.crawler.FetchDetail(ctx, trackedSourceID, item.URL)
		if err != nil {
			o.logger.Warn("Tracked item fetch failed", zap.String("item_id", item.ID), zap.String("url", item.URL), zap.Error(err))
			continue
		}

		now := o.now()
		fields := extract.Extract(detail.Text)
		fresh := changes.Snapshot{
			ContentHash: changes.HashContent(detail.Text),
			Fields:      types.FieldSnapshot{Deadline: fields.Deadline, Amount: fields.Amount, Closed: fields.Closed},
		}
		res := changes.Detect(item.ID, fresh, changes.FromTracked(item), now)

		// records go first: the snapshot only advances once every delta is stored
		stored := 0
		for _, rec := range res.Changes {
			if err := o.store.AppendChangeRecord(ctx, rec); err != nil {
				o.logger.Error("Failed to store change record", zap.String("item_id", item.ID), zap.Error(err))
				persistErr = errors.Join(persistErr, err)
				break
			}
			stored++
		}
		if stored < len(res.Changes) {
			continue
		}

		item.ContentHash = fresh.ContentHash
		item.Snapshot = fresh.Fields
		item.LastChecked = now
		if len(res.Changes) > 0 {
			item.LastChanged = now
		}
		if item.Title == "" {
			item.Title = detail.Title
		}
		item.Status = types.TrackedStatus(fresh.Fields.StatusValue())

		if err := o.store.UpsertTrackedItem(ctx, item); err != nil {
			o.logger.Error("Failed to store tracked item", zap.String("item_id", item.ID), zap.Error(err))
			persistErr = errors.Join(persistErr, err)
			continue
		}
		for _, rec := range res.Changes {
			o.metrics.Change(rec.Field)
		}
		all = append(all, res.Changes...)

		if res.IsNew {
			o.logf(fmt.Sprintf("📌 %s: first snapshot stored", item.ID), zap.String("item_id", item.ID))
		} else if len(res.Changes) > 0 {
			o.logf(fmt.Sprintf("🔔 %s: %d change(s)", item.ID, len(res.Changes)), zap.String("item_id", item.ID))
		}
	}

	if o.publisher != nil && len(all) > 0 {
		if err := o.publisher.PublishChanges(ctx, all); err != nil {
			o.logger.Warn("Failed to publish change records", zap.Error(err))
		}
	}
	if persistErr != nil {
		return all, fmt.Errorf("%w: %v", ErrPersistence, persistErr)
	}
	return all, nil
}

// CheckAllTracked loads every open tracked item and checks it
func (o *Orchestrator) CheckAllTracked(ctx context.Context) ([]types.ChangeRecord, error) {
	items, err := o.store.ListTrackedItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list tracked items: %v", ErrPersistence, err)
	}
	return o.CheckForChanges(ctx, items)
}

// TrackURL puts a page under change monitoring
func (o *Orchestrator) TrackURL(ctx context.Context, rawURL, title string) (types.TrackedItem, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return types.TrackedItem{}, errors.New("url is required")
	}
	id := deduplication.TrackedID(rawURL)
	if existing, err := o.store.GetTrackedItem(ctx, id); err == nil {
		return existing, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return types.TrackedItem{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	item := types.TrackedItem{ID: id, Title: title, URL: rawURL, Status: types.TrackedOpen}
	if err := o.store.UpsertTrackedItem(ctx, item); err != nil {
		return types.TrackedItem{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return item, nil
}

// SetCandidateStatus applies a review decision. Accepting a candidate
// ("added") starts tracking it under the candidate's own id.
func (o *Orchestrator) SetCandidateStatus(ctx context.Context, id string, status types.CandidateStatus) (types.Candidate, error) {
	if !status.Valid() {
		return types.Candidate{}, fmt.Errorf("invalid status %q", status)
	}
	if err := o.store.UpdateCandidateStatus(ctx, id, status); err != nil {
		return types.Candidate{}, err
	}
	c, err := o.store.GetCandidate(ctx, id)
	if err != nil {
		return types.Candidate{}, err
	}
	if status == types.CandidateAdded {
		item := types.TrackedItem{ID: c.ID, Title: c.Title, URL: c.URL, Status: types.TrackedOpen}
		if _, err := o.store.GetTrackedItem(ctx, c.ID); errors.Is(err, storage.ErrNotFound) {
			if err := o.store.UpsertTrackedItem(ctx, item); err != nil {
				return c, fmt.Errorf("%w: %v", ErrPersistence, err)
			}
		}
	}
	return c, nil
}

// ExpireCandidates marks new candidates whose deadline has passed as expired
func (o *Orchestrator) ExpireCandidates(ctx context.Context) (int, error) {
	list, err := o.store.ListCandidates(ctx, types.CandidateNew, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to list candidates: %v", ErrPersistence, err)
	}
	now := o.now()
	expired := 0
	for _, c := range list {
		deadline, ok := extract.ParseDeadline(c.Deadline)
		if !ok || extract.DaysUntil(deadline, now) >= 0 {
			continue
		}
		if err := o.store.UpdateCandidateStatus(ctx, c.ID, types.CandidateExpired); err != nil {
			return expired, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		expired++
	}
	if expired > 0 {
		o.logf(fmt.Sprintf("⏰ Expired %d candidate(s)", expired))
	}
	return expired, nil
}
