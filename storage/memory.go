package storage

import (
	"context"
	"sort"
	"sync"

	"grantbot/types"
)

// MemoryStore keeps everything in process memory
type MemoryStore struct {
	mu         sync.RWMutex
	candidates map[string]types.Candidate
	tracked    map[string]types.TrackedItem
	runs       map[string]types.RunReport
	changes    map[string]types.ChangeRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		candidates: make(map[string]types.Candidate),
		tracked:    make(map[string]types.TrackedItem),
		runs:       make(map[string]types.RunReport),
		changes:    make(map[string]types.ChangeRecord),
	}
}

func (m *MemoryStore) ListKnownIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.candidates)+len(m.tracked))
	for id := range m.candidates {
		ids = append(ids, id)
	}
	for id := range m.tracked {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryStore) UpsertCandidate(_ context.Context, c types.Candidate) error {
	if c.Status == "" {
		c.Status = types.CandidateNew
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.candidates[c.ID]; ok {
		c = MergeCandidate(existing, c)
	}
	m.candidates[c.ID] = c
	return nil
}

func (m *MemoryStore) GetCandidate(_ context.Context, id string) (types.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.candidates[id]
	if !ok {
		return types.Candidate{}, ErrNotFound
	}
	return c, nil
}

func (m *MemoryStore) ListCandidates(_ context.Context, status types.CandidateStatus, limit int) ([]types.Candidate, error) {
	m.mu.RLock()
	out := make([]types.Candidate, 0, len(m.candidates))
	for _, c := range m.candidates {
		if status == "" || c.Status == status {
			out = append(out, c)
		}
	}
	m.mu.RUnlock()
	SortCandidates(out)
	return Truncate(out, limit), nil
}

func (m *MemoryStore) UpdateCandidateStatus(_ context.Context, id string, status types.CandidateStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.candidates[id]
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	m.candidates[id] = c
	return nil
}

func (m *MemoryStore) AppendRunReport(_ context.Context, r types.RunReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[r.ID] = r
	return nil
}

func (m *MemoryStore) LatestRunReport(_ context.Context) (types.RunReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest types.RunReport
	found := false
	for _, r := range m.runs {
		if !found || r.StartedAt.After(latest.StartedAt) {
			latest, found = r, true
		}
	}
	if !found {
		return types.RunReport{}, ErrNotFound
	}
	return latest, nil
}

func (m *MemoryStore) UpsertTrackedItem(_ context.Context, item types.TrackedItem) error {
	if item.Status == "" {
		item.Status = types.TrackedOpen
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracked[item.ID] = item
	return nil
}

func (m *MemoryStore) GetTrackedItem(_ context.Context, id string) (types.TrackedItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.tracked[id]
	if !ok {
		return types.TrackedItem{}, ErrNotFound
	}
	return item, nil
}

func (m *MemoryStore) ListTrackedItems(_ context.Context) ([]types.TrackedItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.TrackedItem, 0, len(m.tracked))
	for _, item := range m.tracked {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) AppendChangeRecord(_ context.Context, rec types.ChangeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.changes[rec.ID]; !ok {
		m.changes[rec.ID] = rec
	}
	return nil
}

func (m *MemoryStore) ListChangeRecords(_ context.Context, itemID string, limit int) ([]types.ChangeRecord, error) {
	m.mu.RLock()
	out := make([]types.ChangeRecord, 0)
	for _, rec := range m.changes {
		if itemID == "" || rec.ItemID == itemID {
			out = append(out, rec)
		}
	}
	m.mu.RUnlock()
	SortChanges(out)
	return Truncate(out, limit), nil
}

func (m *MemoryStore) Close() error { return nil }
