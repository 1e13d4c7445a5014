package deduplication

import (
	"sync"

	"grantbot/types"
)

// Result reports what Filter kept and dropped
type Result struct {
	Fresh      []types.Candidate
	Known      int
	Duplicates int
}

// Deduplicator suppresses candidates whose identifier is already known.
// The known set is loaded once per run and consulted in memory only.
type Deduplicator struct {
	mu    sync.Mutex
	known map[string]struct{}
}

// NewDeduplicator seeds the known set with stored candidate and tracked ids
func NewDeduplicator(knownIDs ...[]string) *Deduplicator {
	d := &Deduplicator{known: make(map[string]struct{})}
	for _, ids := range knownIDs {
		for _, id := range ids {
			d.known[id] = struct{}{}
		}
	}
	return d
}

// Seen reports whether id is in the known set
func (d *Deduplicator) Seen(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.known[id]
	return ok
}

// Len returns the size of the known set
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.known)
}

// Filter assigns missing ids, drops candidates that are already known and
// drops repeats within the same batch. Kept candidates join the known set.
// Order of the input is preserved.
func (d *Deduplicator) Filter(candidates []types.Candidate) Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	var res Result
	batch := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if c.ID == "" {
			c.ID = CandidateID(c.SourceID, c.Title, c.URL)
		}
		if _, ok := d.known[c.ID]; ok {
			res.Known++
			continue
		}
		if _, ok := batch[c.ID]; ok {
			res.Duplicates++
			continue
		}
		batch[c.ID] = struct{}{}
		res.Fresh = append(res.Fresh, c)
	}
	for id := range batch {
		d.known[id] = struct{}{}
	}
	return res
}
