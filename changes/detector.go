package changes

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"grantbot/types"
)

// Snapshot is what one scrape of a tracked page produced
type Snapshot struct {
	ContentHash string
	Fields      types.FieldSnapshot
}

// Result is the outcome of comparing a fresh snapshot with the cached one
type Result struct {
	IsNew   bool
	Changes []types.ChangeRecord
}

// HashContent fingerprints page text
func HashContent(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// Detect compares fresh against cached. Record ids depend only on the cached
// snapshot and the delta, so re-detecting the same change yields the same ids. A nil cached snapshot means the item
// was never scraped: it is reported as new with no changes.
// Field records are emitted when the fresh value is set and differs;
// a field that vanished from the page is not a change.
func Detect(itemID string, fresh Snapshot, cached *Snapshot, now time.Time) Result {
	if cached == nil || cached.ContentHash == "" {
		return Result{IsNew: true, Changes: []types.ChangeRecord{}}
	}

	changes := []types.ChangeRecord{}
	add := func(field, oldValue, newValue string) {
		changes = append(changes, types.ChangeRecord{
			ID:         types.GenerateID(itemID + "|" + cached.ContentHash + "|" + field + "|" + oldValue + "|" + newValue),
			ItemID:     itemID,
			Field:      field,
			OldValue:   oldValue,
			NewValue:   newValue,
			DetectedAt: now,
		})
	}

	if fresh.ContentHash != cached.ContentHash {
		add(types.FieldPageContent, cached.ContentHash, fresh.ContentHash)
	}

	old, cur := cached.Fields, fresh.Fields
	if cur.Deadline != "" && cur.Deadline != old.Deadline {
		add(types.FieldDeadline, old.Deadline, cur.Deadline)
	}
	if cur.Amount != "" && cur.Amount != old.Amount {
		add(types.FieldAmount, old.Amount, cur.Amount)
	}
	if cur.Closed != old.Closed {
		add(types.FieldStatus, old.StatusValue(), cur.StatusValue())
	}

	return Result{Changes: changes}
}

// FromTracked returns the cached snapshot stored on a tracked item, or nil
// when the item has never been scraped
func FromTracked(item types.TrackedItem) *Snapshot {
	if item.ContentHash == "" {
		return nil
	}
	return &Snapshot{ContentHash: item.ContentHash, Fields: item.Snapshot}
}
