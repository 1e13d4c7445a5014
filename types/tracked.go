package types

import "time"

// TrackedStatus is the monitoring state of an accepted grant
type TrackedStatus string

const (
	TrackedOpen   TrackedStatus = "open"
	TrackedClosed TrackedStatus = "closed"
)

// FieldSnapshot holds the extracted fields compared between crawl cycles
type FieldSnapshot struct {
	Deadline string `json:"deadline,omitempty"`
	Amount   string `json:"amount,omitempty"`
	Closed   bool   `json:"closed"`
}

// StatusValue renders the closed flag the way change records report it
func (s FieldSnapshot) StatusValue() string {
	if s.Closed {
		return string(TrackedClosed)
	}
	return string(TrackedOpen)
}

// TrackedItem is an accepted grant under change monitoring.
// An empty ContentHash means the item has never been scraped.
type TrackedItem struct {
	ID          string        `json:"id"`
	Title       string        `json:"title,omitempty"`
	URL         string        `json:"url"`
	ContentHash string        `json:"content_hash,omitempty"`
	Snapshot    FieldSnapshot `json:"snapshot"`
	LastChecked time.Time     `json:"last_checked,omitempty"`
	LastChanged time.Time     `json:"last_changed,omitempty"`
	Status      TrackedStatus `json:"status"`
}

// Change record field names
const (
	FieldPageContent = "page_content"
	FieldDeadline    = "deadline"
	FieldAmount      = "amount"
	FieldStatus      = "status"
)

// ChangeRecord is one field-level delta detected for a tracked item
type ChangeRecord struct {
	ID         string    `json:"id"`
	ItemID     string    `json:"item_id"`
	Field      string    `json:"field"`
	OldValue   string    `json:"old_value"`
	NewValue   string    `json:"new_value"`
	DetectedAt time.Time `json:"detected_at"`
}
