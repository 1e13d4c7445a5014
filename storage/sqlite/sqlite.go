package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"grantbot/storage"
	"grantbot/types"
)

// Store implements storage.Store on a single SQLite file
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New opens (and creates) the database at path
func New(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ListKnownIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM candidates UNION SELECT id FROM tracked_items`)
	if err != nil {
		return nil, fmt.Errorf("failed to query known ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) UpsertCandidate(ctx context.Context, c types.Candidate) error {
	terms, err := json.Marshal(c.MatchedTerms)
	if err != nil {
		return fmt.Errorf("failed to encode matched terms: %w", err)
	}
	if c.Status == "" {
		c.Status = types.CandidateNew
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO candidates (id, title, url, source_id, source_name, region, score, matched_terms,
			excerpt, deadline, amount, eligibility, discovered_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			url = excluded.url,
			source_id = excluded.source_id,
			source_name = excluded.source_name,
			region = excluded.region,
			score = excluded.score,
			matched_terms = excluded.matched_terms,
			excerpt = excluded.excerpt,
			deadline = excluded.deadline,
			amount = excluded.amount,
			eligibility = excluded.eligibility
	`, c.ID, c.Title, c.URL, c.SourceID, c.SourceName, c.Region, c.Score, string(terms),
		c.Excerpt, c.Deadline, c.Amount, c.Eligibility, formatTime(c.DiscoveredAt), string(c.Status))
	if err != nil {
		return fmt.Errorf("failed to upsert candidate %s: %w", c.ID, err)
	}
	return nil
}

const candidateColumns = `id, title, url, source_id, source_name, region, score, matched_terms,
	excerpt, deadline, amount, eligibility, discovered_at, status`

func scanCandidate(row interface{ Scan(...any) error }) (types.Candidate, error) {
	var (
		c          types.Candidate
		terms      string
		discovered string
		status     string
	)
	if err := row.Scan(&c.ID, &c.Title, &c.URL, &c.SourceID, &c.SourceName, &c.Region, &c.Score, &terms,
		&c.Excerpt, &c.Deadline, &c.Amount, &c.Eligibility, &discovered, &status); err != nil {
		return types.Candidate{}, err
	}
	if terms != "" && terms != "null" {
		if err := json.Unmarshal([]byte(terms), &c.MatchedTerms); err != nil {
			return types.Candidate{}, fmt.Errorf("failed to decode matched terms: %w", err)
		}
	}
	c.DiscoveredAt = parseTime(discovered)
	c.Status = types.CandidateStatus(status)
	return c, nil
}

func (s *Store) GetCandidate(ctx context.Context, id string) (types.Candidate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = ?`, id)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Candidate{}, storage.ErrNotFound
	}
	if err != nil {
		return types.Candidate{}, fmt.Errorf("failed to get candidate %s: %w", id, err)
	}
	return c, nil
}

func (s *Store) ListCandidates(ctx context.Context, status types.CandidateStatus, limit int) ([]types.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY score DESC, discovered_at DESC, id ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	out := []types.Candidate{}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCandidateStatus(ctx context.Context, id string, status types.CandidateStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE candidates SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update candidate %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) AppendRunReport(ctx context.Context, r types.RunReport) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO run_reports (id, state, started_at, payload) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET state = excluded.state, started_at = excluded.started_at, payload = excluded.payload
	`, r.ID, string(r.State), formatTime(r.StartedAt), string(payload))
	if err != nil {
		return fmt.Errorf("failed to append run report %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) LatestRunReport(ctx context.Context) (types.RunReport, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM run_reports ORDER BY started_at DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return types.RunReport{}, storage.ErrNotFound
	}
	if err != nil {
		return types.RunReport{}, fmt.Errorf("failed to read latest run report: %w", err)
	}
	var r types.RunReport
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return types.RunReport{}, fmt.Errorf("failed to decode run report: %w", err)
	}
	return r, nil
}

func (s *Store) UpsertTrackedItem(ctx context.Context, item types.TrackedItem) error {
	if item.Status == "" {
		item.Status = types.TrackedOpen
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tracked_items (id, title, url, content_hash, deadline, amount, closed, last_checked, last_changed, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			url = excluded.url,
			content_hash = excluded.content_hash,
			deadline = excluded.deadline,
			amount = excluded.amount,
			closed = excluded.closed,
			last_checked = excluded.last_checked,
			last_changed = excluded.last_changed,
			status = excluded.status
	`, item.ID, item.Title, item.URL, item.ContentHash, item.Snapshot.Deadline, item.Snapshot.Amount,
		item.Snapshot.Closed, formatTime(item.LastChecked), formatTime(item.LastChanged), string(item.Status))
	if err != nil {
		return fmt.Errorf("failed to upsert tracked item %s: %w", item.ID, err)
	}
	return nil
}

const trackedColumns = `id, title, url, content_hash, deadline, amount, closed, last_checked, last_changed, status`

func scanTracked(row interface{ Scan(...any) error }) (types.TrackedItem, error) {
	var (
		item                 types.TrackedItem
		checked, changed, st string
	)
	if err := row.Scan(&item.ID, &item.Title, &item.URL, &item.ContentHash, &item.Snapshot.Deadline,
		&item.Snapshot.Amount, &item.Snapshot.Closed, &checked, &changed, &st); err != nil {
		return types.TrackedItem{}, err
	}
	item.LastChecked = parseTime(checked)
	item.LastChanged = parseTime(changed)
	item.Status = types.TrackedStatus(st)
	return item, nil
}

func (s *Store) GetTrackedItem(ctx context.Context, id string) (types.TrackedItem, error) {
	item, err := scanTracked(s.db.QueryRowContext(ctx, `SELECT `+trackedColumns+` FROM tracked_items WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.TrackedItem{}, storage.ErrNotFound
	}
	if err != nil {
		return types.TrackedItem{}, fmt.Errorf("failed to get tracked item %s: %w", id, err)
	}
	return item, nil
}

func (s *Store) ListTrackedItems(ctx context.Context) ([]types.TrackedItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+trackedColumns+` FROM tracked_items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked items: %w", err)
	}
	defer rows.Close()

	out := []types.TrackedItem{}
	for rows.Next() {
		item, err := scanTracked(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tracked item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Store) AppendChangeRecord(ctx context.Context, rec types.ChangeRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO change_records (id, item_id, field, old_value, new_value, detected_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.ItemID, rec.Field, rec.OldValue, rec.NewValue, formatTime(rec.DetectedAt))
	if err != nil {
		return fmt.Errorf("failed to append change record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) ListChangeRecords(ctx context.Context, itemID string, limit int) ([]types.ChangeRecord, error) {
	query := `SELECT id, item_id, field, old_value, new_value, detected_at FROM change_records`
	var args []any
	if itemID != "" {
		query += ` WHERE item_id = ?`
		args = append(args, itemID)
	}
	query += ` ORDER BY detected_at DESC, id ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list change records: %w", err)
	}
	defer rows.Close()

	out := []types.ChangeRecord{}
	for rows.Next() {
		var rec types.ChangeRecord
		var detected string
		if err := rows.Scan(&rec.ID, &rec.ItemID, &rec.Field, &rec.OldValue, &rec.NewValue, &detected); err != nil {
			return nil, fmt.Errorf("failed to scan change record: %w", err)
		}
		rec.DetectedAt = parseTime(detected)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// times are stored as fixed-width UTC text so lexical order matches time order
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
