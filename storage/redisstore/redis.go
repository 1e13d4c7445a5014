package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"grantbot/storage"
	"grantbot/types"
)

// Config configures the Redis connection and key namespace
type Config struct {
	Addr      string // e.g. localhost:6379
	Password  string
	DB        int
	KeyPrefix string
}

// Store implements storage.Store on Redis hashes and sorted sets.
//
//	<prefix>:candidates        hash id -> candidate json
//	<prefix>:tracked           hash id -> tracked item json
//	<prefix>:known             set of candidate and tracked ids
//	<prefix>:runs              hash id -> run report json
//	<prefix>:runs:by_start     zset id scored by start time
//	<prefix>:changes           hash id -> change record json
//	<prefix>:changes:by_time   zset id scored by detection time
type Store struct {
	client *redis.Client
	prefix string
}

var _ storage.Store = (*Store)(nil)

// New connects to Redis and verifies connectivity
func New(cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return NewWithClient(client, cfg.KeyPrefix), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "grantbot"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(parts ...string) string {
	k := s.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) ListKnownIDs(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.key("known")).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read known ids: %w", err)
	}
	return ids, nil
}

func (s *Store) UpsertCandidate(ctx context.Context, c types.Candidate) error {
	if c.Status == "" {
		c.Status = types.CandidateNew
	}
	existing, err := s.GetCandidate(ctx, c.ID)
	switch {
	case err == nil:
		c = storage.MergeCandidate(existing, c)
	case !errors.Is(err, storage.ErrNotFound):
		return err
	}

	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode candidate: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key("candidates"), c.ID, payload)
	pipe.SAdd(ctx, s.key("known"), c.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to upsert candidate %s: %w", c.ID, err)
	}
	return nil
}

func (s *Store) GetCandidate(ctx context.Context, id string) (types.Candidate, error) {
	var c types.Candidate
	if err := s.hget(ctx, s.key("candidates"), id, &c); err != nil {
		return types.Candidate{}, err
	}
	return c, nil
}

func (s *Store) ListCandidates(ctx context.Context, status types.CandidateStatus, limit int) ([]types.Candidate, error) {
	all, err := s.client.HGetAll(ctx, s.key("candidates")).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	out := make([]types.Candidate, 0, len(all))
	for id, raw := range all {
		var c types.Candidate
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, fmt.Errorf("failed to decode candidate %s: %w", id, err)
		}
		if status == "" || c.Status == status {
			out = append(out, c)
		}
	}
	storage.SortCandidates(out)
	return storage.Truncate(out, limit), nil
}

func (s *Store) UpdateCandidateStatus(ctx context.Context, id string, status types.CandidateStatus) error {
	c, err := s.GetCandidate(ctx, id)
	if err != nil {
		return err
	}
	c.Status = status
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode candidate: %w", err)
	}
	if err := s.client.HSet(ctx, s.key("candidates"), id, payload).Err(); err != nil {
		return fmt.Errorf("failed to update candidate %s: %w", id, err)
	}
	return nil
}

func (s *Store) AppendRunReport(ctx context.Context, r types.RunReport) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key("runs"), r.ID, payload)
	pipe.ZAdd(ctx, s.key("runs", "by_start"), redis.Z{Score: float64(r.StartedAt.UnixMilli()), Member: r.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append run report %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) LatestRunReport(ctx context.Context) (types.RunReport, error) {
	ids, err := s.client.ZRevRange(ctx, s.key("runs", "by_start"), 0, 0).Result()
	if err != nil {
		return types.RunReport{}, fmt.Errorf("failed to read run index: %w", err)
	}
	if len(ids) == 0 {
		return types.RunReport{}, storage.ErrNotFound
	}
	var r types.RunReport
	if err := s.hget(ctx, s.key("runs"), ids[0], &r); err != nil {
		return types.RunReport{}, err
	}
	return r, nil
}

func (s *Store) UpsertTrackedItem(ctx context.Context, item types.TrackedItem) error {
	if item.Status == "" {
		item.Status = types.TrackedOpen
	}
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode tracked item: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key("tracked"), item.ID, payload)
	pipe.SAdd(ctx, s.key("known"), item.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to upsert tracked item %s: %w", item.ID, err)
	}
	return nil
}

func (s *Store) GetTrackedItem(ctx context.Context, id string) (types.TrackedItem, error) {
	var item types.TrackedItem
	if err := s.hget(ctx, s.key("tracked"), id, &item); err != nil {
		return types.TrackedItem{}, err
	}
	return item, nil
}

func (s *Store) ListTrackedItems(ctx context.Context) ([]types.TrackedItem, error) {
	all, err := s.client.HGetAll(ctx, s.key("tracked")).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked items: %w", err)
	}
	out := make([]types.TrackedItem, 0, len(all))
	for id, raw := range all {
		var item types.TrackedItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("failed to decode tracked item %s: %w", id, err)
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) AppendChangeRecord(ctx context.Context, rec types.ChangeRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode change record: %w", err)
	}
	added, err := s.client.HSetNX(ctx, s.key("changes"), rec.ID, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to append change record %s: %w", rec.ID, err)
	}
	if !added {
		return nil
	}
	if err := s.client.ZAdd(ctx, s.key("changes", "by_time"), redis.Z{Score: float64(rec.DetectedAt.UnixMilli()), Member: rec.ID}).Err(); err != nil {
		return fmt.Errorf("failed to index change record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) ListChangeRecords(ctx context.Context, itemID string, limit int) ([]types.ChangeRecord, error) {
	ids, err := s.client.ZRevRange(ctx, s.key("changes", "by_time"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read change index: %w", err)
	}
	if len(ids) == 0 {
		return []types.ChangeRecord{}, nil
	}
	raws, err := s.client.HMGet(ctx, s.key("changes"), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read change records: %w", err)
	}

	out := make([]types.ChangeRecord, 0, len(raws))
	for i, raw := range raws {
		str, ok := raw.(string)
		if !ok {
			continue
		}
		var rec types.ChangeRecord
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode change record %s: %w", ids[i], err)
		}
		if itemID == "" || rec.ItemID == itemID {
			out = append(out, rec)
		}
	}
	storage.SortChanges(out)
	return storage.Truncate(out, limit), nil
}

func (s *Store) hget(ctx context.Context, key, field string, v any) error {
	raw, err := s.client.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read %s %s: %w", key, field, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", key, field, err)
	}
	return nil
}
