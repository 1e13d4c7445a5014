package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"grantbot/types"
)

// ErrNotArchived is returned when no archive object exists for a run
var ErrNotArchived = errors.New("run not archived")

// ObjectStore is the slice of the bucket API the run archive needs
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// Run is the archived form of one discovery run
type Run struct {
	Report     types.RunReport   `json:"report"`
	Candidates []types.Candidate `json:"candidates"`
}

// RunArchive writes run reports as JSON objects keyed
// <prefix>/runs/<yyyy>/<mm>/<run-id>.json
type RunArchive struct {
	store  ObjectStore
	prefix string
}

// NewRunArchive builds a run archive over store
func NewRunArchive(store ObjectStore, prefix string) *RunArchive {
	return &RunArchive{store: store, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key of a report
func (a *RunArchive) Key(report types.RunReport) string {
	started := report.StartedAt.UTC()
	return path.Join(a.prefix, "runs", started.Format("2006"), started.Format("01"), report.ID+".json")
}

// ArchiveRun stores the report and its candidates
func (a *RunArchive) ArchiveRun(ctx context.Context, report types.RunReport, candidates []types.Candidate) error {
	if report.ID == "" {
		return errors.New("run report without id")
	}
	if candidates == nil {
		candidates = []types.Candidate{}
	}
	body, err := json.Marshal(Run{Report: report, Candidates: candidates})
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", report.ID, err)
	}
	key := a.Key(report)
	if err := a.store.Put(ctx, key, bytes.NewReader(body), "application/json"); err != nil {
		return fmt.Errorf("failed to archive run %s: %w", report.ID, err)
	}
	return nil
}

// Load reads back an archived run by its key
func (a *RunArchive) Load(ctx context.Context, key string) (Run, error) {
	ok, err := a.store.Exists(ctx, key)
	if err != nil {
		return Run{}, fmt.Errorf("failed to check %s: %w", key, err)
	}
	if !ok {
		return Run{}, ErrNotArchived
	}
	rc, err := a.store.Get(ctx, key)
	if err != nil {
		return Run{}, fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer rc.Close()

	var run Run
	if err := json.NewDecoder(rc).Decode(&run); err != nil {
		return Run{}, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return run, nil
}

// Keys lists archived run keys, oldest month first
func (a *RunArchive) Keys(ctx context.Context) ([]string, error) {
	keys, err := a.store.List(ctx, path.Join(a.prefix, "runs")+"/")
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}
