package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"grantbot/config"
	"grantbot/orchestrator"
	"grantbot/types"
)

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("GRANTBOT_STORAGE_DRIVER", "memory")
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestBuildAppWithDefaults(t *testing.T) {
	cfg := loadTestConfig(t)

	a, err := buildApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "keyword", a.orch.Scorer().Name())
	assert.Len(t, a.orch.Sources(), len(cfg.Sources))
	assert.False(t, a.orch.State().IsRunning())
}

func TestNewStore(t *testing.T) {
	cfg := loadTestConfig(t)

	cfg.Storage.Driver = config.DriverSQLite
	cfg.Storage.Path = filepath.Join(t.TempDir(), "nested", "grantbot.db")
	store, err := newStore(cfg)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	assert.FileExists(t, cfg.Storage.Path)

	cfg.Storage.Driver = "cassandra"
	_, err = newStore(cfg)
	assert.ErrorContains(t, err, "unknown storage driver")
}

func TestOrchestratorConfigMapping(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Discovery.MaxSources = 3
	cfg.Discovery.ItemsPerSource = 12
	cfg.Discovery.MaxCandidates = 40
	cfg.Changes.Delay = 2 * time.Second

	oc := orchestratorConfig(cfg)
	assert.Equal(t, 3, oc.MaxSources)
	assert.Equal(t, 12, oc.MaxCandidatesPerSource)
	assert.Equal(t, 40, oc.MaxCandidates)
	assert.Equal(t, cfg.Discovery.MinRelevanceScore, oc.MinRelevanceScore)
	assert.Equal(t, cfg.Discovery.Concurrency, oc.Concurrency)
	assert.Equal(t, 2*time.Second, oc.ChangeDelay)
}

func TestWriteDiscoverOutput(t *testing.T) {
	var buf bytes.Buffer
	report := types.RunReport{ID: "run-1", State: types.RunCompleted}
	require.NoError(t, writeDiscoverOutput(&buf, report, nil))

	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.JSONEq(t, "[]", string(out["candidates"]))
	assert.Contains(t, string(out["report"]), `"run-1"`)
}

type fakeRunner struct {
	err  error
	opts []orchestrator.RunOptions
}

func (f *fakeRunner) Run(_ context.Context, opts orchestrator.RunOptions) (types.RunReport, []types.Candidate, error) {
	f.opts = append(f.opts, opts)
	return types.RunReport{ID: "r"}, nil, f.err
}

func TestDiscoveryRequestHandler(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		runErr   error
		wantMark bool
		wantErr  bool
		wantRuns int
	}{
		{name: "runs request", message: `{"requested_by":"ops","max_sources":2}`, wantMark: true, wantRuns: 1},
		{name: "busy is acknowledged", message: `{"requested_by":"ops"}`, runErr: orchestrator.ErrAlreadyRunning, wantMark: true, wantRuns: 1},
		{name: "failed run is acknowledged", message: `{}`, runErr: orchestrator.ErrPersistence, wantMark: true, wantRuns: 1},
		{name: "negative limit skipped", message: `{"max_sources":-1}`, wantMark: true},
		{name: "garbage skipped", message: `not json`, wantMark: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{err: tt.runErr}
			h := discoveryRequestHandler(r, zap.NewNop())

			mark, err := h.HandleMessage(context.Background(), []byte(tt.message))
			assert.Equal(t, tt.wantMark, mark)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.Len(t, r.opts, tt.wantRuns)
			if tt.wantRuns > 0 && tt.name == "runs request" {
				assert.Equal(t, orchestrator.RunOptions{MaxSources: 2, RequestedBy: "ops"}, r.opts[0])
			}
		})
	}
}

func TestRootCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "discover", "check", "expire", "track", "sources", "worker", "request", "review"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestSourcesCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	var buf bytes.Buffer
	sourcesCmd.SetOut(&buf)
	defer sourcesCmd.SetOut(nil)

	require.NoError(t, sourcesCmd.RunE(sourcesCmd, nil))
	assert.Contains(t, buf.String(), "ENABLED")
	assert.Contains(t, buf.String(), "sources enabled")
}
