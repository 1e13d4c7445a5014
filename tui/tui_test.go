package tui

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantbot/types"
)

func newTestAPI(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var calls []string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/discovery/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.StatusResponse{State: types.RunRunning, Running: true, RunID: "r1"})
	})
	mux.HandleFunc("GET /api/candidates", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "list "+r.URL.RawQuery)
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []types.Candidate{{ID: "c1", Title: "Seed", Score: 9}}})
	})
	mux.HandleFunc("POST /api/discovery/run", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"discovery run already in progress"}`))
	})
	mux.HandleFunc("PATCH /api/candidates/{id}", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		calls = append(calls, "patch "+r.PathValue("id")+" "+body["status"])
		_ = json.NewEncoder(w).Encode(types.Candidate{ID: r.PathValue("id")})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestClient(t *testing.T) {
	srv, calls := newTestAPI(t)
	c := NewClient(srv.URL)

	status, err := c.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Running)

	list, err := c.ListCandidates(types.CandidateNew, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, c.SetStatus("c1", types.CandidateRejected))

	err = c.StartRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")

	assert.Equal(t, []string{"list limit=10&status=new", "patch c1 rejected"}, *calls)
}

func TestClientUnreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	_, err := c.GetStatus()
	assert.Error(t, err)
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelQueueNavigationAndReview(t *testing.T) {
	m := NewModel("http://unused")
	next, _ := m.Update(StatusUpdateMsg{Status: &types.StatusResponse{State: types.RunCompleted}})
	m = next.(Model)
	assert.True(t, m.Connected)

	next, _ = m.Update(CandidatesMsg{Candidates: []types.Candidate{{ID: "a", Title: "A"}, {ID: "b", Title: "B"}, {ID: "c", Title: "C"}}})
	m = next.(Model)

	next, _ = m.Update(key("j"))
	m = next.(Model)
	next, _ = m.Update(key("j"))
	m = next.(Model)
	next, _ = m.Update(key("j"))
	m = next.(Model)
	assert.Equal(t, 2, m.Cursor)

	next, cmd := m.Update(key("x"))
	m = next.(Model)
	require.NotNil(t, cmd)

	next, _ = m.Update(ReviewedMsg{ID: "c", Status: types.CandidateRejected})
	m = next.(Model)
	assert.Len(t, m.Candidates, 2)
	assert.Equal(t, 1, m.Cursor)
	assert.Contains(t, m.Flash, "rejected")

	next, _ = m.Update(ReviewedMsg{ID: "a", Err: errors.New("server returned 500")})
	m = next.(Model)
	assert.Len(t, m.Candidates, 2)
	assert.Contains(t, m.Flash, "500")

	assert.Contains(t, m.View(), "awaiting review")
}

func TestModelDoesNotStartWhileRunning(t *testing.T) {
	m := NewModel("http://unused")
	next, _ := m.Update(StatusUpdateMsg{Status: &types.StatusResponse{State: types.RunRunning, Running: true, RunID: "r1"}})
	m = next.(Model)

	next, cmd := m.Update(key("d"))
	m = next.(Model)
	assert.Nil(t, cmd)
	assert.Contains(t, m.Flash, "already in progress")
	assert.Contains(t, m.View(), "r1")
}

func TestModelDisconnected(t *testing.T) {
	m := NewModel("http://unused")
	next, _ := m.Update(StatusUpdateMsg{Err: errors.New("connection refused")})
	m = next.(Model)
	assert.False(t, m.Connected)
	assert.Contains(t, m.View(), "Not connected")

	_, cmd := m.Update(key("a"))
	assert.Nil(t, cmd)
}
