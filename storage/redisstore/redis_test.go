package redisstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantbot/storage"
	"grantbot/storage/storetest"
	"grantbot/types"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := New(Config{Addr: mr.Addr(), KeyPrefix: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.Store {
		s, _ := newTestStore(t)
		return s
	})
}

func TestKeysAreNamespaced(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertCandidate(ctx, types.Candidate{ID: "a", Title: "A", URL: "https://a.org"}))
	require.NoError(t, s.UpsertTrackedItem(ctx, types.TrackedItem{ID: "t", URL: "https://t.org"}))

	assert.True(t, mr.Exists("test:candidates"))
	assert.True(t, mr.Exists("test:tracked"))
	members, err := mr.SMembers("test:known")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "t"}, members)
}

func TestNewFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(Config{Addr: addr})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}
