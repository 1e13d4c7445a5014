package changes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantbot/types"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestDetectFirstSight(t *testing.T) {
	fresh := Snapshot{ContentHash: HashContent("page"), Fields: types.FieldSnapshot{Deadline: "1 May 2026"}}

	res := Detect("item", fresh, nil, now)
	assert.True(t, res.IsNew)
	assert.NotNil(t, res.Changes)
	assert.Empty(t, res.Changes)

	res = Detect("item", fresh, &Snapshot{}, now)
	assert.True(t, res.IsNew)
}

func TestDetectIdenticalSnapshot(t *testing.T) {
	snap := Snapshot{ContentHash: HashContent("page"), Fields: types.FieldSnapshot{Deadline: "1 May 2026", Amount: "€5,000"}}
	res := Detect("item", snap, &snap, now)
	assert.False(t, res.IsNew)
	assert.Empty(t, res.Changes)
}

func TestDetectFieldChanges(t *testing.T) {
	cached := Snapshot{ContentHash: HashContent("old"), Fields: types.FieldSnapshot{Deadline: "1 May 2026", Amount: "€5,000"}}
	fresh := Snapshot{ContentHash: HashContent("new"), Fields: types.FieldSnapshot{Deadline: "15 May 2026", Amount: "€7,500", Closed: true}}

	res := Detect("item", fresh, &cached, now)
	require.Len(t, res.Changes, 4)

	byField := map[string]types.ChangeRecord{}
	for _, c := range res.Changes {
		byField[c.Field] = c
		assert.Equal(t, "item", c.ItemID)
		assert.Equal(t, now, c.DetectedAt)
		assert.Len(t, c.ID, 16)
	}
	assert.Equal(t, cached.ContentHash, byField[types.FieldPageContent].OldValue)
	assert.Equal(t, "15 May 2026", byField[types.FieldDeadline].NewValue)
	assert.Equal(t, "€5,000", byField[types.FieldAmount].OldValue)
	assert.Equal(t, "open", byField[types.FieldStatus].OldValue)
	assert.Equal(t, "closed", byField[types.FieldStatus].NewValue)
}

func TestDetectIgnoresVanishedFields(t *testing.T) {
	cached := Snapshot{ContentHash: HashContent("same"), Fields: types.FieldSnapshot{Deadline: "1 May 2026", Amount: "€1,000"}}
	fresh := Snapshot{ContentHash: HashContent("same")}

	res := Detect("item", fresh, &cached, now)
	assert.Empty(t, res.Changes)
}

func TestDetectFieldAppears(t *testing.T) {
	cached := Snapshot{ContentHash: "h"}
	fresh := Snapshot{ContentHash: "h", Fields: types.FieldSnapshot{Deadline: "15 March 2026", Amount: "€2,000"}}

	res := Detect("item", fresh, &cached, now)
	require.Len(t, res.Changes, 2)
	assert.Equal(t, types.FieldDeadline, res.Changes[0].Field)
	assert.Equal(t, "", res.Changes[0].OldValue)
	assert.Equal(t, "15 March 2026", res.Changes[0].NewValue)
	assert.Equal(t, types.FieldAmount, res.Changes[1].Field)
	assert.Equal(t, "€2,000", res.Changes[1].NewValue)
}

func TestDetectReopened(t *testing.T) {
	cached := Snapshot{ContentHash: "h", Fields: types.FieldSnapshot{Closed: true}}
	fresh := Snapshot{ContentHash: "h"}
	res := Detect("item", fresh, &cached, now)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, types.FieldStatus, res.Changes[0].Field)
	assert.Equal(t, "open", res.Changes[0].NewValue)
}

func TestFromTracked(t *testing.T) {
	assert.Nil(t, FromTracked(types.TrackedItem{ID: "x"}))
	s := FromTracked(types.TrackedItem{ContentHash: "h", Snapshot: types.FieldSnapshot{Amount: "€1"}})
	require.NotNil(t, s)
	assert.Equal(t, "€1", s.Fields.Amount)
}

func TestHashContentStable(t *testing.T) {
	assert.Equal(t, HashContent("a"), HashContent("a"))
	assert.NotEqual(t, HashContent("a"), HashContent("b"))
	assert.Len(t, HashContent(""), 64)
}
