package conflict

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/rentsync/internal/models"
)

func TestParseStrategy(t *testing.T) {
	for _, s := range []string{"manual", "keep_local", "keep_remote", "last_write_wins", "merge"} {
		st, err := ParseStrategy(s)
		require.NoError(t, err)
		assert.Equal(t, Strategy(s), st)
	}

	st, err := ParseStrategy("keep-local")
	require.NoError(t, err)
	assert.Equal(t, KeepLocal, st)

	_, err = ParseStrategy("")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
	_, err = ParseStrategy("first_write_wins")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestStrategy_Automatic(t *testing.T) {
	assert.True(t, KeepLocal.Automatic())
	assert.True(t, KeepRemote.Automatic())
	assert.True(t, LastWriteWins.Automatic())
	assert.False(t, Manual.Automatic())
	assert.False(t, Merge.Automatic())
}

func TestDecide(t *testing.T) {
	local := json.RawMessage(`{"start_date":"2025-04-01"}`)
	merged := json.RawMessage(`{"start_date":"2025-04-02"}`)

	live := &models.ConflictRecord{RemoteVersion: 3, RemotePayload: json.RawMessage(`{}`)}
	gone := &models.ConflictRecord{RemoteVersion: 4, RemoteDeleted: true}

	tests := []struct {
		name     string
		rec      *models.ConflictRecord
		intent   Intent
		strategy Strategy
		merge    json.RawMessage
		want     *Replacement
		label    string
	}{
		{"keep remote", live, Intent{models.OpUpdate, local}, KeepRemote, nil, nil, "keep_remote"},
		{"keep local over live row", live, Intent{models.OpUpdate, local}, KeepLocal, nil, &Replacement{models.OpUpdate, local}, "keep_local"},
		{"keep local recreates deleted row", gone, Intent{models.OpUpdate, local}, KeepLocal, nil, &Replacement{models.OpCreate, local}, "keep_local"},
		{"keep local delete over live row", live, Intent{models.OpDelete, nil}, KeepLocal, nil, &Replacement{Operation: models.OpDelete}, "keep_local"},
		{"keep local delete already gone", gone, Intent{models.OpDelete, nil}, KeepLocal, nil, nil, "keep_local"},
		{"merge over live row", live, Intent{models.OpUpdate, local}, Merge, merged, &Replacement{models.OpUpdate, merged}, "merge"},
		{"merge over deleted row", gone, Intent{models.OpUpdate, local}, Merge, merged, &Replacement{models.OpCreate, merged}, "merge"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Decide(tt.rec, tt.intent, tt.strategy, tt.merge)
			require.NoError(t, err)
			assert.Equal(t, tt.label, d.Resolution)
			assert.Equal(t, tt.want, d.Replacement)
		})
	}
}

func TestDecide_Errors(t *testing.T) {
	rec := &models.ConflictRecord{}

	_, err := Decide(rec, Intent{}, Merge, nil)
	assert.ErrorIs(t, err, ErrMergePayloadRequired)

	_, err = Decide(rec, Intent{}, Manual, nil)
	assert.ErrorIs(t, err, ErrManualDecision)

	_, err = Decide(rec, Intent{}, "coin_flip", nil)
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestDecide_LastWriteWins(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := json.RawMessage(`{"quantity":2}`)

	tests := []struct {
		remote      *time.Time
		local       time.Time
		name        string
		resolution  string
		replacement models.Operation
		deleted     bool
	}{
		{name: "local newer", local: t0.Add(time.Minute), remote: &t0, resolution: "keep_local", replacement: models.OpUpdate},
		{name: "remote newer", local: t0, remote: ptr(t0.Add(time.Minute)), resolution: "keep_remote"},
		{name: "tie goes to server", local: t0, remote: &t0, resolution: "keep_remote"},
		{name: "delete after local edit wins", local: t0, remote: ptr(t0.Add(time.Hour)), deleted: true, resolution: "keep_remote"},
		{name: "local edit after delete recreates", local: t0.Add(time.Hour), remote: &t0, deleted: true, resolution: "keep_local", replacement: models.OpCreate},
		{name: "row never existed", local: t0, deleted: true, resolution: "keep_local", replacement: models.OpCreate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &models.ConflictRecord{LocalCreatedAt: tt.local, RemoteUpdatedAt: tt.remote, RemoteDeleted: tt.deleted}
			d, err := Decide(rec, Intent{models.OpUpdate, payload}, LastWriteWins, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.resolution, d.Resolution)
			if tt.replacement == "" {
				assert.Nil(t, d.Replacement)
				return
			}
			require.NotNil(t, d.Replacement)
			assert.Equal(t, tt.replacement, d.Replacement.Operation)
		})
	}
}

func TestIntentOf(t *testing.T) {
	rec := &models.ConflictRecord{Operation: models.OpUpdate, LocalPayload: json.RawMessage(`{"a":1}`)}

	assert.Equal(t, Intent{models.OpUpdate, json.RawMessage(`{"a":1}`)}, IntentOf(rec, nil))

	latest := &models.QueueItem{Operation: models.OpDelete}
	assert.Equal(t, Intent{Operation: models.OpDelete}, IntentOf(rec, latest))
}

func ptr[T any](v T) *T {
	return &v
}
