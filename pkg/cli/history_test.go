package cli

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jguan/hostmon/pkg/delivery"
	"github.com/jguan/hostmon/pkg/infra/eventbus"
	"github.com/jguan/hostmon/pkg/monitor"
)

func seedJournal(t *testing.T, path string) {
	t.Helper()
	store, err := eventbus.OpenSQLiteEventStore(path)
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []eventbus.Event{
		eventbus.NewRecord(delivery.EventTypeSucceeded, delivery.EventDomain, "cycle-1", map[string]any{"attempts": 1}, base),
		eventbus.NewRecord(delivery.EventTypeAttemptFailed, delivery.EventDomain, "cycle-2", map[string]any{"attempt": 1}, base.Add(5*time.Second)),
		eventbus.NewRecord(delivery.EventTypeExhausted, delivery.EventDomain, "cycle-2", map[string]any{"attempts": 5}, base.Add(25*time.Second)),
		eventbus.NewRecord(monitor.EventTypeCycleFailed, monitor.EventDomain, "cycle-3", map[string]any{"error": "sample cpu: boom"}, base.Add(30*time.Second)),
	}
	require.NoError(t, store.SaveBatch(context.Background(), events))
}

func decodeHistory(t *testing.T, out string) []map[string]any {
	t.Helper()
	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	return entries
}

func TestHistoryCommand_NoJournal(t *testing.T) {
	isolateEnv(t)
	out, err := execute(t, NewRootCommand(), "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No items")
}

func TestHistoryCommand_NewestFirst(t *testing.T) {
	seedJournal(t, isolateEnv(t))

	out, err := execute(t, NewRootCommand(), "history", "-o", "json")
	require.NoError(t, err)

	entries := decodeHistory(t, out)
	require.Len(t, entries, 4)
	assert.Equal(t, monitor.EventTypeCycleFailed, entries[0]["type"])
	assert.Equal(t, delivery.EventTypeSucceeded, entries[3]["type"])
	details, ok := entries[1]["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(5), details["attempts"])
}

func TestHistoryCommand_Filters(t *testing.T) {
	seedJournal(t, isolateEnv(t))

	out, err := execute(t, NewRootCommand(), "history", "--cycle", "cycle-2", "-o", "json")
	require.NoError(t, err)
	entries := decodeHistory(t, out)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "cycle-2", e["cycle_id"])
	}

	out, err = execute(t, NewRootCommand(), "history", "--type", delivery.EventTypeExhausted, "-o", "json")
	require.NoError(t, err)
	require.Len(t, decodeHistory(t, out), 1)

	out, err = execute(t, NewRootCommand(), "history", "-n", "2", "-o", "json")
	require.NoError(t, err)
	require.Len(t, decodeHistory(t, out), 2)
}

func TestHistoryCommand_Table(t *testing.T) {
	seedJournal(t, isolateEnv(t))

	out, err := execute(t, NewRootCommand(), "history")
	require.NoError(t, err)
	assert.Contains(t, out, "cycle_id")
	assert.Contains(t, out, delivery.EventTypeExhausted)
	assert.Contains(t, out, `"attempts":5`)
}
