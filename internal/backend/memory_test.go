package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvSnapshot(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "snapshot channel closed unexpectedly")
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestMemoryStoreCreateAndList(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id1, err := store.Create(ctx, "alice", "todos", map[string]any{
		"text":      "first",
		"createdAt": ServerTimestamp,
	})
	require.NoError(t, err)
	id2, err := store.Create(ctx, "alice", "todos", map[string]any{
		"text":      "second",
		"createdAt": ServerTimestamp,
	})
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	asc, err := store.List(ctx, "alice", "todos", SortSpec{Field: "createdAt", Dir: Asc})
	require.NoError(t, err)
	require.Len(t, asc, 2)
	assert.Equal(t, id1, asc[0].ID)
	assert.Equal(t, "first", asc[0].Fields["text"])
	assert.False(t, asc[0].CreatedAt.IsZero())

	desc, err := store.List(ctx, "alice", "todos", SortSpec{Field: "createdAt", Dir: Desc})
	require.NoError(t, err)
	assert.Equal(t, id2, desc[0].ID)
	assert.Equal(t, id1, desc[1].ID)
}

func TestMemoryStoreOwnersAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Create(ctx, "alice", "todos", map[string]any{"text": "mine", "createdAt": ServerTimestamp})
	require.NoError(t, err)

	snap, err := store.List(ctx, "bob", "todos", SortSpec{Field: "createdAt", Dir: Asc})
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestMemoryStoreUpdateMissing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.Update(ctx, "alice", "todos", "nope", map[string]any{"completed": true})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDeleteMissing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id, err := store.Create(ctx, "alice", "todos", map[string]any{"text": "x", "createdAt": ServerTimestamp})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "alice", "todos", id))
	assert.ErrorIs(t, store.Delete(ctx, "alice", "todos", id), ErrNotFound)
}

func TestMemoryStoreUpdatedAtSort(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first, err := store.Create(ctx, "alice", "notes", map[string]any{
		"title": "a", "createdAt": ServerTimestamp, "updatedAt": ServerTimestamp,
	})
	require.NoError(t, err)
	second, err := store.Create(ctx, "alice", "notes", map[string]any{
		"title": "b", "createdAt": ServerTimestamp, "updatedAt": ServerTimestamp,
	})
	require.NoError(t, err)

	// Touching the first note moves it to the top of the recency order.
	require.NoError(t, store.Update(ctx, "alice", "notes", first, map[string]any{"updatedAt": ServerTimestamp}))

	snap, err := store.List(ctx, "alice", "notes", SortSpec{Field: "updatedAt", Dir: Desc})
	require.NoError(t, err)
	require.Len(t, snap, 2)
	assert.Equal(t, first, snap[0].ID)
	assert.Equal(t, second, snap[1].ID)
}

func TestMemoryStoreListenPushesOnEveryChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := NewMemoryStore()

	ch, err := store.Listen(ctx, "alice", "todos", SortSpec{Field: "createdAt", Dir: Desc})
	require.NoError(t, err)

	assert.Empty(t, recvSnapshot(t, ch), "initial snapshot of an empty collection")

	id, err := store.Create(ctx, "alice", "todos", map[string]any{"text": "hello", "createdAt": ServerTimestamp})
	require.NoError(t, err)

	snap := recvSnapshot(t, ch)
	require.Len(t, snap, 1)
	assert.Equal(t, id, snap[0].ID)

	require.NoError(t, store.Delete(ctx, "alice", "todos", id))
	assert.Empty(t, recvSnapshot(t, ch))
}

func TestMemoryStoreSlowListenerEndsOnLatestState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := NewMemoryStore()

	ch, err := store.Listen(ctx, "alice", "todos", SortSpec{Field: "createdAt", Dir: Asc})
	require.NoError(t, err)

	// Flood the listener without reading so its buffer overflows many
	// times over.
	const total = 100
	for i := 0; i < total; i++ {
		_, err := store.Create(ctx, "alice", "todos", map[string]any{"text": "x", "createdAt": ServerTimestamp})
		require.NoError(t, err)
	}

	var last Snapshot
drain:
	for {
		select {
		case snap := <-ch:
			last = snap
		default:
			break drain
		}
	}

	// Intermediate snapshots may be dropped, but the final one must
	// reflect everything written.
	require.Len(t, last, total)
}

func TestMemoryStoreListenStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := NewMemoryStore()

	ch, err := store.Listen(ctx, "alice", "todos", SortSpec{Field: "createdAt", Dir: Asc})
	require.NoError(t, err)
	recvSnapshot(t, ch)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should close after cancel")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestMemoryStoreForcedError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SetError(ErrUnavailable)

	_, err := store.Create(ctx, "alice", "todos", map[string]any{"text": "x"})
	assert.ErrorIs(t, err, ErrUnavailable)

	store.SetError(nil)
	_, err = store.Create(ctx, "alice", "todos", map[string]any{"text": "x", "createdAt": ServerTimestamp})
	assert.NoError(t, err)
}

func TestMemoryStoreSnapshotsDoNotAlias(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Create(ctx, "alice", "habits", map[string]any{
		"completedDates": []string{"2025-03-10"},
		"createdAt":      ServerTimestamp,
	})
	require.NoError(t, err)

	snap, err := store.List(ctx, "alice", "habits", SortSpec{Field: "createdAt", Dir: Asc})
	require.NoError(t, err)
	snap[0].Fields["completedDates"].([]string)[0] = "mutated"

	again, err := store.List(ctx, "alice", "habits", SortSpec{Field: "createdAt", Dir: Asc})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-10"}, again[0].Fields["completedDates"])
}

func TestMemoryStoreErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.Update(ctx, "alice", "todos", "gone", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "failed to update document")
}
