package live

import (
	"context"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifehubapp/lifehub/internal/backend"
)

func testDay(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestTodoStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	todos := NewTodoStore(NewEngine(backend.NewMemoryStore()))

	id, err := todos.Add(ctx, "alice", "  write tests ")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	list, err := todos.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "write tests", list[0].Text)
	assert.False(t, list[0].Completed)
	assert.False(t, list[0].CreatedAt.IsZero())

	require.NoError(t, todos.SetCompleted(ctx, "alice", id, true))
	list, err = todos.List(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, list[0].Completed)

	require.NoError(t, todos.Delete(ctx, "alice", id))
	list, err = todos.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTodoStoreBlankAdd(t *testing.T) {
	ctx := context.Background()
	todos := NewTodoStore(NewEngine(backend.NewMemoryStore()))

	id, err := todos.Add(ctx, "alice", "   ")
	require.NoError(t, err)
	assert.Empty(t, id)

	list, err := todos.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestHabitStoreDefaultEmoji(t *testing.T) {
	ctx := context.Background()
	habits := NewHabitStore(NewEngine(backend.NewMemoryStore()))

	_, err := habits.Add(ctx, "alice", "read", " ")
	require.NoError(t, err)

	list, err := habits.List(ctx, "alice", testDay("2025-03-10"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "⭐", list[0].Emoji)
}

func TestHabitToggleHasSetSemantics(t *testing.T) {
	ctx := context.Background()
	habits := NewHabitStore(NewEngine(backend.NewMemoryStore()))
	today := testDay("2025-03-10")

	id, err := habits.Add(ctx, "alice", "read", "📚")
	require.NoError(t, err)

	// Toggle on: the date appears exactly once.
	require.NoError(t, habits.ToggleDate(ctx, "alice", id, nil, today))
	list, err := habits.List(ctx, "alice", today)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-10"}, list[0].CompletedDates)
	assert.Equal(t, 1, list[0].Streak)

	// Toggle off: the date is removed and the streak drops.
	require.NoError(t, habits.ToggleDate(ctx, "alice", id, list[0].CompletedDates, today))
	list, err = habits.List(ctx, "alice", today)
	require.NoError(t, err)
	assert.Empty(t, list[0].CompletedDates)
	assert.Equal(t, 0, list[0].Streak)
}

func TestHabitToggleDeduplicates(t *testing.T) {
	ctx := context.Background()
	habits := NewHabitStore(NewEngine(backend.NewMemoryStore()))
	today := testDay("2025-03-10")

	id, err := habits.Add(ctx, "alice", "read", "📚")
	require.NoError(t, err)

	// A corrupted client copy with duplicates collapses to set semantics.
	dirty := []string{"2025-03-10", "2025-03-10", "2025-03-09"}
	require.NoError(t, habits.ToggleDate(ctx, "alice", id, dirty, today))

	list, err := habits.List(ctx, "alice", today)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-09"}, list[0].CompletedDates)
}

func TestHabitStreaksInList(t *testing.T) {
	ctx := context.Background()
	habits := NewHabitStore(NewEngine(backend.NewMemoryStore()))
	today := testDay("2025-03-10")

	id, err := habits.Add(ctx, "alice", "run", "🏃")
	require.NoError(t, err)
	for _, day := range []string{"2025-03-08", "2025-03-09", "2025-03-10"} {
		list, err := habits.List(ctx, "alice", today)
		require.NoError(t, err)
		require.NoError(t, habits.ToggleDate(ctx, "alice", id, list[0].CompletedDates, testDay(day)))
	}

	list, err := habits.List(ctx, "alice", today)
	require.NoError(t, err)
	assert.Equal(t, 3, list[0].Streak)
}

func TestNoteStoreCreateAndEdit(t *testing.T) {
	ctx := context.Background()
	notes := NewNoteStore(NewEngine(backend.NewMemoryStore()))

	first, err := notes.Save(ctx, "alice", "", "groceries", "milk")
	require.NoError(t, err)
	require.NotEmpty(t, first)
	second, err := notes.Save(ctx, "alice", "", "ideas", "")
	require.NoError(t, err)

	list, err := notes.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID, "most recently updated first")

	// Editing the older note bumps it to the top.
	_, err = notes.Save(ctx, "alice", first, "groceries", "milk, eggs")
	require.NoError(t, err)

	list, err = notes.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first, list[0].ID)
	assert.Equal(t, "milk, eggs", list[0].Body)
	assert.True(t, list[0].UpdatedAt.After(list[0].CreatedAt))
}

func TestNoteStoreBlankSave(t *testing.T) {
	ctx := context.Background()
	notes := NewNoteStore(NewEngine(backend.NewMemoryStore()))

	id, err := notes.Save(ctx, "alice", "", "  ", "")
	require.NoError(t, err)
	assert.Empty(t, id)

	list, err := notes.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)

	// Blank edit of an existing note is dropped, not applied.
	created, err := notes.Save(ctx, "alice", "", "title", "body")
	require.NoError(t, err)
	_, err = notes.Save(ctx, "alice", created, "", " ")
	require.NoError(t, err)

	list, err = notes.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "title", list[0].Title)
}

func TestFieldStringsToleratesFirestoreArrays(t *testing.T) {
	doc := backend.Document{Fields: map[string]any{
		"completedDates": []any{"2025-03-10", 42, "2025-03-09"},
	}}
	assert.Equal(t, []string{"2025-03-10", "2025-03-09"}, fieldStrings(doc, "completedDates"))

	doc.Fields["completedDates"] = []string{"2025-03-08"}
	assert.Equal(t, []string{"2025-03-08"}, fieldStrings(doc, "completedDates"))

	assert.Nil(t, fieldStrings(backend.Document{Fields: map[string]any{}}, "completedDates"))
}
