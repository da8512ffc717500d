package live

import (
	"context"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/lifehubapp/lifehub/internal/backend"
	"github.com/lifehubapp/lifehub/internal/models"
	"github.com/lifehubapp/lifehub/internal/streak"
)

// Collection names under users/{owner}/.
const (
	CollectionTodos  = "todos"
	CollectionHabits = "habits"
	CollectionNotes  = "notes"
)

// Sort orders match the product behavior: todos and notes most-recent
// first, habits in stable creation order.
var (
	TodoSort  = backend.SortSpec{Field: "createdAt", Dir: backend.Desc}
	HabitSort = backend.SortSpec{Field: "createdAt", Dir: backend.Asc}
	NoteSort  = backend.SortSpec{Field: "updatedAt", Dir: backend.Desc}
)

const defaultHabitEmoji = "⭐"

// TodoStore binds the engine to the todos collection.
type TodoStore struct {
	engine *Engine
}

func NewTodoStore(e *Engine) *TodoStore {
	return &TodoStore{engine: e}
}

func (s *TodoStore) Watch(ctx context.Context, owner string) (*Subscription, error) {
	return s.engine.Open(ctx, owner, CollectionTodos, TodoSort)
}

func (s *TodoStore) List(ctx context.Context, owner string) ([]models.Todo, error) {
	snap, err := s.engine.List(ctx, owner, CollectionTodos, TodoSort)
	if err != nil {
		return nil, err
	}
	return DecodeTodos(snap), nil
}

// Add creates a todo. A text that trims to empty is silently dropped.
func (s *TodoStore) Add(ctx context.Context, owner, text string) (string, error) {
	return s.engine.Create(ctx, owner, CollectionTodos, map[string]any{
		"text":      text,
		"completed": false,
		"createdAt": backend.ServerTimestamp,
	}, "text")
}

func (s *TodoStore) SetCompleted(ctx context.Context, owner, id string, completed bool) error {
	return s.engine.Update(ctx, owner, CollectionTodos, id, map[string]any{
		"completed": completed,
	})
}

func (s *TodoStore) Delete(ctx context.Context, owner, id string) error {
	return s.engine.Delete(ctx, owner, CollectionTodos, id)
}

// DecodeTodos maps a pushed snapshot onto the Todo shape, preserving the
// snapshot order.
func DecodeTodos(snap backend.Snapshot) []models.Todo {
	todos := make([]models.Todo, 0, len(snap))
	for _, doc := range snap {
		todos = append(todos, models.Todo{
			ID:        doc.ID,
			Text:      fieldString(doc, "text"),
			Completed: fieldBool(doc, "completed"),
			CreatedAt: doc.CreatedAt,
		})
	}
	return todos
}

// HabitStore binds the engine to the habits collection.
type HabitStore struct {
	engine *Engine
}

func NewHabitStore(e *Engine) *HabitStore {
	return &HabitStore{engine: e}
}

func (s *HabitStore) Watch(ctx context.Context, owner string) (*Subscription, error) {
	return s.engine.Open(ctx, owner, CollectionHabits, HabitSort)
}

func (s *HabitStore) List(ctx context.Context, owner string, today civil.Date) ([]models.Habit, error) {
	snap, err := s.engine.List(ctx, owner, CollectionHabits, HabitSort)
	if err != nil {
		return nil, err
	}
	return DecodeHabits(snap, today), nil
}

func (s *HabitStore) Add(ctx context.Context, owner, name, emoji string) (string, error) {
	if strings.TrimSpace(emoji) == "" {
		emoji = defaultHabitEmoji
	}
	return s.engine.Create(ctx, owner, CollectionHabits, map[string]any{
		"name":           name,
		"emoji":          emoji,
		"completedDates": []string{},
		"createdAt":      backend.ServerTimestamp,
	}, "name")
}

// ToggleDate flips the habit's completion for one calendar date. The
// stored dates keep set semantics: toggling on a date already present
// removes it, otherwise it is appended once.
func (s *HabitStore) ToggleDate(ctx context.Context, owner, id string, current []string, date civil.Date) error {
	key := date.String()
	updated := make([]string, 0, len(current)+1)
	removed := false
	for _, d := range current {
		if d == key {
			removed = true
			continue
		}
		updated = append(updated, d)
	}
	if !removed {
		updated = append(updated, key)
	}

	return s.engine.Update(ctx, owner, CollectionHabits, id, map[string]any{
		"completedDates": updated,
	})
}

func (s *HabitStore) Delete(ctx context.Context, owner, id string) error {
	return s.engine.Delete(ctx, owner, CollectionHabits, id)
}

// DecodeHabits maps a pushed snapshot onto the Habit shape and computes
// each habit's streak relative to today.
func DecodeHabits(snap backend.Snapshot, today civil.Date) []models.Habit {
	habits := make([]models.Habit, 0, len(snap))
	for _, doc := range snap {
		dates := fieldStrings(doc, "completedDates")
		habits = append(habits, models.Habit{
			ID:             doc.ID,
			Name:           fieldString(doc, "name"),
			Emoji:          fieldString(doc, "emoji"),
			CompletedDates: dates,
			CreatedAt:      doc.CreatedAt,
			Streak:         streak.Current(dates, today),
		})
	}
	return habits
}

// NoteStore binds the engine to the notes collection.
type NoteStore struct {
	engine *Engine
}

func NewNoteStore(e *Engine) *NoteStore {
	return &NoteStore{engine: e}
}

func (s *NoteStore) Watch(ctx context.Context, owner string) (*Subscription, error) {
	return s.engine.Open(ctx, owner, CollectionNotes, NoteSort)
}

func (s *NoteStore) List(ctx context.Context, owner string) ([]models.Note, error) {
	snap, err := s.engine.List(ctx, owner, CollectionNotes, NoteSort)
	if err != nil {
		return nil, err
	}
	return DecodeNotes(snap), nil
}

// Save creates the note when id is empty, otherwise updates it with a
// bumped updatedAt. A note whose title and body both trim to empty is
// silently dropped.
func (s *NoteStore) Save(ctx context.Context, owner, id, title, body string) (string, error) {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)

	if id == "" {
		return s.engine.Create(ctx, owner, CollectionNotes, map[string]any{
			"title":     title,
			"body":      body,
			"createdAt": backend.ServerTimestamp,
			"updatedAt": backend.ServerTimestamp,
		}, "title", "body")
	}

	if title == "" && body == "" {
		return id, nil
	}

	err := s.engine.Update(ctx, owner, CollectionNotes, id, map[string]any{
		"title":     title,
		"body":      body,
		"updatedAt": backend.ServerTimestamp,
	})
	return id, err
}

func (s *NoteStore) Delete(ctx context.Context, owner, id string) error {
	return s.engine.Delete(ctx, owner, CollectionNotes, id)
}

// DecodeNotes maps a pushed snapshot onto the Note shape, preserving the
// snapshot order.
func DecodeNotes(snap backend.Snapshot) []models.Note {
	notes := make([]models.Note, 0, len(snap))
	for _, doc := range snap {
		notes = append(notes, models.Note{
			ID:        doc.ID,
			Title:     fieldString(doc, "title"),
			Body:      fieldString(doc, "body"),
			CreatedAt: doc.CreatedAt,
			UpdatedAt: doc.UpdatedAt,
		})
	}
	return notes
}

func fieldString(doc backend.Document, key string) string {
	s, _ := doc.Fields[key].(string)
	return s
}

func fieldBool(doc backend.Document, key string) bool {
	b, _ := doc.Fields[key].(bool)
	return b
}

// fieldStrings tolerates both []string (memory store) and []any
// (Firestore array decoding).
func fieldStrings(doc backend.Document, key string) []string {
	switch v := doc.Fields[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
