package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/labstack/echo/v4"

	"github.com/lifehubapp/lifehub/internal/live"
	"github.com/lifehubapp/lifehub/internal/models"
)

// CollectionHandler binds the typed collection stores to HTTP. All
// mutation failures collapse into one generic, non-blocking notice; the
// client never sees the difference between a lost delete race and a
// connectivity error.
type CollectionHandler struct {
	todos  *live.TodoStore
	habits *live.HabitStore
	notes  *live.NoteStore

	// now is swapped out by tests to pin "today".
	now func() time.Time
}

func NewCollectionHandler(todos *live.TodoStore, habits *live.HabitStore, notes *live.NoteStore) *CollectionHandler {
	return &CollectionHandler{
		todos:  todos,
		habits: habits,
		notes:  notes,
		now:    time.Now,
	}
}

func (h *CollectionHandler) today() civil.Date {
	return civil.DateOf(h.now())
}

func mutationError(c echo.Context, action, noun string, err error) error {
	log.Printf("could not %s %s: %v", action, noun, err)
	return c.JSON(http.StatusBadGateway, map[string]string{
		"error": fmt.Sprintf("Could not %s this %s.", action, noun),
	})
}

func fetchError(c echo.Context, noun string, err error) error {
	log.Printf("could not fetch %s: %v", noun, err)
	return c.JSON(http.StatusBadGateway, map[string]string{
		"error": fmt.Sprintf("Could not load %s.", noun),
	})
}

// --- todos ---

func (h *CollectionHandler) ListTodos(c echo.Context) error {
	todos, err := h.todos.List(c.Request().Context(), ownerFrom(c).UID)
	if err != nil {
		return fetchError(c, "tasks", err)
	}
	return c.JSON(http.StatusOK, todos)
}

type createTodoRequest struct {
	Text string `json:"text"`
}

func (h *CollectionHandler) CreateTodo(c echo.Context) error {
	var req createTodoRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}

	id, err := h.todos.Add(c.Request().Context(), ownerFrom(c).UID, req.Text)
	if err != nil {
		return mutationError(c, "add", "task", err)
	}
	if id == "" {
		// Blank submission, silently dropped.
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

type updateTodoRequest struct {
	Completed bool `json:"completed"`
}

func (h *CollectionHandler) UpdateTodo(c echo.Context) error {
	var req updateTodoRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}

	if err := h.todos.SetCompleted(c.Request().Context(), ownerFrom(c).UID, c.Param("id"), req.Completed); err != nil {
		return mutationError(c, "update", "task", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CollectionHandler) DeleteTodo(c echo.Context) error {
	if err := h.todos.Delete(c.Request().Context(), ownerFrom(c).UID, c.Param("id")); err != nil {
		return mutationError(c, "delete", "task", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- habits ---

func (h *CollectionHandler) ListHabits(c echo.Context) error {
	habits, err := h.habits.List(c.Request().Context(), ownerFrom(c).UID, h.today())
	if err != nil {
		return fetchError(c, "habits", err)
	}
	return c.JSON(http.StatusOK, habits)
}

type createHabitRequest struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}

func (h *CollectionHandler) CreateHabit(c echo.Context) error {
	var req createHabitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}

	id, err := h.habits.Add(c.Request().Context(), ownerFrom(c).UID, req.Name, req.Emoji)
	if err != nil {
		return mutationError(c, "add", "habit", err)
	}
	if id == "" {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

// ToggleHabit flips today's completion for the habit. The current date
// set is read back from the store so the toggle is computed against the
// latest state, not a stale client copy.
func (h *CollectionHandler) ToggleHabit(c echo.Context) error {
	ctx := c.Request().Context()
	owner := ownerFrom(c).UID
	id := c.Param("id")

	habits, err := h.habits.List(ctx, owner, h.today())
	if err != nil {
		return mutationError(c, "update", "habit", err)
	}

	var current []string
	found := false
	for _, habit := range habits {
		if habit.ID == id {
			current = habit.CompletedDates
			found = true
			break
		}
	}
	if !found {
		return mutationError(c, "update", "habit", fmt.Errorf("habit %s not in snapshot", id))
	}

	if err := h.habits.ToggleDate(ctx, owner, id, current, h.today()); err != nil {
		return mutationError(c, "update", "habit", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CollectionHandler) DeleteHabit(c echo.Context) error {
	if err := h.habits.Delete(c.Request().Context(), ownerFrom(c).UID, c.Param("id")); err != nil {
		return mutationError(c, "delete", "habit", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- notes ---

func (h *CollectionHandler) ListNotes(c echo.Context) error {
	notes, err := h.notes.List(c.Request().Context(), ownerFrom(c).UID)
	if err != nil {
		return fetchError(c, "notes", err)
	}
	return c.JSON(http.StatusOK, notes)
}

type saveNoteRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (h *CollectionHandler) CreateNote(c echo.Context) error {
	var req saveNoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}

	id, err := h.notes.Save(c.Request().Context(), ownerFrom(c).UID, "", req.Title, req.Body)
	if err != nil {
		return mutationError(c, "save", "note", err)
	}
	if id == "" {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

func (h *CollectionHandler) UpdateNote(c echo.Context) error {
	var req saveNoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}

	if _, err := h.notes.Save(c.Request().Context(), ownerFrom(c).UID, c.Param("id"), req.Title, req.Body); err != nil {
		return mutationError(c, "save", "note", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CollectionHandler) DeleteNote(c echo.Context) error {
	if err := h.notes.Delete(c.Request().Context(), ownerFrom(c).UID, c.Param("id")); err != nil {
		return mutationError(c, "delete", "note", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- dashboard ---

// Dashboard aggregates the header counters of the three screens: tasks
// remaining, habits done today, note count and the best current streak.
func (h *CollectionHandler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	owner := ownerFrom(c).UID
	today := h.today()

	todos, err := h.todos.List(ctx, owner)
	if err != nil {
		return fetchError(c, "dashboard", err)
	}
	habits, err := h.habits.List(ctx, owner, today)
	if err != nil {
		return fetchError(c, "dashboard", err)
	}
	notes, err := h.notes.List(ctx, owner)
	if err != nil {
		return fetchError(c, "dashboard", err)
	}

	stats := models.DashboardStats{
		TasksTotal:  len(todos),
		HabitsTotal: len(habits),
		Notes:       len(notes),
	}
	for _, t := range todos {
		if !t.Completed {
			stats.TasksRemaining++
		}
	}
	todayKey := today.String()
	for _, habit := range habits {
		for _, d := range habit.CompletedDates {
			if d == todayKey {
				stats.HabitsDoneToday++
				break
			}
		}
		if habit.Streak > stats.BestStreak {
			stats.BestStreak = habit.Streak
		}
	}

	return c.JSON(http.StatusOK, stats)
}
