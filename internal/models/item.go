package models

import (
	"time"
)

// Todo represents a single task in a user's todo list.
type Todo struct {
	ID        string    `firestore:"-" json:"id"`
	Text      string    `firestore:"text" json:"text"`
	Completed bool      `firestore:"completed" json:"completed"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}

// Habit represents a recurring daily habit. CompletedDates holds the
// ISO calendar dates (YYYY-MM-DD) on which the habit was marked done,
// with set semantics: each date appears at most once.
type Habit struct {
	ID             string    `firestore:"-" json:"id"`
	Name           string    `firestore:"name" json:"name"`
	Emoji          string    `firestore:"emoji" json:"emoji"`
	CompletedDates []string  `firestore:"completedDates" json:"completedDates"`
	CreatedAt      time.Time `firestore:"createdAt" json:"createdAt"`

	// Streak is derived, never stored.
	Streak int `firestore:"-" json:"streak"`
}

// Note represents a free-form note.
type Note struct {
	ID        string    `firestore:"-" json:"id"`
	Title     string    `firestore:"title" json:"title"`
	Body      string    `firestore:"body" json:"body"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt" json:"updatedAt"`
}

// DashboardStats aggregates the per-collection counters shown on the
// dashboard and in the screen headers.
type DashboardStats struct {
	TasksRemaining  int `json:"tasksRemaining"`
	TasksTotal      int `json:"tasksTotal"`
	HabitsDoneToday int `json:"habitsDoneToday"`
	HabitsTotal     int `json:"habitsTotal"`
	Notes           int `json:"notes"`
	BestStreak      int `json:"bestStreak"`
}
