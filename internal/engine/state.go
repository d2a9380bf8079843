package engine

import (
	"fmt"
	"time"
)

// Habit is a user-defined recurring activity with a monthly completion goal.
// Fields are fixed after creation; there is no edit operation.
type Habit struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Goal     int    `json:"goal"` // target completions for the active month
	Category string `json:"category"`
}

// DayCompletion maps habit id -> completed for one calendar day. Keys exist
// only for habits toggled at least once that day.
type DayCompletion map[string]bool

// History maps canonical date keys (YYYY-MM-DD) to day completions. Sparse:
// absent date means nothing was completed that day.
type History map[string]DayCompletion

// HabitState is the aggregate root persisted as a single blob.
type HabitState struct {
	Habits         []Habit  `json:"habits"`
	History        History  `json:"history"`
	MonthlyTargets []string `json:"monthlyTargets"`
}

// DefaultGoal substitutes for an unparsable or negative goal input.
const DefaultGoal = 31

// DefaultState is the hardcoded fallback used when no stored blob exists or
// the stored value cannot be decoded.
func DefaultState() HabitState {
	return HabitState{
		Habits: []Habit{
			{ID: "1", Name: "Morning Exercise", Goal: 31, Category: "Health"},
			{ID: "2", Name: "Read 20 Pages", Goal: 31, Category: "Mind"},
			{ID: "3", Name: "Meditation", Goal: 31, Category: "Mind"},
			{ID: "4", Name: "Deep Work (4hrs)", Goal: 20, Category: "Work"},
		},
		History: History{},
		MonthlyTargets: []string{
			"Complete 75% of all habits",
			"Finish a new book",
			"Run 50km total",
		},
	}
}

// NewHabitID derives a session-unique id from the wall clock (milliseconds
// since epoch, decimal). Bumped until distinct from every existing id so two
// adds within the same millisecond cannot collide.
func NewHabitID(now time.Time, existing []Habit) string {
	ms := now.UnixMilli()
	for {
		id := fmt.Sprintf("%d", ms)
		if !habitIDExists(existing, id) {
			return id
		}
		ms++
	}
}

func habitIDExists(habits []Habit, id string) bool {
	for _, h := range habits {
		if h.ID == id {
			return true
		}
	}
	return false
}

// ToggleCompletion flips the completion flag at history[date][habitID]
// (absent counts as false). Only that single cell changes; unknown ids and
// dates simply create a new sparse entry. The input state is not mutated.
func ToggleCompletion(state HabitState, dateKey, habitID string) HabitState {
	next := state
	next.History = make(History, len(state.History)+1)
	for k, v := range state.History {
		next.History[k] = v
	}
	day := make(DayCompletion, len(state.History[dateKey])+1)
	for k, v := range state.History[dateKey] {
		day[k] = v
	}
	day[habitID] = !day[habitID]
	next.History[dateKey] = day
	return next
}

// AddHabit appends a habit with a fresh id. Name and goal arrive already
// validated from the presentation layer (blank name cancels before this is
// reached, bad goal input defaults to DefaultGoal). Insertion order drives
// grid row order.
func AddHabit(state HabitState, now time.Time, name string, goal int, category string) HabitState {
	if category == "" {
		category = "General"
	}
	h := Habit{
		ID:       NewHabitID(now, state.Habits),
		Name:     name,
		Goal:     goal,
		Category: category,
	}
	next := state
	next.Habits = make([]Habit, 0, len(state.Habits)+1)
	next.Habits = append(next.Habits, state.Habits...)
	next.Habits = append(next.Habits, h)
	return next
}

// DeleteHabit removes the habit from the roster. History entries referencing
// the id are deliberately left in place; they become unreachable from
// analytics but are never purged from storage. Confirmation happens in the
// presentation layer before this is called.
func DeleteHabit(state HabitState, habitID string) HabitState {
	next := state
	next.Habits = make([]Habit, 0, len(state.Habits))
	for _, h := range state.Habits {
		if h.ID != habitID {
			next.Habits = append(next.Habits, h)
		}
	}
	return next
}

// HabitByID looks a habit up in the roster.
func HabitByID(state HabitState, id string) (Habit, bool) {
	for _, h := range state.Habits {
		if h.ID == id {
			return h, true
		}
	}
	return Habit{}, false
}

// Completed reports whether habitID was done on dateKey.
func (s HabitState) Completed(dateKey, habitID string) bool {
	return s.History[dateKey][habitID]
}
