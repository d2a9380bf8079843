package engine

import (
	"testing"
	"time"
)

func TestToggleCompletionInvolution(t *testing.T) {
	state := DefaultState()
	date := "2024-02-01"
	id := state.Habits[0].ID
	before := state.Completed(date, id)
	once := ToggleCompletion(state, date, id)
	if once.Completed(date, id) == before {
		t.Fatalf("toggle did not flip completion")
	}
	twice := ToggleCompletion(once, date, id)
	if twice.Completed(date, id) != before {
		t.Fatalf("double toggle should restore original value")
	}
}

func TestToggleCompletionIsolated(t *testing.T) {
	state := DefaultState()
	state = ToggleCompletion(state, "2024-02-01", "1")
	state = ToggleCompletion(state, "2024-02-01", "2")
	next := ToggleCompletion(state, "2024-02-01", "1")
	if !next.Completed("2024-02-01", "2") {
		t.Fatalf("toggling habit 1 disturbed habit 2's entry")
	}
	if next.Completed("2024-02-02", "1") {
		t.Fatalf("toggling one date leaked into another")
	}
}

func TestToggleCompletionDoesNotMutateInput(t *testing.T) {
	state := DefaultState()
	_ = ToggleCompletion(state, "2024-02-01", "1")
	if state.Completed("2024-02-01", "1") {
		t.Fatalf("input state was mutated")
	}
}

func TestToggleCompletionUnknownHabit(t *testing.T) {
	state := DefaultState()
	next := ToggleCompletion(state, "2024-03-15", "no-such-habit")
	if !next.Completed("2024-03-15", "no-such-habit") {
		t.Fatalf("unknown habit id should still create a sparse entry")
	}
}

func TestAddHabitAppendsInOrder(t *testing.T) {
	state := DefaultState()
	now := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)
	next := AddHabit(state, now, "Stretch", 15, "")
	if len(next.Habits) != len(state.Habits)+1 {
		t.Fatalf("expected one appended habit, got %d", len(next.Habits))
	}
	added := next.Habits[len(next.Habits)-1]
	if added.Name != "Stretch" || added.Goal != 15 {
		t.Fatalf("appended habit wrong: %+v", added)
	}
	if added.Category != "General" {
		t.Fatalf("blank category should default to General, got %q", added.Category)
	}
	for i, h := range state.Habits {
		if next.Habits[i].ID != h.ID {
			t.Fatalf("existing roster order disturbed at %d", i)
		}
	}
}

func TestNewHabitIDUniqueWithinMillisecond(t *testing.T) {
	now := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)
	state := DefaultState()
	a := AddHabit(state, now, "A", 10, "Test")
	b := AddHabit(a, now, "B", 10, "Test")
	idA := a.Habits[len(a.Habits)-1].ID
	idB := b.Habits[len(b.Habits)-1].ID
	if idA == idB {
		t.Fatalf("ids collided for same-millisecond adds: %s", idA)
	}
}

func TestDeleteHabitOrphansHistory(t *testing.T) {
	state := DefaultState()
	state = ToggleCompletion(state, "2024-02-01", "1")
	state = ToggleCompletion(state, "2024-02-02", "1")
	next := DeleteHabit(state, "1")
	if _, ok := HabitByID(next, "1"); ok {
		t.Fatalf("habit 1 should be gone from roster")
	}
	// History stays put: orphaned, never purged.
	if !next.Completed("2024-02-01", "1") || !next.Completed("2024-02-02", "1") {
		t.Fatalf("history entries for deleted habit must remain")
	}
	sums := ComputeSummaries(next, 2024, time.February)
	for _, s := range sums {
		if s.HabitID == "1" {
			t.Fatalf("deleted habit still shows in analytics")
		}
	}
}

func TestDeleteUnknownHabitNoop(t *testing.T) {
	state := DefaultState()
	next := DeleteHabit(state, "does-not-exist")
	if len(next.Habits) != len(state.Habits) {
		t.Fatalf("deleting an unknown id changed the roster")
	}
}
