package store

import (
	"encoding/json"
	"testing"

	"github.com/mkeppel/habitquest-tui/internal/engine"
)

func TestDecodeStateRoundTrip(t *testing.T) {
	orig := engine.DefaultState()
	orig = engine.ToggleCompletion(orig, "2024-02-01", "1")
	payload, err := json.Marshal(orig)
	if err != nil {
		t.Fatal(err)
	}
	got := DecodeState(payload, nil)
	if len(got.Habits) != len(orig.Habits) {
		t.Fatalf("roster size changed: %d vs %d", len(got.Habits), len(orig.Habits))
	}
	if !got.Completed("2024-02-01", "1") {
		t.Fatalf("history entry lost in round trip")
	}
	if len(got.MonthlyTargets) != 3 {
		t.Fatalf("monthly targets lost: %v", got.MonthlyTargets)
	}
}

func TestDecodeStateMalformedFallsBack(t *testing.T) {
	for _, payload := range [][]byte{
		nil,
		{},
		[]byte("not json"),
		[]byte(`{"habits": 42}`),
	} {
		got := DecodeState(payload, nil)
		def := engine.DefaultState()
		if len(got.Habits) != len(def.Habits) {
			t.Fatalf("payload %q should fall back to defaults", payload)
		}
	}
}

func TestDecodeStateNilHistoryInitialized(t *testing.T) {
	got := DecodeState([]byte(`{"habits":[],"monthlyTargets":[]}`), nil)
	if got.History == nil {
		t.Fatalf("history map must be usable after decode")
	}
}
