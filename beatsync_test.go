package modvis

import (
	"testing"

	"github.com/feralsun/modvis-go/telemetry"
)

func TestBeatSyncFiresOnWrap(t *testing.T) {
	var beats []int
	bs := NewBeatSync(func(beat int) { beats = append(beats, beat) })

	vs := &telemetry.VisualState{}
	for _, phase := range []float64{0.1, 0.5, 0.9, 0.05, 0.4, 0.95, 0.02} {
		vs.BeatPhase = phase
		bs.Observe(vs)
	}
	if len(beats) != 2 {
		t.Fatalf("expected 2 beats, got %v", beats)
	}
	if beats[0] != 1 || beats[1] != 2 {
		t.Fatalf("beat numbering wrong: %v", beats)
	}
	if bs.Beats() != 2 {
		t.Fatalf("Beats() = %d, want 2", bs.Beats())
	}
}

func TestBeatSyncDoesNotFireOnFirstObservation(t *testing.T) {
	fired := false
	bs := NewBeatSync(func(int) { fired = true })
	bs.Observe(&telemetry.VisualState{BeatPhase: 0.0})
	bs.Observe(&telemetry.VisualState{BeatPhase: 0.3})
	if fired {
		t.Fatal("beat fired without a wrap")
	}
}

func TestBeatSyncNilCallback(t *testing.T) {
	bs := NewBeatSync(nil)
	bs.Observe(&telemetry.VisualState{BeatPhase: 0.9})
	bs.Observe(&telemetry.VisualState{BeatPhase: 0.1})
	if bs.Beats() != 1 {
		t.Fatalf("Beats() = %d, want 1", bs.Beats())
	}
}
