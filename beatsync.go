package modvis

import "github.com/feralsun/modvis-go/telemetry"

// BeatSync turns the continuous beat-phase ramp into discrete on-beat
// callbacks by edge-detecting its wraparound. Feed it the VisualState
// once per frame, from the same goroutine that calls Update.
type BeatSync struct {
	onBeat    func(beat int)
	lastPhase float64
	beat      int
	primed    bool
}

func NewBeatSync(onBeat func(beat int)) *BeatSync {
	return &BeatSync{onBeat: onBeat}
}

// Observe inspects the current beat phase and fires the callback when
// the phase wrapped since the last call.
func (b *BeatSync) Observe(vs *telemetry.VisualState) {
	phase := vs.BeatPhase
	if b.primed && phase < b.lastPhase {
		b.beat++
		if b.onBeat != nil {
			b.onBeat(b.beat)
		}
	}
	b.lastPhase = phase
	b.primed = true
}

// Beats reports how many wraps have been observed.
func (b *BeatSync) Beats() int { return b.beat }
