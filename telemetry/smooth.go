package telemetry

import "math"

// Decay rates in 1/s. Tuned for a 60 Hz consumer; the exponential form
// keeps the feel identical at other frame rates.
const (
	kickDecayRate    = 8
	grooveDecayRate  = 3
	triggerDecayRate = 10

	grooveTarget = 0.25
)

// Smoother integrates raw snapshots into a continuous VisualState. It
// is deliberately decoupled from the extraction cadence: Tick runs once
// per consumer frame and keeps decaying and advancing the beat phase
// even when no new snapshot arrived since the last frame.
//
// Tick is the single mutation site of the VisualState; it must only be
// called from one goroutine.
type Smoother struct {
	state VisualState

	lastOrder int
	lastRow   int
	havePos   bool
}

func NewSmoother() *Smoother {
	return &Smoother{lastOrder: -1, lastRow: -1}
}

// State returns the smoothed telemetry. Read-only for callers; the
// pointer stays valid across Ticks.
func (s *Smoother) State() *VisualState { return &s.state }

// Reset clears position tracking so the first row of the next module
// counts as a fresh position. Smoothed values are left to decay
// naturally across the track change.
func (s *Smoother) Reset() {
	s.havePos = false
	s.lastOrder, s.lastRow = -1, -1
}

// Tick advances the state by dt seconds. raw may be nil when no new
// extraction arrived this frame. It returns the indices of channels
// that triggered a fresh note during this tick, for note callbacks;
// the slice is only valid until the next Tick.
func (s *Smoother) Tick(raw *Snapshot, dt float64) []int {
	if dt < 0 {
		dt = 0
	}
	var fresh []int

	if raw != nil {
		s.state.BPM = raw.BPM
		s.state.PatternIndex = raw.Order
		s.state.Row = raw.Row
		s.grow(len(raw.Channels))

		// A note only counts as fresh when the play position moved:
		// extraction can visit the same row several times per row and
		// repeated identical cells must not refire.
		newPos := !s.havePos || raw.Order != s.lastOrder || raw.Row != s.lastRow
		s.havePos = true
		s.lastOrder, s.lastRow = raw.Order, raw.Row

		for i := range raw.Channels {
			ch := &s.state.Channels[i]
			trigger := ch.Trigger
			ch.ChannelSnapshot = raw.Channels[i]
			ch.Trigger = trigger
			if newPos && raw.Channels[i].Note != "" {
				ch.Trigger = 1
				fresh = append(fresh, i)
			}
		}

		kickTarget := 0.0
		if len(fresh) > 0 {
			kickTarget = 1
		}
		s.state.KickTrigger = approach(s.state.KickTrigger, kickTarget, kickDecayRate, dt)
	} else {
		s.state.KickTrigger = approach(s.state.KickTrigger, 0, kickDecayRate, dt)
	}

	for i := range s.state.Channels {
		if contains(fresh, i) {
			continue // freshly snapped to 1, decay starts next tick
		}
		ch := &s.state.Channels[i]
		ch.Trigger = approach(ch.Trigger, 0, triggerDecayRate, dt)
	}

	target := 0.0
	if oddSubdivision(s.state.BPM) {
		target = grooveTarget
	}
	s.state.GrooveAmount = approach(s.state.GrooveAmount, target, grooveDecayRate, dt)

	if s.state.BPM > 0 {
		s.state.BeatPhase = math.Mod(s.state.BeatPhase+s.state.BPM/60*dt, 1)
	}
	return fresh
}

// grow widens the channel list to n entries. The list never shrinks:
// a narrower module just leaves the tail unused, which keeps consumer
// indices stable across track changes.
func (s *Smoother) grow(n int) {
	for len(s.state.Channels) < n {
		s.state.Channels = append(s.state.Channels, ChannelState{
			ChannelSnapshot: ChannelSnapshot{Instrument: -1},
		})
	}
}

// approach moves value toward target with an exponential step, stable
// for any dt >= 0.
func approach(value, target, rate, dt float64) float64 {
	return value + (target-value)*(1-math.Exp(-rate*dt))
}

func oddSubdivision(bpm float64) bool {
	n := int(math.Round(bpm))
	return n > 0 && n%2 == 1
}

func contains(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
