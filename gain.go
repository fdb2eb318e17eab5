package modvis

import (
	"math"
	"sync/atomic"
)

// rampSeconds is how long a volume change takes to settle. Long enough
// to kill clicks, short enough to feel immediate.
const rampSeconds = 0.1

// gainRamp smooths volume changes so the output never jumps. SetTarget
// is safe from any goroutine; apply runs on the device goroutine,
// which owns current, so the only shared word is the atomic target.
type gainRamp struct {
	target  atomic.Uint64 // float64 bits
	current float64
	step    float64 // max gain delta per sample for a full 0..1 sweep
}

func newGainRamp(sampleRate int) *gainRamp {
	g := &gainRamp{
		current: 1,
		step:    1 / (rampSeconds * float64(sampleRate)),
	}
	g.target.Store(math.Float64bits(1))
	return g
}

func (g *gainRamp) SetTarget(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	g.target.Store(math.Float64bits(v))
}

func (g *gainRamp) Target() float64 {
	return math.Float64frombits(g.target.Load())
}

// advance moves the gain one sample toward the target and returns it.
func (g *gainRamp) advance() float64 {
	target := g.Target()
	switch {
	case g.current < target:
		g.current = math.Min(g.current+g.step, target)
	case g.current > target:
		g.current = math.Max(g.current-g.step, target)
	}
	return g.current
}

// apply scales an interleaved stereo buffer in place, ramping per
// frame so both channels of a frame get the same gain.
func (g *gainRamp) apply(buf []float32) {
	for i := 0; i+1 < len(buf); i += 2 {
		gain := float32(g.advance())
		buf[i] *= gain
		buf[i+1] *= gain
	}
}
