package modvis

import "testing"

func TestGainRampReachesTargetWithinRampTime(t *testing.T) {
	g := newGainRamp(48000)
	g.SetTarget(0.2)
	// A full 0..1 sweep takes rampSeconds; 1 -> 0.2 takes less.
	for i := 0; i < 48000/10; i++ {
		g.advance()
	}
	if g.current != 0.2 {
		t.Fatalf("gain = %v, want 0.2 after ramp time", g.current)
	}
}

func TestGainRampIsMonotonicAndSmooth(t *testing.T) {
	g := newGainRamp(48000)
	g.SetTarget(0.2)
	prev := g.current
	for i := 0; i < 6000; i++ {
		cur := g.advance()
		if cur > prev {
			t.Fatalf("gain increased toward a lower target: %v -> %v", prev, cur)
		}
		if prev-cur > g.step+1e-12 {
			t.Fatalf("gain jumped by %v at sample %d (max step %v)", prev-cur, i, g.step)
		}
		if cur < 0.2 {
			t.Fatalf("gain overshot target: %v", cur)
		}
		prev = cur
	}
}

func TestGainRampRampsBackUp(t *testing.T) {
	g := newGainRamp(48000)
	g.SetTarget(0)
	for i := 0; i < 48000/5; i++ {
		g.advance()
	}
	if g.current != 0 {
		t.Fatalf("gain = %v, want 0", g.current)
	}
	g.SetTarget(1)
	prev := g.current
	for i := 0; i < 48000/5; i++ {
		cur := g.advance()
		if cur < prev {
			t.Fatalf("gain decreased toward a higher target")
		}
		prev = cur
	}
	if g.current != 1 {
		t.Fatalf("gain = %v, want 1", g.current)
	}
}

func TestGainRampClampsTarget(t *testing.T) {
	g := newGainRamp(48000)
	g.SetTarget(4)
	if got := g.Target(); got != 1 {
		t.Fatalf("target = %v, want clamp to 1", got)
	}
	g.SetTarget(-1)
	if got := g.Target(); got != 0 {
		t.Fatalf("target = %v, want clamp to 0", got)
	}
}

func TestGainApplyScalesFramePairs(t *testing.T) {
	g := newGainRamp(48000)
	buf := []float32{1, 1, 1, 1}
	g.apply(buf)
	if buf[0] != buf[1] {
		t.Fatalf("frame channels diverged: %v vs %v", buf[0], buf[1])
	}
	if buf[0] != 1 {
		t.Fatalf("unity gain altered samples: %v", buf[0])
	}
}
