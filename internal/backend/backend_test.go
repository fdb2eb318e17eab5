package backend

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/feralsun/modvis-go/moddec"
)

// fakeModule produces a fixed number of constant-value frames, then
// reports end of track. Position advances one row per 100 frames.
// closed is atomic because the isolated strategy closes the module on
// its render goroutine while the test observes the count.
type fakeModule struct {
	framesLeft int
	framesRead int
	closed     atomic.Int32
}

func (m *fakeModule) Close() { m.closed.Add(1) }

func (m *fakeModule) ReadStereoFrames(sampleRate, frames int, left, right []float32) int {
	if m.framesLeft <= 0 {
		return 0
	}
	n := frames
	if n > m.framesLeft {
		n = m.framesLeft
	}
	for i := 0; i < n; i++ {
		left[i] = 0.5
		right[i] = -0.5
	}
	m.framesLeft -= n
	m.framesRead += n
	return n
}

func (m *fakeModule) Metadata(string) string { return "" }
func (m *fakeModule) CurrentOrder() int      { return 0 }
func (m *fakeModule) CurrentRow() int        { return m.framesRead / 100 }
func (m *fakeModule) EstimatedBPM() float64  { return 125 }
func (m *fakeModule) NumOrders() int         { return 1 }
func (m *fakeModule) NumPatterns() int       { return 1 }
func (m *fakeModule) NumChannels() int       { return 2 }
func (m *fakeModule) OrderPattern(int) int   { return 0 }
func (m *fakeModule) PatternRows(int) int    { return 64 }
func (m *fakeModule) ChannelLevel(int) float64 { return 0.7 }

func (m *fakeModule) FormatPatternCell(pattern, row, channel int) string {
	if row%4 == 0 && channel == 0 {
		return "C-5 01 A0F"
	}
	return ""
}

// fakeDecoder rejects data equal to "corrupt" and otherwise yields a
// fakeModule with the configured length. lastMod is published
// atomically: Open runs on the render goroutine for the isolated
// strategy.
type fakeDecoder struct {
	frames  int
	lastMod atomic.Pointer[fakeModule]
}

func (d *fakeDecoder) Open(data []byte) (moddec.Module, error) {
	if string(data) == "corrupt" {
		return nil, moddec.ErrDecode
	}
	m := &fakeModule{framesLeft: d.frames}
	d.lastMod.Store(m)
	return m, nil
}

func waitEvent(t *testing.T, ch <-chan Event, want EventKind) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Kind == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event %v", want)
		}
	}
}

func TestRingPushPop(t *testing.T) {
	r := newRing(8)
	if n := r.push([]float32{1, 2, 3, 4, 5}); n != 5 {
		t.Fatalf("push = %d, want 5", n)
	}
	dst := make([]float32, 3)
	if n := r.pop(dst); n != 3 {
		t.Fatalf("pop = %d, want 3", n)
	}
	if dst[0] != 1 || dst[2] != 3 {
		t.Fatalf("unexpected samples %v", dst)
	}
	// Wrap around the buffer end.
	if n := r.push([]float32{6, 7, 8, 9, 10, 11}); n != 6 {
		t.Fatalf("wrap push = %d, want 6", n)
	}
	dst = make([]float32, 8)
	if n := r.pop(dst); n != 8 {
		t.Fatalf("drain pop = %d, want 8", n)
	}
	if dst[0] != 4 || dst[7] != 11 {
		t.Fatalf("unexpected order after wrap: %v", dst)
	}
	if r.readable() != 0 {
		t.Fatalf("ring should be empty")
	}
}

func TestInThreadLifecycle(t *testing.T) {
	dec := &fakeDecoder{frames: 3000}
	b := NewInThread(dec, 48000)
	defer b.Close()

	b.Load([]byte("song"))
	waitEvent(t, b.Events(), EventReady)

	// One step's worth of PCM lands in the ring.
	b.Step(0.01) // 480 frames
	dst := make([]float32, 2048)
	if n := b.ReadPCM(dst); n < 960 {
		t.Fatalf("expected at least 960 samples, got %d", n)
	}
	if dst[0] != 0.5 || dst[1] != -0.5 {
		t.Fatalf("unexpected samples %v %v", dst[0], dst[1])
	}

	// Telemetry lands in the mailbox every telemetryStride-th step.
	b.TakeSnapshot()
	for i := 0; i < telemetryStride; i++ {
		b.Step(0.001)
	}
	snap := b.TakeSnapshot()
	if snap == nil || snap.BPM != 125 {
		t.Fatalf("bad telemetry snapshot: %+v", snap)
	}
	if b.TakeSnapshot() != nil {
		t.Fatalf("mailbox should be empty after take")
	}

	// Draining the rest of the module ends the song.
	for i := 0; i < 100; i++ {
		b.Step(0.01)
		b.ReadPCM(dst)
	}
	waitEvent(t, b.Events(), EventSongEnd)
}

func TestInThreadLoadFailure(t *testing.T) {
	dec := &fakeDecoder{frames: 3000}
	b := NewInThread(dec, 48000)
	defer b.Close()
	b.Load([]byte("corrupt"))
	waitEvent(t, b.Events(), EventLoadFailed)
}

func TestInThreadStopIsIdempotent(t *testing.T) {
	dec := &fakeDecoder{frames: 3000}
	b := NewInThread(dec, 48000)
	defer b.Close()
	b.Load([]byte("song"))
	waitEvent(t, b.Events(), EventReady)

	b.Stop()
	if got := dec.lastMod.Load().closed.Load(); got != 1 {
		t.Fatalf("module closed %d times, want 1", got)
	}
	b.Stop()
	if got := dec.lastMod.Load().closed.Load(); got != 1 {
		t.Fatalf("double stop closed the module again (%d times)", got)
	}
	// A step after stop is a no-op, not a crash on a freed handle.
	b.Step(0.01)
}

func TestIsolatedLifecycle(t *testing.T) {
	dec := &fakeDecoder{frames: 3000}
	b := NewIsolated(dec, 48000)
	defer b.Close()

	b.Load([]byte("song"))
	waitEvent(t, b.Events(), EventReady)

	// The render goroutine fills the ring on its own.
	dst := make([]float32, 1024)
	deadline := time.Now().Add(2 * time.Second)
	for {
		if n := b.ReadPCM(dst); n > 0 {
			if dst[0] != 0.5 {
				t.Fatalf("unexpected sample %v", dst[0])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no PCM produced")
		}
		time.Sleep(time.Millisecond)
	}

	// The render goroutine publishes telemetry alongside the PCM.
	snapDeadline := time.Now().Add(2 * time.Second)
	for b.TakeSnapshot() == nil {
		if time.Now().After(snapDeadline) {
			t.Fatal("no telemetry produced")
		}
		time.Sleep(time.Millisecond)
	}

	// Keep draining until the module runs dry.
	go func() {
		buf := make([]float32, 4096)
		for i := 0; i < 1000; i++ {
			b.ReadPCM(buf)
			time.Sleep(time.Millisecond)
		}
	}()
	waitEvent(t, b.Events(), EventSongEnd)
}

func TestIsolatedLoadFailureThenRecovery(t *testing.T) {
	dec := &fakeDecoder{frames: 3000}
	b := NewIsolated(dec, 48000)
	defer b.Close()

	b.Load([]byte("corrupt"))
	waitEvent(t, b.Events(), EventLoadFailed)

	b.Load([]byte("song"))
	waitEvent(t, b.Events(), EventReady)
}

func TestIsolatedStopBetweenFills(t *testing.T) {
	dec := &fakeDecoder{frames: 1 << 30}
	b := NewIsolated(dec, 48000)
	defer b.Close()

	b.Load([]byte("song"))
	waitEvent(t, b.Events(), EventReady)

	b.Stop()
	b.Stop() // idempotent

	// The render goroutine processes both stops between fills; wait for
	// the close rather than sleeping a fixed amount.
	m := dec.lastMod.Load()
	deadline := time.Now().Add(2 * time.Second)
	for m.closed.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("module never closed after stop")
		}
		time.Sleep(time.Millisecond)
	}
	// Grace window so a second close would still be caught.
	time.Sleep(10 * time.Millisecond)
	if got := m.closed.Load(); got != 1 {
		t.Fatalf("module closed %d times, want 1", got)
	}
}
