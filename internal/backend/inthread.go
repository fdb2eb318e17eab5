package backend

import (
	"sync/atomic"

	"github.com/feralsun/modvis-go/moddec"
	"github.com/feralsun/modvis-go/telemetry"
)

// telemetryStride subsamples extraction in the in-loop strategy: one
// extraction every N fills. Lower telemetry resolution, but every call
// happens on the consumer's own goroutine, so there is nothing to
// synchronize with besides the PCM ring.
const telemetryStride = 4

// InThread renders synchronously inside the consumer's update loop:
// Step decodes the frames the elapsed time calls for and pushes them
// to the ring the output device drains. Everything except ReadPCM runs
// on the controller goroutine.
type InThread struct {
	dec        moddec.Decoder
	sampleRate int
	events     chan Event
	ring       *ring
	snap       atomic.Pointer[telemetry.Snapshot]

	sess    *session
	ended   bool
	carry   float64 // fractional frames owed from previous steps
	fills   int
	stopped bool
}

func NewInThread(dec moddec.Decoder, sampleRate int) *InThread {
	return &InThread{
		dec:        dec,
		sampleRate: sampleRate,
		events:     make(chan Event, 16),
		ring:       newRing(ringFrames * 2),
	}
}

// Load decodes synchronously (this strategy has no other thread to do
// it on) but still reports through the event channel so the controller
// handles both strategies identically.
func (b *InThread) Load(data []byte) {
	b.teardown()
	sess, err := newSession(b.dec, data)
	if err != nil {
		b.send(Event{Kind: EventLoadFailed})
		return
	}
	b.sess = sess
	b.ended = false
	b.stopped = false
	b.send(Event{Kind: EventReady, Title: sess.module.Metadata("title")})
}

// Stop is idempotent: the guard flag makes a second call, or a Step
// racing an earlier Stop, a no-op on an already-released session.
func (b *InThread) Stop() {
	if b.stopped {
		return
	}
	b.stopped = true
	b.teardown()
}

// Step renders the stereo frames dt seconds call for, capped by ring
// space. Extraction runs every telemetryStride-th invocation only.
func (b *InThread) Step(dt float64) {
	if b.sess == nil || b.ended || dt <= 0 {
		return
	}
	want := dt*float64(b.sampleRate) + b.carry
	frames := int(want)
	b.carry = want - float64(frames)

	for frames > 0 {
		free := b.ring.writable() / 2
		if free == 0 {
			break // device is behind; drop the remainder of this step
		}
		chunk := frames
		if chunk > free {
			chunk = free
		}
		n := b.sess.fill(b.ring, b.sampleRate, chunk)
		if n == 0 {
			b.ended = true
			b.send(Event{Kind: EventSongEnd})
			return
		}
		frames -= n
	}

	b.fills++
	if b.fills%telemetryStride == 0 {
		b.snap.Store(b.sess.extract())
	}
}

// TakeSnapshot claims the latest telemetry snapshot, or nil when none
// arrived since the previous call.
func (b *InThread) TakeSnapshot() *telemetry.Snapshot {
	return b.snap.Swap(nil)
}

func (b *InThread) Events() <-chan Event { return b.events }

// ReadPCM fills dst from the ring, padding with silence. Device
// goroutine only; it never touches the session.
func (b *InThread) ReadPCM(dst []float32) int {
	n := b.ring.pop(dst)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	return n
}

func (b *InThread) Close() {
	b.stopped = true
	b.teardown()
}

func (b *InThread) send(ev Event) {
	select {
	case b.events <- ev:
	default:
	}
}

func (b *InThread) teardown() {
	if b.sess != nil {
		b.sess.close()
		b.sess = nil
	}
	b.ended = false
	b.carry = 0
	b.snap.Store(nil)
}
