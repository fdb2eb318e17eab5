package backend

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/feralsun/modvis-go/moddec"
	"github.com/feralsun/modvis-go/telemetry"
)

type cmdKind int

const (
	cmdLoad cmdKind = iota
	cmdStop
)

type command struct {
	kind cmdKind
	data []byte
}

// Isolated runs decoding and telemetry extraction on a dedicated
// render goroutine. The controller talks to it exclusively through the
// command and event channels; the output device drains the PCM ring.
// Nothing on the render path takes a lock shared with either side.
type Isolated struct {
	dec        moddec.Decoder
	sampleRate int

	cmds   chan command
	events chan Event
	ring   *ring
	snap   atomic.Pointer[telemetry.Snapshot]

	done      chan struct{}
	closeOnce sync.Once

	// Owned by the render goroutine. Stop and Load execute there too,
	// between fills, so the nil check on sess doubles as the
	// double-stop guard: a fill can never race a stop.
	sess  *session
	ended bool
}

func NewIsolated(dec moddec.Decoder, sampleRate int) *Isolated {
	b := &Isolated{
		dec:        dec,
		sampleRate: sampleRate,
		cmds:       make(chan command, 8),
		events:     make(chan Event, 8),
		ring:       newRing(ringFrames * 2),
		done:       make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Isolated) Load(data []byte) {
	b.post(command{kind: cmdLoad, data: data})
}

func (b *Isolated) Stop() {
	b.post(command{kind: cmdStop})
}

// Step is a no-op: the render goroutine paces itself.
func (b *Isolated) Step(dt float64) {}

func (b *Isolated) Events() <-chan Event { return b.events }

// TakeSnapshot claims the latest telemetry snapshot, or nil when none
// arrived since the previous call.
func (b *Isolated) TakeSnapshot() *telemetry.Snapshot {
	return b.snap.Swap(nil)
}

// ReadPCM fills dst from the ring, padding with silence, and reports
// how many real samples were present. Device goroutine only.
func (b *Isolated) ReadPCM(dst []float32) int {
	n := b.ring.pop(dst)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	return n
}

func (b *Isolated) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

func (b *Isolated) post(c command) {
	select {
	case b.cmds <- c:
	case <-b.done:
	}
}

// send delivers an event without ever blocking the render goroutine;
// if the controller is not draining, the event is dropped.
func (b *Isolated) send(ev Event) {
	select {
	case b.events <- ev:
	default:
	}
}

func (b *Isolated) run() {
	for {
		// Commands are handled between fills, never mid-fill.
		select {
		case <-b.done:
			b.teardown()
			return
		case cmd := <-b.cmds:
			b.handle(cmd)
			continue
		default:
		}

		if b.sess == nil || b.ended {
			// Idle: park until the controller says otherwise.
			select {
			case <-b.done:
				b.teardown()
				return
			case cmd := <-b.cmds:
				b.handle(cmd)
			}
			continue
		}

		if b.ring.writable() < renderChunk*2 {
			time.Sleep(time.Millisecond)
			continue
		}
		n := b.sess.fill(b.ring, b.sampleRate, renderChunk)
		if n == 0 {
			// End of track: report once and go silent instead of
			// looping internally. The controller decides what is next.
			b.ended = true
			b.send(Event{Kind: EventSongEnd})
			continue
		}
		b.snap.Store(b.sess.extract())
	}
}

func (b *Isolated) handle(cmd command) {
	switch cmd.kind {
	case cmdLoad:
		b.teardown()
		sess, err := newSession(b.dec, cmd.data)
		if err != nil {
			b.send(Event{Kind: EventLoadFailed})
			return
		}
		b.sess = sess
		b.ended = false
		b.send(Event{Kind: EventReady, Title: sess.module.Metadata("title")})
	case cmdStop:
		b.teardown()
	}
}

func (b *Isolated) teardown() {
	if b.sess != nil {
		b.sess.close()
		b.sess = nil
	}
	b.ended = false
	b.snap.Store(nil)
}
