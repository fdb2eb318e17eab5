// Package backend implements the two interchangeable audio rendering
// strategies: an isolated render goroutine and an in-loop synchronous
// fill. Both decode stereo PCM into a lock-free ring drained by the
// output device, report lifecycle over a buffered event channel, and
// publish telemetry snapshots to a latest-wins mailbox.
package backend

import (
	"github.com/feralsun/modvis-go/internal/patcache"
	"github.com/feralsun/modvis-go/moddec"
	"github.com/feralsun/modvis-go/telemetry"
)

// EventKind identifies backend-to-controller lifecycle messages.
type EventKind int

const (
	// EventReady: the module decoded and the pattern cache is built.
	EventReady EventKind = iota
	// EventLoadFailed: the decoder rejected the bytes. The controller
	// treats this exactly like EventSongEnd.
	EventLoadFailed
	// EventSongEnd: the decoder produced zero frames.
	EventSongEnd
)

// Event is one backend-to-controller lifecycle message. Title carries
// the module's title metadata on EventReady and is empty otherwise.
type Event struct {
	Kind  EventKind
	Title string
}

// Backend is the shared strategy contract.
//
// Load and Stop are asynchronous from the caller's point of view:
// results arrive on Events. Stop is idempotent and safe to call at any
// time, including concurrently with an in-flight fill. Step drives the
// in-loop strategy and is a no-op for the isolated one. ReadPCM is the
// output device's drain point and is safe from the device goroutine.
//
// Telemetry travels separately from lifecycle events: snapshots are
// published to a depth-1 latest-wins mailbox read by TakeSnapshot.
// Only the newest snapshot matters to the consumer, and this way a
// burst of telemetry can never crowd a SONG_END out of the event
// channel.
type Backend interface {
	Load(data []byte)
	Stop()
	Step(dt float64)
	ReadPCM(dst []float32) int
	Events() <-chan Event
	TakeSnapshot() *telemetry.Snapshot
	Close()
}

// renderChunk is the fill granularity in stereo frames. Telemetry is
// extracted at most once per chunk.
const renderChunk = 1024

// ringFrames is the PCM ring capacity in stereo frames (~85 ms at
// 48 kHz): enough to ride out scheduling jitter, small enough that a
// stop drains quickly.
const ringFrames = 4096

// session is the per-load state shared by both strategies: the live
// module handle, its pattern cache and extractor, and the scratch
// buffers. Scratch is allocated exactly once per load and dropped as a
// whole on stop, so the fill path itself never allocates.
type session struct {
	module      moddec.Module
	extractor   *telemetry.Extractor
	left, right []float32
	mix         []float32
}

func newSession(dec moddec.Decoder, data []byte) (*session, error) {
	m, err := dec.Open(data)
	if err != nil {
		return nil, err
	}
	cache := patcache.Build(m)
	return &session{
		module:    m,
		extractor: telemetry.NewExtractor(cache),
		left:      make([]float32, renderChunk),
		right:     make([]float32, renderChunk),
		mix:       make([]float32, renderChunk*2),
	}, nil
}

// fill renders up to maxFrames stereo frames into r and reports how
// many frames the decoder produced. Zero frames means end of track.
func (s *session) fill(r *ring, sampleRate, maxFrames int) int {
	if maxFrames > renderChunk {
		maxFrames = renderChunk
	}
	n := s.module.ReadStereoFrames(sampleRate, maxFrames, s.left, s.right)
	if n == 0 {
		return 0
	}
	for i := 0; i < n; i++ {
		s.mix[i*2] = s.left[i]
		s.mix[i*2+1] = s.right[i]
	}
	r.push(s.mix[:n*2])
	return n
}

func (s *session) extract() *telemetry.Snapshot {
	return s.extractor.Extract(s.module)
}

func (s *session) close() {
	if s.module != nil {
		s.module.Close()
		s.module = nil
	}
	s.left, s.right, s.mix = nil, nil, nil
}
