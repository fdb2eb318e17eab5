// Package modvis plays tracker modules and derives the smoothed,
// audio-reactive telemetry an external renderer polls once per frame.
//
// The Player is the single orchestration point: it owns the playlist,
// the volume ramp and the smoothed VisualState, and talks to the
// chosen rendering backend exclusively through messages. The actual
// module decoding is an external collaborator behind moddec.Decoder.
package modvis

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/feralsun/modvis-go/internal/audio"
	"github.com/feralsun/modvis-go/internal/backend"
	"github.com/feralsun/modvis-go/moddec"
	"github.com/feralsun/modvis-go/telemetry"
)

// Strategy selects how the backend schedules decoding.
type Strategy string

const (
	// StrategyIsolated decodes on a dedicated render goroutine.
	StrategyIsolated Strategy = "isolated"
	// StrategyInThread decodes synchronously inside Update.
	StrategyInThread Strategy = "inthread"
)

// Output selects the audio device.
type Output string

const (
	OutputNone   Output = "none" // telemetry only; Update discards PCM
	OutputEbiten Output = "ebiten"
	OutputOto    Output = "oto"
)

// PlaybackEvent is delivered on the Watch channel.
type PlaybackEvent struct {
	Kind  int // EventTrackStarted, EventTrackEnded, or EventLoadFailed
	Index int
	Name  string
}

const (
	EventTrackStarted int = iota
	EventTrackEnded
	EventLoadFailed
)

// Track is one playlist entry: raw module bytes plus a display name.
type Track struct {
	Name string
	Data []byte
}

type playState int

const (
	stateEmpty playState = iota
	stateLoading
	statePlaying
	stateStopping
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	strategy    Strategy
	output      Output
	eventBuffer int
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{strategy: StrategyIsolated, output: OutputNone, eventBuffer: 8}
}

func WithStrategy(s Strategy) PlayerOption {
	return func(cfg *playerConfig) { cfg.strategy = s }
}

func WithOutput(o Output) PlayerOption {
	return func(cfg *playerConfig) { cfg.output = o }
}

// WithEventBuffer sets the capacity of channels returned by Watch.
func WithEventBuffer(n int) PlayerOption {
	return func(cfg *playerConfig) {
		if n > 0 {
			cfg.eventBuffer = n
		}
	}
}

// Player coordinates the three timing domains: the backend's frame
// production, control operations (load/stop/advance), and the consumer
// polling telemetry via Update. All methods are safe for concurrent
// use; Update must be called from a single goroutine.
type Player struct {
	mu         sync.Mutex
	dec        moddec.Decoder
	sampleRate int
	backend    backend.Backend
	device     audio.Device
	gain       *gainRamp

	playlist     []Track
	currentIndex int
	st           playState
	volume       float64
	muted        bool
	failStreak   int
	nowPlaying   string
	trackTitle   string

	smoother *telemetry.Smoother
	onNote   func(note string, level float64, channel int)

	drain []float32 // headless PCM sink, allocated once

	eventCh     chan PlaybackEvent
	eventChMu   sync.Mutex
	eventBuffer int
}

// NewPlayer builds a Player around an external decode engine. With
// OutputNone the player runs headless and Update discards the PCM,
// keeping the telemetry pipeline live for visual-only use.
func NewPlayer(sampleRate int, dec moddec.Decoder, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	if dec == nil {
		return nil, errors.New("decoder must not be nil")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Player{
		dec:          dec,
		sampleRate:   sampleRate,
		gain:         newGainRamp(sampleRate),
		currentIndex: -1,
		volume:       1,
		smoother:     telemetry.NewSmoother(),
		drain:        make([]float32, sampleRate/10*2),
		eventBuffer:  cfg.eventBuffer,
	}

	strategy := cfg.strategy
	device, err := p.openDevice(cfg.output)
	if err != nil {
		// The worst outcome of a missing device is silence: fall back
		// rather than fail. Without a device draining the ring, the
		// isolated strategy would stall, so drop to in-thread.
		log.Printf("modvis: audio output %q unavailable (%v), continuing without device", cfg.output, err)
		device = nil
		if strategy == StrategyIsolated {
			log.Printf("modvis: falling back to in-thread rendering")
			strategy = StrategyInThread
		}
	}
	p.device = device

	switch strategy {
	case StrategyIsolated:
		p.backend = backend.NewIsolated(dec, sampleRate)
	case StrategyInThread:
		p.backend = backend.NewInThread(dec, sampleRate)
	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.strategy)
	}
	return p, nil
}

func (p *Player) openDevice(o Output) (audio.Device, error) {
	switch o {
	case OutputNone, "":
		return nil, nil
	case OutputEbiten:
		return audio.NewPlayer(p.sampleRate, sourceFunc(p.pull))
	case OutputOto:
		return audio.NewOtoPlayer(p.sampleRate, sourceFunc(p.pull))
	default:
		return nil, fmt.Errorf("unknown output %q", o)
	}
}

// sourceFunc adapts a pull function to audio.SampleSource.
type sourceFunc func(dst []float32)

func (f sourceFunc) Process(dst []float32) { f(dst) }

// pull runs on the device goroutine: drain the backend ring and apply
// the gain ramp. The backend pads with silence, so the device stream
// never ends.
func (p *Player) pull(dst []float32) {
	p.backend.ReadPCM(dst)
	p.gain.apply(dst)
}

// Update advances the player by dt seconds and returns the smoothed
// telemetry. Call once per display frame from a single goroutine; the
// returned pointer stays valid and is only mutated inside Update.
func (p *Player) Update(dt float64) *telemetry.VisualState {
	p.mu.Lock()
	p.drainBackendEvents()
	p.backend.Step(dt)
	p.drainBackendEvents()

	raw := p.backend.TakeSnapshot()
	fresh := p.smoother.Tick(raw, dt)
	state := p.smoother.State()

	type noteHit struct {
		note    string
		level   float64
		channel int
	}
	var hits []noteHit
	if p.onNote != nil {
		for _, ch := range fresh {
			hits = append(hits, noteHit{
				note:    state.Channels[ch].Note,
				level:   state.Channels[ch].Level,
				channel: ch,
			})
		}
	}
	onNote := p.onNote

	if p.device == nil {
		// Headless: keep the pipeline moving by discarding the PCM
		// the elapsed time corresponds to.
		want := int(dt*float64(p.sampleRate)) * 2
		for want > 0 {
			chunk := want
			if chunk > len(p.drain) {
				chunk = len(p.drain)
			}
			if p.backend.ReadPCM(p.drain[:chunk]) == 0 {
				break
			}
			want -= chunk
		}
	}
	p.mu.Unlock()

	// Callbacks run outside the lock so they may call back into the
	// player.
	for _, h := range hits {
		onNote(h.note, h.level, h.channel)
	}
	return state
}

// drainBackendEvents handles everything the backend posted since the
// last Update. Caller holds p.mu.
func (p *Player) drainBackendEvents() {
	for {
		select {
		case ev := <-p.backend.Events():
			switch ev.Kind {
			case backend.EventReady:
				p.handleReady(ev.Title)
			case backend.EventSongEnd:
				p.handleTrackEnd(false)
			case backend.EventLoadFailed:
				// A corrupt file is just an immediate end-of-track.
				p.handleTrackEnd(true)
			}
		default:
			return
		}
	}
}

func (p *Player) handleReady(title string) {
	if p.st != stateLoading {
		return
	}
	p.st = statePlaying
	p.failStreak = 0
	p.nowPlaying = p.playlist[p.currentIndex].Name
	p.trackTitle = title
	p.smoother.Reset()
	if p.device != nil {
		p.device.Play()
	}
	p.sendEvent(PlaybackEvent{Kind: EventTrackStarted, Index: p.currentIndex, Name: p.nowPlaying})
}

func (p *Player) handleTrackEnd(failed bool) {
	if p.st != statePlaying && p.st != stateLoading {
		return
	}
	kind := EventTrackEnded
	if failed {
		p.failStreak++
		kind = EventLoadFailed
	} else {
		p.failStreak = 0
	}
	p.sendEvent(PlaybackEvent{Kind: kind, Index: p.currentIndex, Name: p.playlist[p.currentIndex].Name})

	if failed && p.failStreak >= len(p.playlist) {
		// Every entry failed in one full cycle; stop instead of
		// spinning through the playlist forever.
		p.stopLocked()
		return
	}
	p.currentIndex = (p.currentIndex + 1) % len(p.playlist)
	p.loadCurrent()
}

// loadCurrent hands the current entry to the backend. Caller holds p.mu.
func (p *Player) loadCurrent() {
	entry := p.playlist[p.currentIndex]
	p.st = stateLoading
	p.backend.Load(entry.Data)
}

// AddToQueue appends tracks to the playlist. When nothing has ever
// played, the first entry starts loading immediately.
func (p *Player) AddToQueue(tracks ...Track) {
	p.mu.Lock()
	defer p.mu.Unlock()
	wasEmpty := len(p.playlist) == 0
	p.playlist = append(p.playlist, tracks...)
	if wasEmpty && p.st == stateEmpty && len(p.playlist) > 0 {
		p.currentIndex = 0
		p.loadCurrent()
	}
}

// PlayAtIndex jumps to playlist entry i and starts loading it.
func (p *Player) PlayAtIndex(i int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.playlist) {
		return fmt.Errorf("playlist index %d out of range (%d entries)", i, len(p.playlist))
	}
	p.backend.Stop()
	p.currentIndex = i
	p.loadCurrent()
	return nil
}

// Stop releases the backend's module and returns the player to the
// empty state. Safe to call at any time, any number of times.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.st == stateEmpty {
		return
	}
	p.st = stateStopping
	p.backend.Stop()
	if p.device != nil {
		p.device.Pause()
	}
	p.nowPlaying = ""
	p.trackTitle = ""
	p.st = stateEmpty
}

// Pause suspends the output device; backend state is untouched.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.device != nil {
		p.device.Pause()
	}
}

// Resume restarts the output device after Pause.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.device != nil && p.st == statePlaying {
		p.device.Play()
	}
}

// Close stops playback and releases the backend and device.
func (p *Player) Close() {
	p.Stop()
	p.backend.Close()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.device != nil {
		_ = p.device.Stop()
		p.device = nil
	}
}

// SetVolume sets the output volume in 0..1, smoothed over the ramp.
func (p *Player) SetVolume(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = v
	if !p.muted {
		p.gain.SetTarget(v)
	}
}

// Volume returns the configured volume (independent of mute).
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// ToggleMute flips the mute flag and returns the new value. The gain
// ramps to zero and back, so toggling never clicks.
func (p *Player) ToggleMute() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = !p.muted
	if p.muted {
		p.gain.SetTarget(0)
	} else {
		p.gain.SetTarget(p.volume)
	}
	return p.muted
}

// OnNote installs a callback fired once per fresh note per channel per
// telemetry tick. It runs on the Update goroutine, outside the
// player's lock.
func (p *Player) OnNote(fn func(note string, level float64, channel int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onNote = fn
}

// PlaylistLen returns the number of queued tracks.
func (p *Player) PlaylistLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.playlist)
}

// CurrentIndex returns the playlist position, -1 when nothing was ever
// selected.
func (p *Player) CurrentIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentIndex
}

// NowPlaying returns the display name of the playing entry, "" when
// idle.
func (p *Player) NowPlaying() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nowPlaying
}

// TrackTitle returns the playing module's title metadata, "" when idle
// or when the module carries none.
func (p *Player) TrackTitle() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.trackTitle
}

// Watch returns a channel receiving track lifecycle events. Buffered
// (WithEventBuffer, default 8); events are dropped rather than ever
// blocking Update. Only the most recent Watch channel receives events.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, p.eventBuffer)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}
