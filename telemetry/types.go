// Package telemetry derives the audio-reactive signal set from a
// playing module: a raw per-tick snapshot extracted next to the
// decoder, and a smoothed VisualState the renderer polls once per
// display frame.
package telemetry

// EffectKind classifies the pattern effect command of one cell.
type EffectKind int

const (
	EffectNone EffectKind = iota
	EffectVolumeSlide
	EffectTonePortamento
	EffectTremolo
	EffectRetrigger
	EffectOther
)

func (k EffectKind) String() string {
	switch k {
	case EffectNone:
		return "none"
	case EffectVolumeSlide:
		return "volume-slide"
	case EffectTonePortamento:
		return "tone-portamento"
	case EffectTremolo:
		return "tremolo"
	case EffectRetrigger:
		return "retrigger"
	default:
		return "other"
	}
}

// ChannelSnapshot is the decoded state of one channel at one tick.
// Snapshots are produced fresh each tick and never mutated afterwards.
type ChannelSnapshot struct {
	Level       float64 // instantaneous output level, 0..1
	Note        string  // "" when the current cell carries no note
	Freq        float64 // equal-tempered frequency of Note, 0 when absent
	Instrument  int
	Effect      EffectKind
	EffectValue float64 // normalized effect intensity, 0..1
}

// Snapshot is one raw extraction result: the engine position plus the
// per-channel decode of the current row.
type Snapshot struct {
	BPM      float64
	Order    int
	Row      int
	Channels []ChannelSnapshot
}

// ChannelState is the smoothed, consumer-visible form of a channel:
// the last snapshot plus a decaying trigger envelope.
type ChannelState struct {
	ChannelSnapshot
	Trigger float64 // snaps to 1 on a fresh note, decays to 0
}

// VisualState is the externally visible telemetry. It is mutated only
// by Smoother.Tick and must be treated as read-only by consumers. The
// Channels slice grows to the widest module seen and never shrinks;
// entries beyond the current module's channel count are simply unused.
type VisualState struct {
	BeatPhase    float64 // 0..1, wraps once per beat
	KickTrigger  float64 // 0..1, decays to 0
	GrooveAmount float64 // 0..1, decays toward a tempo-derived target
	BPM          float64
	PatternIndex int
	Row          int
	Channels     []ChannelState
}
