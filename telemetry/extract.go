package telemetry

import (
	"github.com/feralsun/modvis-go/internal/patcache"
	"github.com/feralsun/modvis-go/moddec"
)

// Extractor produces raw Snapshots from a live module and its pattern
// cache. It is owned by whichever goroutine drives frame production.
// Each Extract allocates a fresh Snapshot that is never mutated again,
// so the result can cross a goroutine boundary as-is.
type Extractor struct {
	cache    *patcache.Cache
	channels int
}

// NewExtractor pairs a freshly built cache with its module's channel
// count.
func NewExtractor(cache *patcache.Cache) *Extractor {
	return &Extractor{cache: cache, channels: cache.Channels()}
}

// Extract reads the engine's current position and decodes the current
// row into a new Snapshot. A channel whose cell carries no note token
// keeps Note == "" and is not considered triggered, but its level is
// still reported so sustained channels stay visible.
func (e *Extractor) Extract(m moddec.Module) *Snapshot {
	order := m.CurrentOrder()
	row := m.CurrentRow()
	cells := e.cache.Lookup(order, row)

	snap := &Snapshot{
		BPM:      m.EstimatedBPM(),
		Order:    order,
		Row:      row,
		Channels: make([]ChannelSnapshot, e.channels),
	}
	for ch := 0; ch < e.channels; ch++ {
		cs := &snap.Channels[ch]
		cs.Level = clamp01(m.ChannelLevel(ch))
		if ch < len(cells) && cells[ch] != "" {
			cs.Note, cs.Instrument, cs.Effect, cs.EffectValue = decodeCell(cells[ch])
			if cs.Note != "" {
				cs.Freq = NoteToFreq(cs.Note)
			}
		} else {
			cs.Instrument = -1
		}
	}
	return snap
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
