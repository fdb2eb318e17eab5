// Package demotone is a built-in stand-in for the native decoding
// engine: a fixed four-channel arpeggio song rendered with simple sine
// voices. It lets the demo programs and offline tests drive the whole
// playback and telemetry pipeline without a real tracker decoder. It
// parses nothing and is not a module format implementation.
package demotone

import (
	"math"
	"strings"

	"github.com/feralsun/modvis-go/moddec"
)

const (
	bpm      = 125
	channels = 4
	rows     = 16
)

// Two patterns, played as orders [0 1 0 1]. Cells use the usual
// "note instrument effect" text so the telemetry decoder has something
// real to chew on.
var patterns = [2][rows][channels]string{
	{
		{"C-2 01 A08", "C-4 02", "E-4 03", ""},
		{"", "", "", "G-5 04 37"},
		{"", "E-4 02", "G-4 03", ""},
		{"", "", "", ""},
		{"C-2 01", "G-4 02", "C-5 03", ""},
		{"", "", "", "E-5 04"},
		{"", "E-4 02", "G-4 03", ""},
		{"", "", "", ""},
		{"G-1 01 A04", "C-4 02", "E-4 03", ""},
		{"", "", "", "C-6 04 E9"},
		{"", "E-4 02", "G-4 03", ""},
		{"", "", "", ""},
		{"C-2 01", "G-4 02", "C-5 03", ""},
		{"", "", "", "G-5 04"},
		{"", "E-4 02", "G-4 03", ""},
		{"", "", "", "7F"},
	},
	{
		{"A-1 01 A08", "A-3 02", "C-4 03", ""},
		{"", "", "", "E-5 04"},
		{"", "C-4 02", "E-4 03", ""},
		{"", "", "", ""},
		{"A-1 01", "E-4 02", "A-4 03", ""},
		{"", "", "", "C-5 04 37"},
		{"", "C-4 02", "E-4 03", ""},
		{"", "", "", ""},
		{"F-1 01 A04", "A-3 02", "C-4 03", ""},
		{"", "", "", "A-5 04"},
		{"", "C-4 02", "F-4 03", ""},
		{"", "", "", ""},
		{"G-1 01", "D-4 02", "G-4 03", ""},
		{"", "", "", "B-5 04 E9"},
		{"", "D-4 02", "G-4 03", ""},
		{"", "", "", "AC"},
	},
}

var orderList = []int{0, 1, 0, 1}

// Decoder ignores the input bytes and always yields the demo song.
type Decoder struct{}

func New() Decoder { return Decoder{} }

func (Decoder) Open(data []byte) (moddec.Module, error) {
	return &module{}, nil
}

type voice struct {
	freq  float64
	phase float64
	env   float64
}

type module struct {
	frame  int64 // frames rendered so far
	rowPos int   // absolute row the voices were last triggered on
	voices [channels]voice
	closed bool
}

// Seconds per row at standard 4 rows per beat.
const rowSeconds = 60.0 / (bpm * 4)

func totalRows() int { return len(orderList) * rows }

func (m *module) Close() { m.closed = true }

func (m *module) ReadStereoFrames(sampleRate, frames int, left, right []float32) int {
	if m.closed {
		return 0
	}
	samplesPerRow := rowSeconds * float64(sampleRate)
	n := 0
	for ; n < frames; n++ {
		absRow := int(float64(m.frame) / samplesPerRow)
		if absRow >= totalRows() {
			break // song over
		}
		if absRow >= m.rowPos {
			m.trigger(absRow)
			m.rowPos = absRow + 1
		}
		var l, r float32
		for ch := range m.voices {
			v := &m.voices[ch]
			if v.env <= 0.0001 {
				continue
			}
			s := float32(math.Sin(v.phase)*v.env) * 0.2
			v.phase += 2 * math.Pi * v.freq / float64(sampleRate)
			v.env *= 1 - 3.0/float64(sampleRate)
			// odd channels lean right, even lean left
			if ch%2 == 0 {
				l += s
				r += s * 0.6
			} else {
				l += s * 0.6
				r += s
			}
		}
		left[n], right[n] = l, r
		m.frame++
	}
	return n
}

// trigger starts the voices whose cell on absRow carries a note.
func (m *module) trigger(absRow int) {
	order := absRow / rows
	row := absRow % rows
	for ch := 0; ch < channels; ch++ {
		cell := patterns[orderList[order]][row][ch]
		note, ok := leadingNote(cell)
		if !ok {
			continue
		}
		m.voices[ch].freq = noteFreq(note)
		m.voices[ch].env = 1
		m.voices[ch].phase = 0
	}
}

func (m *module) Metadata(key string) string {
	if key == "title" {
		return "demotone arpeggio"
	}
	return ""
}

func (m *module) CurrentOrder() int {
	return m.currentAbsRow() / rows
}

func (m *module) CurrentRow() int {
	return m.currentAbsRow() % rows
}

func (m *module) currentAbsRow() int {
	r := m.rowPos - 1
	if r < 0 {
		r = 0
	}
	if r >= totalRows() {
		r = totalRows() - 1
	}
	return r
}

func (m *module) EstimatedBPM() float64 { return bpm }
func (m *module) NumOrders() int        { return len(orderList) }
func (m *module) NumPatterns() int      { return len(patterns) }
func (m *module) NumChannels() int      { return channels }

func (m *module) OrderPattern(order int) int {
	if order < 0 || order >= len(orderList) {
		return -1
	}
	return orderList[order]
}

func (m *module) PatternRows(pattern int) int { return rows }

func (m *module) FormatPatternCell(pattern, row, channel int) string {
	if pattern < 0 || pattern >= len(patterns) || row < 0 || row >= rows || channel < 0 || channel >= channels {
		return ""
	}
	return patterns[pattern][row][channel]
}

func (m *module) ChannelLevel(channel int) float64 {
	if channel < 0 || channel >= channels {
		return 0
	}
	return m.voices[channel].env
}

func leadingNote(cell string) (string, bool) {
	f := strings.Fields(cell)
	if len(f) == 0 {
		return "", false
	}
	tok := f[0]
	if len(tok) == 3 && tok[0] >= 'A' && tok[0] <= 'G' && (tok[1] == '-' || tok[1] == '#') {
		return tok, true
	}
	return "", false
}

// noteFreq is a local equal-tempered conversion; the demo module must
// not depend on the telemetry package it exists to feed.
func noteFreq(note string) float64 {
	semis := map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}
	semi := semis[note[0]]
	if note[1] == '#' {
		semi++
	}
	octave := int(note[2] - '0')
	midi := (octave+1)*12 + semi
	return 440 * math.Pow(2, float64(midi-69)/12)
}
