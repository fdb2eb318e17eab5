package telemetry

import (
	"math"
	"strconv"
	"strings"
)

// Semitone offsets within an octave, keyed by note letter.
var noteSemitones = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// NoteToFreq converts a note token like "A4", "C#5" or "F-3" to its
// equal-tempered frequency relative to A4 = 440 Hz. Unrecognized
// strings return 0.
func NoteToFreq(note string) float64 {
	midi, ok := noteToMIDI(note)
	if !ok {
		return 0
	}
	return 440 * math.Pow(2, float64(midi-69)/12)
}

// noteToMIDI parses [A-G](#|-)?digit. The optional '-' is the blank
// accidental trackers print between letter and octave.
func noteToMIDI(note string) (int, bool) {
	if len(note) < 2 || len(note) > 3 {
		return 0, false
	}
	semi, ok := noteSemitones[note[0]]
	if !ok {
		return 0, false
	}
	rest := note[1:]
	switch rest[0] {
	case '#':
		semi++
		rest = rest[1:]
	case '-':
		rest = rest[1:]
	}
	if len(rest) != 1 || rest[0] < '0' || rest[0] > '9' {
		return 0, false
	}
	octave := int(rest[0] - '0')
	return (octave+1)*12 + semi, true
}

// decodeCell splits one formatted pattern cell into its note,
// instrument and effect tokens. A cell looks like "C-5 01 A0F"; any of
// the three parts may be missing. The effect token is the trailing
// two- or three-hex-digit command code.
func decodeCell(cell string) (note string, instrument int, effect EffectKind, effectValue float64) {
	instrument = -1
	fields := strings.Fields(cell)
	if len(fields) == 0 {
		return "", -1, EffectNone, 0
	}
	if _, ok := noteToMIDI(fields[0]); ok {
		note = fields[0]
		fields = fields[1:]
	}
	if len(fields) > 0 {
		if n, err := strconv.Atoi(fields[0]); err == nil {
			instrument = n
			fields = fields[1:]
		}
	}
	if len(fields) > 0 {
		effect, effectValue = classifyEffect(fields[len(fields)-1])
	}
	return note, instrument, effect, effectValue
}

// classifyEffect maps a hex effect token onto the closed EffectKind
// enumeration. Tokens are the trailing command code of a cell: a
// command nibble followed by one or two parameter digits ("A8",
// "A0F"). Unrecognized commands become EffectOther with the raw value
// preserved as intensity; anything that is not a hex token is
// EffectNone.
func classifyEffect(tok string) (EffectKind, float64) {
	if len(tok) != 2 && len(tok) != 3 {
		return EffectNone, 0
	}
	raw, err := strconv.ParseUint(tok, 16, 16)
	if err != nil {
		return EffectNone, 0
	}
	paramBits := uint(4 * (len(tok) - 1))
	cmd := raw >> paramBits
	paramMax := float64(uint64(1)<<paramBits - 1)
	param := float64(raw&uint64(1<<paramBits-1)) / paramMax
	switch cmd {
	case 0x3:
		return EffectTonePortamento, param
	case 0x7:
		return EffectTremolo, param
	case 0xa:
		return EffectVolumeSlide, param
	case 0xe:
		// E9x / E9 is the retrigger subcommand.
		if (len(tok) == 3 && tok[1] == '9') || (len(tok) == 2 && raw&0x0f == 0x9) {
			return EffectRetrigger, 1
		}
	}
	rawMax := float64(uint64(1)<<(paramBits+4) - 1)
	return EffectOther, float64(raw) / rawMax
}
