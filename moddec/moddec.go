// Package moddec defines the contract with the module-decoding engine.
//
// The engine itself is an external collaborator: it parses tracker files
// and produces PCM on demand. This package only pins down the call
// surface the playback layer relies on, so the engine can be a native
// libopenmpt binding, a pure-Go decoder, or a test fake.
package moddec

import "errors"

// ErrDecode is returned by Decoder.Open when the engine rejects the
// file bytes. The playback layer treats it as an immediate end-of-track
// and moves on to the next playlist entry.
var ErrDecode = errors.New("moddec: unrecognized or corrupt module data")

// Decoder creates Modules from raw file bytes.
type Decoder interface {
	// Open parses data and returns a playable module, or ErrDecode
	// (possibly wrapped) when the bytes are not a valid module.
	Open(data []byte) (Module, error)
}

// Module is one loaded tracker file. All methods are only safe from the
// single goroutine that drives frame production; the playback layer
// guarantees exactly one live Module per backend instance.
type Module interface {
	// Close releases the engine-side handle. The Module must not be
	// used afterwards.
	Close()

	// ReadStereoFrames renders up to frames stereo frames at sampleRate
	// into the planar left/right buffers and reports how many frames
	// were produced. Zero means the song has ended.
	ReadStereoFrames(sampleRate int, frames int, left, right []float32) int

	// Metadata returns a named metadata string ("title", "artist", ...)
	// or "" when the key is absent.
	Metadata(key string) string

	CurrentOrder() int
	CurrentRow() int
	EstimatedBPM() float64

	NumOrders() int
	NumPatterns() int
	NumChannels() int

	// OrderPattern resolves an order slot to its pattern index. Indices
	// outside [0, NumPatterns) mark skip/empty slots.
	OrderPattern(order int) int
	// PatternRows reports the row count of one pattern.
	PatternRows(pattern int) int
	// FormatPatternCell renders one cell ("C-5 01 A0F" style text).
	FormatPatternCell(pattern, row, channel int) string

	// ChannelLevel reports the instantaneous output level of one
	// channel in [0, 1].
	ChannelLevel(channel int) float64
}
