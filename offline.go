package modvis

import (
	"encoding/binary"
	"math"

	"github.com/feralsun/modvis-go/moddec"
)

// RenderSamples decodes up to seconds of a module offline, without an
// output device, and returns interleaved stereo samples. Rendering
// stops early when the song ends.
func RenderSamples(dec moddec.Decoder, data []byte, sampleRate int, seconds float64) ([]float32, error) {
	m, err := dec.Open(data)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	const chunk = 1024
	left := make([]float32, chunk)
	right := make([]float32, chunk)

	remaining := int(float64(sampleRate) * seconds)
	out := make([]float32, 0, remaining*2)
	for remaining > 0 {
		want := chunk
		if want > remaining {
			want = remaining
		}
		n := m.ReadStereoFrames(sampleRate, want, left, right)
		if n == 0 {
			break
		}
		for i := 0; i < n; i++ {
			out = append(out, left[i], right[i])
		}
		remaining -= n
	}
	return out, nil
}

// EncodeWAVFloat32LE wraps samples in a float32 little-endian WAV
// container.
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	const headerLen = 44
	le := binary.LittleEndian
	dataSize := len(samples) * 4

	out := make([]byte, headerLen, headerLen+dataSize)
	copy(out, "RIFF")
	le.PutUint32(out[4:], uint32(headerLen-8+dataSize))
	copy(out[8:], "WAVE")

	copy(out[12:], "fmt ")
	le.PutUint32(out[16:], 16)                        // fmt chunk size
	le.PutUint16(out[20:], 3)                         // IEEE float
	le.PutUint16(out[22:], uint16(channels))
	le.PutUint32(out[24:], uint32(sampleRate))
	le.PutUint32(out[28:], uint32(sampleRate*channels*4)) // byte rate
	le.PutUint16(out[32:], uint16(channels*4))            // block align
	le.PutUint16(out[34:], 32)                            // bits per sample

	copy(out[36:], "data")
	le.PutUint32(out[40:], uint32(dataSize))

	var word [4]byte
	for _, s := range samples {
		le.PutUint32(word[:], math.Float32bits(s))
		out = append(out, word[:]...)
	}
	return out
}
