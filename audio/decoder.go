package audio

import (
	"encoding/binary"
	"fmt"

	"layeh.com/gopus"
)

const frameSize = 960 // 20ms frame at 48kHz

// Decoder converts a single speaker's opus frames into raw PCM bytes.
// One decoder per speaker; opus decode is stateful.
type Decoder struct {
	dec *gopus.Decoder
}

// NewDecoder creates an opus decoder at the session sample format.
func NewDecoder() (*Decoder, error) {
	dec, err := gopus.NewDecoder(SampleRate, Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}
	return &Decoder{dec: dec}, nil
}

// Decode returns the frame as little-endian 16-bit PCM bytes.
func (d *Decoder) Decode(opus []byte) ([]byte, error) {
	pcm, err := d.dec.Decode(opus, frameSize, false)
	if err != nil {
		return nil, fmt.Errorf("failed to decode opus: %w", err)
	}
	out := make([]byte, len(pcm)*SampleBytes)
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(out[i*SampleBytes:], uint16(s))
	}
	return out, nil
}
