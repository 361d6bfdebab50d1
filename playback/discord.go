package playback

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"sync"

	"github.com/bwmarrin/discordgo"
	"layeh.com/gopus"

	"github.com/redwell-labs/rto-dispatch-service/audio"
)

const (
	frameSize  = 960 // 20ms at 48kHz
	frameBytes = frameSize * audio.Channels * audio.SampleBytes
)

// VoiceDevice encodes PCM to opus and streams it to a Discord voice
// connection in 20ms frames. The OpusSend channel paces delivery; playback
// completes when the final frame has been handed off.
type VoiceDevice struct {
	mu      sync.Mutex
	vc      *discordgo.VoiceConnection
	encoder *gopus.Encoder
	stop    chan struct{}
}

// NewVoiceDevice creates a playback device over an open voice connection.
func NewVoiceDevice(vc *discordgo.VoiceConnection) (*VoiceDevice, error) {
	encoder, err := gopus.NewEncoder(audio.SampleRate, audio.Channels, gopus.Voip)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	return &VoiceDevice{vc: vc, encoder: encoder}, nil
}

// Play streams pcm to the voice connection, blocking until the last frame
// is sent, ctx is cancelled, or Stop is called.
func (d *VoiceDevice) Play(ctx context.Context, pcm []byte) error {
	d.mu.Lock()
	stop := make(chan struct{})
	d.stop = stop
	d.mu.Unlock()

	if err := d.vc.Speaking(true); err != nil {
		return fmt.Errorf("could not signal speaking: %w", err)
	}
	defer func() {
		if err := d.vc.Speaking(false); err != nil {
			log.Printf("[PLAYBACK] Speaking(false) error: %v", err)
		}
	}()

	samples := bytesToSamples(pcm)
	step := frameSize * audio.Channels
	for off := 0; off < len(samples); off += step {
		frame := make([]int16, step)
		copy(frame, samples[off:min(off+step, len(samples))])

		opus, err := d.encoder.Encode(frame, frameSize, frameBytes)
		if err != nil {
			return fmt.Errorf("failed to encode frame: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case d.vc.OpusSend <- opus:
		}
	}
	return nil
}

// Stop interrupts the in-flight Play, if any.
func (d *VoiceDevice) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
}

func bytesToSamples(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/audio.SampleBytes)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*audio.SampleBytes:]))
	}
	return samples
}
