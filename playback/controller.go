// Package playback serializes all spoken output onto the shared voice
// connection.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redwell-labs/rto-dispatch-service/interfaces"
	logger "github.com/redwell-labs/rto-dispatch-service/log"
)

// Device is the single shared audio output.
type Device interface {
	// Play blocks until the audio has fully played, ctx is cancelled, or
	// Stop is called.
	Play(ctx context.Context, pcm []byte) error
	// Stop interrupts the in-flight Play, if any.
	Stop()
}

// Controller is the sole entry point for audio output. Speak calls are
// serialized system-wide so two command replies can never overlap on the
// device.
type Controller struct {
	mu     sync.Mutex
	synth  interfaces.Synthesizer
	device Device
	voice  string
}

// NewController creates a controller speaking through device with the
// given synthesizer voice.
func NewController(synth interfaces.Synthesizer, device Device, voice string) *Controller {
	return &Controller{synth: synth, device: device, voice: voice}
}

// Speak synthesizes text and plays it, blocking until playback finishes or
// ctx is cancelled. Synthesis and playback failures are logged and
// swallowed; a failed announcement never takes the session down.
func (c *Controller) Speak(ctx context.Context, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	pcm, err := c.synth.Synthesize(ctx, text, c.voice)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error(fmt.Sprintf("synthesizing %q", text), err)
		}
		return
	}

	// A prior playback can only still be holding the device if it
	// outlived its Speak call; clear it before starting the new one.
	c.device.Stop()

	if err := c.device.Play(ctx, pcm); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(fmt.Sprintf("playing %q", text), err)
	}
}
