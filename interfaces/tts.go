// redwell-labs/rto-dispatch-service/interfaces/tts.go
package interfaces

import "context"

// Synthesizer is the interface for the text-to-speech module. The returned
// audio is raw s16le PCM at the session sample format.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}
