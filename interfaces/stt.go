// redwell-labs/rto-dispatch-service/interfaces/stt.go
package interfaces

import "context"

// Transcriber is the interface for the speech-to-text module.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte, sampleRate, channels int) (string, error)
}
