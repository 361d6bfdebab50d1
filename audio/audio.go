// Package audio handles the raw PCM side of the dispatcher: per-speaker
// accumulation into utterance chunks, opus decode on the receive path, and
// the container helpers shared by transcription and archival.
package audio

const (
	// SampleRate is the Discord voice PCM rate.
	SampleRate = 48000
	// Channels is the channel count of received and played audio.
	Channels = 2
	// SampleBytes is the width of one 16-bit sample.
	SampleBytes = 2
)

// BytesPerSecond is the size of one second of raw PCM at the session format.
const BytesPerSecond = SampleRate * Channels * SampleBytes

// Chunk is an immutable snapshot of one speaker's accumulated audio. It is
// the unit of transcription and is consumed exactly once.
type Chunk struct {
	SpeakerID   string
	SpeakerName string
	PCM         []byte
	SampleRate  int
	Channels    int
}

// MonoToStereo duplicates each 16-bit mono sample into both channels.
func MonoToStereo(pcm []byte) []byte {
	out := make([]byte, 0, len(pcm)*2)
	for i := 0; i+1 < len(pcm); i += SampleBytes {
		out = append(out, pcm[i], pcm[i+1], pcm[i], pcm[i+1])
	}
	return out
}
