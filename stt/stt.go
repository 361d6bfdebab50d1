// redwell-labs/rto-dispatch-service/stt/stt.go
package stt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/redwell-labs/rto-dispatch-service/audio"
)

// ErrNoSpeech is returned when the service recognized nothing usable in a
// chunk.
var ErrNoSpeech = errors.New("no speech recognized")

// STT is the Google Cloud speech-to-text client.
type STT struct {
	client   *speech.Client
	language string
}

// New creates a new Google Cloud Speech client. It relies on Application
// Default Credentials for authentication.
func New(ctx context.Context) (*STT, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return &STT{client: client, language: "en-US"}, nil
}

// Close cleans up the speech client connection.
func (s *STT) Close() {
	if s.client != nil {
		_ = s.client.Close()
	}
}

// Transcribe recognizes a single utterance chunk of raw LINEAR16 PCM. The
// chunk is wrapped in a WAV container so the service reads the sample
// format from the header.
func (s *STT) Transcribe(ctx context.Context, pcm []byte, sampleRate, channels int) (string, error) {
	resp, err := s.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:          speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:   int32(sampleRate),
			AudioChannelCount: int32(channels),
			LanguageCode:      s.language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio.EncodeWAV(pcm, sampleRate, channels)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("recognize request failed: %w", err)
	}

	var out strings.Builder
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		if out.Len() > 0 {
			out.WriteByte(' ')
		}
		out.WriteString(result.Alternatives[0].Transcript)
	}
	if out.Len() == 0 {
		return "", ErrNoSpeech
	}
	return out.String(), nil
}
