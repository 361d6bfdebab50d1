// redwell-labs/rto-dispatch-service/tts/tts.go
package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"

	"github.com/redwell-labs/rto-dispatch-service/audio"
)

// TTS is the Google Cloud text-to-speech client. Synthesize returns raw
// 48kHz stereo s16le PCM ready for the playback device.
type TTS struct {
	client   *texttospeech.Client
	language string
}

// New creates a new Google Cloud Text-to-Speech client using Application
// Default Credentials.
func New(ctx context.Context) (*TTS, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create text-to-speech client: %w", err)
	}
	return &TTS{client: client, language: "en-US"}, nil
}

// Close cleans up the client connection.
func (t *TTS) Close() {
	if t.client != nil {
		_ = t.client.Close()
	}
}

// Synthesize converts text to PCM using the named voice.
func (t *TTS) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("nothing to synthesize")
	}

	resp, err := t.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: t.language,
			Name:         voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
			SampleRateHertz: int32(audio.SampleRate),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize request failed: %w", err)
	}

	// LINEAR16 output arrives in a RIFF container as mono; the playback
	// device expects raw stereo.
	pcm := audio.StripWAV(resp.AudioContent)
	return audio.MonoToStereo(pcm), nil
}
