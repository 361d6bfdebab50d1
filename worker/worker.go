// Package worker runs the single transcription consumer between the audio
// receive path and the command interpreter.
package worker

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redwell-labs/rto-dispatch-service/audio"
	"github.com/redwell-labs/rto-dispatch-service/interfaces"
	logger "github.com/redwell-labs/rto-dispatch-service/log"
)

// DefaultQueueSize bounds the hand-off between packet ingestion and the
// consumer.
const DefaultQueueSize = 16

// pollInterval is how often the consumer wakes to observe shutdown while
// the queue is empty. It is a liveness check, not a deadline.
const pollInterval = 500 * time.Millisecond

// Transcript is a normalized utterance transcript ready for
// interpretation.
type Transcript struct {
	SpeakerID   string
	SpeakerName string
	Text        string
}

// Handler receives each successful transcript in queue order.
type Handler func(Transcript)

// Worker owns a bounded queue of utterance chunks and the single consumer
// that transcribes them one at a time. Producers never block on it.
type Worker struct {
	queue       chan audio.Chunk
	transcriber interfaces.Transcriber
	handle      Handler
}

// New creates a worker with the given queue capacity.
func New(queueSize int, transcriber interfaces.Transcriber, handle Handler) *Worker {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Worker{
		queue:       make(chan audio.Chunk, queueSize),
		transcriber: transcriber,
		handle:      handle,
	}
}

// Submit enqueues a chunk without blocking. When the queue is full the
// chunk is dropped and false is returned; audio ingestion must never stall
// waiting on transcription.
func (w *Worker) Submit(chunk audio.Chunk) bool {
	select {
	case w.queue <- chunk:
		return true
	default:
		log.Printf("[WORKER] Transcription queue full, dropping %d byte chunk from %s", len(chunk.PCM), chunk.SpeakerName)
		return false
	}
}

// Pending returns the number of queued chunks.
func (w *Worker) Pending() int {
	return len(w.queue)
}

// Run consumes the queue until ctx is cancelled, then discards whatever is
// left queued.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case chunk := <-w.queue:
			w.process(ctx, chunk)
		case <-time.After(pollInterval):
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case <-w.queue:
		default:
			return
		}
	}
}

// process transcribes one chunk. Failures are logged and the chunk is
// discarded; the next chunk supersedes it.
func (w *Worker) process(ctx context.Context, chunk audio.Chunk) {
	text, err := w.transcriber.Transcribe(ctx, chunk.PCM, chunk.SampleRate, chunk.Channels)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error(fmt.Sprintf("transcribing %d byte chunk from %s", len(chunk.PCM), chunk.SpeakerName), err)
		return
	}

	text = strings.ToUpper(strings.TrimSpace(text))
	if text == "" {
		return
	}

	w.handle(Transcript{
		SpeakerID:   chunk.SpeakerID,
		SpeakerName: chunk.SpeakerName,
		Text:        text,
	})
}
