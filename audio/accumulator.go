package audio

import (
	"sync"
)

// DefaultChunkSeconds is the target utterance duration. Long enough for a
// usable radio call, short enough that dispatch replies stay responsive.
const DefaultChunkSeconds = 3

// Accumulator collects raw PCM per speaker and hands a Chunk to its sink
// once a speaker's buffer reaches the chunk threshold. Appends for distinct
// speakers may run concurrently; the transport delivers each speaker's
// packets single-threaded and in order.
type Accumulator struct {
	mu        sync.Mutex
	threshold int
	buffers   map[string]*speakerBuffer
	sink      func(Chunk)
}

type speakerBuffer struct {
	name string
	pcm  []byte
}

// NewAccumulator creates an accumulator that emits chunks of roughly
// chunkSeconds of audio through sink.
func NewAccumulator(chunkSeconds int, sink func(Chunk)) *Accumulator {
	if chunkSeconds <= 0 {
		chunkSeconds = DefaultChunkSeconds
	}
	return &Accumulator{
		threshold: chunkSeconds * BytesPerSecond,
		buffers:   make(map[string]*speakerBuffer),
		sink:      sink,
	}
}

// Threshold returns the chunk size in bytes.
func (a *Accumulator) Threshold() int {
	return a.threshold
}

// Append adds pcm to the speaker's buffer. When the buffer reaches the
// threshold it is detached, the speaker's buffer resets to empty, and the
// filled contents are handed to the sink outside the lock.
func (a *Accumulator) Append(speakerID, speakerName string, pcm []byte) {
	a.mu.Lock()
	buf, ok := a.buffers[speakerID]
	if !ok {
		buf = &speakerBuffer{name: speakerName}
		a.buffers[speakerID] = buf
	}
	buf.name = speakerName
	buf.pcm = append(buf.pcm, pcm...)
	if len(buf.pcm) < a.threshold {
		a.mu.Unlock()
		return
	}
	filled := buf.pcm
	buf.pcm = nil
	a.mu.Unlock()

	a.sink(Chunk{
		SpeakerID:   speakerID,
		SpeakerName: speakerName,
		PCM:         filled,
		SampleRate:  SampleRate,
		Channels:    Channels,
	})
}

// Buffered returns the number of unflushed bytes held for a speaker.
func (a *Accumulator) Buffered(speakerID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	buf, ok := a.buffers[speakerID]
	if !ok {
		return 0
	}
	return len(buf.pcm)
}

// Remove drops a speaker's buffer without flushing. Partial utterances are
// not transcribed.
func (a *Accumulator) Remove(speakerID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.buffers, speakerID)
}

// Clear drops every speaker's buffer.
func (a *Accumulator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buffers = make(map[string]*speakerBuffer)
}
