package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redwell-labs/rto-dispatch-service/audio"
	"github.com/redwell-labs/rto-dispatch-service/cache"
	"github.com/redwell-labs/rto-dispatch-service/config"
	"github.com/redwell-labs/rto-dispatch-service/dispatch"
	"github.com/redwell-labs/rto-dispatch-service/interfaces"
	logger "github.com/redwell-labs/rto-dispatch-service/log"
	"github.com/redwell-labs/rto-dispatch-service/playback"
	"github.com/redwell-labs/rto-dispatch-service/worker"
)

// State is the lifecycle state of the dispatcher session.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateListening
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateStarting:
		return "STARTING"
	case StateListening:
		return "LISTENING"
	case StateStopping:
		return "STOPPING"
	}
	return "UNKNOWN"
}

var (
	// ErrAlreadyRunning is the user-visible rejection of a re-entrant
	// start.
	ErrAlreadyRunning = errors.New("dispatcher is already running")
	// ErrNotRunning is returned when stop is requested with no session
	// listening.
	ErrNotRunning = errors.New("dispatcher is not running")
	// ErrInvalidChannel is returned when the start target is not a voice
	// channel.
	ErrInvalidChannel = errors.New("target is not a voice channel")
)

// stopWait bounds how long Stop waits for the receive loop to exit.
const stopWait = 5 * time.Second

// Options carries the collaborators the lifecycle wires together.
type Options struct {
	Transport   Transport
	Transcriber interfaces.Transcriber
	Synthesizer interfaces.Synthesizer
	Interpreter *dispatch.Interpreter
	Responder   *dispatch.Responder
	Registry    *dispatch.Registry
	Store       cache.Cache // nil disables persistence and audio archival
	Voice       config.VoiceConfig
}

// pcmDecoder is the slice of audio.Decoder the receive loop needs; tests
// substitute a pass-through implementation.
type pcmDecoder interface {
	Decode(opus []byte) ([]byte, error)
}

// Lifecycle owns one dispatcher session at a time. The unit registry is
// shared across sessions: stopping does not clear it.
type Lifecycle struct {
	opts Options

	// newDecoder is swapped in tests.
	newDecoder func() (pcmDecoder, error)

	mu      sync.Mutex
	state   State
	conn    Conn
	cancel  context.CancelFunc
	acc     *audio.Accumulator
	work    *worker.Worker
	speaker *playback.Controller
	done    chan struct{}
}

// New creates a stopped lifecycle.
func New(opts Options) *Lifecycle {
	return &Lifecycle{
		opts: opts,
		newDecoder: func() (pcmDecoder, error) {
			return audio.NewDecoder()
		},
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Pending returns the number of chunks waiting for transcription.
func (l *Lifecycle) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.work == nil {
		return 0
	}
	return l.work.Pending()
}

// Start connects to the voice channel and begins listening. The previous
// session's units remain in the registry; buffers always start empty.
func (l *Lifecycle) Start(guildID, channelID string) error {
	l.mu.Lock()
	if l.state != StateStopped {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}
	l.state = StateStarting
	l.mu.Unlock()

	conn, err := l.opts.Transport.Join(guildID, channelID)
	if err != nil {
		l.setState(StateStopped)
		return err
	}

	device, err := conn.NewDevice()
	if err != nil {
		_ = conn.Close()
		l.setState(StateStopped)
		return fmt.Errorf("could not open playback device: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	speaker := playback.NewController(l.opts.Synthesizer, device, l.opts.Voice.VoiceName)
	work := worker.New(l.opts.Voice.QueueSize, l.opts.Transcriber, func(t worker.Transcript) {
		l.handleTranscript(ctx, t)
	})
	acc := audio.NewAccumulator(l.opts.Voice.ChunkSeconds, func(c audio.Chunk) {
		work.Submit(c)
	})
	done := make(chan struct{})

	l.mu.Lock()
	l.conn = conn
	l.cancel = cancel
	l.acc = acc
	l.work = work
	l.speaker = speaker
	l.done = done
	l.state = StateListening
	l.mu.Unlock()

	go work.Run(ctx)
	go l.receive(ctx, conn, acc, done)

	go speaker.Speak(ctx, fmt.Sprintf("%s, show me 10-8. Active dispatch.", l.opts.Voice.BotCallsign))
	return nil
}

// Stop tears the session down: the worker is cancelled, the queue drained,
// per-speaker buffers cleared, and the transport handle released. The unit
// registry is persisted, not cleared.
func (l *Lifecycle) Stop() error {
	l.mu.Lock()
	if l.state != StateListening {
		l.mu.Unlock()
		return ErrNotRunning
	}
	l.state = StateStopping
	conn, cancel, acc, done := l.conn, l.cancel, l.acc, l.done
	l.conn, l.cancel, l.acc, l.work, l.speaker, l.done = nil, nil, nil, nil, nil, nil
	l.mu.Unlock()

	cancel() // cancels the worker wait and any in-flight playback
	_ = conn.Close()

	select {
	case <-done:
	case <-time.After(stopWait):
		logger.Error("stopping session", errors.New("timeout waiting for receive loop to exit"))
	}

	acc.Clear()
	l.persistUnits()
	l.setState(StateStopped)
	return nil
}

func (l *Lifecycle) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// speakerStream is the receive-side state for one SSRC.
type speakerStream struct {
	id      string
	name    string
	decoder pcmDecoder
	archive *audio.OggArchive
	started time.Time
	bytes   int
}

// receive decodes incoming packets into the accumulator until the context
// is cancelled or the transport drops the connection.
func (l *Lifecycle) receive(ctx context.Context, conn Conn, acc *audio.Accumulator, done chan struct{}) {
	defer close(done)
	streams := make(map[uint32]*speakerStream)

	for {
		select {
		case <-ctx.Done():
			return
		case id := <-conn.Departures():
			// Departing speakers never get their partial buffer
			// transcribed.
			acc.Remove(id)
			for ssrc, stream := range streams {
				if stream.id == id {
					delete(streams, ssrc)
				}
			}
		case p, ok := <-conn.Packets():
			if !ok {
				// Unsolicited disconnect: tear the session down from a
				// separate goroutine so this loop can exit first.
				log.Printf("[SESSION] Voice connection dropped, stopping")
				go l.handleDisconnect()
				return
			}
			l.handlePacket(conn, acc, streams, p)
		}
	}
}

func (l *Lifecycle) handlePacket(conn Conn, acc *audio.Accumulator, streams map[uint32]*speakerStream, p Packet) {
	stream, ok := streams[p.SSRC]
	if !ok {
		id, name, known := conn.Resolve(p.SSRC)
		if !known {
			return
		}
		decoder, err := l.newDecoder()
		if err != nil {
			logger.Error(fmt.Sprintf("creating decoder for SSRC %d", p.SSRC), err)
			return
		}
		stream = &speakerStream{id: id, name: name, decoder: decoder}
		l.resetArchive(stream, p.SSRC)
		streams[p.SSRC] = stream
	}

	pcm, err := stream.decoder.Decode(p.Opus)
	if err != nil {
		log.Printf("[SESSION] Dropping undecodable packet from %s: %v", stream.name, err)
		return
	}

	acc.Append(stream.id, stream.name, pcm)

	if stream.archive == nil {
		return
	}
	if err := stream.archive.WritePacket(p.Sequence, p.Timestamp, p.Opus); err != nil {
		log.Printf("[SESSION] Non-critical error archiving packet from %s: %v", stream.name, err)
	}
	stream.bytes += len(pcm)
	if stream.bytes >= acc.Threshold() {
		l.archiveUtterance(stream)
		l.resetArchive(stream, p.SSRC)
	}
}

func (l *Lifecycle) resetArchive(stream *speakerStream, ssrc uint32) {
	stream.bytes = 0
	stream.started = time.Now()
	stream.archive = nil
	if l.opts.Store == nil {
		return
	}
	archive, err := audio.NewOggArchive(ssrc)
	if err != nil {
		logger.Error(fmt.Sprintf("creating audio archive for %s", stream.name), err)
		return
	}
	stream.archive = archive
}

func (l *Lifecycle) archiveUtterance(stream *speakerStream) {
	data, err := stream.archive.Bytes()
	if err != nil {
		logger.Error(fmt.Sprintf("finalizing audio archive for %s", stream.name), err)
		return
	}
	ttl := time.Duration(l.opts.Voice.AudioTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = time.Minute
	}
	key := cache.AudioKey(stream.id, stream.started)
	if err := l.opts.Store.SaveAudio(key, data, ttl); err != nil {
		logger.Error(fmt.Sprintf("saving audio archive for key %s", key), err)
	}
}

// handleTranscript runs on the worker goroutine: one transcript at a time.
func (l *Lifecycle) handleTranscript(ctx context.Context, t worker.Transcript) {
	log.Printf("[HEARD] %s: %s", t.SpeakerName, t.Text)

	cmd := l.opts.Interpreter.Interpret(t.Text, t.SpeakerName)
	reply := l.opts.Responder.Apply(cmd)
	if reply == "" {
		return
	}

	l.mu.Lock()
	speaker := l.speaker
	l.mu.Unlock()
	if speaker == nil {
		return
	}
	// Blocks until playback finishes; the worker holds off on the next
	// chunk meanwhile, which keeps replies in transcript order.
	speaker.Speak(ctx, reply)
}

func (l *Lifecycle) handleDisconnect() {
	if err := l.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		logger.Error("stopping after transport disconnect", err)
	}
}

func (l *Lifecycle) persistUnits() {
	if l.opts.Store == nil || l.opts.Registry == nil {
		return
	}
	if err := l.opts.Store.SaveUnits(l.opts.Registry.Snapshot()); err != nil {
		logger.Error("persisting unit registry", err)
	}
}
