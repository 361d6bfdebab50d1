package session

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redwell-labs/rto-dispatch-service/audio"
	"github.com/redwell-labs/rto-dispatch-service/config"
	"github.com/redwell-labs/rto-dispatch-service/dispatch"
	"github.com/redwell-labs/rto-dispatch-service/playback"
)

type fakeDevice struct{}

func (fakeDevice) Play(ctx context.Context, pcm []byte) error { return nil }
func (fakeDevice) Stop()                                      {}

type fakeSynth struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return []byte{0x00, 0x01}, nil
}

func (f *fakeSynth) spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type fakeConn struct {
	packets    chan Packet
	departures chan string
	speakers   map[uint32][2]string

	mu     sync.Mutex
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		packets:    make(chan Packet, 64),
		departures: make(chan string, 16),
		speakers:   map[uint32][2]string{1: {"u1", "Bravo1"}, 2: {"u2", "Alpha9"}},
	}
}

func (c *fakeConn) Packets() <-chan Packet    { return c.packets }
func (c *fakeConn) Departures() <-chan string { return c.departures }

func (c *fakeConn) Resolve(ssrc uint32) (string, string, bool) {
	entry, ok := c.speakers[ssrc]
	if !ok {
		return "", "", false
	}
	return entry[0], entry[1], true
}

func (c *fakeConn) NewDevice() (playback.Device, error) { return fakeDevice{}, nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeTransport struct {
	conn *fakeConn
	err  error
}

func (t *fakeTransport) Join(guildID, channelID string) (Conn, error) {
	if t.err != nil {
		return nil, t.err
	}
	return t.conn, nil
}

// queueTranscriber hands out scripted transcripts in order, then silence,
// and records each chunk it was given.
type queueTranscriber struct {
	mu     sync.Mutex
	texts  []string
	chunks [][]byte
	calls  int
}

func (q *queueTranscriber) Transcribe(ctx context.Context, pcm []byte, sampleRate, channels int) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls++
	q.chunks = append(q.chunks, pcm)
	if len(q.texts) == 0 {
		return "", nil
	}
	text := q.texts[0]
	q.texts = q.texts[1:]
	return text, nil
}

func (q *queueTranscriber) callCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.calls
}

func (q *queueTranscriber) received() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([][]byte(nil), q.chunks...)
}

// secondDecoder turns any packet into exactly one second of silence, so a
// one second chunk threshold flushes on every packet.
type secondDecoder struct{}

func (secondDecoder) Decode(opus []byte) ([]byte, error) {
	return bytes.Repeat([]byte{0x01}, audio.BytesPerSecond), nil
}

// markDecoder emits half a second per packet, stamped with the packet's
// first opus byte so a chunk's origin is visible.
type markDecoder struct{}

func (markDecoder) Decode(opus []byte) ([]byte, error) {
	return bytes.Repeat([]byte{opus[0]}, audio.BytesPerSecond/2), nil
}

type testHarness struct {
	lifecycle   *Lifecycle
	transport   *fakeTransport
	synth       *fakeSynth
	transcriber *queueTranscriber
	registry    *dispatch.Registry
}

func newHarness(t *testing.T, texts ...string) *testHarness {
	t.Helper()

	registry := dispatch.NewRegistry()
	engine := dispatch.NewEngine(registry)
	codes := dispatch.NewCodeTable()
	transport := &fakeTransport{conn: newFakeConn()}
	synth := &fakeSynth{}
	transcriber := &queueTranscriber{texts: texts}

	l := New(Options{
		Transport:   transport,
		Transcriber: transcriber,
		Synthesizer: synth,
		Interpreter: dispatch.NewInterpreter(codes, dispatch.PrefixCallsign{Length: 5}),
		Responder:   dispatch.NewResponder(registry, engine, codes),
		Registry:    registry,
		Voice: config.VoiceConfig{
			BotCallsign:  "2D-00",
			ChunkSeconds: 1,
			QueueSize:    4,
		},
	})
	l.newDecoder = func() (pcmDecoder, error) { return secondDecoder{}, nil }

	t.Cleanup(func() {
		if l.State() == StateListening {
			_ = l.Stop()
		}
	})

	return &testHarness{
		lifecycle:   l,
		transport:   transport,
		synth:       synth,
		transcriber: transcriber,
		registry:    registry,
	}
}

func TestStartTransitionsToListening(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.lifecycle.Start("guild", "channel"))
	assert.Equal(t, StateListening, h.lifecycle.State())

	// Going online is announced on the shared voice channel.
	require.Eventually(t, func() bool {
		return len(h.synth.spoken()) > 0
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, h.synth.spoken()[0], "2D-00")
}

func TestStartWhileRunning(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.lifecycle.Start("guild", "channel"))
	assert.ErrorIs(t, h.lifecycle.Start("guild", "channel"), ErrAlreadyRunning)
	assert.Equal(t, StateListening, h.lifecycle.State())
}

func TestStartJoinFailure(t *testing.T) {
	h := newHarness(t)
	h.transport.err = ErrInvalidChannel

	assert.ErrorIs(t, h.lifecycle.Start("guild", "channel"), ErrInvalidChannel)
	assert.Equal(t, StateStopped, h.lifecycle.State())
}

func TestStopWhenStopped(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.lifecycle.Stop(), ErrNotRunning)
}

func TestStopClosesConnection(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.lifecycle.Start("guild", "channel"))
	require.NoError(t, h.lifecycle.Stop())

	assert.Equal(t, StateStopped, h.lifecycle.State())
	assert.True(t, h.transport.conn.isClosed())
}

func TestTransportDisconnectStopsSession(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.lifecycle.Start("guild", "channel"))
	close(h.transport.conn.packets)

	require.Eventually(t, func() bool {
		return h.lifecycle.State() == StateStopped
	}, time.Second, 10*time.Millisecond)
	assert.True(t, h.transport.conn.isClosed())
}

func TestUnknownSpeakerIgnored(t *testing.T) {
	h := newHarness(t, "10-8")

	require.NoError(t, h.lifecycle.Start("guild", "channel"))
	h.transport.conn.packets <- Packet{SSRC: 99, Opus: []byte{0xfc}}

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, h.transcriber.callCount())
}

func TestDepartureDropsPartialBuffer(t *testing.T) {
	h := newHarness(t)
	h.lifecycle.newDecoder = func() (pcmDecoder, error) { return markDecoder{}, nil }

	require.NoError(t, h.lifecycle.Start("guild", "channel"))
	acc := h.lifecycle.acc

	h.transport.conn.packets <- Packet{SSRC: 1, Opus: []byte{0xAA}}
	require.Eventually(t, func() bool {
		return acc.Buffered("u1") == audio.BytesPerSecond/2
	}, time.Second, 10*time.Millisecond)

	h.transport.conn.departures <- "u1"
	require.Eventually(t, func() bool {
		return acc.Buffered("u1") == 0
	}, time.Second, 10*time.Millisecond)

	// Rejoin: a fresh utterance must not carry the pre-departure bytes.
	h.transport.conn.packets <- Packet{SSRC: 1, Opus: []byte{0xBB}}
	h.transport.conn.packets <- Packet{SSRC: 1, Opus: []byte{0xBB}}

	require.Eventually(t, func() bool {
		return h.transcriber.callCount() == 1
	}, time.Second, 10*time.Millisecond)

	chunks := h.transcriber.received()
	require.Len(t, chunks, 1)
	assert.Len(t, chunks[0], audio.BytesPerSecond)
	assert.NotContains(t, chunks[0], byte(0xAA))
}

func TestStatusUpdateEndToEnd(t *testing.T) {
	h := newHarness(t, "ten eight")

	require.NoError(t, h.lifecycle.Start("guild", "channel"))
	h.transport.conn.packets <- Packet{SSRC: 1, Opus: []byte{0xfc}}

	require.Eventually(t, func() bool {
		unit, ok := h.registry.Get("BRAVO")
		return ok && unit.Status == dispatch.StatusAvailable
	}, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		for _, text := range h.synth.spoken() {
			if text == "BRAVO is now 10-8" {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestDispatchEndToEnd(t *testing.T) {
	h := newHarness(t, "ten eight", "dispatch we need unit")

	require.NoError(t, h.lifecycle.Start("guild", "channel"))
	h.transport.conn.packets <- Packet{SSRC: 1, Opus: []byte{0xfc}}
	h.transport.conn.packets <- Packet{SSRC: 2, Opus: []byte{0xfc}}

	require.Eventually(t, func() bool {
		unit, ok := h.registry.Get("BRAVO")
		return ok && unit.Status == dispatch.StatusBusy
	}, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		for _, text := range h.synth.spoken() {
			if text == "Dispatching BRAVO to the call." {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestRegistrySurvivesStop(t *testing.T) {
	h := newHarness(t, "ten seven")

	require.NoError(t, h.lifecycle.Start("guild", "channel"))
	h.transport.conn.packets <- Packet{SSRC: 1, Opus: []byte{0xfc}}

	require.Eventually(t, func() bool {
		_, ok := h.registry.Get("BRAVO")
		return ok
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, h.lifecycle.Stop())

	unit, ok := h.registry.Get("BRAVO")
	require.True(t, ok)
	assert.Equal(t, dispatch.StatusOutOfService, unit.Status)
}
