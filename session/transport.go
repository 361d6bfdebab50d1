// Package session owns the dispatcher's voice session lifecycle: it wires
// the accumulator, transcription worker, interpreter, and playback
// controller to a live voice connection and drives the
// STOPPED -> STARTING -> LISTENING -> STOPPING -> STOPPED transitions.
package session

import (
	"github.com/redwell-labs/rto-dispatch-service/playback"
)

// Packet is one opus packet from a speaker, as delivered by the transport.
// Packets arrive in order per speaker; cross-speaker order is arbitrary.
type Packet struct {
	SSRC      uint32
	Sequence  uint16
	Timestamp uint32
	Opus      []byte
}

// Conn is a live group-voice connection.
type Conn interface {
	// Packets delivers incoming opus packets. The channel closes when the
	// transport drops the connection.
	Packets() <-chan Packet
	// Departures delivers the id of each speaker who leaves the channel,
	// so partial buffers can be dropped without flushing.
	Departures() <-chan string
	// Resolve maps an SSRC to the speaker's id and display name. ok is
	// false for unknown SSRCs and for speakers that must be ignored.
	Resolve(ssrc uint32) (id, name string, ok bool)
	// NewDevice opens the connection's shared audio output.
	NewDevice() (playback.Device, error)
	// Close disconnects.
	Close() error
}

// Transport establishes voice connections.
type Transport interface {
	Join(guildID, channelID string) (Conn, error)
}
