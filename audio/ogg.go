package audio

import (
	"bytes"
	"fmt"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3/pkg/media/oggwriter"
)

// OggArchive rewraps a speaker's raw opus packets as an in-memory OGG
// stream so an utterance can be cached for operator review without a
// re-encode.
type OggArchive struct {
	buf    *bytes.Buffer
	writer *oggwriter.OggWriter
	packet rtp.Packet
}

// NewOggArchive creates an archive for one utterance from the given SSRC.
func NewOggArchive(ssrc uint32) (*OggArchive, error) {
	buf := new(bytes.Buffer)
	writer, err := oggwriter.NewWith(buf, SampleRate, uint16(Channels))
	if err != nil {
		return nil, fmt.Errorf("could not create ogg writer: %w", err)
	}
	a := &OggArchive{buf: buf, writer: writer}
	a.packet = rtp.Packet{
		Header: rtp.Header{
			Version:     2,
			PayloadType: 0x78,
			SSRC:        ssrc,
		},
	}
	return a, nil
}

// WritePacket appends one opus packet to the archive.
func (a *OggArchive) WritePacket(sequence uint16, timestamp uint32, opus []byte) error {
	a.packet.SequenceNumber = sequence
	a.packet.Timestamp = timestamp
	a.packet.Payload = opus
	return a.writer.WriteRTP(&a.packet)
}

// Bytes closes the writer and returns the finished OGG stream. The archive
// is not reusable afterwards.
func (a *OggArchive) Bytes() ([]byte, error) {
	if err := a.writer.Close(); err != nil {
		return nil, fmt.Errorf("could not finalize ogg stream: %w", err)
	}
	return a.buf.Bytes(), nil
}
