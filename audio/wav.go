package audio

import (
	"encoding/binary"
)

// EncodeWAV wraps raw s16le PCM in a RIFF/WAV container.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	dataSize := len(pcm)
	fileSize := 36 + dataSize

	header := make([]byte, 44)

	// RIFF header
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(fileSize))
	copy(header[8:12], "WAVE")

	// fmt chunk
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM format
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate*channels*SampleBytes))
	binary.LittleEndian.PutUint16(header[32:34], uint16(channels*SampleBytes))
	binary.LittleEndian.PutUint16(header[34:36], 16) // bits per sample

	// data chunk
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	out := make([]byte, 0, len(header)+dataSize)
	out = append(out, header...)
	out = append(out, pcm...)
	return out
}

// StripWAV returns the PCM payload of a RIFF/WAV container. Input that is
// not a RIFF stream is returned unchanged.
func StripWAV(b []byte) []byte {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return b
	}
	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		off += 8
		if id == "data" {
			if off+size > len(b) {
				size = len(b) - off
			}
			return b[off : off+size]
		}
		off += size
	}
	return b
}
