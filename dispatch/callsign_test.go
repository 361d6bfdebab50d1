package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhoneticCallsign(t *testing.T) {
	tests := []struct {
		transcript string
		want       string
	}{
		{"TWO DAVID ZERO ZERO", "2D00"},
		{"TWO DAVID DOUBLE OSCAR", "2DOO"},
		{"TRIPLE SEVEN", "777"},
		{"BRAVO ONE SHOW ME TEN EIGHT", "B18"},
		{"NOTHING PHONETIC HERE AT ALL", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, PhoneticCallsign{}.Derive("Speaker", tc.transcript), tc.transcript)
	}
}

func TestPrefixCallsign(t *testing.T) {
	p := PrefixCallsign{Length: 5}
	assert.Equal(t, "BRAVO", p.Derive("Bravo1", "10-8"))
	assert.Equal(t, "AL", p.Derive("al", ""))
	assert.Equal(t, "BRAVO", PrefixCallsign{}.Derive("Bravo1", ""), "zero length falls back to the default")
}

func TestSpokenCallsignFallsBackToPrefix(t *testing.T) {
	s := SpokenCallsign{Prefix: PrefixCallsign{Length: 5}}
	assert.Equal(t, "2D00", s.Derive("Bravo1", "TWO DAVID ZERO ZERO"))
	assert.Equal(t, "BRAVO", s.Derive("Bravo1", "10-8"))
}

func TestNewStrategy(t *testing.T) {
	assert.IsType(t, SpokenCallsign{}, NewStrategy("phonetic", 5))
	assert.IsType(t, PrefixCallsign{}, NewStrategy("prefix", 5))
	assert.IsType(t, PrefixCallsign{}, NewStrategy("", 5))
}
