package dispatch

import (
	"strings"
)

// Callsign derives a unit callsign from the speaker and what they said.
// Derivation differs between deployments, so it sits behind an interface.
type Callsign interface {
	Derive(speakerName, transcript string) string
}

// phonetic maps spoken alphabet and digit words to callsign characters.
var phonetic = map[string]string{
	"ALPHA": "A", "BRAVO": "B", "CHARLIE": "C", "DAVID": "D",
	"DELTA": "D", "ECHO": "E", "FOXTROT": "F", "GOLF": "G",
	"HOTEL": "H", "INDIA": "I", "JULIET": "J", "KILO": "K",
	"LIMA": "L", "MIKE": "M", "NOVEMBER": "N", "OSCAR": "O",
	"PAPA": "P", "QUEBEC": "Q", "ROMEO": "R", "SIERRA": "S",
	"TANGO": "T", "UNIFORM": "U", "VICTOR": "V", "WHISKEY": "W",
	"XRAY": "X", "YANKEE": "Y", "ZULU": "Z",
	"ZERO": "0", "ONE": "1", "TWO": "2", "THREE": "3", "FOUR": "4",
	"FIVE": "5", "SIX": "6", "SEVEN": "7", "EIGHT": "8", "NINE": "9",
}

// PhoneticCallsign decodes spoken phonetic-alphabet words from the
// transcript ("TWO DAVID DOUBLE OSCAR" -> "2DOO"). DOUBLE and TRIPLE
// repeat the following character. Words outside the alphabet are skipped;
// an empty result means the transcript carried no callsign.
type PhoneticCallsign struct{}

func (PhoneticCallsign) Derive(speakerName, transcript string) string {
	words := strings.Fields(strings.ToUpper(transcript))
	var b strings.Builder
	for i := 0; i < len(words); i++ {
		word := words[i]
		repeat := 1
		if (word == "DOUBLE" || word == "TRIPLE") && i+1 < len(words) {
			if word == "DOUBLE" {
				repeat = 2
			} else {
				repeat = 3
			}
			i++
			word = words[i]
		}
		letter, ok := phonetic[word]
		if !ok {
			continue
		}
		b.WriteString(strings.Repeat(letter, repeat))
	}
	return b.String()
}

// PrefixCallsign uses a fixed-length prefix of the speaker's display name.
type PrefixCallsign struct {
	Length int
}

// DefaultPrefixLength matches a five-character unit designator.
const DefaultPrefixLength = 5

func (p PrefixCallsign) Derive(speakerName, transcript string) string {
	name := strings.ToUpper(strings.TrimSpace(speakerName))
	n := p.Length
	if n <= 0 {
		n = DefaultPrefixLength
	}
	if len(name) > n {
		name = name[:n]
	}
	return name
}

// SpokenCallsign decodes the transcript phonetically and falls back to the
// display-name prefix when nothing decodes.
type SpokenCallsign struct {
	Prefix PrefixCallsign
}

func (s SpokenCallsign) Derive(speakerName, transcript string) string {
	if callsign := (PhoneticCallsign{}).Derive(speakerName, transcript); callsign != "" {
		return callsign
	}
	return s.Prefix.Derive(speakerName, transcript)
}

// NewStrategy returns the configured callsign strategy. Unknown names fall
// back to the prefix rule.
func NewStrategy(name string, prefixLen int) Callsign {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "phonetic":
		return SpokenCallsign{Prefix: PrefixCallsign{Length: prefixLen}}
	default:
		return PrefixCallsign{Length: prefixLen}
	}
}
