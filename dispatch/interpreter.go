package dispatch

import (
	"sort"
	"strings"
)

// statusPhrases are checked in order; the first phrase found in the
// transcript wins.
var statusPhrases = []struct {
	phrases []string
	status  Status
}{
	{[]string{"10-8", "TEN EIGHT"}, StatusAvailable},
	{[]string{"10-7", "TEN SEVEN"}, StatusOutOfService},
	{[]string{"10-6", "TEN SIX"}, StatusBusy},
}

const (
	dispatchTrigger = "DISPATCH"
	needUnitTrigger = "NEED UNIT"
	greetingTrigger = "HI"
)

// Interpreter maps a normalized transcript to at most one Command. It is
// pure: the same transcript and speaker always yield the same Command.
//
// Matching is substring-based with a fixed priority order: code lookup,
// then status phrase, then dispatch request, then greeting. The code table
// is scanned longest code first, equal lengths in insertion order.
type Interpreter struct {
	codes    *CodeTable
	callsign Callsign
}

// NewInterpreter creates an interpreter over the given code table and
// callsign strategy.
func NewInterpreter(codes *CodeTable, callsign Callsign) *Interpreter {
	if codes == nil {
		codes = NewCodeTable()
	}
	if callsign == nil {
		callsign = PrefixCallsign{}
	}
	return &Interpreter{codes: codes, callsign: callsign}
}

// Interpret maps one transcript to exactly one Command.
func (in *Interpreter) Interpret(text, speakerName string) Command {
	text = strings.ToUpper(strings.TrimSpace(text))

	// Longer codes first so "10-97" is never read as its "10-9" prefix.
	codes := in.codes.Codes()
	sort.SliceStable(codes, func(i, j int) bool { return len(codes[i]) > len(codes[j]) })
	for _, code := range codes {
		if strings.Contains(text, code) {
			return Command{Kind: KindCodeLookup, Code: code}
		}
	}

	for _, entry := range statusPhrases {
		for _, phrase := range entry.phrases {
			if strings.Contains(text, phrase) {
				// Strip the matched phrase before deriving the callsign;
				// "TEN EIGHT" alone would otherwise decode to "8".
				spoken := strings.TrimSpace(strings.ReplaceAll(text, phrase, " "))
				return Command{
					Kind:     KindStatusUpdate,
					Callsign: in.callsign.Derive(speakerName, spoken),
					Status:   entry.status,
				}
			}
		}
	}

	if strings.Contains(text, dispatchTrigger) && strings.Contains(text, needUnitTrigger) {
		return Command{Kind: KindDispatchRequest}
	}

	// The greeting trigger matches whole words only; a bare substring
	// check would fire on words like THIS.
	for _, word := range strings.Fields(text) {
		if word == greetingTrigger {
			return Command{
				Kind:     KindGreeting,
				Callsign: in.callsign.Derive(speakerName, text),
			}
		}
	}

	return Command{Kind: KindUnrecognized}
}
