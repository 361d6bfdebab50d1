package dispatch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCodeTable(t *testing.T) {
	input := strings.Join([]string{
		"10-11:Traffic stop in progress, proceed with caution",
		"just a comment line without any separator",
		"10-50:Vehicle accident: injuries reported",
		"",
		"10-97:Arrived on scene",
	}, "\n")

	table, err := LoadCodeTable(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"10-11", "10-50", "10-97"}, table.Codes(), "insertion order is preserved")

	meaning, ok := table.Lookup("10-50")
	require.True(t, ok)
	assert.Equal(t, "Vehicle accident: injuries reported", meaning, "colons inside the meaning are kept")

	_, ok = table.Lookup("10-99")
	assert.False(t, ok)
}

func TestCodeTableReAddKeepsPosition(t *testing.T) {
	table := NewCodeTable()
	table.Add("10-11", "old meaning")
	table.Add("10-50", "Vehicle accident")
	table.Add("10-11", "new meaning")

	assert.Equal(t, []string{"10-11", "10-50"}, table.Codes())
	meaning, _ := table.Lookup("10-11")
	assert.Equal(t, "new meaning", meaning)
}

func TestShippedCodesReachableByVoice(t *testing.T) {
	table, err := LoadCodeTableFile("../codes.txt")
	require.NoError(t, err)
	in := NewInterpreter(table, PrefixCallsign{Length: 5})

	// Every shipped code must resolve to itself when spoken, including
	// ones that extend a shorter code (10-97 over 10-9).
	for _, code := range table.Codes() {
		cmd := in.Interpret(code, "Bravo1")
		require.Equal(t, KindCodeLookup, cmd.Kind, code)
		assert.Equal(t, code, cmd.Code, code)
	}

	_, ok := table.Lookup("10-11")
	assert.True(t, ok, "the 10-11 lookup ships in the default table")
}

func TestCodeTableLookupIsCaseInsensitive(t *testing.T) {
	table := NewCodeTable()
	table.Add("code red", "Emergency")
	meaning, ok := table.Lookup("CODE RED")
	require.True(t, ok)
	assert.Equal(t, "Emergency", meaning)
}
