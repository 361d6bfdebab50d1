package dispatch

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// CodeTable maps 10-codes to their meanings. Iteration follows the
// insertion order of the source file so lookups stay deterministic when a
// transcript contains more than one code.
type CodeTable struct {
	order    []string
	meanings map[string]string
}

// NewCodeTable creates an empty table.
func NewCodeTable() *CodeTable {
	return &CodeTable{meanings: make(map[string]string)}
}

// Add inserts or overwrites a code. Re-adding a code keeps its original
// position in the iteration order.
func (t *CodeTable) Add(code, meaning string) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return
	}
	if _, exists := t.meanings[code]; !exists {
		t.order = append(t.order, code)
	}
	t.meanings[code] = meaning
}

// Lookup returns the meaning of a code.
func (t *CodeTable) Lookup(code string) (string, bool) {
	meaning, ok := t.meanings[strings.ToUpper(strings.TrimSpace(code))]
	return meaning, ok
}

// Codes returns the codes in insertion order.
func (t *CodeTable) Codes() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of codes in the table.
func (t *CodeTable) Len() int {
	return len(t.order)
}

// LoadCodeTable reads "CODE:meaning" lines. Lines without a colon are
// ignored; colons inside the meaning are kept as-is.
func LoadCodeTable(r io.Reader) (*CodeTable, error) {
	table := NewCodeTable()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		code, meaning, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		table.Add(code, strings.TrimSpace(meaning))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read code table: %w", err)
	}
	return table, nil
}

// LoadCodeTableFile loads a code table from disk.
func LoadCodeTableFile(path string) (*CodeTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open code table at %s: %w", path, err)
	}
	defer file.Close()
	return LoadCodeTable(file)
}
