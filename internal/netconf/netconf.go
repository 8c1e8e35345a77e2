// Package netconf loads the fixed seed list both node roles read at
// startup. The source format and its parsing are an external
// collaborator per the specification (out of the protocol's scope),
// kept minimal and standard-library only: no CSV-parsing library
// appears anywhere in the example corpus for this format.
package netconf

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"meshgossip/internal/wire"
)

// LoadSeeds reads a CSV file of "<ip>,<port>" rows (whitespace
// trimmed, blank/short rows skipped) into a seed endpoint list. A
// missing file is fatal to the caller — the caller should log and
// exit(1), matching spec.md §6 ("Absent file → fatal").
func LoadSeeds(path string) ([]wire.Endpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("netconf: config file not found: %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // rows may carry more than two columns; only the first two matter
	r.TrimLeadingSpace = true

	var seeds []wire.Endpoint
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("netconf: malformed row in %s: %w", path, err)
		}
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		if len(row) < 2 || row[0] == "" {
			continue
		}
		port, err := strconv.Atoi(row[1])
		if err != nil {
			continue
		}
		seeds = append(seeds, wire.Endpoint{IP: row[0], Port: port})
	}
	return seeds, nil
}

// Quorum returns floor(n/2)+1, the majority threshold used by both
// seed consensus and peer-level suspicion. n=0 still yields 1, which
// is the documented floor for peer-quorum.
func Quorum(n int) int {
	return n/2 + 1
}
