package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/TFMV/flightline/schema"
)

// Raw row slots. Each loaded row is normalized into this fixed layout so the
// later stages never consult per-file header order. Optional columns absent
// from a file are carried as empty strings.
const (
	rawFlightDate = iota
	rawCarrier
	rawOrigin
	rawDest
	rawDepDelay
	rawArrDelay
	rawDistance
	rawCarrierDelay
	rawWeatherDelay
	rawNASDelay
	rawSecurityDelay
	rawLateAircraftDelay
	rawCancelled
	rawDiverted
	rawWidth
)

// slotNames maps raw slots to input column names.
var slotNames = [rawWidth]string{
	rawFlightDate:        schema.ColFlightDate,
	rawCarrier:           schema.ColCarrier,
	rawOrigin:            schema.ColOrigin,
	rawDest:              schema.ColDest,
	rawDepDelay:          schema.ColDepDelay,
	rawArrDelay:          schema.ColArrDelay,
	rawDistance:          schema.ColDistance,
	rawCarrierDelay:      schema.ColCarrierDelay,
	rawWeatherDelay:      schema.ColWeatherDelay,
	rawNASDelay:          schema.ColNASDelay,
	rawSecurityDelay:     schema.ColSecurityDelay,
	rawLateAircraftDelay: schema.ColLateAircraftDelay,
	rawCancelled:         schema.ColCancelled,
	rawDiverted:          schema.ColDiverted,
}

// rawTable holds the concatenated, still-untyped rows of all input files.
type rawTable struct {
	rows [][]string // each row has rawWidth fields
	// unreadable counts physical lines the CSV reader could not parse.
	// They are accounted as invalid-data drops, never silently skipped.
	unreadable int64
}

// loadFile appends one input file to the table. The header is validated
// against the required column set before any row is consumed; a missing
// required column aborts the whole run.
func (t *rawTable) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input %q: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	r := csv.NewReader(f)
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read header of %q: %w", path, err)
	}
	pos, err := schema.CheckHeader(path, header)
	if err != nil {
		return err
	}

	// Resolve each raw slot to a column position once, -1 when the file
	// does not carry the column.
	var slots [rawWidth]int
	for s := 0; s < rawWidth; s++ {
		if p, ok := pos[slotNames[s]]; ok {
			slots[s] = p
		} else {
			slots[s] = -1
		}
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			t.unreadable++
			continue
		}
		if err != nil {
			return fmt.Errorf("read %q: %w", path, err)
		}

		row := make([]string, rawWidth)
		for s := 0; s < rawWidth; s++ {
			if p := slots[s]; p >= 0 && p < len(rec) {
				row[s] = rec[p]
			}
		}
		t.rows = append(t.rows, row)
	}
}

// load reads all input files in the order given and concatenates their rows.
func load(paths []string) (*rawTable, error) {
	t := &rawTable{}
	for _, path := range paths {
		if err := t.loadFile(path); err != nil {
			return nil, err
		}
	}
	return t, nil
}
