package sink

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/csv"
)

// writeCSV renders the record as delimited text with a header row. Null
// optional fields become empty fields, matching how the loader reads them
// back.
func writeCSV(w io.Writer, rec arrow.Record) error {
	cw := csv.NewWriter(w, rec.Schema(),
		csv.WithHeader(true),
		csv.WithNullWriter(""),
	)
	if err := cw.Write(rec); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}
	if err := cw.Flush(); err != nil {
		return fmt.Errorf("csv flush: %w", err)
	}
	return cw.Error()
}
