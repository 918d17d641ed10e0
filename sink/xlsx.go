package sink

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// writeXLSX renders the record as a one-sheet workbook with a header row.
func writeXLSX(w io.Writer, rec arrow.Record) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	header := make([]interface{}, rec.NumCols())
	for j, field := range rec.Schema().Fields() {
		header[j] = field.Name
	}
	if err := setRow(f, 1, header); err != nil {
		return err
	}

	for i := 0; i < int(rec.NumRows()); i++ {
		row := make([]interface{}, rec.NumCols())
		for j := 0; j < int(rec.NumCols()); j++ {
			row[j] = cellValue(rec.Column(j), i)
		}
		if err := setRow(f, i+2, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("xlsx cell name: %w", err)
	}
	if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("xlsx row %d: %w", row, err)
	}
	return nil
}

func cellValue(col arrow.Array, i int) interface{} {
	if col.IsNull(i) {
		return nil
	}
	switch c := col.(type) {
	case *array.String:
		return c.Value(i)
	case *array.Float64:
		return c.Value(i)
	case *array.Boolean:
		return c.Value(i)
	default:
		return c.ValueStr(i)
	}
}
