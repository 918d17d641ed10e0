// Package report renders a read-only textual inspection of a cleaned table
// and its run summary. It consumes the table; it never mutates it.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/go-gota/gota/dataframe"
	"github.com/montanaflynn/stats"

	"github.com/TFMV/flightline/pipeline"
	"github.com/TFMV/flightline/schema"
)

// Render produces the inspection text: row accounting, arrival-delay
// statistics, bucket occupancy, and a dataframe description of the numeric
// columns.
func Render(rec arrow.Record, summary pipeline.Summary) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "rows read:                 %d\n", summary.RowsRead)
	fmt.Fprintf(&b, "dropped cancelled/diverted: %d\n", summary.DroppedCancelledDiverted)
	fmt.Fprintf(&b, "dropped by airport filter:  %d\n", summary.DroppedFiltered)
	fmt.Fprintf(&b, "dropped missing/invalid:    %d\n", summary.DroppedMissing)
	fmt.Fprintf(&b, "rows emitted:               %d\n", summary.RowsEmitted)

	if rec.NumRows() == 0 {
		return b.String(), nil
	}

	delays, err := columnFloats(rec, schema.ColArrDelay)
	if err != nil {
		return "", err
	}
	if err := writeDelayStats(&b, delays); err != nil {
		return "", err
	}
	if err := writeBucketCounts(&b, rec); err != nil {
		return "", err
	}
	if err := writeDescribe(&b, rec); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeDelayStats(b *strings.Builder, delays []float64) error {
	mean, err := stats.Mean(delays)
	if err != nil {
		return fmt.Errorf("report: mean: %w", err)
	}
	median, err := stats.Median(delays)
	if err != nil {
		return fmt.Errorf("report: median: %w", err)
	}
	p95, err := stats.Percentile(delays, 95)
	if err != nil {
		return fmt.Errorf("report: p95: %w", err)
	}
	max, err := stats.Max(delays)
	if err != nil {
		return fmt.Errorf("report: max: %w", err)
	}
	fmt.Fprintf(b, "\narrival delay (min): mean=%.1f median=%.1f p95=%.1f max=%.1f\n",
		mean, median, p95, max)
	return nil
}

func writeBucketCounts(b *strings.Builder, rec arrow.Record) error {
	col, err := column(rec, schema.ColDelayBucket)
	if err != nil {
		return err
	}
	buckets, ok := col.(*array.String)
	if !ok {
		return fmt.Errorf("report: unexpected type for %s column: %T", schema.ColDelayBucket, col)
	}
	counts := make(map[string]int)
	var order []string
	for i := 0; i < buckets.Len(); i++ {
		label := buckets.Value(i)
		if _, seen := counts[label]; !seen {
			order = append(order, label)
		}
		counts[label]++
	}
	b.WriteString("\nbucket occupancy:\n")
	for _, label := range order {
		fmt.Fprintf(b, "  %-10s %d\n", label, counts[label])
	}
	return nil
}

// writeDescribe renders gota's dataframe description of the numeric columns.
func writeDescribe(b *strings.Builder, rec arrow.Record) error {
	cols := []string{schema.ColDepDelay, schema.ColArrDelay, schema.ColDistance}
	records := make([][]string, 0, int(rec.NumRows())+1)
	records = append(records, cols)

	arrays := make([]*array.Float64, len(cols))
	for j, name := range cols {
		col, err := column(rec, name)
		if err != nil {
			return err
		}
		var ok bool
		arrays[j], ok = col.(*array.Float64)
		if !ok {
			return fmt.Errorf("report: unexpected type for %s column: %T", name, col)
		}
	}
	for i := 0; i < int(rec.NumRows()); i++ {
		row := make([]string, len(cols))
		for j, arr := range arrays {
			if arr.IsNull(i) {
				row[j] = "NaN"
				continue
			}
			row[j] = strconv.FormatFloat(arr.Value(i), 'f', -1, 64)
		}
		records = append(records, row)
	}

	df := dataframe.LoadRecords(records)
	if df.Err != nil {
		return fmt.Errorf("report: describe: %w", df.Err)
	}
	fmt.Fprintf(b, "\n%v\n", df.Describe())
	return nil
}

func column(rec arrow.Record, name string) (arrow.Array, error) {
	indices := rec.Schema().FieldIndices(name)
	if len(indices) == 0 {
		return nil, fmt.Errorf("report: column %q not in record", name)
	}
	return rec.Column(indices[0]), nil
}

func columnFloats(rec arrow.Record, name string) ([]float64, error) {
	col, err := column(rec, name)
	if err != nil {
		return nil, err
	}
	arr, ok := col.(*array.Float64)
	if !ok {
		return nil, fmt.Errorf("report: unexpected type for %s column: %T", name, col)
	}
	out := make([]float64, 0, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			continue
		}
		out = append(out, arr.Value(i))
	}
	return out, nil
}
