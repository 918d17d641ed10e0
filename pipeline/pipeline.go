// Package pipeline implements the transform stage: a single forward pass
// over raw BTS on-time performance extracts producing one cleaned Arrow
// record batch.
//
// The pass is Load -> Filter -> Normalize -> Derive -> Emit. Row-level
// problems are recovered and counted; file-level and schema-level problems
// abort the run before any output is written.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"go.uber.org/zap"

	"github.com/TFMV/flightline/config"
	"github.com/TFMV/flightline/schema"
	"github.com/TFMV/flightline/sink"
	"github.com/TFMV/flightline/storage"
)

// Summary is the row accounting of one run. The identity
//
//	RowsRead = RowsEmitted + DroppedCancelledDiverted + DroppedFiltered + DroppedMissing
//
// holds exactly; DroppedFiltered is zero unless an airport mask is set.
type Summary struct {
	RowsRead                 int64
	DroppedCancelledDiverted int64
	DroppedFiltered          int64
	DroppedMissing           int64
	RowsEmitted              int64
}

// Result is the cleaned table plus its accounting. The caller owns the
// record and must Release it.
type Result struct {
	Record  arrow.Record
	Summary Summary
}

// Run executes the whole pass for the given policy. The returned record
// conforms to schema.Cleaned. When cfg.Output.Path is set the table is also
// written there; when cfg.Snapshot is set an Arrow IPC snapshot is saved.
func Run(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := load(cfg.Inputs)
	if err != nil {
		return nil, err
	}
	loadLatency.Observe(time.Since(start).Seconds())
	logger.Info("Loaded input files",
		zap.Int("files", len(cfg.Inputs)),
		zap.Int("rows", len(raw.rows)),
		zap.Int64("unreadable", raw.unreadable))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	fr := filter(raw, cfg.Filter)
	cols := normalize(raw, fr, cfg.Normalize)
	der := derive(cols, cfg.Buckets)
	transformLatency.Observe(time.Since(start).Seconds())

	rec := buildRecord(cols, der)

	summary := Summary{
		RowsRead:                 int64(len(raw.rows)) + raw.unreadable,
		DroppedCancelledDiverted: int64(fr.cancelledDiverted.GetCardinality()),
		DroppedFiltered:          int64(fr.unmatched.GetCardinality()),
		DroppedMissing:           cols.droppedMissing,
		RowsEmitted:              int64(cols.len()),
	}
	rowsDropped.WithLabelValues("cancelled_diverted").Add(float64(summary.DroppedCancelledDiverted))
	rowsDropped.WithLabelValues("unmatched_airport").Add(float64(summary.DroppedFiltered))
	rowsDropped.WithLabelValues("missing_invalid").Add(float64(summary.DroppedMissing))
	rowsEmitted.Add(float64(summary.RowsEmitted))

	logger.Info("Transform complete",
		zap.Int64("rows_read", summary.RowsRead),
		zap.Int64("dropped_cancelled_diverted", summary.DroppedCancelledDiverted),
		zap.Int64("dropped_filtered", summary.DroppedFiltered),
		zap.Int64("dropped_missing", summary.DroppedMissing),
		zap.Int64("rows_emitted", summary.RowsEmitted))

	if cfg.Output.Path != "" {
		if err := sink.Write(ctx, rec, cfg.Output.Path, cfg.Output.Format); err != nil {
			rec.Release()
			return nil, err
		}
		logger.Info("Wrote cleaned table",
			zap.String("path", cfg.Output.Path),
			zap.String("format", cfg.Output.Format))
	}
	if cfg.Snapshot != "" {
		if err := storage.SaveToDisk(cfg.Snapshot, rec); err != nil {
			rec.Release()
			return nil, fmt.Errorf("snapshot: %w", err)
		}
	}

	return &Result{Record: rec, Summary: summary}, nil
}

// buildRecord assembles the cleaned Arrow record from the typed columns.
func buildRecord(cols *cleanColumns, der *derived) arrow.Record {
	builder := array.NewRecordBuilder(schema.Pool, schema.Cleaned)
	defer builder.Release()

	builder.Field(0).(*array.StringBuilder).AppendValues(cols.flightDate, nil)
	builder.Field(1).(*array.StringBuilder).AppendValues(cols.carrier, nil)
	builder.Field(2).(*array.StringBuilder).AppendValues(cols.origin, nil)
	builder.Field(3).(*array.StringBuilder).AppendValues(cols.dest, nil)

	dep := builder.Field(4).(*array.Float64Builder)
	for i, v := range cols.depDelay {
		if cols.depDelayNull[i] {
			dep.AppendNull()
		} else {
			dep.Append(v)
		}
	}
	builder.Field(5).(*array.Float64Builder).AppendValues(cols.arrDelay, nil)

	dist := builder.Field(6).(*array.Float64Builder)
	for i, v := range cols.distance {
		if cols.distanceNull[i] {
			dist.AppendNull()
		} else {
			dist.Append(v)
		}
	}

	for c := range cols.causes {
		builder.Field(7+c).(*array.Float64Builder).AppendValues(cols.causes[c], nil)
	}
	builder.Field(12).(*array.BooleanBuilder).AppendValues(cols.cancelled, nil)
	builder.Field(13).(*array.BooleanBuilder).AppendValues(cols.diverted, nil)
	builder.Field(14).(*array.StringBuilder).AppendValues(der.routes, nil)
	builder.Field(15).(*array.StringBuilder).AppendValues(der.buckets, nil)

	return builder.NewRecord()
}
