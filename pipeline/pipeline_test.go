package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/flightline/config"
	"github.com/TFMV/flightline/pipeline"
	"github.com/TFMV/flightline/schema"
	"github.com/TFMV/flightline/storage"
)

const fullHeader = "FlightDate,Reporting_Airline,Origin,Dest,DepDelay,ArrDelay,Distance," +
	"CarrierDelay,WeatherDelay,NASDelay,SecurityDelay,LateAircraftDelay,Cancelled,Diverted\n"

func writeExtract(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runConfig(inputs ...string) config.Config {
	cfg := config.Default()
	cfg.Inputs = inputs
	cfg.Filter.CancelledDiverted = true
	return cfg
}

func column(t *testing.T, res *pipeline.Result, name string) int {
	t.Helper()
	indices := res.Record.Schema().FieldIndices(name)
	require.Len(t, indices, 1)
	return indices[0]
}

func TestRunCleansCancelledRow(t *testing.T) {
	path := writeExtract(t, "202401.csv", fullHeader+
		"2024-01-01,AA,JFK,LAX,5,12,2475,0,0,0,0,0,0.00,0.00\n"+
		"2024-01-01,UA,ORD,DEN,,,888,,,,,,1.00,0.00\n")

	res, err := pipeline.Run(context.Background(), runConfig(path), nil)
	require.NoError(t, err)
	defer res.Record.Release()

	assert.Equal(t, pipeline.Summary{
		RowsRead:                 2,
		DroppedCancelledDiverted: 1,
		DroppedMissing:           0,
		RowsEmitted:              1,
	}, res.Summary)

	require.EqualValues(t, 1, res.Record.NumRows())
	origins := res.Record.Column(column(t, res, schema.ColOrigin)).(*array.String)
	buckets := res.Record.Column(column(t, res, schema.ColDelayBucket)).(*array.String)
	routes := res.Record.Column(column(t, res, schema.ColRoute)).(*array.String)
	assert.Equal(t, "JFK", origins.Value(0))
	assert.Equal(t, "minor", buckets.Value(0)) // 0 < 12 <= 15
	assert.Equal(t, "JFK-LAX", routes.Value(0))
}

func TestRunSchemaError(t *testing.T) {
	// ArrDelay column absent entirely.
	path := writeExtract(t, "bad.csv",
		"FlightDate,Origin,Dest,Cancelled,Diverted\n"+
			"2024-01-01,JFK,LAX,0.00,0.00\n")

	_, err := pipeline.Run(context.Background(), runConfig(path), nil)
	var schemaErr *schema.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, schema.ColArrDelay, schemaErr.Column)
	assert.Equal(t, path, schemaErr.Path)
}

func TestRunMissingInput(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.csv")
	_, err := pipeline.Run(context.Background(), runConfig(missing), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), missing)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRunConcatenatesInputsInOrder(t *testing.T) {
	a := writeExtract(t, "a.csv", fullHeader+
		"2024-01-01,AA,JFK,LAX,0,1,100,0,0,0,0,0,0.00,0.00\n")
	b := writeExtract(t, "b.csv", fullHeader+
		"2024-02-01,DL,ATL,SEA,0,2,100,0,0,0,0,0,0.00,0.00\n")

	res, err := pipeline.Run(context.Background(), runConfig(a, b), nil)
	require.NoError(t, err)
	defer res.Record.Release()

	require.EqualValues(t, 2, res.Record.NumRows())
	origins := res.Record.Column(column(t, res, schema.ColOrigin)).(*array.String)
	assert.Equal(t, "JFK", origins.Value(0))
	assert.Equal(t, "ATL", origins.Value(1))
}

func TestRunFilterFlagOff(t *testing.T) {
	path := writeExtract(t, "c.csv", fullHeader+
		"2024-01-01,AA,JFK,LAX,0,8,100,0,0,0,0,0,1.00,0.00\n")

	cfg := runConfig(path)
	cfg.Filter.CancelledDiverted = false
	res, err := pipeline.Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer res.Record.Release()

	require.EqualValues(t, 1, res.Record.NumRows())
	cancelled := res.Record.Column(column(t, res, schema.ColCancelled)).(*array.Boolean)
	assert.True(t, cancelled.Value(0))
}

func TestRunAirportMask(t *testing.T) {
	path := writeExtract(t, "d.csv", fullHeader+
		"2024-01-01,AA,ATL,SJC,0,1,100,0,0,0,0,0,0.00,0.00\n"+
		"2024-01-01,AA,SJC,PDX,0,2,100,0,0,0,0,0,0.00,0.00\n")

	cfg := runConfig(path)
	cfg.Filter.Airports = []string{"ATL"}
	res, err := pipeline.Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer res.Record.Release()

	assert.EqualValues(t, 1, res.Summary.DroppedFiltered)
	assert.EqualValues(t, 1, res.Summary.RowsEmitted)
}

func TestRunEmitReloadRoundTrip(t *testing.T) {
	input := writeExtract(t, "in.csv", fullHeader+
		"2024-01-01,AA,JFK,LAX,5,12,2475,0,0,0,0,0,0.00,0.00\n"+
		"2024-01-02,DL,ATL,SEA,,-4,2182,,,,,,0.00,0.00\n"+
		"2024-01-03,UA,ORD,DEN,80,95,888,10,0,5,0,80,0.00,0.00\n")

	out := filepath.Join(t.TempDir(), "cleaned.csv")
	cfg := runConfig(input)
	cfg.Output.Path = out
	cfg.Output.Format = config.FormatCSV

	first, err := pipeline.Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer first.Record.Release()

	// Reload the emitted file through the same loader.
	second, err := pipeline.Run(context.Background(), runConfig(out), nil)
	require.NoError(t, err)
	defer second.Record.Release()

	require.Equal(t, first.Record.NumRows(), second.Record.NumRows())
	for _, name := range []string{schema.ColOrigin, schema.ColDest, schema.ColRoute, schema.ColDelayBucket} {
		a := first.Record.Column(column(t, first, name)).(*array.String)
		b := second.Record.Column(column(t, second, name)).(*array.String)
		for i := 0; i < a.Len(); i++ {
			assert.Equal(t, a.Value(i), b.Value(i), "%s row %d", name, i)
		}
	}
	a := first.Record.Column(column(t, first, schema.ColArrDelay)).(*array.Float64)
	b := second.Record.Column(column(t, second, schema.ColArrDelay)).(*array.Float64)
	for i := 0; i < a.Len(); i++ {
		assert.Equal(t, a.Value(i), b.Value(i))
	}
}

func TestRunSnapshot(t *testing.T) {
	input := writeExtract(t, "in.csv", fullHeader+
		"2024-01-01,AA,JFK,LAX,5,12,2475,0,0,0,0,0,0.00,0.00\n")
	snap := filepath.Join(t.TempDir(), "cleaned.arrow")

	cfg := runConfig(input)
	cfg.Snapshot = snap
	res, err := pipeline.Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer res.Record.Release()

	loaded, err := storage.LoadFromDisk(snap)
	require.NoError(t, err)
	defer loaded.Release()

	assert.Equal(t, res.Record.NumRows(), loaded.NumRows())
	assert.True(t, loaded.Schema().Equal(res.Record.Schema()))
}

func TestRunUnreadableLineCounted(t *testing.T) {
	// Second data line has a bare quote the CSV reader rejects.
	path := writeExtract(t, "e.csv", fullHeader+
		"2024-01-01,AA,JFK,LAX,0,1,100,0,0,0,0,0,0.00,0.00\n"+
		"2024-01-01,AA,\"OR\"D,DEN,0,2,100,0,0,0,0,0,0.00,0.00\n")

	res, err := pipeline.Run(context.Background(), runConfig(path), nil)
	require.NoError(t, err)
	defer res.Record.Release()

	assert.Equal(t, res.Summary.RowsRead,
		res.Summary.RowsEmitted+res.Summary.DroppedCancelledDiverted+
			res.Summary.DroppedFiltered+res.Summary.DroppedMissing)
	assert.EqualValues(t, 1, res.Summary.DroppedMissing)
}
