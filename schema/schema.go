// Package schema defines the BTS on-time performance column set and the
// Arrow schema of the cleaned table.
package schema

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Pool is the Go memory allocator used by Arrow.
var Pool = memory.NewGoAllocator()

// Input column names as they appear in the BTS PREZIP extracts.
const (
	ColFlightDate        = "FlightDate"
	ColCarrier           = "Reporting_Airline"
	ColOrigin            = "Origin"
	ColDest              = "Dest"
	ColDepDelay          = "DepDelay"
	ColArrDelay          = "ArrDelay"
	ColDistance          = "Distance"
	ColCarrierDelay      = "CarrierDelay"
	ColWeatherDelay      = "WeatherDelay"
	ColNASDelay          = "NASDelay"
	ColSecurityDelay     = "SecurityDelay"
	ColLateAircraftDelay = "LateAircraftDelay"
	ColCancelled         = "Cancelled"
	ColDiverted          = "Diverted"
)

// Derived column names added by the pipeline.
const (
	ColRoute       = "Route"
	ColDelayBucket = "DelayBucket"
)

// Required lists the columns an input file must carry. A file missing any of
// these is rejected before a single row is processed.
var Required = []string{ColOrigin, ColDest, ColArrDelay, ColCancelled, ColDiverted}

// CauseColumns are the delay-cause breakdown columns. They are optional in
// the input and zero-filled when absent.
var CauseColumns = []string{
	ColCarrierDelay,
	ColWeatherDelay,
	ColNASDelay,
	ColSecurityDelay,
	ColLateAircraftDelay,
}

// Cleaned is the schema of the cleaned table: the retained input columns,
// typed, followed by the derived columns.
var Cleaned = arrow.NewSchema([]arrow.Field{
	{Name: ColFlightDate, Type: arrow.BinaryTypes.String},
	{Name: ColCarrier, Type: arrow.BinaryTypes.String},
	{Name: ColOrigin, Type: arrow.BinaryTypes.String},
	{Name: ColDest, Type: arrow.BinaryTypes.String},
	{Name: ColDepDelay, Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: ColArrDelay, Type: arrow.PrimitiveTypes.Float64},
	{Name: ColDistance, Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: ColCarrierDelay, Type: arrow.PrimitiveTypes.Float64},
	{Name: ColWeatherDelay, Type: arrow.PrimitiveTypes.Float64},
	{Name: ColNASDelay, Type: arrow.PrimitiveTypes.Float64},
	{Name: ColSecurityDelay, Type: arrow.PrimitiveTypes.Float64},
	{Name: ColLateAircraftDelay, Type: arrow.PrimitiveTypes.Float64},
	{Name: ColCancelled, Type: arrow.FixedWidthTypes.Boolean},
	{Name: ColDiverted, Type: arrow.FixedWidthTypes.Boolean},
	{Name: ColRoute, Type: arrow.BinaryTypes.String},
	{Name: ColDelayBucket, Type: arrow.BinaryTypes.String},
}, nil)

// SchemaError reports a required column missing from an input file.
type SchemaError struct {
	Path   string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("input %q: required column %q not found", e.Path, e.Column)
}

// CheckHeader validates that header names a position for every required
// column and returns the column index by name.
func CheckHeader(path string, header []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[name] = i
	}
	for _, col := range Required {
		if _, ok := pos[col]; !ok {
			return nil, &SchemaError{Path: path, Column: col}
		}
	}
	return pos, nil
}
