package pipeline

import (
	"strconv"
	"strings"

	"github.com/TFMV/flightline/config"
)

// cleanColumns is the typed, columnar form of the surviving rows, ready to
// be appended to Arrow builders.
type cleanColumns struct {
	flightDate []string
	carrier    []string
	origin     []string
	dest       []string

	depDelay     []float64
	depDelayNull []bool
	arrDelay     []float64
	distance     []float64
	distanceNull []bool

	// causes holds the five delay-cause columns in schema.CauseColumns order.
	causes [5][]float64

	cancelled []bool
	diverted  []bool

	// droppedMissing counts rows removed for missing or uncoercible
	// critical fields.
	droppedMissing int64
}

func (c *cleanColumns) len() int { return len(c.arrDelay) }

var causeSlots = [5]int{
	rawCarrierDelay,
	rawWeatherDelay,
	rawNASDelay,
	rawSecurityDelay,
	rawLateAircraftDelay,
}

// normalize coerces the surviving raw rows to typed values.
//
// Arrival delay is the critical column: an empty value always drops the row,
// a malformed value drops or imputes per the configured policy. Departure
// delay and distance stay nullable. Cause columns default to the configured
// fill when absent, empty, or malformed. Rows whose cancelled/diverted flags
// cannot be parsed are dropped as invalid.
func normalize(t *rawTable, fr *filterResult, cfg config.NormalizeCfg) *cleanColumns {
	out := &cleanColumns{}
	// Unreadable CSV lines never reached the raw table but were read; they
	// count against the same bucket as invalid rows.
	out.droppedMissing = t.unreadable

	for i, row := range t.rows {
		if fr.dropped(uint32(i)) {
			continue
		}

		cancelled, errC := parseFlag(row[rawCancelled])
		diverted, errD := parseFlag(row[rawDiverted])
		if errC != nil || errD != nil {
			out.droppedMissing++
			continue
		}

		raw := strings.TrimSpace(row[rawArrDelay])
		var arrDelay float64
		if raw == "" {
			out.droppedMissing++
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		switch {
		case err == nil:
			arrDelay = v
		case cfg.OnParseError == config.OnParseErrorImpute:
			arrDelay = cfg.ImputeValue
		default:
			out.droppedMissing++
			continue
		}

		out.flightDate = append(out.flightDate, row[rawFlightDate])
		out.carrier = append(out.carrier, row[rawCarrier])
		out.origin = append(out.origin, row[rawOrigin])
		out.dest = append(out.dest, row[rawDest])
		out.arrDelay = append(out.arrDelay, arrDelay)
		out.cancelled = append(out.cancelled, cancelled)
		out.diverted = append(out.diverted, diverted)

		dep, depOK := parseOptional(row[rawDepDelay])
		out.depDelay = append(out.depDelay, dep)
		out.depDelayNull = append(out.depDelayNull, !depOK)

		dist, distOK := parseOptional(row[rawDistance])
		out.distance = append(out.distance, dist)
		out.distanceNull = append(out.distanceNull, !distOK)

		for c, slot := range causeSlots {
			cause, ok := parseOptional(row[slot])
			if !ok {
				cause = cfg.CauseFill
			}
			out.causes[c] = append(out.causes[c], cause)
		}
	}
	return out
}

// parseOptional coerces a non-critical numeric field, reporting ok=false
// when the value is absent or malformed.
func parseOptional(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
