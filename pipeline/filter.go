package pipeline

import (
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/TFMV/flightline/config"
)

// parseFlag interprets the Cancelled/Diverted markers. BTS extracts encode
// them as "0.00"/"1.00"; hand-built files often use "true"/"false".
func parseFlag(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if b, err := strconv.ParseBool(s); err == nil {
		return b, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false, err
	}
	return f != 0, nil
}

// filterResult carries the row positions removed by policy, split by reason
// so the summary accounting stays exact.
type filterResult struct {
	cancelledDiverted *roaring.Bitmap
	unmatched         *roaring.Bitmap
}

// dropped reports whether row i was removed by either predicate.
func (fr *filterResult) dropped(i uint32) bool {
	return fr.cancelledDiverted.Contains(i) || fr.unmatched.Contains(i)
}

// filter computes the drop bitmaps for the cancelled/diverted policy and the
// optional airport mask. Rows whose flags cannot be parsed are left for the
// normalize stage, which drops them as invalid.
func filter(t *rawTable, cfg config.FilterCfg) *filterResult {
	fr := &filterResult{
		cancelledDiverted: roaring.New(),
		unmatched:         roaring.New(),
	}

	if cfg.CancelledDiverted {
		for i, row := range t.rows {
			cancelled, errC := parseFlag(row[rawCancelled])
			diverted, errD := parseFlag(row[rawDiverted])
			if errC != nil || errD != nil {
				continue
			}
			if cancelled || diverted {
				fr.cancelledDiverted.Add(uint32(i))
			}
		}
	}

	if len(cfg.Airports) > 0 {
		origins := newValueIndex()
		dests := newValueIndex()
		for i, row := range t.rows {
			origins.Add(uint32(i), row[rawOrigin])
			dests.Add(uint32(i), row[rawDest])
		}
		keep := origins.Union(cfg.Airports)
		keep.Or(dests.Union(cfg.Airports))

		for i := range t.rows {
			pos := uint32(i)
			if keep.Contains(pos) || fr.cancelledDiverted.Contains(pos) {
				continue
			}
			fr.unmatched.Add(pos)
		}
	}

	return fr
}
