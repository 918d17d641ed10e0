package pipeline

import (
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// valueIndex maps each distinct column value to the roaring bitmap of row
// positions where it occurs. The airport filter is answered by unioning the
// bitmaps of the requested codes.
type valueIndex struct {
	mu     sync.RWMutex
	values map[string]*roaring.Bitmap
}

func newValueIndex() *valueIndex {
	return &valueIndex{
		values: make(map[string]*roaring.Bitmap),
	}
}

// Add records that value occurs at row position rowID.
func (ix *valueIndex) Add(rowID uint32, value string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	bm, ok := ix.values[value]
	if !ok {
		bm = roaring.New()
		ix.values[value] = bm
	}
	bm.Add(rowID)
}

// Search returns the bitmap of row positions for value, or nil when the
// value never occurs. The returned bitmap must not be mutated.
func (ix *valueIndex) Search(value string) *roaring.Bitmap {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.values[value]
}

// Union returns the combined row positions of all given values.
func (ix *valueIndex) Union(values []string) *roaring.Bitmap {
	out := roaring.New()
	for _, v := range values {
		if bm := ix.Search(v); bm != nil {
			out.Or(bm)
		}
	}
	return out
}

// Cardinality returns the number of distinct values indexed.
func (ix *valueIndex) Cardinality() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.values)
}
