package regions

import (
	"fmt"

	"fortio.org/safecast"
)

// PlaceholderIndex is the dense number of a placeholder region.
type PlaceholderIndex uint32

// PlaceholderIndices numbers the placeholders of a body densely.
type PlaceholderIndices struct {
	index map[PlaceholderRegion]PlaceholderIndex
	items []PlaceholderRegion
}

func NewPlaceholderIndices() *PlaceholderIndices {
	return &PlaceholderIndices{index: make(map[PlaceholderRegion]PlaceholderIndex)}
}

// Insert returns the index of p, allocating one on first use.
func (pi *PlaceholderIndices) Insert(p PlaceholderRegion) PlaceholderIndex {
	if idx, ok := pi.index[p]; ok {
		return idx
	}
	v, err := safecast.Conv[uint32](len(pi.items))
	if err != nil {
		panic(fmt.Errorf("placeholder index overflow: %w", err))
	}
	idx := PlaceholderIndex(v)
	pi.index[p] = idx
	pi.items = append(pi.items, p)
	return idx
}

func (pi *PlaceholderIndices) Lookup(p PlaceholderRegion) (PlaceholderIndex, bool) {
	if pi == nil {
		return 0, false
	}
	idx, ok := pi.index[p]
	return idx, ok
}

func (pi *PlaceholderIndices) Placeholder(idx PlaceholderIndex) PlaceholderRegion {
	return pi.items[idx]
}

func (pi *PlaceholderIndices) Len() int {
	if pi == nil {
		return 0
	}
	return len(pi.items)
}
