package regions

import "math/bits"

const wordBits = 64

// BitSet is a fixed-domain dense bit set.
type BitSet struct {
	domain int
	words  []uint64
}

func NewBitSet(domain int) *BitSet {
	return &BitSet{domain: domain, words: make([]uint64, (domain+wordBits-1)/wordBits)}
}

func (b *BitSet) Domain() int { return b.domain }

// Insert sets bit i and reports whether it was previously unset.
func (b *BitSet) Insert(i int) bool {
	w, m := i/wordBits, uint64(1)<<(uint(i)%wordBits)
	if b.words[w]&m != 0 {
		return false
	}
	b.words[w] |= m
	return true
}

func (b *BitSet) Contains(i int) bool {
	if i < 0 || i >= b.domain {
		return false
	}
	return b.words[i/wordBits]&(uint64(1)<<(uint(i)%wordBits)) != 0
}

// InsertAll fills the whole domain and reports whether anything changed.
func (b *BitSet) InsertAll() bool {
	changed := false
	for w := range b.words {
		full := ^uint64(0)
		if w == len(b.words)-1 && b.domain%wordBits != 0 {
			full = (uint64(1) << (uint(b.domain) % wordBits)) - 1
		}
		if b.words[w] != full {
			b.words[w] = full
			changed = true
		}
	}
	return changed
}

// Union adds every bit of other into b and reports whether b grew.
func (b *BitSet) Union(other *BitSet) bool {
	changed := false
	for w, ow := range other.words {
		nw := b.words[w] | ow
		if nw != b.words[w] {
			b.words[w] = nw
			changed = true
		}
	}
	return changed
}

// Superset reports whether every bit of other is also set in b.
func (b *BitSet) Superset(other *BitSet) bool {
	for w, ow := range other.words {
		if ow&^b.words[w] != 0 {
			return false
		}
	}
	return true
}

func (b *BitSet) IsEmpty() bool {
	for _, w := range b.words {
		if w != 0 {
			return false
		}
	}
	return true
}

func (b *BitSet) Count() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Each calls fn for every set bit in increasing order until fn returns false.
func (b *BitSet) Each(fn func(i int) bool) {
	for wi, w := range b.words {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			if !fn(wi*wordBits + tz) {
				return
			}
			w &= w - 1
		}
	}
}

// Slice returns the set bits in increasing order.
func (b *BitSet) Slice() []int {
	out := make([]int, 0, b.Count())
	b.Each(func(i int) bool {
		out = append(out, i)
		return true
	})
	return out
}

// SparseBitMatrix keeps one lazily allocated BitSet per row.
type SparseBitMatrix struct {
	columns int
	rows    []*BitSet
}

func NewSparseBitMatrix(columns int) *SparseBitMatrix {
	return &SparseBitMatrix{columns: columns}
}

func (m *SparseBitMatrix) ensureRow(row int) *BitSet {
	if row >= len(m.rows) {
		grown := make([]*BitSet, row+1)
		copy(grown, m.rows)
		m.rows = grown
	}
	if m.rows[row] == nil {
		m.rows[row] = NewBitSet(m.columns)
	}
	return m.rows[row]
}

// Row returns the row or nil if it was never written.
func (m *SparseBitMatrix) Row(row int) *BitSet {
	if row < 0 || row >= len(m.rows) {
		return nil
	}
	return m.rows[row]
}

func (m *SparseBitMatrix) Insert(row, column int) bool {
	return m.ensureRow(row).Insert(column)
}

func (m *SparseBitMatrix) InsertAllInto(row int) bool {
	return m.ensureRow(row).InsertAll()
}

func (m *SparseBitMatrix) Contains(row, column int) bool {
	r := m.Row(row)
	return r != nil && r.Contains(column)
}

// UnionRows merges row from into row into and reports whether into grew.
func (m *SparseBitMatrix) UnionRows(from, into int) bool {
	src := m.Row(from)
	if src == nil || from == into {
		return false
	}
	return m.ensureRow(into).Union(src)
}

// UnionRow merges an external set into row.
func (m *SparseBitMatrix) UnionRow(row int, set *BitSet) bool {
	if set == nil {
		return false
	}
	return m.ensureRow(row).Union(set)
}

// RowSuperset reports whether row sup contains every bit of row sub.
func (m *SparseBitMatrix) RowSuperset(sup, sub int) bool {
	subRow := m.Row(sub)
	if subRow == nil {
		return true
	}
	supRow := m.Row(sup)
	if supRow == nil {
		return subRow.IsEmpty()
	}
	return supRow.Superset(subRow)
}

// NumRows is the number of allocated-or-skipped rows seen so far.
func (m *SparseBitMatrix) NumRows() int { return len(m.rows) }
