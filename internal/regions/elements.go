package regions

import (
	"fmt"

	"fortio.org/safecast"
)

// Location is a point in the control-flow graph: a statement index inside
// a basic block. The terminator of a block with n statements is at index n.
type Location struct {
	Block     uint32
	Statement uint32
}

func (l Location) String() string {
	return fmt.Sprintf("bb%d[%d]", l.Block, l.Statement)
}

// Less orders locations by block, then statement.
func (l Location) Less(o Location) bool {
	if l.Block != o.Block {
		return l.Block < o.Block
	}
	return l.Statement < o.Statement
}

// PointIndex is the dense number of a Location.
type PointIndex uint32

// Elements assigns dense point indices to every location of a body.
type Elements struct {
	statementsBeforeBlock []int
	basicBlocks           []uint32 // point -> block
	numPoints             int
}

// NewElements numbers the points of a body whose blocks contain the given
// numbers of statements.
func NewElements(statementsPerBlock []int) *Elements {
	e := &Elements{statementsBeforeBlock: make([]int, len(statementsPerBlock))}
	total := 0
	for bb, n := range statementsPerBlock {
		if n < 0 {
			panic(fmt.Errorf("block bb%d has negative statement count %d", bb, n))
		}
		e.statementsBeforeBlock[bb] = total
		total += n + 1
	}
	e.numPoints = total
	e.basicBlocks = make([]uint32, 0, total)
	for bb, n := range statementsPerBlock {
		block, err := safecast.Conv[uint32](bb)
		if err != nil {
			panic(fmt.Errorf("basic block overflow: %w", err))
		}
		for range n + 1 {
			e.basicBlocks = append(e.basicBlocks, block)
		}
	}
	return e
}

func (e *Elements) NumPoints() int { return e.numPoints }

func (e *Elements) NumBlocks() int { return len(e.statementsBeforeBlock) }

// PointsInBlock is the number of points of block bb, terminator included.
func (e *Elements) PointsInBlock(bb uint32) int {
	start := e.statementsBeforeBlock[bb]
	if int(bb)+1 < len(e.statementsBeforeBlock) {
		return e.statementsBeforeBlock[bb+1] - start
	}
	return e.numPoints - start
}

// ValidLocation reports whether loc names a point of the body.
func (e *Elements) ValidLocation(loc Location) bool {
	if int(loc.Block) >= len(e.statementsBeforeBlock) {
		return false
	}
	return int(loc.Statement) < e.PointsInBlock(loc.Block)
}

func (e *Elements) PointFromLocation(loc Location) PointIndex {
	if !e.ValidLocation(loc) {
		panic(fmt.Errorf("location %s is outside the body", loc))
	}
	idx, err := safecast.Conv[uint32](e.statementsBeforeBlock[loc.Block] + int(loc.Statement))
	if err != nil {
		panic(fmt.Errorf("point index overflow: %w", err))
	}
	return PointIndex(idx)
}

func (e *Elements) ToLocation(p PointIndex) Location {
	if int(p) >= e.numPoints {
		panic(fmt.Errorf("point %d is outside the body (%d points)", p, e.numPoints))
	}
	block := e.basicBlocks[p]
	stmt, err := safecast.Conv[uint32](int(p) - e.statementsBeforeBlock[block])
	if err != nil {
		panic(fmt.Errorf("statement index overflow: %w", err))
	}
	return Location{Block: block, Statement: stmt}
}

// PointInRange reports whether p belongs to the body.
func (e *Elements) PointInRange(p PointIndex) bool {
	return int(p) < e.numPoints
}
