package spreadsheet

import "fmt"

// outcome is the effect of a move on one axis of a reference
type outcome uint8

const (
	unchanged outcome = iota
	shifted
	destroyed
)

func (s *Shifter) adjustForMove(t Token, currentSheet int) Token {
	switch ref := t.(type) {
	case CellRef:
		if !s.targetsEditedSheet(ref.Sheet, currentSheet) {
			return nil
		}
		return s.moveCell(ref)
	case AreaRef:
		if !s.targetsEditedSheet(ref.Sheet, currentSheet) {
			return nil
		}
		return s.moveArea(ref)
	case BrokenRef, Lexeme:
		return nil
	}
	panic(faultf("unexpected token %T", t))
}

func (s *Shifter) moveCell(ref CellRef) Token {
	idx := &ref.Column
	if s.isRowMode() {
		idx = &ref.Row
	}
	next, out := s.moveIndex(*idx)
	switch out {
	case shifted:
		*idx = next
		return ref
	case destroyed:
		return breakRef(ref)
	}
	return nil
}

func (s *Shifter) moveArea(ref AreaRef) Token {
	first, last := &ref.FirstColumn, &ref.LastColumn
	if s.isRowMode() {
		first, last = &ref.FirstRow, &ref.LastRow
	}
	newFirst, newLast, out := s.moveSpan(*first, *last)
	switch out {
	case shifted:
		*first, *last = newFirst, newLast
		return ref
	case destroyed:
		return breakRef(ref)
	}
	return nil
}

// destBand returns where the moved band lands
func (s *Shifter) destBand() (int, int) {
	return s.first + s.delta, s.last + s.delta
}

// moveIndex moves a single row or column index
func (s *Shifter) moveIndex(idx int) (int, outcome) {
	if s.first <= idx && idx <= s.last {
		// the cell travels with the band regardless of destination
		return idx + s.delta, shifted
	}
	destFirst, destLast := s.destBand()
	if destLast < idx || idx < destFirst {
		return idx, unchanged
	}
	if destFirst <= idx && idx <= destLast {
		// overwritten by the moved cells
		return idx, destroyed
	}
	panic(s.notCovered(idx, idx))
}

// moveSpan moves the [aFirst, aLast] span of an area. the rules follow what
// Excel does for each way the moved band and its destination can overlap
// the area.
func (s *Shifter) moveSpan(aFirst, aLast int) (int, int, outcome) {
	if s.first <= aFirst && aLast <= s.last {
		// band encloses the area, it moves along
		return aFirst + s.delta, aLast + s.delta, shifted
	}

	destFirst, destLast := s.destBand()

	if aFirst < s.first && s.last < aLast {
		// band was strictly inside the area. only a destination clipping
		// one of the area's edges changes anything.
		if destFirst < aFirst && aFirst <= destLast {
			return destLast + 1, aLast, shifted
		} else if destFirst <= aLast && aLast < destLast {
			return aFirst, destFirst - 1, shifted
		}
		return aFirst, aLast, unchanged
	}

	if s.first <= aFirst && aFirst <= s.last {
		// band holds the top edge but not the bottom one
		if s.delta < 0 {
			return aFirst + s.delta, aLast, shifted
		}
		if destFirst > aLast {
			// excel ignores this move
			return aFirst, aLast, unchanged
		}
		newFirst := aFirst + s.delta
		if destLast < aLast {
			// bottom edge stays put
			return newFirst, aLast, shifted
		}
		// bottom edge was overwritten, both edges may move
		remainingTop := s.last + 1
		if destFirst > remainingTop {
			newFirst = remainingTop
		}
		return newFirst, max(aLast, destLast), shifted
	}

	if s.first <= aLast && aLast <= s.last {
		// band holds the bottom edge but not the top one
		if s.delta > 0 {
			return aFirst, aLast + s.delta, shifted
		}
		if destLast < aFirst {
			// excel ignores this move
			return aFirst, aLast, unchanged
		}
		newLast := aLast + s.delta
		if destFirst > aFirst {
			// top edge stays put
			return aFirst, newLast, shifted
		}
		// top edge was overwritten, both edges may move
		remainingBottom := s.first - 1
		if destLast < remainingBottom {
			newLast = remainingBottom
		}
		return min(aFirst, destFirst), newLast, shifted
	}

	// band misses the area entirely, only the destination can clash

	if destLast < aFirst || aLast < destFirst {
		return aFirst, aLast, unchanged
	}
	if destFirst <= aFirst && aLast <= destLast {
		// destination covers the whole area (possibly exactly)
		return aFirst, aLast, destroyed
	}
	if aFirst <= destFirst && destLast <= aLast {
		// destination lands inside the area
		return aFirst, aLast, unchanged
	}
	if destFirst < aFirst && aFirst <= destLast {
		// destination clips the top
		return destLast + 1, aLast, shifted
	}
	if destFirst <= aLast && aLast < destLast {
		// destination clips the bottom
		return aFirst, destFirst - 1, shifted
	}
	panic(s.notCovered(aFirst, aLast))
}

func (s *Shifter) notCovered(aFirst, aLast int) *AppError {
	return faultf("situation not covered: band %d..%d by %d, reference %d..%d",
		s.first, s.last, s.delta, aFirst, aLast)
}

// String is used in fault messages and logs
func (o outcome) String() string {
	switch o {
	case unchanged:
		return "unchanged"
	case shifted:
		return "shifted"
	case destroyed:
		return "destroyed"
	}
	return fmt.Sprintf("outcome(%d)", uint8(o))
}
