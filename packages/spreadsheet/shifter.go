package spreadsheet

import (
	"fmt"
	"strings"
)

// ShiftMode is the kind of structural edit a Shifter describes
type ShiftMode uint8

const (
	RowMove ShiftMode = iota
	RowCopy
	ColumnMove
	ColumnCopy
	SheetMove
)

var shiftModeNames = map[ShiftMode]string{
	RowMove:    "RowMove",
	RowCopy:    "RowCopy",
	ColumnMove: "ColumnMove",
	ColumnCopy: "ColumnCopy",
	SheetMove:  "SheetMove",
}

func (m ShiftMode) String() string {
	if name, ok := shiftModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("ShiftMode(%d)", uint8(m))
}

// Shifter describes one structural edit of a workbook and rewrites formula
// tokens so they keep pointing at the right cells. a Shifter is immutable
// once built and may be shared between goroutines; each Adjust call only
// touches the slice it is given.
type Shifter struct {
	mode ShiftMode

	// sheet where rows or columns are moved or copied. the index matches
	// local refs and by-index 3D refs, the name matches by-name 3D refs.

	sheetIndex int
	sheetName  string

	// inclusive band of moved rows/columns and the distance it travels

	first int
	last  int
	delta int

	// sheet positions before and after a sheet move

	srcSheet int
	dstSheet int

	version Version
}

func newBandShifter(mode ShiftMode, sheetIndex int, sheetName string, first, last, delta int, version Version) (*Shifter, error) {
	if delta == 0 {
		return nil, NewApplicationError(InvalidArgument, "amount to move must not be zero")
	}
	if first > last {
		return nil, NewApplicationError(InvalidArgument, fmt.Sprintf("first index %d is after last index %d", first, last))
	}
	return &Shifter{
		mode:       mode,
		sheetIndex: sheetIndex,
		sheetName:  sheetName,
		first:      first,
		last:       last,
		delta:      delta,
		srcSheet:   -1,
		dstSheet:   -1,
		version:    version.orDefault(),
	}, nil
}

// NewRowMove describes rows first..last of a sheet moving by delta rows.
// inserting and deleting rows are both expressed as row moves. a zero
// version means Excel2007, as for the parser.
func NewRowMove(sheetIndex int, sheetName string, first, last, delta int, version Version) (*Shifter, error) {
	return newBandShifter(RowMove, sheetIndex, sheetName, first, last, delta, version)
}

// NewRowCopy describes rows first..last being copied delta rows away. only
// formulas inside the copied cells should be adjusted with it.
func NewRowCopy(sheetIndex int, sheetName string, first, last, delta int, version Version) (*Shifter, error) {
	return newBandShifter(RowCopy, sheetIndex, sheetName, first, last, delta, version)
}

// NewColumnMove describes columns first..last of a sheet moving by delta
// columns
func NewColumnMove(sheetIndex int, sheetName string, first, last, delta int, version Version) (*Shifter, error) {
	return newBandShifter(ColumnMove, sheetIndex, sheetName, first, last, delta, version)
}

// NewColumnCopy describes columns first..last being copied delta columns away
func NewColumnCopy(sheetIndex int, sheetName string, first, last, delta int, version Version) (*Shifter, error) {
	return newBandShifter(ColumnCopy, sheetIndex, sheetName, first, last, delta, version)
}

// NewSheetMove describes the sheet at position src being reordered to dst
func NewSheetMove(src, dst int) (*Shifter, error) {
	if src == dst {
		return nil, NewApplicationError(InvalidArgument, fmt.Sprintf("sheet move source and destination are both %d", src))
	}
	return &Shifter{
		mode:       SheetMove,
		sheetIndex: -1,
		first:      -1,
		last:       -1,
		srcSheet:   src,
		dstSheet:   dst,
	}, nil
}

// Must panics if err is non-nil. it is meant for descriptors built from
// values the caller already validated, where a failure is a programming error.
func Must(s *Shifter, err error) *Shifter {
	if err != nil {
		panic(err)
	}
	return s
}

// Mode returns the kind of edit
func (s *Shifter) Mode() ShiftMode {
	return s.mode
}

// Band returns the inclusive moved band and its offset
func (s *Shifter) Band() (first, last, delta int) {
	return s.first, s.last, s.delta
}

// SheetPositions returns the source and destination of a sheet move
func (s *Shifter) SheetPositions() (src, dst int) {
	return s.srcSheet, s.dstSheet
}

func (s *Shifter) String() string {
	if s.mode == SheetMove {
		return fmt.Sprintf("%s [sheet %d -> %d]", s.mode, s.srcSheet, s.dstSheet)
	}
	return fmt.Sprintf("%s [%d..%d by %d on sheet %d %q]", s.mode, s.first, s.last, s.delta, s.sheetIndex, s.sheetName)
}

// Adjust rewrites every reference in tokens affected by the edit.
// currentSheet is the index of the sheet holding the formula. slots are
// overwritten with replacement tokens, never removed. returns true if any
// slot changed.
func (s *Shifter) Adjust(tokens []Token, currentSheet int) bool {
	changed := false
	for i, t := range tokens {
		if next := s.adjustToken(t, currentSheet); next != nil {
			tokens[i] = next
			changed = true
		}
	}
	return changed
}

// adjustToken returns the replacement for t, or nil when t is unaffected
func (s *Shifter) adjustToken(t Token, currentSheet int) Token {
	switch s.mode {
	case RowMove, ColumnMove:
		return s.adjustForMove(t, currentSheet)
	case RowCopy, ColumnCopy:
		return s.adjustForCopy(t)
	case SheetMove:
		return s.adjustForSheetMove(t)
	}
	panic(faultf("unsupported shift mode: %s", s.mode))
}

// isRowMode reports whether the band is made of rows rather than columns
func (s *Shifter) isRowMode() bool {
	return s.mode == RowMove || s.mode == RowCopy
}

// targetsEditedSheet decides whether a reference points into the sheet the
// band belongs to
func (s *Shifter) targetsEditedSheet(binding SheetBinding, currentSheet int) bool {
	return bindingTargets(binding, currentSheet, s.sheetIndex, s.sheetName)
}

// bindingTargets reports whether a binding denotes the sheet at sheetIndex
// named sheetName. local refs resolve through the sheet holding the formula.
func bindingTargets(binding SheetBinding, currentSheet, sheetIndex int, sheetName string) bool {
	switch b := binding.(type) {
	case nil:
		return currentSheet == sheetIndex
	case SheetIndex:
		return int(b) == sheetIndex
	case SheetName:
		return b.Workbook == 0 && strings.EqualFold(b.Name, sheetName)
	}
	panic(faultf("unexpected sheet binding %T", binding))
}

func (s *Shifter) adjustForSheetMove(t Token) Token {
	switch ref := t.(type) {
	case CellRef:
		if sheet, ok := s.rebindSheet(ref.Sheet); ok {
			ref.Sheet = sheet
			return ref
		}
	case AreaRef:
		if sheet, ok := s.rebindSheet(ref.Sheet); ok {
			ref.Sheet = sheet
			return ref
		}
	case BrokenRef:
		if sheet, ok := s.rebindSheet(ref.Sheet); ok {
			ref.Sheet = sheet
			return ref
		}
	case Lexeme:
	default:
		panic(faultf("unexpected token %T", t))
	}
	return nil
}

// rebindSheet maps a by-index binding to the sheet's position after the
// move. other bindings are unaffected.
func (s *Shifter) rebindSheet(binding SheetBinding) (SheetBinding, bool) {
	idx, ok := binding.(SheetIndex)
	if !ok {
		return nil, false
	}
	old := int(idx)
	if old < min(s.srcSheet, s.dstSheet) || old > max(s.srcSheet, s.dstSheet) {
		return nil, false
	}
	switch {
	case old == s.srcSheet:
		return SheetIndex(s.dstSheet), true
	case s.dstSheet < s.srcSheet:
		// sheets between dst and src-1 slide one position later
		return SheetIndex(old + 1), true
	default:
		// sheets between src+1 and dst slide one position earlier
		return SheetIndex(old - 1), true
	}
}

// faultf builds the error used for states the shift geometry rules out.
// callers panic with it.
func faultf(format string, args ...any) *AppError {
	return NewApplicationError(Internal, fmt.Sprintf(format, args...))
}
