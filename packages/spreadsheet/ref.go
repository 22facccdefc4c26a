package spreadsheet

// Token is one element of a parsed formula. the set of implementations is
// closed: CellRef, AreaRef, BrokenRef and Lexeme.
type Token interface {
	isToken()
}

// SheetBinding names the sheet a 3D reference points at. a nil binding
// marks a local reference, which implicitly targets the formula's own sheet.
type SheetBinding interface {
	isSheetBinding()
}

// SheetIndex binds a reference to a sheet by its position in the workbook's
// sheet table (legacy binary form)
type SheetIndex int

// SheetName binds a reference to a sheet by name. Workbook 0 is the
// workbook containing the formula, any other value is an external link.
type SheetName struct {
	Workbook int
	Name     string
}

func (SheetIndex) isSheetBinding() {}
func (SheetName) isSheetBinding()  {}

// CellRef references a single cell. indices are zero-based.
type CellRef struct {
	Row            int
	Column         int
	RowRelative    bool
	ColumnRelative bool
	Sheet          SheetBinding
}

// AreaRef references a rectangular range of cells. each of the four edges
// carries its own relative flag.
type AreaRef struct {
	FirstRow            int
	LastRow             int
	FirstColumn         int
	LastColumn          int
	FirstRowRelative    bool
	LastRowRelative     bool
	FirstColumnRelative bool
	LastColumnRelative  bool
	Sheet               SheetBinding
}

// BrokenRef stands in for a reference whose target was destroyed by a
// structural edit. only the sheet binding survives.
type BrokenRef struct {
	Area  bool
	Sheet SheetBinding
}

func (CellRef) isToken()   {}
func (AreaRef) isToken()   {}
func (BrokenRef) isToken() {}
func (Lexeme) isToken()    {}

// Sorted returns the area with its edges ordered top-left to bottom-right.
// relative flags travel with the edge they belong to.
func (a AreaRef) Sorted() AreaRef {
	if a.FirstRow > a.LastRow {
		a.FirstRow, a.LastRow = a.LastRow, a.FirstRow
		a.FirstRowRelative, a.LastRowRelative = a.LastRowRelative, a.FirstRowRelative
	}
	if a.FirstColumn > a.LastColumn {
		a.FirstColumn, a.LastColumn = a.LastColumn, a.FirstColumn
		a.FirstColumnRelative, a.LastColumnRelative = a.LastColumnRelative, a.FirstColumnRelative
	}
	return a
}

// IsSingleCell reports whether the area spans exactly one cell
func (a AreaRef) IsSingleCell() bool {
	return a.FirstRow == a.LastRow && a.FirstColumn == a.LastColumn
}

// breakRef builds the broken replacement for a reference token, keeping its
// sheet binding
func breakRef(t Token) BrokenRef {
	switch ref := t.(type) {
	case CellRef:
		return BrokenRef{Sheet: ref.Sheet}
	case AreaRef:
		return BrokenRef{Area: true, Sheet: ref.Sheet}
	case BrokenRef:
		return ref
	}
	panic(faultf("cannot break non-reference token %T", t))
}

// CloneTokens returns a copy of a token sequence. tokens are values so a
// shallow copy is enough.
func CloneTokens(tokens []Token) []Token {
	if tokens == nil {
		return nil
	}
	out := make([]Token, len(tokens))
	copy(out, tokens)
	return out
}
