package spreadsheet

import "fmt"

// Adjuster rewrites the references of a formula for one structural edit.
// *Shifter covers every band move, copy and sheet move; inserts and deletes
// that reach the end of the grid use a tail cut.
type Adjuster interface {
	Adjust(tokens []Token, currentSheet int) bool
	String() string
}

var (
	_ Adjuster = (*Shifter)(nil)
	_ Adjuster = (*tailCut)(nil)
)

// tailCut drops rows or columns at..limit of a sheet. deleting up to the
// last row leaves no band to move up, and inserting at the tail pushes the
// tail off the grid, so neither is a band move. references wholly inside
// the tail break. when truncate is set (deletes), areas straddling at keep
// their part above at.
type tailCut struct {
	rows       bool
	sheetIndex int
	sheetName  string
	at         int
	truncate   bool
}

func newTailCut(rows bool, sheetIndex int, sheetName string, at int, truncate bool) *tailCut {
	return &tailCut{
		rows:       rows,
		sheetIndex: sheetIndex,
		sheetName:  sheetName,
		at:         at,
		truncate:   truncate,
	}
}

func (c *tailCut) String() string {
	kind := "TailInsert"
	if c.truncate {
		kind = "TailDelete"
	}
	return fmt.Sprintf("%s [%ss %d.. on sheet %d %q]", kind, axisName(c.rows), c.at, c.sheetIndex, c.sheetName)
}

// Adjust rewrites references into the tail. returns true if any slot
// changed.
func (c *tailCut) Adjust(tokens []Token, currentSheet int) bool {
	changed := false
	for i, t := range tokens {
		if next := c.adjustToken(t, currentSheet); next != nil {
			tokens[i] = next
			changed = true
		}
	}
	return changed
}

func (c *tailCut) adjustToken(t Token, currentSheet int) Token {
	switch ref := t.(type) {
	case CellRef:
		if !bindingTargets(ref.Sheet, currentSheet, c.sheetIndex, c.sheetName) {
			return nil
		}
		idx := ref.Column
		if c.rows {
			idx = ref.Row
		}
		if idx >= c.at {
			return breakRef(ref)
		}
	case AreaRef:
		if !bindingTargets(ref.Sheet, currentSheet, c.sheetIndex, c.sheetName) {
			return nil
		}
		first, last := ref.FirstColumn, &ref.LastColumn
		if c.rows {
			first, last = ref.FirstRow, &ref.LastRow
		}
		switch {
		case first >= c.at:
			return breakRef(ref)
		case *last >= c.at && c.truncate:
			*last = c.at - 1
			return ref
		}
	case BrokenRef, Lexeme:
	default:
		panic(faultf("unexpected token %T", t))
	}
	return nil
}
