package spreadsheet

// adjustForCopy shifts the relative parts of references inside copied
// cells. absolute coordinates keep pointing where they did.
func (s *Shifter) adjustForCopy(t Token) Token {
	switch ref := t.(type) {
	case CellRef:
		if ref.Sheet != nil && !s.targetsEditedSheet(ref.Sheet, s.sheetIndex) {
			return nil
		}
		return s.copyCell(ref)
	case AreaRef:
		if ref.Sheet != nil && !s.targetsEditedSheet(ref.Sheet, s.sheetIndex) {
			return nil
		}
		return s.copyArea(ref)
	case BrokenRef, Lexeme:
		return nil
	}
	panic(faultf("unexpected token %T", t))
}

// limit returns the last valid index on the copy axis
func (s *Shifter) limit() int {
	if s.isRowMode() {
		return s.version.LastRowIndex()
	}
	return s.version.LastColumnIndex()
}

func (s *Shifter) inBounds(idx int) bool {
	return 0 <= idx && idx <= s.limit()
}

func (s *Shifter) copyCell(ref CellRef) Token {
	idx, relative := &ref.Column, ref.ColumnRelative
	if s.isRowMode() {
		idx, relative = &ref.Row, ref.RowRelative
	}
	if !relative {
		return nil
	}
	// the copied formula itself must land on the sheet
	if !s.inBounds(s.first + s.delta) {
		return breakRef(ref)
	}
	target := *idx + s.delta
	if !s.inBounds(target) {
		return breakRef(ref)
	}
	*idx = target
	return ref
}

func (s *Shifter) copyArea(ref AreaRef) Token {
	first, firstRelative := &ref.FirstColumn, ref.FirstColumnRelative
	last, lastRelative := &ref.LastColumn, ref.LastColumnRelative
	if s.isRowMode() {
		first, firstRelative = &ref.FirstRow, ref.FirstRowRelative
		last, lastRelative = &ref.LastRow, ref.LastRowRelative
	}

	changed := false
	if firstRelative {
		target := *first + s.delta
		if !s.inBounds(target) {
			return breakRef(ref)
		}
		*first = target
		changed = true
	}
	if lastRelative {
		target := *last + s.delta
		if !s.inBounds(target) {
			return breakRef(ref)
		}
		*last = target
		changed = true
	}
	if !changed {
		return nil
	}
	return ref.Sorted()
}
