package spreadsheet

// Storage holds references to shared tables needed by workbook operations
type Storage struct {
	sheets      *SheetTable
	namedRanges *NamedRangeTable
	formulas    *FormulaTable
}

// NewStorage creates empty tables
func NewStorage() *Storage {
	return &Storage{
		sheets:      NewSheetTable(),
		namedRanges: NewNamedRangeTable(),
		formulas:    NewFormulaTable(),
	}
}

// sheetPosition returns the current position of a worksheet, -1 if it is
// gone
func (s *Storage) sheetPosition(worksheetID uint32) int {
	idx, ok := s.sheets.IndexOf(worksheetID)
	if !ok {
		return -1
	}
	return idx
}

// parserContext binds sheet names of this workbook to their positions
func (s *Storage) parserContext(version Version) *ParserContext {
	return &ParserContext{
		ResolveSheet: s.sheets.Index,
		Version:      version,
	}
}

// renderContext maps sheet positions back to names
func (s *Storage) renderContext() *RenderContext {
	return &RenderContext{SheetName: s.sheets.Name}
}
