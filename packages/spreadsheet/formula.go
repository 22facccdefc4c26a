package spreadsheet

import "sort"

// FormulaTable stores parsed formulas by the cell holding them
type FormulaTable struct {
	formulaAtCell map[CellAddress][]Token

	// cells holding a formula, per worksheet
	cellsBySheet map[uint32]map[CellAddress]struct{}
}

// NewFormulaTable creates a new formula table
func NewFormulaTable() *FormulaTable {
	return &FormulaTable{
		formulaAtCell: make(map[CellAddress][]Token),
		cellsBySheet:  make(map[uint32]map[CellAddress]struct{}),
	}
}

// Set stores the tokens of the formula at a cell, replacing any previous
// formula there
func (ft *FormulaTable) Set(cell CellAddress, tokens []Token) {
	ft.formulaAtCell[cell] = tokens

	cells, exists := ft.cellsBySheet[cell.WorksheetID]
	if !exists {
		cells = make(map[CellAddress]struct{})
		ft.cellsBySheet[cell.WorksheetID] = cells
	}
	cells[cell] = struct{}{}
}

// Get returns the tokens of the formula at a cell
func (ft *FormulaTable) Get(cell CellAddress) ([]Token, bool) {
	tokens, exists := ft.formulaAtCell[cell]
	return tokens, exists
}

// Remove deletes the formula at a cell. returns true if there was one.
func (ft *FormulaTable) Remove(cell CellAddress) bool {
	if _, exists := ft.formulaAtCell[cell]; !exists {
		return false
	}
	delete(ft.formulaAtCell, cell)

	cells := ft.cellsBySheet[cell.WorksheetID]
	delete(cells, cell)
	if len(cells) == 0 {
		delete(ft.cellsBySheet, cell.WorksheetID)
	}
	return true
}

// Cells returns every cell holding a formula, ordered by worksheet ID, then
// row, then column
func (ft *FormulaTable) Cells() []CellAddress {
	result := make([]CellAddress, 0, len(ft.formulaAtCell))
	for cell := range ft.formulaAtCell {
		result = append(result, cell)
	}
	sortCells(result)
	return result
}

// CellsOn returns the formula cells of one worksheet in row, then column
// order
func (ft *FormulaTable) CellsOn(worksheetID uint32) []CellAddress {
	cells := ft.cellsBySheet[worksheetID]
	result := make([]CellAddress, 0, len(cells))
	for cell := range cells {
		result = append(result, cell)
	}
	sortCells(result)
	return result
}

// Count returns the number of formulas
func (ft *FormulaTable) Count() int {
	return len(ft.formulaAtCell)
}

// Clear removes all formulas
func (ft *FormulaTable) Clear() {
	ft.formulaAtCell = make(map[CellAddress][]Token)
	ft.cellsBySheet = make(map[uint32]map[CellAddress]struct{})
}

// sortCells orders cells for deterministic iteration (by worksheet, then
// row, then column)
func sortCells(cells []CellAddress) {
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].WorksheetID != cells[j].WorksheetID {
			return cells[i].WorksheetID < cells[j].WorksheetID
		}
		if cells[i].Row != cells[j].Row {
			return cells[i].Row < cells[j].Row
		}
		return cells[i].Column < cells[j].Column
	})
}
