package spreadsheet

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// MoveRows moves rows first..last (zero-based, inclusive) of a sheet by
// delta rows. formula cells in the band travel with it and overwrite the
// destination, then every formula and name in the workbook is adjusted.
func (w *Workbook) MoveRows(sheet string, first, last, delta int) (EditReport, error) {
	return w.moveBand(sheet, true, first, last, delta)
}

// MoveColumns moves columns first..last of a sheet by delta columns
func (w *Workbook) MoveColumns(sheet string, first, last, delta int) (EditReport, error) {
	return w.moveBand(sheet, false, first, last, delta)
}

// CopyRows copies the formula cells of rows first..last delta rows away.
// only the copies are adjusted.
func (w *Workbook) CopyRows(sheet string, first, last, delta int) (EditReport, error) {
	return w.copyBand(sheet, true, first, last, delta)
}

// CopyColumns copies the formula cells of columns first..last delta columns
// away
func (w *Workbook) CopyColumns(sheet string, first, last, delta int) (EditReport, error) {
	return w.copyBand(sheet, false, first, last, delta)
}

// InsertRows inserts count empty rows before row at. everything from at to
// the end of the sheet moves down.
func (w *Workbook) InsertRows(sheet string, at, count int) (EditReport, error) {
	return w.insertBand(sheet, true, at, count)
}

// InsertColumns inserts count empty columns before column at
func (w *Workbook) InsertColumns(sheet string, at, count int) (EditReport, error) {
	return w.insertBand(sheet, false, at, count)
}

// DeleteRows deletes count rows starting at row at. references into the
// deleted rows become #REF!.
func (w *Workbook) DeleteRows(sheet string, at, count int) (EditReport, error) {
	return w.deleteBand(sheet, true, at, count)
}

// DeleteColumns deletes count columns starting at column at
func (w *Workbook) DeleteColumns(sheet string, at, count int) (EditReport, error) {
	return w.deleteBand(sheet, false, at, count)
}

// axisName is used in messages and logs
func axisName(rows bool) string {
	if rows {
		return "row"
	}
	return "column"
}

func (w *Workbook) lastIndex(rows bool) int {
	if rows {
		return w.version.LastRowIndex()
	}
	return w.version.LastColumnIndex()
}

// checkBand rejects bands that start or land outside the grid
func (w *Workbook) checkBand(rows bool, first, last, delta int) error {
	limit := w.lastIndex(rows)
	if first < 0 || last > limit || first > last {
		return NewApplicationError(OutOfRange, fmt.Sprintf("%s band %d..%d is outside [0, %d]", axisName(rows), first, last, limit))
	}
	if first+delta < 0 || last+delta > limit {
		return NewApplicationError(OutOfRange, fmt.Sprintf("%s band %d..%d moved by %d lands outside [0, %d]", axisName(rows), first, last, delta, limit))
	}
	return nil
}

func (w *Workbook) newBandShifter(rows, copying bool, sheet string, index, first, last, delta int) (*Shifter, error) {
	switch {
	case rows && copying:
		return NewRowCopy(index, sheet, first, last, delta, w.version)
	case rows:
		return NewRowMove(index, sheet, first, last, delta, w.version)
	case copying:
		return NewColumnCopy(index, sheet, first, last, delta, w.version)
	}
	return NewColumnMove(index, sheet, first, last, delta, w.version)
}

// indexOn returns the coordinate of a cell on the edit axis
func indexOn(cell CellAddress, rows bool) int {
	if rows {
		return cell.Row
	}
	return cell.Column
}

// offsetOn returns the cell moved by delta along the edit axis
func offsetOn(cell CellAddress, rows bool, delta int) CellAddress {
	if rows {
		cell.Row += delta
	} else {
		cell.Column += delta
	}
	return cell
}

// removeSpan deletes formula cells of a sheet whose index on the edit axis
// lies in first..last. returns how many were removed.
func (w *Workbook) removeSpan(worksheetID uint32, rows bool, first, last int) int {
	removed := 0
	for _, cell := range w.storage.formulas.CellsOn(worksheetID) {
		if idx := indexOn(cell, rows); first <= idx && idx <= last {
			w.storage.formulas.Remove(cell)
			removed++
		}
	}
	return removed
}

func (w *Workbook) moveBand(sheet string, rows bool, first, last, delta int) (EditReport, error) {
	id, err := w.storage.sheets.Lookup(sheet)
	if err != nil {
		return EditReport{}, err
	}
	name, _ := w.storage.sheets.NameOf(id)
	index := w.storage.sheetPosition(id)

	shifter, err := w.newBandShifter(rows, false, name, index, first, last, delta)
	if err != nil {
		return EditReport{}, err
	}
	if err := w.checkBand(rows, first, last, delta); err != nil {
		return EditReport{}, err
	}

	w.relocate(id, rows, first, last, delta)
	report := w.adjustAll(shifter)
	w.logEdit(shifter, name, report)
	return report, nil
}

// relocate moves the formula cells of a band, overwriting whatever sits at
// the destination
func (w *Workbook) relocate(worksheetID uint32, rows bool, first, last, delta int) {
	type moved struct {
		cell   CellAddress
		tokens []Token
	}

	var band []moved
	for _, cell := range w.storage.formulas.CellsOn(worksheetID) {
		if idx := indexOn(cell, rows); first <= idx && idx <= last {
			tokens, _ := w.storage.formulas.Get(cell)
			band = append(band, moved{cell: cell, tokens: tokens})
			w.storage.formulas.Remove(cell)
		}
	}

	overwritten := w.removeSpan(worksheetID, rows, first+delta, last+delta)
	if overwritten > 0 {
		w.logger.WithFields(logrus.Fields{
			"axis":  axisName(rows),
			"cells": overwritten,
		}).Debug("formula cells overwritten by move")
	}

	for _, m := range band {
		w.storage.formulas.Set(offsetOn(m.cell, rows, delta), m.tokens)
	}
}

func (w *Workbook) copyBand(sheet string, rows bool, first, last, delta int) (EditReport, error) {
	id, err := w.storage.sheets.Lookup(sheet)
	if err != nil {
		return EditReport{}, err
	}
	name, _ := w.storage.sheets.NameOf(id)
	index := w.storage.sheetPosition(id)

	shifter, err := w.newBandShifter(rows, true, name, index, first, last, delta)
	if err != nil {
		return EditReport{}, err
	}
	if err := w.checkBand(rows, first, last, delta); err != nil {
		return EditReport{}, err
	}

	type source struct {
		cell   CellAddress
		tokens []Token
	}
	var sources []source
	for _, cell := range w.storage.formulas.CellsOn(id) {
		if idx := indexOn(cell, rows); first <= idx && idx <= last {
			tokens, _ := w.storage.formulas.Get(cell)
			sources = append(sources, source{cell: cell, tokens: CloneTokens(tokens)})
		}
	}

	w.removeSpan(id, rows, first+delta, last+delta)

	var report EditReport
	for _, src := range sources {
		if changed, broken := adjustCounting(shifter, src.tokens, index); changed {
			report.Changed++
			report.Broken += broken
		}
		w.storage.formulas.Set(offsetOn(src.cell, rows, delta), src.tokens)
	}

	w.logEdit(shifter, name, report)
	return report, nil
}

func (w *Workbook) insertBand(sheet string, rows bool, at, count int) (EditReport, error) {
	limit := w.lastIndex(rows)
	if count < 1 {
		return EditReport{}, NewApplicationError(InvalidArgument, fmt.Sprintf("number of %ss to insert must be positive, got %d", axisName(rows), count))
	}
	if at < 0 || at+count > limit+1 {
		return EditReport{}, NewApplicationError(OutOfRange, fmt.Sprintf("cannot insert %d %ss at %d, the sheet ends at %d", count, axisName(rows), at, limit))
	}

	id, err := w.storage.sheets.Lookup(sheet)
	if err != nil {
		return EditReport{}, err
	}
	// like excel, refuse to push formula cells off the end of the sheet
	for _, cell := range w.storage.formulas.CellsOn(id) {
		if indexOn(cell, rows) > limit-count {
			return EditReport{}, NewApplicationError(FailedPrecondition, fmt.Sprintf("inserting %d %ss would push cells off the sheet", count, axisName(rows)))
		}
	}

	if at+count == limit+1 {
		return w.cutTail(id, rows, at, false), nil
	}
	first, last, delta := insertSpan(limit, at, count)
	return w.moveBand(sheet, rows, first, last, delta)
}

func (w *Workbook) deleteBand(sheet string, rows bool, at, count int) (EditReport, error) {
	limit := w.lastIndex(rows)
	if count < 1 {
		return EditReport{}, NewApplicationError(InvalidArgument, fmt.Sprintf("number of %ss to delete must be positive, got %d", axisName(rows), count))
	}
	if at < 0 || at+count > limit+1 {
		return EditReport{}, NewApplicationError(OutOfRange, fmt.Sprintf("cannot delete %d %ss at %d, the sheet ends at %d", count, axisName(rows), at, limit))
	}

	id, err := w.storage.sheets.Lookup(sheet)
	if err != nil {
		return EditReport{}, err
	}
	w.removeSpan(id, rows, at, at+count-1)

	if at+count == limit+1 {
		return w.cutTail(id, rows, at, true), nil
	}
	first, last, delta := deleteSpan(limit, at, count)
	return w.moveBand(sheet, rows, first, last, delta)
}

// cutTail handles inserts and deletes that reach the last row or column,
// where nothing is left to move
func (w *Workbook) cutTail(worksheetID uint32, rows bool, at int, truncate bool) EditReport {
	name, _ := w.storage.sheets.NameOf(worksheetID)
	cut := newTailCut(rows, w.storage.sheetPosition(worksheetID), name, at, truncate)
	report := w.adjustAll(cut)
	w.logEdit(cut, name, report)
	return report
}

// insertSpan is the band an insertion moves: everything from at to the end
// of the sheet, count places further
func insertSpan(limit, at, count int) (first, last, delta int) {
	return at, limit - count, count
}

// deleteSpan is the band a deletion moves: everything after the deleted
// span, count places back. a delete reaching the last index has no band.
func deleteSpan(limit, at, count int) (first, last, delta int) {
	return at + count, limit, -count
}

// adjustAll applies an edit to every formula and defined name. cell
// formulas resolve local references through the sheet holding them, names
// are workbook level and have no sheet of their own.
func (w *Workbook) adjustAll(edit Adjuster) EditReport {
	var report EditReport
	for _, cell := range w.storage.formulas.Cells() {
		tokens, _ := w.storage.formulas.Get(cell)
		if changed, broken := adjustCounting(edit, tokens, w.storage.sheetPosition(cell.WorksheetID)); changed {
			report.Changed++
			report.Broken += broken
		}
	}
	for _, tokens := range w.storage.namedRanges.All() {
		if changed, broken := adjustCounting(edit, tokens, -1); changed {
			report.Changed++
			report.Broken += broken
		}
	}
	return report
}

// adjustCounting adjusts tokens in place and reports how many references
// the edit broke
func adjustCounting(edit Adjuster, tokens []Token, currentSheet int) (bool, int) {
	before := countBroken(tokens)
	if !edit.Adjust(tokens, currentSheet) {
		return false, 0
	}
	return true, countBroken(tokens) - before
}

func countBroken(tokens []Token) int {
	n := 0
	for _, t := range tokens {
		if _, ok := t.(BrokenRef); ok {
			n++
		}
	}
	return n
}

func (w *Workbook) logEdit(edit Adjuster, sheet string, report EditReport) {
	entry := w.logger.WithFields(logrus.Fields{
		"edit":    edit.String(),
		"sheet":   sheet,
		"changed": report.Changed,
		"broken":  report.Broken,
	})
	if report.Broken > 0 {
		entry.Warn("edit broke references")
		return
	}
	entry.Info("edit applied")
}
