package spreadsheet

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// LoadXLSX reads the sheets, formula cells and workbook level defined names
// of a spreadsheet file into a Workbook. cell values are not loaded.
// formulas the parser rejects are logged and skipped.
func LoadXLSX(path string, version Version, logger logrus.FieldLogger) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	wb := NewWorkbook(version, logger)
	log := wb.logger.WithField("file", path)

	sheets := f.GetSheetList()
	for _, name := range sheets {
		if err := wb.AddSheet(name); err != nil {
			return nil, errors.Wrapf(err, "sheet %s", name)
		}
	}

	loaded, skipped := 0, 0
	for _, name := range sheets {
		cells, err := formulaCandidates(f, name)
		if err != nil {
			return nil, errors.Wrapf(err, "scan sheet %s", name)
		}
		for _, cell := range cells {
			formula, err := f.GetCellFormula(name, cell)
			if err != nil {
				return nil, errors.Wrapf(err, "read formula %s!%s", name, cell)
			}
			if formula == "" {
				continue
			}
			col, row, err := excelize.CellNameToCoordinates(cell)
			if err != nil {
				return nil, errors.Wrapf(err, "cell %s!%s", name, cell)
			}
			if err := wb.SetFormulaAt(name, row-1, col-1, formula); err != nil {
				log.WithFields(logrus.Fields{"sheet": name, "cell": cell}).WithError(err).Warn("skipping formula")
				skipped++
				continue
			}
			loaded++
		}
	}

	for _, dn := range f.GetDefinedName() {
		// sheet scoped names would shadow each other in a single table
		if dn.Scope != "" && dn.Scope != "Workbook" {
			continue
		}
		if err := wb.DefineName(dn.Name, strings.TrimPrefix(dn.RefersTo, "=")); err != nil {
			log.WithField("name", dn.Name).WithError(err).Warn("skipping defined name")
		}
	}

	log.WithFields(logrus.Fields{
		"sheets":   len(sheets),
		"formulas": loaded,
		"skipped":  skipped,
		"names":    wb.storage.namedRanges.Count(),
	}).Info("workbook loaded")
	return wb, nil
}

// formulaCandidates lists every cell name inside the used range of a sheet:
// the recorded sheet dimension joined with the extent of the row data.
// excelize leaves the dimension at A1 for sheets it wrote itself.
func formulaCandidates(f *excelize.File, sheet string) ([]string, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	firstCol, firstRow, lastCol, lastRow := 1, 1, 0, len(rows)
	for _, row := range rows {
		lastCol = max(lastCol, len(row))
	}
	if dFirstCol, dFirstRow, dLastCol, dLastRow, ok := sheetDimension(f, sheet); ok {
		if lastRow == 0 || lastCol == 0 {
			firstCol, firstRow = dFirstCol, dFirstRow
		} else {
			firstCol, firstRow = min(firstCol, dFirstCol), min(firstRow, dFirstRow)
		}
		lastCol, lastRow = max(lastCol, dLastCol), max(lastRow, dLastRow)
	}

	var cells []string
	for row := firstRow; row <= lastRow; row++ {
		for col := firstCol; col <= lastCol; col++ {
			name, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				return nil, err
			}
			cells = append(cells, name)
		}
	}
	return cells, nil
}

func sheetDimension(f *excelize.File, sheet string) (firstCol, firstRow, lastCol, lastRow int, ok bool) {
	dimension, err := f.GetSheetDimension(sheet)
	if err != nil || dimension == "" {
		return 0, 0, 0, 0, false
	}
	parts := strings.SplitN(dimension, ":", 2)
	firstCol, firstRow, err = excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return 0, 0, 0, 0, false
	}
	lastCol, lastRow = firstCol, firstRow
	if len(parts) == 2 {
		lastCol, lastRow, err = excelize.CellNameToCoordinates(parts[1])
		if err != nil {
			return 0, 0, 0, 0, false
		}
	}
	return firstCol, firstRow, lastCol, lastRow, true
}
