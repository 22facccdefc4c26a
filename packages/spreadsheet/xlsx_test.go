package spreadsheet

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// writeTestBook saves a two sheet workbook with formulas and defined names
func writeTestBook(t *testing.T) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet("Data")
	require.NoError(t, err)

	require.NoError(t, f.SetCellValue("Data", "B2", 10))
	require.NoError(t, f.SetCellFormula("Sheet1", "A1", "SUM(Data!B2:B5)"))
	require.NoError(t, f.SetCellFormula("Sheet1", "C3", "A1*2"))
	require.NoError(t, f.SetCellFormula("Data", "B7", "Sheet1!C3+1"))
	require.NoError(t, f.SetCellFormula("Data", "D2", "SUM("))

	require.NoError(t, f.SetDefinedName(&excelize.DefinedName{Name: "Totals", RefersTo: "Data!$B$2:$B$5"}))
	require.NoError(t, f.SetDefinedName(&excelize.DefinedName{Name: "Local", RefersTo: "Data!$A$1", Scope: "Data"}))

	// excelize keeps the dimension at A1 for sheets it writes
	require.NoError(t, f.SetSheetDimension("Sheet1", "A1:C3"))
	require.NoError(t, f.SetSheetDimension("Data", "A1:D7"))

	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadXLSX(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	wb, err := LoadXLSX(writeTestBook(t), Excel2007, logger)
	require.NoError(t, err)

	assert.Equal(t, []string{"Sheet1", "Data"}, wb.ListSheets())
	assert.Equal(t, []string{"Totals"}, wb.ListNames())

	cells, err := wb.Formulas()
	require.NoError(t, err)
	formulas := make(map[string]string, len(cells))
	for _, cell := range cells {
		formulas[cell.Address] = cell.Formula
	}
	assert.Equal(t, map[string]string{
		"Sheet1!A1": "=SUM(Data!B2:B5)",
		"Sheet1!C3": "=A1*2",
		"Data!B7":   "=Sheet1!C3+1",
	}, formulas)

	var warned, loaded *logrus.Entry
	for _, entry := range hook.AllEntries() {
		switch entry.Message {
		case "skipping formula":
			warned = entry
		case "workbook loaded":
			loaded = entry
		}
	}
	require.NotNil(t, warned)
	assert.Equal(t, logrus.WarnLevel, warned.Level)
	assert.Equal(t, "D2", warned.Data["cell"])
	require.NotNil(t, loaded)
	assert.Equal(t, 3, loaded.Data["formulas"])
	assert.Equal(t, 1, loaded.Data["skipped"])

	report, err := wb.InsertRows("Data", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, EditReport{Changed: 2}, report)

	formula, err := wb.GetFormula("Sheet1!A1")
	require.NoError(t, err)
	assert.Equal(t, "=SUM(Data!B3:B6)", formula)
	formula, err = wb.GetFormula("Data!B8")
	require.NoError(t, err)
	assert.Equal(t, "=Sheet1!C3+1", formula)
	name, err := wb.GetName("Totals")
	require.NoError(t, err)
	assert.Equal(t, "=Data!$B$3:$B$6", name)
}

func TestLoadXLSXMissingFile(t *testing.T) {
	_, err := LoadXLSX(filepath.Join(t.TempDir(), "nope.xlsx"), Excel2007, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open")
}
