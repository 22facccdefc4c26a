package spreadsheet

import (
	"fmt"
	"testing"

	"github.com/xuri/excelize/v2"
)

// populate fills rows 1..rows of a sheet with formulas summing the column
// above and pointing at the next sheet
func populate(b *testing.B, rows, cols int) *Workbook {
	b.Helper()
	wb := NewWorkbook(Excel2007, nil)
	for _, name := range []string{"Sheet1", "Sheet2", "Sheet3"} {
		if err := wb.AddSheet(name); err != nil {
			b.Fatal(err)
		}
	}
	for row := 1; row <= rows; row++ {
		for col := 1; col <= cols; col++ {
			letters, err := excelize.ColumnNumberToName(col)
			if err != nil {
				b.Fatal(err)
			}
			addr := fmt.Sprintf("Sheet1!%s%d", letters, row+1)
			formula := fmt.Sprintf("=SUM(%s1:%s%d)+Sheet2!$%s$%d", letters, letters, row, letters, row)
			if err := wb.SetFormula(addr, formula); err != nil {
				b.Fatal(err)
			}
		}
	}
	return wb
}

func BenchmarkParseFormula(b *testing.B) {
	parser := createTestParser()
	for i := 0; i < b.N; i++ {
		if _, err := parser.Parse("=IF(SUM(Sheet2!A1:B20)>0,'My Sheet'!$C$4*A1,#REF!)+[1]Sheet1!D9"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRenderFormula(b *testing.B) {
	tokens, err := createTestParser().Parse("=IF(SUM(Sheet2!A1:B20)>0,'My Sheet'!$C$4*A1,#REF!)+[1]Sheet1!D9")
	if err != nil {
		b.Fatal(err)
	}
	rc := createTestRenderContext()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Render(tokens, rc); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAdjustRowMove(b *testing.B) {
	tokens, err := createTestParser().Parse("=SUM(A1:A100)+B50*$C$75-Sheet2!D10:E20")
	if err != nil {
		b.Fatal(err)
	}
	forward := Must(NewRowMove(0, "Sheet1", 10, 40, 5, Excel2007))
	backward := Must(NewRowMove(0, "Sheet1", 15, 45, -5, Excel2007))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		forward.Adjust(tokens, 0)
		backward.Adjust(tokens, 0)
	}
}

func BenchmarkAdjustColumnCopy(b *testing.B) {
	source, err := createTestParser().Parse("=SUM(A1:Z1)+$B2*C$3")
	if err != nil {
		b.Fatal(err)
	}
	s := Must(NewColumnCopy(0, "Sheet1", 0, 25, 30, Excel2007))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Adjust(CloneTokens(source), 0)
	}
}

func BenchmarkAdjustSheetMove(b *testing.B) {
	tokens, err := createTestParser().Parse("=Sheet1!A1+Sheet2!B2+Sheet3!C3+'My Sheet'!D4")
	if err != nil {
		b.Fatal(err)
	}
	there := Must(NewSheetMove(0, 3))
	back := Must(NewSheetMove(3, 0))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		there.Adjust(tokens, 1)
		back.Adjust(tokens, 1)
	}
}

// a shifter is read-only, each goroutine owns its tokens
func BenchmarkAdjustParallel(b *testing.B) {
	source, err := createTestParser().Parse("=SUM(A1:A100)+B50*$C$75")
	if err != nil {
		b.Fatal(err)
	}
	s := Must(NewRowMove(0, "Sheet1", 10, 40, 5, Excel2007))

	b.RunParallel(func(pb *testing.PB) {
		tokens := CloneTokens(source)
		for pb.Next() {
			copy(tokens, source)
			s.Adjust(tokens, 0)
		}
	})
}

func BenchmarkInsertDeleteRows(b *testing.B) {
	wb := populate(b, 200, 10)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := wb.InsertRows("Sheet1", 50, 3); err != nil {
			b.Fatal(err)
		}
		if _, err := wb.DeleteRows("Sheet1", 50, 3); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMoveColumns(b *testing.B) {
	wb := populate(b, 100, 20)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := wb.MoveColumns("Sheet2", 0, 4, 30); err != nil {
			b.Fatal(err)
		}
		if _, err := wb.MoveColumns("Sheet2", 30, 34, -30); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMoveSheet(b *testing.B) {
	wb := populate(b, 100, 10)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := wb.MoveSheet("Sheet2", 0); err != nil {
			b.Fatal(err)
		}
		if _, err := wb.MoveSheet("Sheet2", 1); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFormulas(b *testing.B) {
	wb := populate(b, 100, 26)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := wb.Formulas(); err != nil {
			b.Fatal(err)
		}
	}
}
