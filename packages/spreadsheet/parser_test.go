package spreadsheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSheets = []string{"Sheet1", "Sheet2", "Sheet3", "My Sheet", "O'Brien", "AB12"}

func createTestParser() *Parser {
	context := &ParserContext{
		ResolveSheet: func(name string) (int, bool) {
			for i, sheet := range testSheets {
				if sheet == name {
					return i, true
				}
			}
			return -1, false
		},
	}
	return NewParser(context)
}

func createTestRenderContext() *RenderContext {
	return &RenderContext{
		SheetName: func(index int) (string, bool) {
			if index < 0 || index >= len(testSheets) {
				return "", false
			}
			return testSheets[index], true
		},
	}
}

func parseFormula(formula string) bool {
	_, err := createTestParser().Parse(formula)
	return err == nil
}

func TestParserBasicFormulas(t *testing.T) {
	validFormulas := []string{
		"=1+2",
		"=A1",
		"=SUM(A1:A10)",
		"=Sheet2!A1",
		"=Sheet2!A1:B2",
		"=SUM(Sheet2!A1:A10)",
		"=Sheet2!A1 + Sheet3!B1",
		"=SUM(B2:A1)",
		"=SUM(A1:A1)",
		"=SUM(A1:Z1000)",
		`="Hello 世界"`,
		`="Test 😀 emoji"`,
		`=CONCATENATE("Hello ", "世界")`,
		"=SUM(A:A)",
		"=Sheet1!#REF!",
		"=[1]Sheet1!A1",
		"={1,2;3,4}",
		"=SUM(Sheet1:Sheet3!A1)",
	}

	for _, formula := range validFormulas {
		t.Run(formula, func(t *testing.T) {
			if !parseFormula(formula) {
				t.Errorf("Failed to parse valid formula: %s", formula)
			}
		})
	}
}

func TestParserInvalidFormulas(t *testing.T) {
	invalidFormulas := []string{
		"",
		"=",
		"=SUM(",
		"=A1)",
		"=A1:",
		`="hello`,
		"='Sheet1!A1",
	}

	for _, formula := range invalidFormulas {
		t.Run(formula, func(t *testing.T) {
			if parseFormula(formula) {
				t.Errorf("Expected formula to fail but it succeeded: %s", formula)
			}
		})
	}
}

func TestParserReferences(t *testing.T) {
	tests := []struct {
		formula string
		want    Token
	}{
		{"=A1", relCell(0, 0)},
		{"=$B$7", CellRef{Row: 6, Column: 1}},
		{"=B$7", CellRef{Row: 6, Column: 1, ColumnRelative: true}},
		{"=$B7", CellRef{Row: 6, Column: 1, RowRelative: true}},
		{"=XFD1048576", relCell(1048575, 16383)},
		{"=b2", relCell(1, 1)},
		{"=B2:A1", AreaRef{
			LastRow: 1, LastColumn: 1,
			FirstRowRelative: true, LastRowRelative: true, FirstColumnRelative: true, LastColumnRelative: true,
		}},
		// edges swap together with their flags
		{"=$C$3:A1", AreaRef{
			LastRow: 2, LastColumn: 2,
			FirstRowRelative: true, FirstColumnRelative: true,
		}},
		{"=Sheet2!A1", CellRef{RowRelative: true, ColumnRelative: true, Sheet: SheetIndex(1)}},
		{"='My Sheet'!A1", CellRef{RowRelative: true, ColumnRelative: true, Sheet: SheetIndex(3)}},
		{"='O''Brien'!A1", CellRef{RowRelative: true, ColumnRelative: true, Sheet: SheetIndex(4)}},
		{"=Sheet9!A1", CellRef{RowRelative: true, ColumnRelative: true, Sheet: SheetName{Name: "Sheet9"}}},
		{"=[2]Data!C3", CellRef{Row: 2, Column: 2, RowRelative: true, ColumnRelative: true, Sheet: SheetName{Workbook: 2, Name: "Data"}}},
		{"=[0]Sheet2!A1", CellRef{RowRelative: true, ColumnRelative: true, Sheet: SheetIndex(1)}},
		{"=Sheet2!#REF!", BrokenRef{Sheet: SheetIndex(1)}},
		{"='My Sheet'!#REF!", BrokenRef{Sheet: SheetIndex(3)}},
		{"=#REF!", Lexeme{Type: TokenError, Value: "#REF!"}},
		{"=A:A", Lexeme{Type: TokenRange, Value: "A:A"}},
		{"=1:1", Lexeme{Type: TokenRange, Value: "1:1"}},
		{"=MyName", Lexeme{Type: TokenRange, Value: "MyName"}},
		{"=A1048577", Lexeme{Type: TokenRange, Value: "A1048577"}},
		{"=Sheet1:Sheet3!A1", Lexeme{Type: TokenRange, Value: "Sheet1:Sheet3!A1"}},
	}

	parser := createTestParser()
	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			tokens, err := parser.Parse(tt.formula)
			require.NoError(t, err)
			require.Len(t, tokens, 1)
			assert.Equal(t, tt.want, tokens[0])
		})
	}
}

func TestParserVersionLimits(t *testing.T) {
	parser := NewParser(&ParserContext{Version: Excel97})

	tokens, err := parser.Parse("=IV65536+IW1+A65537")
	require.NoError(t, err)
	require.Len(t, tokens, 5)
	assert.Equal(t, relCell(65535, 255), tokens[0])
	assert.Equal(t, Lexeme{Type: TokenRange, Value: "IW1"}, tokens[2])
	assert.Equal(t, Lexeme{Type: TokenRange, Value: "A65537"}, tokens[4])
}

func TestParseRef(t *testing.T) {
	parser := createTestParser()

	ref, err := parser.ParseRef("B2")
	require.NoError(t, err)
	assert.Equal(t, relCell(1, 1), ref)

	ref, err = parser.ParseRef(" Sheet3!$A$1:C3 ")
	require.NoError(t, err)
	assert.Equal(t, AreaRef{
		LastRow: 2, LastColumn: 2,
		LastRowRelative: true, LastColumnRelative: true,
		Sheet: SheetIndex(2),
	}, ref)

	for _, input := range []string{"A:A", "hello", "Sheet1!", "Bad/Name!A1", ""} {
		_, err := parser.ParseRef(input)
		if assert.Error(t, err, input) {
			assert.Equal(t, InvalidArgument, err.(*AppError).Code, input)
		}
	}
}

func TestParseRenderRoundTrip(t *testing.T) {
	formulas := []string{
		"1+2",
		"A1",
		"SUM(A1:B2)",
		"$A$1+B$2+$C3",
		"Sheet2!A1*2",
		"SUM(Sheet1!A1:B2,C3)",
		"'My Sheet'!A1",
		"'My Sheet'!A1:B2",
		"'O''Brien'!B2",
		"'AB12'!A1",
		"Sheet2!#REF!+1",
		"'My Sheet'!#REF!",
		"#REF!",
		"[1]Sheet1!A1",
		"{1,2;3,4}",
		`"a""b"&A1`,
		"SUM(A:A)",
		"'My Sheet'!A:A",
		"IF(A1>=0,TRUE,FALSE)",
		"-A1%",
		"(A1+B1)*2",
		"MyName*2",
		"A1 B1",
		"Other!C4",
		"SUM(Sheet1:Sheet3!A1)",
	}

	parser := createTestParser()
	rc := createTestRenderContext()
	for _, formula := range formulas {
		t.Run(formula, func(t *testing.T) {
			tokens, err := parser.Parse("=" + formula)
			require.NoError(t, err)
			text, err := Render(tokens, rc)
			require.NoError(t, err)
			assert.Equal(t, formula, text)
		})
	}
}

func TestRenderShiftedFormula(t *testing.T) {
	parser := createTestParser()
	tokens, err := parser.Parse("=SUM(A1:A10)+Sheet2!B5-$C$13")
	require.NoError(t, err)

	s := Must(NewRowMove(0, "Sheet1", 4, 9, 2, Excel2007))
	assert.True(t, s.Adjust(tokens, 0))

	text, err := Render(tokens, createTestRenderContext())
	require.NoError(t, err)
	assert.Equal(t, "SUM(A1:A12)+Sheet2!B5-$C$13", text)

	// destination of the moved band destroys row 11
	tokens, err = parser.Parse("=A11*2")
	require.NoError(t, err)
	assert.True(t, s.Adjust(tokens, 0))
	text, err = Render(tokens, createTestRenderContext())
	require.NoError(t, err)
	assert.Equal(t, "#REF!*2", text)
}

func TestRenderErrors(t *testing.T) {
	byIndex := relCell(0, 0)
	byIndex.Sheet = SheetIndex(0)

	_, err := Render([]Token{byIndex}, nil)
	require.Error(t, err)
	assert.Equal(t, FailedPrecondition, err.(*AppError).Code)

	byIndex.Sheet = SheetIndex(42)
	_, err = Render([]Token{byIndex}, createTestRenderContext())
	require.Error(t, err)
	assert.Equal(t, NotFound, err.(*AppError).Code)

	_, err = Render([]Token{relCell(0, 20000)}, nil)
	require.Error(t, err)
	assert.Equal(t, OutOfRange, err.(*AppError).Code)
}

func TestLexer(t *testing.T) {
	lexemes, err := NewLexer("=SUM(A1, 2.5)").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, []Lexeme{
		{Type: TokenFunctionStart, Value: "SUM"},
		{Type: TokenRange, Value: "A1"},
		{Type: TokenArgument, Value: ","},
		{Type: TokenNumber, Value: "2.5"},
		{Type: TokenFunctionStop, Value: ""},
	}, lexemes)

	lexemes, err = NewLexer(`Sheet1!#REF! & "x"`).Tokenize()
	require.NoError(t, err)
	assert.Equal(t, []Lexeme{
		{Type: TokenRange, Value: "Sheet1!#REF!"},
		{Type: TokenInfixOp, Value: "&"},
		{Type: TokenText, Value: "x"},
	}, lexemes)
}

func TestNeedsQuoting(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Sheet1", false},
		{"Data_2024", false},
		{"summary.v2", false},
		{"Résumé", false},
		{"My Sheet", true},
		{"2024", true},
		{"O'Brien", true},
		{"TRUE", true},
		{"false", true},
		{"AB12", true},
		{"R1C1", true},
		{"R", true},
		{"Budget-Q1", true},
		{"", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, needsQuoting(tt.name), tt.name)
	}
	assert.Equal(t, "'[3]My Sheet'", formatSheetName(3, "My Sheet"))
	assert.Equal(t, "[3]Data", formatSheetName(3, "Data"))
}

func TestSplitSheetPrefix(t *testing.T) {
	tests := []struct {
		input, sheet, cell string
		ok                 bool
	}{
		{"A1", "", "A1", false},
		{"Sheet1!A1", "Sheet1", "A1", true},
		{"'a''b'!A1", "'a''b'", "A1", true},
		{"Bang!Sheet!B2", "Bang!Sheet", "B2", true},
		{"Sheet1!#REF!", "Sheet1", "#REF!", true},
		{"'unterminated!A1", "", "'unterminated!A1", false},
	}

	for _, tt := range tests {
		sheet, cell, ok := splitSheetPrefix(tt.input)
		assert.Equal(t, tt.ok, ok, tt.input)
		assert.Equal(t, tt.sheet, sheet, tt.input)
		assert.Equal(t, tt.cell, cell, tt.input)
	}
}
