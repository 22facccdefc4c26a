package spreadsheet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
)

// RenderContext resolves by-index sheet bindings back to names
type RenderContext struct {
	SheetName func(index int) (string, bool)
}

var (
	cellLikeName = regexp.MustCompile(`(?i)^[A-Z]{1,3}[0-9]+$`)
	r1c1LikeName = regexp.MustCompile(`(?i)^R[0-9]*C?[0-9]*$`)
)

// Render turns a token sequence back into formula text, without the leading
// '='
func Render(tokens []Token, context *RenderContext) (string, error) {
	if context == nil {
		context = &RenderContext{}
	}

	var sb strings.Builder
	var calls []string // open function names, "" for plain parentheses

	for _, t := range tokens {
		switch tok := t.(type) {
		case CellRef:
			prefix, err := context.sheetPrefix(tok.Sheet)
			if err != nil {
				return "", err
			}
			cell, err := renderCell(tok.Row, tok.Column, tok.RowRelative, tok.ColumnRelative)
			if err != nil {
				return "", err
			}
			sb.WriteString(prefix)
			sb.WriteString(cell)
		case AreaRef:
			prefix, err := context.sheetPrefix(tok.Sheet)
			if err != nil {
				return "", err
			}
			first, err := renderCell(tok.FirstRow, tok.FirstColumn, tok.FirstRowRelative, tok.FirstColumnRelative)
			if err != nil {
				return "", err
			}
			last, err := renderCell(tok.LastRow, tok.LastColumn, tok.LastRowRelative, tok.LastColumnRelative)
			if err != nil {
				return "", err
			}
			sb.WriteString(prefix)
			sb.WriteString(first)
			sb.WriteString(":")
			sb.WriteString(last)
		case BrokenRef:
			prefix, err := context.sheetPrefix(tok.Sheet)
			if err != nil {
				return "", err
			}
			sb.WriteString(prefix)
			sb.WriteString(ErrorMapper[ErrorCodeRef])
		case Lexeme:
			sb.WriteString(renderLexeme(tok, &calls))
		default:
			return "", NewApplicationError(Internal, fmt.Sprintf("cannot render token %T", t))
		}
	}
	return sb.String(), nil
}

// sheetPrefix returns "Sheet!" for a 3D binding and "" for a local one
func (c *RenderContext) sheetPrefix(binding SheetBinding) (string, error) {
	switch b := binding.(type) {
	case nil:
		return "", nil
	case SheetIndex:
		if c.SheetName == nil {
			return "", NewApplicationError(FailedPrecondition, fmt.Sprintf("no sheet names available to render sheet %d", int(b)))
		}
		name, ok := c.SheetName(int(b))
		if !ok {
			return "", NewApplicationError(NotFound, fmt.Sprintf("no sheet at position %d", int(b)))
		}
		return formatSheetName(0, name) + "!", nil
	case SheetName:
		return formatSheetName(b.Workbook, b.Name) + "!", nil
	}
	return "", NewApplicationError(Internal, fmt.Sprintf("unexpected sheet binding %T", binding))
}

func renderCell(row, col int, rowRelative, colRelative bool) (string, error) {
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return "", NewApplicationError(OutOfRange, err.Error())
	}
	var sb strings.Builder
	if !colRelative {
		sb.WriteByte('$')
	}
	sb.WriteString(name)
	if !rowRelative {
		sb.WriteByte('$')
	}
	sb.WriteString(strconv.Itoa(row + 1))
	return sb.String(), nil
}

func renderLexeme(lx Lexeme, calls *[]string) string {
	top := func() string {
		if len(*calls) == 0 {
			return ""
		}
		return (*calls)[len(*calls)-1]
	}

	switch lx.Type {
	case TokenFunctionStart:
		*calls = append(*calls, lx.Value)
		switch lx.Value {
		case "ARRAY":
			return "{"
		case "ARRAYROW":
			return ""
		}
		return lx.Value + "("
	case TokenFunctionStop:
		name := top()
		if len(*calls) > 0 {
			*calls = (*calls)[:len(*calls)-1]
		}
		switch name {
		case "ARRAY":
			return "}"
		case "ARRAYROW":
			return ""
		}
		return ")"
	case TokenSubexprStart:
		*calls = append(*calls, "")
		return "("
	case TokenSubexprStop:
		if len(*calls) > 0 {
			*calls = (*calls)[:len(*calls)-1]
		}
		return ")"
	case TokenArgument:
		// efp reports array row separators as commas between rows
		if top() == "ARRAY" {
			return ";"
		}
		return lx.Value
	case TokenText:
		return `"` + strings.ReplaceAll(lx.Value, `"`, `""`) + `"`
	case TokenRange:
		return requoteRange(lx.Value)
	}
	return lx.Value
}

// requoteRange restores the quotes efp strips from sheet qualified ranges
// the parser could not resolve, such as "My Sheet!A:A"
func requoteRange(value string) string {
	idx := strings.LastIndex(value, "!")
	if idx <= 0 {
		return value
	}
	sheet := value[:idx]
	book := 0
	if strings.HasPrefix(sheet, "[") {
		end := strings.Index(sheet, "]")
		if end == -1 {
			return value
		}
		n, err := strconv.Atoi(sheet[1:end])
		if err != nil {
			return value
		}
		book, sheet = n, sheet[end+1:]
	}
	if sheet == "" || strings.ContainsAny(sheet, invalidSheetNameChars) || strings.HasPrefix(sheet, "'") {
		return value
	}
	return formatSheetName(book, sheet) + value[idx:]
}

// formatSheetName quotes a sheet name when excel would need it to. book is
// the external workbook number, 0 for the formula's own workbook.
func formatSheetName(book int, name string) string {
	text := name
	if book > 0 {
		text = "[" + strconv.Itoa(book) + "]" + name
	}
	if !needsQuoting(name) {
		return text
	}
	return "'" + strings.ReplaceAll(text, "'", "''") + "'"
}

func needsQuoting(name string) bool {
	if name == "" {
		return true
	}
	for i, ch := range name {
		if i == 0 && unicode.IsDigit(ch) {
			return true
		}
		if !(unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '.') {
			return true
		}
	}
	upper := strings.ToUpper(name)
	if upper == "TRUE" || upper == "FALSE" {
		return true
	}
	return cellLikeName.MatchString(name) || r1c1LikeName.MatchString(name)
}
