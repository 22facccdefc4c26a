package spreadsheet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// characters excel never allows in a sheet name
const invalidSheetNameChars = ":\\/?*[]"

// ParserContext provides what the parser needs to bind 3D references
type ParserContext struct {
	// ResolveSheet maps a sheet name of this workbook to its position. when
	// nil, or when the name is unknown, references bind by name.
	ResolveSheet func(name string) (int, bool)

	// Version bounds valid coordinates. the zero value means Excel2007.
	Version Version
}

// Parser turns formula text into the token sequence the shifter works on
type Parser struct {
	context *ParserContext
}

// NewParser creates a parser. a nil context binds every 3D reference by
// name.
func NewParser(context *ParserContext) *Parser {
	if context == nil {
		context = &ParserContext{}
	}
	return &Parser{context: context}
}

func (p *Parser) version() Version {
	return p.context.Version.orDefault()
}

// Parse tokenizes a formula and resolves its cell and area references.
// range operands that are not plain references (defined names, whole rows
// or columns) are kept as lexemes.
func (p *Parser) Parse(formula string) ([]Token, error) {
	lexemes, err := NewLexer(formula).Tokenize()
	if err != nil {
		return nil, err
	}

	tokens := make([]Token, 0, len(lexemes))
	for _, lx := range lexemes {
		if lx.Type != TokenRange {
			tokens = append(tokens, lx)
			continue
		}
		ref, ok := p.parseReference(lx.Value)
		if !ok {
			tokens = append(tokens, lx)
			continue
		}
		tokens = append(tokens, ref)
	}
	return tokens, nil
}

// ParseRef parses a single reference such as "B2", "$A$1:C3" or
// "'My Sheet'!A1"
func (p *Parser) ParseRef(input string) (Token, error) {
	ref, ok := p.parseReference(strings.TrimSpace(input))
	if !ok {
		return nil, NewApplicationError(InvalidArgument, fmt.Sprintf("input is not a valid cell reference or range: %s", input))
	}
	return ref, nil
}

// parseReference resolves a range operand. ok is false for operands that
// are not cell or area references.
func (p *Parser) parseReference(text string) (Token, bool) {
	sheetPart, cellPart, hasSheet := splitSheetPrefix(text)

	var binding SheetBinding
	if hasSheet {
		b, ok := p.bindSheet(sheetPart)
		if !ok {
			return nil, false
		}
		binding = b
	}

	if cellPart == ErrorMapper[ErrorCodeRef] {
		if !hasSheet {
			return nil, false
		}
		return BrokenRef{Sheet: binding}, true
	}

	if idx := strings.Index(cellPart, ":"); idx != -1 {
		first, ok := p.parseCellAddress(cellPart[:idx])
		if !ok {
			return nil, false
		}
		last, ok := p.parseCellAddress(cellPart[idx+1:])
		if !ok {
			return nil, false
		}
		return AreaRef{
			FirstRow:            first.Row,
			LastRow:             last.Row,
			FirstColumn:         first.Column,
			LastColumn:          last.Column,
			FirstRowRelative:    first.RowRelative,
			LastRowRelative:     last.RowRelative,
			FirstColumnRelative: first.ColumnRelative,
			LastColumnRelative:  last.ColumnRelative,
			Sheet:               binding,
		}.Sorted(), true
	}

	cell, ok := p.parseCellAddress(cellPart)
	if !ok {
		return nil, false
	}
	cell.Sheet = binding
	return cell, true
}

// bindSheet turns the text before '!' into a sheet binding. external
// workbook links look like "[1]Sheet1".
func (p *Parser) bindSheet(sheet string) (SheetBinding, bool) {
	sheet = unquoteSheetName(sheet)
	if sheet == "" {
		return nil, false
	}

	if strings.HasPrefix(sheet, "[") {
		end := strings.Index(sheet, "]")
		if end == -1 {
			return nil, false
		}
		book, err := strconv.Atoi(sheet[1:end])
		if err != nil || book < 0 {
			return nil, false
		}
		name := sheet[end+1:]
		if name == "" {
			return nil, false
		}
		if book > 0 {
			return SheetName{Workbook: book, Name: name}, true
		}
		sheet = name
	}

	if strings.ContainsAny(sheet, invalidSheetNameChars) {
		return nil, false
	}

	if p.context.ResolveSheet != nil {
		if idx, ok := p.context.ResolveSheet(sheet); ok {
			return SheetIndex(idx), true
		}
	}
	return SheetName{Name: sheet}, true
}

// parseCellAddress parses an A1 style cell such as "B7" or "$B$7" into
// zero-based coordinates and relative flags
func (p *Parser) parseCellAddress(cell string) (CellRef, bool) {
	ref := CellRef{RowRelative: true, ColumnRelative: true}

	if strings.HasPrefix(cell, "$") {
		ref.ColumnRelative = false
		cell = cell[1:]
	}

	// find where letters end and numbers begin
	letterEnd := 0
	for i, ch := range cell {
		if ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z' {
			letterEnd = i + 1
		} else {
			break
		}
	}
	if letterEnd == 0 || letterEnd == len(cell) {
		return CellRef{}, false
	}

	rowStr := cell[letterEnd:]
	if strings.HasPrefix(rowStr, "$") {
		ref.RowRelative = false
		rowStr = rowStr[1:]
	}
	if rowStr == "" || strings.ContainsAny(rowStr[:1], "+-") {
		return CellRef{}, false
	}

	col, err := excelize.ColumnNameToNumber(cell[:letterEnd])
	if err != nil || col > p.version().MaxColumns {
		return CellRef{}, false
	}
	row, err := strconv.Atoi(rowStr)
	if err != nil || row < 1 || row > p.version().MaxRows {
		return CellRef{}, false
	}

	ref.Row = row - 1
	ref.Column = col - 1
	return ref, true
}

// splitSheetPrefix separates "Sheet!A1" into its sheet and cell parts. a
// sheet name may itself contain '!', quoted or not (efp drops the quotes).
func splitSheetPrefix(text string) (sheet, cell string, ok bool) {
	if strings.HasPrefix(text, "'") {
		for i := 1; i < len(text); i++ {
			if text[i] != '\'' {
				continue
			}
			if i+1 < len(text) && text[i+1] == '\'' {
				i++ // escaped quote
				continue
			}
			if i+1 < len(text) && text[i+1] == '!' {
				return text[:i+1], text[i+2:], true
			}
			return "", text, false
		}
		return "", text, false
	}
	if idx := strings.LastIndex(text, "!"); idx != -1 {
		// "Sheet1!#REF!" ends with '!' itself
		if strings.HasSuffix(text, "!"+ErrorMapper[ErrorCodeRef]) {
			idx = len(text) - len(ErrorMapper[ErrorCodeRef]) - 1
		}
		return text[:idx], text[idx+1:], true
	}
	return "", text, false
}

// unquoteSheetName strips surrounding quotes and unescapes doubled quotes
func unquoteSheetName(name string) string {
	if len(name) >= 2 && strings.HasPrefix(name, "'") && strings.HasSuffix(name, "'") {
		return strings.ReplaceAll(name[1:len(name)-1], "''", "'")
	}
	return name
}
