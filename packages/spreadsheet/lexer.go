package spreadsheet

import (
	"fmt"
	"strings"

	"github.com/xuri/efp"
)

// TokenType classifies the lexemes of a formula
type TokenType int

const (
	TokenUnknown TokenType = iota
	TokenNumber
	TokenText
	TokenBoolean
	TokenError
	TokenRange
	TokenFunctionStart
	TokenFunctionStop
	TokenSubexprStart
	TokenSubexprStop
	TokenArgument
	TokenPrefixOp
	TokenInfixOp
	TokenPostfixOp
	TokenWhitespace
)

// Lexeme is a formula token that is not a resolved reference. the shifter
// passes lexemes through untouched. text values are stored unquoted and
// range values carry sheet names without their quotes, the way efp reports
// them.
type Lexeme struct {
	Type  TokenType
	Value string
}

// operand subtypes reported by efp mapped to lexeme types
var operandTypes = map[string]TokenType{
	efp.TokenSubTypeNumber:  TokenNumber,
	efp.TokenSubTypeText:    TokenText,
	efp.TokenSubTypeLogical: TokenBoolean,
	efp.TokenSubTypeError:   TokenError,
	efp.TokenSubTypeRange:   TokenRange,
}

// Lexer splits formula text into lexemes
type Lexer struct {
	input string
}

// NewLexer creates a lexer for a formula, with or without the leading '='
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize returns the lexemes of the formula. the leading '=' is not
// part of the output.
func (l *Lexer) Tokenize() ([]Lexeme, error) {
	formula := strings.TrimSpace(l.input)
	formula = strings.TrimPrefix(formula, "=")
	if strings.TrimSpace(formula) == "" {
		return nil, NewApplicationError(InvalidArgument, "empty formula")
	}

	ps := efp.ExcelParser()
	raw := ps.Parse("=" + formula)
	if ps.InString || ps.InPath || ps.InRange {
		return nil, NewApplicationError(InvalidArgument, fmt.Sprintf("unterminated string or sheet name: %s", l.input))
	}

	lexemes := make([]Lexeme, 0, len(raw))
	depth := 0
	for i := 0; i < len(raw); i++ {
		tok := raw[i]
		// efp splits "Sheet1!#REF!" into an unknown "Sheet1!" and the error
		if tok.TType == efp.TokenTypeUnknown && strings.HasSuffix(tok.TValue, "!") &&
			i+1 < len(raw) && raw[i+1].TValue == ErrorMapper[ErrorCodeRef] {
			lexemes = append(lexemes, Lexeme{Type: TokenRange, Value: tok.TValue + raw[i+1].TValue})
			i++
			continue
		}
		lx := l.classify(tok)
		switch lx.Type {
		case TokenFunctionStart, TokenSubexprStart:
			depth++
		case TokenFunctionStop, TokenSubexprStop:
			depth--
			if depth < 0 {
				return nil, NewApplicationError(InvalidArgument, "unbalanced parentheses: too many closing parentheses")
			}
		case TokenRange:
			if strings.HasPrefix(lx.Value, ":") || strings.HasSuffix(lx.Value, ":") {
				return nil, NewApplicationError(InvalidArgument, fmt.Sprintf("incomplete range: %s", lx.Value))
			}
		case TokenUnknown:
			return nil, NewApplicationError(InvalidArgument, fmt.Sprintf("unexpected token: %s", tok.TValue))
		}
		lexemes = append(lexemes, lx)
	}

	if depth > 0 {
		return nil, NewApplicationError(InvalidArgument, "unbalanced parentheses: missing closing parenthesis")
	}
	if len(lexemes) == 0 {
		return nil, NewApplicationError(InvalidArgument, fmt.Sprintf("no tokens found in formula: %s", l.input))
	}
	return lexemes, nil
}

// classify maps an efp token onto a lexeme
func (l *Lexer) classify(tok efp.Token) Lexeme {
	lx := Lexeme{Type: TokenUnknown, Value: tok.TValue}
	switch tok.TType {
	case efp.TokenTypeOperand:
		if t, ok := operandTypes[tok.TSubType]; ok {
			lx.Type = t
		}
	case efp.TokenTypeFunction:
		lx.Type = TokenFunctionStop
		if tok.TSubType == efp.TokenSubTypeStart {
			lx.Type = TokenFunctionStart
		}
	case efp.TokenTypeSubexpression:
		lx.Type = TokenSubexprStop
		if tok.TSubType == efp.TokenSubTypeStart {
			lx.Type = TokenSubexprStart
		}
	case efp.TokenTypeArgument:
		lx.Type = TokenArgument
	case efp.TokenTypeOperatorPrefix:
		lx.Type = TokenPrefixOp
	case efp.TokenTypeOperatorInfix:
		lx.Type = TokenInfixOp
		if tok.TSubType == efp.TokenSubTypeIntersection {
			lx.Value = " "
		}
	case efp.TokenTypeOperatorPostfix:
		lx.Type = TokenPostfixOp
	case efp.TokenTypeWhitespace:
		lx.Type = TokenWhitespace
	}
	return lx
}
