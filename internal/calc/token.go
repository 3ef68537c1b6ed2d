package calc

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenKind identifies a token produced by Tokenize.
type TokenKind int

const (
	TokenNumber TokenKind = iota
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenLParen
	TokenRParen
)

var operatorKinds = map[byte]TokenKind{
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenStar,
	'/': TokenSlash,
	'(': TokenLParen,
	')': TokenRParen,
}

// Token is a numeric literal or a single operator/parenthesis symbol.
type Token struct {
	Kind  TokenKind
	Value float64
	Pos   int // byte offset in the sanitized input
}

func (t Token) String() string {
	if t.Kind == TokenNumber {
		return strconv.FormatFloat(t.Value, 'g', -1, 64)
	}
	for ch, kind := range operatorKinds {
		if kind == t.Kind {
			return string(ch)
		}
	}
	return fmt.Sprintf("Token(%d)", t.Kind)
}

func isNumeric(ch byte) bool {
	return (ch >= '0' && ch <= '9') || ch == '.'
}

// Sanitize drops every character outside 0-9 . + - * / ( ).
func Sanitize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if isNumeric(ch) {
			sb.WriteByte(ch)
			continue
		}
		if _, ok := operatorKinds[ch]; ok {
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}

// Tokenize sanitizes s and splits it into tokens. Runs of digits and dots
// become one number; a run that is not a valid decimal (two dots, a lone
// dot) is reported as malformed.
func Tokenize(s string) ([]Token, error) {
	input := Sanitize(s)
	tokens := make([]Token, 0, len(input))

	start := -1
	flush := func(end int) error {
		if start < 0 {
			return nil
		}
		literal := input[start:end]
		if strings.Count(literal, ".") > 1 || literal == "." {
			return malformed(start, "invalid number %q", literal)
		}
		value, err := strconv.ParseFloat(literal, 64)
		if err != nil {
			return malformed(start, "invalid number %q", literal)
		}
		tokens = append(tokens, Token{Kind: TokenNumber, Value: value, Pos: start})
		start = -1
		return nil
	}

	for i := 0; i < len(input); i++ {
		ch := input[i]
		if isNumeric(ch) {
			if start < 0 {
				start = i
			}
			continue
		}
		if err := flush(i); err != nil {
			return nil, err
		}
		tokens = append(tokens, Token{Kind: operatorKinds[ch], Pos: i})
	}
	if err := flush(len(input)); err != nil {
		return nil, err
	}

	return tokens, nil
}
