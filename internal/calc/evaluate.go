// Package calc implements the calculator used by the Mini App: a safe
// arithmetic evaluator and the formula editing model in front of it.
//
// Evaluation never executes code. Input is sanitized to the characters
// 0-9 . + - * / ( ), tokenized, and evaluated by an explicit
// recursive-descent parser: parentheses first, then * and / left to right,
// then + and - left to right.
package calc

import (
	"math"
)

// Evaluate computes the value of an arithmetic formula. Characters outside
// the arithmetic set are discarded first. The returned error is a *Error
// matching ErrMalformedExpression or ErrDivisionByZero.
func Evaluate(formula string) (float64, error) {
	tokens, err := Tokenize(formula)
	if err != nil {
		return 0, err
	}
	return EvaluateTokens(tokens)
}

// EvaluateTokens evaluates an already tokenized formula.
func EvaluateTokens(tokens []Token) (float64, error) {
	if len(tokens) == 0 {
		return 0, malformed(-1, "empty expression")
	}

	p := &evaluator{tokens: tokens}
	value, err := p.parseExpression()
	if err != nil {
		return 0, err
	}

	if !p.isEnd() {
		tok := p.peek()
		if tok.Kind == TokenRParen {
			return 0, malformed(tok.Pos, "unmatched closing parenthesis")
		}
		return 0, malformed(tok.Pos, "missing operator before %s", tok)
	}
	if p.divZero != nil {
		return 0, p.divZero
	}

	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, malformed(-1, "result is not a finite number")
	}
	return value, nil
}

// evaluator walks the token sequence. A division by zero is remembered and
// reported only once the whole sequence parsed, so structural errors win.
type evaluator struct {
	tokens  []Token
	pos     int
	divZero *Error
}

// parseExpression handles + and -, left to right.
func (p *evaluator) parseExpression() (float64, error) {
	value, err := p.parseTerm()
	if err != nil {
		return 0, err
	}

	for {
		switch {
		case p.match(TokenPlus):
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			value += rhs
		case p.match(TokenMinus):
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			value -= rhs
		default:
			return value, nil
		}
	}
}

// parseTerm handles * and /, left to right.
func (p *evaluator) parseTerm() (float64, error) {
	value, err := p.parseFactor()
	if err != nil {
		return 0, err
	}

	for {
		switch {
		case p.match(TokenStar):
			rhs, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			value *= rhs
		case p.check(TokenSlash):
			slash := p.next()
			rhs, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			if rhs == 0 && p.divZero == nil {
				p.divZero = &Error{Kind: KindDivisionByZero, Pos: slash.Pos, Msg: "divisor is zero"}
			}
			value /= rhs
		default:
			return value, nil
		}
	}
}

// parseFactor handles signs, parenthesized groups and numbers.
func (p *evaluator) parseFactor() (float64, error) {
	if p.isEnd() {
		return 0, malformed(p.endPos(), "unexpected end of expression")
	}

	tok := p.next()
	switch tok.Kind {
	case TokenNumber:
		return tok.Value, nil
	case TokenPlus:
		return p.parseFactor()
	case TokenMinus:
		value, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		return -value, nil
	case TokenLParen:
		value, err := p.parseExpression()
		if err != nil {
			return 0, err
		}
		if !p.match(TokenRParen) {
			if p.isEnd() {
				return 0, malformed(tok.Pos, "missing closing parenthesis")
			}
			return 0, malformed(p.peek().Pos, "missing operator before %s", p.peek())
		}
		return value, nil
	default:
		return 0, malformed(tok.Pos, "expected number, found %s", tok)
	}
}

func (p *evaluator) match(kind TokenKind) bool {
	if !p.check(kind) {
		return false
	}
	p.pos++
	return true
}

func (p *evaluator) check(kind TokenKind) bool {
	return !p.isEnd() && p.peek().Kind == kind
}

func (p *evaluator) next() Token {
	tok := p.tokens[p.pos]
	p.pos++
	return tok
}

func (p *evaluator) peek() Token {
	return p.tokens[p.pos]
}

func (p *evaluator) isEnd() bool {
	return p.pos >= len(p.tokens)
}

func (p *evaluator) endPos() int {
	if len(p.tokens) == 0 {
		return -1
	}
	last := p.tokens[len(p.tokens)-1]
	return last.Pos + 1
}
