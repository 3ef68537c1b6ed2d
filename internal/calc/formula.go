package calc

import (
	"math"
	"strconv"
	"strings"
)

const defaultFormula = "0"

// Formula is the expression the user is editing. It is never empty and
// resets to "0". The zero value behaves like a cleared formula.
type Formula struct {
	text string
}

var keypadSymbols = strings.NewReplacer("×", "*", "÷", "/")

// NewFormula returns a formula initialized to s, or "0" when s is blank.
// Keypad symbols are mapped to their operators and every character outside
// the arithmetic set is dropped.
func NewFormula(s string) *Formula {
	f := &Formula{text: Sanitize(keypadSymbols.Replace(s))}
	f.normalize()
	return f
}

// String returns the current formula text.
func (f *Formula) String() string {
	if f.text == "" {
		return defaultFormula
	}
	return f.text
}

// Clear resets the formula to "0".
func (f *Formula) Clear() {
	f.text = defaultFormula
}

// AppendDigit appends a digit, replacing a lone leading zero of the current
// literal. A digit after ")" is joined with an explicit "*".
func (f *Formula) AppendDigit(d byte) {
	if d < '0' || d > '9' {
		return
	}
	s := f.String()
	start := literalStart(s)
	switch {
	case s[start:] == "0":
		f.text = s[:start] + string(d)
	case lastByte(s) == ')':
		f.text = s + "*" + string(d)
	default:
		f.text = s + string(d)
	}
}

// AppendOperator appends one of + - * /. A trailing operator is replaced so
// the formula never holds two binary operators in a row.
func (f *Formula) AppendOperator(op byte) {
	if !isBinaryOperator(op) {
		return
	}
	s := f.String()

	switch last := lastByte(s); {
	case s == defaultFormula && op == '-':
		f.text = "-"
	case last == '(':
		if op == '-' {
			f.text = s + "-"
		}
	case isBinaryOperator(last):
		trimmed := strings.TrimRight(s, "+-*/")
		if trimmed == "" {
			if op == '-' {
				f.text = "-"
				return
			}
			trimmed = defaultFormula
		}
		if lastByte(trimmed) == '(' && op != '-' {
			f.text = trimmed
			return
		}
		f.text = trimmed + string(op)
	default:
		f.text = s + string(op)
	}
}

// AppendDecimal adds a decimal point to the current literal unless it
// already has one. With no literal in progress it starts "0.".
func (f *Formula) AppendDecimal() {
	s := f.String()
	start := literalStart(s)
	literal := s[start:]
	switch {
	case strings.Contains(literal, "."):
		return
	case literal != "":
		f.text = s + "."
	case lastByte(s) == ')':
		f.text = s + "*0."
	default:
		f.text = s + "0."
	}
}

// AppendParen opens or closes a group. A closing parenthesis is only
// accepted when a group is open and an operand precedes it.
func (f *Formula) AppendParen(open bool) {
	s := f.String()
	last := lastByte(s)

	if open {
		switch {
		case s == defaultFormula:
			f.text = "("
		case isNumeric(last) || last == ')':
			f.text = s + "*("
		default:
			f.text = s + "("
		}
		return
	}

	if strings.Count(s, "(") <= strings.Count(s, ")") {
		return
	}
	if isNumeric(last) || last == ')' {
		f.text = s + ")"
	}
}

// ToggleSign negates the current literal by adding or removing a unary
// minus in front of it.
func (f *Formula) ToggleSign() {
	s := f.String()
	start := literalStart(s)

	if start == len(s) {
		last := lastByte(s)
		switch {
		case last == '-' && isUnaryPosition(s, len(s)-1):
			f.text = s[:len(s)-1]
			f.normalize()
		case isBinaryOperator(last) || last == '(':
			f.text = s + "-"
		}
		return
	}

	if start > 0 && s[start-1] == '-' && isUnaryPosition(s, start-1) {
		f.text = s[:start-1] + s[start:]
		f.normalize()
		return
	}
	f.text = s[:start] + "-" + s[start:]
}

// Percent divides the current literal by 100.
func (f *Formula) Percent() {
	s := f.String()
	start := literalStart(s)
	if start == len(s) {
		return
	}
	value, err := strconv.ParseFloat(s[start:], 64)
	if err != nil {
		return
	}
	f.text = s[:start] + FormatResult(value/100)
}

// Backspace removes the last character. Removing the last operand of the
// formula yields "0".
func (f *Formula) Backspace() {
	s := f.String()
	f.text = s[:len(s)-1]
	f.normalize()
}

// Evaluate computes the formula. On success the formula is replaced by the
// formatted result; on failure it is left unchanged so editing can continue.
func (f *Formula) Evaluate() (float64, error) {
	value, err := Evaluate(f.String())
	if err != nil {
		return 0, err
	}
	f.text = FormatResult(value)
	return value, nil
}

// Press applies a keypad key. Recognized keys are digits, + - * / × ÷,
// ".", "(", ")", "±", "%", "⌫", "C" and "=". Only "=" can fail.
func (f *Formula) Press(key string) error {
	switch key {
	case "+", "-", "*", "/":
		f.AppendOperator(key[0])
	case "×":
		f.AppendOperator('*')
	case "÷":
		f.AppendOperator('/')
	case ".", ",":
		f.AppendDecimal()
	case "(":
		f.AppendParen(true)
	case ")":
		f.AppendParen(false)
	case "±", "neg":
		f.ToggleSign()
	case "%":
		f.Percent()
	case "⌫", "backspace":
		f.Backspace()
	case "C", "c", "AC", "clear":
		f.Clear()
	case "=":
		_, err := f.Evaluate()
		return err
	default:
		if len(key) == 1 {
			f.AppendDigit(key[0])
		}
	}
	return nil
}

func (f *Formula) normalize() {
	if f.text == "" || f.text == "-" {
		f.text = defaultFormula
	}
}

// FormatResult renders a result for display: integers without a decimal
// point, fractions without trailing zeros, and float noise below 1e-10
// rounded away.
func FormatResult(v float64) string {
	if math.Abs(v) < 1e8 {
		v = math.Round(v*1e10) / 1e10
	}
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// literalStart returns the index where the trailing numeric literal of s
// begins, or len(s) when s does not end in a literal.
func literalStart(s string) int {
	i := len(s)
	for i > 0 && isNumeric(s[i-1]) {
		i--
	}
	return i
}

// isUnaryPosition reports whether the sign at index i of s is in operand
// position: at the start, after an operator or after "(".
func isUnaryPosition(s string, i int) bool {
	if i == 0 {
		return true
	}
	prev := s[i-1]
	return isBinaryOperator(prev) || prev == '('
}

func isBinaryOperator(ch byte) bool {
	return ch == '+' || ch == '-' || ch == '*' || ch == '/'
}

func lastByte(s string) byte {
	if s == "" {
		return 0
	}
	return s[len(s)-1]
}
