package calc

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateRespectsPrecedence(t *testing.T) {
	cases := []struct {
		expr     string
		expected float64
	}{
		{"2+3*4", 14},
		{"(2+3)*4", 20},
		{"10/2/5", 1},
		{"10-4-3", 3},
		{"8-2*3", 2},
		{"18/3+2", 8},
		{"-3+5", 2},
		{"((1+2)*(3+4))", 21},
		{"2*(3+(4-1))/3", 4},
		{"1.5*4", 6},
		{".5+.25", 0.75},
		{"7.", 7},
		{"42", 42},
	}

	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := Evaluate(tc.expr)
			require.NoError(t, err)
			assert.InDelta(t, tc.expected, got, 1e-9)
		})
	}
}

func TestEvaluateUnarySigns(t *testing.T) {
	cases := []struct {
		expr     string
		expected float64
	}{
		{"3*-2", -6},
		{"3--5", 8},
		{"3+-5", -2},
		{"-(2+3)", -5},
		{"+4", 4},
		{"(-2)*(-3)", 6},
		{"--2", 2},
	}

	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := Evaluate(tc.expr)
			require.NoError(t, err)
			assert.InDelta(t, tc.expected, got, 1e-9)
		})
	}
}

func TestEvaluateDiscardsForeignCharacters(t *testing.T) {
	got, err := Evaluate(" 12 + 3 x 2 = ?")
	require.NoError(t, err)
	// "x" is dropped, leaving "12+32".
	assert.Equal(t, 44.0, got)

	got, err = Evaluate("abc(1 + 1)def")
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)
}

func TestEvaluateDivisionByZero(t *testing.T) {
	for _, expr := range []string{"5/0", "1+2/(3-3)", "4/-0", "0/0", "1/0.0", "5/0+1", "(1/0)*2"} {
		t.Run(expr, func(t *testing.T) {
			_, err := Evaluate(expr)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDivisionByZero), "got %v", err)
			assert.False(t, errors.Is(err, ErrMalformedExpression))

			kind, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, KindDivisionByZero, kind)
			assert.Equal(t, "DivisionByZero", kind.String())
		})
	}
}

func TestEvaluateMalformed(t *testing.T) {
	cases := []struct {
		name string
		expr string
	}{
		{"unclosed paren", "(1+2"},
		{"nested unclosed", "((1+2)*3"},
		{"stray closing paren", "1+2)"},
		{"empty", ""},
		{"only garbage", "hello"},
		{"empty parens", "()"},
		{"trailing operator", "1+"},
		{"double operator", "1*/2"},
		{"leading multiplication", "*3"},
		{"implicit multiplication", "2(3)"},
		{"number after group", "(2)3"},
		{"two dots", "1.2.3"},
		{"lone dot", "."},
		{"only operator", "-"},
		{"division by zero inside unclosed paren", "(5/0"},
		{"division by zero before unclosed paren", "5/0+(1"},
		{"division by zero before stray paren", "5/0)"},
		{"division by zero before trailing operator", "1/0+"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Evaluate(tc.expr)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedExpression), "got %v", err)

			var evalErr *Error
			require.True(t, errors.As(err, &evalErr))
			assert.Equal(t, KindMalformed, evalErr.Kind)
		})
	}
}

func TestEvaluateReportsFirstDivisionByZero(t *testing.T) {
	_, err := Evaluate("1/0+2/0")
	var evalErr *Error
	require.True(t, errors.As(err, &evalErr))
	assert.Equal(t, KindDivisionByZero, evalErr.Kind)
	assert.Equal(t, 1, evalErr.Pos)
}

func TestEvaluateReportsPosition(t *testing.T) {
	_, err := Evaluate("1+(2*3")
	var evalErr *Error
	require.True(t, errors.As(err, &evalErr))
	assert.Equal(t, 2, evalErr.Pos)
	assert.Contains(t, err.Error(), "missing closing parenthesis")

	_, err = Evaluate("8/(4-4)")
	require.True(t, errors.As(err, &evalErr))
	assert.Equal(t, 1, evalErr.Pos)
}

func TestEvaluateOverflowIsMalformed(t *testing.T) {
	huge := "9" + strings.Repeat("9", 300)
	_, err := Evaluate(huge + "*" + huge + "*" + huge)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedExpression)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	const expr = "(7.25-1)*3/(2+0.5)"
	first, err := Evaluate(expr)
	require.NoError(t, err)
	second, err := Evaluate(expr)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTokenize(t *testing.T) {
	tokens, err := Tokenize("12.5 * (3-1)")
	require.NoError(t, err)

	kinds := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.Kind
	}
	assert.Equal(t, []TokenKind{TokenNumber, TokenStar, TokenLParen, TokenNumber, TokenMinus, TokenNumber, TokenRParen}, kinds)
	assert.Equal(t, 12.5, tokens[0].Value)
	assert.Equal(t, 4, tokens[1].Pos)
	assert.Equal(t, "*", tokens[1].String())
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "1+2*(3/4)-.5", Sanitize("1 + 2 × * (3 / 4) - .5 kcal"))
	assert.Equal(t, "", Sanitize("no digits"))
}

// TestEvaluateMatchesReference compares Evaluate with an independent
// evaluator built on go/parser for randomly generated expressions.
func TestEvaluateMatchesReference(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for i := 0; i < 2000; i++ {
		expr := randomExpr(rng, 4)

		want, refErr := referenceEval(expr)
		got, err := Evaluate(expr)

		if refErr != nil {
			require.ErrorIs(t, err, ErrDivisionByZero, "expr %q", expr)
			continue
		}
		if math.IsInf(want, 0) || math.IsNaN(want) {
			continue
		}
		require.NoError(t, err, "expr %q", expr)
		tolerance := 1e-9 * math.Max(1, math.Abs(want))
		require.InDelta(t, want, got, tolerance, "expr %q", expr)
	}
}

func randomExpr(rng *rand.Rand, depth int) string {
	if depth == 0 || rng.IntN(3) == 0 {
		n := strconv.Itoa(rng.IntN(100))
		if rng.IntN(4) == 0 {
			n += "." + strconv.Itoa(1+rng.IntN(9))
		}
		return n
	}
	if rng.IntN(4) == 0 {
		return "(" + randomExpr(rng, depth-1) + ")"
	}
	ops := "+-*/"
	op := ops[rng.IntN(len(ops))]
	return randomExpr(rng, depth-1) + string(op) + randomExpr(rng, depth-1)
}

var errReferenceDivZero = errors.New("reference: division by zero")

func referenceEval(expr string) (float64, error) {
	node, err := parser.ParseExpr(expr)
	if err != nil {
		return 0, err
	}
	return referenceNode(node)
}

func referenceNode(node ast.Expr) (float64, error) {
	switch n := node.(type) {
	case *ast.BasicLit:
		return strconv.ParseFloat(n.Value, 64)
	case *ast.ParenExpr:
		return referenceNode(n.X)
	case *ast.UnaryExpr:
		v, err := referenceNode(n.X)
		if err != nil {
			return 0, err
		}
		if n.Op == token.SUB {
			return -v, nil
		}
		return v, nil
	case *ast.BinaryExpr:
		lhs, err := referenceNode(n.X)
		if err != nil {
			return 0, err
		}
		rhs, err := referenceNode(n.Y)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case token.ADD:
			return lhs + rhs, nil
		case token.SUB:
			return lhs - rhs, nil
		case token.MUL:
			return lhs * rhs, nil
		case token.QUO:
			if rhs == 0 {
				return 0, errReferenceDivZero
			}
			return lhs / rhs, nil
		}
	}
	return 0, fmt.Errorf("reference: unsupported node %T", node)
}
