package main

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalLines(t *testing.T) {
	var out, errOut bytes.Buffer
	input := "2+3*4\n\n(1+2)*3\n1/0\n(4+\n"

	err := evalLines(strings.NewReader(input), false, &out, &errOut)
	assert.ErrorIs(t, err, errSomeFailed)
	assert.Equal(t, "14\n9\n", out.String())
	assert.Contains(t, errOut.String(), "division by zero")
	assert.Contains(t, errOut.String(), "(4+: malformed expression")
}

func TestEvalLinesSpoken(t *testing.T) {
	var out, errOut bytes.Buffer

	err := evalLines(strings.NewReader("7 plus 1\n10 разделить на 4\n"), true, &out, &errOut)
	require.NoError(t, err)
	assert.Equal(t, "8\n2.5\n", out.String())
	assert.Empty(t, errOut.String())
}

func typeKeys(m tea.Model, keys ...tea.KeyMsg) tea.Model {
	for _, k := range keys {
		m, _ = m.Update(k)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestKeypadTyping(t *testing.T) {
	m := typeKeys(newKeypadModel(), runes("12+3"), runes("="))

	km := m.(keypadModel)
	assert.Equal(t, "15", km.formula.String())
	assert.Empty(t, km.err)
	assert.Contains(t, km.View(), "15")
}

func TestKeypadNavigation(t *testing.T) {
	// C ( ) ÷ on the first row, 7 below C
	m := typeKeys(newKeypadModel(),
		tea.KeyMsg{Type: tea.KeyDown},
		tea.KeyMsg{Type: tea.KeyEnter},
		tea.KeyMsg{Type: tea.KeyRight},
		tea.KeyMsg{Type: tea.KeyRight},
		tea.KeyMsg{Type: tea.KeyRight},
		tea.KeyMsg{Type: tea.KeyEnter},
		runes("2="),
	)

	km := m.(keypadModel)
	assert.Equal(t, "14", km.formula.String())
}

func TestKeypadWrapsAndClampsColumn(t *testing.T) {
	km := newKeypadModel()
	km.col = 3
	km.move(-1, 0) // last row has two keys
	assert.Equal(t, len(keypadRows)-1, km.row)
	assert.Equal(t, 1, km.col)
}

func TestKeypadShowsError(t *testing.T) {
	m := typeKeys(newKeypadModel(), runes("5/0="))

	km := m.(keypadModel)
	assert.Contains(t, km.err, "division by zero")
	assert.Contains(t, km.View(), "division by zero")

	m = typeKeys(km, tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Empty(t, m.(keypadModel).err)
}

func TestKeypadQuit(t *testing.T) {
	_, cmd := newKeypadModel().Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
