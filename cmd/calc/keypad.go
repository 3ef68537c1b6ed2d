package main

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/codefionn/mealcalc/internal/calc"
)

var keypadRows = [][]string{
	{"C", "(", ")", "÷"},
	{"7", "8", "9", "×"},
	{"4", "5", "6", "-"},
	{"1", "2", "3", "+"},
	{"±", "0", ".", "="},
	{"%", "⌫"},
}

var (
	displayStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1).
			Width(26).
			Align(lipgloss.Right)
	keyStyle = lipgloss.NewStyle().
			Width(5).
			Align(lipgloss.Center)
	selectedKeyStyle = keyStyle.
				Background(lipgloss.Color("62")).
				Foreground(lipgloss.Color("230")).
				Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// keypadModel is the interactive calculator screen.
type keypadModel struct {
	formula  *calc.Formula
	row, col int
	err      string
}

func newKeypadModel() keypadModel {
	return keypadModel{formula: calc.NewFormula("")}
}

func (m keypadModel) Init() tea.Cmd {
	return nil
}

func (m keypadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyUp:
		m.move(-1, 0)
	case tea.KeyDown:
		m.move(1, 0)
	case tea.KeyLeft:
		m.move(0, -1)
	case tea.KeyRight:
		m.move(0, 1)
	case tea.KeyEnter:
		m.press(keypadRows[m.row][m.col])
	case tea.KeySpace:
		m.press(keypadRows[m.row][m.col])
	case tea.KeyBackspace, tea.KeyDelete:
		m.press("⌫")
	case tea.KeyRunes:
		for _, r := range keyMsg.Runes {
			switch r {
			case 'q':
				return m, tea.Quit
			case 'n':
				m.press("±")
			default:
				m.press(string(r))
			}
		}
	}
	return m, nil
}

func (m *keypadModel) move(dRow, dCol int) {
	m.row = (m.row + dRow + len(keypadRows)) % len(keypadRows)
	if m.col >= len(keypadRows[m.row]) {
		m.col = len(keypadRows[m.row]) - 1
	}
	m.col = (m.col + dCol + len(keypadRows[m.row])) % len(keypadRows[m.row])
}

func (m *keypadModel) press(key string) {
	m.err = ""
	if err := m.formula.Press(key); err != nil {
		m.err = err.Error()
	}
}

func (m keypadModel) View() string {
	var sb strings.Builder
	sb.WriteString(displayStyle.Render(m.formula.String()))
	sb.WriteString("\n")

	for r, row := range keypadRows {
		cells := make([]string, len(row))
		for c, key := range row {
			style := keyStyle
			if r == m.row && c == m.col {
				style = selectedKeyStyle
			}
			cells[c] = style.Render(key)
		}
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		sb.WriteString("\n")
	}

	if m.err != "" {
		sb.WriteString(errorStyle.Render(m.err))
		sb.WriteString("\n")
	}
	sb.WriteString(hintStyle.Render("arrows + enter or type keys, n negates, q quits"))
	sb.WriteString("\n")
	return sb.String()
}
