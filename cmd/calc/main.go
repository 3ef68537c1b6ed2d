package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/codefionn/mealcalc/internal/calc"
	"golang.org/x/term"
)

var errSomeFailed = errors.New("some expressions failed")

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		if !errors.Is(err, errSomeFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdin *os.File, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("calc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	expr := fs.String("e", "", "Evaluate one expression and exit")
	spoken := fs.Bool("spoken", false, "Translate spoken operators (\"plus\", \"умножить на\") first")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [-e EXPR] [-spoken]\n\n", fs.Name())
		fmt.Fprintln(fs.Output(), "Without -e, reads one expression per line when stdin is not a terminal")
		fmt.Fprintln(fs.Output(), "and opens the keypad otherwise.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *expr != "" || fs.NArg() > 0 {
		input := strings.TrimSpace(*expr + " " + strings.Join(fs.Args(), " "))
		if !evalLine(input, *spoken, stdout, stderr) {
			return errSomeFailed
		}
		return nil
	}

	if !term.IsTerminal(int(stdin.Fd())) {
		return evalLines(stdin, *spoken, stdout, stderr)
	}

	_, err := tea.NewProgram(newKeypadModel()).Run()
	return err
}

// evalLines evaluates every non-empty line of r.
func evalLines(r io.Reader, spoken bool, stdout, stderr io.Writer) error {
	failed := false
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !evalLine(line, spoken, stdout, stderr) {
			failed = true
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if failed {
		return errSomeFailed
	}
	return nil
}

func evalLine(line string, spoken bool, stdout, stderr io.Writer) bool {
	if spoken {
		line = calc.TranslateSpoken(line)
	}
	value, err := calc.Evaluate(line)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", line, err)
		return false
	}
	fmt.Fprintln(stdout, calc.FormatResult(value))
	return true
}
