// Package cli provides line-oriented terminal prompts for setup commands.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

// Prompter asks questions on Out and reads answers from In.
type Prompter struct {
	In      io.Reader
	Out     io.Writer
	scanner *bufio.Scanner
}

// DefaultPrompter returns a Prompter connected to stdin/stdout.
func DefaultPrompter() *Prompter {
	return &Prompter{In: os.Stdin, Out: os.Stdout}
}

// IsTerminal reports whether r is an interactive terminal.
func IsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *Prompter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.Out, format, args...)
}

// readLine returns the next trimmed line, or "" at end of input.
func (p *Prompter) readLine() string {
	if p.scanner == nil {
		p.scanner = bufio.NewScanner(p.In)
	}
	if !p.scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(p.scanner.Text())
}

// Ask reads one line. An empty answer selects def.
func (p *Prompter) Ask(question, def string) string {
	if def == "" {
		p.printf("%s: ", question)
	} else {
		p.printf("%s [%s]: ", question, def)
	}
	if ans := p.readLine(); ans != "" {
		return ans
	}
	return def
}

// AskSecret reads a line without echo when In is a terminal.
func (p *Prompter) AskSecret(question string) string {
	p.printf("%s: ", question)
	if f, ok := p.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		p.printf("\n")
		if err == nil {
			return strings.TrimSpace(string(b))
		}
	}
	return p.readLine()
}

// askParsed repeats question until parse accepts the answer.
func askParsed[T any](p *Prompter, question, def string, parse func(string) (T, error)) T {
	for {
		v, err := parse(p.Ask(question, def))
		if err == nil {
			return v
		}
		p.printf("  %v\n", err)
	}
}

// AskInt asks for an integer in [lo, hi].
func (p *Prompter) AskInt(question string, def, lo, hi int) int {
	return askParsed(p, question, strconv.Itoa(def), func(s string) (int, error) {
		n, err := strconv.Atoi(s)
		if err != nil || n < lo || n > hi {
			return 0, fmt.Errorf("please enter a number between %d and %d", lo, hi)
		}
		return n, nil
	})
}

// AskFloat asks for a non-negative number.
func (p *Prompter) AskFloat(question string, def float64) float64 {
	return askParsed(p, question, strconv.FormatFloat(def, 'g', -1, 64), func(s string) (float64, error) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f < 0 {
			return 0, fmt.Errorf("please enter a non-negative number")
		}
		return f, nil
	})
}

// AskDuration asks for a Go duration such as "10s" or "5m".
func (p *Prompter) AskDuration(question string, def time.Duration) time.Duration {
	return askParsed(p, question, def.String(), func(s string) (time.Duration, error) {
		d, err := time.ParseDuration(s)
		if err != nil || d < 0 {
			return 0, fmt.Errorf("please enter a duration like 10s or 5m")
		}
		return d, nil
	})
}

// AskList reads a comma-separated list. Empty items are dropped.
func (p *Prompter) AskList(question string) []string {
	var items []string
	for _, s := range strings.Split(p.Ask(question, ""), ",") {
		if s = strings.TrimSpace(s); s != "" {
			items = append(items, s)
		}
	}
	return items
}

// Choose lists options and returns the selected one.
func (p *Prompter) Choose(question string, options []string, def int) string {
	p.printf("%s\n", question)
	for i, opt := range options {
		marker := "  "
		if i == def {
			marker = "> "
		}
		p.printf("%s%d) %s\n", marker, i+1, opt)
	}
	n := p.AskInt("Choice", def+1, 1, len(options))
	return options[n-1]
}

// Confirm asks a yes/no question.
func (p *Prompter) Confirm(question string, defaultYes bool) bool {
	hint := "y/N"
	if defaultYes {
		hint = "Y/n"
	}
	ans := strings.ToLower(p.Ask(question+" ("+hint+")", ""))
	if ans == "" {
		return defaultYes
	}
	return strings.HasPrefix(ans, "y")
}
