package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"gistcast/internal/preflight"
)

type checkState int

const (
	stateInfo checkState = iota
	stateOK
	stateWarn
	stateFail
)

func (s checkState) label() string {
	switch s {
	case stateOK:
		return "OK"
	case stateWarn:
		return "WARN"
	case stateFail:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (s checkState) color() string {
	switch s {
	case stateOK:
		return colorGreen
	case stateWarn:
		return colorYellow
	case stateFail:
		return colorRed
	default:
		return colorBlue
	}
}

const (
	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[31m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorBlue   = "\x1b[34m"
)

// checkLabelWidth fits the longest preflight check name ("Staging directory").
const checkLabelWidth = 18

// statusPrinter renders the sectioned check output of `gistcast status`.
type statusPrinter struct {
	w     io.Writer
	color bool
}

func newStatusPrinter(w io.Writer) *statusPrinter {
	return &statusPrinter{w: w, color: isTerminalWriter(w)}
}

func (p *statusPrinter) section(title string) {
	header := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(header))
	if p.color {
		header = colorBlue + header + colorReset
		rule = colorBlue + rule + colorReset
	}
	fmt.Fprintln(p.w, header)
	fmt.Fprintln(p.w, rule)
}

func (p *statusPrinter) line(label string, state checkState, detail string) {
	fmt.Fprintln(p.w, p.formatLine(label, state, detail))
}

func (p *statusPrinter) check(result preflight.Result) {
	state := stateFail
	if result.Passed {
		state = stateOK
	}
	p.line(result.Name, state, result.Detail)
}

func (p *statusPrinter) blank() {
	fmt.Fprintln(p.w)
}

func (p *statusPrinter) formatLine(label string, state checkState, detail string) string {
	status := "[" + state.label() + "]"
	if detail != "" {
		status += " " + detail
	}
	line := fmt.Sprintf("  %-*s %s", checkLabelWidth, label+":", status)
	if p.color {
		if c := state.color(); c != "" {
			return c + line + colorReset
		}
	}
	return line
}

func isTerminalWriter(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
