// Package ui prints human-facing status lines to stderr. Machine output
// (the JSON documents) goes to stdout and never passes through here.
package ui

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

const (
	cyan    = "\033[36m"
	yellow  = "\033[33m"
	red     = "\033[31m"
	green   = "\033[32m"
	magenta = "\033[35m"
	dim     = "\033[2m"
	reset   = "\033[0m"
)

// Printer writes colored status lines. Color is only used on a terminal.
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter creates a Printer for w
func NewPrinter(w io.Writer, noColor bool) *Printer {
	return &Printer{w: w, color: !noColor && IsTerminal(w)}
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Writer returns the underlying writer
func (p *Printer) Writer() io.Writer { return p.w }

func (p *Printer) paint(code, text string) string {
	if !p.color {
		return text
	}
	return code + text + reset
}

func (p *Printer) Cyan(s string) string    { return p.paint(cyan, s) }
func (p *Printer) Yellow(s string) string  { return p.paint(yellow, s) }
func (p *Printer) Red(s string) string     { return p.paint(red, s) }
func (p *Printer) Green(s string) string   { return p.paint(green, s) }
func (p *Printer) Magenta(s string) string { return p.paint(magenta, s) }
func (p *Printer) Dim(s string) string     { return p.paint(dim, s) }

// Error prints an error message in red
func (p *Printer) Error(msg string, err error) {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	fmt.Fprintln(p.w, p.Red(msg))
}

// Success prints a success message in green
func (p *Printer) Success(msg string) {
	fmt.Fprintln(p.w, p.Green(msg))
}

// Info prints a label/value pair
func (p *Printer) Info(label, value string) {
	fmt.Fprintf(p.w, "%s: %s\n", p.Cyan(label), p.Yellow(value))
}

// Warning prints a warning message in yellow
func (p *Printer) Warning(msg string) {
	fmt.Fprintln(p.w, p.Yellow(msg))
}

// Highlight prints a highlighted message in magenta
func (p *Printer) Highlight(msg string) {
	fmt.Fprintln(p.w, p.Magenta(msg))
}

var std = NewPrinter(os.Stderr, false)

// Stderr returns the shared stderr printer
func Stderr() *Printer { return std }

// SetNoColor rebuilds the shared printer; called once after flags are parsed
func SetNoColor(noColor bool) {
	std = NewPrinter(os.Stderr, noColor)
}

func PrintError(msg string, err error) { std.Error(msg, err) }
func PrintSuccess(msg string)          { std.Success(msg) }
func PrintInfo(label, value string)    { std.Info(label, value) }
func PrintWarning(msg string)          { std.Warning(msg) }
func PrintHighlight(msg string)        { std.Highlight(msg) }
