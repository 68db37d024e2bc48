package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"netneg/internal/model"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// printer writes human-oriented output, honouring --quiet and --no-color.
type printer struct {
	w     io.Writer
	color bool
	quiet bool
}

func newPrinter(w io.Writer, cfg Config) *printer {
	return &printer{w: w, color: !cfg.NoColor && isTerminal(w), quiet: cfg.Quiet}
}

// isTerminal reports whether w is a terminal; pipes and buffers get plain text.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *printer) paint(color, s string) string {
	if !p.color {
		return s
	}
	return color + s + colorReset
}

func (p *printer) success(format string, args ...any) {
	if !p.quiet {
		fmt.Fprintln(p.w, p.paint(colorGreen, "✓ "+fmt.Sprintf(format, args...)))
	}
}

func (p *printer) failure(format string, args ...any) {
	fmt.Fprintln(p.w, p.paint(colorRed, "✗ "+fmt.Sprintf(format, args...)))
}

func (p *printer) info(format string, args ...any) {
	if !p.quiet {
		fmt.Fprintln(p.w, p.paint(colorGray, "→ "+fmt.Sprintf(format, args...)))
	}
}

// components prints an advertisement one component per line.
func (p *printer) components(components []model.Component) {
	for _, c := range components {
		fmt.Fprintf(p.w, "  %s\n", p.paint(colorCyan, c.String()))
	}
}

// agreed prints negotiated components. In quiet mode only "id version"
// lines are printed, for scripts.
func (p *printer) agreed(components []model.NegotiatedComponent) {
	for _, c := range components {
		if p.quiet {
			if c.Version != nil {
				fmt.Fprintf(p.w, "%s %d\n", c.ID, *c.Version)
			} else {
				fmt.Fprintf(p.w, "%s\n", c.ID)
			}
			continue
		}
		fmt.Fprintf(p.w, "  %s\n", p.paint(colorCyan, c.String()))
	}
}

// rejected prints one failed component.
func (p *printer) rejected(code, side, message string) {
	fmt.Fprintf(p.w, "  %s %s\n", p.paint(colorYellow, fmt.Sprintf("[%s/%s]", code, side)), message)
}
