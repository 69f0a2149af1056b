// Package render draws the line-oriented terminal interface.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

const defaultWidth = 80

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#87AFFF"))
	headingStyle = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F"))
	markStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD75F")).Bold(true)
)

// Renderer writes to one terminal. Styling and in-place redraws are only
// used when the output is an interactive terminal.
type Renderer struct {
	out   io.Writer
	color bool
	width int
}

// New renders to f, detecting whether it is a terminal.
func New(f *os.File) *Renderer {
	r := &Renderer{out: f, width: defaultWidth}
	fd := f.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		r.color = os.Getenv("NO_COLOR") == "" && os.Getenv("TERM") != "dumb"
		if w, _, err := term.GetSize(int(fd)); err == nil && w > 0 {
			r.width = w
		}
	}
	return r
}

// NewPlain renders to w without styling or cursor movement.
func NewPlain(w io.Writer) *Renderer {
	return &Renderer{out: w, width: defaultWidth}
}

// Interactive reports whether styling and redraws are enabled.
func (r *Renderer) Interactive() bool {
	return r.color
}

func (r *Renderer) paint(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

// Println writes one line.
func (r *Renderer) Println(a ...any) {
	fmt.Fprintln(r.out, a...)
}

// Printf writes formatted text.
func (r *Renderer) Printf(format string, a ...any) {
	fmt.Fprintf(r.out, format, a...)
}

// Title writes a heading.
func (r *Renderer) Title(s string) {
	fmt.Fprintln(r.out, r.paint(titleStyle, s))
}

// Info writes a status message.
func (r *Renderer) Info(s string) {
	fmt.Fprintln(r.out, r.paint(okStyle, s))
}

// Error writes an error message.
func (r *Renderer) Error(err error) {
	fmt.Fprintln(r.out, r.paint(errorStyle, "Error: "+err.Error()))
}

// Prompt writes a prompt without a trailing newline.
func (r *Renderer) Prompt(s string) {
	fmt.Fprint(r.out, r.paint(headingStyle, s))
}

// Rule writes a separator.
func (r *Renderer) Rule() {
	fmt.Fprintln(r.out, r.paint(dimStyle, strings.Repeat("-", 20)))
}

// Block writes lines. When replace is positive and the output is a terminal,
// the cursor first moves up over the previous block of that height, which
// is cleared line by line.
func (r *Renderer) Block(lines []string, replace int) {
	var sb strings.Builder
	if r.color && replace > 0 {
		fmt.Fprintf(&sb, "\033[%dA", replace)
	}
	for _, l := range lines {
		if r.color {
			sb.WriteString("\033[2K")
		}
		sb.WriteString(r.truncate(l))
		sb.WriteByte('\n')
	}
	io.WriteString(r.out, sb.String())
}

func (r *Renderer) truncate(s string) string {
	if lipgloss.Width(s) <= r.width || r.width < 4 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= r.width {
		return s
	}
	return string(runes[:r.width-3]) + "..."
}
