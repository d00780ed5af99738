// Package output renders user-facing console messages.
package output

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD787"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD75F"))
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	boldStyle    = lipgloss.NewStyle().Bold(true)
)

// OutputFormatter handles formatted console output with colors
type OutputFormatter struct {
	writer    io.Writer
	useColors bool
	renderer  *lipgloss.Renderer
}

// NewOutputFormatter creates a new OutputFormatter
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &OutputFormatter{
		writer:    w,
		useColors: colorsEnabled(w),
		renderer:  lipgloss.NewRenderer(w),
	}
}

// colorsEnabled reports whether w is a terminal that should get colors.
func colorsEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	// Legacy Windows consoles do not interpret ANSI sequences.
	if runtime.GOOS == "windows" && os.Getenv("WT_SESSION") == "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Writer returns the underlying writer.
func (o *OutputFormatter) Writer() io.Writer {
	return o.writer
}

func (o *OutputFormatter) render(style lipgloss.Style, s string) string {
	if !o.useColors {
		return s
	}
	return style.Renderer(o.renderer).Render(s)
}

// Success prints a success message with green checkmark
func (o *OutputFormatter) Success(msg string) {
	fmt.Fprintf(o.writer, "%s %s\n", o.render(successStyle, "✓"), msg)
}

// Error prints an error message with red cross
func (o *OutputFormatter) Error(msg string) {
	fmt.Fprintf(o.writer, "%s %s\n", o.render(errorStyle, "✗"), msg)
}

// Warning prints a warning message
func (o *OutputFormatter) Warning(msg string) {
	fmt.Fprintf(o.writer, "%s %s\n", o.render(warningStyle, "!"), msg)
}

// Info prints an info message
func (o *OutputFormatter) Info(msg string) {
	fmt.Fprintln(o.writer, msg)
}

// Detail prints an indented secondary line.
func (o *OutputFormatter) Detail(msg string) {
	fmt.Fprintf(o.writer, "  %s\n", o.render(dimStyle, msg))
}

// Bold returns the string wrapped in bold formatting
func (o *OutputFormatter) Bold(s string) string {
	return o.render(boldStyle, s)
}

// Path returns a path highlighted for display.
func (o *OutputFormatter) Path(s string) string {
	return o.render(pathStyle, s)
}

// Dim returns de-emphasized text.
func (o *OutputFormatter) Dim(s string) string {
	return o.render(dimStyle, s)
}
