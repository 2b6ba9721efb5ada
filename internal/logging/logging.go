// Package logging sets up the structured logger and the coloured console
// banners printed between trials.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// ParseLevel maps a config level name to a zerolog level. Unknown names
// fall back to info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "OFF", "DISABLED":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// New builds a console logger writing to out, or stderr when out is nil.
func New(level string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	cw := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    !IsTerminal(out),
	}
	return zerolog.New(cw).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// IsTerminal reports whether out is a terminal. Log files and buffers get
// plain output.
func IsTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type Kind int

const (
	Success Kind = iota
	Warning
	Error
)

var (
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

const barSlots = 10

// NoProgress hides the progress bar in Message.
const NoProgress = -1

// Message renders a coloured banner. A progress in 0..10 appends a bar of ten
// slots and the matching percentage.
func Message(text string, kind Kind, progress int) string {
	var (
		prefix string
		style  lipgloss.Style
	)
	switch kind {
	case Error:
		prefix, style = "ERROR: ", red
	case Warning:
		prefix, style = "WARNING: ", yellow
	default:
		prefix, style = "SUCCESS: ", green
	}

	out := style.Render(prefix + text)
	if progress < 0 {
		return out
	}
	if progress > barSlots {
		progress = barSlots
	}
	bar := "[" + strings.Repeat("#", progress) + strings.Repeat("-", barSlots-progress) + "]"
	return fmt.Sprintf("%s %s %d%%", out, dim.Render(bar), progress*10)
}

// Slots converts done out of total into the number of filled bar slots.
func Slots(done, total int) int {
	if total <= 0 {
		return 0
	}
	return done * barSlots / total
}
