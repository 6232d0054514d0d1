package logging

import (
	"io"
	"strings"

	"github.com/pterm/pterm"
)

// ParseLevel maps a config level name to a pterm log level.
// Unknown names fall back to info.
func ParseLevel(s string) pterm.LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return pterm.LogLevelTrace
	case "debug":
		return pterm.LogLevelDebug
	case "warn", "warning":
		return pterm.LogLevelWarn
	case "error":
		return pterm.LogLevelError
	case "off", "disabled", "none":
		return pterm.LogLevelDisabled
	default:
		return pterm.LogLevelInfo
	}
}

// New builds the diagnostic logger. format "json" emits one JSON object per
// line; anything else uses pterm's colored text layout.
func New(w io.Writer, level, format string) *pterm.Logger {
	l := pterm.DefaultLogger.
		WithLevel(ParseLevel(level)).
		WithWriter(w)
	if strings.EqualFold(format, "json") {
		l = l.WithFormatter(pterm.LogFormatterJSON)
	}
	return l
}

// Discard returns a logger that drops everything.
func Discard() *pterm.Logger {
	return pterm.DefaultLogger.WithLevel(pterm.LogLevelDisabled).WithWriter(io.Discard)
}
