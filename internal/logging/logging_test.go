package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "adw/cli/internal/errors"

	"github.com/pterm/pterm"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]pterm.LogLevel{
		"debug":   pterm.LogLevelDebug,
		" WARN ":  pterm.LogLevelWarn,
		"error":   pterm.LogLevelError,
		"off":     pterm.LogLevelDisabled,
		"":        pterm.LogLevelInfo,
		"chatty":  pterm.LogLevelInfo,
		"warning": pterm.LogLevelWarn,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn", "json")
	l.Info("hidden")
	l.Warn("shown", l.Args("attempt", 2))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "attempt") {
		t.Fatalf("missing warn record: %s", out)
	}
}

func TestFormatDispatchError(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	err := &apperrors.E{
		Kind:     apperrors.Timeout,
		Message:  "send message failed",
		Err:      errors.New("token=abc123"),
		Attempts: 4,
		Elapsed:  7 * time.Second,
	}
	out := FormatDispatchError(err)
	for _, want := range []string{"Agent Timed Out", "4 attempt(s)", "token=***"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "abc123") {
		t.Errorf("secret leaked:\n%s", out)
	}
	if FormatDispatchError(nil) != "" {
		t.Error("nil error should format to empty string")
	}
}

func TestPresentError(t *testing.T) {
	err := errors.New("connect postgres://adw:hunter2@db:5432/adw failed")
	if got := PresentError("", nil); got != "" {
		t.Errorf("nil error rendered %q", got)
	}
	got := PresentError("opening audit sink", err)
	if !strings.HasPrefix(got, "opening audit sink: ") {
		t.Errorf("missing context: %q", got)
	}
	if strings.Contains(got, "hunter2") {
		t.Errorf("password leaked: %q", got)
	}
	if bare := PresentError("", err); strings.HasPrefix(bare, ":") || strings.Contains(bare, "hunter2") {
		t.Errorf("bare rendering = %q", bare)
	}
}
