package httperrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	apperrors "adw/cli/internal/errors"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o wait exceeded" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.Kind
	}{
		{"nil", nil, apperrors.Unknown},
		{"canceled", fmt.Errorf("do: %w", context.Canceled), apperrors.Canceled},
		{"deadline", fmt.Errorf("do: %w", context.DeadlineExceeded), apperrors.Timeout},
		{"net timeout", &net.OpError{Op: "read", Err: timeoutErr{}}, apperrors.Timeout},
		{"refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, apperrors.Connection},
		{"dns", &net.DNSError{Err: "no such host", Name: "agents"}, apperrors.Connection},
		{"other", errors.New("EOF"), apperrors.Connection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Fatalf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := map[int]apperrors.Kind{
		401: apperrors.Authentication,
		403: apperrors.Authentication,
		400: apperrors.ClientRequest,
		404: apperrors.ClientRequest,
		429: apperrors.ClientRequest,
		500: apperrors.Server,
		503: apperrors.Server,
		302: apperrors.ResponseDecode,
	}
	for code, want := range tests {
		if got := ClassifyStatus(code); got != want {
			t.Errorf("ClassifyStatus(%d) = %s, want %s", code, got, want)
		}
	}
}

func TestIsConnectionRefusedError(t *testing.T) {
	if !isConnectionRefusedError(&net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}) {
		t.Fatal("expected ECONNREFUSED to be detected")
	}
	if !isConnectionRefusedError(errors.New("dial tcp 127.0.0.1:4096: connect: connection refused")) {
		t.Fatal("expected message match")
	}
	if isConnectionRefusedError(errors.New("EOF")) {
		t.Fatal("EOF is not a refusal")
	}
}

func TestExtractHostFromURL(t *testing.T) {
	if got := ExtractHostFromURL("http://localhost:4096/x"); got != "localhost:4096" {
		t.Fatalf("got %q", got)
	}
	if got := ExtractHostFromURL("::bad"); got != "server" {
		t.Fatalf("got %q", got)
	}
}
