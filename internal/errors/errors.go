// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package errors defines typed errors with categories for agent-server interactions.
// Every failure surfaced by the dispatch client carries a machine-readable Kind so
// callers branch on the category instead of matching error text. Retryable kinds
// are retried inside the dispatcher and only reach callers after the retry budget
// is exhausted, with the attempt count and elapsed time attached.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// Connection indicates the server could not be reached (refused, reset, DNS).
	Connection Kind = "connection"
	// Timeout indicates no response arrived within the per-attempt timeout.
	Timeout Kind = "timeout"
	// Authentication indicates the server rejected our credentials (401/403).
	Authentication Kind = "authentication"
	// ClientRequest indicates a non-auth 4xx rejection of the request.
	ClientRequest Kind = "client_request"
	// Server indicates a 5xx response.
	Server Kind = "server"
	// ResponseDecode indicates a malformed or structurally invalid response body.
	ResponseDecode Kind = "response_decode"
	// InvalidTaskType indicates a task type outside the closed routing set.
	InvalidTaskType Kind = "invalid_task_type"
	// Canceled indicates the caller's context ended while the client was blocked.
	Canceled Kind = "canceled"
	// Unknown is reported by KindOf for errors that carry no Kind.
	Unknown Kind = "unknown"
)

// Retryable reports whether failures of kind k are retried by the dispatcher.
func Retryable(k Kind) bool {
	switch k {
	case Connection, Timeout, Server:
		return true
	}
	return false
}

// E wraps an error with kind, human-friendly message and dispatch context.
type E struct {
	Kind    Kind
	Message string
	Err     error

	// StatusCode is the HTTP status when the failure came from a response.
	StatusCode int
	// Detail is the server-provided error detail, when the server sent one.
	Detail string
	// Body holds the raw response body for decode failures.
	Body string
	// Attempts is the number of attempts made before the error was surfaced.
	Attempts int
	// Elapsed is the wall-clock time spent across all attempts and backoff sleeps.
	Elapsed time.Duration
}

func (e *E) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	if e.Attempts > 0 {
		fmt.Fprintf(&b, " [attempts=%d elapsed=%s]", e.Attempts, e.Elapsed.Round(time.Millisecond))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *E) Unwrap() error { return e.Err }

// Retryable reports whether this error's kind is retried by the dispatcher.
func (e *E) Retryable() bool { return Retryable(e.Kind) }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the Kind of the first *E in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
