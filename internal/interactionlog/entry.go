// Package interactionlog records every dispatch as a structured, write-once
// entry. Recording is a side channel: sink failures are reported on the
// diagnostic logger and never reach the caller of the dispatcher.
package interactionlog

import (
	"errors"
	"time"
	"unicode/utf8"

	apperrors "adw/cli/internal/errors"
	"adw/cli/internal/logging"
	"adw/cli/internal/model"
	"adw/cli/internal/parser"

	"github.com/google/uuid"
)

// previewRunes bounds the prompt preview.
const previewRunes = 200

// Outcome values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Context correlates an entry with the operation that produced it.
type Context struct {
	ADWID     string `json:"adw_id,omitempty"`
	AgentName string `json:"agent_name,omitempty"`
}

// Request describes what was sent.
type Request struct {
	ServerURL string
	SessionID string
	ModelID   string
	TaskType  model.TaskType
	Prompt    string
}

// Result describes how the dispatch ended: either Response or Err is set.
type Result struct {
	Response *model.Response
	Err      error
	Attempts int
	Elapsed  time.Duration
}

// ResponseSummary is the logged view of a successful reply.
type ResponseSummary struct {
	MessageID string        `json:"message_id,omitempty"`
	Text      string        `json:"text"`
	Parts     []model.Part  `json:"parts"`
	Metrics   model.Metrics `json:"metrics"`
}

// ErrorSummary is the logged view of a terminal failure.
type ErrorSummary struct {
	Kind       apperrors.Kind `json:"kind"`
	Message    string         `json:"message"`
	StatusCode int            `json:"status_code,omitempty"`
	Detail     string         `json:"detail,omitempty"`
	// Body is the raw response body of a decode failure.
	Body string `json:"body,omitempty"`
}

// Entry is one logged interaction.
type Entry struct {
	ID            string           `json:"id"`
	Timestamp     time.Time        `json:"timestamp"`
	ServerURL     string           `json:"server_url"`
	SessionID     string           `json:"session_id,omitempty"`
	ModelID       string           `json:"model_id"`
	TaskType      model.TaskType   `json:"task_type"`
	PromptPreview string           `json:"prompt_preview"`
	Outcome       string           `json:"outcome"`
	Attempts      int              `json:"attempts"`
	ElapsedMS     int64            `json:"elapsed_ms"`
	Response      *ResponseSummary `json:"response,omitempty"`
	Error         *ErrorSummary    `json:"error,omitempty"`
	Context       Context          `json:"context"`
}

// NewEntry builds an entry. The prompt preview and error text are masked.
func NewEntry(at time.Time, c Context, req Request, res Result) Entry {
	e := Entry{
		ID:            uuid.NewString(),
		Timestamp:     at.UTC(),
		ServerURL:     req.ServerURL,
		SessionID:     req.SessionID,
		ModelID:       req.ModelID,
		TaskType:      req.TaskType,
		PromptPreview: Preview(req.Prompt),
		Attempts:      res.Attempts,
		ElapsedMS:     res.Elapsed.Milliseconds(),
		Context:       c,
	}
	switch {
	case res.Err != nil:
		e.Outcome = OutcomeError
		e.Error = summarizeError(res.Err)
	case res.Response != nil:
		e.Outcome = OutcomeSuccess
		e.Response = &ResponseSummary{
			MessageID: res.Response.Message.ID,
			Text:      parser.ExtractText(res.Response.Parts),
			Parts:     model.CloneParts(res.Response.Parts),
			Metrics:   parser.EstimateMetrics(res.Response.Parts, 0),
		}
	default:
		e.Outcome = OutcomeError
		e.Error = &ErrorSummary{Kind: apperrors.Unknown, Message: "no response"}
	}
	return e
}

func summarizeError(err error) *ErrorSummary {
	s := &ErrorSummary{Kind: apperrors.KindOf(err), Message: logging.Mask(err.Error())}
	var e *apperrors.E
	if errors.As(err, &e) {
		s.StatusCode = e.StatusCode
		s.Detail = logging.Mask(e.Detail)
		s.Body = e.Body
	}
	return s
}

// Preview masks secrets in a prompt and truncates it to a fixed number of runes.
func Preview(prompt string) string {
	p := logging.Mask(prompt)
	if utf8.RuneCountInString(p) <= previewRunes {
		return p
	}
	r := []rune(p)
	return string(r[:previewRunes]) + "..."
}
