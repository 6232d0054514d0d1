// Package backendtest provides a scripted in-memory backend.API for tests.
package backendtest

import (
	"context"
	"fmt"
	"sync"

	"adw/cli/internal/backend"
	"adw/cli/internal/model"
)

// Reply is one scripted SendMessage outcome.
type Reply struct {
	Response *model.Response
	Err      error
	// Block makes the call wait for context cancellation and return its error.
	Block bool
}

// Call records one SendMessage invocation.
type Call struct {
	SessionID string
	ModelID   string
	Text      string
}

// Fake implements backend.API. Replies are consumed in order; once exhausted
// the last reply repeats.
type Fake struct {
	mu sync.Mutex

	SessionIDs   []string
	CreateErr    error
	DeleteErr    error
	Replies      []Reply
	HealthStatus backend.HealthStatus
	HealthErr    error

	Calls   []Call
	Created int
	Deleted []string
}

var _ backend.API = (*Fake)(nil)

func (f *Fake) CreateSession(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	f.Created++
	if len(f.SessionIDs) == 0 {
		return fmt.Sprintf("ses_%d", f.Created), nil
	}
	id := f.SessionIDs[0]
	f.SessionIDs = f.SessionIDs[1:]
	return id, nil
}

func (f *Fake) DeleteSession(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, sessionID)
	return f.DeleteErr
}

func (f *Fake) SendMessage(ctx context.Context, sessionID, modelID, text string) (*model.Response, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, Call{SessionID: sessionID, ModelID: modelID, Text: text})
	var r Reply
	switch n := len(f.Calls); {
	case len(f.Replies) == 0:
		f.mu.Unlock()
		return nil, fmt.Errorf("backendtest: no reply scripted")
	case n <= len(f.Replies):
		r = f.Replies[n-1]
	default:
		r = f.Replies[len(f.Replies)-1]
	}
	f.mu.Unlock()

	if r.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return r.Response, r.Err
}

func (f *Fake) Health(ctx context.Context) (backend.HealthStatus, error) {
	return f.HealthStatus, f.HealthErr
}

// Attempts returns the number of SendMessage calls so far.
func (f *Fake) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// Done builds a finished assistant response holding parts.
func Done(parts ...model.Part) *model.Response {
	return &model.Response{
		Message: model.Message{
			ID:     "msg_1",
			Role:   model.RoleAssistant,
			Status: model.StatusDone,
			Parts:  model.CloneParts(parts),
		},
		Parts: model.CloneParts(parts),
	}
}
