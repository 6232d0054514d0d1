package dispatch

import (
	"context"

	"adw/cli/internal/model"
	"adw/cli/internal/session"
)

// Do runs one prompt in a session obtained from m and releases the session
// afterwards: route, open, send, close.
func (d *Dispatcher) Do(ctx context.Context, m *session.Manager, p model.Prompt, opts ...SendOption) (*model.Response, error) {
	var resp *model.Response
	err := m.With(ctx, func(s *session.Session) error {
		var err error
		resp, err = d.Send(ctx, s, p, opts...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
