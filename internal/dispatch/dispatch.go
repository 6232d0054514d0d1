// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package dispatch sends prompts to the agent server and owns the retry loop.
//
// A dispatch makes at most MaxRetries+1 attempts. Connection failures,
// timeouts and 5xx responses are retried after an exponential backoff of
// InitialBackoff*2^(n-1) following failed attempt n; every other failure is
// returned immediately. The error returned to the caller is always terminal
// and carries the attempt count and total elapsed time.
package dispatch

import (
	"context"
	"errors"
	"time"

	"adw/cli/internal/backend"
	"adw/cli/internal/config"
	apperrors "adw/cli/internal/errors"
	"adw/cli/internal/httperrors"
	"adw/cli/internal/interactionlog"
	"adw/cli/internal/model"
	"adw/cli/internal/router"
	"adw/cli/internal/session"

	"github.com/pterm/pterm"
)

// maxBackoff caps a single backoff sleep.
const maxBackoff = 5 * time.Minute

// Config holds the retry and timeout policy.
type Config struct {
	ServerURL      string
	HeavyTimeout   time.Duration
	LightTimeout   time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
}

// ConfigFrom extracts the dispatch policy from the client configuration.
func ConfigFrom(c config.Config) Config {
	return Config{
		ServerURL:      c.ServerURL,
		HeavyTimeout:   c.HeavyTimeout(),
		LightTimeout:   c.LightTimeout(),
		MaxRetries:     c.MaxRetries,
		InitialBackoff: c.InitialBackoff(),
	}
}

// SleepFunc waits for d or until ctx ends.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Dispatcher sends prompts within sessions.
type Dispatcher struct {
	router   *router.Router
	api      backend.API
	cfg      Config
	recorder *interactionlog.Logger
	log      *pterm.Logger
	sleep    SleepFunc
	now      func() time.Time
	observer Observer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRecorder sets the interaction log every dispatch is written to.
func WithRecorder(l *interactionlog.Logger) Option { return func(d *Dispatcher) { d.recorder = l } }

// WithLogger sets the diagnostic logger.
func WithLogger(l *pterm.Logger) Option { return func(d *Dispatcher) { d.log = l } }

// WithSleep replaces the backoff sleep.
func WithSleep(s SleepFunc) Option { return func(d *Dispatcher) { d.sleep = s } }

// WithClock replaces time.Now for elapsed-time accounting.
func WithClock(now func() time.Time) Option { return func(d *Dispatcher) { d.now = now } }

// WithObserver receives attempt and retry notifications.
func WithObserver(o Observer) Option { return func(d *Dispatcher) { d.observer = o } }

// New creates a Dispatcher.
func New(r *router.Router, api backend.API, cfg Config, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		router:   r,
		api:      api,
		cfg:      cfg,
		log:      pterm.DefaultLogger.WithLevel(pterm.LogLevelDisabled),
		sleep:    sleepCtx,
		now:      time.Now,
		observer: NopObserver{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.cfg.MaxRetries < 0 {
		d.cfg.MaxRetries = 0
	}
	return d
}

type sendOptions struct {
	timeout time.Duration
	logCtx  interactionlog.Context
}

// SendOption customizes one Send call.
type SendOption func(*sendOptions)

// WithTimeout overrides the tier's per-attempt timeout. Non-positive values
// are ignored.
func WithTimeout(t time.Duration) SendOption {
	return func(o *sendOptions) {
		if t > 0 {
			o.timeout = t
		}
	}
}

// WithLogContext sets the operation id and agent name the interaction log
// entry is filed under.
func WithLogContext(c interactionlog.Context) SendOption {
	return func(o *sendOptions) { o.logCtx = c }
}

// Backoff returns the delay after failed attempt n (n >= 1).
func (d *Dispatcher) Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	delay := d.cfg.InitialBackoff
	for i := 1; i < n; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return min(delay, maxBackoff)
}

// TimeoutFor returns the default per-attempt timeout for a task type.
func (d *Dispatcher) TimeoutFor(t model.TaskType) time.Duration {
	if tier, err := router.TierOf(t); err == nil && tier == router.Lightweight {
		return d.cfg.LightTimeout
	}
	return d.cfg.HeavyTimeout
}

// Send dispatches p within s and returns the parsed response. Exactly one
// interaction log entry is written per call, whatever the outcome.
func (d *Dispatcher) Send(ctx context.Context, s *session.Session, p model.Prompt, opts ...SendOption) (*model.Response, error) {
	o := sendOptions{timeout: d.TimeoutFor(p.TaskType())}
	for _, opt := range opts {
		opt(&o)
	}

	start := d.now()
	req := interactionlog.Request{
		ServerURL: d.cfg.ServerURL,
		TaskType:  p.TaskType(),
		Prompt:    p.Text(),
	}
	if s != nil {
		req.SessionID = s.ID
	}

	resp, attempts, err := d.send(ctx, s, p, o.timeout, &req)
	elapsed := d.now().Sub(start)
	if err != nil {
		e := asE(err)
		e.Attempts = attempts
		e.Elapsed = elapsed
		err = e
	}

	d.recorder.Log(ctx, o.logCtx, req, interactionlog.Result{
		Response: resp,
		Err:      err,
		Attempts: attempts,
		Elapsed:  elapsed,
	})
	if err != nil {
		d.log.Warn("dispatch failed", d.log.Args(
			"task_type", string(p.TaskType()), "model", req.ModelID,
			"kind", string(apperrors.KindOf(err)), "attempts", attempts, "elapsed", elapsed.String()))
		return nil, err
	}
	d.log.Info("dispatch done", d.log.Args(
		"task_type", string(p.TaskType()), "model", req.ModelID,
		"attempts", attempts, "elapsed", elapsed.String(), "parts", len(resp.Parts)))
	return resp, nil
}

// send runs the retry loop and reports how many attempts were made.
func (d *Dispatcher) send(ctx context.Context, s *session.Session, p model.Prompt, timeout time.Duration, req *interactionlog.Request) (*model.Response, int, error) {
	modelID, err := d.router.Resolve(p)
	if err != nil {
		return nil, 0, err
	}
	req.ModelID = modelID
	if s == nil || s.Closed() {
		return nil, 0, apperrors.New(apperrors.ClientRequest, "session is closed")
	}

	maxAttempts := d.cfg.MaxRetries + 1
	attempt := 0
	for {
		attempt++
		d.observer.OnAttempt(attempt, maxAttempts, modelID)
		d.log.Debug("dispatch attempt", d.log.Args("attempt", attempt, "of", maxAttempts, "model", modelID, "session_id", s.ID))

		resp, err := d.attempt(ctx, s.ID, modelID, p.Text(), timeout)
		if err == nil {
			return resp, attempt, nil
		}
		if !err.Retryable() || attempt >= maxAttempts {
			return nil, attempt, err
		}

		delay := d.Backoff(attempt)
		d.observer.OnRetry(attempt, err, delay)
		d.log.Debug("retrying after backoff", d.log.Args("attempt", attempt, "kind", string(err.Kind), "delay", delay.String()))
		if serr := d.sleep(ctx, delay); serr != nil {
			return nil, attempt, apperrors.Wrap(apperrors.Canceled, "canceled during backoff", serr)
		}
	}
}

// attempt performs one bounded request and classifies its failure.
func (d *Dispatcher) attempt(ctx context.Context, sessionID, modelID, text string, timeout time.Duration) (*model.Response, *apperrors.E) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := d.api.SendMessage(actx, sessionID, modelID, text)
	if err == nil {
		return resp, nil
	}
	if ctx.Err() != nil {
		return nil, apperrors.Wrap(apperrors.Canceled, "dispatch canceled", err)
	}
	e := asE(err)
	if e.Kind == apperrors.Canceled || e.Kind == apperrors.Unknown {
		// The attempt's own deadline fired, or the transport gave no kind.
		if actx.Err() != nil {
			e.Kind = apperrors.Timeout
		} else {
			e.Kind = httperrors.Classify(err)
		}
	}
	return nil, e
}

// asE returns a copy of err's *E, or wraps err as one.
func asE(err error) *apperrors.E {
	var e *apperrors.E
	if errors.As(err, &e) {
		cp := *e
		return &cp
	}
	return apperrors.Wrap(apperrors.Unknown, "dispatch failed", err)
}
