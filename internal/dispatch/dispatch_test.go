package dispatch

import (
	"context"
	"testing"
	"time"

	"adw/cli/internal/backend/backendtest"
	apperrors "adw/cli/internal/errors"
	"adw/cli/internal/interactionlog"
	"adw/cli/internal/model"
	"adw/cli/internal/router"
	"adw/cli/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	heavyModel = "big/model"
	lightModel = "small/model"
)

type fakeClock struct {
	t      time.Time
	delays []time.Duration
}

func newClock() *fakeClock { return &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)} }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.delays = append(c.delays, d)
	c.t = c.t.Add(d)
	return nil
}

type memorySink struct{ entries []interactionlog.Entry }

func (m *memorySink) Name() string { return "memory" }
func (m *memorySink) Write(_ context.Context, e interactionlog.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

type recordingObserver struct {
	attempts []int
	retries  []time.Duration
}

func (o *recordingObserver) OnAttempt(attempt, _ int, _ string) { o.attempts = append(o.attempts, attempt) }
func (o *recordingObserver) OnRetry(_ int, _ *apperrors.E, d time.Duration) {
	o.retries = append(o.retries, d)
}

type harness struct {
	api   *backendtest.Fake
	clock *fakeClock
	sink  *memorySink
	obs   *recordingObserver
	d     *Dispatcher
	sess  *session.Session
}

func newHarness(t *testing.T, replies ...backendtest.Reply) *harness {
	t.Helper()
	r, err := router.New(heavyModel, lightModel)
	require.NoError(t, err)

	h := &harness{
		api:   &backendtest.Fake{Replies: replies},
		clock: newClock(),
		sink:  &memorySink{},
		obs:   &recordingObserver{},
	}
	cfg := Config{
		ServerURL:      "http://localhost:4096",
		HeavyTimeout:   10 * time.Minute,
		LightTimeout:   2 * time.Minute,
		MaxRetries:     3,
		InitialBackoff: time.Second,
	}
	h.d = New(r, h.api, cfg,
		WithRecorder(interactionlog.New(nil, h.sink)),
		WithSleep(h.clock.sleep),
		WithClock(h.clock.now),
		WithObserver(h.obs),
	)
	h.sess, err = session.NewManager(h.api, cfg.ServerURL).Open(context.Background())
	require.NoError(t, err)
	return h
}

func prompt(t *testing.T, tt model.TaskType, override string) model.Prompt {
	t.Helper()
	p, err := model.NewPrompt("do the thing", tt, override)
	require.NoError(t, err)
	return p
}

func failure(kind apperrors.Kind, status int) backendtest.Reply {
	return backendtest.Reply{Err: &apperrors.E{Kind: kind, Message: "send message failed", StatusCode: status}}
}

func ok(parts ...model.Part) backendtest.Reply {
	return backendtest.Reply{Response: backendtest.Done(parts...)}
}

func TestSendRetriesTimeoutsThenSucceeds(t *testing.T) {
	h := newHarness(t,
		failure(apperrors.Timeout, 0),
		failure(apperrors.Timeout, 0),
		failure(apperrors.Timeout, 0),
		ok(model.TextPart("done")),
	)

	resp, err := h.d.Send(context.Background(), h.sess, prompt(t, model.TaskImplement, ""))
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, resp.Message.Status)
	assert.Equal(t, 4, h.api.Attempts())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, h.clock.delays)
	assert.Equal(t, []int{1, 2, 3, 4}, h.obs.attempts)
	assert.Equal(t, h.clock.delays, h.obs.retries)

	require.Len(t, h.sink.entries, 1)
	e := h.sink.entries[0]
	assert.Equal(t, interactionlog.OutcomeSuccess, e.Outcome)
	assert.Equal(t, 4, e.Attempts)
	assert.Equal(t, int64(7000), e.ElapsedMS)
}

func TestSendExhaustsRetryBudget(t *testing.T) {
	h := newHarness(t, failure(apperrors.Timeout, 0))

	_, err := h.d.Send(context.Background(), h.sess, prompt(t, model.TaskImplement, ""))

	var e *apperrors.E
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apperrors.Timeout, e.Kind)
	assert.Equal(t, 4, e.Attempts)
	assert.Equal(t, 7*time.Second, e.Elapsed)
	assert.Contains(t, e.Error(), "attempts=4")
	assert.Equal(t, 4, h.api.Attempts())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, h.clock.delays)

	require.Len(t, h.sink.entries, 1)
	assert.Equal(t, interactionlog.OutcomeError, h.sink.entries[0].Outcome)
	assert.Equal(t, apperrors.Timeout, h.sink.entries[0].Error.Kind)
}

func TestSendNonRetryableFailsImmediately(t *testing.T) {
	tests := []struct {
		name   string
		reply  backendtest.Reply
		kind   apperrors.Kind
		status int
	}{
		{"unauthorized", failure(apperrors.Authentication, 401), apperrors.Authentication, 401},
		{"forbidden", failure(apperrors.Authentication, 403), apperrors.Authentication, 403},
		{"not found", failure(apperrors.ClientRequest, 404), apperrors.ClientRequest, 404},
		{"bad body", failure(apperrors.ResponseDecode, 0), apperrors.ResponseDecode, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.reply, ok())
			_, err := h.d.Send(context.Background(), h.sess, prompt(t, model.TaskClassify, ""))

			var e *apperrors.E
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.status, e.StatusCode)
			assert.Equal(t, 1, e.Attempts)
			assert.Equal(t, 1, h.api.Attempts())
			assert.Empty(t, h.clock.delays)
			assert.Len(t, h.sink.entries, 1)
		})
	}
}

func TestSendRetriesServerAndConnectionErrors(t *testing.T) {
	h := newHarness(t,
		failure(apperrors.Server, 503),
		failure(apperrors.Connection, 0),
		ok(model.TextPart("x")),
	)
	_, err := h.d.Send(context.Background(), h.sess, prompt(t, model.TaskReview, ""))
	require.NoError(t, err)
	assert.Equal(t, 3, h.api.Attempts())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, h.clock.delays)
}

func TestSendRoutesModel(t *testing.T) {
	tests := []struct {
		taskType model.TaskType
		override string
		want     string
	}{
		{model.TaskClassify, "", lightModel},
		{model.TaskImplement, "", heavyModel},
		{model.TaskPlan, "custom/model", "custom/model"},
	}
	for _, tt := range tests {
		t.Run(string(tt.taskType), func(t *testing.T) {
			h := newHarness(t, ok(model.TextPart("hi")))
			resp, err := h.d.Send(context.Background(), h.sess, prompt(t, tt.taskType, tt.override))
			require.NoError(t, err)
			assert.Equal(t, model.StatusDone, resp.Message.Status)
			require.Len(t, h.api.Calls, 1)
			assert.Equal(t, tt.want, h.api.Calls[0].ModelID)
			assert.Equal(t, h.sess.ID, h.api.Calls[0].SessionID)
			assert.Equal(t, "do the thing", h.api.Calls[0].Text)
			assert.Equal(t, tt.want, h.sink.entries[0].ModelID)
		})
	}
}

func TestSendPerAttemptTimeout(t *testing.T) {
	h := newHarness(t, backendtest.Reply{Block: true})
	h.d.cfg.MaxRetries = 1

	_, err := h.d.Send(context.Background(), h.sess, prompt(t, model.TaskClassify, ""), WithTimeout(20*time.Millisecond))
	var e *apperrors.E
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apperrors.Timeout, e.Kind)
	assert.Equal(t, 2, e.Attempts)
}

func TestTimeoutForTier(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, 2*time.Minute, h.d.TimeoutFor(model.TaskGenerateBranchName))
	assert.Equal(t, 10*time.Minute, h.d.TimeoutFor(model.TaskFixFailingTests))
}

func TestBackoffSchedule(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, time.Second, h.d.Backoff(1))
	assert.Equal(t, 2*time.Second, h.d.Backoff(2))
	assert.Equal(t, 4*time.Second, h.d.Backoff(3))
	assert.Equal(t, maxBackoff, h.d.Backoff(40))
}

func TestSendOnClosedSession(t *testing.T) {
	h := newHarness(t, ok())
	session.NewManager(h.api, "http://x").Close(context.Background(), h.sess)

	_, err := h.d.Send(context.Background(), h.sess, prompt(t, model.TaskPlan, ""))
	assert.True(t, apperrors.IsKind(err, apperrors.ClientRequest))
	assert.Equal(t, 0, h.api.Attempts())
	assert.Len(t, h.sink.entries, 1)
}

func TestSendInvalidPrompt(t *testing.T) {
	h := newHarness(t, ok())
	_, err := h.d.Send(context.Background(), h.sess, model.Prompt{})
	assert.True(t, apperrors.IsKind(err, apperrors.InvalidTaskType))
	assert.Equal(t, 0, h.api.Attempts())
}

func TestSendCanceledDuringBackoff(t *testing.T) {
	h := newHarness(t, failure(apperrors.Server, 500))
	ctx, cancel := context.WithCancel(context.Background())
	h.d.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	_, err := h.d.Send(ctx, h.sess, prompt(t, model.TaskImplement, ""))
	var e *apperrors.E
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apperrors.Canceled, e.Kind)
	assert.Equal(t, 1, e.Attempts)
	assert.Len(t, h.sink.entries, 1)
}

func TestSendParentCanceledMidRequest(t *testing.T) {
	h := newHarness(t, backendtest.Reply{Block: true})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := h.d.Send(ctx, h.sess, prompt(t, model.TaskImplement, ""))
	assert.True(t, apperrors.IsKind(err, apperrors.Canceled), "got %v", err)
	assert.Equal(t, 1, h.api.Attempts())
}

func TestDoScopesSession(t *testing.T) {
	h := newHarness(t, ok(model.TextPart("a")))
	m := session.NewManager(h.api, "http://localhost:4096", session.WithDeleteOnClose(true))

	_, err := h.d.Do(context.Background(), m, prompt(t, model.TaskClassify, ""))
	require.NoError(t, err)
	require.Len(t, h.api.Deleted, 1)
	assert.Equal(t, h.api.Calls[0].SessionID, h.api.Deleted[0])
}
