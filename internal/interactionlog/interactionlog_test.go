package interactionlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"adw/cli/internal/backend/backendtest"
	apperrors "adw/cli/internal/errors"
	"adw/cli/internal/logging"
	"adw/cli/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2025, 3, 4, 5, 6, 7, 8_000_000, time.UTC)

func request() Request {
	return Request{
		ServerURL: "http://localhost:4096",
		SessionID: "ses_1",
		ModelID:   "small/model",
		TaskType:  model.TaskClassify,
		Prompt:    "classify this issue",
	}
}

func TestNewEntrySuccess(t *testing.T) {
	resp := backendtest.Done(
		model.TextPart("feature"),
		model.ToolUsePart("edit", map[string]any{"filePath": "a.go", "oldString": "a", "newString": "b"}),
	)
	e := NewEntry(at, Context{ADWID: "op1", AgentName: "classifier"}, request(), Result{Response: resp, Attempts: 2, Elapsed: 1500 * time.Millisecond})

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, OutcomeSuccess, e.Outcome)
	assert.Nil(t, e.Error)
	require.NotNil(t, e.Response)
	assert.Equal(t, "feature", e.Response.Text)
	assert.Equal(t, 1, e.Response.Metrics.FilesChanged)
	assert.Equal(t, 2, e.Attempts)
	assert.Equal(t, int64(1500), e.ElapsedMS)
	assert.Equal(t, "classifier", e.Context.AgentName)
}

func TestNewEntryError(t *testing.T) {
	err := &apperrors.E{
		Kind:       apperrors.ResponseDecode,
		Message:    "undecodable response body",
		StatusCode: 200,
		Body:       "<html>",
	}
	e := NewEntry(at, Context{}, request(), Result{Err: err, Attempts: 1})

	assert.Equal(t, OutcomeError, e.Outcome)
	assert.Nil(t, e.Response)
	require.NotNil(t, e.Error)
	assert.Equal(t, apperrors.ResponseDecode, e.Error.Kind)
	assert.Equal(t, "<html>", e.Error.Body)
	assert.Equal(t, 200, e.Error.StatusCode)
}

func TestPreviewMasksAndTruncates(t *testing.T) {
	assert.Equal(t, "use token=*** now", Preview("use token=abc now"))

	long := strings.Repeat("é", 250)
	p := Preview(long)
	assert.True(t, strings.HasSuffix(p, "..."))
	assert.Equal(t, 203, len([]rune(p)))
}

func TestFileSinkLayout(t *testing.T) {
	root := t.TempDir()
	sink := NewFileSink(root)
	e := NewEntry(at, Context{ADWID: "abc123", AgentName: "planner"}, request(), Result{Response: backendtest.Done()})

	require.NoError(t, sink.Write(context.Background(), e))

	p := sink.Path(e)
	assert.Equal(t, filepath.Join(root, "abc123", "planner"), filepath.Dir(p))
	assert.True(t, strings.HasPrefix(filepath.Base(p), "20250304T050607.008Z-"))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	var got Entry
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, model.TaskClassify, got.TaskType)

	// same entry twice must not overwrite
	assert.Error(t, sink.Write(context.Background(), e))
}

func TestFileSinkSanitizesSegments(t *testing.T) {
	sink := NewFileSink("/logs")
	e := Entry{ID: "x", Timestamp: at, Context: Context{ADWID: "../../etc", AgentName: ".."}}
	p := sink.Path(e)
	assert.Equal(t, filepath.Join("/logs", ".._.._etc", "agent"), filepath.Dir(p))

	e.Context = Context{}
	assert.Equal(t, filepath.Join("/logs", "adhoc", "agent"), filepath.Dir(sink.Path(e)))
}

type failingSink struct{ calls int }

func (f *failingSink) Name() string { return "failing" }
func (f *failingSink) Write(context.Context, Entry) error {
	f.calls++
	return errors.New("disk full")
}

type memorySink struct{ entries []Entry }

func (m *memorySink) Name() string { return "memory" }
func (m *memorySink) Write(_ context.Context, e Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func TestLoggerSurvivesSinkFailure(t *testing.T) {
	var diag bytes.Buffer
	bad := &failingSink{}
	good := &memorySink{}
	l := New(logging.New(&diag, "info", "json"), bad, good).WithClock(func() time.Time { return at })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := l.Log(ctx, Context{ADWID: "op"}, request(), Result{Response: backendtest.Done()})

	assert.Equal(t, 1, bad.calls)
	require.Len(t, good.entries, 1)
	assert.Equal(t, e.ID, good.entries[0].ID)
	assert.Equal(t, at, e.Timestamp)
	assert.Contains(t, diag.String(), "disk full")
}

type fakeExec struct {
	sql  []string
	args [][]any
}

func (f *fakeExec) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestPostgresSinkWrite(t *testing.T) {
	db := &fakeExec{}
	s := &PostgresSink{db: db}
	require.NoError(t, s.migrate(context.Background()))

	e := NewEntry(at, Context{ADWID: "op"}, request(), Result{Err: apperrors.New(apperrors.Timeout, "send message failed"), Attempts: 4})
	require.NoError(t, s.Write(context.Background(), e))

	require.Len(t, db.sql, 2)
	assert.Contains(t, db.sql[0], "CREATE TABLE IF NOT EXISTS agent_interactions")
	args := db.args[1]
	require.Len(t, args, 8)
	assert.Equal(t, e.ID, args[0])
	assert.Equal(t, "op", args[2])
	assert.Equal(t, "error", args[6])
	assert.Contains(t, args[7], `"kind":"timeout"`)
}

func TestOpenPostgresSinkRejectsBadDSN(t *testing.T) {
	_, err := OpenPostgresSink(context.Background(), "mysql://x@y/z")
	assert.Error(t, err)
}
