package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"adw/cli/internal/config"
	apperrors "adw/cli/internal/errors"
	"adw/cli/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okMessage = `{
  "info": {"id": "msg_1", "sessionID": "ses_1", "createdAt": 1735689600000, "role": "assistant", "status": "done"},
  "parts": [{"type": "text", "text": "hello"}]
}`

func newTestServer(t *testing.T, h http.HandlerFunc) *HTTP {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return newHTTP(srv.URL+"/", "tok", config.DefaultEndpoints(), WithUserAgent("adw-test"))
}

func TestSendMessageWireFormat(t *testing.T) {
	var got map[string]any
	h := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/session/ses_1/message", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "adw-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &got))
		_, _ = io.WriteString(w, okMessage)
	})

	resp, err := h.SendMessage(context.Background(), "ses_1", "big/model", "do it")
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, resp.Message.Status)
	assert.Equal(t, []model.Part{model.TextPart("hello")}, resp.Parts)

	assert.Equal(t, "big/model", got["model"])
	assert.Equal(t, []any{map[string]any{"type": "text", "text": "do it"}}, got["parts"])
}

func TestSendMessageStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		body   string
		kind   apperrors.Kind
		detail string
	}{
		{401, `{"error": "bad token"}`, apperrors.Authentication, "bad token"},
		{403, `forbidden`, apperrors.Authentication, "forbidden"},
		{404, `{"message": "no session"}`, apperrors.ClientRequest, "no session"},
		{502, `{"data": {"message": "upstream down"}}`, apperrors.Server, "upstream down"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			h := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := h.SendMessage(context.Background(), "s", "m", "p")
			var e *apperrors.E
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.status, e.StatusCode)
			assert.Equal(t, tt.detail, e.Detail)
		})
	}
}

func TestSendMessageMalformedBody(t *testing.T) {
	h := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>oops</html>`)
	})
	_, err := h.SendMessage(context.Background(), "s", "m", "p")
	var e *apperrors.E
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apperrors.ResponseDecode, e.Kind)
	assert.Contains(t, e.Body, "oops")
}

func TestSendMessageTimeout(t *testing.T) {
	release := make(chan struct{})
	h := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := h.SendMessage(ctx, "s", "m", "p")
	assert.True(t, apperrors.IsKind(err, apperrors.Timeout), "got %v", err)
}

func TestConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	h := newHTTP(url, "", config.DefaultEndpoints())
	_, err := h.CreateSession(context.Background())
	assert.True(t, apperrors.IsKind(err, apperrors.Connection), "got %v", err)
}

func TestCreateSession(t *testing.T) {
	h := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/session", r.URL.Path)
		_, _ = io.WriteString(w, `{"id": " ses_42 "}`)
	})
	id, err := h.CreateSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ses_42", id)
}

func TestCreateSessionEmptyBody(t *testing.T) {
	h := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	id, err := h.CreateSession(context.Background())
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestDeleteSessionTreatsNotFoundAsDone(t *testing.T) {
	h := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/session/gone", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	})
	assert.NoError(t, h.DeleteSession(context.Background(), "gone"))
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = io.WriteString(w, `{"healthy": true, "version": "1.2.3"}`)
	})
	st, err := h.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, HealthStatus{Healthy: true, Version: "1.2.3"}, st)
}

func TestHealthPlainBody(t *testing.T) {
	h := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	st, err := h.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, HealthStatus{Healthy: true, Version: "unknown"}, st)
}
