package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"adw/cli/internal/config"
	apperrors "adw/cli/internal/errors"
	"adw/cli/internal/httperrors"
)

// maxErrorBody bounds how much of an error response is read for detail.
const maxErrorBody = 64 << 10

// HTTP implements API over the agent server's REST endpoints.
type HTTP struct {
	// baseURL is the server root, without trailing slash (e.g. "http://localhost:4096")
	baseURL string
	// token is sent as a bearer credential when non-empty
	token     string
	endpoints config.Endpoints
	// client carries no timeout of its own; each call is bounded by its context
	client    *http.Client
	userAgent string
}

// Option customizes the HTTP client.
type Option func(*HTTP)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option { return func(h *HTTP) { h.client = c } }

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option { return func(h *HTTP) { h.userAgent = ua } }

func newHTTP(baseURL, token string, endpoints config.Endpoints, opts ...Option) *HTTP {
	h := &HTTP{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		endpoints: endpoints,
		client:    &http.Client{},
		userAgent: "adw-cli",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTP) setStandardHeaders(req *http.Request) {
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "application/json")
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
}

// do sends a request and converts transport failures and non-2xx statuses
// into classified errors. On success the caller owns resp.Body.
func (h *HTTP) do(ctx context.Context, method, path string, body any, what string) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ClientRequest, "encode "+what+" request", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, rdr)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ClientRequest, "build "+what+" request", err)
	}
	h.setStandardHeaders(req)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(httperrors.Classify(err), what+" failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &apperrors.E{
			Kind:       httperrors.ClassifyStatus(resp.StatusCode),
			Message:    what + " rejected",
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(b),
		}
	}
	return resp, nil
}

// errorDetail pulls a human-readable message out of an error body. The
// server reports errors either as {"error": "..."}, {"message": "..."} or
// {"data": {"message": "..."}}; anything else is returned as trimmed text.
func errorDetail(b []byte) string {
	var payload struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
		Data    struct {
			Message string `json:"message"`
		} `json:"data"`
	}
	if json.Unmarshal(b, &payload) == nil {
		switch v := payload.Error.(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if m, ok := v["message"].(string); ok && m != "" {
				return m
			}
		}
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Data.Message != "" {
			return payload.Data.Message
		}
	}
	s := strings.TrimSpace(string(b))
	if len(s) > 500 {
		s = s[:500] + "..."
	}
	return s
}

// Health calls GET on the health endpoint. The version is taken from the
// body when present; an empty or non-JSON 2xx body still counts as healthy.
func (h *HTTP) Health(ctx context.Context) (HealthStatus, error) {
	resp, err := h.do(ctx, http.MethodGet, h.endpoints.Health, nil, "health check")
	if err != nil {
		return HealthStatus{}, err
	}
	defer resp.Body.Close()
	var out struct {
		Healthy *bool  `json:"healthy"`
		Version string `json:"version"`
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if len(bytes.TrimSpace(b)) == 0 || json.Unmarshal(b, &out) != nil {
		return HealthStatus{Healthy: true, Version: "unknown"}, nil
	}
	st := HealthStatus{Healthy: true, Version: out.Version}
	if out.Healthy != nil {
		st.Healthy = *out.Healthy
	}
	if st.Version == "" {
		st.Version = "unknown"
	}
	return st, nil
}

func (h *HTTP) messagePath(sessionID string) string {
	return strings.ReplaceAll(h.endpoints.Message, "{id}", sessionID)
}

func (h *HTTP) sessionPath(sessionID string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(h.endpoints.Session, "/"), sessionID)
}
