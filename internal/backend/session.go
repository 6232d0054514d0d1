package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	apperrors "adw/cli/internal/errors"
)

// CreateSession calls POST on the session endpoint and returns {id}.
func (h *HTTP) CreateSession(ctx context.Context) (string, error) {
	resp, err := h.do(ctx, http.MethodPost, h.endpoints.Session, struct{}{}, "create session")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.Wrap(apperrors.Connection, "read session response", err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return "", nil
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		e := apperrors.Wrap(apperrors.ResponseDecode, "decode session response", err)
		e.Body = string(b)
		return "", e
	}
	return strings.TrimSpace(out.ID), nil
}

// DeleteSession calls DELETE on the session resource. 404 counts as success.
func (h *HTTP) DeleteSession(ctx context.Context, sessionID string) error {
	resp, err := h.do(ctx, http.MethodDelete, h.sessionPath(sessionID), nil, "delete session")
	if err != nil {
		var e *apperrors.E
		if asE(err, &e) && e.StatusCode == http.StatusNotFound {
			return nil
		}
		return err
	}
	resp.Body.Close()
	return nil
}
