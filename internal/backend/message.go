package backend

import (
	"context"
	"errors"
	"io"
	"net/http"

	apperrors "adw/cli/internal/errors"
	"adw/cli/internal/httperrors"
	"adw/cli/internal/model"
)

type messageRequest struct {
	Parts []model.Part `json:"parts"`
	Model string       `json:"model"`
}

// SendMessage calls POST on the session's message endpoint with
// {parts: [{type: "text", text}], model} and decodes the reply.
func (h *HTTP) SendMessage(ctx context.Context, sessionID, modelID, text string) (*model.Response, error) {
	body := messageRequest{
		Parts: []model.Part{model.TextPart(text)},
		Model: modelID,
	}
	resp, err := h.do(ctx, http.MethodPost, h.messagePath(sessionID), body, "send message")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// The per-attempt deadline also bounds reading a slow body.
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(httperrors.Classify(err), "read message response", err)
	}
	return model.DecodeResponse(b)
}

func asE(err error, target **apperrors.E) bool { return errors.As(err, target) }
