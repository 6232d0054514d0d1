// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "adw/cli/internal/errors"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status is the processing state of a message. Done and Error are terminal.
type Status string

const (
	StatusDone    Status = "done"
	StatusRunning Status = "running"
	StatusError   Status = "error"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool { return s == StatusDone || s == StatusError }

// Message is the envelope returned by the server: metadata plus ordered parts.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	Role      Role      `json:"role"`
	Status    Status    `json:"status"`
	Parts     []Part    `json:"parts"`
}

// Response is the result of one successful dispatch. Parts is the canonical
// ordered view; Message.Parts holds an independent copy of the same sequence.
type Response struct {
	Message Message `json:"message"`
	Parts   []Part  `json:"parts"`
}

type wireInfo struct {
	ID        string          `json:"id"`
	SessionID string          `json:"sessionID"`
	CreatedAt json.RawMessage `json:"createdAt"`
	Role      string          `json:"role"`
	Status    string          `json:"status"`
}

type wireMessage struct {
	Info  *wireInfo          `json:"info"`
	Parts *[]json.RawMessage `json:"parts"`
}

// maxBodyInError bounds the raw body kept on decode errors.
const maxBodyInError = 4096

// DecodeResponse parses and validates a message reply body. Any syntactic or
// structural problem (missing info, status other than done, missing parts)
// yields a ResponseDecode error carrying the raw body.
func DecodeResponse(body []byte) (*Response, error) {
	fail := func(msg string, err error) error {
		e := apperrors.Wrap(apperrors.ResponseDecode, msg, err)
		e.Body = truncateBody(body)
		return e
	}

	var w wireMessage
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&w); err != nil {
		return nil, fail("undecodable response body", err)
	}
	if w.Info == nil {
		return nil, fail("response has no info object", nil)
	}
	if w.Parts == nil {
		return nil, fail("response has no parts sequence", nil)
	}
	if Status(w.Info.Status) != StatusDone {
		return nil, fail(fmt.Sprintf("message status is %q, want %q", w.Info.Status, StatusDone), nil)
	}

	role := Role(w.Info.Role)
	switch role {
	case RoleUser, RoleAssistant:
	case "":
		role = RoleAssistant
	default:
		return nil, fail(fmt.Sprintf("unknown message role %q", w.Info.Role), nil)
	}

	createdAt, err := parseTimestamp(w.Info.CreatedAt)
	if err != nil {
		return nil, fail("invalid createdAt", err)
	}

	parts := make([]Part, 0, len(*w.Parts))
	for i, raw := range *w.Parts {
		var wp wirePart
		if err := json.Unmarshal(raw, &wp); err != nil {
			return nil, fail(fmt.Sprintf("part %d is not an object", i), err)
		}
		if strings.TrimSpace(wp.Type) == "" {
			return nil, fail(fmt.Sprintf("part %d has no type", i), nil)
		}
		parts = append(parts, wp.toParts()...)
	}

	msg := Message{
		ID:        w.Info.ID,
		SessionID: w.Info.SessionID,
		CreatedAt: createdAt,
		Role:      role,
		Status:    StatusDone,
		Parts:     CloneParts(parts),
	}
	return &Response{Message: msg, Parts: parts}, nil
}

// parseTimestamp accepts epoch milliseconds, RFC 3339 strings, or nothing.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, err
		}
		if s == "" {
			return time.Time{}, nil
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), nil
		}
		return time.Parse(time.RFC3339Nano, s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return time.Time{}, err
	}
	ms, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return time.Time{}, err
		}
		ms = int64(f)
	}
	return time.UnixMilli(ms).UTC(), nil
}

func truncateBody(body []byte) string {
	if len(body) <= maxBodyInError {
		return string(body)
	}
	return string(body[:maxBodyInError]) + "..."
}
