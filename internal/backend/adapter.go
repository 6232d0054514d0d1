// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backend provides the transport to the agent execution server.
// It defines the API contract for session lifecycle, message exchange and
// health probing, plus the HTTP/JSON implementation of that contract.
// Every method performs exactly one request: retries belong to the dispatcher.
package backend

import (
	"context"

	"adw/cli/internal/model"
)

// API defines agent-server operations the client depends on.
// Implementations may call the real HTTP endpoints or provide fakes for tests.
type API interface {
	// CreateSession opens a server-side conversation and returns its id.
	// The id may be empty when the server does not assign one.
	CreateSession(ctx context.Context) (string, error)
	// DeleteSession discards a server-side conversation. A session the server
	// no longer knows about is not an error.
	DeleteSession(ctx context.Context, sessionID string) error
	// SendMessage posts one text prompt to a session and returns the decoded reply.
	SendMessage(ctx context.Context, sessionID, modelID, text string) (*model.Response, error)
	// Health probes server liveness independent of any session.
	Health(ctx context.Context) (HealthStatus, error)
}

// HealthStatus is the result of a liveness probe.
type HealthStatus struct {
	Healthy bool   `json:"healthy"`
	Version string `json:"version,omitempty"`
}
