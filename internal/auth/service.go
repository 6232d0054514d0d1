// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package auth resolves the bearer token sent to the agent server.
// ADW_SERVER_TOKEN wins over the keychain so CI runs never touch the OS
// credential store; an empty result means the server is called unauthenticated.
package auth

import (
	"context"
	"errors"
	"os"
	"strings"

	apperrors "adw/cli/internal/errors"
	"adw/cli/internal/keychain"
)

// EnvToken is the environment variable holding a server token.
const EnvToken = "ADW_SERVER_TOKEN"

// Source says where a token came from.
type Source string

const (
	SourceEnv      Source = "env"
	SourceKeychain Source = "keychain"
	SourceNone     Source = "none"
)

// TokenStore is the persistent side of token handling.
type TokenStore interface {
	SaveServerToken(token string) error
	LoadServerToken() (string, error)
	ClearServerToken() error
}

// Verifier checks a token against the server before it is stored.
type Verifier func(ctx context.Context, token string) error

// Service centralizes token lookup, login and logout.
type Service struct {
	open   func() (TokenStore, error)
	getenv func(string) string
}

// NewService builds a Service over the OS keychain. The keychain is opened
// lazily so commands that never need it work on machines without one.
func NewService() *Service {
	return &Service{
		open: func() (TokenStore, error) {
			m, err := keychain.GetManager()
			if err != nil {
				return nil, err
			}
			return m, nil
		},
		getenv: os.Getenv,
	}
}

// NewServiceWithStore builds a Service over an explicit store and env lookup.
func NewServiceWithStore(store TokenStore, getenv func(string) string) *Service {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	return &Service{
		open:   func() (TokenStore, error) { return store, nil },
		getenv: getenv,
	}
}

// Token returns the token to send and where it came from. Keychain errors
// are treated as "no token".
func (s *Service) Token() (string, Source) {
	if v := strings.TrimSpace(s.getenv(EnvToken)); v != "" {
		return v, SourceEnv
	}
	store, err := s.open()
	if err != nil {
		return "", SourceNone
	}
	tok, err := store.LoadServerToken()
	if err != nil || tok == "" {
		return "", SourceNone
	}
	return tok, SourceKeychain
}

// Login verifies token and stores it in the keychain. A token the server
// rejects is not stored; other verification failures are returned as-is.
func (s *Service) Login(ctx context.Context, token string, verify Verifier) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperrors.New(apperrors.ClientRequest, "empty token")
	}
	if verify != nil {
		if err := verify(ctx, token); err != nil {
			return err
		}
	}
	store, err := s.open()
	if err != nil {
		return err
	}
	return store.SaveServerToken(token)
}

// Logout removes the stored token. It reports whether an environment token
// is still in effect, since that cannot be cleared from here.
func (s *Service) Logout() (envStillSet bool, err error) {
	envStillSet = strings.TrimSpace(s.getenv(EnvToken)) != ""
	store, err := s.open()
	if err != nil {
		return envStillSet, err
	}
	if err := store.ClearServerToken(); err != nil && !errors.Is(err, keychain.ErrNotFound) {
		return envStillSet, err
	}
	return envStillSet, nil
}
