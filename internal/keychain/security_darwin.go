// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

//go:build darwin

package keychain

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// securityBackend stores generic passwords through the macOS security command.
// Entries use the key as service name and ServiceName as account.
type securityBackend struct{}

func newSecurityBackend() (*securityBackend, error) {
	if _, err := exec.LookPath("security"); err != nil {
		return nil, fmt.Errorf("security command not found: %w", err)
	}
	return &securityBackend{}, nil
}

func notFound(stderr string) bool {
	return strings.Contains(stderr, "could not be found")
}

func (s *securityBackend) run(stdout *bytes.Buffer, args ...string) (string, error) {
	cmd := exec.Command("security", args...)
	var stderr bytes.Buffer
	if stdout != nil {
		cmd.Stdout = stdout
	}
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

func (s *securityBackend) Set(key, value string) error {
	// -U updates in place when the entry exists
	stderr, err := s.run(nil, "add-generic-password", "-a", ServiceName, "-s", key, "-w", value, "-U")
	if err != nil {
		return fmt.Errorf("store %q in keychain: %s: %w", key, strings.TrimSpace(stderr), err)
	}
	return nil
}

func (s *securityBackend) Get(key string) (string, error) {
	var stdout bytes.Buffer
	stderr, err := s.run(&stdout, "find-generic-password", "-a", ServiceName, "-s", key, "-w")
	if err != nil {
		if notFound(stderr) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read %q from keychain: %s: %w", key, strings.TrimSpace(stderr), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (s *securityBackend) Delete(key string) error {
	stderr, err := s.run(nil, "delete-generic-password", "-a", ServiceName, "-s", key)
	if err != nil && !notFound(stderr) {
		return fmt.Errorf("delete %q from keychain: %s: %w", key, strings.TrimSpace(stderr), err)
	}
	return nil
}
