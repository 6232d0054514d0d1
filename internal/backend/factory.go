// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"adw/cli/internal/config"
)

// New creates the HTTP implementation of API for the given server.
// token may be empty for servers that do not require authentication.
func New(baseURL, token string, endpoints config.Endpoints, opts ...Option) API {
	return newHTTP(baseURL, token, endpoints, opts...)
}
