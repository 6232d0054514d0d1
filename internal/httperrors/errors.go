// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors classifies transport and HTTP status failures from the
// agent server and renders user-friendly explanations for them.
package httperrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	apperrors "adw/cli/internal/errors"

	"github.com/pterm/pterm"
)

// Classify maps a transport-level error (no HTTP response received) to an
// error kind. Anything that is not a timeout or a cancellation is treated as
// a connection failure.
func Classify(err error) apperrors.Kind {
	switch {
	case err == nil:
		return apperrors.Unknown
	case errors.Is(err, context.Canceled):
		return apperrors.Canceled
	case isTimeoutError(err):
		return apperrors.Timeout
	default:
		return apperrors.Connection
	}
}

// ClassifyStatus maps a non-2xx HTTP status to an error kind.
func ClassifyStatus(code int) apperrors.Kind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return apperrors.Authentication
	case code >= 400 && code < 500:
		return apperrors.ClientRequest
	case code >= 500:
		return apperrors.Server
	default:
		return apperrors.ResponseDecode
	}
}

// FormatNetworkError prints a troubleshooting hint for err and returns it
// wrapped for logging.
func FormatNetworkError(err error, context, serverURL string) error {
	if err == nil {
		return nil
	}
	displayErrorMessage(err, context, ExtractHostFromURL(serverURL))
	return fmt.Errorf("network error: %w", err)
}

func displayErrorMessage(err error, context, host string) {
	errStr := err.Error()

	if apperrors.IsKind(err, apperrors.Server) {
		showServerError(context)
		return
	}
	if isTimeoutError(err) {
		showTimeoutError(context)
		return
	}
	if isDNSError(err) {
		showDNSError(context, host)
		return
	}
	if isConnectionRefusedError(err) {
		showConnectionRefusedError(context, host)
		return
	}
	if isSSLError(err) {
		showSSLError(context)
		return
	}
	showGenericError(context, host, errStr)
}

// isTimeoutError checks if the error is a timeout error.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isConnectionRefusedError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

func isSSLError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") ||
		strings.Contains(errStr, "certificate") ||
		strings.Contains(errStr, "handshake")
}

func showTimeoutError(context string) {
	pterm.Printf("⏱️  Timed out while %s\n", context)
	pterm.Println()
	pterm.Println("The agent server took too long to respond. This could mean:")
	pterm.Println("  • The model is still working on a large task")
	pterm.Println("  • The server is under heavy load")
	pterm.Println()
	pterm.Println("Raise --timeout or the timeout settings in config.yaml if this keeps happening.")
	pterm.Println()
}

func showDNSError(context, host string) {
	pterm.Printf("🌐 Cannot resolve server address while %s\n", context)
	pterm.Println()
	pterm.Printf("Unable to look up %s. Please check:\n", host)
	pterm.Println("  • server_url in config.yaml or ADW_SERVER_URL")
	pterm.Println("  • DNS settings on this machine")
	pterm.Println()
}

func showConnectionRefusedError(context, host string) {
	pterm.Printf("🚫 Connection refused while %s\n", context)
	pterm.Println()
	pterm.Printf("Nothing is accepting connections at %s. This could mean:\n", host)
	pterm.Println("  • The agent server is not running")
	pterm.Println("  • Wrong server address or port")
	pterm.Println()
	pterm.Println("Start the server and run 'adw health' to check.")
	pterm.Println()
}

func showSSLError(context string) {
	pterm.Printf("🔒 Secure connection failed while %s\n", context)
	pterm.Println()
	pterm.Println("Cannot establish a secure HTTPS connection. This could mean:")
	pterm.Println("  • SSL/TLS certificate issue")
	pterm.Println("  • Network proxy interfering with HTTPS")
	pterm.Println("  • System clock is incorrect")
	pterm.Println()
}

func showServerError(context string) {
	pterm.Printf("⚠️  Server error while %s\n", context)
	pterm.Println()
	pterm.Println("The agent server kept failing after every retry.")
	pterm.Println("Check the server logs, then try again.")
	pterm.Println()
}

func showGenericError(context, host, errDetails string) {
	pterm.Printf("❌ Cannot reach the agent server at %s while %s\n", host, context)
	pterm.Println()
	if errDetails != "" {
		shortErr := errDetails
		if len(shortErr) > 100 {
			shortErr = shortErr[:100] + "..."
		}
		pterm.Debug.Printf("Technical details: %s\n", shortErr)
		pterm.Println()
	}
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "server"
	}
	return u.Host
}
