// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "adw/cli/internal/errors"

	"github.com/pterm/pterm"
)

// FormatDispatchError formats a terminal dispatch error for the terminal,
// choosing the explanation by error kind. Retryable kinds reaching this point
// have already exhausted the retry budget.
func FormatDispatchError(err error) string {
	if err == nil {
		return ""
	}
	kind := apperrors.KindOf(err)

	var builder strings.Builder
	builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint(title(kind)))
	builder.WriteString("\n\n")

	switch kind {
	case apperrors.Connection:
		builder.WriteString("The agent server could not be reached.\n")
		builder.WriteString("  • Check that the server is running ('adw health')\n")
		builder.WriteString("  • Check server_url in config.yaml or ADW_SERVER_URL\n")
	case apperrors.Timeout:
		builder.WriteString("The agent server did not answer within the timeout on any attempt.\n")
		builder.WriteString("  • Long tasks may need a larger --timeout\n")
	case apperrors.Server:
		builder.WriteString("The agent server kept returning errors.\n")
		builder.WriteString("  • Inspect the server logs for the failing request\n")
	case apperrors.Authentication:
		builder.WriteString("The agent server rejected our credentials.\n")
		builder.WriteString("  • Run 'adw login' to store a new server token\n")
		builder.WriteString("  • Or set ADW_SERVER_TOKEN\n")
	case apperrors.ClientRequest:
		builder.WriteString("The agent server rejected the request.\n")
		builder.WriteString("  • Check the model identifier and session\n")
	case apperrors.ResponseDecode:
		builder.WriteString("The agent server replied with something that is not a finished message.\n")
		builder.WriteString("  • The raw body was written to the interaction log\n")
	case apperrors.InvalidTaskType:
		builder.WriteString("The task type is not one the router knows.\n")
		builder.WriteString("  • Run 'adw models' to list task types\n")
	case apperrors.Canceled:
		builder.WriteString("The dispatch was interrupted before it finished.\n")
	default:
		builder.WriteString("The dispatch failed.\n")
	}

	var e *apperrors.E
	if errors.As(err, &e) && e.Attempts > 0 {
		builder.WriteString(pterm.NewStyle(pterm.FgGray).Sprintf("\nGave up after %d attempt(s) in %s.\n", e.Attempts, e.Elapsed.Round(time.Millisecond)))
	}
	builder.WriteString("\n")
	builder.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(err.Error())))
	return builder.String()
}

func title(k apperrors.Kind) string {
	switch k {
	case apperrors.Connection:
		return "Agent Server Unreachable"
	case apperrors.Timeout:
		return "Agent Timed Out"
	case apperrors.Server:
		return "Agent Server Error"
	case apperrors.Authentication:
		return "Authentication Failed"
	case apperrors.ClientRequest:
		return "Request Rejected"
	case apperrors.ResponseDecode:
		return "Unreadable Response"
	case apperrors.InvalidTaskType:
		return "Unknown Task Type"
	case apperrors.Canceled:
		return "Canceled"
	}
	return "Dispatch Failed"
}

// PresentDispatchError displays a formatted dispatch error.
func PresentDispatchError(err error) {
	fmt.Println()
	fmt.Println(FormatDispatchError(err))
	fmt.Println()
}
