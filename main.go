// Package main is the entry point for the adw CLI.
// It dispatches prompts to a remote agent server and reports structured results.
package main

import (
	"adw/cli/cmd"
)

// main initializes and executes the command-line interface.
func main() {
	cmd.Execute()
}
