// Package parser interprets the parts of an agent reply: the concatenated
// text, the tool invocations and their results, and a heuristic estimate of
// the changes the agent made.
//
// Every function here is pure and total. Metrics are advisory; an
// authoritative diff stat, when the caller has one, overrides them (see
// Reconcile).
package parser

import (
	"strings"

	"adw/cli/internal/model"
)

// ExtractText concatenates the text of every text part in order.
// Non-text parts are ignored; no parts yields "".
func ExtractText(parts []model.Part) string {
	var b strings.Builder
	for _, p := range parts {
		if p.Type == model.PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// ExtractCode returns the code blocks of a reply in order.
func ExtractCode(parts []model.Part) []model.Part {
	var out []model.Part
	for _, p := range parts {
		if p.Type == model.PartCodeBlock {
			out = append(out, p)
		}
	}
	return out
}
