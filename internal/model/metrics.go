// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package model

// Metrics is a best-effort, non-authoritative estimate of the changes an agent
// made, derived from reply parts. Absence of evidence yields zero values.
type Metrics struct {
	FilesChanged        int      `json:"files_changed"`
	LinesAdded          int      `json:"lines_added"`
	LinesRemoved        int      `json:"lines_removed"`
	ToolInvocationCount int      `json:"tool_invocation_count"`
	UniqueTools         []string `json:"unique_tools"`
}

// IsZero reports whether no change and no tool activity was detected.
func (m Metrics) IsZero() bool {
	return m.FilesChanged == 0 && m.LinesAdded == 0 && m.LinesRemoved == 0 &&
		m.ToolInvocationCount == 0 && len(m.UniqueTools) == 0
}
