package parser

import (
	"sort"

	"adw/cli/internal/model"
)

// ToolExecution pairs a tool invocation with its result.
type ToolExecution struct {
	Tool  string         `json:"tool,omitempty"`
	Input map[string]any `json:"input,omitempty"`
	// Output is the paired result's output; empty when Completed is false.
	Output string `json:"output,omitempty"`
	// Completed is false for an invocation with no later result.
	Completed bool `json:"completed"`
	// Orphan marks a result that had no earlier unmatched invocation.
	Orphan bool `json:"orphan,omitempty"`
}

// ToolActivity summarizes the tool parts of a reply.
type ToolActivity struct {
	InvocationCount int             `json:"tool_invocation_count"`
	ResultCount     int             `json:"tool_result_count"`
	UniqueTools     []string        `json:"unique_tools"`
	Executions      []ToolExecution `json:"executions"`
}

// Pending returns the invocations that never received a result.
func (a ToolActivity) Pending() []ToolExecution {
	var out []ToolExecution
	for _, e := range a.Executions {
		if !e.Completed {
			out = append(out, e)
		}
	}
	return out
}

// ExtractToolActivity counts tool_use and tool_result parts and pairs each
// result with the earliest earlier invocation that is still unmatched.
// Executions keep the order in which invocations (or orphan results) appear.
func ExtractToolActivity(parts []model.Part) ToolActivity {
	act := ToolActivity{UniqueTools: []string{}, Executions: []ToolExecution{}}
	seen := map[string]struct{}{}
	var open []int // indexes into act.Executions awaiting a result

	for _, p := range parts {
		switch p.Type {
		case model.PartToolUse:
			act.InvocationCount++
			if _, ok := seen[p.Tool]; !ok && p.Tool != "" {
				seen[p.Tool] = struct{}{}
				act.UniqueTools = append(act.UniqueTools, p.Tool)
			}
			act.Executions = append(act.Executions, ToolExecution{Tool: p.Tool, Input: p.Input})
			open = append(open, len(act.Executions)-1)
		case model.PartToolResult:
			act.ResultCount++
			if len(open) == 0 {
				act.Executions = append(act.Executions, ToolExecution{Output: p.Output, Completed: true, Orphan: true})
				continue
			}
			i := open[0]
			open = open[1:]
			act.Executions[i].Output = p.Output
			act.Executions[i].Completed = true
		}
	}
	sort.Strings(act.UniqueTools)
	return act
}
