// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PartType tags one unit of a structured reply.
type PartType string

const (
	PartText       PartType = "text"
	PartToolUse    PartType = "tool_use"
	PartToolResult PartType = "tool_result"
	PartCodeBlock  PartType = "code_block"
)

// Part is a tagged union. Only the fields meaningful for Type are populated:
//
//	text         Text
//	tool_use     Tool, Input
//	tool_result  Output
//	code_block   Language, Code
//
// Use the constructors below; the JSON encoding writes only the tag's fields.
type Part struct {
	Type     PartType
	Text     string
	Tool     string
	Input    map[string]any
	Output   string
	Language string
	Code     string
}

func TextPart(text string) Part { return Part{Type: PartText, Text: text} }

func ToolUsePart(tool string, input map[string]any) Part {
	return Part{Type: PartToolUse, Tool: tool, Input: cloneInput(input)}
}

func ToolResultPart(output string) Part { return Part{Type: PartToolResult, Output: output} }

func CodeBlockPart(language, code string) Part {
	return Part{Type: PartCodeBlock, Language: language, Code: code}
}

// Validate checks that no field outside the tag's set is populated.
func (p Part) Validate() error {
	stray := func(name string) error {
		return fmt.Errorf("part %q carries field %q", p.Type, name)
	}
	switch p.Type {
	case PartText:
		if p.Tool != "" || p.Input != nil {
			return stray("tool")
		}
		if p.Output != "" {
			return stray("output")
		}
		if p.Language != "" || p.Code != "" {
			return stray("code")
		}
	case PartToolUse:
		if p.Tool == "" {
			return fmt.Errorf("tool_use part has no tool name")
		}
		if p.Text != "" || p.Output != "" || p.Language != "" || p.Code != "" {
			return stray("text/output/code")
		}
	case PartToolResult:
		if p.Text != "" || p.Tool != "" || p.Input != nil || p.Language != "" || p.Code != "" {
			return stray("text/tool/code")
		}
	case PartCodeBlock:
		if p.Text != "" || p.Tool != "" || p.Input != nil || p.Output != "" {
			return stray("text/tool/output")
		}
	default:
		return fmt.Errorf("unknown part type %q", p.Type)
	}
	return nil
}

// MarshalJSON encodes exactly the fields that belong to the part's tag.
func (p Part) MarshalJSON() ([]byte, error) {
	switch p.Type {
	case PartText:
		return json.Marshal(struct {
			Type PartType `json:"type"`
			Text string   `json:"text"`
		}{p.Type, p.Text})
	case PartToolUse:
		input := p.Input
		if input == nil {
			input = map[string]any{}
		}
		return json.Marshal(struct {
			Type  PartType       `json:"type"`
			Tool  string         `json:"tool"`
			Input map[string]any `json:"input"`
		}{p.Type, p.Tool, input})
	case PartToolResult:
		return json.Marshal(struct {
			Type   PartType `json:"type"`
			Output string   `json:"output"`
		}{p.Type, p.Output})
	case PartCodeBlock:
		return json.Marshal(struct {
			Type     PartType `json:"type"`
			Language string   `json:"language"`
			Code     string   `json:"code"`
		}{p.Type, p.Language, p.Code})
	}
	return nil, fmt.Errorf("cannot encode part with type %q", p.Type)
}

// wirePart is the liberal shape accepted from the server. Besides the four
// tagged forms it understands the server's native tool part, whose input and
// output live under "state".
type wirePart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text"`
	Tool     string          `json:"tool"`
	Input    map[string]any  `json:"input"`
	Output   json.RawMessage `json:"output"`
	Language string          `json:"language"`
	Code     string          `json:"code"`
	State    *wireToolState  `json:"state"`
}

type wireToolState struct {
	Status string          `json:"status"`
	Input  map[string]any  `json:"input"`
	Output json.RawMessage `json:"output"`
}

const (
	nativeToolType      = "tool"
	nativeToolCompleted = "completed"
	nativeToolError     = "error"
)

// toParts converts one wire part into zero or more tagged parts. Unknown
// types (reasoning, step markers, files) produce no parts.
func (w wirePart) toParts() []Part {
	switch PartType(w.Type) {
	case PartText:
		return []Part{TextPart(w.Text)}
	case PartToolUse:
		if w.Tool == "" {
			return nil
		}
		return []Part{ToolUsePart(w.Tool, w.Input)}
	case PartToolResult:
		return []Part{ToolResultPart(rawText(w.Output))}
	case PartCodeBlock:
		return []Part{CodeBlockPart(w.Language, w.Code)}
	}
	if w.Type == nativeToolType && w.Tool != "" {
		var input map[string]any
		if w.State != nil {
			input = w.State.Input
		}
		out := []Part{ToolUsePart(w.Tool, input)}
		if w.State != nil && (w.State.Status == nativeToolCompleted || w.State.Status == nativeToolError) {
			out = append(out, ToolResultPart(rawText(w.State.Output)))
		}
		return out
	}
	return nil
}

// rawText returns a JSON string's value, or the compact JSON text of any other value.
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func cloneInput(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// CloneParts returns a copy of parts whose slice and input maps are not shared.
func CloneParts(parts []Part) []Part {
	if parts == nil {
		return []Part{}
	}
	out := make([]Part, len(parts))
	for i, p := range parts {
		p.Input = cloneInput(p.Input)
		out[i] = p
	}
	return out
}
