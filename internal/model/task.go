// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package model defines the data exchanged with the agent server: prompts and
// their task categories, the tagged Part union, message envelopes, responses,
// and the derived change metrics.
//
// Values in this package are immutable once constructed. Prompt hides its
// fields behind accessors; Message and Response are returned by value-copy and
// callers must treat their slices as read-only.
package model

import (
	"fmt"
	"strings"

	apperrors "adw/cli/internal/errors"
)

// TaskType is a closed-set label describing the purpose of a prompt.
type TaskType string

const (
	TaskExtractWorkflowInfo TaskType = "extract_workflow_info"
	TaskClassify            TaskType = "classify"
	TaskPlan                TaskType = "plan"
	TaskGenerateBranchName  TaskType = "generate_branch_name"
	TaskCreateCommitMessage TaskType = "create_commit_message"
	TaskCreatePRMetadata    TaskType = "create_pr_metadata"
	TaskImplement           TaskType = "implement"
	TaskFixFailingTests     TaskType = "fix_failing_tests"
	TaskReview              TaskType = "review"
)

var allTaskTypes = []TaskType{
	TaskExtractWorkflowInfo,
	TaskClassify,
	TaskPlan,
	TaskGenerateBranchName,
	TaskCreateCommitMessage,
	TaskCreatePRMetadata,
	TaskImplement,
	TaskFixFailingTests,
	TaskReview,
}

// AllTaskTypes returns every task type in the closed set, in declaration order.
func AllTaskTypes() []TaskType {
	out := make([]TaskType, len(allTaskTypes))
	copy(out, allTaskTypes)
	return out
}

// Valid reports whether t belongs to the closed set.
func (t TaskType) Valid() bool {
	for _, known := range allTaskTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseTaskType converts s into a TaskType, failing for values outside the closed set.
func ParseTaskType(s string) (TaskType, error) {
	t := TaskType(strings.TrimSpace(s))
	if !t.Valid() {
		return "", invalidTaskType(s)
	}
	return t, nil
}

func invalidTaskType(s string) error {
	names := make([]string, len(allTaskTypes))
	for i, t := range allTaskTypes {
		names[i] = string(t)
	}
	e := apperrors.New(apperrors.InvalidTaskType, fmt.Sprintf("unknown task type %q", s))
	e.Detail = "expected one of: " + strings.Join(names, ", ")
	return e
}

// Prompt is an immutable request to the agent server.
type Prompt struct {
	text          string
	taskType      TaskType
	modelOverride string
}

// NewPrompt validates its inputs and builds a Prompt. An unknown task type is a
// construction error; it is never defaulted at dispatch time.
func NewPrompt(text string, taskType TaskType, modelOverride string) (Prompt, error) {
	if !taskType.Valid() {
		return Prompt{}, invalidTaskType(string(taskType))
	}
	if strings.TrimSpace(text) == "" {
		return Prompt{}, apperrors.New(apperrors.ClientRequest, "prompt text is empty")
	}
	return Prompt{
		text:          text,
		taskType:      taskType,
		modelOverride: strings.TrimSpace(modelOverride),
	}, nil
}

func (p Prompt) Text() string           { return p.text }
func (p Prompt) TaskType() TaskType     { return p.taskType }
func (p Prompt) ModelOverride() string  { return p.modelOverride }
func (p Prompt) HasModelOverride() bool { return p.modelOverride != "" }
