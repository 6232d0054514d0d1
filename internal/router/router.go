// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package router maps task categories to model identifiers.
//
// Conversational and classification work goes to the lightweight tier;
// code generation, test fixing and review go to the heavy-lifting tier.
// Centralizing the policy here keeps model identifiers out of callers.
package router

import (
	"errors"
	"strings"

	apperrors "adw/cli/internal/errors"
	"adw/cli/internal/model"
)

// Tier is a routing tier.
type Tier string

const (
	Lightweight  Tier = "lightweight"
	HeavyLifting Tier = "heavy_lifting"
)

var tiers = map[model.TaskType]Tier{
	model.TaskExtractWorkflowInfo: Lightweight,
	model.TaskClassify:            Lightweight,
	model.TaskPlan:                Lightweight,
	model.TaskGenerateBranchName:  Lightweight,
	model.TaskCreateCommitMessage: Lightweight,
	model.TaskCreatePRMetadata:    Lightweight,
	model.TaskImplement:           HeavyLifting,
	model.TaskFixFailingTests:     HeavyLifting,
	model.TaskReview:              HeavyLifting,
}

// TierOf returns the routing tier of t, failing for task types outside the closed set.
func TierOf(t model.TaskType) (Tier, error) {
	tier, ok := tiers[t]
	if !ok {
		_, err := model.ParseTaskType(string(t))
		if err == nil {
			err = apperrors.New(apperrors.InvalidTaskType, "task type has no routing tier: "+string(t))
		}
		return "", err
	}
	return tier, nil
}

// Router resolves model identifiers for the two tiers.
type Router struct {
	heavy string
	light string
}

// New builds a Router. Both model identifiers are required.
func New(heavyLifting, lightweight string) (*Router, error) {
	heavyLifting = strings.TrimSpace(heavyLifting)
	lightweight = strings.TrimSpace(lightweight)
	if heavyLifting == "" || lightweight == "" {
		return nil, errors.New("router: both heavy-lifting and lightweight model ids are required")
	}
	return &Router{heavy: heavyLifting, light: lightweight}, nil
}

// Route returns the model id for task type t.
func (r *Router) Route(t model.TaskType) (string, error) {
	tier, err := TierOf(t)
	if err != nil {
		return "", err
	}
	return r.ModelFor(tier), nil
}

// Resolve returns the model id for a prompt. An explicit override always wins.
func (r *Router) Resolve(p model.Prompt) (string, error) {
	if p.HasModelOverride() {
		return p.ModelOverride(), nil
	}
	return r.Route(p.TaskType())
}

// ModelFor returns the configured model id for a tier.
func (r *Router) ModelFor(tier Tier) string {
	if tier == HeavyLifting {
		return r.heavy
	}
	return r.light
}

// Table returns the routing decision for every task type, in declaration order.
func (r *Router) Table() []Entry {
	types := model.AllTaskTypes()
	out := make([]Entry, 0, len(types))
	for _, t := range types {
		tier := tiers[t]
		out = append(out, Entry{TaskType: t, Tier: tier, Model: r.ModelFor(tier)})
	}
	return out
}

// Entry is one row of the routing table.
type Entry struct {
	TaskType model.TaskType
	Tier     Tier
	Model    string
}
