package router

import (
	"testing"

	apperrors "adw/cli/internal/errors"
	"adw/cli/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	heavyID = "anthropic/heavy"
	lightID = "anthropic/light"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	r, err := New(heavyID, lightID)
	require.NoError(t, err)
	return r
}

func TestRouteEveryTaskType(t *testing.T) {
	r := newTestRouter(t)
	want := map[model.TaskType]string{
		model.TaskExtractWorkflowInfo: lightID,
		model.TaskClassify:            lightID,
		model.TaskPlan:                lightID,
		model.TaskGenerateBranchName:  lightID,
		model.TaskCreateCommitMessage: lightID,
		model.TaskCreatePRMetadata:    lightID,
		model.TaskImplement:           heavyID,
		model.TaskFixFailingTests:     heavyID,
		model.TaskReview:              heavyID,
	}
	require.Len(t, want, len(model.AllTaskTypes()))
	for tt, id := range want {
		t.Run(string(tt), func(t *testing.T) {
			got, err := r.Route(tt)
			require.NoError(t, err)
			assert.Equal(t, id, got)
		})
	}
}

func TestRouteUnknownTaskType(t *testing.T) {
	r := newTestRouter(t)
	_, err := r.Route(model.TaskType("deploy"))
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.InvalidTaskType))

	_, err = TierOf("")
	assert.True(t, apperrors.IsKind(err, apperrors.InvalidTaskType))
}

func TestResolveOverrideWins(t *testing.T) {
	r := newTestRouter(t)

	p, err := model.NewPrompt("implement it", model.TaskImplement, "")
	require.NoError(t, err)
	got, err := r.Resolve(p)
	require.NoError(t, err)
	assert.Equal(t, heavyID, got)

	p, err = model.NewPrompt("classify", model.TaskClassify, "openai/gpt-x")
	require.NoError(t, err)
	got, err = r.Resolve(p)
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-x", got)
}

func TestNewRequiresBothModels(t *testing.T) {
	_, err := New("", lightID)
	assert.Error(t, err)
	_, err = New(heavyID, "  ")
	assert.Error(t, err)
}

func TestTable(t *testing.T) {
	table := newTestRouter(t).Table()
	require.Len(t, table, len(model.AllTaskTypes()))
	assert.Equal(t, model.TaskExtractWorkflowInfo, table[0].TaskType)
	assert.Equal(t, Lightweight, table[0].Tier)
	assert.Equal(t, model.TaskReview, table[len(table)-1].TaskType)
	assert.Equal(t, heavyID, table[len(table)-1].Model)
}
