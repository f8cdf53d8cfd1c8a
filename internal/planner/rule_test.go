package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoops/engine/pkg/types"
)

func TestRulePlannerScale(t *testing.T) {
	p := NewRulePlanner("default")

	plan, err := p.Plan(context.Background(), "Scale nginx deployment to 5 replicas")
	require.NoError(t, err)
	require.Len(t, plan.Operations, 1)

	op := plan.Operations[0]
	assert.Equal(t, types.ActionScale, op.Action)
	assert.Equal(t, "deployment", op.ResourceType)
	assert.Equal(t, "nginx", op.ResourceName)
	assert.Equal(t, "5", op.Parameters["replicas"])
}

func TestRulePlannerDeploy(t *testing.T) {
	p := NewRulePlanner("web")

	plan, err := p.Plan(context.Background(), "Deploy nginx with 3 replicas")
	require.NoError(t, err)
	require.Len(t, plan.Operations, 1)

	op := plan.Operations[0]
	assert.Equal(t, types.ActionCreate, op.Action)
	assert.Equal(t, "deployment", op.ResourceType)
	assert.Equal(t, "nginx", op.ResourceName)
	assert.Equal(t, "web", op.Namespace)
	require.NotNil(t, op.Manifest)

	spec, ok := op.Manifest["spec"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3, spec["replicas"])
}

func TestRulePlannerDeployWithService(t *testing.T) {
	p := NewRulePlanner("default")

	plan, err := p.Plan(context.Background(), "Deploy nginx and expose it")
	require.NoError(t, err)
	require.Len(t, plan.Operations, 2)
	assert.Equal(t, "deployment", plan.Operations[0].ResourceType)
	assert.Equal(t, "service", plan.Operations[1].ResourceType)
}

func TestRulePlannerDelete(t *testing.T) {
	p := NewRulePlanner("default")

	plan, err := p.Plan(context.Background(), "Delete the api deployment")
	require.NoError(t, err)
	require.Len(t, plan.Operations, 1)
	assert.Equal(t, types.ActionDelete, plan.Operations[0].Action)
	assert.Equal(t, "api", plan.Operations[0].ResourceName)
}

func TestRulePlannerRestart(t *testing.T) {
	p := NewRulePlanner("default")

	plan, err := p.Plan(context.Background(), "Restart the worker deployment")
	require.NoError(t, err)
	require.Len(t, plan.Operations, 1)
	assert.Equal(t, types.ActionPatch, plan.Operations[0].Action)
	assert.NotEmpty(t, plan.Operations[0].Parameters["restarted_at"])
}

func TestRulePlannerList(t *testing.T) {
	p := NewRulePlanner("default")

	plan, err := p.Plan(context.Background(), "Show me the cluster status")
	require.NoError(t, err)
	require.Len(t, plan.Operations, 1)
	assert.Equal(t, types.ActionList, plan.Operations[0].Action)
	assert.Equal(t, "pod", plan.Operations[0].ResourceType)
}

func TestRulePlannerUnrecognizedRequest(t *testing.T) {
	p := NewRulePlanner("default")

	_, err := p.Plan(context.Background(), "make me a sandwich")
	require.Error(t, err)
	assert.False(t, types.IsTransient(err), "unplannable requests must fail fatally")
}
