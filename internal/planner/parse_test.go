package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoops/engine/pkg/types"
)

const sampleResponse = `{
	"description": "Deploy nginx with a service",
	"operations": [
		{
			"action": "CREATE",
			"resource_type": "deployment",
			"resource_name": "nginx",
			"namespace": "web",
			"manifest": {"apiVersion": "apps/v1", "kind": "Deployment"}
		},
		{
			"action": "SCALE",
			"resource_type": "deployment",
			"resource_name": "nginx",
			"parameters": {"replicas": 3}
		}
	],
	"estimated_duration": 90
}`

func TestParsePlanResponse(t *testing.T) {
	plan, err := parsePlanResponse(sampleResponse)
	require.NoError(t, err)

	assert.Equal(t, "Deploy nginx with a service", plan.Description)
	assert.Equal(t, 90*time.Second, plan.EstimatedDuration)
	assert.NotEmpty(t, plan.ID)
	require.Len(t, plan.Operations, 2)

	create := plan.Operations[0]
	assert.Equal(t, types.ActionCreate, create.Action)
	assert.Equal(t, "deployment", create.ResourceType)
	assert.Equal(t, "nginx", create.ResourceName)
	assert.Equal(t, "web", create.Namespace)
	assert.Equal(t, "Deployment", create.Manifest["kind"])

	scale := plan.Operations[1]
	assert.Equal(t, types.ActionScale, scale.Action)
	assert.Equal(t, "default", scale.Namespace, "namespace defaults when omitted")
	assert.Equal(t, "3", scale.Parameters["replicas"], "numeric parameters become strings")
}

func TestParsePlanResponseWithCodeFence(t *testing.T) {
	fenced := "```json\n" + sampleResponse + "\n```"
	plan, err := parsePlanResponse(fenced)
	require.NoError(t, err)
	assert.Len(t, plan.Operations, 2)

	bare := "```\n" + sampleResponse + "\n```"
	plan, err = parsePlanResponse(bare)
	require.NoError(t, err)
	assert.Len(t, plan.Operations, 2)
}

func TestParsePlanResponseEmptyOperations(t *testing.T) {
	plan, err := parsePlanResponse(`{"description": "Nothing to do", "operations": []}`)
	require.NoError(t, err)
	assert.Empty(t, plan.Operations)
	assert.Equal(t, time.Duration(0), plan.EstimatedDuration)
}

func TestParsePlanResponseRejectsGarbage(t *testing.T) {
	cases := map[string]string{
		"not json":              `deploy nginx please`,
		"not an object":         `[1, 2, 3]`,
		"missing description":   `{"operations": []}`,
		"missing operations":    `{"description": "x"}`,
		"bad operation shape":   `{"description": "x", "operations": ["nope"]}`,
		"unknown action":        `{"description": "x", "operations": [{"action": "EXPLODE", "resource_type": "pod"}]}`,
		"unknown resource type": `{"description": "x", "operations": [{"action": "GET", "resource_type": "spaceship"}]}`,
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parsePlanResponse(input)
			assert.Error(t, err)
		})
	}
}
