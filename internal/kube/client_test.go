package kube

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourcePath(t *testing.T) {
	c := NewClient(Config{BaseURL: "https://api", Namespace: "default"})

	cases := []struct {
		resourceType string
		namespace    string
		name         string
		want         string
	}{
		{"pod", "web", "web-0", "/api/v1/namespaces/web/pods/web-0"},
		{"pod", "web", "", "/api/v1/namespaces/web/pods"},
		{"deployment", "web", "nginx", "/apis/apps/v1/namespaces/web/deployments/nginx"},
		{"statefulset", "db", "pg", "/apis/apps/v1/namespaces/db/statefulsets/pg"},
		{"ingress", "web", "edge", "/apis/networking.k8s.io/v1/namespaces/web/ingresses/edge"},
		{"horizontalpodautoscaler", "web", "hpa", "/apis/autoscaling/v2/namespaces/web/horizontalpodautoscalers/hpa"},
		{"namespace", "", "web", "/api/v1/namespaces/web"},
		{"node", "", "node-1", "/api/v1/nodes/node-1"},
		{"configmap", "", "cfg", "/api/v1/namespaces/default/configmaps/cfg"},
	}

	for _, tc := range cases {
		got, err := c.resourcePath(tc.resourceType, tc.namespace, tc.name)
		require.NoError(t, err, tc.resourceType)
		assert.Equal(t, tc.want, got)
	}
}

func TestResourcePathUnsupportedType(t *testing.T) {
	c := NewClient(Config{BaseURL: "https://api"})

	_, err := c.resourcePath("spaceship", "default", "x")
	assert.Error(t, err)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{BaseURL: "https://api"})
	assert.Equal(t, "default", c.cfg.Namespace)
	assert.Equal(t, defaultRequestTimeout, c.cfg.Timeout)
}
