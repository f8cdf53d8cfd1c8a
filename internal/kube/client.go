// Package kube talks to the Kubernetes API server over plain REST and
// adapts it to the engine's executor contract.
package kube

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"autoops/engine/pkg/logger"
)

const defaultRequestTimeout = 30 * time.Second

// Config configures the API server client.
type Config struct {
	BaseURL     string
	BearerToken string
	Namespace   string
	InsecureTLS bool
	Timeout     time.Duration
}

// Client is a thin REST client for the API server. It holds a shared
// fasthttp connection pool.
type Client struct {
	cfg  Config
	http *fasthttp.Client
}

// NewClient creates a client for the configured API server.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRequestTimeout
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "default"
	}
	return &Client{
		cfg: cfg,
		http: &fasthttp.Client{
			MaxConnsPerHost:     100,
			MaxIdleConnDuration: 90 * time.Second,
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			TLSConfig:           &tls.Config{InsecureSkipVerify: cfg.InsecureTLS},
		},
	}
}

// do performs one request against the API server and returns the status
// code and a copy of the response body. The context deadline is honored
// when it is tighter than the client timeout.
func (c *Client) do(ctx context.Context, method, path string, contentType string, body []byte) (int, []byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI(c.cfg.BaseURL + path)
	req.Header.Set("Accept", "application/json")
	if c.cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	}
	if len(body) > 0 {
		req.Header.SetContentType(contentType)
		req.SetBody(body)
	}

	deadline := time.Now().Add(c.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	logger.Debug("kube: %s %s", method, path)
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	// resp.Body() references the response's internal buffer.
	out := make([]byte, len(resp.Body()))
	copy(out, resp.Body())
	return resp.StatusCode(), out, nil
}

// API group prefixes per resource type.
var resourceAPIs = map[string]string{
	"pod":                     "/api/v1",
	"service":                 "/api/v1",
	"configmap":               "/api/v1",
	"secret":                  "/api/v1",
	"namespace":               "/api/v1",
	"node":                    "/api/v1",
	"persistentvolumeclaim":   "/api/v1",
	"deployment":              "/apis/apps/v1",
	"statefulset":             "/apis/apps/v1",
	"ingress":                 "/apis/networking.k8s.io/v1",
	"horizontalpodautoscaler": "/apis/autoscaling/v2",
}

var resourcePlurals = map[string]string{
	"ingress": "ingresses",
}

var clusterScoped = map[string]bool{
	"namespace": true,
	"node":      true,
}

// resourcePath builds the collection path for a resource type, or the
// object path when name is non-empty. An empty namespace falls back to
// the client default for namespaced resources.
func (c *Client) resourcePath(resourceType, namespace, name string) (string, error) {
	prefix, ok := resourceAPIs[resourceType]
	if !ok {
		return "", fmt.Errorf("unsupported resource type: %s", resourceType)
	}

	plural, ok := resourcePlurals[resourceType]
	if !ok {
		plural = resourceType + "s"
	}

	path := prefix
	if !clusterScoped[resourceType] {
		if namespace == "" {
			namespace = c.cfg.Namespace
		}
		path += "/namespaces/" + namespace
	}
	path += "/" + plural
	if name != "" {
		path += "/" + name
	}
	return path, nil
}
