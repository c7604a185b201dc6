// Package opensearch builds an OpenSearch client from environment
// configuration and checks that the cluster answers.
package opensearch

import (
	"context"
	"errors"
	"net/http"

	"github.com/opensearch-project/opensearch-go/v2"
)

// Option customizes the underlying client configuration.
type Option func(*opensearch.Config)

// WithTransport replaces the HTTP transport, mostly for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *opensearch.Config) {
		c.Transport = rt
	}
}

// NewClient creates a client without contacting the cluster.
func NewClient(cfg Config, opts ...Option) (*opensearch.Client, error) {
	ocfg := opensearch.Config{
		Addresses:    cfg.Addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		MaxRetries:   cfg.MaxRetries,
		DisableRetry: cfg.DisableRetry,
	}
	for _, opt := range opts {
		opt(&ocfg)
	}

	client, err := opensearch.NewClient(ocfg)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return client, nil
}

// New creates a client and verifies the cluster is reachable.
func New(ctx context.Context, cfg Config, opts ...Option) (*opensearch.Client, error) {
	client, err := NewClient(cfg, opts...)
	if err != nil {
		return nil, err
	}

	if err := Healthcheck(client)(ctx); err != nil {
		return nil, err
	}

	return client, nil
}
