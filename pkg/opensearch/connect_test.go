package opensearch_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/apimgmt/pkg/opensearch"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func respond(status int, body string) roundTripFunc {
	return func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    r,
		}, nil
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	cfg := opensearch.Config{Addresses: []string{"http://search.local:9200"}, DisableRetry: true}

	t.Run("healthy cluster", func(t *testing.T) {
		t.Parallel()
		client, err := opensearch.New(context.Background(), cfg,
			opensearch.WithTransport(respond(http.StatusOK, `{"version":{"number":"2.11.0"}}`)))
		require.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("error status", func(t *testing.T) {
		t.Parallel()
		client, err := opensearch.New(context.Background(), cfg,
			opensearch.WithTransport(respond(http.StatusServiceUnavailable, `{}`)))
		require.ErrorIs(t, err, opensearch.ErrHealthcheckFailed)
		assert.Nil(t, client)
	})

	t.Run("transport failure", func(t *testing.T) {
		t.Parallel()
		client, err := opensearch.New(context.Background(), cfg,
			opensearch.WithTransport(roundTripFunc(func(*http.Request) (*http.Response, error) {
				return nil, io.ErrUnexpectedEOF
			})))
		require.ErrorIs(t, err, opensearch.ErrHealthcheckFailed)
		assert.Nil(t, client)
	})
}
