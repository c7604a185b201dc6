package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/dmitrymomot/apimgmt/pkg/logger"
)

// Config names the indexes documents are written to.
type Config struct {
	IndexPrefix  string `env:"SEARCH_INDEX_PREFIX" envDefault:"apimgmt-"`
	DefaultIndex string `env:"SEARCH_DEFAULT_INDEX" envDefault:"documents"` // DefaultIndex receives payloads without a type.
	Refresh      bool   `env:"SEARCH_REFRESH" envDefault:"true"`
}

// IndexName returns the index a document of typ belongs to.
func (c Config) IndexName(typ string) string {
	typ = strings.ToLower(strings.TrimSpace(typ))
	if typ == "" {
		typ = c.DefaultIndex
	}
	return c.IndexPrefix + typ
}

// OpenSearchSink writes payloads to OpenSearch, one index per document type.
type OpenSearchSink struct {
	client *opensearch.Client
	cfg    Config
	logger *slog.Logger
}

type OpenSearchOption func(*OpenSearchSink)

func WithLogger(l *slog.Logger) OpenSearchOption {
	return func(s *OpenSearchSink) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewOpenSearchSink(client *opensearch.Client, cfg Config, opts ...OpenSearchOption) *OpenSearchSink {
	s := &OpenSearchSink{
		client: client,
		cfg:    cfg,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("search"))
	return s
}

func (s *OpenSearchSink) refresh() string {
	if s.cfg.Refresh {
		return "true"
	}
	return ""
}

func (s *OpenSearchSink) Ingest(ctx context.Context, p Payload) error {
	index := s.cfg.IndexName(p.Type)

	if p.Action == ActionDelete {
		res, err := opensearchapi.DeleteRequest{
			Index:      index,
			DocumentID: p.ID,
			Refresh:    s.refresh(),
		}.Do(ctx, s.client)
		if err != nil {
			return errors.Join(ErrIngestFailed, err)
		}
		defer drain(res.Body)

		if res.StatusCode == http.StatusNotFound {
			s.logger.DebugContext(ctx, "document already absent", slog.String("index", index), slog.String("id", p.ID))
			return nil
		}
		if res.IsError() {
			return fmt.Errorf("%w: delete %s/%s: %s", ErrIngestFailed, index, p.ID, res.Status())
		}
		return nil
	}

	doc := p.Document
	if doc == nil {
		doc = map[string]any{}
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Join(ErrIngestFailed, err)
	}

	res, err := opensearchapi.IndexRequest{
		Index:      index,
		DocumentID: p.ID,
		Body:       bytes.NewReader(body),
		Refresh:    s.refresh(),
	}.Do(ctx, s.client)
	if err != nil {
		return errors.Join(ErrIngestFailed, err)
	}
	defer drain(res.Body)

	if res.IsError() {
		return fmt.Errorf("%w: index %s/%s: %s", ErrIngestFailed, index, p.ID, res.Status())
	}
	return nil
}

func drain(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
