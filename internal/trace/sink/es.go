package sink

import (
	"context"
	"fmt"

	"github.com/DjordjeVuckovic/qstone/internal/trace"
	"github.com/elastic/go-elasticsearch/v8"
)

const DefaultIndexName = "qstone-profile"

type ClientConfig struct {
	Addresses []string
	IndexName string
	Username  string
	Password  string
}

// EsSink indexes records by ID.
type EsSink struct {
	client    *elasticsearch.TypedClient
	indexName string
}

func newClient(config ClientConfig) (*elasticsearch.TypedClient, error) {
	cfg := elasticsearch.Config{
		Addresses: config.Addresses,
	}

	if config.Username != "" && config.Password != "" {
		cfg.Username = config.Username
		cfg.Password = config.Password
	}

	return elasticsearch.NewTypedClient(cfg)
}

func NewEsSink(config ClientConfig) (*EsSink, error) {
	client, err := newClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	index := config.IndexName
	if index == "" {
		index = DefaultIndexName
	}
	return &EsSink{client: client, indexName: index}, nil
}

func (s *EsSink) Write(ctx context.Context, rec trace.Record) error {
	if _, err := s.client.Index(s.indexName).Id(rec.ID.String()).Document(rec).Do(ctx); err != nil {
		return fmt.Errorf("failed to index profile record: %w", err)
	}
	return nil
}

func (s *EsSink) Close() error { return nil }
