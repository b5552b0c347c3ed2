// analytics/repository.go
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const indexName = "portal-analytics"

type Repository interface {
	Index(ctx context.Context, event string, props map[string]any) error
}

type ElasticsearchRepository struct {
	esClient *elasticsearch.Client
}

// NewElasticsearchRepository creates a repository against the given
// Elasticsearch URL.
func NewElasticsearchRepository(esURL string) (*ElasticsearchRepository, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}
	esClient, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ElasticsearchRepository{esClient: esClient}, nil
}

type record struct {
	Event     string         `json:"event"`
	Props     map[string]any `json:"props,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Index writes one analytics record.
func (r *ElasticsearchRepository) Index(ctx context.Context, event string, props map[string]any) error {
	now := time.Now().UTC()
	data, err := json.Marshal(record{Event: event, Props: props, Timestamp: now})
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: fmt.Sprintf("%d-%s", now.UnixNano(), event),
		Body:       strings.NewReader(string(data)),
	}

	res, err := req.Do(ctx, r.esClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to index analytics record: %s", res.String())
	}
	return nil
}
