package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"admin-service/internal/config"
	"admin-service/internal/models"
	"admin-service/internal/util"
)

// ESClient indexes activity entries for full-text search over the audit
// trail. Indexing is best-effort; the Scylla log remains canonical.
type ESClient struct {
	Client *elasticsearch.Client
	config *config.ElasticsearchConfig
}

func NewElasticsearchClient(cfg *config.Config) (*ESClient, error) {
	esConfig := cfg.Elasticsearch

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esConfig.URL},
		Username:  esConfig.Username,
		Password:  esConfig.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	esClient := &ESClient{Client: client, config: &esConfig}

	if err := esClient.HealthCheck(context.Background()); err != nil {
		return nil, fmt.Errorf("elasticsearch connection test failed: %w", err)
	}

	util.Info("Elasticsearch client initialized",
		util.String("url", esConfig.URL),
		util.String("index", esConfig.ActivityIndex))

	return esClient, nil
}

// IndexActivity stores one audit entry as a document keyed by its entry ID.
func (e *ESClient) IndexActivity(ctx context.Context, entry *models.ActivityEntry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal activity entry: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      e.config.ActivityIndex,
		DocumentID: entry.EntryID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, e.Client)
	if err != nil {
		return fmt.Errorf("failed to index activity entry: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch index error: %s", res.Status())
	}
	return nil
}

// SearchActivity runs a match query over action and details for one admin.
func (e *ESClient) SearchActivity(ctx context.Context, adminID, query string, size int) ([]*models.ActivityEntry, error) {
	if size <= 0 {
		size = 50
	}

	var body bytes.Buffer
	search := map[string]interface{}{
		"size": size,
		"sort": []map[string]interface{}{
			{"timestamp": map[string]string{"order": "desc"}},
		},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{
					{"term": map[string]string{"admin_id": adminID}},
				},
				"must": []map[string]interface{}{
					{"multi_match": map[string]interface{}{
						"query":  query,
						"fields": []string{"action", "details.*"},
					}},
				},
			},
		},
	}
	if err := json.NewEncoder(&body).Encode(search); err != nil {
		return nil, fmt.Errorf("failed to encode search query: %w", err)
	}

	res, err := e.Client.Search(
		e.Client.Search.WithContext(ctx),
		e.Client.Search.WithIndex(e.config.ActivityIndex),
		e.Client.Search.WithBody(&body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search activity: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search error: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source models.ActivityEntry `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	entries := make([]*models.ActivityEntry, 0, len(parsed.Hits.Hits))
	for i := range parsed.Hits.Hits {
		entry := parsed.Hits.Hits[i].Source
		entries = append(entries, &entry)
	}
	return entries, nil
}

func (e *ESClient) HealthCheck(ctx context.Context) error {
	res, err := e.Client.Info(e.Client.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch info failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch unhealthy: %s", res.Status())
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return nil
}
