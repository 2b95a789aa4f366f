// Package audit mirrors the canonical activity log into the analytics
// pipeline: a Kafka topic, a ClickHouse table, and an Elasticsearch index.
// Fan-out is best-effort; a sink failure is logged and never fails the
// operation that produced the entry.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"admin-service/internal/client"
	"admin-service/internal/models"
	"admin-service/internal/util"
)

const fanoutTimeout = 5 * time.Second

// Publisher fans activity entries out to whichever sinks are configured.
// Any of the sinks may be nil.
type Publisher struct {
	producer *client.KafkaProducer
	sink     *client.ClickHouseClient
	search   *client.ESClient
}

func NewPublisher(producer *client.KafkaProducer, sink *client.ClickHouseClient, search *client.ESClient) *Publisher {
	return &Publisher{
		producer: producer,
		sink:     sink,
		search:   search,
	}
}

// Publish mirrors one entry to all configured sinks in parallel. Failures are
// logged per sink; the call itself never reports an error.
func (p *Publisher) Publish(entry *models.ActivityEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), fanoutTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	if p.producer != nil {
		g.Go(func() error {
			value, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("kafka: %w", err)
			}
			key := []byte(fmt.Sprintf("%d", entry.EventBucket))
			if err := p.producer.Publish(ctx, key, value); err != nil {
				return fmt.Errorf("kafka: %w", err)
			}
			return nil
		})
	}

	if p.sink != nil {
		g.Go(func() error {
			details, err := entry.EncodeDetails()
			if err != nil {
				return fmt.Errorf("clickhouse: %w", err)
			}
			if err := p.sink.InsertActivity(ctx, entry, details); err != nil {
				return fmt.Errorf("clickhouse: %w", err)
			}
			return nil
		})
	}

	if p.search != nil {
		g.Go(func() error {
			if err := p.search.IndexActivity(ctx, entry); err != nil {
				return fmt.Errorf("elasticsearch: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		util.Warn("Audit fan-out incomplete",
			util.String("admin_id", entry.AdminID),
			util.String("action", entry.Action),
			util.ErrorField(err))
	}
}

// SearchEnabled reports whether full-text activity search is available.
func (p *Publisher) SearchEnabled() bool {
	return p.search != nil
}

// Search delegates to the Elasticsearch index.
func (p *Publisher) Search(ctx context.Context, adminID, query string, size int) ([]*models.ActivityEntry, error) {
	if p.search == nil {
		return nil, fmt.Errorf("activity search is not configured")
	}
	return p.search.SearchActivity(ctx, adminID, query, size)
}
