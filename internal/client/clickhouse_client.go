package client

import (
	"context"
	"fmt"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"admin-service/internal/config"
	"admin-service/internal/models"
	"admin-service/internal/util"
)

// ClickHouseClient is the analytics sink for the activity audit trail. The
// durable log in Scylla stays the source of truth; rows here feed dashboards
// and long-range forensics.
type ClickHouseClient struct {
	conn   driver.Conn
	config *config.ClickhouseConfig
}

func NewClickHouseClient(cfg *config.Config) (*ClickHouseClient, error) {
	chConfig := cfg.Clickhouse

	opts := &ch.Options{
		Addr: []string{chConfig.URL},
		Auth: ch.Auth{
			Username: chConfig.Username,
			Password: chConfig.Password,
			Database: chConfig.Database,
		},
		DialTimeout:      10 * time.Second,
		MaxOpenConns:     10,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: ch.ConnOpenInOrder,
	}

	conn, err := ch.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse connection: %w", err)
	}

	util.Info("ClickHouse client initialized",
		util.String("addr", chConfig.URL),
		util.String("database", chConfig.Database))

	return &ClickHouseClient{conn: conn, config: &chConfig}, nil
}

// InsertActivity appends one audit row. Details arrive pre-serialized.
func (c *ClickHouseClient) InsertActivity(ctx context.Context, entry *models.ActivityEntry, details string) error {
	batch, err := c.conn.PrepareBatch(ctx, `
		INSERT INTO admin_activity (event_bucket, admin_id, entry_id, action, ts, details)`)
	if err != nil {
		return fmt.Errorf("failed to prepare activity batch: %w", err)
	}

	if err := batch.Append(
		uint16(entry.EventBucket),
		entry.AdminID,
		entry.EntryID,
		entry.Action,
		entry.Timestamp,
		details,
	); err != nil {
		return fmt.Errorf("failed to append activity row: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send activity batch: %w", err)
	}
	return nil
}

func (c *ClickHouseClient) HealthCheck(ctx context.Context) error {
	if err := c.conn.Ping(ctx); err != nil {
		return fmt.Errorf("clickhouse ping failed: %w", err)
	}
	return nil
}

func (c *ClickHouseClient) Close() error {
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Close(); err != nil {
		util.Error("failed to close clickhouse client", util.ErrorField(err))
		return err
	}
	util.Info("ClickHouse client closed")
	return nil
}
