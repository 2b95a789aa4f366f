package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"admin-service/internal/config"
	"admin-service/internal/util"
)

// adminColumns is the shared column list for the admins and admins_by_id
// tables; both carry the full record so lookups by either key are a single
// partition read.
const adminColumns = `admin_id, email, password_digest, role, first_name, last_name,
	is_first_admin, is_password_changed, status, last_login,
	reset_token, reset_token_expiry, created_at, updated_at`

// PreparedStatements holds the statements the admin repository executes.
type PreparedStatements struct {
	InsertAdmin       *gocql.Query
	InsertAdminByID   *gocql.Query
	GetAdminByEmail   *gocql.Query
	GetAdminByID      *gocql.Query
	GetAdminIDByToken *gocql.Query
	CountAdmins       *gocql.Query
	ClaimBootstrap    *gocql.Query
	ReleaseBootstrap  *gocql.Query
	InsertActivity    *gocql.Query
	ListActivity      *gocql.Query
}

type ScyllaClient struct {
	Session  *gocql.Session
	config   *config.ScyllaConfig
	Prepared *PreparedStatements
}

func NewScyllaClient(cfg *config.Config) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla

	cluster := gocql.NewCluster(scyllaConfig.Nodes...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 2
	cluster.SocketKeepalive = 30 * time.Second
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        time.Second,
		Max:        10 * time.Second,
		NumRetries: 3,
	}

	if scyllaConfig.Username != "" && scyllaConfig.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: scyllaConfig.Username,
			Password: scyllaConfig.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{
		Session: session,
		config:  &scyllaConfig,
	}
	client.prepareStatements()

	util.Info("Scylla client initialized",
		util.Any("nodes", scyllaConfig.Nodes),
		util.String("keyspace", scyllaConfig.Keyspace))

	return client, nil
}

func (s *ScyllaClient) prepareStatements() {
	prepared := &PreparedStatements{}

	prepared.InsertAdmin = s.Session.Query(`
		INSERT INTO admins (` + adminColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	prepared.InsertAdminByID = s.Session.Query(`
		INSERT INTO admins_by_id (` + adminColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	prepared.GetAdminByEmail = s.Session.Query(`
		SELECT ` + adminColumns + ` FROM admins WHERE email = ?`)

	prepared.GetAdminByID = s.Session.Query(`
		SELECT ` + adminColumns + ` FROM admins_by_id WHERE admin_id = ?`)

	prepared.GetAdminIDByToken = s.Session.Query(`
		SELECT admin_id FROM admins_by_reset_token WHERE reset_token = ?`)

	prepared.CountAdmins = s.Session.Query(`
		SELECT admin_id FROM bootstrap_marker WHERE marker = 'first_admin'`)

	// Lightweight transaction: the persistence-layer guarantee that at most
	// one bootstrap account can ever be created.
	prepared.ClaimBootstrap = s.Session.Query(`
		INSERT INTO bootstrap_marker (marker, admin_id, claimed_at)
		VALUES ('first_admin', ?, ?) IF NOT EXISTS`)

	// Releases a claim only if it still belongs to the given admin, so a
	// failed account write cannot close bootstrap forever.
	prepared.ReleaseBootstrap = s.Session.Query(`
		DELETE FROM bootstrap_marker WHERE marker = 'first_admin' IF admin_id = ?`)

	prepared.InsertActivity = s.Session.Query(`
		INSERT INTO admin_activity (admin_id, entry_id, event_bucket, action, ts, details)
		VALUES (?, ?, ?, ?, ?, ?)`)

	prepared.ListActivity = s.Session.Query(`
		SELECT entry_id, event_bucket, action, ts, details
		FROM admin_activity WHERE admin_id = ? LIMIT ?`)

	s.Prepared = prepared
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
		util.Info("Scylla client closed")
	}
}

func (s *ScyllaClient) Batch(typ gocql.BatchType) *gocql.Batch {
	return s.Session.NewBatch(typ)
}

func (s *ScyllaClient) ExecuteBatch(batch *gocql.Batch) error {
	return s.Session.ExecuteBatch(batch)
}

func (s *ScyllaClient) HealthCheck(ctx context.Context) error {
	var clusterName string
	err := s.Session.Query(`SELECT cluster_name FROM system.local`).
		WithContext(ctx).Scan(&clusterName)
	if err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}
	util.Debug("Scylla health check passed", util.String("cluster_name", clusterName))
	return nil
}
