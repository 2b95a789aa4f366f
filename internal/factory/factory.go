package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"admin-service/internal/audit"
	"admin-service/internal/bucketing"
	"admin-service/internal/client"
	"admin-service/internal/config"
	"admin-service/internal/hashing"
	"admin-service/internal/mail"
	redisrepo "admin-service/internal/repository/redis"
	"admin-service/internal/repository/scylla"
	"admin-service/internal/service"
	"admin-service/internal/tls"
	"admin-service/internal/token"
	"admin-service/internal/util"
)

// Factory owns the lifecycle of every application dependency.
type Factory struct {
	config     *config.Config
	tlsManager *tls.TLSManager

	redisClient      *client.RedisClient
	scyllaClient     *scylla.ScyllaClient
	kafkaProducer    *client.KafkaProducer
	clickhouseClient *client.ClickHouseClient
	esClient         *client.ESClient

	hasher       *hashing.Hasher
	tokens       *token.Generator
	bucketingMgr *bucketing.Manager
	auditor      *audit.Publisher

	adminRepository scylla.AdminRepository
	serviceFactory  *service.ServiceFactory

	closeOnce sync.Once
}

// NewFactory loads configuration and initializes all clients and managers.
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	f := &Factory{config: cfg}

	if cfg.Server.EnableTLS {
		f.tlsManager = tls.NewTLSManager(&tls.TLSConfig{
			EnableTLS:   cfg.Server.EnableTLS,
			CertFile:    cfg.Server.CertFile,
			KeyFile:     cfg.Server.KeyFile,
			CertDir:     cfg.Server.CertDir,
			Environment: cfg.Environment,
		})
	}

	if err := f.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}
	f.initializeManagers()

	util.Info("Factory initialized",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("kafka_enabled", cfg.Kafka.Enabled),
		util.Bool("clickhouse_enabled", cfg.Clickhouse.Enabled),
		util.Bool("elasticsearch_enabled", cfg.Elasticsearch.Enabled))

	return f, nil
}

// initializeClients brings up the required stores (Redis, Scylla) and the
// optional audit sinks. A missing optional sink downgrades the audit
// pipeline, never the service.
func (f *Factory) initializeClients() error {
	redisClient, err := client.NewRedisClient(f.config)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	f.redisClient = redisClient

	scyllaClient, err := scylla.NewScyllaClient(f.config)
	if err != nil {
		return fmt.Errorf("scylla: %w", err)
	}
	f.scyllaClient = scyllaClient

	if f.config.Kafka.Enabled {
		if producer, err := client.NewKafkaProducer(f.config); err != nil {
			util.Warn("Kafka producer unavailable, audit stream disabled", util.ErrorField(err))
		} else {
			f.kafkaProducer = producer
		}
	}

	if f.config.Clickhouse.Enabled {
		if ch, err := client.NewClickHouseClient(f.config); err != nil {
			util.Warn("ClickHouse unavailable, audit sink disabled", util.ErrorField(err))
		} else {
			f.clickhouseClient = ch
		}
	}

	if f.config.Elasticsearch.Enabled {
		if es, err := client.NewElasticsearchClient(f.config); err != nil {
			util.Warn("Elasticsearch unavailable, activity search disabled", util.ErrorField(err))
		} else {
			f.esClient = es
		}
	}

	return nil
}

func (f *Factory) initializeManagers() {
	f.hasher = hashing.NewHasher(f.config)
	f.tokens = token.NewGenerator(f.config.Reset.TokenTTL)
	f.bucketingMgr = bucketing.NewManager(0)
	f.auditor = audit.NewPublisher(f.kafkaProducer, f.clickhouseClient, f.esClient)
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) TLSManager() *tls.TLSManager {
	return f.tlsManager
}

func (f *Factory) AdminRepository() scylla.AdminRepository {
	if f.adminRepository == nil {
		f.adminRepository = scylla.NewAdminRepository(f.scyllaClient, f.bucketingMgr)
	}
	return f.adminRepository
}

func (f *Factory) ServiceFactory() *service.ServiceFactory {
	if f.serviceFactory == nil {
		sessionCfg := f.config.Session
		if f.config.IsProduction() {
			util.Warn("No mail provider configured; reset tokens are logged, not delivered")
		}
		f.serviceFactory = service.NewServiceFactory(
			f.AdminRepository(),
			f.hasher,
			f.tokens,
			redisrepo.NewSessionCache(f.redisClient),
			redisrepo.NewLoginLimiter(f.redisClient, sessionCfg.MaxLoginTries, sessionCfg.LockWindow),
			mail.NewLogMailer(),
			f.auditor,
			sessionCfg.TTL,
		)
	}
	return f.serviceFactory
}

// HealthCheck probes every initialized dependency in parallel.
func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var mu sync.Mutex
	healthErrors := make(map[string]error)
	record := func(name string, err error) {
		if err != nil {
			mu.Lock()
			healthErrors[name] = err
			mu.Unlock()
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		record("redis", f.redisClient.HealthCheck(ctx))
		return nil
	})
	g.Go(func() error {
		record("scylla", f.scyllaClient.HealthCheck(ctx))
		return nil
	})
	if f.clickhouseClient != nil {
		g.Go(func() error {
			record("clickhouse", f.clickhouseClient.HealthCheck(ctx))
			return nil
		})
	}
	if f.esClient != nil {
		g.Go(func() error {
			record("elasticsearch", f.esClient.HealthCheck(ctx))
			return nil
		})
	}
	_ = g.Wait()

	return healthErrors
}

// Close shuts every client down once.
func (f *Factory) Close() {
	f.closeOnce.Do(func() {
		if f.kafkaProducer != nil {
			_ = f.kafkaProducer.Close()
		}
		if f.clickhouseClient != nil {
			_ = f.clickhouseClient.Close()
		}
		if f.redisClient != nil {
			_ = f.redisClient.Close()
		}
		if f.scyllaClient != nil {
			f.scyllaClient.Close()
		}
		util.Sync()
	})
}
