package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string

	Server        ServerConfig
	Logging       LoggingConfig
	Scylla        ScyllaConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Clickhouse    ClickhouseConfig
	Elasticsearch ElasticsearchConfig
	Hashing       HashingConfig
	Reset         ResetConfig
	Session       SessionConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	EnableTLS    bool
	TLSPort      int
	CertFile     string
	KeyFile      string
	CertDir      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ScyllaConfig struct {
	Nodes    []string
	Keyspace string
	Username string
	Password string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	ActivityTopic string
}

type ClickhouseConfig struct {
	Enabled  bool
	URL      string
	Username string
	Password string
	Database string
}

type ElasticsearchConfig struct {
	Enabled       bool
	URL           string
	Username      string
	Password      string
	ActivityIndex string
}

// HashingConfig carries the argon2id work factors. Defaults follow the
// RFC 9106 second recommended profile.
type HashingConfig struct {
	Argon2MemoryKiB   int
	Argon2Iterations  int
	Argon2Parallelism int
}

// ResetConfig bounds the password-reset token lifetime. Expiry is a hard
// boundary: no grace period, no sliding window.
type ResetConfig struct {
	TokenTTL time.Duration
}

type SessionConfig struct {
	TTL           time.Duration
	MaxLoginTries int
	LockWindow    time.Duration
}

// LoadConfig reads .env (if present) and assembles the configuration from the
// environment. Missing values fall back to development defaults.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			EnableTLS:    getEnvBool("SERVER_ENABLE_TLS", false),
			TLSPort:      getEnvInt("SERVER_TLS_PORT", 8443),
			CertFile:     getEnv("SERVER_CERT_FILE", ""),
			KeyFile:      getEnv("SERVER_KEY_FILE", ""),
			CertDir:      getEnv("SERVER_CERT_DIR", "./certs"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Scylla: ScyllaConfig{
			Nodes:    getEnvList("SCYLLA_NODES", "127.0.0.1:9042"),
			Keyspace: getEnv("SCYLLA_KEYSPACE", "admin_identity"),
			Username: getEnv("SCYLLA_USERNAME", ""),
			Password: getEnv("SCYLLA_PASSWORD", ""),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://127.0.0.1:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 20),
		},
		Kafka: KafkaConfig{
			Enabled:       getEnvBool("KAFKA_ENABLED", false),
			Brokers:       getEnvList("KAFKA_BROKERS", "127.0.0.1:9092"),
			ActivityTopic: getEnv("KAFKA_ACTIVITY_TOPIC", "admin-activity"),
		},
		Clickhouse: ClickhouseConfig{
			Enabled:  getEnvBool("CLICKHOUSE_ENABLED", false),
			URL:      getEnv("CLICKHOUSE_URL", "127.0.0.1:9000"),
			Username: getEnv("CLICKHOUSE_USERNAME", "default"),
			Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			Database: getEnv("CLICKHOUSE_DATABASE", "admin_audit"),
		},
		Elasticsearch: ElasticsearchConfig{
			Enabled:       getEnvBool("ELASTICSEARCH_ENABLED", false),
			URL:           getEnv("ELASTICSEARCH_URL", "http://127.0.0.1:9200"),
			Username:      getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:      getEnv("ELASTICSEARCH_PASSWORD", ""),
			ActivityIndex: getEnv("ELASTICSEARCH_ACTIVITY_INDEX", "admin-activity"),
		},
		Hashing: HashingConfig{
			Argon2MemoryKiB:   getEnvInt("HASH_ARGON2_MEMORY_KIB", 65536),
			Argon2Iterations:  getEnvInt("HASH_ARGON2_ITERATIONS", 3),
			Argon2Parallelism: getEnvInt("HASH_ARGON2_PARALLELISM", 4),
		},
		Reset: ResetConfig{
			TokenTTL: getEnvDuration("RESET_TOKEN_TTL", time.Hour),
		},
		Session: SessionConfig{
			TTL:           getEnvDuration("SESSION_TTL", 12*time.Hour),
			MaxLoginTries: getEnvInt("LOGIN_MAX_ATTEMPTS", 5),
			LockWindow:    getEnvDuration("LOGIN_LOCK_WINDOW", 15*time.Minute),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
