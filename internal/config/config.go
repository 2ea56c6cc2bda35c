package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "CARTSTORE"

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMySQL  = "mysql"
	BackendSQLite = "sqlite"
)

type Config struct {
	App      AppConfig
	Storage  StorageConfig
	Redis    RedisConfig
	MySQL    MySQLConfig
	SQLite   SQLiteConfig
	Catalog  CatalogConfig
	Sessions SessionsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis backend requires CARTSTORE_REDIS_ADDR")
		}
	case BackendMySQL:
		if c.MySQL.DSN == "" {
			return fmt.Errorf("mysql backend requires CARTSTORE_MYSQL_DSN")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

type AppConfig struct {
	Env             string        `envconfig:"CARTSTORE_APP_ENV" default:"dev"`
	HTTPAddr        string        `envconfig:"CARTSTORE_HTTP_ADDR" default:":8080"`
	GRPCAddr        string        `envconfig:"CARTSTORE_GRPC_ADDR" default:":50051"`
	LogLevel        string        `envconfig:"CARTSTORE_LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"CARTSTORE_LOG_FORMAT" default:"json"`
	ShutdownTimeout time.Duration `envconfig:"CARTSTORE_SHUTDOWN_TIMEOUT" default:"5s"`
	HealthInterval  time.Duration `envconfig:"CARTSTORE_HEALTH_INTERVAL" default:"10s"`
}

type StorageConfig struct {
	Backend string `envconfig:"CARTSTORE_STORAGE_BACKEND" default:"memory"`
	// OpTimeout bounds each durable read or write.
	OpTimeout time.Duration `envconfig:"CARTSTORE_STORAGE_OP_TIMEOUT" default:"2s"`
}

type RedisConfig struct {
	Addr      string        `envconfig:"CARTSTORE_REDIS_ADDR"`
	Password  string        `envconfig:"CARTSTORE_REDIS_PASSWORD"`
	DB        int           `envconfig:"CARTSTORE_REDIS_DB" default:"0"`
	PoolSize  int           `envconfig:"CARTSTORE_REDIS_POOL_SIZE" default:"20"`
	KeyPrefix string        `envconfig:"CARTSTORE_REDIS_KEY_PREFIX" default:"cartstore:"`
	CartTTL   time.Duration `envconfig:"CARTSTORE_REDIS_CART_TTL" default:"0s"`
}

type MySQLConfig struct {
	DSN             string        `envconfig:"CARTSTORE_MYSQL_DSN"`
	MaxOpenConns    int           `envconfig:"CARTSTORE_MYSQL_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CARTSTORE_MYSQL_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CARTSTORE_MYSQL_CONN_MAX_LIFETIME" default:"5m"`
}

type SQLiteConfig struct {
	Path string `envconfig:"CARTSTORE_SQLITE_PATH" default:"cartstore.db"`
}

type CatalogConfig struct {
	Path string `envconfig:"CARTSTORE_CATALOG_PATH" default:"catalog.yaml"`
}

type SessionsConfig struct {
	MaxResident int           `envconfig:"CARTSTORE_SESSIONS_MAX_RESIDENT" default:"10000"`
	IdleTimeout time.Duration `envconfig:"CARTSTORE_SESSIONS_IDLE_TIMEOUT" default:"30m"`
}
