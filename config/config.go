package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Grid   GridConfig
	Index  IndexConfig
	Server ServerConfig
	Store  StoreConfig
	DB     DBConfig
	Redis  RedisConfig
}

type GridConfig struct {
	Type      string `mapstructure:"type"`
	MaxLevels int    `mapstructure:"max_levels"`
}

type IndexConfig struct {
	DetailLevel    int `mapstructure:"detail_level"`
	QueryCacheSize int `mapstructure:"query_cache_size"`
	MaxCells       int `mapstructure:"max_cells"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

type DBConfig struct {
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	DBName         string `mapstructure:"dbname"`
	SSLMode        string `mapstructure:"sslmode"`
	Host           string `mapstructure:"host"`
	Port           string `mapstructure:"port"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

const (
	MemoryBackend   = "memory"
	RedisBackend    = "redis"
	PostgresBackend = "postgres"
)

var ErrInvalidConfig = errors.New("invalid config")

// DSN is the postgres connection URL for golang-migrate and lib/pq.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("grid.type", "geohash")
	v.SetDefault("grid.max_levels", 12)
	v.SetDefault("index.detail_level", 7)
	v.SetDefault("index.query_cache_size", 1024)
	v.SetDefault("index.max_cells", 16384)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("store.backend", MemoryBackend)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.dbname", "prefixgrid")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.migrations_path", "file://database/migrations")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
}

// Load reads config.yaml from the given directories (the working directory
// when none are given), then PREFIXGRID_* environment variables. A missing
// file is not an error.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix("PREFIXGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be defaulted. Grid level bounds are
// left to the grid constructors.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case MemoryBackend, RedisBackend, PostgresBackend:
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}
	if c.Index.DetailLevel < 1 {
		return fmt.Errorf("%w: index.detail_level must be positive", ErrInvalidConfig)
	}
	if c.Index.DetailLevel > c.Grid.MaxLevels {
		return fmt.Errorf("%w: index.detail_level %d exceeds grid.max_levels %d",
			ErrInvalidConfig, c.Index.DetailLevel, c.Grid.MaxLevels)
	}
	if c.Index.MaxCells < 1 {
		return fmt.Errorf("%w: index.max_cells must be positive", ErrInvalidConfig)
	}
	if c.Index.QueryCacheSize < 1 {
		return fmt.Errorf("%w: index.query_cache_size must be positive", ErrInvalidConfig)
	}
	return nil
}
