package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Solana    SolanaConfig    `mapstructure:"solana" yaml:"solana"`
	Websocket WebsocketConfig `mapstructure:"websocket" yaml:"websocket"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

// SolanaConfig holds Solana-specific configuration
type SolanaConfig struct {
	RPC        string `mapstructure:"rpc" yaml:"rpc"`
	WS         string `mapstructure:"ws" yaml:"ws"`
	Network    string `mapstructure:"network" yaml:"network"`
	Timeout    int    `mapstructure:"timeout" yaml:"timeout"` // in seconds
	Commitment string `mapstructure:"commitment" yaml:"commitment"`
}

// WebsocketConfig tunes subscription connections.
type WebsocketConfig struct {
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" yaml:"handshake_timeout"`
	PingInterval     time.Duration `mapstructure:"ping_interval" yaml:"ping_interval"`
	EventBuffer      int           `mapstructure:"event_buffer" yaml:"event_buffer"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // json or text
}

// DatabaseConfig selects where tracked transactions are stored.
type DatabaseConfig struct {
	Enabled  bool           `mapstructure:"enabled" yaml:"enabled"`
	Type     string         `mapstructure:"type" yaml:"type"` // postgres, mongodb or sqlite
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
	MongoDB  MongoDBConfig  `mapstructure:"mongodb" yaml:"mongodb"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	User            string        `mapstructure:"user" yaml:"user"`
	Password        string        `mapstructure:"password" yaml:"password"`
	Database        string        `mapstructure:"database" yaml:"database"`
	SSLMode         string        `mapstructure:"ssl_mode" yaml:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// DSN returns the libpq style connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// MongoDBConfig holds MongoDB connection settings.
type MongoDBConfig struct {
	URI            string        `mapstructure:"uri" yaml:"uri"`
	Database       string        `mapstructure:"database" yaml:"database"`
	MaxPoolSize    uint64        `mapstructure:"max_pool_size" yaml:"max_pool_size"`
	MinPoolSize    uint64        `mapstructure:"min_pool_size" yaml:"min_pool_size"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
}

// SQLiteConfig holds the SQLite database path.
type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// MetricsConfig enables the Prometheus backend.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Solana: SolanaConfig{
			Network:    "devnet",
			Timeout:    30,
			Commitment: "confirmed",
		},
		Websocket: WebsocketConfig{
			HandshakeTimeout: 10 * time.Second,
			PingInterval:     30 * time.Second,
			EventBuffer:      16,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			Postgres: PostgresConfig{
				Host:            "localhost",
				Port:            5432,
				User:            "postgres",
				Database:        "solclient",
				SSLMode:         "disable",
				MaxOpenConns:    10,
				MaxIdleConns:    2,
				ConnMaxLifetime: time.Hour,
			},
			MongoDB: MongoDBConfig{
				URI:            "mongodb://localhost:27017",
				Database:       "solclient",
				MaxPoolSize:    10,
				ConnectTimeout: 10 * time.Second,
			},
			SQLite: SQLiteConfig{
				Path: "solclient.db",
			},
		},
		Metrics: MetricsConfig{
			Namespace: "solclient",
		},
	}
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	return load(viper.GetViper(), configPath)
}

func load(v *viper.Viper, configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(".solclient")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	// Environment variables
	v.SetEnvPrefix("SOLCLIENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// bindEnv makes AutomaticEnv see keys that are absent from the config file.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"solana.rpc", "solana.ws", "solana.network", "solana.timeout", "solana.commitment",
		"log.level", "log.format",
		"database.enabled", "database.type", "database.sqlite.path", "database.mongodb.uri",
		"database.postgres.host", "database.postgres.password",
		"metrics.enabled",
	} {
		_ = v.BindEnv(key)
	}
}

// RequestTimeout returns the RPC timeout as a duration.
func (c *SolanaConfig) RequestTimeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

// GetRPCEndpoint returns the RPC endpoint for the configured network
func (c *SolanaConfig) GetRPCEndpoint() string {
	if c.RPC != "" {
		return c.RPC
	}

	switch c.Network {
	case "mainnet", "mainnet-beta":
		return "https://api.mainnet-beta.solana.com"
	case "testnet":
		return "https://api.testnet.solana.com"
	case "localnet", "localhost":
		return "http://localhost:8899"
	default:
		return "https://api.devnet.solana.com"
	}
}

// GetWSEndpoint returns the websocket endpoint. Without an explicit ws setting it is
// derived from the RPC endpoint; the local validator listens one port above RPC.
func (c *SolanaConfig) GetWSEndpoint() string {
	if c.WS != "" {
		return c.WS
	}

	switch c.Network {
	case "localnet", "localhost":
		if c.RPC == "" {
			return "ws://localhost:8900"
		}
	}

	u, err := url.Parse(c.GetRPCEndpoint())
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	if u.Port() == "8899" {
		u.Host = u.Hostname() + ":8900"
	}
	return u.String()
}
