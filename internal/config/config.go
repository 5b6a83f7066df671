package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Steam     SteamConfig     `yaml:"steam"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Sync      SyncConfig      `yaml:"sync"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxConnections  int           `yaml:"max_connections"`
	MinConnections  int           `yaml:"min_connections"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
}

// ConnectionString returns the PostgreSQL connection string
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslMode,
	)
}

// KafkaConfig holds the sync-event stream configuration
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
	Enabled bool     `yaml:"enabled"`
}

// SteamConfig holds the remote platform API configuration. The API key
// is attached server-side to every outbound call.
type SteamConfig struct {
	APIBaseURL  string `yaml:"api_base_url"`
	StoreAPIURL string `yaml:"store_api_url"`
	APIKey      string `yaml:"api_key"`
}

// GatewayConfig holds the outbound rate-limited gateway configuration
type GatewayConfig struct {
	MinDelay       time.Duration `yaml:"min_delay"`
	MaxDelay       time.Duration `yaml:"max_delay"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// SyncConfig holds library sync configuration: pagination, the worker
// pool bound for fan-out, and the freshness window per cache class.
type SyncConfig struct {
	PageSize        int           `yaml:"page_size"`
	Workers         int           `yaml:"workers"`
	OwnedGamesTTL   time.Duration `yaml:"owned_games_ttl"`
	GameDetailTTL   time.Duration `yaml:"game_detail_ttl"`
	AchievementsTTL time.Duration `yaml:"achievements_ttl"`
	ProfileTTL      time.Duration `yaml:"profile_ttl"`
}

// DashboardConfig holds presentation-facing limits
type DashboardConfig struct {
	RecentAchievements int `yaml:"recent_achievements"`
	MaxRecentLimit     int `yaml:"max_recent_limit"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply defaults
	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		// Sync endpoints hold the request open for the whole pass.
		c.Server.WriteTimeout = 120 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 100
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 10
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}

	// PostgreSQL defaults
	if c.Postgres.Host == "" {
		c.Postgres.Host = "localhost"
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.MaxConnections == 0 {
		c.Postgres.MaxConnections = 50
	}
	if c.Postgres.MinConnections == 0 {
		c.Postgres.MinConnections = 5
	}
	if c.Postgres.MaxConnLifetime == 0 {
		c.Postgres.MaxConnLifetime = 1 * time.Hour
	}
	if c.Postgres.MaxConnIdleTime == 0 {
		c.Postgres.MaxConnIdleTime = 30 * time.Minute
	}

	// Kafka defaults
	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "library-sync-events"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "steamdash-events"
	}

	// Steam defaults
	if c.Steam.APIBaseURL == "" {
		c.Steam.APIBaseURL = "https://api.steampowered.com"
	}
	if c.Steam.StoreAPIURL == "" {
		c.Steam.StoreAPIURL = "https://store.steampowered.com/api"
	}
	if c.Steam.APIKey == "" {
		c.Steam.APIKey = os.Getenv("STEAM_API_KEY")
	}

	// Gateway defaults
	if c.Gateway.MinDelay == 0 {
		c.Gateway.MinDelay = 75 * time.Millisecond
	}
	if c.Gateway.MaxDelay == 0 {
		c.Gateway.MaxDelay = 300 * time.Millisecond
	}
	if c.Gateway.RequestTimeout == 0 {
		c.Gateway.RequestTimeout = 15 * time.Second
	}

	// Sync defaults
	if c.Sync.PageSize == 0 {
		c.Sync.PageSize = 20
	}
	if c.Sync.Workers == 0 {
		c.Sync.Workers = 4
	}
	if c.Sync.OwnedGamesTTL == 0 {
		c.Sync.OwnedGamesTTL = 12 * time.Hour
	}
	if c.Sync.GameDetailTTL == 0 {
		c.Sync.GameDetailTTL = 24 * time.Hour
	}
	if c.Sync.AchievementsTTL == 0 {
		c.Sync.AchievementsTTL = 12 * time.Hour
	}
	if c.Sync.ProfileTTL == 0 {
		c.Sync.ProfileTTL = 12 * time.Hour
	}

	// Dashboard defaults
	if c.Dashboard.RecentAchievements == 0 {
		c.Dashboard.RecentAchievements = 10
	}
	if c.Dashboard.MaxRecentLimit == 0 {
		c.Dashboard.MaxRecentLimit = 100
	}
}

// DefaultConfig returns a configuration with all defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
