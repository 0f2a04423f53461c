package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Backoffice BackofficeConfig `yaml:"backoffice"`
	Refresh    RefreshConfig    `yaml:"refresh"`
	Simulation SimulationConfig `yaml:"simulation"`
	Branches   []BranchConfig   `yaml:"branches"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Publish    PublishConfig    `yaml:"publish"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	CacheMaxEntries int     `yaml:"cache_max_entries"`
}

// BackofficeConfig describes the REST API that owns transactions and inventory.
type BackofficeConfig struct {
	BaseURL         string            `yaml:"base_url"`
	Headers         map[string]string `yaml:"headers"`
	HTTPProxy       string            `yaml:"http_proxy"`
	TimeoutSeconds  int               `yaml:"timeout_seconds"`
	CacheTTLSeconds int               `yaml:"cache_ttl_seconds"`
	Breaker         BreakerConfig     `yaml:"breaker"`
}

// BreakerConfig tunes the circuit breaker around back-office calls.
type BreakerConfig struct {
	MaxRequests      uint32 `yaml:"max_requests"`
	IntervalSeconds  int    `yaml:"interval_seconds"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
	FailureThreshold uint32 `yaml:"failure_threshold"`
}

// RefreshConfig controls the polling loop.
type RefreshConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
}

// SimulationConfig holds the simulator defaults.
type SimulationConfig struct {
	Timezone       string `yaml:"timezone"`
	DefaultWashers int    `yaml:"default_washers"`
	DefaultDryers  int    `yaml:"default_dryers"`
}

// BranchConfig is one branch to poll.
type BranchConfig struct {
	Code     string `yaml:"code"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"` // overrides simulation.timezone
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// RedisConfig enables the shared response cache when URL is set.
type RedisConfig struct {
	URL       string `yaml:"url"`
	KeyPrefix string `yaml:"key_prefix"`
}

// PublishConfig selects where board snapshots are broadcast.
type PublishConfig struct {
	Driver          string `yaml:"driver"` // "mqtt", "amqp" or empty
	MQTTBroker      string `yaml:"mqtt_broker"`
	MQTTClientID    string `yaml:"mqtt_client_id"`
	MQTTTopicPrefix string `yaml:"mqtt_topic_prefix"`
	AMQPURL         string `yaml:"amqp_url"`
	AMQPExchange    string `yaml:"amqp_exchange"`
}

// Load reads the configuration from the given path. Values from the
// environment (and a .env file, if present) override secrets and URLs.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	// A missing .env file is normal outside development.
	_ = godotenv.Load()
	applyEnv(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"DATABASE_DSN":      &cfg.Database.DSN,
		"REDIS_URL":         &cfg.Redis.URL,
		"BACKOFFICE_URL":    &cfg.Backoffice.BaseURL,
		"VAPID_PUBLIC_KEY":  &cfg.Push.PublicKey,
		"VAPID_PRIVATE_KEY": &cfg.Push.PrivateKey,
		"MQTT_BROKER":       &cfg.Publish.MQTTBroker,
		"AMQP_URL":          &cfg.Publish.AMQPURL,
	}
	for key, dst := range overrides {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if token := os.Getenv("BACKOFFICE_TOKEN"); token != "" {
		if cfg.Backoffice.Headers == nil {
			cfg.Backoffice.Headers = make(map[string]string)
		}
		cfg.Backoffice.Headers["Authorization"] = "Bearer " + token
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}
	if cfg.Server.CacheMaxEntries <= 0 {
		cfg.Server.CacheMaxEntries = 500
	}

	if cfg.Refresh.IntervalSeconds <= 0 {
		cfg.Refresh.IntervalSeconds = 120
	}
	cfg.Refresh.Interval = time.Duration(cfg.Refresh.IntervalSeconds) * time.Second

	if cfg.Backoffice.TimeoutSeconds <= 0 {
		cfg.Backoffice.TimeoutSeconds = 30
	}
	if cfg.Backoffice.CacheTTLSeconds < 0 {
		cfg.Backoffice.CacheTTLSeconds = 0
	}
	// Every refresh must reach the back office.
	if cfg.Backoffice.CacheTTLSeconds >= cfg.Refresh.IntervalSeconds {
		log.Printf("backoffice.cache_ttl_seconds (%d) is not shorter than refresh.interval_seconds (%d); clamping to %d",
			cfg.Backoffice.CacheTTLSeconds, cfg.Refresh.IntervalSeconds, cfg.Refresh.IntervalSeconds-1)
		cfg.Backoffice.CacheTTLSeconds = cfg.Refresh.IntervalSeconds - 1
	}
	if cfg.Backoffice.Breaker.FailureThreshold == 0 {
		cfg.Backoffice.Breaker.FailureThreshold = 5
	}
	if cfg.Backoffice.Breaker.TimeoutSeconds <= 0 {
		cfg.Backoffice.Breaker.TimeoutSeconds = 60
	}

	if cfg.Simulation.Timezone == "" {
		cfg.Simulation.Timezone = "Asia/Jakarta"
	}
	if cfg.Simulation.DefaultWashers <= 0 {
		cfg.Simulation.DefaultWashers = 5
	}
	if cfg.Simulation.DefaultDryers <= 0 {
		cfg.Simulation.DefaultDryers = 5
	}
	for i := range cfg.Branches {
		if cfg.Branches[i].Timezone == "" {
			cfg.Branches[i].Timezone = cfg.Simulation.Timezone
		}
	}

	if cfg.Publish.MQTTClientID == "" {
		cfg.Publish.MQTTClientID = "laundryd"
	}
	if cfg.Publish.MQTTTopicPrefix == "" {
		cfg.Publish.MQTTTopicPrefix = "laundry/branches"
	}
	if cfg.Publish.AMQPExchange == "" {
		cfg.Publish.AMQPExchange = "laundry.board"
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "laundryd:"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
}

// Location resolves a timezone name, falling back to UTC with a warning.
func Location(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("Warning: unknown timezone %q: %v. Using UTC.", name, err)
		return time.UTC
	}
	return loc
}
