package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AspectSpec is one configurable aspect table row.
type AspectSpec struct {
	Name  string  `yaml:"name"`
	Angle float64 `yaml:"angle"`
	Orb   float64 `yaml:"orb"`
}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"ratelimit"`
	Engine struct {
		Bodies         []string      `yaml:"bodies"`
		Timezone       string        `yaml:"timezone"`
		ScanHour       int           `yaml:"scan_hour"`
		Workers        int           `yaml:"workers"`
		MaxRangeDays   int           `yaml:"max_range_days"`
		ReportTimeout  time.Duration `yaml:"report_timeout"`
		TrackEnded     bool          `yaml:"track_ended"`
		NatalAspects   []AspectSpec  `yaml:"natal_aspects"`
		MundaneAspects []AspectSpec  `yaml:"mundane_aspects"`
	} `yaml:"engine"`
	Ephemeris struct {
		Provider    string        `yaml:"provider"` // builtin or http
		URL         string        `yaml:"url"`
		Timeout     time.Duration `yaml:"timeout"`
		Retries     int           `yaml:"retries"`
		Backoff     time.Duration `yaml:"backoff"`
		HouseSystem string        `yaml:"house_system"`
	} `yaml:"ephemeris"`
	Cache struct {
		Enabled       bool          `yaml:"enabled"`
		TTL           time.Duration `yaml:"ttl"`
		MemoryMaxSize int           `yaml:"memory_max_size"`
		MemoryTTL     time.Duration `yaml:"memory_ttl"`
		Redis         struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			PoolSize int    `yaml:"pool_size"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		ChangesTopic string   `yaml:"changes_topic"`
		JobsTopic    string   `yaml:"jobs_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID       string        `yaml:"group_id"`
			Workers       int           `yaml:"workers"`
			BufferSize    int           `yaml:"buffer_size"`
			RetryMax      int           `yaml:"retry_max"`
			BackoffMin    time.Duration `yaml:"backoff_min"`
			BackoffMax    time.Duration `yaml:"backoff_max"`
			DLQTopic      string        `yaml:"dlq_topic"`
			HandleTimeout time.Duration `yaml:"handle_timeout"`
		} `yaml:"consumer"`
		Pipeline struct {
			BufferSize int           `yaml:"buffer_size"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
		} `yaml:"pipeline"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
}

// Default returns a configuration that runs with the built-in ephemeris and
// no external infrastructure.
func Default() *Config {
	var c Config
	c.Environment = "development"
	c.Server.Port = 8080
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 60 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Log.Level = "info"
	c.Log.Format = "console"
	c.Log.Output = "stderr"
	c.RateLimit.RPS = 20
	c.RateLimit.Burst = 40

	c.Engine.Timezone = "UTC"
	c.Engine.ScanHour = 12
	c.Engine.Workers = 4
	c.Engine.MaxRangeDays = 366
	c.Engine.ReportTimeout = 2 * time.Minute

	c.Ephemeris.Provider = "builtin"
	c.Ephemeris.Timeout = 5 * time.Second
	c.Ephemeris.Retries = 3
	c.Ephemeris.Backoff = 200 * time.Millisecond
	c.Ephemeris.HouseSystem = "equal"

	c.Cache.TTL = 24 * time.Hour
	c.Cache.MemoryMaxSize = 50000
	c.Cache.MemoryTTL = time.Hour
	c.Cache.Redis.Host = "localhost"
	c.Cache.Redis.Port = 6379
	c.Cache.Redis.PoolSize = 10
	c.Cache.Redis.Prefix = "astro"

	c.Kafka.Brokers = []string{"localhost:9092"}
	c.Kafka.ChangesTopic = "aspect_changes"
	c.Kafka.JobsTopic = "report_requests"
	c.Kafka.RequiredAcks = -1
	c.Kafka.Compression = "snappy"
	c.Kafka.Consumer.GroupID = "astrotransit"
	c.Kafka.Consumer.Workers = 2
	c.Kafka.Consumer.RetryMax = 3
	c.Kafka.Consumer.BackoffMin = 100 * time.Millisecond
	c.Kafka.Consumer.BackoffMax = 5 * time.Second
	c.Kafka.Consumer.DLQTopic = "report_requests_dlq"
	c.Kafka.Consumer.HandleTimeout = 5 * time.Minute
	c.Kafka.Pipeline.BufferSize = 256

	c.ClickHouse.Host = "localhost"
	c.ClickHouse.Port = 9000
	c.ClickHouse.Database = "astro"
	c.ClickHouse.User = "default"
	return &c
}

// Load reads a YAML file on top of Default and validates it.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML (or defaults when path is empty) and
// overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c := Default()
	if path != "" {
		var err error
		if c, err = Load(path); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("EPHEMERIS_PROVIDER"); v != "" {
		c.Ephemeris.Provider = v
	}
	if v := os.Getenv("EPHEMERIS_URL"); v != "" {
		c.Ephemeris.URL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Cache.Redis.Host = host
		if ok {
			if p, err := strconv.Atoi(port); err == nil {
				c.Cache.Redis.Port = p
			}
		}
		c.Cache.Enabled = true
		c.Cache.Redis.Enabled = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("TRACKED_BODIES"); v != "" {
		c.Engine.Bodies = splitList(v)
	}
	if v := os.Getenv("TZ_NAME"); v != "" {
		c.Engine.Timezone = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Ephemeris.Provider {
	case "builtin":
	case "http":
		if c.Ephemeris.URL == "" {
			return fmt.Errorf("ephemeris.url is required for the http provider")
		}
	default:
		return fmt.Errorf("ephemeris.provider must be 'builtin' or 'http', got '%s'", c.Ephemeris.Provider)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Engine.ScanHour < 0 || c.Engine.ScanHour > 23 {
		return fmt.Errorf("engine.scan_hour must be in 0..23, got %d", c.Engine.ScanHour)
	}
	if c.Engine.MaxRangeDays < 0 {
		return fmt.Errorf("engine.max_range_days cannot be negative")
	}
	for _, set := range [][]AspectSpec{c.Engine.NatalAspects, c.Engine.MundaneAspects} {
		for _, a := range set {
			if a.Name == "" || a.Angle < 0 || a.Angle > 180 || a.Orb < 0 {
				return fmt.Errorf("invalid aspect definition %+v", a)
			}
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}

// Location resolves engine.timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Engine.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Engine.Timezone)
	if err != nil {
		return nil, fmt.Errorf("engine.timezone: %w", err)
	}
	return loc, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
