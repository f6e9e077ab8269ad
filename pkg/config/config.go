package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration. Zero-valued fields are filled from
// `default` tags after the YAML file is parsed, so switches that default to on
// are expressed as Disabled flags.
type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Server      struct {
		Port            int           `yaml:"port" default:"5000" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Disabled bool   `yaml:"disabled"`
		Path     string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Telegram struct {
		BotToken  string        `yaml:"bot_token" validate:"required"`
		ChatID    string        `yaml:"chat_id" validate:"required"`
		Brand     string        `yaml:"brand" default:"Aad-FX"`
		APIURL    string        `yaml:"api_url" default:"https://api.telegram.org"`
		ParseMode string        `yaml:"parse_mode" default:"Markdown"`
		Timeout   time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"telegram"`
	LLM struct {
		APIKey        string        `yaml:"api_key"`
		Model         string        `yaml:"model" default:"gemini-2.0-flash"`
		BaseURL       string        `yaml:"base_url" default:"https://generativelanguage.googleapis.com/v1beta"`
		Timeout       time.Duration `yaml:"timeout" default:"20s"`
		MaxAttempts   int           `yaml:"max_attempts" default:"3" validate:"gte=1,lte=5"`
		Backoff       time.Duration `yaml:"backoff" default:"1s"`
		RatePerMinute int           `yaml:"rate_per_minute" default:"15" validate:"gte=1"`
	} `yaml:"llm"`
	Risk struct {
		CacheTTL   time.Duration `yaml:"cache_ttl" default:"60m"`
		MaxEntries int           `yaml:"max_entries" default:"20" validate:"gte=1"`
		Timeout    time.Duration `yaml:"timeout" default:"8s"`
		Keywords   []string      `yaml:"keywords"`
		Finnhub    struct {
			Disabled bool   `yaml:"disabled"`
			APIKey   string `yaml:"api_key"`
			BaseURL  string `yaml:"base_url" default:"https://finnhub.io/api/v1"`
		} `yaml:"finnhub"`
		ForexFactory struct {
			Disabled bool   `yaml:"disabled"`
			URL      string `yaml:"url" default:"https://nfs.faireconomy.media/ff_calendar_thisweek.json"`
		} `yaml:"forexfactory"`
	} `yaml:"risk"`
	Confluence struct {
		CacheTTL time.Duration `yaml:"cache_ttl" default:"15m"`
	} `yaml:"confluence"`
	Trades struct {
		TTL              time.Duration `yaml:"ttl" default:"72h"`
		NotifyDuplicates bool          `yaml:"notify_duplicates"`
	} `yaml:"trades"`
	Webhook struct {
		Path          string        `yaml:"path" default:"/webhook"`
		RatePerSecond float64       `yaml:"rate_per_second" default:"5"`
		Burst         float64       `yaml:"burst" default:"20"`
		Timeout       time.Duration `yaml:"timeout" default:"60s"`
	} `yaml:"webhook"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"signalrelay.lifecycle"`
		Compression  string        `yaml:"compression" default:"snappy" validate:"oneof=gzip snappy lz4 zstd"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
		Async        bool          `yaml:"async"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"signalrelay"`
	} `yaml:"redis"`
}

// Load reads and parses a YAML configuration file. A missing file is not an
// error: defaults plus environment overrides are enough to run.
func Load(path string) (*Config, error) {
	var c Config
	b, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(b) > 0 {
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env (if present), the YAML file, then overrides secrets and
// deployment knobs from the environment, and validates the result.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Risk.Finnhub.APIKey = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Environment = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

var validate = validator.New()

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Risk.CacheTTL <= 0 || c.Confluence.CacheTTL <= 0 {
		return fmt.Errorf("cache ttls must be positive")
	}
	if !strings.HasPrefix(c.Webhook.Path, "/") {
		return fmt.Errorf("webhook.path must start with '/', got '%s'", c.Webhook.Path)
	}
	return nil
}
