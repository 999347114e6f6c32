// Package config loads service configuration: defaults, then an optional
// YAML file, then environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Provider configures one AI backend in chain order.
type Provider struct {
	ID              string  `yaml:"id"`
	URL             string  `yaml:"url"`
	APIKey          string  `yaml:"api_key"`
	Model           string  `yaml:"model"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
	Confidence      float64 `yaml:"confidence"`
	CacheTTLMinutes int     `yaml:"cache_ttl_minutes"`
}

// Config is the full service configuration.
type Config struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	RedisAddr   string `yaml:"redis_addr"`

	Line struct {
		ChannelSecret      string `yaml:"channel_secret"`
		ChannelAccessToken string `yaml:"channel_access_token"`
	} `yaml:"line"`

	RateLimit struct {
		Requests      int `yaml:"requests"`
		WindowSeconds int `yaml:"window_seconds"`
	} `yaml:"rate_limit"`

	Context struct {
		WindowTurns int `yaml:"window_turns"`
		PromptTurns int `yaml:"prompt_turns"`
		TTLHours    int `yaml:"ttl_hours"`
	} `yaml:"context"`

	AI struct {
		MaxTokens   int        `yaml:"max_tokens"`
		Temperature float64    `yaml:"temperature"`
		Providers   []Provider `yaml:"providers"`
	} `yaml:"ai"`
}

// Default returns the built-in configuration, with AI providers derived
// from the standard environment variables.
func Default() *Config {
	cfg := &Config{}
	cfg.Port = "8080"
	cfg.Environment = "production"
	cfg.RateLimit.Requests = 100
	cfg.RateLimit.WindowSeconds = 60
	cfg.Context.WindowTurns = 20
	cfg.Context.PromptTurns = 10
	cfg.Context.TTLHours = 24
	cfg.AI.MaxTokens = 2000
	cfg.AI.Temperature = 0.7
	return cfg
}

// Load builds the configuration from defaults, the YAML file at path (if
// non-empty) and environment overrides, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if len(cfg.AI.Providers) == 0 {
		cfg.AI.Providers = providersFromEnv(cfg)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Port, "PORT")
	setString(&c.Environment, "ENVIRONMENT")
	setString(&c.RedisAddr, "REDIS_URL")
	setString(&c.Line.ChannelSecret, "CHANNEL_SECRET")
	setString(&c.Line.ChannelAccessToken, "CHANNEL_ACCESS_TOKEN")
	setInt(&c.AI.MaxTokens, "AI_MAX_TOKENS")
	setFloat(&c.AI.Temperature, "AI_TEMPERATURE")
}

// providersFromEnv builds the default provider chain: Cloudflare Workers
// AI primary, OpenAI secondary. Providers without credentials are left
// out; the static fallback needs no configuration.
func providersFromEnv(c *Config) []Provider {
	var providers []Provider

	if account := os.Getenv("CLOUDFLARE_ACCOUNT_ID"); account != "" {
		model := os.Getenv("AI_MODEL")
		if model == "" {
			model = "@cf/meta/llama-3-8b-instruct"
		}
		providers = append(providers, Provider{
			ID:              "workers-ai",
			URL:             fmt.Sprintf("https://api.cloudflare.com/client/v4/accounts/%s/ai/run/%s", account, model),
			APIKey:          os.Getenv("CLOUDFLARE_API_TOKEN"),
			TimeoutSeconds:  15,
			Confidence:      0.9,
			CacheTTLMinutes: 60,
		})
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		providers = append(providers, Provider{
			ID:              "openai",
			URL:             "https://api.openai.com/v1/chat/completions",
			APIKey:          key,
			Model:           "gpt-4o-mini",
			TimeoutSeconds:  20,
			Confidence:      0.8,
			CacheTTLMinutes: 30,
		})
	}

	return providers
}

// RedisOptions builds client options from RedisAddr, which may be either
// a plain host:port or a redis:// URL (the REDIS_URL convention).
func (c *Config) RedisOptions() (*redis.Options, error) {
	if strings.Contains(c.RedisAddr, "://") {
		return redis.ParseURL(c.RedisAddr)
	}
	return &redis.Options{Addr: c.RedisAddr}, nil
}

// RateLimitWindow returns the admission window as a duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}

// ContextTTL returns the conversation inactivity TTL.
func (c *Config) ContextTTL() time.Duration {
	return time.Duration(c.Context.TTLHours) * time.Hour
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
