package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Security SecurityConfig `mapstructure:"security"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// ChatConfig replaces the widget's module-level constants with explicit values.
type ChatConfig struct {
	ChatWebhookURL    string        `mapstructure:"chat_webhook_url"`
	LogWebhookURL     string        `mapstructure:"log_webhook_url"`
	StorageKey        string        `mapstructure:"storage_key"`
	Greeting          string        `mapstructure:"greeting"`
	FailureMessage    string        `mapstructure:"failure_message"`
	EmptyReplyMessage string        `mapstructure:"empty_reply_message"`
	LeadThreshold     int           `mapstructure:"lead_threshold"`
	EventQueueSize    int           `mapstructure:"event_queue_size"`
	SessionTTL        time.Duration `mapstructure:"session_ttl"`
	VisitorIdleTTL    time.Duration `mapstructure:"visitor_idle_ttl"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type SecurityConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level        string        `mapstructure:"level"`
	Format       string        `mapstructure:"format"`
	File         string        `mapstructure:"file"`
	MaxAge       time.Duration `mapstructure:"max_age"`
	RotationTime time.Duration `mapstructure:"rotation_time"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate reports settings the chat client cannot run without
func (c *Config) Validate() error {
	if c.Chat.ChatWebhookURL == "" {
		return errors.New("chat.chat_webhook_url is required")
	}
	if c.Chat.StorageKey == "" {
		return errors.New("chat.storage_key must not be empty")
	}
	if c.Chat.LeadThreshold < 1 {
		return fmt.Errorf("chat.lead_threshold must be positive, got %d", c.Chat.LeadThreshold)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Chat
	v.SetDefault("chat.storage_key", "kiwi-chat-session-id")
	v.SetDefault("chat.greeting", "Hello! 👋 I'm Kiwi AI assistant. How can I help you today?")
	v.SetDefault("chat.failure_message", "Sorry, something went wrong. Please try again.")
	v.SetDefault("chat.empty_reply_message", "Sorry, I could not generate a response.")
	v.SetDefault("chat.lead_threshold", 4)
	v.SetDefault("chat.event_queue_size", 64)
	v.SetDefault("chat.session_ttl", "24h")
	v.SetDefault("chat.visitor_idle_ttl", "2h")

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Security
	v.SetDefault("security.rate_limit.requests_per_minute", 20)
	v.SetDefault("security.rate_limit.burst", 5)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.max_age", "168h")
	v.SetDefault("logging.rotation_time", "24h")
}

func bindEnvVars(v *viper.Viper) {
	// Chat webhooks
	v.BindEnv("chat.chat_webhook_url", "CHAT_WEBHOOK_URL")
	v.BindEnv("chat.log_webhook_url", "LOG_WEBHOOK_URL")
	v.BindEnv("chat.storage_key", "CHAT_STORAGE_KEY")

	// Server
	v.BindEnv("server.port", "SERVER_PORT")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
	v.BindEnv("logging.file", "LOG_FILE")
}
