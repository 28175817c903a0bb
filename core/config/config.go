package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Stacks      string `yaml:"stacks"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	ErrorsFile  string `yaml:"errors_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// OpenAIConfig holds completion and transcription provider settings.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key" envconfig:"OPENAI_API_KEY"`
	BaseURL string `yaml:"base_url" envconfig:"OPENAI_BASE_URL"`
	// Model is used for plain text completions.
	Model string `yaml:"model" envconfig:"OPENAI_MODEL"`
	// VisionModel is used when a message carries an image attachment.
	VisionModel     string  `yaml:"vision_model" envconfig:"OPENAI_VISION_MODEL"`
	TranscribeModel string  `yaml:"transcribe_model" envconfig:"OPENAI_TRANSCRIBE_MODEL"`
	MaxTokens       int     `yaml:"max_tokens" envconfig:"OPENAI_MAX_TOKENS"`
	Temperature     float64 `yaml:"temperature" envconfig:"OPENAI_TEMPERATURE"`
	TimeoutSeconds  int     `yaml:"timeout_seconds" envconfig:"OPENAI_TIMEOUT_SECONDS"`
}

// ChatConfig bounds outbound messages and dialog history.
type ChatConfig struct {
	// MaxMessageLen is the transport message size limit used by the chunker.
	MaxMessageLen int `yaml:"max_message_len" envconfig:"CHAT_MAX_MESSAGE_LEN"`
	// HistoryLimit caps the number of transcript turns kept per dialog; 0 -> unlimited.
	HistoryLimit int `yaml:"history_limit" envconfig:"CHAT_HISTORY_LIMIT"`
}

// DatabaseConfig holds settings-store connection parameters.
// An empty host disables persistence entirely.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// Enabled reports whether a database is configured at all.
func (d DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(d.Host) != ""
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateInlineQuery identifies inline query updates for rate limit exclusions.
	UpdateInlineQuery = "inline_query"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
// - "inline_query": inline query updates
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the whole bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Chat      ChatConfig      `yaml:"chat"`
	Database  DatabaseConfig  `yaml:"database"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
		return fmt.Errorf("openai.api_key is required")
	}
	if strings.TrimSpace(cfg.OpenAI.BaseURL) == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com"
	}
	cfg.OpenAI.BaseURL = strings.TrimSuffix(strings.TrimSpace(cfg.OpenAI.BaseURL), "/")
	if strings.TrimSpace(cfg.OpenAI.Model) == "" {
		cfg.OpenAI.Model = "gpt-3.5-turbo"
	}
	if strings.TrimSpace(cfg.OpenAI.VisionModel) == "" {
		cfg.OpenAI.VisionModel = "gpt-4o"
	}
	if strings.TrimSpace(cfg.OpenAI.TranscribeModel) == "" {
		cfg.OpenAI.TranscribeModel = "whisper-1"
	}
	if cfg.OpenAI.MaxTokens <= 0 {
		cfg.OpenAI.MaxTokens = 1024
	}
	if cfg.OpenAI.Temperature < 0 || cfg.OpenAI.Temperature > 2 {
		return fmt.Errorf("openai.temperature must be within [0, 2]")
	}
	if cfg.OpenAI.Temperature == 0 {
		cfg.OpenAI.Temperature = 0.5
	}
	if cfg.OpenAI.TimeoutSeconds <= 0 {
		cfg.OpenAI.TimeoutSeconds = 120
	}

	if cfg.Chat.MaxMessageLen <= 0 {
		cfg.Chat.MaxMessageLen = 4096
	}
	if cfg.Chat.HistoryLimit < 0 {
		return fmt.Errorf("chat.history_limit must be >= 0")
	}

	if cfg.Database.Enabled() {
		if strings.TrimSpace(cfg.Database.Port) == "" {
			cfg.Database.Port = "5432"
		}
		if strings.TrimSpace(cfg.Database.SSLMode) == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 4
		}
		if strings.TrimSpace(cfg.Database.Name) == "" {
			return fmt.Errorf("database.name is required when database.host is set")
		}
	}

	allowed := map[string]struct{}{
		UpdateCallback:    {},
		UpdateMessage:     {},
		UpdateInlineQuery: {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message, inline_query", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	return nil
}
