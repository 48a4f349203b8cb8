package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// TransportTelegram serves conversations through the Telegram Bot API.
	TransportTelegram = "telegram"
	// TransportWhatsApp serves conversations through Twilio's WhatsApp webhook.
	TransportWhatsApp = "whatsapp"
)

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateMessage identifies text message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateDocument identifies document updates for rate limit exclusions.
	UpdateDocument = "document"
)

// Defaults applied by Normalize.
const (
	DefaultInactivityTimeout = 5 * time.Minute
	DefaultSendTimeout       = 10 * time.Second
	DefaultWhatsAppPath      = "/whatsapp/webhook"
)

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies Telegram webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// WhatsAppConfig holds the Twilio account and the inbound webhook listener.
type WhatsAppConfig struct {
	AccountSID string `yaml:"account_sid" envconfig:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `yaml:"auth_token" envconfig:"TWILIO_AUTH_TOKEN"`
	// From is the sender number in Twilio format, e.g. "whatsapp:+14155238886".
	From   string `yaml:"from" envconfig:"TWILIO_WHATSAPP_FROM"`
	Listen string `yaml:"listen" envconfig:"WHATSAPP_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WHATSAPP_PORT"`
	Path   string `yaml:"path" envconfig:"WHATSAPP_PATH"`
	// PublicURL is the externally visible webhook URL Twilio signs requests against.
	PublicURL         string `yaml:"public_url" envconfig:"WHATSAPP_PUBLIC_URL"`
	ValidateSignature bool   `yaml:"validate_signature" envconfig:"WHATSAPP_VALIDATE_SIGNATURE"`
}

// BotConfig tunes the conversation state machine.
type BotConfig struct {
	InactivityTimeout time.Duration `yaml:"inactivity_timeout" envconfig:"BOT_INACTIVITY_TIMEOUT"`
	SendTimeout       time.Duration `yaml:"send_timeout" envconfig:"BOT_SEND_TIMEOUT"`
	JournalTimeout    time.Duration `yaml:"journal_timeout" envconfig:"BOT_JOURNAL_TIMEOUT"`
	TriggerWords      []string      `yaml:"trigger_words" envconfig:"BOT_TRIGGER_WORDS"`
	ExitWords         []string      `yaml:"exit_words" envconfig:"BOT_EXIT_WORDS"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// RateLimitConfig holds settings for per-user rate limiting on Telegram.
// ExcludeUpdates accepts update kinds that bypass limiting: "message", "document".
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Listen disables it
// for Telegram; the WhatsApp transport always serves /metrics on its own listener.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

// DatabaseConfig holds the handoff journal connection. An empty Host disables the journal.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	MigrationsDir  string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// Enabled reports whether a database was configured.
func (d DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(d.Host) != ""
}

// Config aggregates the whole application configuration.
type Config struct {
	Transport string          `yaml:"transport" envconfig:"TRANSPORT"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	WhatsApp  WhatsAppConfig  `yaml:"whatsapp"`
	Bot       BotConfig       `yaml:"bot"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Database  DatabaseConfig  `yaml:"database"`
}

// Load reads an optional .env file, the YAML config at path and then the
// environment, which takes precedence over the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

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

// Normalize validates required fields for the selected transport and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	if cfg.Transport == "" {
		cfg.Transport = TransportTelegram
	}
	switch cfg.Transport {
	case TransportTelegram:
		if err := normalizeTelegram(cfg); err != nil {
			return err
		}
	case TransportWhatsApp:
		if err := normalizeWhatsApp(&cfg.WhatsApp); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid transport %q; allowed: telegram, whatsapp", cfg.Transport)
	}

	if err := normalizeBot(cfg); err != nil {
		return err
	}
	return normalizeRateLimit(&cfg.RateLimit)
}

func normalizeTelegram(cfg *Config) error {
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" {
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
	return nil
}

func normalizeWhatsApp(wa *WhatsAppConfig) error {
	if strings.TrimSpace(wa.AccountSID) == "" || strings.TrimSpace(wa.AuthToken) == "" {
		return fmt.Errorf("whatsapp.account_sid and whatsapp.auth_token are required")
	}
	wa.From = strings.TrimSpace(wa.From)
	if wa.From == "" {
		return fmt.Errorf("whatsapp.from is required")
	}
	if !strings.HasPrefix(wa.From, "whatsapp:") {
		wa.From = "whatsapp:" + wa.From
	}
	if wa.Port <= 0 {
		return fmt.Errorf("whatsapp.port must be > 0")
	}
	if strings.TrimSpace(wa.Path) == "" {
		wa.Path = DefaultWhatsAppPath
	}
	if !strings.HasPrefix(wa.Path, "/") {
		wa.Path = "/" + wa.Path
	}
	if wa.ValidateSignature && strings.TrimSpace(wa.PublicURL) == "" {
		return fmt.Errorf("whatsapp.public_url is required when whatsapp.validate_signature is enabled")
	}
	return nil
}

func normalizeBot(cfg *Config) error {
	bot := &cfg.Bot
	if bot.InactivityTimeout < 0 || bot.SendTimeout < 0 || bot.JournalTimeout < 0 {
		return fmt.Errorf("bot timeouts must be >= 0")
	}
	if bot.InactivityTimeout == 0 {
		bot.InactivityTimeout = DefaultInactivityTimeout
	}
	if bot.SendTimeout == 0 {
		bot.SendTimeout = DefaultSendTimeout
	}
	if bot.JournalTimeout == 0 {
		bot.JournalTimeout = bot.SendTimeout
	}

	bot.TriggerWords = normalizeWords(bot.TriggerWords)
	if len(bot.TriggerWords) == 0 {
		bot.TriggerWords = []string{"hola"}
		if cfg.Transport == TransportTelegram {
			bot.TriggerWords = append(bot.TriggerWords, "/start")
		}
	}
	bot.ExitWords = normalizeWords(bot.ExitWords)
	if len(bot.ExitWords) == 0 {
		bot.ExitWords = []string{"salir"}
	}
	for _, w := range bot.ExitWords {
		for _, t := range bot.TriggerWords {
			if w == t {
				return fmt.Errorf("bot word %q cannot be both a trigger and an exit word", w)
			}
		}
	}
	return nil
}

func normalizeRateLimit(rl *RateLimitConfig) error {
	if rl.IntervalMS < 0 {
		return fmt.Errorf("rate_limit.interval_ms must be >= 0")
	}
	for i, v := range rl.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		switch key {
		case "", UpdateMessage, UpdateDocument:
			rl.ExcludeUpdates[i] = key
		default:
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: message, document", v)
		}
	}
	return nil
}

func normalizeWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out
}
