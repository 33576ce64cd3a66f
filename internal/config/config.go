// Package config loads settings from the environment, an optional .env file
// and an optional YAML file named by CONFIG_FILE.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"uzpass/internal/dedupe"
	"uzpass/internal/passslot"
	"uzpass/internal/storage"
)

// Config is the settings of every command. Each command reads the sections it needs.
type Config struct {
	Log      Log            `yaml:"log"`
	HTTP     HTTP           `yaml:"http"`
	Telegram Telegram       `yaml:"telegram"`
	PassSlot PassSlot       `yaml:"passslot"`
	NATS     NATS           `yaml:"nats"`
	Redis    dedupe.Config  `yaml:"redis"`
	Storage  storage.Config `yaml:"storage"`

	// PDFToText is the pdftotext binary; empty means look it up in PATH.
	PDFToText string `yaml:"pdftotext" env:"PDFTOTEXT_PATH"`
}

type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

type HTTP struct {
	Addr           string   `yaml:"addr" env:"API_ADDR" env-default:":8080"`
	APIKey         string   `yaml:"api_key" env:"API_KEY"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ORIGINS" env-separator:"," env-default:"*"`
	MaxBodyBytes   int64    `yaml:"max_body_bytes" env:"MAX_BODY_BYTES" env-default:"10485760"`
}

type Telegram struct {
	Token       string `yaml:"token" env:"TELEGRAM_API_TOKEN"`
	WebhookHost string `yaml:"webhook_host" env:"WEBHOOK_HOST"`
	Port        int    `yaml:"port" env:"PORT" env-default:"8443"`
	Debug       bool   `yaml:"debug" env:"TELEGRAM_DEBUG"`
}

type PassSlot struct {
	APIKey     string `yaml:"api_key" env:"PASSSLOT_API_KEY"`
	BaseURL    string `yaml:"base_url" env:"PASSSLOT_BASE_URL" env-default:"https://api.passslot.com"`
	TemplateID string `yaml:"template_id" env:"PASSSLOT_TEMPLATE_ID" env-default:"5786360806637568"`
}

type NATS struct {
	URL           string `yaml:"url" env:"NATS_URL" env-default:"nats://127.0.0.1:4222"`
	Subject       string `yaml:"subject" env:"NATS_SUBJECT" env-default:"uzpass.pages"`
	ResultSubject string `yaml:"result_subject" env:"NATS_RESULT_SUBJECT" env-default:"uzpass.tickets"`
	Queue         string `yaml:"queue" env:"NATS_QUEUE" env-default:"uzpass-workers"`
	MetricsAddr   string `yaml:"metrics_addr" env:"WORKER_METRICS_ADDR" env-default:":9102"`
}

// Load reads the given .env files (missing files are skipped), then the YAML
// file named by CONFIG_FILE if set, then the environment. Environment values
// win over the file.
func Load(dotenv ...string) (*Config, error) {
	for _, f := range dotenv {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return cfg, nil
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	return cfg, nil
}

// NewPassSlot builds the pass API client.
func (c *Config) NewPassSlot() (*passslot.Client, error) {
	if c.PassSlot.APIKey == "" {
		return nil, errors.New("PASSSLOT_API_KEY is required")
	}
	client := passslot.New(c.PassSlot.APIKey)
	client.BaseURL = c.PassSlot.BaseURL
	client.TemplateID = c.PassSlot.TemplateID
	return client, nil
}

// WebhookPath is the path Telegram posts updates to.
func (t Telegram) WebhookPath() string {
	return "/webhook/" + t.Token
}

// WebhookURL joins WebhookHost with WebhookPath. It is empty when no webhook
// host is configured, which selects long polling.
func (t Telegram) WebhookURL() (string, error) {
	if t.WebhookHost == "" {
		return "", nil
	}
	base, err := url.Parse(t.WebhookHost)
	if err != nil {
		return "", fmt.Errorf("parse WEBHOOK_HOST: %w", err)
	}
	return base.ResolveReference(&url.URL{Path: t.WebhookPath()}).String(), nil
}
