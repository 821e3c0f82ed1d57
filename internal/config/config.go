package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from DAYPULSE_* variables.
type Config struct {
	DBPath           string        `envconfig:"DB_PATH"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"warn"` // debug|info|warn|error
	Timezone         string        `envconfig:"TIMEZONE" default:"Local"`
	Namespace        string        `envconfig:"NAMESPACE" default:"daypulse:"`
	AdWatchThreshold int           `envconfig:"AD_WATCH_THRESHOLD" default:"3"`
	Presenter        string        `envconfig:"PRESENTER" default:"log"` // log|nats|telegram
	NATSURL          string        `envconfig:"NATS_URL" default:"nats://127.0.0.1:4222"`
	NATSSubject      string        `envconfig:"NATS_SUBJECT" default:"daypulse.notifications"`
	TelegramToken    string        `envconfig:"TELEGRAM_TOKEN"`
	TelegramChatID   int64         `envconfig:"TELEGRAM_CHAT_ID"`
	HTTPAddr         string        `envconfig:"HTTP_ADDR" default:":8080"`
	LocationTimeout  time.Duration `envconfig:"LOCATION_TIMEOUT" default:"10s"`
	LocationMaxAge   time.Duration `envconfig:"LOCATION_MAX_AGE" default:"1m"`
	HighAccuracy     bool          `envconfig:"LOCATION_HIGH_ACCURACY" default:"true"`
	SyncInterval     time.Duration `envconfig:"SYNC_INTERVAL" default:"5s"` // 0 disables
}

// Presenter kinds.
const (
	PresenterLog      = "log"
	PresenterNATS     = "nats"
	PresenterTelegram = "telegram"
)

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("DAYPULSE", &cfg); err != nil {
		return cfg, err
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	return cfg, cfg.Validate()
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Presenter {
	case PresenterLog:
	case PresenterNATS:
		if c.NATSSubject == "" {
			return errors.New("DAYPULSE_NATS_SUBJECT is required for the nats presenter")
		}
	case PresenterTelegram:
		if c.TelegramToken == "" || c.TelegramChatID == 0 {
			return errors.New("DAYPULSE_TELEGRAM_TOKEN and DAYPULSE_TELEGRAM_CHAT_ID are required for the telegram presenter")
		}
	default:
		return fmt.Errorf("unknown presenter %q", c.Presenter)
	}
	if c.Namespace == "" {
		return errors.New("DAYPULSE_NAMESPACE must not be empty")
	}
	if c.AdWatchThreshold < 0 {
		return errors.New("DAYPULSE_AD_WATCH_THRESHOLD must not be negative")
	}
	if c.SyncInterval < 0 {
		return errors.New("DAYPULSE_SYNC_INTERVAL must not be negative")
	}
	return nil
}

// DefaultDBPath is ~/.daypulse/daypulse.db.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".daypulse", "daypulse.db")
}
