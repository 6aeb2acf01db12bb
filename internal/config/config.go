package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Config keeps runtime settings for the client.
type Config struct {
	Env             string        `env:"TASKBOARD_ENV" env-default:"local"`
	TelegramToken   string        `env:"TELEGRAM_TOKEN" env-required:"true"`
	DatabaseURL     string        `env:"DATABASE_URL" env-default:"taskboard.db"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
	API             APIConfig
	Auth            AuthConfig
	Session         SessionConfig
}

type APIConfig struct {
	BaseURL   string        `env:"API_URL" env-default:"http://localhost:8000/api"`
	TasksPath string        `env:"API_TASKS_PATH" env-default:"/tasks"`
	Timeout   time.Duration `env:"API_TIMEOUT" env-default:"10s"`
}

type AuthConfig struct {
	TokenKey    string `env:"AUTH_TOKEN_KEY" env-default:"access_token"`
	TokenPrefix string `env:"AUTH_TOKEN_PREFIX" env-default:"Bearer"`
}

type SessionConfig struct {
	ErrorTTL      time.Duration `env:"ERROR_TTL" env-default:"5s"`
	IdleTimeout   time.Duration `env:"SESSION_IDLE_TIMEOUT" env-default:"30m"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" env-default:"1m"`
}

// Load reads an optional dotenv file (".env" when none is given) and then the
// process environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("unknown env %q", c.Env)
	}

	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("parse API_URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API_URL must be http or https, got %q", c.API.BaseURL)
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive")
	}
	if c.Session.ErrorTTL <= 0 {
		return fmt.Errorf("ERROR_TTL must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be positive")
	}
	return nil
}
