package app

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the app shell.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// AppVariant selects which frontend this shell instance serves.
	AppVariant string `envconfig:"APP_VARIANT" default:"customer" validate:"oneof=admin customer taaskr"`

	// APIOrigin overrides the backend origin; empty defers to the
	// gateway's own resolution (TAASKR_API_ORIGIN env var, then the local
	// development fallback).
	APIOrigin string `envconfig:"TAASKR_API_ORIGIN" default:""`

	// AccessCookieName is the cookie whose presence the route guard
	// checks.
	AccessCookieName string `envconfig:"ACCESS_COOKIE_NAME" default:"access_token"`

	// LoginPath is the unguarded route the guard redirects to.
	LoginPath string `envconfig:"LOGIN_PATH" default:"/login" validate:"startswith=/"`
}

// LoadConfig reads configuration from environment variables and validates
// the result.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
