// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Kvnbbg/cfa/internal/auth"
)

// Config holds everything the api binary needs at startup.
type Config struct {
	Env         string        `env:"CFA_ENV" envDefault:"development"`
	Addr        string        `env:"CFA_ADDR" envDefault:":8080"`
	DatabaseDSN string        `env:"CFA_PG_DSN"`
	AuthSecret  string        `env:"CFA_AUTH_SECRET"`
	TokenTTL    time.Duration `env:"CFA_TOKEN_TTL" envDefault:"24h"`
	CORSOrigins []string      `env:"CFA_CORS_ORIGINS" envSeparator:","`

	// Admin bootstrap, honored outside production only.
	AdminEmail    string `env:"CFA_ADMIN_EMAIL"`
	AdminPassword string `env:"CFA_ADMIN_PASSWORD"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	return cfg, nil
}

// Production reports whether this is a production-like deployment.
func (c Config) Production() bool {
	return c.Env == "production"
}

// SigningKey resolves the token signing key. Production refuses to start
// without a configured secret. Elsewhere a random ephemeral key is generated;
// the caller should warn, since previously issued tokens stop verifying after
// a restart.
func (c Config) SigningKey() (key []byte, ephemeral bool, err error) {
	secret := strings.TrimSpace(c.AuthSecret)
	if secret != "" {
		return []byte(secret), false, nil
	}
	if c.Production() {
		return nil, false, errors.New("config: CFA_AUTH_SECRET must be set in production")
	}
	key, err = auth.NewEphemeralKey()
	if err != nil {
		return nil, false, err
	}
	return key, true, nil
}
