package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains server configuration parameters.
type Config struct {
	Addr          string `env:"ROLLBOOK_ADDR" envDefault:":8080"`
	LogLevel      int    `env:"LOG_LEVEL" envDefault:"0"`
	JWTSigningKey string `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`

	Accounts  Accounts  `envPrefix:"ACCOUNTS_"`
	Store     Store     `envPrefix:"STORE_"`
	Provision Provision `envPrefix:"PROVISION_"`
}

// Accounts configures the external account service and the optional remote
// secret-issuance endpoint.
type Accounts struct {
	BaseURL     string        `env:"BASE_URL" envDefault:""`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"10s"`
	IssuerURL   string        `env:"ISSUER_URL" envDefault:""`
	EmailDomain string        `env:"EMAIL_DOMAIN" envDefault:"students.rollbook.local"`
}

// Store configures the record store. An empty DSN selects the in-memory
// stores, which keep local runs and tests self-contained.
type Store struct {
	DSN string `env:"DSN" envDefault:""`
}

// Provision configures the provisioning core.
type Provision struct {
	SecretLength      int           `env:"SECRET_LENGTH" envDefault:"12"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"1h"`
}

// Load reads configuration from environment variables so main stays lean.
func Load() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
