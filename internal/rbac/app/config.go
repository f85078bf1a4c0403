package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Issuer         string        `envconfig:"WARDEN_ISSUER" default:"warden"`                 // issuer claim of access tokens
	Audience       []string      `envconfig:"WARDEN_AUDIENCE" default:"warden-console"`       // comma separated audience claim
	KeyID          string        `envconfig:"WARDEN_KEY_ID" default:"warden-key-001"`         // kid header of issued tokens
	SigningKeyFile string        `envconfig:"WARDEN_SIGNING_KEY_FILE" default:"signing.pem"`  // Ed25519 PEM, generated when missing
	AccessTokenTTL time.Duration `envconfig:"WARDEN_ACCESS_TOKEN_TTL" default:"60m"`          // lifetime of access tokens
	DatabaseFile   string        `envconfig:"WARDEN_DATABASE_FILE" default:"warden.db"`       // SQLite database file
	PepperFile     string        `envconfig:"WARDEN_PEPPER_FILE" default:"pepper"`            // password pepper, generated when missing

	Seed          bool   `envconfig:"WARDEN_SEED" default:"true"` // seed an empty database on start
	AdminUsername string `envconfig:"WARDEN_ADMIN_USERNAME" default:"admin"`
	AdminEmail    string `envconfig:"WARDEN_ADMIN_EMAIL" default:"admin@example.com"`
	AdminPassword string `envconfig:"WARDEN_ADMIN_PASSWORD"` // generated and logged once when empty

	Env                  string        `envconfig:"ENV" default:"dev"`
	LogLevel             string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat            string        `envconfig:"LOG_FORMAT" default:"json"`
	Port                 int           `envconfig:"PORT" default:"8080"`
	ShutdownGracePeriod  time.Duration `envconfig:"SHUTDOWN_GRACE_PERIOD" default:"10s"`
	HousekeepingInterval time.Duration `envconfig:"HOUSEKEEPING_INTERVAL" default:"1h"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.Issuer == "" {
		errs = append(errs, errors.New("WARDEN_ISSUER must not be empty"))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("WARDEN_ACCESS_TOKEN_TTL must be positive"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, errors.New("PORT must be between 1 and 65535"))
	}
	return errors.Join(errs...)
}

// IsDevelopment reports whether the service runs outside production, which
// relaxes the HTTPS-only security headers.
func (c Config) IsDevelopment() bool {
	return c.Env == "dev" || c.Env == "test"
}
