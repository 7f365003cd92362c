// Package config loads application configuration from environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Row-store backends selectable with CERTREGISTRY_STORE.
const (
	StoreSheets = "sheets"
	StoreSQLite = "sqlite"
)

// legacyCredentialsKey is read when CERTREGISTRY_GOOGLE_CREDENTIALS is unset.
const legacyCredentialsKey = "GOOGLE_CREDENTIALS"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	AdminPassword     string   `env:"CERTREGISTRY_ADMIN_PASSWORD,required,notEmpty"`
	Store             string   `env:"CERTREGISTRY_STORE" envDefault:"sheets"`
	GoogleCredentials string   `env:"CERTREGISTRY_GOOGLE_CREDENTIALS"`
	SheetID           string   `env:"CERTREGISTRY_SHEET_ID" envDefault:"1-R-D15DgJJMW9RZuQ0x9F6HDjNRJJVFlohFh9J86Fmg"`
	Worksheet         string   `env:"CERTREGISTRY_WORKSHEET" envDefault:"Sheet1 web"`
	DBPath            string   `env:"CERTREGISTRY_DB_PATH" envDefault:"certregistry.db"`
	ListenAddr        string   `env:"CERTREGISTRY_LISTEN_ADDR" envDefault:"127.0.0.1:8080"`
	AllowedOrigins    []string `env:"CERTREGISTRY_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads configuration from the environment and returns a validated Config.
// A .env file in the working directory is loaded first when present; values
// already set in the environment win over the file.
//
// CERTREGISTRY_ADMIN_PASSWORD is always required. With the default sheets
// store, service-account JSON must be supplied in CERTREGISTRY_GOOGLE_CREDENTIALS
// (or GOOGLE_CREDENTIALS).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.GoogleCredentials == "" {
		cfg.GoogleCredentials = os.Getenv(legacyCredentialsKey)
	}

	cfg.AllowedOrigins = cleanList(cfg.AllowedOrigins)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate checks cross-field rules that struct tags cannot express.
func (c *Config) validate() error {
	if strings.TrimSpace(c.AdminPassword) == "" {
		return errors.New("config: CERTREGISTRY_ADMIN_PASSWORD must not be blank")
	}

	switch c.Store {
	case StoreSheets:
		if strings.TrimSpace(c.GoogleCredentials) == "" {
			return errors.New("config: CERTREGISTRY_GOOGLE_CREDENTIALS is required for the sheets store")
		}
		if !json.Valid([]byte(c.GoogleCredentials)) {
			return errors.New("config: CERTREGISTRY_GOOGLE_CREDENTIALS is not valid JSON")
		}
		if strings.TrimSpace(c.SheetID) == "" {
			return errors.New("config: CERTREGISTRY_SHEET_ID must not be blank")
		}
		if strings.TrimSpace(c.Worksheet) == "" {
			return errors.New("config: CERTREGISTRY_WORKSHEET must not be blank")
		}
	case StoreSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			return errors.New("config: CERTREGISTRY_DB_PATH must not be blank")
		}
	default:
		return fmt.Errorf("config: CERTREGISTRY_STORE must be %q or %q, got %q", StoreSheets, StoreSQLite, c.Store)
	}

	return nil
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
