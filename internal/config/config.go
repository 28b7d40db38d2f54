// Package config loads service settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/couchcryptid/vaccine-coverage-etl/internal/domain"
)

// DefaultOWIDURL is the OWID grapher endpoint for WHO/UNICEF (WUENIC) global
// vaccination coverage, requested with column short names so the coverage
// columns carry stable antigen codes.
const DefaultOWIDURL = "https://ourworldindata.org/grapher/global-vaccination-coverage.csv?v=1&csvType=full&useColumnShortNames=true"

// Config holds all settings for the loader and viewer, populated from
// environment variables.
type Config struct {
	OWIDURL      string        `env:"OWID_URL"`
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"60s"`

	DBPath      string `env:"DB_PATH" envDefault:"vaccination.db"`
	ArtifactDir string `env:"ARTIFACT_DIR"`

	// Refresh filter. Empty allowlists keep all antigens/countries.
	YearMin   int      `env:"YEAR_MIN" envDefault:"1980"`
	YearMax   int      `env:"YEAR_MAX" envDefault:"2100"`
	Antigens  []string `env:"ANTIGENS" envSeparator:","`
	Countries []string `env:"COUNTRIES" envSeparator:","`

	// Focus pair for loader byproducts (series CSV, chart PNG) and the
	// logged campaign analysis. Both or neither must be set.
	FocusCountry string `env:"FOCUS_COUNTRY"`
	FocusAntigen string `env:"FOCUS_ANTIGEN"`

	// Campaign analysis window.
	CampaignStart int `env:"CAMPAIGN_START" envDefault:"2017"`
	CampaignPre   int `env:"CAMPAIGN_PRE" envDefault:"5"`
	CampaignPost  int `env:"CAMPAIGN_POST" envDefault:"5"`

	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads configuration from environment variables, applying defaults
// where unset, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.OWIDURL == "" {
		cfg.OWIDURL = DefaultOWIDURL
	}
	if _, err := url.ParseRequestURI(cfg.OWIDURL); err != nil {
		return nil, fmt.Errorf("invalid OWID_URL: %w", err)
	}
	if cfg.FetchTimeout <= 0 {
		return nil, errors.New("FETCH_TIMEOUT must be positive")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if cfg.YearMin > cfg.YearMax {
		return nil, fmt.Errorf("YEAR_MIN %d exceeds YEAR_MAX %d", cfg.YearMin, cfg.YearMax)
	}
	if cfg.CampaignPre < 1 || cfg.CampaignPost < 1 {
		return nil, errors.New("CAMPAIGN_PRE and CAMPAIGN_POST must be at least 1")
	}
	if (cfg.FocusCountry == "") != (cfg.FocusAntigen == "") {
		return nil, errors.New("FOCUS_COUNTRY and FOCUS_ANTIGEN must be set together")
	}

	return cfg, nil
}

// Filter returns the refresh filter built from the configured year range and
// allowlists.
func (c *Config) Filter() domain.Filter {
	return domain.Filter{
		YearMin:   c.YearMin,
		YearMax:   c.YearMax,
		Antigens:  c.Antigens,
		Countries: c.Countries,
	}
}

// CampaignWindow returns the configured before/after analysis window.
func (c *Config) CampaignWindow() domain.CampaignWindow {
	return domain.CampaignWindow{
		StartYear: c.CampaignStart,
		PreYears:  c.CampaignPre,
		PostYears: c.CampaignPost,
	}
}
