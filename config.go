package certs

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-acme/lego/v4/lego"
	"github.com/pelletier/go-toml/v2"
)

// DefaultPropagationDelayMS is how long the workflow pauses after a challenge
// TXT record is published before the CA is asked to validate it.
const DefaultPropagationDelayMS = 5000

// Config holds everything one issuance run needs. Values come from a TOML
// file; secrets can be overridden from the environment.
type Config struct {
	APIToken           string   `toml:"api_token" env:"CERTS_API_TOKEN" comment:"DigitalOcean API token (set via env)"`
	Domains            []string `toml:"domains" comment:"Domains for the certificate (wildcards allowed)"`
	MaintainerEmail    string   `toml:"maintainer_email" env:"CERTS_MAINTAINER_EMAIL" comment:"Contact carried in the ACME client identifier"`
	SubscriberEmail    string   `toml:"subscriber_email" env:"CERTS_SUBSCRIBER_EMAIL" comment:"ACME account contact"`
	Staging            bool     `toml:"staging" env:"CERTS_STAGING" comment:"Use the Let's Encrypt staging directory"`
	SavePath           string   `toml:"save_path" comment:"Directory for privkey.pem and fullchain.pem (defaults to the working directory)"`
	PropagationDelayMS int      `toml:"propagation_delay_ms" comment:"Pause after publishing a TXT record before validation, in milliseconds"`
}

// domainRe accepts plain DNS names and a single leading wildcard label.
var domainRe = regexp.MustCompile(`^(\*\.)?([a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)

func (c *Config) Validate() error {
	if c.APIToken == "" {
		return errors.New("config: api_token cannot be empty")
	}
	if len(c.Domains) == 0 {
		return errors.New("config: domains cannot be empty")
	}
	for _, d := range c.Domains {
		if !domainRe.MatchString(d) {
			return fmt.Errorf("config: invalid domain %q", d)
		}
	}
	if c.MaintainerEmail == "" {
		return errors.New("config: maintainer_email cannot be empty")
	}
	if c.SubscriberEmail == "" {
		return errors.New("config: subscriber_email cannot be empty")
	}
	if c.PropagationDelayMS < 0 {
		return errors.New("config: propagation_delay_ms cannot be negative")
	}
	return nil
}

// DirectoryURL returns the ACME directory selected by the staging flag.
func (c *Config) DirectoryURL() string {
	if c.Staging {
		return lego.LEDirectoryStaging
	}
	return lego.LEDirectoryProduction
}

func (c *Config) propagationDelay() time.Duration {
	ms := c.PropagationDelayMS
	if ms == 0 {
		ms = DefaultPropagationDelayMS
	}
	return time.Duration(ms) * time.Millisecond
}

// LoadConfig reads the TOML file at path, applies environment overrides and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
