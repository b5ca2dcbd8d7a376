// pkg/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"campushours/pkg/hours"
)

// Config is the full runtime configuration. Every field has a working
// default so an absent file yields a usable setup.
type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Browser struct {
		ExecPath       string `yaml:"exec_path"`
		Headless       *bool  `yaml:"headless"`
		NavTimeoutSec  int    `yaml:"nav_timeout_seconds"`
		SettleDelaySec int    `yaml:"settle_delay_seconds"`
	} `yaml:"browser"`

	Scrape struct {
		Attempts        int `yaml:"attempts"`
		RetryDelaySec   int `yaml:"retry_delay_seconds"`
		FacilityTimeout int `yaml:"facility_timeout_seconds"`
	} `yaml:"scrape"`

	Schedule struct {
		Cron        string `yaml:"cron"`
		MetricsPort int    `yaml:"metrics_port"`
	} `yaml:"schedule"`

	// URLOverrides replaces a facility's source URL, keyed by facility type.
	URLOverrides map[string]string `yaml:"url_overrides"`
}

// Load reads the YAML file at path and applies defaults. An empty path
// returns the defaults untouched.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "data/facilities.db"
	}
	if c.Browser.Headless == nil {
		headless := true
		c.Browser.Headless = &headless
	}
	if c.Browser.NavTimeoutSec == 0 {
		c.Browser.NavTimeoutSec = 45
	}
	if c.Browser.SettleDelaySec == 0 {
		c.Browser.SettleDelaySec = 3
	}
	if c.Scrape.Attempts == 0 {
		c.Scrape.Attempts = 2
	}
	if c.Scrape.RetryDelaySec == 0 {
		c.Scrape.RetryDelaySec = 5
	}
	if c.Scrape.FacilityTimeout == 0 {
		c.Scrape.FacilityTimeout = 120
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 */6 * * *"
	}
	if c.Schedule.MetricsPort == 0 {
		c.Schedule.MetricsPort = 9190
	}
}

func (c *Config) validate() error {
	for key := range c.URLOverrides {
		if _, err := hours.ParseFacilityType(key); err != nil {
			return fmt.Errorf("url_overrides: %w", err)
		}
	}
	return nil
}

// Facilities returns the default facility set with URL overrides applied.
func (c *Config) Facilities() []hours.Facility {
	list := hours.DefaultFacilities()
	for index := range list {
		if override, ok := c.URLOverrides[string(list[index].Type)]; ok && override != "" {
			list[index].URL = override
		}
	}
	return list
}

// NavTimeout is the per-navigation deadline.
func (c *Config) NavTimeout() time.Duration {
	return time.Duration(c.Browser.NavTimeoutSec) * time.Second
}

// SettleDelay is the fixed wait after a content selector matches, giving
// client-side script time to populate the tables.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Browser.SettleDelaySec) * time.Second
}

// RetryDelay is the initial backoff delay between extraction attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Scrape.RetryDelaySec) * time.Second
}

// FacilityTimeout bounds one facility's whole extraction phase.
func (c *Config) FacilityTimeout() time.Duration {
	return time.Duration(c.Scrape.FacilityTimeout) * time.Second
}
