// pkg/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campushours/pkg/hours"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadEmptyPathYieldsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data/facilities.db", cfg.Database.Path)
	require.NotNil(t, cfg.Browser.Headless)
	assert.True(t, *cfg.Browser.Headless)
	assert.Equal(t, 45*time.Second, cfg.NavTimeout())
	assert.Equal(t, 3*time.Second, cfg.SettleDelay())
	assert.Equal(t, 2, cfg.Scrape.Attempts)
	assert.Equal(t, 5*time.Second, cfg.RetryDelay())
	assert.Equal(t, 2*time.Minute, cfg.FacilityTimeout())
	assert.Equal(t, "0 */6 * * *", cfg.Schedule.Cron)
	assert.Equal(t, 9190, cfg.Schedule.MetricsPort)
	assert.Len(t, cfg.Facilities(), 5)
}

func TestLoadOverridesAndDefaultsMix(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /var/lib/campushours/hours.db
browser:
  headless: false
  nav_timeout_seconds: 60
scrape:
  attempts: 3
schedule:
  cron: "30 5 * * *"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/campushours/hours.db", cfg.Database.Path)
	require.NotNil(t, cfg.Browser.Headless)
	assert.False(t, *cfg.Browser.Headless, "explicit false survives defaulting")
	assert.Equal(t, 60*time.Second, cfg.NavTimeout())
	assert.Equal(t, 3*time.Second, cfg.SettleDelay(), "unset fields still defaulted")
	assert.Equal(t, 3, cfg.Scrape.Attempts)
	assert.Equal(t, "30 5 * * *", cfg.Schedule.Cron)
}

func TestURLOverrides(t *testing.T) {
	path := writeConfig(t, `
url_overrides:
  library: https://staging.example.edu/library/hours.php
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	var libraryURL string
	for _, facility := range cfg.Facilities() {
		if facility.Type == hours.Library {
			libraryURL = facility.URL
		}
	}
	assert.Equal(t, "https://staging.example.edu/library/hours.php", libraryURL)
}

func TestURLOverridesRejectUnknownFacility(t *testing.T) {
	path := writeConfig(t, `
url_overrides:
  parking: https://example.edu/parking
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "database: [not a mapping")
	_, err := Load(path)
	assert.Error(t, err)
}
