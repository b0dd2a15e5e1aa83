package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8787", cfg.Server.Address())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 8, cfg.Matcher.Threshold)
	assert.Equal(t, 168*time.Hour, cfg.Corpus.TTL)
	assert.Equal(t, "sql", cfg.Corpus.Cache)
	assert.False(t, cfg.AI.Enabled)
	assert.Equal(t, 5, cfg.AI.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.AI.InitialBackoff)
	assert.Equal(t, time.Second, cfg.AI.BatchDelay)
	assert.False(t, cfg.Plex.Configured())
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "holidarr.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
ai:
  enabled: true
  provider: anthropic
  batch_delay: 250ms
plex:
  server_url: http://plex:32400
  token: abc
  movie_sections: ["1", "3"]
  holidays: [Christmas, halloween]
`), 0o644))

	t.Setenv("HOLIDARR_AI_API_KEY", "from-env")
	t.Setenv("HOLIDARR_SERVER_PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.True(t, cfg.AI.Enabled)
	assert.Equal(t, "anthropic", cfg.AI.Provider)
	assert.Equal(t, "from-env", cfg.AI.APIKey)
	assert.Equal(t, 250*time.Millisecond, cfg.AI.BatchDelay)
	assert.True(t, cfg.Plex.Configured())
	assert.Equal(t, []string{"1", "3"}, cfg.Plex.MovieSections)
	assert.Equal(t, []string{"Christmas", "halloween"}, cfg.Plex.Holidays)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres" }},
		{"unknown corpus cache", func(c *Config) { c.Corpus.Cache = "memcached" }},
		{"unknown provider", func(c *Config) { c.AI.Provider = "llama" }},
		{"negative retries", func(c *Config) { c.AI.MaxRetries = -1 }},
		{"zero threshold", func(c *Config) { c.Matcher.Threshold = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
