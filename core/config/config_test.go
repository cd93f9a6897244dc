package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/guidepipe/core"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2.0, cfg.Fetch.RateLimitSecond)
	assert.Equal(t, 3, cfg.MakeCode.Lookback)
	assert.Equal(t, 1.0, cfg.Images.DelaySeconds)
	assert.Equal(t, 4500, cfg.Translate.MaxChunkChars)
	assert.Equal(t, filepath.Join(".", "output", ".batch_state.json"), cfg.StatePath())
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "guidepipe.yaml", `
output:
  dir: guides
  format: pdf
translate:
  provider: gemini
  target: de
makecode:
  lookback: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "guides", cfg.Output.Dir)
	assert.Equal(t, "pdf", cfg.Output.Format)
	assert.Equal(t, "gemini", cfg.Translate.Provider)
	assert.Equal(t, "de", cfg.Translate.Target)
	assert.Equal(t, 5, cfg.MakeCode.Lookback)
	// Untouched values keep their defaults.
	assert.Equal(t, "en", cfg.Translate.Source)
	assert.True(t, cfg.Browser.Headless)
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "guidepipe.toml", `
[fetch]
rate_limit_seconds = 0.5
max_retries = 1

[enhance]
workers = 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Fetch.RateLimitSecond)
	assert.Equal(t, 1, cfg.Fetch.MaxRetries)
	assert.Equal(t, 2, cfg.Enhance.Workers)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "c.yaml", "output:\n  dir: from-file\n")
	t.Setenv("GUIDEPIPE_OUTPUT_DIR", "from-env")
	t.Setenv("GUIDEPIPE_MAKECODE_KEYWORDS", "code,blokken")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Output.Dir)
	assert.Equal(t, []string{"code", "blokken"}, cfg.MakeCode.Keywords)
}

func TestDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, ".env.keys", "GUIDEPIPE_TRANSLATE_DEEPL_API_KEY=secret-key\n")
	t.Cleanup(func() { os.Unsetenv("GUIDEPIPE_TRANSLATE_DEEPL_API_KEY") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "secret-key", cfg.Translate.DeepLAPIKey)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	t.Run("unknown extension", func(t *testing.T) {
		path := writeFile(t, dir, "c.ini", "x=1")
		_, err := Load(path)
		assert.ErrorIs(t, err, core.ErrInvalidConfig)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeFile(t, dir, "bad.yaml", "output: [")
		_, err := Load(path)
		assert.ErrorIs(t, err, core.ErrInvalidConfig)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"format", func(c *Config) { c.Output.Format = "docx" }},
		{"empty dir", func(c *Config) { c.Output.Dir = "" }},
		{"negative rate", func(c *Config) { c.Fetch.RateLimitSecond = -1 }},
		{"negative image delay", func(c *Config) { c.Images.DelaySeconds = -1 }},
		{"workers", func(c *Config) { c.Enhance.Workers = 0 }},
		{"lookback", func(c *Config) { c.MakeCode.Lookback = 0 }},
		{"provider", func(c *Config) { c.Translate.Provider = "babelfish" }},
		{"qr size", func(c *Config) { c.QRCode.Size = 10 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), core.ErrInvalidConfig)
		})
	}

	t.Run("provider ignored when translation disabled", func(t *testing.T) {
		cfg := Default()
		cfg.Translate.Enabled = false
		cfg.Translate.Provider = ""
		assert.NoError(t, cfg.Validate())
	})
}

func TestPaths(t *testing.T) {
	cfg := Default()
	cfg.Output.Root = "/data"
	assert.Equal(t, "/data/output", cfg.OutputPath())
	cfg.Output.StateFile = "/tmp/state.json"
	assert.Equal(t, "/tmp/state.json", cfg.StatePath())
	assert.Equal(t, 1500*time.Millisecond, Seconds(1.5))
}
