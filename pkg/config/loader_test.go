package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "entityd.yaml", `
server:
  port: 9090
  basePath: /api
store:
  name: widgets
  scope: request
  maxPageSize: 50
log:
  level: debug
  format: json
seed:
  inline:
    - id: 1
      name: first
  files:
    - seed/*.json
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/api", cfg.Server.BasePath)
	assert.Equal(t, DefaultReadTimeout, cfg.Server.ReadTimeout, "unset fields keep defaults")
	assert.Equal(t, int64(DefaultMaxBodySize), cfg.Server.MaxBodySize)
	assert.Equal(t, "widgets", cfg.Store.Name)
	assert.Equal(t, "request", cfg.Store.Scope)
	assert.Equal(t, 50, cfg.Store.MaxPageSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	require.Len(t, cfg.Seed.Inline, 1)
	assert.Equal(t, "first", cfg.Seed.Inline[0]["name"])
	assert.Equal(t, []string{"seed/*.json"}, cfg.Seed.Files)
	assert.Equal(t, dir, cfg.BaseDir)
}

func TestLoadFromFile_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "entityd.json", `{
  "server": {"port": 0},
  "seed": {"inline": [{"id": 7, "price": 1.25}]}
}`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Server.Port)
	assert.Equal(t, DefaultBasePath, cfg.Server.BasePath)
	assert.Equal(t, DefaultResourceName, cfg.Store.Name)

	seed, err := cfg.LoadSeed()
	require.NoError(t, err)
	require.Len(t, seed, 1)
	assert.Equal(t, int64(7), seed[0].ID)
}

func TestLoadFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		wantErr error
	}{
		{"empty", "empty.yaml", "  \n", ErrEmptyFile},
		{"invalid yaml", "bad.yaml", "server: [port", ErrInvalidYAML},
		{"invalid json", "bad.json", `{"server":`, ErrInvalidJSON},
		{"unknown key", "unknown.yaml", "serverr:\n  port: 1\n", ErrSchema},
		{"bad scope", "scope.yaml", "store:\n  scope: prototype\n", ErrSchema},
		{"port out of range", "port.yaml", "server:\n  port: 70000\n", ErrSchema},
		{"seed without id", "seed.yaml", "seed:\n  inline:\n    - name: x\n", ErrSchema},
		{"non-integer id", "seedid.json", `{"seed":{"inline":[{"id":1.5}]}}`, ErrSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			_, err := LoadFromFile(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFromFile(filepath.Join(dir, "nope.yaml"))
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := LoadFromFile(dir)
		assert.Error(t, err)
	})
}

func TestParse_SemanticErrors(t *testing.T) {
	_, err := Parse([]byte(`
seed:
  inline:
    - {id: 1}
    - {id: 1}
`), FormatYAML)
	require.Error(t, err)

	var result *ValidationResult
	require.True(t, errors.As(err, &result))
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "seed.inline[1]", result.Errors[0].Path)
	assert.Contains(t, result.Errors[0].Message, "duplicate id 1")
}

func TestParse_ExpandsEnvVars(t *testing.T) {
	t.Setenv("ENTITYD_TEST_PORT", "7070")

	cfg, err := Parse([]byte(`
server:
  port: ${ENTITYD_TEST_PORT}
  basePath: ${ENTITYD_TEST_UNSET:-/fallback}
`), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/fallback", cfg.Server.BasePath)
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatForPath("a.yaml"))
	assert.Equal(t, FormatYAML, FormatForPath("a.YML"))
	assert.Equal(t, FormatJSON, FormatForPath("a.json"))
	assert.Equal(t, FormatJSON, FormatForPath("a"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"base path without slash", func(c *Config) { c.Server.BasePath = "api" }, "server.basePath"},
		{"base path trailing slash", func(c *Config) { c.Server.BasePath = "/api/" }, "server.basePath"},
		{"resource name with slash", func(c *Config) { c.Store.Name = "a/b" }, "store.name"},
		{"unknown scope", func(c *Config) { c.Store.Scope = "session" }, "store.scope"},
		{"zero page size", func(c *Config) { c.Store.MaxPageSize = 0 }, "store.maxPageSize"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"negative port", func(c *Config) { c.Server.Port = -1 }, "server.port"},
		{"resource over health route", func(c *Config) { c.Server.BasePath = ""; c.Store.Name = "health" }, "store.name"},
		{"resource over admin route", func(c *Config) { c.Server.BasePath = "/admin"; c.Store.Name = "stats" }, "store.name"},
		{"resource over openapi document", func(c *Config) { c.Store.Name = "openapi.json" }, "store.name"},
	}

	require.NoError(t, Default().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			var result *ValidationResult
			require.True(t, errors.As(err, &result), "want *ValidationResult, got %v", err)
			require.Len(t, result.Errors, 1)
			assert.Equal(t, tt.path, result.Errors[0].Path)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvPort, "6060")
	t.Setenv(EnvScope, "request")
	t.Setenv(EnvBasePath, "")
	t.Setenv(EnvLogLevel, "WARN")
	t.Setenv(EnvLogFormat, "json")

	cfg := Default()
	require.NoError(t, ApplyEnv(cfg))

	assert.Equal(t, 6060, cfg.Server.Port)
	assert.Equal(t, "request", cfg.Store.Scope)
	assert.Equal(t, "", cfg.Server.BasePath)
	assert.Equal(t, "WARN", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestApplyEnv_Invalid(t *testing.T) {
	t.Setenv(EnvPort, "eighty")
	assert.Error(t, ApplyEnv(Default()))

	t.Setenv(EnvPort, "")
	t.Setenv(EnvScope, "bogus")
	assert.Error(t, ApplyEnv(Default()))
}

func TestSchema_IsEmbedded(t *testing.T) {
	assert.Contains(t, Schema(), `"$schema"`)
	assert.NoError(t, ValidateSchema(map[string]any{}))
}
