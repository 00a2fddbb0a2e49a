package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codelens/internal/analysis"
	"github.com/dshills/codelens/internal/gate"
)

// isolate keeps the user's own config file out of Load.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "ollama", cfg.Backend.Provider)
	assert.Equal(t, "src", cfg.Source.Root)
	assert.Equal(t, []string{".java"}, cfg.Source.Extensions)
	assert.Equal(t, []string{"security", "quality"}, cfg.Analysis.Kinds)
	assert.Equal(t, 1, cfg.Analysis.Concurrency)
	assert.Equal(t, 0, cfg.Backend.Retries)
	assert.Equal(t, "scan-results/ai-analysis-report.html", cfg.Output.HTML)
	assert.Equal(t, "scan-results/ai-analysis-summary.json", cfg.Output.JSON)
	assert.Empty(t, cfg.Output.SARIF)
	assert.True(t, cfg.Privacy.RedactSecrets)
	assert.Equal(t, 0, cfg.Gate.MaxHigh)
	assert.Equal(t, "codellama:13b", cfg.Backend.Models["security"])
	assert.Equal(t, "target/spotbugsXml.xml", cfg.Static.Reports["spotbugs"])
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "codelens.yaml")
	yaml := `
source:
  root: app/src
  extensions: [".java", ".kt"]
backend:
  provider: openai
  base_url: https://llm.internal
  models:
    security: gpt-4o
analysis:
  kinds: [general]
  concurrency: 4
gate:
  max_high: 3
  fail_on: medium
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, "app/src", cfg.Source.Root)
	assert.Equal(t, []string{".java", ".kt"}, cfg.Source.Extensions)
	assert.Equal(t, "openai", cfg.Backend.Provider)
	assert.Equal(t, "https://llm.internal", cfg.Backend.BaseURL)
	assert.Equal(t, "gpt-4o", cfg.Backend.Models["security"])
	assert.Equal(t, "deepseek-coder:6.7b", cfg.Backend.Models["quality"], "unset models keep their defaults")
	assert.Equal(t, []string{"general"}, cfg.Analysis.Kinds)
	assert.Equal(t, 4, cfg.Analysis.Concurrency)
	assert.Equal(t, 3, cfg.Gate.MaxHigh)
	assert.Equal(t, "medium", cfg.Gate.FailOn)
	assert.Equal(t, gate.Unlimited, cfg.Gate.MaxTotal)
}

func TestLoad_LocalFile(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(LocalFile, []byte("log:\n  level: debug\n"), 0o600))

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Env(t *testing.T) {
	isolate(t)
	t.Setenv("CODELENS_BACKEND_PROVIDER", "vllm")
	t.Setenv("CODELENS_BACKEND_RETRIES", "2")
	t.Setenv("CODELENS_ANALYSIS_KINDS", "security,general")
	t.Setenv("CODELENS_API_KEY", "sk-test")

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, "vllm", cfg.Backend.Provider)
	assert.Equal(t, 2, cfg.Backend.Retries)
	assert.Equal(t, []string{"security", "general"}, cfg.Analysis.Kinds)
	assert.Equal(t, "sk-test", cfg.Backend.APIKey)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	t.Setenv("CODELENS_BACKEND_PROVIDER", "lmstudio")

	v := NewViper()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString("backend:\n  provider: openai\n")))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	assert.Equal(t, "lmstudio", cfg.Backend.Provider)
}

func TestLoad_Invalid(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analysis:\n  kinds: [style]\n"), 0o600))

	_, err := Load(NewViper(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis.kinds")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"provider", func(c *Config) { c.Backend.Provider = "bard" }, "backend.provider"},
		{"timeout", func(c *Config) { c.Backend.TimeoutSeconds = 0 }, "backend.timeout_seconds"},
		{"retries", func(c *Config) { c.Backend.Retries = -1 }, "backend.retries"},
		{"model kind", func(c *Config) { c.Backend.Models["style"] = "x" }, "backend.models"},
		{"no kinds", func(c *Config) { c.Analysis.Kinds = nil }, "analysis.kinds"},
		{"concurrency", func(c *Config) { c.Analysis.Concurrency = 0 }, "analysis.concurrency"},
		{"extensions", func(c *Config) { c.Source.Extensions = nil }, "source.extensions"},
		{"fail on", func(c *Config) { c.Gate.FailOn = "critical" }, "gate.fail_on"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Backend.Provider = "openai"
	cfg.Analysis.Kinds = []string{"general"}
	cfg.Output.SARIF = "scan-results/ai-analysis.sarif"
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSetField(t *testing.T) {
	v := NewViper()

	require.NoError(t, SetField(v, "backend.provider", "openai"))
	require.NoError(t, SetField(v, "analysis.concurrency", "8"))
	require.NoError(t, SetField(v, "backend.temperature", "0.3"))
	require.NoError(t, SetField(v, "privacy.redact_secrets", "false"))
	require.NoError(t, SetField(v, "analysis.kinds", "security, general"))
	require.NoError(t, SetField(v, "source.exclude", "**/generated/**"))
	require.NoError(t, SetField(v, "Backend.Models.General", "llama3"))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	assert.Equal(t, "openai", cfg.Backend.Provider)
	assert.Equal(t, 8, cfg.Analysis.Concurrency)
	assert.InDelta(t, 0.3, cfg.Backend.Temperature, 1e-9)
	assert.False(t, cfg.Privacy.RedactSecrets)
	assert.Equal(t, []string{"security", "general"}, cfg.Analysis.Kinds)
	assert.Equal(t, []string{"**/generated/**"}, cfg.Source.Exclude)
	assert.Equal(t, "llama3", cfg.Backend.Models["general"])
}

func TestSetField_Errors(t *testing.T) {
	v := NewViper()
	assert.Error(t, SetField(v, "backend.nope", "x"))
	assert.Error(t, SetField(v, "analysis.concurrency", "many"))
	assert.Error(t, SetField(v, "privacy.redact_secrets", "maybe"))
}

func TestBackendHelpers(t *testing.T) {
	b := Default().Backend
	assert.Equal(t, 120*time.Second, b.Timeout())

	b.Models["style"] = "ignored"
	models := b.ModelMap()
	assert.Len(t, models, 3)
	assert.Equal(t, "mistral:7b", models[analysis.KindGeneral])
}

func TestConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	p, err := ConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "codelens", "config.yaml"), p)
}
