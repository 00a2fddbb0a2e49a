package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dshills/codelens/internal/analysis"
	"github.com/dshills/codelens/internal/gate"
	"github.com/dshills/codelens/internal/providers"
	"github.com/dshills/codelens/internal/source"
	"github.com/dshills/codelens/internal/static"
)

const (
	// EnvPrefix prefixes every environment variable read by codelens.
	EnvPrefix = "CODELENS"
	// LocalFile is the project-level config file looked up in the working
	// directory.
	LocalFile = "codelens.yaml"
)

// Config represents the codelens configuration.
type Config struct {
	Source   SourceConfig    `mapstructure:"source" yaml:"source"`
	Static   StaticConfig    `mapstructure:"static" yaml:"static"`
	Backend  BackendConfig   `mapstructure:"backend" yaml:"backend"`
	Analysis AnalysisConfig  `mapstructure:"analysis" yaml:"analysis"`
	Output   OutputConfig    `mapstructure:"output" yaml:"output"`
	Privacy  PrivacyConfig   `mapstructure:"privacy" yaml:"privacy"`
	Gate     gate.Thresholds `mapstructure:"gate" yaml:"gate"`
	Log      LogConfig       `mapstructure:"log" yaml:"log"`
}

// SourceConfig controls which files are sent for analysis.
type SourceConfig struct {
	Root         string   `mapstructure:"root" yaml:"root"`
	Extensions   []string `mapstructure:"extensions" yaml:"extensions"`
	Include      []string `mapstructure:"include" yaml:"include,omitempty"`
	Exclude      []string `mapstructure:"exclude" yaml:"exclude,omitempty"`
	MaxFileBytes int64    `mapstructure:"max_file_bytes" yaml:"max_file_bytes"`
}

// StaticConfig locates static-analysis reports. Reports overrides the
// default path per tool.
type StaticConfig struct {
	Root    string            `mapstructure:"root" yaml:"root"`
	Reports map[string]string `mapstructure:"reports" yaml:"reports,omitempty"`
}

// BackendConfig selects and tunes the model backend.
type BackendConfig struct {
	Provider       string            `mapstructure:"provider" yaml:"provider"`
	BaseURL        string            `mapstructure:"base_url" yaml:"base_url"`
	APIKey         string            `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Models         map[string]string `mapstructure:"models" yaml:"models"`
	TimeoutSeconds int               `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Temperature    float64           `mapstructure:"temperature" yaml:"temperature"`
	TopP           float64           `mapstructure:"top_p" yaml:"top_p"`
	MaxTokens      int               `mapstructure:"max_tokens" yaml:"max_tokens"`
	Retries        int               `mapstructure:"retries" yaml:"retries"`
}

// AnalysisConfig controls what is asked of the backend.
type AnalysisConfig struct {
	Kinds       []string `mapstructure:"kinds" yaml:"kinds"`
	RulesFile   string   `mapstructure:"rules_file" yaml:"rules_file,omitempty"`
	Concurrency int      `mapstructure:"concurrency" yaml:"concurrency"`
	MaxFindings int      `mapstructure:"max_findings" yaml:"max_findings"`
}

// OutputConfig holds artifact paths. An empty path disables that artifact.
type OutputConfig struct {
	HTML     string `mapstructure:"html" yaml:"html"`
	JSON     string `mapstructure:"json" yaml:"json"`
	SARIF    string `mapstructure:"sarif" yaml:"sarif"`
	Markdown string `mapstructure:"markdown" yaml:"markdown"`
	Title    string `mapstructure:"title" yaml:"title"`
}

// PrivacyConfig controls privacy/redaction behavior.
type PrivacyConfig struct {
	RedactSecrets bool     `mapstructure:"redact_secrets" yaml:"redact_secrets"`
	RedactPaths   []string `mapstructure:"redact_paths" yaml:"redact_paths,omitempty"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	models := make(map[string]string, len(analysis.DefaultModels))
	for k, m := range analysis.DefaultModels {
		models[string(k)] = m
	}
	reports := make(map[string]string, len(static.DefaultPaths))
	for tool, p := range static.DefaultPaths {
		reports[tool] = p
	}
	return Config{
		Source: SourceConfig{
			Root:         "src",
			Extensions:   []string{".java"},
			Include:      []string{},
			Exclude:      []string{},
			MaxFileBytes: source.DefaultMaxFileBytes,
		},
		Static: StaticConfig{Root: ".", Reports: reports},
		Backend: BackendConfig{
			Provider:       "ollama",
			BaseURL:        "http://localhost:11434",
			Models:         models,
			TimeoutSeconds: int(providers.DefaultTimeout / time.Second),
			Temperature:    analysis.DefaultTemperature,
			TopP:           analysis.DefaultTopP,
			MaxTokens:      analysis.DefaultMaxTokens,
			Retries:        0,
		},
		Analysis: AnalysisConfig{
			Kinds:       []string{string(analysis.KindSecurity), string(analysis.KindQuality)},
			Concurrency: 1,
			MaxFindings: 25,
		},
		Output: OutputConfig{
			HTML:  "scan-results/ai-analysis-report.html",
			JSON:  "scan-results/ai-analysis-summary.json",
			Title: "AI-Powered Security & Quality Analysis Report",
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
			RedactPaths:   []string{"**/.env", "**/*secrets*"},
		},
		Gate: gate.DefaultThresholds(),
		Log:  LogConfig{Level: "info"},
	}
}

// SetDefaults registers every default with v so that environment variables
// and flags can override individual keys.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("source.root", d.Source.Root)
	v.SetDefault("source.extensions", d.Source.Extensions)
	v.SetDefault("source.include", d.Source.Include)
	v.SetDefault("source.exclude", d.Source.Exclude)
	v.SetDefault("source.max_file_bytes", d.Source.MaxFileBytes)

	v.SetDefault("static.root", d.Static.Root)
	for tool, p := range d.Static.Reports {
		v.SetDefault("static.reports."+tool, p)
	}

	v.SetDefault("backend.provider", d.Backend.Provider)
	v.SetDefault("backend.base_url", d.Backend.BaseURL)
	v.SetDefault("backend.api_key", d.Backend.APIKey)
	for kind, model := range d.Backend.Models {
		v.SetDefault("backend.models."+kind, model)
	}
	v.SetDefault("backend.timeout_seconds", d.Backend.TimeoutSeconds)
	v.SetDefault("backend.temperature", d.Backend.Temperature)
	v.SetDefault("backend.top_p", d.Backend.TopP)
	v.SetDefault("backend.max_tokens", d.Backend.MaxTokens)
	v.SetDefault("backend.retries", d.Backend.Retries)

	v.SetDefault("analysis.kinds", d.Analysis.Kinds)
	v.SetDefault("analysis.rules_file", d.Analysis.RulesFile)
	v.SetDefault("analysis.concurrency", d.Analysis.Concurrency)
	v.SetDefault("analysis.max_findings", d.Analysis.MaxFindings)

	v.SetDefault("output.html", d.Output.HTML)
	v.SetDefault("output.json", d.Output.JSON)
	v.SetDefault("output.sarif", d.Output.SARIF)
	v.SetDefault("output.markdown", d.Output.Markdown)
	v.SetDefault("output.title", d.Output.Title)

	v.SetDefault("privacy.redact_secrets", d.Privacy.RedactSecrets)
	v.SetDefault("privacy.redact_paths", d.Privacy.RedactPaths)

	v.SetDefault("gate.max_high", d.Gate.MaxHigh)
	v.SetDefault("gate.max_medium", d.Gate.MaxMedium)
	v.SetDefault("gate.max_total", d.Gate.MaxTotal)
	v.SetDefault("gate.max_quality", d.Gate.MaxQuality)
	v.SetDefault("gate.max_errors", d.Gate.MaxErrors)
	v.SetDefault("gate.fail_on", d.Gate.FailOn)

	v.SetDefault("log.level", d.Log.Level)
}

// NewViper returns a viper instance with defaults and environment binding.
// CODELENS_BACKEND_API_KEY (or the shorter CODELENS_API_KEY) supplies the
// backend credential so it never has to live in a file.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("backend.api_key", EnvPrefix+"_BACKEND_API_KEY", EnvPrefix+"_API_KEY")
	return v
}

// ConfigDir returns the platform-appropriate config directory for codelens.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "codelens"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "codelens"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "codelens"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "codelens"), nil
	default:
		return filepath.Join(home, ".config", "codelens"), nil
	}
}

// ConfigPath returns the full path to the user config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config file into v and returns the effective config:
// defaults <- file <- env <- flags bound on v. With an empty path,
// ./codelens.yaml and then the user config file are tried and a missing
// file is not an error.
func Load(v *viper.Viper, path string) (Config, error) {
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func findConfigFile() string {
	candidates := []string{LocalFile}
	if p, err := ConfigPath(); err == nil {
		candidates = append(candidates, p)
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks values that would otherwise fail late in a run.
func (c Config) Validate() error {
	var errs []error
	if _, err := providers.New(c.Backend.Provider, providers.Options{}); err != nil {
		errs = append(errs, fmt.Errorf("backend.provider: %w", err))
	}
	if c.Backend.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("backend.timeout_seconds must be positive"))
	}
	if c.Backend.MaxTokens <= 0 {
		errs = append(errs, errors.New("backend.max_tokens must be positive"))
	}
	if c.Backend.Retries < 0 {
		errs = append(errs, errors.New("backend.retries must not be negative"))
	}
	for kind := range c.Backend.Models {
		if _, err := analysis.ParseKind(kind); err != nil {
			errs = append(errs, fmt.Errorf("backend.models: %w", err))
		}
	}
	if _, err := analysis.ParseKinds(c.Analysis.Kinds); err != nil {
		errs = append(errs, fmt.Errorf("analysis.kinds: %w", err))
	} else if len(c.Analysis.Kinds) == 0 {
		errs = append(errs, errors.New("analysis.kinds must not be empty"))
	}
	if c.Analysis.Concurrency < 1 {
		errs = append(errs, errors.New("analysis.concurrency must be at least 1"))
	}
	if len(c.Source.Extensions) == 0 {
		errs = append(errs, errors.New("source.extensions must not be empty"))
	}
	if !gate.ValidFailOn(c.Gate.FailOn) {
		errs = append(errs, fmt.Errorf("gate.fail_on: unknown severity %q", c.Gate.FailOn))
	}
	if hclog.LevelFromString(c.Log.Level) == hclog.NoLevel {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	return errors.Join(errs...)
}

// Timeout returns the per-request backend timeout.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// ModelMap returns the per-kind model names. Unknown kinds are skipped.
func (b BackendConfig) ModelMap() map[analysis.Kind]string {
	out := make(map[analysis.Kind]string, len(b.Models))
	for name, model := range b.Models {
		if k, err := analysis.ParseKind(name); err == nil {
			out[k] = model
		}
	}
	return out
}

// SetField sets a single key on v, converting value to the type of the
// key's current value. Lists are comma separated.
func SetField(v *viper.Viper, key, value string) error {
	key = strings.ToLower(key)
	if !isKnown(v, key) {
		return fmt.Errorf("unknown config key: %s", key)
	}
	switch v.Get(key).(type) {
	case int, int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", key, err)
		}
		v.Set(key, n)
	case float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s must be a number: %w", key, err)
		}
		v.Set(key, f)
	case bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be true or false: %w", key, err)
		}
		v.Set(key, b)
	case []string, []any:
		var items []string
		for _, s := range strings.Split(value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, s)
			}
		}
		v.Set(key, items)
	default:
		v.Set(key, value)
	}
	return nil
}

func isKnown(v *viper.Viper, key string) bool {
	for _, k := range v.AllKeys() {
		if k == key {
			return true
		}
	}
	return false
}
