package analysis

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/dshills/codelens/internal/logging"
	"github.com/dshills/codelens/internal/providers"
	"github.com/dshills/codelens/internal/source"
)

// Sampling parameters used for every backend call unless configured otherwise.
const (
	DefaultTemperature = 0.1
	DefaultTopP        = 0.9
	DefaultMaxTokens   = 2048
)

// DefaultModels maps each kind to the model it is sent to by default.
var DefaultModels = map[Kind]string{
	KindSecurity: "codellama:13b",
	KindQuality:  "deepseek-coder:6.7b",
	KindGeneral:  "mistral:7b",
}

// Sampling holds the generation parameters sent with each request.
type Sampling struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// DefaultSampling returns the low-temperature settings used for reviews.
func DefaultSampling() Sampling {
	return Sampling{Temperature: DefaultTemperature, TopP: DefaultTopP, MaxTokens: DefaultMaxTokens}
}

// Analyzer runs one (file, kind) analysis against a backend client and turns
// the reply into an Outcome. It never returns an error: every failure becomes
// a placeholder so that the rest of the run continues.
type Analyzer struct {
	client   providers.Client
	models   map[Kind]string
	prompts  PromptBuilder
	rules    *Rules
	sampling Sampling
	logger   hclog.Logger
}

// AnalyzerOptions configures NewAnalyzer. Zero values fall back to defaults.
type AnalyzerOptions struct {
	Models   map[Kind]string
	Prompts  PromptBuilder
	Rules    *Rules
	Sampling Sampling
	Logger   hclog.Logger
}

// NewAnalyzer creates an Analyzer bound to client.
func NewAnalyzer(client providers.Client, opts AnalyzerOptions) *Analyzer {
	models := make(map[Kind]string, len(DefaultModels))
	for k, m := range DefaultModels {
		models[k] = m
	}
	for k, m := range opts.Models {
		if m != "" {
			models[k] = m
		}
	}

	prompts := opts.Prompts
	if prompts == nil {
		prompts = DefaultPrompts{Rules: opts.Rules}
	}
	sampling := opts.Sampling
	if sampling == (Sampling{}) {
		sampling = DefaultSampling()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Analyzer{
		client:   client,
		models:   models,
		prompts:  prompts,
		rules:    opts.Rules,
		sampling: sampling,
		logger:   logger,
	}
}

// Model returns the model name used for kind. Kinds without an entry use the
// general model.
func (a *Analyzer) Model(kind Kind) string {
	if m, ok := a.models[kind]; ok && m != "" {
		return m
	}
	return a.models[KindGeneral]
}

// Analyze sends unit to the backend with the instructions for kind.
func (a *Analyzer) Analyze(ctx context.Context, unit source.Unit, kind Kind) Outcome {
	model := a.Model(kind)
	prompt := a.prompts.Build(kind, unit.Path, unit.Content)
	log := a.logger.With("path", unit.Path, "kind", string(kind), "model", model)

	start := time.Now()
	reply, err := a.client.Generate(ctx, providers.Request{
		Model:       model,
		System:      prompt.System,
		Prompt:      prompt.User,
		Temperature: a.sampling.Temperature,
		TopP:        a.sampling.TopP,
		MaxTokens:   a.sampling.MaxTokens,
	})
	if err != nil {
		log.Error("backend call failed", "error", err)
		return Failed(ErrorBackend, err, "")
	}
	log.Debug("backend replied", "tokens", reply.TokensUsed, "elapsed", time.Since(start))

	fs, err := Extract(reply.Text)
	if err != nil {
		log.Error("could not extract findings", "error", err)
		return Failed(ErrorExtraction, err, reply.Text)
	}

	a.rules.Apply(&fs)
	log.Info("analyzed", "vulnerabilities", len(fs.Vulnerabilities), "quality_issues", len(fs.QualityIssues))
	return Succeeded(fs)
}
