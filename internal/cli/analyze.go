package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/dshills/codelens/internal/analysis"
	"github.com/dshills/codelens/internal/config"
	"github.com/dshills/codelens/internal/output"
	"github.com/dshills/codelens/internal/pipeline"
	"github.com/dshills/codelens/internal/providers"
	"github.com/dshills/codelens/internal/redact"
	"github.com/dshills/codelens/internal/source"
	"github.com/dshills/codelens/internal/static"
)

// analyzeBindings maps analyze flags onto config keys.
var analyzeBindings = map[string]string{
	"source-root":  "source.root",
	"extensions":   "source.extensions",
	"include":      "source.include",
	"exclude":      "source.exclude",
	"static-root":  "static.root",
	"provider":     "backend.provider",
	"base-url":     "backend.base_url",
	"kinds":        "analysis.kinds",
	"rules":        "analysis.rules_file",
	"concurrency":  "analysis.concurrency",
	"max-findings": "analysis.max_findings",
	"retries":      "backend.retries",
	"html":         "output.html",
	"json":         "output.json",
	"sarif":        "output.sarif",
	"markdown":     "output.markdown",
	"title":        "output.title",
}

func (a *app) analyzeCmd() *cobra.Command {
	var (
		format   string
		noRedact bool
		runGate  bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze source files and write the reports",
		Long: "Analyze discovers source files, collects static-analysis reports, sends every file to the " +
			"configured backend once per analysis kind and writes the HTML, JSON and optional SARIF artifacts.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			if noRedact {
				cfg.Privacy.RedactSecrets = false
				fmt.Fprintln(a.stderr, "WARNING: secret redaction is disabled")
			}
			return a.runAnalyze(cmd.Context(), cfg, format, runGate)
		},
	}

	f := cmd.Flags()
	f.String("source-root", "", "Directory searched for source files")
	f.StringSlice("extensions", nil, "Source file extensions (comma-separated)")
	f.StringSlice("include", nil, "Include path globs (comma-separated)")
	f.StringSlice("exclude", nil, "Exclude path globs (comma-separated)")
	f.String("static-root", "", "Project root the static-analysis report paths are relative to")
	f.String("provider", "", "Backend provider (ollama, openai, lmstudio, vllm)")
	f.String("base-url", "", "Backend base URL")
	f.StringSlice("kinds", nil, "Analysis kinds (security, quality, general)")
	f.String("rules", "", "Rules file path")
	f.Int("concurrency", 0, "Number of analyses in flight")
	f.Int("max-findings", 0, "Maximum findings requested per file and kind")
	f.Int("retries", 0, "Retries for transient backend failures")
	f.String("html", "", "HTML report path (empty disables)")
	f.String("json", "", "JSON summary path (empty disables)")
	f.String("sarif", "", "SARIF log path (empty disables)")
	f.String("markdown", "", "Markdown report path (empty disables)")
	f.String("title", "", "Report title")
	f.StringVar(&format, "format", "text", "Console output format (text, json, markdown, sarif, html, none)")
	f.BoolVar(&noRedact, "no-redact", false, "Disable secret redaction (use with caution)")
	f.BoolVar(&runGate, "gate", false, "Evaluate the quality gate after writing the reports")

	for flag, key := range analyzeBindings {
		_ = a.v.BindPFlag(key, f.Lookup(flag))
	}
	return cmd
}

func (a *app) runAnalyze(ctx context.Context, cfg config.Config, format string, runGate bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if format != "none" {
		if _, err := output.GetWriter(format); err != nil {
			return withCode(ExitUsageError, err)
		}
	}
	logger := a.logger(cfg)

	units, err := source.Discover(source.Options{
		Root:         cfg.Source.Root,
		Extensions:   cfg.Source.Extensions,
		Include:      cfg.Source.Include,
		Exclude:      cfg.Source.Exclude,
		MaxFileBytes: cfg.Source.MaxFileBytes,
	})
	if err != nil {
		var de *source.DiscoveryError
		if errors.As(err, &de) {
			return withCode(ExitUsageError, err)
		}
		return withCode(ExitRuntimeError, err)
	}
	logger.Info("discovered source files", "count", len(units), "root", cfg.Source.Root)

	tools := static.NewCollector(
		static.DefaultTools(cfg.Static.Root, cfg.Static.Reports),
		logger.Named("static"),
	).Collect()

	analyzer, err := newAnalyzer(cfg, logger)
	if err != nil {
		return withCode(ExitRuntimeError, err)
	}
	kinds, err := analysis.ParseKinds(cfg.Analysis.Kinds)
	if err != nil {
		return withCode(ExitRuntimeError, err)
	}

	p := pipeline.New(analyzer, pipeline.Options{
		Kinds:       kinds,
		Concurrency: cfg.Analysis.Concurrency,
		Redactor:    redact.New(cfg.Privacy.RedactSecrets, cfg.Privacy.RedactPaths),
		Logger:      logger.Named("pipeline"),
	})
	results, runErr := p.Run(ctx, units)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return withCode(ExitRuntimeError, runErr)
	}

	doc := output.NewDocument(cfg.Output.Title, version, tools, results)
	artifacts := []output.Artifact{
		{Format: "html", Path: cfg.Output.HTML},
		{Format: "json", Path: cfg.Output.JSON},
		{Format: "sarif", Path: cfg.Output.SARIF},
		{Format: "markdown", Path: cfg.Output.Markdown},
	}
	if err := output.WriteArtifacts(doc, artifacts); err != nil {
		return withCode(ExitRuntimeError, err)
	}
	for _, art := range artifacts {
		if art.Path != "" {
			logger.Info("wrote report", "format", art.Format, "path", art.Path)
		}
	}

	if format != "none" {
		if err := output.WriteTo(a.stdout, doc, format); err != nil {
			return withCode(ExitRuntimeError, err)
		}
	}

	if runErr != nil {
		return withCode(ExitRuntimeError, fmt.Errorf("analysis interrupted, reports are partial: %w", runErr))
	}
	if runGate {
		return a.evaluateGate(doc.Summary, cfg.Gate)
	}
	return nil
}

// newAnalyzer builds the backend client, its retry wrapper and the analyzer.
func newAnalyzer(cfg config.Config, logger hclog.Logger) (*analysis.Analyzer, error) {
	client, err := providers.New(cfg.Backend.Provider, providers.Options{
		BaseURL: cfg.Backend.BaseURL,
		APIKey:  cfg.Backend.APIKey,
		Timeout: cfg.Backend.Timeout(),
	})
	if err != nil {
		return nil, err
	}
	client = pipeline.WithRetry(client, cfg.Backend.Retries, pipeline.DefaultBackoff, logger.Named("retry"))

	var rules *analysis.Rules
	if cfg.Analysis.RulesFile != "" {
		rules, err = analysis.LoadRules(cfg.Analysis.RulesFile)
		if err != nil {
			return nil, err
		}
	}

	return analysis.NewAnalyzer(client, analysis.AnalyzerOptions{
		Models:  cfg.Backend.ModelMap(),
		Prompts: analysis.DefaultPrompts{Rules: rules, MaxFindings: cfg.Analysis.MaxFindings},
		Rules:   rules,
		Sampling: analysis.Sampling{
			Temperature: cfg.Backend.Temperature,
			TopP:        cfg.Backend.TopP,
			MaxTokens:   cfg.Backend.MaxTokens,
		},
		Logger: logger.Named("analyzer"),
	}), nil
}
