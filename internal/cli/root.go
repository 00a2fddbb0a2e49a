package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dshills/codelens/internal/config"
	"github.com/dshills/codelens/internal/logging"
)

const version = "0.3.0"

// Exit codes.
const (
	ExitSuccess      = 0
	ExitGateFailed   = 1
	ExitUsageError   = 2
	ExitRuntimeError = 4
)

// exitError carries the process exit code out of a command handler.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// app is the state shared by one invocation of the command tree.
type app struct {
	v       *viper.Viper
	cfgFile string
	stdout  io.Writer
	stderr  io.Writer
}

// Run executes the root command with the process arguments and returns an
// exit code.
func Run() int {
	return execute(os.Args[1:], os.Stdout, os.Stderr)
}

func execute(args []string, stdout, stderr io.Writer) int {
	a := &app{v: config.NewViper(), stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// Cobra already printed the error: unknown command, bad flag or args.
	return ExitUsageError
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "codelens",
		Short: "AI-assisted security and quality report aggregator for CI",
		Long: "Codelens collects static-analysis reports, asks a language model to review every source file, " +
			"and writes an HTML report, a JSON summary for quality gates and an optional SARIF log.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (default ./codelens.yaml, then user config dir)")
	root.PersistentFlags().String("log-level", "", "Log level (trace, debug, info, warn, error)")
	_ = a.v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(a.analyzeCmd())
	root.AddCommand(a.gateCmd())
	root.AddCommand(a.publishCmd())
	root.AddCommand(a.configCmd())
	root.AddCommand(a.modelsCmd())
	root.AddCommand(a.versionCmd())
	return root
}

// load returns the effective configuration. Failures are runtime errors.
func (a *app) load() (config.Config, error) {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return config.Config{}, withCode(ExitRuntimeError, fmt.Errorf("invalid configuration: %w", err))
	}
	return cfg, nil
}

func (a *app) logger(cfg config.Config) hclog.Logger {
	return logging.New("codelens", cfg.Log.Level, a.stderr)
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print codelens version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "codelens version %s\n", version)
		},
	}
}
