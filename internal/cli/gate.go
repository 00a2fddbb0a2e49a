package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/codelens/internal/aggregate"
	"github.com/dshills/codelens/internal/gate"
	"github.com/dshills/codelens/internal/output"
)

var gateBindings = map[string]string{
	"max-high":    "gate.max_high",
	"max-medium":  "gate.max_medium",
	"max-total":   "gate.max_total",
	"max-quality": "gate.max_quality",
	"max-errors":  "gate.max_errors",
	"fail-on":     "gate.fail_on",
}

func (a *app) gateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gate [summary.json]",
		Short: "Check a JSON summary against the quality gate",
		Long: "Gate reads the JSON summary written by analyze (default: the configured output.json path) " +
			"and exits 1 when any threshold is exceeded.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			path := cfg.Output.JSON
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return withCode(ExitUsageError, fmt.Errorf("no summary path given and output.json is empty"))
			}
			sd, err := output.ReadSummary(path)
			if err != nil {
				return withCode(ExitRuntimeError, err)
			}
			return a.evaluateGate(sd.Summary, cfg.Gate)
		},
	}

	f := cmd.Flags()
	f.Int("max-high", 0, "Maximum high-severity vulnerabilities (-1 unlimited)")
	f.Int("max-medium", 0, "Maximum medium-severity vulnerabilities (-1 unlimited)")
	f.Int("max-total", 0, "Maximum vulnerabilities (-1 unlimited)")
	f.Int("max-quality", 0, "Maximum quality issues (-1 unlimited)")
	f.Int("max-errors", 0, "Maximum files with failed analyses (-1 unlimited)")
	f.String("fail-on", "", "Fail on any vulnerability at or above severity (none, low, medium, high)")
	for flag, key := range gateBindings {
		_ = a.v.BindPFlag(key, f.Lookup(flag))
	}
	return cmd
}

// evaluateGate prints the decision and returns an exit error on failure.
func (a *app) evaluateGate(s aggregate.Summary, t gate.Thresholds) error {
	res := gate.Evaluate(s, t)
	if res.Passed() {
		fmt.Fprintf(a.stdout, "Quality gate passed (%d high, %d total vulnerabilities)\n",
			s.HighSeverityVulnerabilities, s.TotalVulnerabilities)
		return nil
	}
	for _, v := range res.Violations {
		fmt.Fprintf(a.stderr, "gate: %s\n", v)
	}
	return withCode(ExitGateFailed, fmt.Errorf("quality gate failed: %d threshold(s) exceeded", len(res.Violations)))
}
