package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/codelens/internal/analysis"
	"github.com/dshills/codelens/internal/providers"
)

const doctorTimeout = 30 * time.Second

func (a *app) modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Backend and model management",
	}
	cmd.AddCommand(a.modelsListCmd(), a.modelsDoctorCmd())
	return cmd
}

func (a *app) modelsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the model used for each analysis kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			models := cfg.Backend.ModelMap()
			fmt.Fprintf(a.stdout, "%s (%s):\n", cfg.Backend.Provider, cfg.Backend.BaseURL)
			for _, k := range analysis.Kinds() {
				m := models[k]
				if m == "" {
					m = analysis.DefaultModels[k]
				}
				fmt.Fprintf(a.stdout, "  %-9s %s\n", k, m)
			}
			return nil
		},
	}
}

func (a *app) modelsDoctorCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the backend is reachable and answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			k, err := analysis.ParseKind(kind)
			if err != nil {
				return withCode(ExitUsageError, err)
			}

			client, err := providers.New(cfg.Backend.Provider, providers.Options{
				BaseURL: cfg.Backend.BaseURL,
				APIKey:  cfg.Backend.APIKey,
				Timeout: cfg.Backend.Timeout(),
			})
			if err != nil {
				return withCode(ExitRuntimeError, err)
			}
			model := analysis.NewAnalyzer(client, analysis.AnalyzerOptions{Models: cfg.Backend.ModelMap()}).Model(k)

			fmt.Fprintf(a.stdout, "Checking %s model %s...\n", client.Name(), model)

			ctx, cancel := context.WithTimeout(cmd.Context(), doctorTimeout)
			defer cancel()

			_, err = client.Generate(ctx, providers.Request{
				Model:     model,
				System:    "Respond with exactly: ok",
				Prompt:    "ping",
				MaxTokens: 10,
			})
			if err != nil {
				if providers.IsAuthError(err) {
					err = fmt.Errorf("%w (check CODELENS_BACKEND_API_KEY)", err)
				}
				return withCode(ExitRuntimeError, fmt.Errorf("FAIL: %w", err))
			}

			fmt.Fprintf(a.stdout, "OK: %s is configured and responding\n", client.Name())
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(analysis.KindGeneral), "Analysis kind whose model is checked")
	return cmd
}
