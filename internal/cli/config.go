package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dshills/codelens/internal/config"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage codelens configuration",
	}
	cmd.AddCommand(a.configInitCmd(), a.configSetCmd(), a.configShowCmd())
	return cmd
}

// targetPath is the file init and set write to: --config, ./codelens.yaml
// with --local, or the user config file.
func (a *app) targetPath(local bool) (string, error) {
	switch {
	case a.cfgFile != "":
		return a.cfgFile, nil
	case local:
		return config.LocalFile, nil
	default:
		return config.ConfigPath()
	}
}

func (a *app) configInitCmd() *cobra.Command {
	var local, force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.targetPath(local)
			if err != nil {
				return withCode(ExitRuntimeError, err)
			}

			if _, err := os.Stat(path); err == nil && !force {
				fmt.Fprintf(a.stderr, "Config file already exists at %s\n", path)
				return nil
			}

			if err := config.Save(config.Default(), path); err != nil {
				return withCode(ExitRuntimeError, fmt.Errorf("writing config: %w", err))
			}

			fmt.Fprintf(a.stdout, "Config file created at %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Write ./codelens.yaml instead of the user config file")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func (a *app) configSetCmd() *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  "Set updates one key (for example backend.provider or gate.max_high) in the config file. Lists are comma-separated.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.targetPath(local)
			if err != nil {
				return withCode(ExitRuntimeError, err)
			}

			// Environment variables are not read here so they never leak into the file.
			v := viper.New()
			config.SetDefaults(v)
			if _, err := os.Stat(path); err == nil {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return withCode(ExitRuntimeError, fmt.Errorf("reading config: %w", err))
				}
			}

			if err := config.SetField(v, args[0], args[1]); err != nil {
				return withCode(ExitUsageError, err)
			}

			var cfg config.Config
			if err := v.Unmarshal(&cfg); err != nil {
				return withCode(ExitRuntimeError, err)
			}
			if err := cfg.Validate(); err != nil {
				return withCode(ExitUsageError, err)
			}
			if err := config.Save(cfg, path); err != nil {
				return withCode(ExitRuntimeError, fmt.Errorf("saving config: %w", err))
			}

			fmt.Fprintf(a.stdout, "Set %s = %s\n", args[0], args[1])
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Update ./codelens.yaml instead of the user config file")
	return cmd
}

func (a *app) configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			if cfg.Backend.APIKey != "" {
				cfg.Backend.APIKey = "********"
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return withCode(ExitRuntimeError, err)
			}
			_, err = a.stdout.Write(data)
			if err != nil {
				return withCode(ExitRuntimeError, fmt.Errorf("writing config: %w", err))
			}
			return nil
		},
	}
}
