// Package cli wires together the Cobra command tree for the codelens binary.
//
// It defines the root command and all subcommands (analyze, gate, publish,
// config, models, version), binds flags onto the viper configuration, runs
// the analysis pipeline, and returns deterministic exit codes for CI gating.
package cli
