// Package config loads codelens configuration with viper.
//
// Precedence (highest to lowest):
//  1. CLI flags bound to the viper instance
//  2. Environment variables (CODELENS_BACKEND_PROVIDER, CODELENS_ANALYSIS_KINDS, etc.)
//  3. Config file (./codelens.yaml, then $XDG_CONFIG_HOME/codelens/config.yaml)
//  4. Built-in defaults
//
// Use [NewViper] and [Load] to obtain a merged [Config], [Save] to write a
// config file, and [SetField] to update a single key.
package config
