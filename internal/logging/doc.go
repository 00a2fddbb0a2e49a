// Package logging builds the hclog loggers shared by the codelens pipeline.
//
// Every component receives an [hclog.Logger] from its caller and derives a
// sub-logger with Named. Progress lines are emitted at info, degraded static
// tool parses at warn, and per-file backend or extraction failures at error.
package logging
