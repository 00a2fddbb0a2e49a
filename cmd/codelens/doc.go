// Codelens is a CI report aggregator that combines static-analysis output
// with per-file reviews from a language-model backend.
//
// It discovers source files, sends each one to the configured backend once
// per analysis kind, folds the findings with the static-analysis results and
// writes an HTML report, a JSON summary and an optional SARIF log.
//
// Usage:
//
//	codelens analyze                       # analyze ./src and write scan-results/
//	codelens analyze --kinds security      # security review only
//	codelens analyze --gate                # fail the build on threshold breaches
//	codelens gate scan-results/ai-analysis-summary.json
//	codelens config init --local           # write ./codelens.yaml
//	codelens models doctor                 # check the backend answers
package main
