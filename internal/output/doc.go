// Package output renders a run's [Document] for people and for CI.
//
// Five formats are supported:
//   - html     — the standalone report with summary, static results, per-file insights and recommendations
//   - json     — the summary document read by quality gates
//   - sarif    — SARIF v2.1.0 log of model findings for code-scanning upload
//   - markdown — PR-comment-friendly summary with collapsible sections
//   - text     — console summary printed at the end of a run
//
// Use [GetWriter] to obtain a [Writer] for a format, or [WriteArtifacts] to
// write several formats to their output paths at once.
package output
