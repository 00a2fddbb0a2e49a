// Package analysis turns one source file into typed findings.
//
// An [Analyzer] builds a kind-specific prompt (security, quality or general),
// sends it to a [providers.Client] and runs [Extract] over the free-text reply.
// The result is an [Outcome]: either a [FindingSet] or an error placeholder
// that records whether the backend call or the extraction failed.
//
// Extraction is lenient. Models wrap JSON in prose or markdown fences, so
// [ScanPayload] looks for the first balanced object carrying findings and
// [PayloadBounds] (first '{' to last '}') is the fallback.
//
// Rules packs (rules.go) add focus areas and required checks to the prompt
// and pin severities for known finding types after extraction.
package analysis
