// Package aggregate folds per-file analysis outcomes and static-tool results
// into the counters used by the report and by CI quality gates.
//
// [Record] is a copy-on-write reducer: it never mutates its input and refuses
// to overwrite a (path, kind) slot that already holds an outcome. [Summarize]
// is a pure fold, so the summary does not depend on the order in which
// outcomes arrived.
package aggregate
