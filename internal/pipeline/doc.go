// Package pipeline runs every (file, kind) analysis of a run and folds the
// outcomes into [aggregate.Results].
//
// Jobs are executed by a bounded worker pool. Each job owns exactly one
// (path, kind) slot; outcomes travel over a channel to a single goroutine
// that records them, so completion order never affects the summary. With a
// concurrency of 1 the run is strictly sequential.
//
// [WithRetry] wraps a backend client with exponential back-off for transient
// failures. Clients themselves never retry.
package pipeline
