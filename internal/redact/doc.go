// Package redact removes secrets from source content before it is sent to a
// model backend.
//
// Detection uses regex heuristics covering common secret shapes: API keys,
// JWTs, private keys, AWS credentials, bearer tokens, JDBC and URL embedded
// credentials, and provider-specific tokens (OpenAI, Google, GitHub, Slack).
//
// Path-based redaction is also supported: files whose paths match configured
// glob patterns have their entire content replaced with [REDACTED] rather than
// being scanned line by line.
package redact
