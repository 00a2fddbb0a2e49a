// Package providers implements the HTTP clients for the supported model
// backends: the native Ollama generate API and OpenAI-compatible chat
// completions (OpenAI, LM Studio, vLLM).
//
// Each call issues exactly one request. Failures are reported as
// [*TimeoutError], [*TransportError] or [*StatusError]; retrying is the
// caller's decision.
//
// Use [New] to obtain a Client by provider name.
package providers
