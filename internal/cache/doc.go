// Package cache records language-model answers on disk.
//
// Entries are keyed by a SHA-256 hash of the model name, system prompt and
// user payload, so an identical request replays the recorded answer instead
// of calling the model. Each entry keeps the raw content, the endpoint that
// produced it and a creation timestamp; entries older than the configured
// TTL are treated as misses and removed on read.
//
// The default directory is $XDG_CACHE_HOME/relnote (or the OS-appropriate
// equivalent). Prompts are redacted before they are hashed when prompt
// redaction is enabled, so secrets never reach the cache directory.
package cache
