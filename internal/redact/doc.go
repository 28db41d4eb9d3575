// Package redact scrubs credentials out of change text before it is
// persisted in a facts file or sent to a language model.
//
// [Sanitize] is applied to every change description at collection time: it
// drops whole lines that mention keys, tokens, secrets or passwords and masks
// long token-like runs. [Secrets] is a narrower pattern-based pass applied to
// outgoing prompts when prompt redaction is enabled.
package redact
