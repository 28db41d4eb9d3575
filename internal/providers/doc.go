// Package providers is the transport to the language-model oracle.
//
// [Client] speaks to any OpenAI-compatible gateway. The chat-completions
// shape goes through github.com/sashabaranov/go-openai; the /responses shape
// is posted directly. Every call walks an ordered list of (endpoint, auth
// header) variants for a bounded number of attempts and only fails once all
// of them have failed, reporting the last few reasons. A CA bundle or an
// explicit insecure opt-out controls TLS trust.
//
// [Cached] wraps any [Completer] with the on-disk response cache so that a
// stage can be replayed byte for byte.
package providers
