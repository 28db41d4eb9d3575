package release

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alpkeskin/gotoon"

	"github.com/dshills/relnote/internal/config"
	"github.com/dshills/relnote/internal/failure"
	"github.com/dshills/relnote/internal/providers"
	"github.com/dshills/relnote/internal/redact"
)

// Oracle asks a language model for JSON decisions. The model is untrusted:
// every answer is decoded into a typed record and checked by the caller.
type Oracle struct {
	Completer providers.Completer
	// Format is config.PromptFormatJSON (default) or config.PromptFormatTOON.
	Format string
	// Redact scrubs secrets from the user prompt before it is sent.
	Redact bool
}

// Ask sends payload under the system prompt and decodes the JSON answer
// into out. When accept is non-nil it runs on the decoded answer; an answer
// that fails to decode or is not accepted is forgotten by a caching
// completer. The stage name prefixes contract failures.
func (o *Oracle) Ask(ctx context.Context, stage, system string, payload, out any, accept func() error) error {
	user, err := o.encode(payload)
	if err != nil {
		return fmt.Errorf("%s: encoding prompt: %w", stage, err)
	}
	if o.Redact {
		user = redact.Secrets(user)
	}
	req := providers.Request{System: system, User: user}
	resp, err := o.Completer.Complete(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}
	if err := decode(stage, resp.Content, out, accept); err != nil {
		if f, ok := o.Completer.(providers.Forgetter); ok {
			f.Forget(req)
		}
		return err
	}
	return nil
}

func decode(stage, content string, out any, accept func() error) error {
	obj, err := providers.ExtractJSONObject(content)
	if err != nil {
		return failure.Contractf("%s output is not a JSON object: %v", stage, err)
	}
	if err := json.Unmarshal([]byte(obj), out); err != nil {
		return failure.Contractf("%s output has the wrong shape: %v", stage, err)
	}
	if accept != nil {
		return accept()
	}
	return nil
}

func (o *Oracle) encode(payload any) (string, error) {
	if strings.EqualFold(o.Format, config.PromptFormatTOON) {
		return gotoon.Encode(payload)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
