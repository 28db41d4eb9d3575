package providers

import (
	"context"

	"github.com/dshills/relnote/internal/cache"
	"github.com/dshills/relnote/internal/logging"
)

// Request is one system/user prompt pair sent to the oracle.
type Request struct {
	System string
	User   string
}

// Response is the oracle's answer reduced to a single JSON object.
type Response struct {
	// Content is the JSON object text extracted from the model output.
	Content string
	// Endpoint is the URL that answered, or "cache" for a replayed answer.
	Endpoint string
}

// Completer is the oracle abstraction the pipeline depends on.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Name() string
}

// Forgetter is implemented by completers that remember answers. Forget
// drops the answer recorded for req, so a rejected answer is not replayed.
type Forgetter interface {
	Forget(req Request)
}

// Cached replays recorded answers and records new ones. A nil or disabled
// cache passes every request through.
type Cached struct {
	Next  Completer
	Cache *cache.Cache
	Model string
	Log   *logging.Logger
}

func (c *Cached) Name() string { return c.Next.Name() }

func (c *Cached) Complete(ctx context.Context, req Request) (Response, error) {
	if !c.Cache.Enabled() {
		return c.Next.Complete(ctx, req)
	}
	key := cache.BuildKey(c.Model, req.System, req.User)
	if entry, ok := c.Cache.Get(key); ok {
		c.Log.Infof("oracle response replayed from cache (recorded from %s)", entry.Endpoint)
		return Response{Content: entry.Content, Endpoint: "cache"}, nil
	}
	resp, err := c.Next.Complete(ctx, req)
	if err != nil {
		return resp, err
	}
	if err := c.Cache.Put(key, cache.Entry{Model: c.Model, Endpoint: resp.Endpoint, Content: resp.Content}); err != nil {
		c.Log.Warnf("cannot record oracle response: %v", err)
	}
	return resp, nil
}

// Forget removes the recorded answer for req.
func (c *Cached) Forget(req Request) {
	if !c.Cache.Enabled() {
		return
	}
	if err := c.Cache.Delete(cache.BuildKey(c.Model, req.System, req.User)); err != nil {
		c.Log.Warnf("cannot drop rejected oracle response: %v", err)
		return
	}
	c.Log.Infof("dropped rejected oracle response from cache")
}
