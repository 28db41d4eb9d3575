package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dshills/relnote/internal/cache"
	"github.com/dshills/relnote/internal/logging"
)

type countingCompleter struct {
	calls int
	err   error
}

func (c *countingCompleter) Name() string { return "counting" }

func (c *countingCompleter) Complete(ctx context.Context, req Request) (Response, error) {
	c.calls++
	if c.err != nil {
		return Response{}, c.err
	}
	return Response{Content: `{"echo":"` + req.User + `"}`, Endpoint: "https://llm.example/v1/chat/completions"}, nil
}

func TestCached_ReplaysRecordedAnswer(t *testing.T) {
	store, err := cache.New(true, t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	next := &countingCompleter{}
	c := &Cached{Next: next, Cache: store, Model: "m", Log: logging.Discard()}

	first, err := c.Complete(context.Background(), Request{System: "s", User: "a"})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	second, err := c.Complete(context.Background(), Request{System: "s", User: "a"})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if next.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", next.calls)
	}
	if second.Content != first.Content || second.Endpoint != "cache" {
		t.Errorf("replayed = %+v, first = %+v", second, first)
	}

	if _, err := c.Complete(context.Background(), Request{System: "s", User: "b"}); err != nil {
		t.Fatal(err)
	}
	if next.calls != 2 {
		t.Errorf("different payload must miss; calls = %d", next.calls)
	}
	if c.Name() != "counting" {
		t.Errorf("Name() = %q", c.Name())
	}
}

func TestCached_DisabledAndErrors(t *testing.T) {
	next := &countingCompleter{}
	c := &Cached{Next: next}
	for range 2 {
		if _, err := c.Complete(context.Background(), Request{User: "a"}); err != nil {
			t.Fatal(err)
		}
	}
	if next.calls != 2 {
		t.Errorf("nil cache should pass through; calls = %d", next.calls)
	}

	store, err := cache.New(true, t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	failing := &Cached{Next: &countingCompleter{err: boom}, Cache: store, Model: "m"}
	if _, err := failing.Complete(context.Background(), Request{User: "a"}); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if stats, _ := store.GetStats(); stats.Entries != 0 {
		t.Error("failed calls must not be recorded")
	}
}

func TestCached_ForgetDropsRecordedAnswer(t *testing.T) {
	store, err := cache.New(true, t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	next := &countingCompleter{}
	c := &Cached{Next: next, Cache: store, Model: "m", Log: logging.Discard()}
	req := Request{System: "s", User: "a"}

	if _, err := c.Complete(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	c.Forget(req)
	if _, err := c.Complete(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if next.calls != 2 {
		t.Errorf("forgotten answer was replayed; upstream calls = %d", next.calls)
	}

	// Forgetting twice or without a cache is harmless.
	c.Forget(Request{System: "s", User: "never asked"})
	(&Cached{Next: next}).Forget(req)

	var _ Forgetter = c
}

func TestBackoffDelay(t *testing.T) {
	base := time.Second
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
	}
	for _, tt := range tests {
		if got := backoffDelay(base, tt.attempt); got != tt.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
	if got := backoffDelay(0, 3); got != 0 {
		t.Errorf("zero base = %v", got)
	}
}

func TestSleep_HonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleep err = %v", err)
	}
}
