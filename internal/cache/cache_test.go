package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCache_PutGet(t *testing.T) {
	dir := t.TempDir()
	c, err := New(true, dir, 86400)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	key := BuildKey("gpt-4o-mini", "system", `{"release_tag":"v1.2.0"}`)
	if _, ok := c.Get(key); ok {
		t.Error("expected cache miss before put")
	}

	want := Entry{Model: "gpt-4o-mini", Endpoint: "https://llm.example/v1/chat/completions", Content: `{"bump":"minor"}`}
	if err := c.Put(key, want); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected cache hit after put")
	}
	if got.Content != want.Content || got.Endpoint != want.Endpoint || got.Model != want.Model {
		t.Errorf("Get = %+v, want %+v", got, want)
	}
	if got.Key != HashKey(key) {
		t.Errorf("Key = %q, want hash of key", got.Key)
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	dir := t.TempDir()
	c, err := New(true, dir, 60)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	old := Entry{Content: "{}", CreatedAt: time.Now().Add(-2 * time.Minute)}
	if err := c.Put("stale", old); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("GetStats error: %v", err)
	}
	if stats.Expired != 1 {
		t.Errorf("Expired = %d, want 1", stats.Expired)
	}
	if _, ok := c.Get("stale"); ok {
		t.Error("expected miss for expired entry")
	}
	if _, err := os.Stat(c.entryPath("stale")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed on read")
	}
}

func TestCache_NoTTLKeepsEntries(t *testing.T) {
	c, err := New(true, t.TempDir(), 0)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := c.Put("k", Entry{Content: "{}", CreatedAt: time.Now().Add(-24 * 365 * time.Hour)}); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if _, ok := c.Get("k"); !ok {
		t.Error("entry without TTL should never expire")
	}
}

func TestCache_Disabled(t *testing.T) {
	c, err := New(false, "", 0)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if c.Enabled() {
		t.Error("cache should be disabled")
	}
	if err := c.Put("key", Entry{Content: "value"}); err != nil {
		t.Errorf("Put on disabled cache should not error: %v", err)
	}
	if _, ok := c.Get("key"); ok {
		t.Error("Get on disabled cache should always miss")
	}
	if n, err := c.Clear(); err != nil || n != 0 {
		t.Errorf("Clear on disabled cache = %d, %v", n, err)
	}

	var nilCache *Cache
	if nilCache.Enabled() {
		t.Error("nil cache should report disabled")
	}
}

func TestCache_ClearAndStats(t *testing.T) {
	dir := t.TempDir()
	c, err := New(true, dir, 86400)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	for _, key := range []string{"a", "b", "c"} {
		if err := c.Put(key, Entry{Content: "data"}); err != nil {
			t.Fatalf("Put error: %v", err)
		}
	}
	// Unrelated files are left alone.
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("GetStats error: %v", err)
	}
	if stats.Entries != 3 || stats.TotalBytes <= 0 || stats.Dir != dir || !stats.Enabled {
		t.Errorf("stats = %+v", stats)
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear removed %d, want 3", n)
	}
	if _, err := os.Stat(filepath.Join(dir, "README")); err != nil {
		t.Error("Clear removed a non-entry file")
	}
}

func TestCache_Delete(t *testing.T) {
	c, err := New(true, t.TempDir(), 0)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := c.Put("k", Entry{Content: "data"}); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("deleted entry is still returned")
	}
	if err := c.Delete("k"); err != nil {
		t.Errorf("deleting a missing entry: %v", err)
	}

	var nilCache *Cache
	if err := nilCache.Delete("k"); err != nil {
		t.Errorf("nil cache Delete: %v", err)
	}
}

func TestBuildKey(t *testing.T) {
	k1 := BuildKey("m", "sys", "payload")
	k2 := BuildKey("m", "sys", "payload")
	k3 := BuildKey("m", "sy", "spayload")

	if k1 != k2 {
		t.Error("same inputs should produce same key")
	}
	if k1 == k3 {
		t.Error("field boundaries must change the key")
	}
	if len(k1) != 64 {
		t.Errorf("key length = %d, want 64", len(k1))
	}
}
