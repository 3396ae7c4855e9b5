package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Error("NullCache.Get should always miss")
	}
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	if _, hit, _ = c.Get(ctx, "key"); hit {
		t.Error("NullCache should not store data")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}

	if _, hit, err := c.Get(ctx, "missing"); hit || err != nil {
		t.Fatalf("Get(missing) = hit %v, err %v", hit, err)
	}

	if err := c.Set(ctx, "a", []byte("alpha"), 0); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "b", []byte("beta"), time.Hour); err != nil {
		t.Fatal(err)
	}
	data, hit, err := c.Get(ctx, "a")
	if err != nil || !hit || string(data) != "alpha" {
		t.Fatalf("Get(a) = %q, %v, %v", data, hit, err)
	}
	if n, _ := c.Len(); n != 2 {
		t.Errorf("Len = %d, want 2", n)
	}

	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, "a"); err != nil {
		t.Errorf("second Delete should be a no-op: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("deleted key should miss")
	}

	removed, err := c.Clear()
	if err != nil || removed != 1 {
		t.Errorf("Clear = %d, %v; want 1", removed, err)
	}
	entries, _ := os.ReadDir(c.Dir())
	if len(entries) != 0 {
		t.Errorf("Clear left %d shard directories", len(entries))
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.path("k"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit %v, err %v", hit, err)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	base := SearchKeyOpts{Strategy: "tuck", Penalty: 2, NumStarts: 1, Seed: 42}
	k1 := k.SearchKey("data", base)
	if !strings.HasPrefix(k1, "search:") {
		t.Errorf("SearchKey prefix: %s", k1)
	}
	if k1 != k.SearchKey("data", base) {
		t.Error("SearchKey should be deterministic")
	}

	tests := []struct {
		name   string
		mutate func(o *SearchKeyOpts)
	}{
		{"strategy", func(o *SearchKeyOpts) { o.Strategy = "best-move" }},
		{"penalty", func(o *SearchKeyOpts) { o.Penalty = 1 }},
		{"seed", func(o *SearchKeyOpts) { o.Seed = 7 }},
		{"bes", func(o *SearchKeyOpts) { o.UseBES = true }},
		{"knowledge", func(o *SearchKeyOpts) { o.KnowledgeHash = "abc" }},
		{"order", func(o *SearchKeyOpts) { o.InitialOrder = []int{1, 0} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := base
			tt.mutate(&o)
			if k.SearchKey("data", o) == k1 {
				t.Errorf("changing %s should change the key", tt.name)
			}
		})
	}
	if k.SearchKey("other", base) == k1 {
		t.Error("data hash should be part of the key")
	}

	r1 := k.RenderKey("g", RenderKeyOpts{Format: "svg"})
	r2 := k.RenderKey("g", RenderKeyOpts{Format: "dot"})
	if r1 == r2 {
		t.Error("Different RenderKeyOpts should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(NewDefaultKeyer(), "team:1:")
	key := scoped.SearchKey("h", SearchKeyOpts{})
	if !strings.HasPrefix(key, "team:1:search:") {
		t.Errorf("ScopedKeyer SearchKey should be prefixed: %s", key)
	}
	if got := NewScopedKeyer(nil, "p:").RenderKey("h", RenderKeyOpts{}); !strings.HasPrefix(got, "p:render:") {
		t.Errorf("Unexpected key with nil inner: %s", got)
	}
}

var errBadKey = errors.New("bad key")

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}
	err := Retryable(ErrNetwork)
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if !errors.Is(err, ErrNetwork) {
		t.Error("wrapped error should unwrap to ErrNetwork")
	}
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}
	if IsRetryable(errBadKey) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()
	saved := remoteBackoff
	remoteBackoff.first = time.Millisecond
	t.Cleanup(func() { remoteBackoff = saved })

	tests := []struct {
		name      string
		failures  int
		retryable bool
		wantCalls int
		wantErr   bool
	}{
		{"success", 0, true, 1, false},
		{"not retryable", 5, false, 1, true},
		{"recovers", 1, true, 2, false},
		{"gives up", 5, true, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := RetryWithBackoff(ctx, func() error {
				calls++
				if calls <= tt.failures {
					if tt.retryable {
						return Retryable(ErrNetwork)
					}
					return errBadKey
				}
				return nil
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}

func TestRedisConfigOptions(t *testing.T) {
	opts, err := RedisConfig{URL: "redis://:secret@cache.internal:6380/3"}.Options()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Addr != "cache.internal:6380" || opts.DB != 3 || opts.Password != "secret" {
		t.Errorf("parsed options = %+v", opts)
	}

	opts, err = RedisConfig{Addr: "localhost:6379", DB: 1}.Options()
	if err != nil || opts.Addr != "localhost:6379" || opts.DB != 1 {
		t.Errorf("addr options = %+v, %v", opts, err)
	}

	if _, err := (RedisConfig{}).Options(); err == nil {
		t.Error("empty config should fail")
	}
	if _, err := (RedisConfig{URL: "http://nope"}).Options(); err == nil {
		t.Error("non-redis URL should fail")
	}
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err := NewRedisCache(ctx, RedisConfig{Addr: "127.0.0.1:1"})
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("err = %v, want ErrNetwork", err)
	}
}
