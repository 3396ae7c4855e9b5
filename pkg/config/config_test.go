package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/causeway/pkg/cache"
	"github.com/matzehuels/causeway/pkg/errors"
	"github.com/matzehuels/causeway/pkg/store"
)

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
[search]
strategy = "best-move"
num_starts = 8
use_bes = true

[cache]
backend = "none"

[store]
backend = "memory"

[server]
addr = "127.0.0.1:9000"
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Search.Strategy != "best-move" || cfg.Search.NumStarts != 8 || !cfg.Search.UseBES {
		t.Errorf("search = %+v", cfg.Search)
	}
	// Unset keys keep their defaults.
	if cfg.Search.Seed != Default().Search.Seed || cfg.Search.Penalty != Default().Search.Penalty {
		t.Errorf("defaults lost: %+v", cfg.Search)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}

	opts := cfg.SearchOptions()
	if opts.Strategy != "best-move" || opts.NumStarts != 8 || !opts.UseBES {
		t.Errorf("SearchOptions = %+v", opts)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "[search\n"},
		{"unknown key", "[search]\nstrategi = \"tuck\"\n"},
		{"bad strategy", "[search]\nstrategy = \"anneal\"\n"},
		{"bad penalty", "[search]\npenalty = -1.0\n"},
		{"bad cache", "[cache]\nbackend = \"memcached\"\n"},
		{"bad store", "[store]\nbackend = \"sqlite\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("got %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	// Missing default file is fine.
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load default: %v", err)
	}
	if cfg.Search.Strategy != Default().Search.Strategy {
		t.Errorf("expected defaults, got %+v", cfg.Search)
	}

	// Missing explicit file is not.
	if _, err := Load(filepath.Join(dir, "nope.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load missing = %v", err)
	}

	path, err := Path()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("[search]\nseed = 7\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Search.Seed != 7 {
		t.Errorf("seed = %d, want 7", cfg.Search.Seed)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Search.NumStarts = 3
	cfg.Cache.Backend = BackendNone
	data, err := cfg.Encode()
	if err != nil {
		t.Fatal(err)
	}
	back, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(Encode()) = %v\n%s", err, data)
	}
	if back.Search != cfg.Search || back.Cache.Backend != BackendNone {
		t.Errorf("round trip changed config:\n%s", data)
	}
}

func TestPaths(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xc")
	t.Setenv("XDG_DATA_HOME", "/tmp/xd")
	if d, _ := CacheDir(); d != filepath.Join("/tmp/xc", "causeway") {
		t.Errorf("CacheDir = %s", d)
	}
	if d, _ := RunsDir(); d != filepath.Join("/tmp/xd", "causeway", "runs") {
		t.Errorf("RunsDir = %s", d)
	}
}

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()
	cfg := Default()
	cfg.Cache.Dir = t.TempDir()
	cfg.Store.Dir = t.TempDir()

	c, err := cfg.OpenCache(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*cache.FileCache); !ok {
		t.Errorf("file backend gave %T", c)
	}
	if c, _ := cfg.OpenCache(ctx, true); c == nil {
		t.Error("noCache should still return a cache")
	} else if _, ok := c.(*cache.NullCache); !ok {
		t.Errorf("noCache gave %T", c)
	}

	s, err := cfg.OpenStore(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*store.FileStore); !ok {
		t.Errorf("file store gave %T", s)
	}

	cfg.Store.Backend = BackendMemory
	if s, _ := cfg.OpenStore(ctx); s == nil {
		t.Error("memory store is nil")
	}
	cfg.Store.Backend = BackendNone
	if s, err := cfg.OpenStore(ctx); s != nil || err != nil {
		t.Errorf("none store = %v, %v", s, err)
	}
}
