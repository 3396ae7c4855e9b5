// Package config loads causeway's TOML configuration file and opens the
// cache and run-store backends it names.
//
// The file lives at $XDG_CONFIG_HOME/causeway/config.toml (falling back to
// ~/.config/causeway/config.toml). Every key is optional:
//
//	[search]
//	strategy = "tuck"
//	num_starts = 4
//	seed = 42
//	penalty = 2.0
//	use_bes = true
//
//	[cache]
//	backend = "redis"   # file | redis | none
//	[cache.redis]
//	url = "redis://localhost:6379/0"
//
//	[store]
//	backend = "mongo"   # file | memory | mongo
//	[store.mongo]
//	uri = "mongodb://localhost:27017"
//
//	[server]
//	addr = ":8080"
//
// Command-line flags override file values.
package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/causeway/pkg/cache"
	"github.com/matzehuels/causeway/pkg/errors"
	"github.com/matzehuels/causeway/pkg/pipeline"
	"github.com/matzehuels/causeway/pkg/store"
)

const appName = "causeway"

// Backend names.
const (
	BackendNone   = "none"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendMongo  = "mongo"
)

// DefaultAddr is the default HTTP listen address.
const DefaultAddr = ":8080"

// Config is the parsed configuration file.
type Config struct {
	Search Search `toml:"search"`
	Cache  Cache  `toml:"cache"`
	Store  Store  `toml:"store"`
	Server Server `toml:"server"`
}

// Search holds search defaults.
type Search struct {
	Strategy      string  `toml:"strategy"`
	NumStarts     int     `toml:"num_starts"`
	Seed          uint64  `toml:"seed"`
	Shuffle       bool    `toml:"shuffle"`
	Penalty       float64 `toml:"penalty"`
	MaxSweeps     int     `toml:"max_sweeps"`
	UseBES        bool    `toml:"use_bes"`
	DisableShrink bool    `toml:"disable_shrink"`
	Parallelism   int     `toml:"parallelism"`
	TimeoutSec    int     `toml:"timeout_seconds"`
	CacheSize     int     `toml:"cache_size"`
}

// Cache selects the result cache backend.
type Cache struct {
	Backend string            `toml:"backend"`
	Dir     string            `toml:"dir"`
	Redis   cache.RedisConfig `toml:"redis"`
}

// Store selects the run-history backend.
type Store struct {
	Backend string            `toml:"backend"`
	Dir     string            `toml:"dir"`
	Mongo   store.MongoConfig `toml:"mongo"`
}

// Server configures `causeway serve`.
type Server struct {
	Addr string `toml:"addr"`
	// MetricsTextfile, when set, receives a Prometheus textfile dump after
	// every search.
	MetricsTextfile string `toml:"metrics_textfile"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Search: Search{
			Strategy:  pipeline.DefaultStrategy,
			NumStarts: pipeline.DefaultNumStarts,
			Seed:      pipeline.DefaultSeed,
			Penalty:   pipeline.DefaultPenalty,
			CacheSize: pipeline.DefaultCacheSize,
		},
		Cache:  Cache{Backend: BackendFile},
		Store:  Store{Backend: BackendFile},
		Server: Server{Addr: DefaultAddr},
	}
}

// Path returns the default configuration file path.
func Path() (string, error) {
	return xdgPath("XDG_CONFIG_HOME", ".config", "config.toml")
}

// CacheDir returns the default cache directory (~/.cache/causeway).
func CacheDir() (string, error) {
	return xdgPath("XDG_CACHE_HOME", ".cache")
}

// RunsDir returns the default run-history directory
// (~/.local/share/causeway/runs).
func RunsDir() (string, error) {
	return xdgPath("XDG_DATA_HOME", filepath.Join(".local", "share"), "runs")
}

func xdgPath(env, fallback string, elem ...string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, fallback)
	}
	return filepath.Join(append([]string{base, appName}, elem...)...), nil
}

// Load reads path over the defaults. An empty path reads the default
// location, where a missing file is not an error; a missing explicit
// path is FILE_NOT_FOUND.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return cfg, nil
	}
	if os.IsNotExist(err) {
		return cfg, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	return Parse(data)
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q", undecoded[0].String())
	}
	return cfg, cfg.Validate()
}

// Validate checks backend names and search values.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case BackendNone, BackendFile, BackendRedis:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q (must be one of: none, file, redis)", c.Cache.Backend)
	}
	switch c.Store.Backend {
	case BackendNone, BackendFile, BackendMemory, BackendMongo:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown store backend %q (must be one of: none, file, memory, mongo)", c.Store.Backend)
	}
	opts := c.SearchOptions()
	opts.DataPath = "config"
	return opts.ValidateAndSetDefaults()
}

// SearchOptions returns pipeline options carrying the search defaults.
// The caller supplies the data source.
func (c Config) SearchOptions() pipeline.Options {
	s := c.Search
	return pipeline.Options{
		Strategy:      s.Strategy,
		NumStarts:     s.NumStarts,
		Seed:          s.Seed,
		Shuffle:       s.Shuffle,
		Penalty:       s.Penalty,
		MaxSweeps:     s.MaxSweeps,
		UseBES:        s.UseBES,
		DisableShrink: s.DisableShrink,
		Parallelism:   s.Parallelism,
		TimeoutSec:    s.TimeoutSec,
		CacheSize:     s.CacheSize,
	}
}

// OpenCache opens the configured result cache. noCache forces NullCache.
func (c Config) OpenCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.Cache.Backend {
	case BackendNone:
		return cache.NewNullCache(), nil
	case BackendRedis:
		return cache.NewRedisCache(ctx, c.Cache.Redis)
	}
	dir := c.Cache.Dir
	if dir == "" {
		d, err := CacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

// OpenStore opens the configured run store. It returns nil for "none".
func (c Config) OpenStore(ctx context.Context) (store.Store, error) {
	switch c.Store.Backend {
	case BackendNone:
		return nil, nil
	case BackendMemory:
		return store.NewMemoryStore(), nil
	case BackendMongo:
		return store.NewMongoStore(ctx, c.Store.Mongo)
	}
	dir := c.Store.Dir
	if dir == "" {
		d, err := RunsDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	return store.NewFileStore(dir)
}

// Encode renders c as TOML.
func (c Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
