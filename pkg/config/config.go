// Package config loads the drbmap configuration file.
//
// The file is TOML with one table per subsystem:
//
//	[mapping]
//	arch = "hcub 3"
//	policy = "size"
//	tie_jobs = true
//	tie_mapping = true
//	seed = 42
//	workers = 4
//
//	[strategy]
//	passes = 4
//	refine_passes = 8
//	tolerance = 0.05
//
//	[cache]
//	backend = "file"   # none, file, badger or redis
//	ttl = "720h"
//
//	[store]
//	backend = "file"   # memory, file or mongo
//
//	[server]
//	addr = ":8080"
//	timeout = "30s"
//
// Keys that are absent keep their defaults. Command-line flags override
// file values.
package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/drbmap/pkg/arch"
	"github.com/matzehuels/drbmap/pkg/cache"
	"github.com/matzehuels/drbmap/pkg/errors"
	"github.com/matzehuels/drbmap/pkg/mapper"
	"github.com/matzehuels/drbmap/pkg/store"
	"github.com/matzehuels/drbmap/pkg/strategy"
)

// AppName names the configuration, cache and data directories.
const AppName = "drbmap"

// Config is the whole configuration file.
type Config struct {
	Mapping  Mapping  `toml:"mapping"`
	Strategy Strategy `toml:"strategy"`
	Cache    Cache    `toml:"cache"`
	Store    Store    `toml:"store"`
	Server   Server   `toml:"server"`
}

// Mapping holds the defaults of a mapping run.
type Mapping struct {
	Arch            string `toml:"arch"`
	Policy          string `toml:"policy"`
	TieJobs         bool   `toml:"tie_jobs"`
	TieMapping      bool   `toml:"tie_mapping"`
	Seed            uint64 `toml:"seed"`
	Workers         int    `toml:"workers"`
	InitialJobs     int    `toml:"initial_jobs"`
	MaxJobs         int    `toml:"max_jobs"`
	CheckInvariants bool   `toml:"check_invariants"`
}

// Strategy holds the graph-growing bipartitioner parameters.
type Strategy struct {
	Passes       int     `toml:"passes"`
	RefinePasses int     `toml:"refine_passes"`
	Tolerance    float64 `toml:"tolerance"`
}

// Cache selects the result cache.
type Cache struct {
	Backend string   `toml:"backend"`
	Dir     string   `toml:"dir"`
	URL     string   `toml:"url"`
	TTL     Duration `toml:"ttl"`
}

// Store selects the run store.
type Store struct {
	Backend  string `toml:"backend"`
	Dir      string `toml:"dir"`
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `toml:"addr"`
	// Timeout bounds a single mapping request.
	Timeout Duration `toml:"timeout"`
	// MaxGraphBytes bounds the inline graph of a request.
	MaxGraphBytes int `toml:"max_graph_bytes"`
	// Prefix scopes the cache keys of the server.
	CachePrefix string `toml:"cache_prefix"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() Config {
	opts := mapper.DefaultOptions()
	return Config{
		Mapping: Mapping{
			Policy:     opts.Policy.String(),
			TieJobs:    opts.TieJobs,
			TieMapping: opts.TieMapping,
			Seed:       opts.Seed,
			Workers:    opts.Workers,
		},
		Strategy: Strategy{
			Passes:       strategy.DefaultPasses,
			RefinePasses: strategy.DefaultRefinePasses,
			Tolerance:    strategy.DefaultTolerance,
		},
		Cache: Cache{Backend: cache.BackendFile, TTL: Duration{cache.TTLMapping}},
		Store: Store{Backend: store.BackendFile, Database: store.DefaultDatabase},
		Server: Server{
			Addr:          ":8080",
			Timeout:       Duration{time.Minute},
			MaxGraphBytes: 8 << 20,
			CachePrefix:   "api:",
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/drbmap/config.toml, falling back to
// ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName, "config.toml"), nil
}

// Load reads the file at path over the defaults and validates the result.
// An empty path reads the default location, where a missing file is not
// an error.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && stderrors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "load %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes a configuration from TOML text over the defaults.
func Parse(text string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(text, &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown key %q", undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.New(errors.ErrCodeInvalidConfig, format, args...)
	}

	if c.Mapping.Arch != "" {
		if _, err := arch.Parse(c.Mapping.Arch); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "mapping.arch")
		}
	}
	if _, err := mapper.ParsePolicy(c.Mapping.Policy); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "mapping.policy")
	}
	if c.Mapping.Workers < 1 {
		return invalid("mapping.workers must be at least 1, got %d", c.Mapping.Workers)
	}
	if c.Mapping.InitialJobs < 0 || c.Mapping.MaxJobs < 0 {
		return invalid("mapping.initial_jobs and mapping.max_jobs must not be negative")
	}

	if c.Strategy.Passes < 1 {
		return invalid("strategy.passes must be at least 1, got %d", c.Strategy.Passes)
	}
	if c.Strategy.RefinePasses < 0 {
		return invalid("strategy.refine_passes must not be negative, got %d", c.Strategy.RefinePasses)
	}
	if c.Strategy.Tolerance < 0 || c.Strategy.Tolerance >= 1 {
		return invalid("strategy.tolerance must be in [0, 1), got %g", c.Strategy.Tolerance)
	}

	switch c.Cache.Backend {
	case cache.BackendNone, cache.BackendFile, cache.BackendBadger:
	case cache.BackendRedis:
		if c.Cache.URL == "" {
			return invalid("cache.url is required for the redis backend")
		}
	default:
		return invalid("unknown cache.backend %q", c.Cache.Backend)
	}
	if c.Cache.TTL.Duration < 0 {
		return invalid("cache.ttl must not be negative")
	}

	switch c.Store.Backend {
	case store.BackendMemory, store.BackendFile:
	case store.BackendMongo:
		if c.Store.URI == "" {
			return invalid("store.uri is required for the mongo backend")
		}
	default:
		return invalid("unknown store.backend %q", c.Store.Backend)
	}

	if c.Server.Addr == "" {
		return invalid("server.addr must not be empty")
	}
	if c.Server.Timeout.Duration <= 0 {
		return invalid("server.timeout must be positive")
	}
	if c.Server.MaxGraphBytes < 0 {
		return invalid("server.max_graph_bytes must not be negative")
	}
	return nil
}

// =============================================================================
// Conversions
// =============================================================================

// Options returns the mapper options of the [mapping] section.
func (m Mapping) Options() (mapper.Options, error) {
	p, err := mapper.ParsePolicy(m.Policy)
	if err != nil {
		return mapper.Options{}, err
	}
	opts := mapper.Options{
		Policy:          p,
		TieJobs:         m.TieJobs,
		TieMapping:      m.TieMapping,
		Seed:            m.Seed,
		Workers:         m.Workers,
		InitialJobs:     m.InitialJobs,
		CheckInvariants: m.CheckInvariants,
	}
	if m.MaxJobs > 0 {
		opts.Allocator = mapper.LimitAllocator{MaxJobs: m.MaxJobs}
	}
	return opts, nil
}

// GraphGrowing returns the strategy of the [strategy] section.
func (s Strategy) GraphGrowing() *strategy.GraphGrowing {
	return &strategy.GraphGrowing{
		Passes:       s.Passes,
		RefinePasses: s.RefinePasses,
		Tolerance:    s.Tolerance,
	}
}

// CacheConfig returns the backend configuration of the [cache] section.
// An empty directory is resolved under the user cache directory.
func (c Cache) CacheConfig() cache.Config {
	dir := c.Dir
	if dir == "" && (c.Backend == cache.BackendFile || c.Backend == cache.BackendBadger) {
		if d, err := CacheDir(); err == nil {
			dir = filepath.Join(d, c.Backend)
		}
	}
	return cache.Config{Backend: c.Backend, Dir: dir, URL: c.URL}
}

// StoreConfig returns the backend configuration of the [store] section.
func (s Store) StoreConfig() store.Config {
	dir := s.Dir
	if dir == "" && s.Backend == store.BackendFile {
		if d, err := DataDir(); err == nil {
			dir = filepath.Join(d, "runs")
		}
	}
	return store.Config{Backend: s.Backend, Dir: dir, URI: s.URI, Database: s.Database}
}

// CacheDir returns $XDG_CACHE_HOME/drbmap or ~/.cache/drbmap.
func CacheDir() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}

// DataDir returns $XDG_DATA_HOME/drbmap or ~/.local/share/drbmap.
func DataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", AppName), nil
}
