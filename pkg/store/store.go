// Package store keeps a record of every mapping run.
//
// A [Run] captures the inputs of a run (graph hash, architecture, options),
// the resulting terminal assignment and its quality metrics. Runs are
// identified by random UUIDs so the HTTP API can hand out stable
// references.
//
// Three backends implement [Store]:
//   - [MemoryStore]: for tests and single-process servers
//   - [FileStore]: one JSON file per run, for the CLI
//   - [MongoStore]: shared by several API servers
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/drbmap/pkg/mapping"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// DefaultListLimit bounds List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Run is the record of one mapping run.
type Run struct {
	ID         string          `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	GraphHash  string          `json:"graph_hash"`
	Arch       string          `json:"arch"`
	Policy     string          `json:"policy"`
	Strategy   string          `json:"strategy"`
	TieJobs    bool            `json:"tie_jobs"`
	TieMapping bool            `json:"tie_mapping"`
	Seed       uint64          `json:"seed"`
	CacheHit   bool            `json:"cache_hit"`
	Duration   time.Duration   `json:"duration_ns"`
	Terminals  []int           `json:"terminals"`
	Metrics    mapping.Metrics `json:"metrics"`
}

// NewRun returns a run with a fresh ID and creation time.
func NewRun() *Run {
	return &Run{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}
}

// Clone returns a deep copy of r.
func (r *Run) Clone() *Run {
	c := *r
	c.Terminals = slices.Clone(r.Terminals)
	c.Metrics.Loads = slices.Clone(r.Metrics.Loads)
	return &c
}

// ValidateID reports whether id is a well-formed run ID.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid run id %q: %w", id, err)
	}
	return nil
}

// Store is the interface for run storage backends.
type Store interface {
	// Put stores r, replacing any run with the same ID.
	Put(ctx context.Context, r *Run) error

	// Get returns the run with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*Run, error)

	// List returns up to limit runs, newest first.
	List(ctx context.Context, limit int) ([]*Run, error)

	// Close releases the backend.
	Close() error
}

// Backend names accepted by [Open].
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendMongo  = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	Backend  string
	Dir      string
	URI      string
	Database string
}

// Open creates the store described by cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		s, err := NewFileStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMongo:
		s, err := NewMongoStore(ctx, cfg.URI, cfg.Database)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// newestFirst orders runs by creation time, newest first, then by ID.
func newestFirst(a, b *Run) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	if a.ID < b.ID {
		return -1
	}
	if a.ID > b.ID {
		return 1
	}
	return 0
}
