package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...interface{}) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	// Use full SHA-256 hash (64 hex chars / 256 bits) to prevent collisions
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// =============================================================================
// Keyers
// =============================================================================

// MappingKeyOpts holds every input of a mapping run besides the graph.
type MappingKeyOpts struct {
	Arch       string `json:"arch"`
	Policy     string `json:"policy"`
	Strategy   string `json:"strategy"`
	TieJobs    bool   `json:"tie_jobs"`
	TieMapping bool   `json:"tie_mapping"`
	Seed       uint64 `json:"seed"`
}

// Keyer builds cache keys.
type Keyer interface {
	// MappingKey returns the key of the mapping of the graph whose
	// serialized form hashes to graphHash.
	MappingKey(graphHash string, opts MappingKeyOpts) string
}

// DefaultKeyer builds unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// MappingKey implements [Keyer].
func (DefaultKeyer) MappingKey(graphHash string, opts MappingKeyOpts) string {
	return hashKey("mapping", graphHash, opts)
}

// ScopedKeyer wraps a Keyer with a prefix, so that several users of one
// backend, such as the CLI and the API server, keep separate namespaces.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// MappingKey implements [Keyer].
func (k *ScopedKeyer) MappingKey(graphHash string, opts MappingKeyOpts) string {
	return k.prefix + k.inner.MappingKey(graphHash, opts)
}
