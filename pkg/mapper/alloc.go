package mapper

import (
	"errors"
	"fmt"
)

// Storage identifies a growable table of the driver.
type Storage int

const (
	// StorageJobs is the job table.
	StorageJobs Storage = iota
	// StorageDomains is the domain table of the mapping being built.
	StorageDomains
)

func (s Storage) String() string {
	switch s {
	case StorageJobs:
		return "jobs"
	case StorageDomains:
		return "domains"
	default:
		return fmt.Sprintf("Storage(%d)", int(s))
	}
}

// ErrAllocation is returned by allocators that refuse to grow a table.
var ErrAllocation = errors.New("allocation refused")

// Allocator decides how the driver's tables grow. Grow is called when a
// table holding have entries must hold need > have entries, and returns the
// new capacity, at least need. An error aborts the mapping; the tables are
// left as they were.
type Allocator interface {
	Grow(what Storage, have, need int) (int, error)
}

// DoublingAllocator doubles capacity and never fails.
type DoublingAllocator struct{}

// Grow implements [Allocator].
func (DoublingAllocator) Grow(_ Storage, have, need int) (int, error) {
	return max(2*have, need, 8), nil
}

// LimitAllocator doubles capacity like [DoublingAllocator] but refuses to
// grow a table past its limit. A zero limit means no limit.
type LimitAllocator struct {
	MaxJobs    int
	MaxDomains int
}

// Grow implements [Allocator].
func (l LimitAllocator) Grow(what Storage, have, need int) (int, error) {
	limit := l.MaxJobs
	if what == StorageDomains {
		limit = l.MaxDomains
	}
	if limit > 0 && need > limit {
		return 0, fmt.Errorf("%w: %s table needs %d entries, limit is %d", ErrAllocation, what, need, limit)
	}
	c, _ := DoublingAllocator{}.Grow(what, have, need)
	if limit > 0 {
		c = min(c, limit)
	}
	return c, nil
}

// AllocatorFunc adapts a function to the [Allocator] interface.
type AllocatorFunc func(what Storage, have, need int) (int, error)

// Grow calls f.
func (f AllocatorFunc) Grow(what Storage, have, need int) (int, error) {
	return f(what, have, need)
}
