package mapper

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/drbmap/pkg/errors"
)

// DefaultInitialJobs is the initial capacity of the job table.
const DefaultInitialJobs = 64

// Options configures a mapping call.
type Options struct {
	// Policy orders the pending jobs.
	Policy Policy

	// TieJobs processes jobs in synchronized rounds, one level per round,
	// so that the result does not depend on how jobs are spread over
	// workers.
	TieJobs bool

	// TieMapping canonicalizes the partitions of splits whose two
	// subdomains have equal weight: the part holding the job's lowest
	// vertex always maps to the first subdomain.
	TieMapping bool

	// Seed initializes the random policy and the per-job strategy seeds.
	Seed uint64

	// Workers bounds the concurrent bipartitions of a tied round. It has
	// no effect unless TieJobs is set.
	Workers int

	// InitialJobs is the initial capacity of the job table.
	InitialJobs int

	// Allocator grows the job and domain tables. Nil means
	// [DoublingAllocator].
	Allocator Allocator

	// CheckInvariants verifies vertex conservation after every job or
	// round. Violations are reported as internal errors.
	CheckInvariants bool

	// Logger receives debug output. Nil discards it.
	Logger *log.Logger

	// Trace, if set, receives one event per job.
	Trace Recorder
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Policy:     PolicySize,
		TieJobs:    true,
		TieMapping: true,
		Seed:       42,
		Workers:    1,
	}
}

// normalized fills in defaults and validates o.
func (o Options) normalized() (Options, error) {
	if !o.Policy.valid() {
		return o, errors.New(errors.ErrCodeInvalidPolicy, "invalid policy %d", int(o.Policy))
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.InitialJobs < 1 {
		o.InitialJobs = DefaultInitialJobs
	}
	if o.Allocator == nil {
		o.Allocator = DoublingAllocator{}
	}
	// The initial table must not exceed the limit it is grown against.
	if l, ok := o.Allocator.(LimitAllocator); ok && l.MaxJobs > 0 {
		o.InitialJobs = min(o.InitialJobs, l.MaxJobs)
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o, nil
}
