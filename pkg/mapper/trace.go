package mapper

import "github.com/matzehuels/drbmap/pkg/arch"

// EventKind tells what happened to a job.
type EventKind int

const (
	// EventSplit means the job was bipartitioned into children.
	EventSplit EventKind = iota
	// EventTerminal means the job's vertices were mapped to its domain.
	EventTerminal
	// EventDropped means a bipartition left a part empty. The event
	// carries the parent and the unused subdomain; its ID is -1.
	EventDropped
)

func (k EventKind) String() string {
	switch k {
	case EventSplit:
		return "split"
	case EventTerminal:
		return "terminal"
	case EventDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// JobEvent describes one job leaving the pool.
type JobEvent struct {
	ID       int
	Parent   int
	Level    int
	Domain   arch.Domain
	Vertices int
	Kind     EventKind
}

// Recorder receives job events in processing order. Recorders are called
// from a single goroutine.
type Recorder interface {
	Record(JobEvent)
}

// RecorderFunc adapts a function to the [Recorder] interface.
type RecorderFunc func(JobEvent)

// Record calls f.
func (f RecorderFunc) Record(e JobEvent) { f(e) }

// Stats counts job events. It implements [Recorder].
type Stats struct {
	Jobs      int `json:"jobs"`
	Splits    int `json:"splits"`
	Terminals int `json:"terminals"`
	Dropped   int `json:"dropped"`
	MaxLevel  int `json:"max_level"`
}

// Record implements [Recorder].
func (s *Stats) Record(e JobEvent) {
	switch e.Kind {
	case EventSplit:
		s.Splits++
	case EventTerminal:
		s.Terminals++
	case EventDropped:
		s.Dropped++
		return
	}
	s.Jobs++
	s.MaxLevel = max(s.MaxLevel, e.Level)
}

// Tee returns a recorder forwarding each event to every non-nil recorder
// of rs, in order.
func Tee(rs ...Recorder) Recorder {
	return RecorderFunc(func(e JobEvent) {
		for _, r := range rs {
			if r != nil {
				r.Record(e)
			}
		}
	})
}
