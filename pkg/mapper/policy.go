package mapper

import (
	"fmt"
	"strings"

	"github.com/matzehuels/drbmap/pkg/errors"
)

// Policy selects which pending job the driver processes next.
type Policy int

const (
	// PolicyRandom processes jobs in a random order drawn from the seed.
	PolicyRandom Policy = iota
	// PolicyLevel processes the deepest jobs first.
	PolicyLevel
	// PolicySize processes the largest jobs first.
	PolicySize
	// PolicyNeighbor favors deep jobs whose neighbors are not far behind.
	PolicyNeighbor
	// PolicyNgLevel favors jobs with many deeper neighbor jobs.
	PolicyNgLevel
	// PolicyNgSize favors jobs with many smaller neighbor jobs.
	PolicyNgSize
	// PolicyOld processes jobs in creation order.
	PolicyOld
)

var policyNames = [...]string{
	PolicyRandom:   "random",
	PolicyLevel:    "level",
	PolicySize:     "size",
	PolicyNeighbor: "neighbor",
	PolicyNgLevel:  "nglevel",
	PolicyNgSize:   "ngsize",
	PolicyOld:      "old",
}

// Policies returns every policy, in declaration order.
func Policies() []Policy {
	return []Policy{PolicyRandom, PolicyLevel, PolicySize, PolicyNeighbor, PolicyNgLevel, PolicyNgSize, PolicyOld}
}

func (p Policy) String() string {
	if p.valid() {
		return policyNames[p]
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

func (p Policy) valid() bool { return p >= PolicyRandom && p <= PolicyOld }

// neighborAware reports whether scores depend on the surrounding jobs.
func (p Policy) neighborAware() bool {
	return p == PolicyNeighbor || p == PolicyNgLevel || p == PolicyNgSize
}

// ParsePolicy converts a policy name, case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for p, n := range policyNames {
		if n == name {
			return Policy(p), nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidPolicy, "unknown policy %q (want one of %s)", s, strings.Join(policyNames[:], ", "))
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	if !p.valid() {
		return nil, errors.New(errors.ErrCodeInvalidPolicy, "invalid policy %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	v, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
