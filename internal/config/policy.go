package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPolicy is returned by ParsePolicy for an unrecognized retention
// policy name.
var ErrUnknownPolicy = errors.New("config: unknown retention policy")

// Policy decides whether temp files are removed after an invocation.
type Policy string

const (
	// PolicyAlways removes the files whatever the exit status.
	PolicyAlways Policy = "always remove"
	// PolicyNever keeps every file.
	PolicyNever Policy = "never"
	// PolicyOnError keeps the files of a failed run (exit != 0) and removes
	// those of a successful one.
	PolicyOnError Policy = "on error"
	// PolicyOnSuccess keeps the files of a successful run and removes those
	// of a failed one.
	PolicyOnSuccess Policy = "on success"
)

func normalizePolicy(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// ParsePolicy recognizes the policy names ignoring case and treating '_'
// and '-' as spaces. Empty selects PolicyAlways.
func ParsePolicy(s string) (Policy, error) {
	switch n := normalizePolicy(s); n {
	case "", "always", string(PolicyAlways):
		return PolicyAlways, nil
	case string(PolicyNever), string(PolicyOnError), string(PolicyOnSuccess):
		return Policy(n), nil
	}
	return PolicyAlways, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// PolicyFrom is ParsePolicy without the error: an unrecognized value means
// PolicyAlways.
func PolicyFrom(s string) Policy {
	p, _ := ParsePolicy(s)
	return p
}

// Remove reports whether files should be deleted after a run that exited
// with exit.
func (p Policy) Remove(exit int) bool {
	switch p {
	case PolicyNever:
		return false
	case PolicyOnError:
		return exit == 0
	case PolicyOnSuccess:
		return exit != 0
	}
	return true
}
