package schema

import (
	"fmt"
	"strings"
)

// UnknownKeys controls what a compiled validator does with snapshot fields
// its schema does not declare.
type UnknownKeys int

const (
	// Strip drops undeclared fields from the validated result.
	Strip UnknownKeys = iota
	// Reject reports each undeclared field as an E203 issue.
	Reject
	// Allow passes undeclared fields to the schema engine unchanged.
	Allow
)

func (u UnknownKeys) String() string {
	switch u {
	case Strip:
		return "strip"
	case Reject:
		return "reject"
	case Allow:
		return "allow"
	default:
		return fmt.Sprintf("UnknownKeys(%d)", int(u))
	}
}

// ParseUnknownKeys parses "strip", "reject" or "allow". Empty means strip.
func ParseUnknownKeys(s string) (UnknownKeys, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strip":
		return Strip, nil
	case "reject":
		return Reject, nil
	case "allow":
		return Allow, nil
	default:
		return Strip, fmt.Errorf("unknown-keys policy must be strip, reject or allow, got %q", s)
	}
}

type options struct {
	unknown UnknownKeys
	name    string
}

// Option configures a compiled validator.
type Option func(*options)

// WithUnknownKeys sets the policy for undeclared fields.
func WithUnknownKeys(u UnknownKeys) Option {
	return func(o *options) {
		o.unknown = u
	}
}

// WithName overrides the schema name reported in errors.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

func buildOptions(defaultName string, opts []Option) options {
	o := options{unknown: Strip, name: defaultName}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
