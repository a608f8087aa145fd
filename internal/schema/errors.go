package schema

import (
	"errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue/token"
)

// Validation issue codes (E200-E299)
const (
	ErrCodeInvalid     = "E200" // generic validation failure
	ErrCodeRequired    = "E201" // required field missing
	ErrCodeType        = "E202" // value has the wrong type
	ErrCodeUnknown     = "E203" // field not declared by the schema
	ErrCodeConstraint  = "E204" // value violates a constraint (bounds, enum, pattern)
	ErrCodeUnsupported = "E205" // value cannot be represented (e.g. float default)
)

// Issue is a single per-field validation failure.
type Issue struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Field == "" {
		return fmt.Sprintf("[%s] %s", i.Code, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Code, i.Field, i.Message)
}

// ValidationError is returned by a Validator when a snapshot does not
// conform. It carries every issue found, not just the first.
type ValidationError struct {
	Schema string  `json:"schema"`
	Issues []Issue `json:"issues"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "validation failed against %s", e.Schema)
	switch len(e.Issues) {
	case 0:
	case 1:
		fmt.Fprintf(&b, ": %s", e.Issues[0])
	default:
		fmt.Fprintf(&b, " (%d issues): %s", len(e.Issues), e.Issues[0])
		for _, issue := range e.Issues[1:] {
			fmt.Fprintf(&b, "; %s", issue)
		}
	}
	return b.String()
}

// Fields returns the distinct field paths named by the issues, in order.
func (e *ValidationError) Fields() []string {
	seen := make(map[string]struct{}, len(e.Issues))
	var out []string
	for _, issue := range e.Issues {
		if _, ok := seen[issue.Field]; ok {
			continue
		}
		seen[issue.Field] = struct{}{}
		out = append(out, issue.Field)
	}
	return out
}

// AsValidationError unwraps err to a *ValidationError.
// Uses errors.As to handle wrapped errors.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IsValidationError reports whether err is, or wraps, a *ValidationError.
func IsValidationError(err error) bool {
	_, ok := AsValidationError(err)
	return ok
}

// CompileError is returned when a schema source cannot be compiled.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
