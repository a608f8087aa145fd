package schema

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"

	"github.com/roach88/resync/internal/ir"
)

// CUEValidator validates snapshots by unifying them with a CUE definition.
//
// Defaults declared in the definition (`rooms: *1 | int`) are materialised in
// the validated result. CUE evaluation is not safe for concurrent use, so
// Validate serializes calls on one validator.
type CUEValidator struct {
	name     string
	def      cue.Value
	declared map[string]struct{}
	required []string
	closed   bool
	opts     options

	mu sync.Mutex
}

var _ Validator = (*CUEValidator)(nil)

// CompileCUE compiles src and selects the definition at path (for example
// "#Inn"). An empty path uses the whole file.
func CompileCUE(filename, src, path string, opts ...Option) (*CUEValidator, error) {
	cctx := cuecontext.New()
	v := cctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return newCUEValidator(v, filename, path, opts)
}

// LoadCUEDir loads the CUE package in dir and selects the definition at path.
func LoadCUEDir(dir, path string, opts ...Option) (*CUEValidator, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("schema directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("schema directory: not a directory: %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &CompileError{Field: "cue", Message: "no CUE instances loaded from " + dir}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	cctx := cuecontext.New()
	v := cctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return newCUEValidator(v, dir, path, opts)
}

func newCUEValidator(root cue.Value, source, path string, opts []Option) (*CUEValidator, error) {
	def := root
	name := source
	if path != "" {
		def = root.LookupPath(cue.ParsePath(path))
		if !def.Exists() {
			return nil, &CompileError{
				Field:   path,
				Message: "definition not found",
				Pos:     root.Pos(),
			}
		}
		if err := def.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		name = source + ":" + path
	}
	if def.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("expected a struct, got %v", def.IncompleteKind()),
			Pos:     def.Pos(),
		}
	}

	declared := make(map[string]struct{})
	var required []string
	iter, err := def.Fields(cue.Optional(true))
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		label := iter.Selector().Unquoted()
		declared[label] = struct{}{}
		if !iter.IsOptional() {
			required = append(required, label)
		}
	}
	slices.Sort(required)

	return &CUEValidator{
		name:     name,
		def:      def,
		declared: declared,
		required: required,
		closed:   !def.Allows(cue.AnyString),
		opts:     buildOptions(name, opts),
	}, nil
}

// Name implements Named.
func (v *CUEValidator) Name() string {
	return v.opts.name
}

// Declared returns the field names the definition declares, sorted.
func (v *CUEValidator) Declared() []string {
	out := make([]string, 0, len(v.declared))
	for name := range v.declared {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// known reports whether the definition accepts a field called name.
// Open structs accept anything, but only declared fields count as known.
func (v *CUEValidator) known(name string) bool {
	if _, ok := v.declared[name]; ok {
		return true
	}
	return v.closed && v.def.Allows(cue.Str(name))
}

// Validate implements Validator.
func (v *CUEValidator) Validate(ctx context.Context, snapshot ir.IRObject) (ir.IRObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	input, issues := applyUnknownKeys(snapshot, v.opts.unknown, v.known)

	data := v.def.Context().Encode(ir.ToGo(input))
	if err := data.Err(); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	unified := v.def.Unify(data)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		found := v.cueIssues(err, input)
		issues = append(issues, found...)
		issues = append(issues, v.missingRequired(unified, input, found)...)
	}
	if len(issues) > 0 {
		sortIssues(issues)
		return nil, &ValidationError{Schema: v.opts.name, Issues: issues}
	}

	out, err := unified.MarshalJSON()
	if err != nil {
		return nil, &ValidationError{Schema: v.opts.name, Issues: v.cueIssues(err, input)}
	}
	result, err := ir.UnmarshalIRValue(out)
	if err != nil {
		return nil, &ValidationError{Schema: v.opts.name, Issues: []Issue{{
			Code:    ErrCodeUnsupported,
			Message: err.Error(),
		}}}
	}
	obj, ok := result.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("validated result is %T, not an object", result)
	}
	return obj, nil
}

// cueIssues converts a CUE error list into issues. Paths are made relative
// to the definition.
func (v *CUEValidator) cueIssues(err error, input ir.IRObject) []Issue {
	prefix := selectorStrings(v.def.Path())

	var issues []Issue
	for _, e := range cueerrors.Errors(err) {
		path := e.Path()
		if len(path) >= len(prefix) && slices.Equal(path[:len(prefix)], prefix) {
			path = path[len(prefix):]
		}
		field := strings.Join(path, ".")

		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)

		issues = append(issues, Issue{
			Field:   field,
			Code:    cueIssueCode(msg, path, input),
			Message: msg,
		})
	}
	if len(issues) == 0 {
		issues = append(issues, Issue{Code: ErrCodeInvalid, Message: err.Error()})
	}
	return dedupeIssues(collapseDisjunctions(issues))
}

// missingRequired reports required fields absent from input that did not
// resolve to a concrete value. CUE stops reporting incomplete fields once
// another field of the struct fails, so they are checked one by one.
func (v *CUEValidator) missingRequired(unified cue.Value, input ir.IRObject, found []Issue) []Issue {
	reported := make(map[string]bool, len(found))
	for _, issue := range found {
		if issue.Code == ErrCodeRequired {
			reported[issue.Field] = true
		}
	}

	var issues []Issue
	for _, name := range v.required {
		if input.Has(name) || reported[name] {
			continue
		}
		field := unified.LookupPath(cue.MakePath(cue.Str(name)))
		if field.Exists() && field.Validate(cue.Concrete(true)) == nil {
			continue
		}
		issues = append(issues, Issue{
			Field:   name,
			Code:    ErrCodeRequired,
			Message: "field is required",
		})
	}
	return issues
}

// collapseDisjunctions keeps the most specific error per field. A failed
// disjunction such as *1 | int & >=1 reports a summary line and one error per
// arm; the summary is dropped when the arms are reported, and the
// "conflicting values" errors of default arms are dropped when a field also
// has a constraint error.
func collapseDisjunctions(issues []Issue) []Issue {
	count := make(map[string]int, len(issues))
	specific := make(map[string]bool, len(issues))
	for _, issue := range issues {
		count[issue.Field]++
		if !isDisjunctionSummary(issue) && !isConflict(issue) {
			specific[issue.Field] = true
		}
	}

	out := make([]Issue, 0, len(issues))
	for _, issue := range issues {
		switch {
		case isDisjunctionSummary(issue) && count[issue.Field] > 1:
			continue
		case isConflict(issue) && specific[issue.Field]:
			continue
		}
		out = append(out, issue)
	}
	return out
}

func isDisjunctionSummary(issue Issue) bool {
	return strings.Contains(issue.Message, "empty disjunction")
}

func isConflict(issue Issue) bool {
	return strings.HasPrefix(issue.Message, "conflicting values")
}

func cueIssueCode(msg string, path []string, input ir.IRObject) string {
	switch {
	case strings.Contains(msg, "not allowed"):
		return ErrCodeUnknown
	case strings.Contains(msg, "incomplete value"), strings.Contains(msg, "field is required"):
		if len(path) > 0 && !input.Has(path[0]) {
			return ErrCodeRequired
		}
		return ErrCodeType
	case strings.Contains(msg, "mismatched types"), strings.Contains(msg, "conflicting values"):
		return ErrCodeType
	case strings.Contains(msg, "invalid value"), strings.Contains(msg, "out of bound"):
		return ErrCodeConstraint
	default:
		return ErrCodeInvalid
	}
}

func selectorStrings(p cue.Path) []string {
	sels := p.Selectors()
	out := make([]string, len(sels))
	for i, s := range sels {
		out[i] = s.String()
	}
	return out
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return &CompileError{Field: "cue", Message: err.Error()}
}
