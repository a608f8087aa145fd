package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/resync/internal/reconcile"
	"github.com/roach88/resync/internal/record"
	"github.com/roach88/resync/internal/schema"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Definition   string   // CUE definition, e.g. "#Inn"
	Kind         string   // schema kind; empty infers it from the path
	Reserved     []string // extra framework-owned fields
	UnknownKeys  string   // strip | reject | allow
	DeepSnapshot bool
}

// CheckResult holds the outcome of reconciling one record.
type CheckResult struct {
	Valid   bool               `json:"valid"`
	Schema  string             `json:"schema"`
	Record  *record.Document   `json:"record"`
	Outcome *reconcile.Outcome `json:"outcome,omitempty"`
	Issues  []schema.Issue     `json:"issues,omitempty"`
}

// String renders the result for text output.
func (r CheckResult) String() string {
	var b strings.Builder
	if !r.Valid {
		fmt.Fprintf(&b, "✗ record rejected by %s\n", r.Schema)
		for _, issue := range r.Issues {
			fmt.Fprintf(&b, "  %s\n", issue)
		}
		return strings.TrimSuffix(b.String(), "\n")
	}

	fmt.Fprintf(&b, "✓ record is valid against %s\n", r.Schema)
	fmt.Fprintln(&b, r.Record)
	if o := r.Outcome; o != nil {
		writeNames(&b, "changed", o.Changed)
		writeNames(&b, "deleted", o.Deleted)
		writeNames(&b, "added", o.Added)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func writeNames(b *strings.Builder, label string, names []string) {
	if len(names) > 0 {
		fmt.Fprintf(b, "  %s: %s\n", label, strings.Join(names, ", "))
	}
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <schema> <record>",
		Short: "Reconcile one record against a schema",
		Long: `Run a single reconciliation pass over a record file without saving it.

The schema is a CUE file or directory (with --def naming the definition) or
a JSON Schema file. The record is JSON or YAML; "-" reads stdin. The
reconciled record is printed in its original field order.

Exit codes:
  0 - Record is valid
  1 - Record was rejected
  2 - Command error (bad schema, unreadable record, etc.)

Examples:
  resync check ./schemas --def '#Inn' inn.yaml
  resync check inn.schema.json inn.json --unknown reject
  resync check inn.cue --def '#Inn' inn.yaml --reserved _owner --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Definition, "def", "d", "", "CUE definition to validate against")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "schema kind (cue|jsonschema); inferred from the path when empty")
	cmd.Flags().StringSliceVarP(&opts.Reserved, "reserved", "r", nil, "additional reserved fields")
	cmd.Flags().StringVar(&opts.UnknownKeys, "unknown", "strip", "undeclared field policy (strip|reject|allow)")
	cmd.Flags().BoolVar(&opts.DeepSnapshot, "deep", false, "isolate nested values from the validator")

	return cmd
}

func runCheck(opts *CheckOptions, schemaPath, recordPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd, slog.LevelWarn)

	doc, err := readRecord(cmd, recordPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRecord, "failed to read record", err)
	}

	validator, err := loadValidator(opts, schemaPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSchema, "failed to load schema", err)
	}
	formatter.VerboseLog("Loaded schema %s", schema.NameOf(validator))

	reconcileOpts := []reconcile.Option{reconcile.WithLogger(logger)}
	if opts.DeepSnapshot {
		reconcileOpts = append(reconcileOpts, reconcile.WithDeepSnapshot())
	}
	reserved := record.DefaultReserved.Union(record.NewReserved(opts.Reserved...))
	reconciler := reconcile.New(reserved, reconcileOpts...)

	pass, err := reconciler.Run(commandContext(cmd), doc, validator)
	if verr, ok := schema.AsValidationError(err); ok {
		result := CheckResult{Schema: verr.Schema, Record: doc, Issues: verr.Issues}
		if opts.Format == "json" {
			if err := formatter.Error(ErrCodeRejected, verr.Error(), result); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), result)
		}
		return WrapExitError(ExitFailure, "record rejected", verr)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "reconciliation failed", err)
	}

	return formatter.Success(CheckResult{
		Valid:   true,
		Schema:  schema.NameOf(validator),
		Record:  doc,
		Outcome: &pass.Outcome,
	})
}

// loadValidator compiles the schema named by the check flags.
func loadValidator(opts *CheckOptions, path string) (schema.Validator, error) {
	kind := opts.Kind
	if kind == "" {
		var err error
		if kind, err = schema.KindOf(path); err != nil {
			return nil, err
		}
	}
	policy, err := schema.ParseUnknownKeys(opts.UnknownKeys)
	if err != nil {
		return nil, err
	}
	return schema.Load(kind, path, opts.Definition, schema.WithUnknownKeys(policy))
}
