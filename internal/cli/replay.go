package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/resync/internal/ir"
	"github.com/roach88/resync/internal/model"
	"github.com/roach88/resync/internal/reconcile"
	"github.com/roach88/resync/internal/record"
	"github.com/roach88/resync/internal/schema"
	"github.com/roach88/resync/internal/store"
)

// Replay statuses beyond the save statuses.
const (
	StatusUnchanged = "unchanged"
	StatusUpdated   = "updated"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Model  string
	DryRun bool
}

// ReplayDocResult holds the replay result for a single document.
type ReplayDocResult struct {
	ID      string         `json:"id"`
	Rev     int64          `json:"rev"`
	Status  string         `json:"status"`
	Changed []string       `json:"changed,omitempty"`
	Deleted []string       `json:"deleted,omitempty"`
	Added   []string       `json:"added,omitempty"`
	Issues  []schema.Issue `json:"issues,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Model     string            `json:"model"`
	DryRun    bool              `json:"dry_run"`
	Documents []ReplayDocResult `json:"documents"`
	Updated   int               `json:"updated"`
	Failed    int               `json:"failed"`
	Total     int               `json:"total"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay --model <name>",
		Short: "Re-reconcile stored documents against the current schema",
		Long: `Replay every stored document of a model through its current schema.

Each document is loaded at its latest revision and saved again. Documents
the schema leaves untouched keep their revision; the rest get a new one.
With --dry-run nothing is written and the report shows what would change.

Exit codes:
  0 - Every document replayed
  1 - One or more documents were rejected by the current schema
  2 - Command error (bad config, database error, etc.)

Examples:
  resync replay --model inns
  resync replay --model inns --dry-run --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Model, "model", "m", "", "configured model to replay (required)")
	_ = cmd.MarkFlagRequired("model")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report changes without saving")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := commandContext(cmd)

	ws, err := openWorkspace(opts.RootOptions, cmd, formatter)
	if err != nil {
		return err
	}
	defer ws.Close()

	m, err := ws.model(opts.Model, !opts.DryRun)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to build model", err)
	}

	docs, err := loadCollection(ctx, ws.store, m.Collection())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to load documents", err)
	}

	result := ReplayResult{
		Model:     m.Collection(),
		DryRun:    opts.DryRun,
		Documents: replayDocuments(ctx, m, docs),
		Total:     len(docs),
	}
	for _, d := range result.Documents {
		switch d.Status {
		case StatusUpdated:
			result.Updated++
		case StatusUnchanged:
		default:
			result.Failed++
		}
	}
	ws.logger.Info("replay finished", "model", result.Model, "total", result.Total, "updated", result.Updated, "failed", result.Failed)

	return outputReplay(opts, cmd, result)
}

// loadCollection reads the latest revision of every document in collection.
func loadCollection(ctx context.Context, st *store.Store, collection string) ([]*record.Document, error) {
	summaries, err := st.ListDocuments(ctx, collection)
	if err != nil {
		return nil, err
	}
	docs := make([]*record.Document, 0, len(summaries))
	for _, s := range summaries {
		rev, err := st.ReadLatest(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		docs = append(docs, model.FromRevision(rev))
	}
	return docs, nil
}

// replayDocuments saves docs concurrently through m and reports each one.
// Failures are per document and never cancel the others.
func replayDocuments(ctx context.Context, m *model.Model, docs []*record.Document) []ReplayDocResult {
	results := make([]ReplayDocResult, len(docs))

	var g errgroup.Group
	g.SetLimit(replayConcurrency)
	for i, doc := range docs {
		g.Go(func() error {
			results[i] = replayOne(ctx, m, doc)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// replayConcurrency bounds concurrent replays; SQLite has a single writer.
const replayConcurrency = 4

func replayOne(ctx context.Context, m *model.Model, doc *record.Document) ReplayDocResult {
	before := doc.Clone()
	out := ReplayDocResult{ID: doc.ID(), Rev: model.Rev(doc)}

	err := m.Save(ctx, doc)
	verr, rejected := schema.AsValidationError(err)
	switch {
	case err == nil:
	case rejected:
		out.Status = StatusRejected
		out.Issues = verr.Issues
		out.Error = verr.Error()
		return out
	case errors.Is(err, store.ErrRevisionConflict):
		out.Status = StatusConflict
		out.Error = err.Error()
		return out
	default:
		out.Status = StatusError
		out.Error = err.Error()
		return out
	}

	out.Changed, out.Deleted, out.Added = diffUserFields(before, doc, m.Reserved())
	out.Status = StatusUnchanged
	if len(out.Changed)+len(out.Deleted)+len(out.Added) > 0 {
		out.Status = StatusUpdated
		out.Rev = model.Rev(doc)
	}
	return out
}

// diffUserFields compares the user fields of two versions of a document.
func diffUserFields(before, after *record.Document, reserved record.Reserved) (changed, deleted, added []string) {
	beforeNames, beforeFields := reconcile.ExtractUserFields(before, reserved)
	afterNames, afterFields := reconcile.ExtractUserFields(after, reserved)

	for _, name := range beforeNames {
		val, ok := afterFields[name]
		switch {
		case !ok:
			deleted = append(deleted, name)
		case !ir.Equal(beforeFields[name], val):
			changed = append(changed, name)
		}
	}
	for _, name := range afterNames {
		if _, ok := beforeFields[name]; !ok {
			added = append(added, name)
		}
	}
	return changed, deleted, added
}

func outputReplay(opts *ReplayOptions, cmd *cobra.Command, result ReplayResult) error {
	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if result.Failed > 0 {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    ErrCodeRejected,
				Message: fmt.Sprintf("%d document(s) failed to replay", result.Failed),
			}
		}
		if err := (&OutputFormatter{Writer: cmd.OutOrStdout()}).encode(response); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		if result.Total == 0 {
			fmt.Fprintln(w, "No documents found.")
			return nil
		}
		for _, d := range result.Documents {
			switch d.Status {
			case StatusUnchanged:
				if opts.Verbose {
					fmt.Fprintf(w, "  %s unchanged\n", d.ID)
				}
			case StatusUpdated:
				fmt.Fprintf(w, "✓ %s → rev %d\n", d.ID, d.Rev)
				var b strings.Builder
				writeNames(&b, "changed", d.Changed)
				writeNames(&b, "deleted", d.Deleted)
				writeNames(&b, "added", d.Added)
				fmt.Fprint(w, b.String())
			default:
				fmt.Fprintf(w, "✗ %s (%s)\n", d.ID, d.Status)
				for _, issue := range d.Issues {
					fmt.Fprintf(w, "  %s\n", issue)
				}
			}
		}
		verb := "updated"
		if result.DryRun {
			verb = "would update"
		}
		fmt.Fprintf(w, "\nReplay Summary: %d %s, %d failed, %d total\n", result.Updated, verb, result.Failed, result.Total)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d document(s) failed to replay", result.Failed))
	}
	return nil
}
