package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/resync/internal/ir"
	"github.com/roach88/resync/internal/model"
	"github.com/roach88/resync/internal/record"
	"github.com/roach88/resync/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	History bool
}

// RevisionView is one stored revision as the CLI prints it.
type RevisionView struct {
	ID         string           `json:"id"`
	Collection string           `json:"collection"`
	Rev        int64            `json:"rev"`
	Seq        int64            `json:"seq"`
	Hash       string           `json:"hash"`
	Record     *record.Document `json:"record"`
}

func newRevisionView(rev ir.Revision) RevisionView {
	return RevisionView{
		ID:         rev.DocumentID,
		Collection: rev.Collection,
		Rev:        rev.Rev,
		Seq:        rev.Seq,
		Hash:       rev.Hash,
		Record:     model.FromRevision(rev),
	}
}

// String renders the revision for text output.
func (v RevisionView) String() string {
	return fmt.Sprintf("%s/%s rev %d (seq %d, %s)\n%s", v.Collection, v.ID, v.Rev, v.Seq, shortHash(v.Hash), v.Record)
}

// History is a document's revisions, oldest first.
type History []RevisionView

// String renders the history for text output.
func (h History) String() string {
	parts := make([]string, len(h))
	for i, v := range h {
		parts[i] = v.String()
	}
	return strings.Join(parts, "\n\n")
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored document",
		Long: `Print the latest stored revision of a document, or every revision with
--history. Records are printed in their saved field order.

Examples:
  resync show inn-0001
  resync show --db ./resync.db inn-0001 --history --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.History, "history", false, "print every revision, oldest first")

	return cmd
}

func runShow(opts *ShowOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := commandContext(cmd)

	ws, err := openWorkspace(opts.RootOptions, cmd, formatter)
	if err != nil {
		return err
	}
	defer ws.Close()

	if opts.History {
		revs, err := ws.store.ReadRevisions(ctx, id)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read revisions", err)
		}
		if len(revs) == 0 {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("document %s not found", id), nil)
		}
		history := make(History, len(revs))
		for i, rev := range revs {
			history[i] = newRevisionView(rev)
		}
		return formatter.Success(history)
	}

	rev, err := ws.store.ReadLatest(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("document %s not found", id), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read document", err)
	}
	return formatter.Success(newRevisionView(rev))
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Collection string
}

// DocumentList is the list command's payload.
type DocumentList []ir.DocumentSummary

// String renders the list for text output.
func (l DocumentList) String() string {
	if len(l) == 0 {
		return "No documents."
	}
	var b strings.Builder
	for i, d := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%-20s %-16s rev %-4d seq %d", d.ID, d.Collection, d.Rev, d.Seq)
	}
	return b.String()
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored documents",
		Long: `List stored documents in save order, optionally limited to one collection.

Examples:
  resync list
  resync list --collection inns --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Collection, "collection", "", "only list this collection")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	ws, err := openWorkspace(opts.RootOptions, cmd, formatter)
	if err != nil {
		return err
	}
	defer ws.Close()

	docs, err := ws.store.ListDocuments(commandContext(cmd), opts.Collection)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to list documents", err)
	}
	return formatter.Success(DocumentList(docs))
}
