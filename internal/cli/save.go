package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/resync/internal/model"
	"github.com/roach88/resync/internal/record"
	"github.com/roach88/resync/internal/schema"
	"github.com/roach88/resync/internal/store"
)

// Save statuses reported per record file.
const (
	StatusSaved    = "saved"
	StatusRejected = "rejected"
	StatusConflict = "conflict"
	StatusError    = "error"
)

// SaveOptions holds flags for the save command.
type SaveOptions struct {
	*RootOptions
	Model string
}

// SavedRecord is the outcome of saving one record file.
type SavedRecord struct {
	File   string           `json:"file"`
	Status string           `json:"status"`
	ID     string           `json:"id,omitempty"`
	Rev    int64            `json:"rev,omitempty"`
	Record *record.Document `json:"record,omitempty"`
	Issues []schema.Issue   `json:"issues,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// SaveResult holds the outcome of a save command.
type SaveResult struct {
	Model   string        `json:"model"`
	Records []SavedRecord `json:"records"`
	Saved   int           `json:"saved"`
	Failed  int           `json:"failed"`
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SaveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "save --model <name> <record>...",
		Short: "Reconcile and persist records",
		Long: `Save record files through a configured model.

Each record is reconciled against the model's schema and, when valid,
written as a new revision. A record without _id is created with a fresh
id; a record with _id must carry the _rev it was read at.

Exit codes:
  0 - All records saved
  1 - One or more records rejected or stale
  2 - Command error (bad config, database error, etc.)

Examples:
  resync save --model inns inn.yaml
  resync save --config ./resync.yaml --model inns a.json b.json --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Model, "model", "m", "", "configured model to save through (required)")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

func runSave(opts *SaveOptions, files []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := commandContext(cmd)

	ws, err := openWorkspace(opts.RootOptions, cmd, formatter)
	if err != nil {
		return err
	}
	defer ws.Close()

	m, err := ws.model(opts.Model, true)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to build model", err)
	}

	result := SaveResult{Model: m.Collection(), Records: make([]SavedRecord, 0, len(files))}
	for _, file := range files {
		saved := saveFile(cmd, m, file)
		if saved.Status == StatusSaved {
			result.Saved++
		} else {
			result.Failed++
		}
		ws.logger.Info("record processed", "file", file, "status", saved.Status, "id", saved.ID, "rev", saved.Rev)
		result.Records = append(result.Records, saved)
		if err := ctx.Err(); err != nil {
			return WrapExitError(ExitCommandError, "save interrupted", err)
		}
	}

	return outputSave(opts, cmd, result)
}

// saveFile reads and saves one record file.
func saveFile(cmd *cobra.Command, m *model.Model, file string) SavedRecord {
	doc, err := readRecord(cmd, file)
	if err != nil {
		return SavedRecord{File: file, Status: StatusError, Error: err.Error()}
	}
	if doc.ID() == "" {
		doc = m.New(doc.Entries()...)
	}

	out := SavedRecord{File: file, ID: doc.ID()}
	err = m.Save(commandContext(cmd), doc)
	verr, rejected := schema.AsValidationError(err)
	switch {
	case err == nil:
		out.Status = StatusSaved
		out.Rev = model.Rev(doc)
		out.Record = doc
	case rejected:
		out.Status = StatusRejected
		out.Issues = verr.Issues
		out.Error = verr.Error()
	case errors.Is(err, store.ErrRevisionConflict):
		out.Status = StatusConflict
		out.Error = err.Error()
	default:
		out.Status = StatusError
		out.Error = err.Error()
	}
	return out
}

func outputSave(opts *SaveOptions, cmd *cobra.Command, result SaveResult) error {
	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if result.Failed > 0 {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    ErrCodeRejected,
				Message: fmt.Sprintf("%d record(s) not saved", result.Failed),
			}
		}
		if err := (&OutputFormatter{Writer: cmd.OutOrStdout()}).encode(response); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, r := range result.Records {
			switch r.Status {
			case StatusSaved:
				fmt.Fprintf(w, "✓ %s → %s rev %d\n", r.File, r.ID, r.Rev)
			default:
				fmt.Fprintf(w, "✗ %s (%s)\n", r.File, r.Status)
				if len(r.Issues) > 0 {
					for _, issue := range r.Issues {
						fmt.Fprintf(w, "  %s\n", issue)
					}
				} else {
					fmt.Fprintf(w, "  %s\n", strings.TrimSpace(r.Error))
				}
			}
		}
		fmt.Fprintf(w, "\nSave Summary: %d saved, %d failed, %d total\n", result.Saved, result.Failed, len(result.Records))
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d record(s) not saved", result.Failed))
	}
	return nil
}
