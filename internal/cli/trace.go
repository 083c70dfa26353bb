package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/stanza/internal/ir"
	"github.com/roach88/stanza/internal/queryir"
	"github.com/roach88/stanza/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string   // optional - show the items of one run
	Failed   bool     // only failed items
	Kinds    []string // only items of these statement kinds
	Stage    string   // only items that failed in this stage
}

// RunSummary is one line of the run listing.
type RunSummary struct {
	store.Run
	OK     int `json:"ok"`
	Failed int `json:"failed"`
}

// TraceResult holds the trace output: the run listing, or one run and its
// items.
type TraceResult struct {
	Runs  []RunSummary `json:"runs,omitempty"`
	Run   *RunSummary  `json:"run,omitempty"`
	Items []store.Item `json:"items,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the run journal",
		Long: `Show the runs recorded in a journal, or the items of one run.

Without --run, every run is listed with its outcome counts. With --run,
the run's items are listed in seq order with their status and, for
failed items, the failing stage and error. --failed, --kind and --stage
narrow the items shown.

Examples:
  stanza trace --db ./journal.db
  stanza trace --db ./journal.db --run 01929c4e-...
  stanza trace --db ./journal.db --run 01929c4e-... --failed --format json
  stanza trace --db ./journal.db --run 01929c4e-... --kind include --stage expand-includes`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to show the items of")
	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "only show failed items")
	cmd.Flags().StringSliceVar(&opts.Kinds, "kind", nil, "only show items of these statement kinds")
	cmd.Flags().StringVar(&opts.Stage, "stage", "", "only show items that failed in this stage")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	// store.Open creates a missing journal; a typo should not.
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	var result TraceResult
	if opts.RunID == "" {
		result.Runs, err = summarizeRuns(ctx, st)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
	} else {
		run, err := st.ReadRun(ctx, opts.RunID)
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitFailure, fmt.Sprintf("run not found: %s", opts.RunID))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		summary, err := summarize(ctx, st, run)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to count items", err)
		}
		items, err := st.QueryItems(ctx, itemFilter(opts))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list items", err)
		}
		result.Run = &summary
		result.Items = items
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
}

func summarizeRuns(ctx context.Context, st *store.Store) ([]RunSummary, error) {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		s, err := summarize(ctx, st, run)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

func summarize(ctx context.Context, st *store.Store, run store.Run) (RunSummary, error) {
	ok, failed, err := st.CountItems(ctx, run.ID)
	if err != nil {
		return RunSummary{}, err
	}
	return RunSummary{Run: run, OK: ok, Failed: failed}, nil
}

// itemFilter builds the journal query for the items to show.
func itemFilter(opts *TraceOptions) queryir.Predicate {
	var failed, kinds, stage queryir.Predicate
	if opts.Failed {
		failed = queryir.Equals{Field: "status", Value: ir.String(string(store.StatusFailed))}
	}
	if len(opts.Kinds) > 0 {
		kinds = queryir.In{Field: "kind", Values: queryir.Strings(opts.Kinds)}
	}
	if opts.Stage != "" {
		stage = queryir.Equals{Field: "stage", Value: ir.String(opts.Stage)}
	}
	return queryir.Where(
		queryir.Equals{Field: "run_id", Value: ir.String(opts.RunID)},
		failed, kinds, stage,
	)
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	return formatter.Success(result)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	if result.Run == nil {
		fmt.Fprintln(w, "=== Runs ===")
		if len(result.Runs) == 0 {
			fmt.Fprintln(w, "  (no runs)")
		}
		for _, r := range result.Runs {
			fmt.Fprintf(w, "  %s  %s [%s]  ok=%d failed=%d\n", r.ID, r.Source, r.Language, r.OK, r.Failed)
		}
		return nil
	}

	r := result.Run
	fmt.Fprintf(w, "Run: %s\n", r.ID)
	fmt.Fprintf(w, "Source: %s [%s]\n", r.Source, r.Language)
	if verbose {
		fmt.Fprintf(w, "Digest: %s\n", r.Digest)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Items ===")
	if len(result.Items) == 0 {
		fmt.Fprintln(w, "  (no items)")
	}
	for _, item := range result.Items {
		formatItem(w, item, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  OK:     %d\n", r.OK)
	fmt.Fprintf(w, "  Failed: %d\n", r.Failed)
	return nil
}

// formatItem formats a single journal item for text output.
func formatItem(w io.Writer, item store.Item, verbose bool) {
	text := item.Text
	if text == "" {
		text = "(no statement)"
	}
	fmt.Fprintf(w, "  [%d] %-6s %s\n", item.Seq, item.Status, text)
	if item.Status == store.StatusFailed {
		fmt.Fprintf(w, "       Stage: %s\n", item.Stage)
		fmt.Fprintf(w, "       Error: %s\n", item.Error)
	}
	if verbose {
		fmt.Fprintf(w, "       Duration: %s\n", item.Duration.Round(time.Microsecond))
		if item.StatementID != "" {
			fmt.Fprintf(w, "       ID: %s\n", truncateID(item.StatementID))
		}
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:16] + "..."
}
