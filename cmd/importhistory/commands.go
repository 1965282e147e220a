package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	sqliteadapter "github.com/ericfisherdev/postimport/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/postimport/internal/config"
	"github.com/ericfisherdev/postimport/internal/domain/model"
	"github.com/ericfisherdev/postimport/internal/domain/port/driven"
)

// errNoHistoryDB is returned when neither --db nor POSTIMPORT_HISTORY_DB names a database.
var errNoHistoryDB = errors.New("no history database: set POSTIMPORT_HISTORY_DB or pass --db")

func newRootCmd(cfg *config.Config) *cobra.Command {
	dbPath := cfg.HistoryDB

	root := &cobra.Command{
		Use:           "importhistory",
		Short:         "Inspect recorded post import runs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", dbPath, "Path to the import history database")

	var limit int
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent import runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			return withHistory(cmd.Context(), dbPath, func(store driven.HistoryStore) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return writeRuns(cmd.OutOrStdout(), runs)
			})
		},
	}
	runsCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")

	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show every submission of one import run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd.Context(), dbPath, func(store driven.HistoryStore) error {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s: %w", args[0], driven.ErrRunNotFound)
				}

				subs, err := store.ListSubmissions(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				return writeRun(cmd.OutOrStdout(), *run, subs)
			})
		},
	}

	root.AddCommand(runsCmd, showCmd)
	return root
}

// withHistory opens the database at path, applies migrations, and passes the
// store to fn. The database is closed when fn returns.
func withHistory(ctx context.Context, path string, fn func(driven.HistoryStore) error) error {
	if path == "" {
		return errNoHistoryDB
	}

	db, err := sqliteadapter.NewDB(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}

	return fn(sqliteadapter.NewHistoryRepo(db))
}

func writeRuns(out io.Writer, runs []model.ImportRun) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(out, "No import runs recorded.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTARTED\tSTATUS\tSUBMITTED\tSOURCE")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			run.ID, run.StartedAt.Format(time.RFC3339), run.Status, run.Submitted, run.SourcePath)
	}
	return tw.Flush()
}

func writeRun(out io.Writer, run model.ImportRun, subs []model.Submission) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Run:\t%s\n", run.ID)
	fmt.Fprintf(tw, "Source:\t%s\n", run.SourcePath)
	fmt.Fprintf(tw, "Status:\t%s\n", run.Status)
	fmt.Fprintf(tw, "Started:\t%s\n", run.StartedAt.Format(time.RFC3339))
	if run.FinishedAt != nil {
		fmt.Fprintf(tw, "Finished:\t%s\n", run.FinishedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(tw, "Submitted:\t%d\n", run.Submitted)
	if run.Error != "" {
		fmt.Fprintf(tw, "Error:\t%s\n", run.Error)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(subs) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tSTATUS\tOUTCOME\tCONTENT")
	for _, sub := range subs {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", sub.Row, sub.StatusCode, sub.Outcome, sub.Content)
	}
	return tw.Flush()
}
