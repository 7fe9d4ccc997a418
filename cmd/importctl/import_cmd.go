package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/edrees2022/log-and-ledger-sub006/internal/config"
	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
	"github.com/edrees2022/log-and-ledger-sub006/internal/store"
)

type importOutput struct {
	Target     string                `json:"target"`
	File       string                `json:"file"`
	Counts     core.ValidationCounts `json:"counts"`
	Success    int                   `json:"success"`
	Failed     int                   `json:"failed"`
	Cancelled  int                   `json:"cancelled"`
	Errors     []string              `json:"errors"`
	More       string                `json:"more,omitempty"`
	DurationMS int64                 `json:"duration_ms"`
}

// historyErrorLimit caps the error messages stored with a run.
const historyErrorLimit = 20

func newImportCmd() *cobra.Command {
	var flags sessionFlags

	cmd := &cobra.Command{
		Use:   "import <target> <file>",
		Short: "Validate a file and create its importable rows in the database",
		Long: "Rows with errors are skipped. Interrupting the command stops the import " +
			"before the next row; rows already created are kept.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sess, err := prepare(args[0], args[1], flags)
			if err != nil {
				return err
			}
			counts := core.CountRows(sess.ParsedRows())

			pool, err := store.Connect(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			st := store.New(pool, cfg.Import.CompanyID)
			if cfg.Database.AutoMigrate {
				if err := st.Migrate(ctx); err != nil {
					return err
				}
			}

			importer := core.NewBatchImporter(st,
				core.WithSessionID(sess.ID()),
				core.WithLogger(slog.Default()),
				core.WithProgress(progressPrinter(cmd)),
			)

			started := time.Now()
			res, err := sess.Import(ctx, importer)
			if err != nil {
				return err
			}
			recordRun(st, sess, res, started)

			sum := res.Summary()
			return writeJSON(cmd.OutOrStdout(), importOutput{
				Target:     sess.Target().ID,
				File:       sess.FileName(),
				Counts:     counts,
				Success:    res.Success,
				Failed:     res.Failed,
				Cancelled:  res.Cancelled,
				Errors:     sum.Shown,
				More:       sum.MoreLabel(),
				DurationMS: res.Duration.Milliseconds(),
			})
		},
	}

	flags.register(cmd)
	return cmd
}

// progressPrinter reports each new percentage on stderr.
func progressPrinter(cmd *cobra.Command) core.ProgressCallback {
	last := -1
	return func(p core.ImportProgress) {
		if p.Percent == last {
			return
		}
		last = p.Percent
		fmt.Fprintf(cmd.ErrOrStderr(), "\rimporting %s: %3d%% (%d/%d)", p.Target, p.Percent, p.Processed, p.Total)
		if p.Processed == p.Total {
			fmt.Fprintln(cmd.ErrOrStderr())
		}
	}
}

// recordRun writes the run to the import history like the web service does.
func recordRun(st *store.Store, sess *core.Session, res core.ImportResult, started time.Time) {
	phase := core.PhaseComplete
	if res.Cancelled > 0 {
		phase = core.PhaseCancelled
	}
	errs := res.Errors
	if len(errs) > historyErrorLimit {
		errs = errs[:historyErrorLimit]
	}
	run := core.ImportRun{
		ID:        uuid.NewString(),
		SessionID: sess.ID(),
		Target:    sess.Target().ID,
		FileName:  sess.FileName(),
		Phase:     phase,
		Success:   res.Success,
		Failed:    res.Failed,
		Cancelled: res.Cancelled,
		Errors:    errs,
		Duration:  res.Duration,
		StartedAt: started,
		UserAgent: "importctl",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := st.RecordRun(ctx, run); err != nil {
		slog.Warn("failed to record import run", "error", err)
	}
}
