package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
)

type validateOutput struct {
	Target     string                `json:"target"`
	File       string                `json:"file"`
	Mapping    core.ColumnMapping    `json:"mapping"`
	Unmapped   []string              `json:"unmapped"`
	Duplicates map[string][]string   `json:"duplicates,omitempty"`
	Counts     core.ValidationCounts `json:"counts"`
	Problems   []rowProblem          `json:"problems"`
}

func newValidateCmd() *cobra.Command {
	var (
		flags  sessionFlags
		show   int
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "validate <target> <file>",
		Short: "Map and validate a file without importing it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := prepare(args[0], args[1], flags)
			if err != nil {
				return err
			}

			snap := sess.Snapshot()
			counts := core.CountRows(sess.ParsedRows())
			out := validateOutput{
				Target:     snap.Target,
				File:       snap.FileName,
				Mapping:    snap.Mapping,
				Unmapped:   snap.Unmapped,
				Duplicates: snap.Duplicates,
				Counts:     counts,
				Problems:   problems(sess.ParsedRows(), show),
			}
			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}

			if strict && counts.Error > 0 {
				return fmt.Errorf("%d of %d rows have errors", counts.Error, counts.Total)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&show, "show", 20, "Number of problem rows to print")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any row has errors")
	return cmd
}
