package main

import (
	"github.com/spf13/cobra"

	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
)

type targetOutput struct {
	ID       string           `json:"id"`
	Label    string           `json:"label"`
	Fields   []core.FieldSpec `json:"fields"`
	Required []string         `json:"required"`
}

func newTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List import targets and their fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out []targetOutput
			for _, t := range core.All() {
				out = append(out, targetOutput{
					ID:       t.ID,
					Label:    t.Label,
					Fields:   t.Fields,
					Required: t.RequiredFields(),
				})
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}
