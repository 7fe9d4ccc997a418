package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
	"github.com/edrees2022/log-and-ledger-sub006/internal/sheet"
)

// sessionFlags are shared by validate and import.
type sessionFlags struct {
	mapping map[string]string
	maxRows int
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringToStringVarP(&f.mapping, "map", "m", nil, "Bind a field to a column, e.g. -m email=\"E-mail Address\" (repeatable)")
	cmd.Flags().IntVar(&f.maxRows, "max-rows", 50000, "Reject files with more data rows (0 = unlimited)")
}

// prepare runs a session for the file through upload, mapping and validation.
func prepare(target, path string, f sessionFlags) (*core.Session, error) {
	cfg, err := core.GetConfig(target)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	sess := core.NewSession(uuid.NewString(), cfg, sheet.NewParser(f.maxRows))
	if err := sess.Upload(filepath.Base(path), data); err != nil {
		return nil, err
	}
	for field, header := range f.mapping {
		if err := sess.UpdateMapping(field, header); err != nil {
			return nil, err
		}
	}
	if _, err := sess.Validate(); err != nil {
		return nil, err
	}
	return sess, nil
}

type rowProblem struct {
	Row      int            `json:"row"`
	Status   core.RowStatus `json:"status"`
	Errors   []string       `json:"errors,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

// problems lists the first limit rows that are not valid.
func problems(rows []core.ParsedRow, limit int) []rowProblem {
	var out []rowProblem
	for _, r := range rows {
		if r.Status == core.StatusValid {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, rowProblem{
			Row:      r.Index + 1,
			Status:   r.Status,
			Errors:   r.Errors,
			Warnings: r.Warnings,
		})
	}
	return out
}
