package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
	"github.com/edrees2022/log-and-ledger-sub006/internal/sheet"
)

func newTemplateCmd() *cobra.Command {
	var (
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "template <target>",
		Short: "Write the import template for a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := core.GenerateTemplate(args[0])
			if err != nil {
				return err
			}

			f := sheet.Format(strings.ToLower(format))
			if f == sheet.FormatUnknown && output != "" {
				f = sheet.Format(strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), "."))
			}
			if f == sheet.FormatUnknown {
				f = sheet.FormatXLSX
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			} else if f == sheet.FormatXLSX {
				return fmt.Errorf("xlsx templates need --output; use --format csv for stdout")
			}

			return sheet.WriteTemplate(w, tmpl, f)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (format inferred from extension)")
	cmd.Flags().StringVar(&format, "format", "", "Template format: xlsx or csv")
	return cmd
}
