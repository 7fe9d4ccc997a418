// Command importctl validates and imports spreadsheets from the command line
// using the same pipeline as the HTTP wizard.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// reportError prints the user-facing message for known failures and the raw
// error for everything else. The technical detail goes last for support.
func reportError(w io.Writer, err error) {
	if !core.IsUserFacing(err) {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(w, "Error: %s\n", core.FormatUserError(err))
	fmt.Fprintf(w, "  detail: %v\n", err)
}
