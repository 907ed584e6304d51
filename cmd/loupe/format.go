package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
)

// formatLocationsText formats CLILocation results as "file:line:col" lines.
func formatLocationsText(w io.Writer, locs []CLILocation) {
	for _, loc := range locs {
		fmt.Fprintf(w, "%s:%d:%d\n", loc.File, loc.StartLine, loc.StartCol)
	}
}

// formatPinsText formats CLIPin results as aligned columns.
func formatPinsText(w io.Writer, pins []CLIPin) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tKIND\tVISIBILITY\tFILE\tLINE")
	for _, p := range pins {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			p.Path, p.Kind, p.Visibility, p.File, p.StartLine)
	}
	tw.Flush()
}

// formatDiagnosticsText formats CLIDiagnostic results as compiler-style lines.
func formatDiagnosticsText(w io.Writer, diags []CLIDiagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s:%d:%d: %s: %s [%s]\n",
			d.File, d.StartLine, d.StartCol, d.Severity, d.Message, d.Rule)
	}
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case []CLILocation:
		formatLocationsText(w, v)
	case []CLIPin:
		formatPinsText(w, v)
	case []CLIDiagnostic:
		formatDiagnosticsText(w, v)
	case string:
		fmt.Fprintln(w, v)
	case nil:
		// No output for nil results.
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}
