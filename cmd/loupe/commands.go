package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// All line and column numbers on the CLI are 0-based, matching the library.

var symbolsCmd = &cobra.Command{
	Use:   "symbols <file>",
	Short: "List the declaration pins of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSymbols,
}

func runSymbols(cmd *cobra.Command, args []string) error {
	lib, err := openLibrary(cmd)
	if err != nil {
		return outputError("symbols", err)
	}
	file, err := resolveFilePath(args[0])
	if err != nil {
		return outputError("symbols", err)
	}

	pins, err := lib.DocumentSymbols(file)
	if err != nil {
		return outputError("symbols", err)
	}
	return outputResult(CLIResult{Command: "symbols", Results: pinsToCLI(pins)})
}

var definitionCmd = &cobra.Command{
	Use:   "definition <file> <line> <col>",
	Short: "Find the definition of the symbol at a position",
	Args:  cobra.ExactArgs(3),
	RunE:  runDefinition,
}

func runDefinition(cmd *cobra.Command, args []string) error {
	lib, err := openLibrary(cmd)
	if err != nil {
		return outputError("definition", err)
	}
	file, line, col, err := parsePositionArgs(args)
	if err != nil {
		return outputError("definition", err)
	}

	pins, err := lib.DefinitionsAt(file, line, col)
	if err != nil {
		return outputError("definition", err)
	}
	return outputResult(CLIResult{Command: "definition", Results: pinsToCLI(pins)})
}

var flagStrip bool

var referencesCmd = &cobra.Command{
	Use:   "references <file> <line> <col>",
	Short: "Find all references to the symbol at a position",
	Long:  "Finds every location referring to the symbol at a position. Matching is type-aware: a same-named method on an unrelated class never appears.",
	Args:  cobra.ExactArgs(3),
	RunE:  runReferences,
}

func init() {
	referencesCmd.Flags().BoolVar(&flagStrip, "strip", false, "narrow qualified constant references to the bare name")
}

func runReferences(cmd *cobra.Command, args []string) error {
	lib, err := openLibrary(cmd)
	if err != nil {
		return outputError("references", err)
	}
	file, line, col, err := parsePositionArgs(args)
	if err != nil {
		return outputError("references", err)
	}

	locs, err := lib.ReferencesFrom(file, line, col, flagStrip)
	if err != nil {
		return outputError("references", err)
	}
	return outputResult(CLIResult{Command: "references", Results: locationsToCLI(locs)})
}

var completionsCmd = &cobra.Command{
	Use:   "completions <file> <line> <col>",
	Short: "List completion candidates at a position",
	Args:  cobra.ExactArgs(3),
	RunE:  runCompletions,
}

func runCompletions(cmd *cobra.Command, args []string) error {
	lib, err := openLibrary(cmd)
	if err != nil {
		return outputError("completions", err)
	}
	file, line, col, err := parsePositionArgs(args)
	if err != nil {
		return outputError("completions", err)
	}

	pins, err := lib.CompletionsAt(file, line, col)
	if err != nil {
		return outputError("completions", err)
	}
	return outputResult(CLIResult{Command: "completions", Results: pinsToCLI(pins)})
}

var signaturesCmd = &cobra.Command{
	Use:   "signatures <file> <line> <col>",
	Short: "Describe the method called at a position",
	Args:  cobra.ExactArgs(3),
	RunE:  runSignatures,
}

func runSignatures(cmd *cobra.Command, args []string) error {
	lib, err := openLibrary(cmd)
	if err != nil {
		return outputError("signatures", err)
	}
	file, line, col, err := parsePositionArgs(args)
	if err != nil {
		return outputError("signatures", err)
	}

	pins, err := lib.SignaturesAt(file, line, col)
	if err != nil {
		return outputError("signatures", err)
	}
	return outputResult(CLIResult{Command: "signatures", Results: pinsToCLI(pins)})
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search workspace symbols by path substring",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	lib, err := openLibrary(cmd)
	if err != nil {
		return outputError("search", err)
	}
	return outputResult(CLIResult{Command: "search", Results: pinsToCLI(lib.Search(args[0]))})
}

var documentCmd = &cobra.Command{
	Use:   "document <path>",
	Short: "Show the pins declared at a full symbol path",
	Long:  "Shows the declarations at an exact symbol path like \"Foo\" or \"Foo#bar\". Workspace declarations shadow built-in core ones.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocument,
}

func runDocument(cmd *cobra.Command, args []string) error {
	lib, err := openLibrary(cmd)
	if err != nil {
		return outputError("document", err)
	}
	return outputResult(CLIResult{Command: "document", Results: pinsToCLI(lib.Document(args[0]))})
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <file>",
	Short: "Run diagnostic rules against a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiagnose,
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	lib, err := openLibrary(cmd)
	if err != nil {
		return outputError("diagnose", err)
	}
	file, err := resolveFilePath(args[0])
	if err != nil {
		return outputError("diagnose", err)
	}

	diags, err := lib.Diagnose(cmd.Context(), file)
	if err != nil {
		return outputError("diagnose", err)
	}
	out := make([]CLIDiagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, diagnosticToCLI(d))
	}
	return outputResult(CLIResult{Command: "diagnose", Results: out})
}

var flagDB string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the workspace index to a SQLite database",
	Long:  "Dumps the loaded catalog (files, pins, resolved references) into a SQLite database for external tooling. The export is one-way; loupe never reads it back.",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&flagDB, "db", "loupe.db", "database path")
	exportCmd.MarkFlagRequired("db")
}

func runExport(cmd *cobra.Command, args []string) error {
	lib, err := openLibrary(cmd)
	if err != nil {
		return outputError("export", err)
	}
	if err := lib.Export(flagDB); err != nil {
		return outputError("export", err)
	}
	return outputResult(CLIResult{
		Command: "export",
		Results: fmt.Sprintf("exported %d files to %s", len(lib.Filenames()), flagDB),
	})
}
