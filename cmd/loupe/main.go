package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"loupe"
)

var (
	flagRoot   string
	flagFormat string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "loupe",
	Short:         "Scope-aware code intelligence for Ruby",
	Long:          "Loupe parses a Ruby workspace with tree-sitter and answers editor-grade queries: symbols, definitions, type-aware references, completion, diagnostics.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", ".", "workspace root directory")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")

	rootCmd.AddCommand(symbolsCmd)
	rootCmd.AddCommand(definitionCmd)
	rootCmd.AddCommand(referencesCmd)
	rootCmd.AddCommand(completionsCmd)
	rootCmd.AddCommand(signaturesCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(documentCmd)
	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(exportCmd)
}

// openLibrary builds a Library over --root and bulk-loads it.
func openLibrary(cmd *cobra.Command) (*loupe.Library, error) {
	root, err := filepath.Abs(flagRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", flagRoot, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("workspace root not found: %s", root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}

	lib := loupe.New(root)
	if err := lib.Load(cmd.Context()); err != nil {
		return nil, fmt.Errorf("loading workspace: %w", err)
	}
	return lib, nil
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}

// parsePositionArgs reads the common <file> <line> <col> argument triple.
// Lines and columns are 0-based.
func parsePositionArgs(args []string) (string, int, int, error) {
	file, err := resolveFilePath(args[0])
	if err != nil {
		return "", 0, 0, err
	}
	line, err := parseIntArg(args[1], "line")
	if err != nil {
		return "", 0, 0, err
	}
	col, err := parseIntArg(args[2], "col")
	if err != nil {
		return "", 0, 0, err
	}
	return file, line, col, nil
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
