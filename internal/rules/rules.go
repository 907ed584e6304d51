// Package rules runs pluggable diagnostic rules against analyzed sources.
// Rules are Risor scripts loaded from an fs.FS (the embedded defaults, or a
// directory override); each script inspects a document's pins and resolved
// chains through host functions and reports findings.
package rules

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/risor-io/risor"

	"loupe/internal/apimap"
	"loupe/internal/pin"
	"loupe/internal/source"
)

// Severity grades a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityHint    Severity = "hint"
)

// Diagnostic is one rule finding in one file.
type Diagnostic struct {
	Location pin.Location
	Severity Severity
	Rule     string
	Message  string
}

// Runtime loads and executes rule scripts.
type Runtime struct {
	rulesDir string
	fsys     fs.FS
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithFS loads rule scripts from the given filesystem instead of rulesDir,
// enabling go:embed defaults.
func WithFS(fsys fs.FS) Option {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// NewRuntime creates a Runtime reading rules from rulesDir on disk, unless
// WithFS overrides the source. rulesDir may be empty when WithFS is used.
func NewRuntime(rulesDir string, opts ...Option) *Runtime {
	r := &Runtime{rulesDir: rulesDir}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Scripts returns the rule script paths in sorted order.
func (r *Runtime) Scripts() []string {
	var paths []string
	if r.fsys != nil {
		fs.WalkDir(r.fsys, ".", func(path string, d fs.DirEntry, err error) error {
			if err == nil && !d.IsDir() && strings.HasSuffix(path, ".risor") {
				paths = append(paths, path)
			}
			return nil
		})
	} else if r.rulesDir != "" {
		filepath.WalkDir(r.rulesDir, func(path string, d fs.DirEntry, err error) error {
			if err == nil && !d.IsDir() && strings.HasSuffix(path, ".risor") {
				paths = append(paths, path)
			}
			return nil
		})
	}
	sort.Strings(paths)
	return paths
}

func (r *Runtime) load(path string) (string, error) {
	if r.fsys != nil {
		data, err := fs.ReadFile(r.fsys, filepath.ToSlash(path))
		if err != nil {
			return "", fmt.Errorf("rules: loading %s from fs: %w", path, err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("rules: loading %s: %w", path, err)
	}
	return string(data), nil
}

// ruleName derives a rule's name from its script path:
// "rules/unresolved_constant.risor" → "unresolved-constant".
func ruleName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), ".risor")
	return strings.ReplaceAll(base, "_", "-")
}

// Diagnose runs every rule script against src, resolving its chains through
// api, and returns the collected findings in stable order.
func (r *Runtime) Diagnose(ctx context.Context, api *apimap.ApiMap, src *source.Source) ([]Diagnostic, error) {
	var out []Diagnostic
	for _, script := range r.Scripts() {
		code, err := r.load(script)
		if err != nil {
			return nil, err
		}
		name := ruleName(script)
		collect := func(d Diagnostic) {
			d.Rule = name
			d.Location.Filename = src.Filename
			out = append(out, d)
		}

		opts := []risor.Option{
			risor.WithGlobal("file_path", src.Filename),
			risor.WithGlobal("document_pins", makeDocumentPinsFn(src)),
			risor.WithGlobal("document_chains", makeDocumentChainsFn(api, src)),
			risor.WithGlobal("report", makeReportFn(collect)),
		}
		if _, err := risor.Eval(ctx, code, opts...); err != nil {
			return nil, fmt.Errorf("rules: script %s: %w", script, err)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Location.Range.Start != b.Location.Range.Start {
			return a.Location.Range.Start.Before(b.Location.Range.Start)
		}
		return a.Rule < b.Rule
	})
	return out, nil
}
