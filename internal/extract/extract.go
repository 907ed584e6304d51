// Package extract turns Ruby source text into a Source snapshot: a flat pin
// table of declarations plus the expression chains found in the file. It
// parses with tree-sitter and walks the concrete syntax tree; syntactically
// invalid text degrades to a best-effort partial result, never an error.
package extract

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"

	"loupe/internal/pin"
	"loupe/internal/source"
)

// Load extracts a Source from text. Deterministic for identical input.
func Load(filename, text string, version int) (*source.Source, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(ruby.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, []byte(text))
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filename, err)
	}
	defer tree.Close()

	w := &walker{
		filename: filename,
		text:     text,
		src:      []byte(text),
		scope:    pin.ScopeInstance,
	}
	w.walkChildren(tree.RootNode())

	return &source.Source{
		Filename: filename,
		Version:  version,
		Text:     text,
		Pins:     w.pins,
		Chains:   w.chains,
	}, nil
}

// literalTypes maps literal node types to their core class.
var literalTypes = map[string]string{
	"integer":       "Integer",
	"float":         "Float",
	"string":        "String",
	"simple_symbol": "Symbol",
	"symbol":        "Symbol",
	"regex":         "Regexp",
	"array":         "Array",
	"string_array":  "Array",
	"symbol_array":  "Array",
	"hash":          "Hash",
	"range":         "Range",
	"true":          "TrueClass",
	"false":         "FalseClass",
	"nil":           "NilClass",
	"lambda":        "Proc",
}

// nsOr returns the namespace, or fallback when empty. Top-level code lives
// on Object.
func nsOr(ns, fallback string) string {
	if ns == "" {
		return fallback
	}
	return ns
}

// methodPath joins a namespace and method name: Ns#name for instance
// methods, Ns.name for class methods. Top-level methods land on Object.
func methodPath(ns, name string, scope pin.Scope) string {
	sep := "#"
	if scope == pin.ScopeClass {
		sep = "."
	}
	return nsOr(ns, "Object") + sep + name
}

// stripComment removes the leading "#" and one space from a comment line.
func stripComment(line string) string {
	line = strings.TrimPrefix(strings.TrimSpace(line), "#")
	return strings.TrimPrefix(line, " ")
}
