// Package pin defines the symbol data model: every declared name in a
// workspace (class, module, method, parameter, variable, constant) is one
// immutable Pin with a namespace-qualified path and a source location.
package pin

import "fmt"

// Kind classifies what a Pin declares.
type Kind int

const (
	KindClass Kind = iota
	KindModule
	KindMethod
	KindParameter
	KindLocalVariable
	KindBlockParameter
	KindConstant
	KindInstanceVariable
	KindClassVariable
)

var kindNames = map[Kind]string{
	KindClass:            "class",
	KindModule:           "module",
	KindMethod:           "method",
	KindParameter:        "parameter",
	KindLocalVariable:    "local_variable",
	KindBlockParameter:   "block_parameter",
	KindConstant:         "constant",
	KindInstanceVariable: "instance_variable",
	KindClassVariable:    "class_variable",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Scope distinguishes instance-level from class-level declarations.
type Scope int

const (
	ScopeInstance Scope = iota
	ScopeClass
)

func (s Scope) String() string {
	if s == ScopeClass {
		return "class"
	}
	return "instance"
}

// Visibility is Ruby method visibility.
type Visibility int

const (
	Public Visibility = iota
	Private
	Protected
)

func (v Visibility) String() string {
	switch v {
	case Private:
		return "private"
	case Protected:
		return "protected"
	default:
		return "public"
	}
}

// Position is a zero-based line/column pair. Columns count runes, not bytes.
type Position struct {
	Line int
	Col  int
}

// Before reports whether p precedes o in document order.
func (p Position) Before(o Position) bool {
	return p.Line < o.Line || (p.Line == o.Line && p.Col < o.Col)
}

// Range is a [Start, End] span of text.
type Range struct {
	Start Position
	End   Position
}

// Contains reports whether pos falls inside the range. The end position is
// included so a cursor sitting just after the last rune still matches.
func (r Range) Contains(pos Position) bool {
	if pos.Line < r.Start.Line || pos.Line > r.End.Line {
		return false
	}
	if pos.Line == r.Start.Line && pos.Col < r.Start.Col {
		return false
	}
	if pos.Line == r.End.Line && pos.Col > r.End.Col {
		return false
	}
	return true
}

// Location is a filename plus a range within it.
type Location struct {
	Filename string
	Range    Range
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.Filename, l.Range.Start.Line, l.Range.Start.Col)
}

// ID is the identity key for reference aggregation. Two pins are the same
// symbol iff their paths and kinds match; textual name equality means nothing
// (Foo#bar and Other#bar are unrelated).
type ID struct {
	Path string
	Kind Kind
}

// Pin is one declared symbol. Pins are immutable once extracted and freely
// shareable across resolution calls.
type Pin struct {
	Kind       Kind
	Name       string
	Path       string
	Namespace  string
	Scope      Scope
	Visibility Visibility
	Location   Location
	Docs       string

	// ReturnType is the best-effort receiver type this pin yields when used
	// in an expression chain: the owning namespace for `new`, the statically
	// evident type of a local's assignment, a core class for literals. Empty
	// when inference gave up.
	ReturnType string
}

// ID returns the pin's identity key.
func (p *Pin) ID() ID {
	return ID{Path: p.Path, Kind: p.Kind}
}

// Same reports whether two pins denote the same symbol.
func (p *Pin) Same(o *Pin) bool {
	return o != nil && p.Path == o.Path && p.Kind == o.Kind
}

// String returns "kind path", e.g. "method Foo#bar".
func (p *Pin) String() string {
	return p.Kind.String() + " " + p.Path
}
