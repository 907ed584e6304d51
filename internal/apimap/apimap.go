// Package apimap maintains the aggregated symbol index: per-file pin tables
// merged into one queryable map, layered over the built-in core table.
// Merging is cheap and per-file; the index rebuild is deferred until
// Catalog, so a batch of merges pays for one rebuild.
package apimap

import (
	"sort"
	"strings"

	"loupe/internal/corelib"
	"loupe/internal/pin"
	"loupe/internal/source"
)

type nameKey struct {
	kind pin.Kind
	name string
}

// ApiMap indexes every merged Source plus the frozen core layer. One path
// can hold multiple pins: a namespace reopened across files contributes one
// pin per declaration, and consumers must treat "declarations of X" as a
// set.
type ApiMap struct {
	sources map[string]*source.Source
	paths   map[string][]*pin.Pin
	named   map[nameKey][]*pin.Pin
	dirty   bool
	core    *corelib.Layer
}

// New returns an empty ApiMap over the process-wide core layer.
func New() *ApiMap {
	return &ApiMap{
		sources: make(map[string]*source.Source),
		paths:   make(map[string][]*pin.Pin),
		named:   make(map[nameKey][]*pin.Pin),
		core:    corelib.Load(),
	}
}

// Merge replaces any prior entry for the source's filename. O(1) here; the
// per-file index re-derivation happens in the next Catalog.
func (m *ApiMap) Merge(src *source.Source) {
	m.sources[src.Filename] = src
	m.dirty = true
}

// Remove drops a filename from the index.
func (m *ApiMap) Remove(filename string) {
	if _, ok := m.sources[filename]; !ok {
		return
	}
	delete(m.sources, filename)
	m.dirty = true
}

// Catalog rebuilds the path and name indexes if anything changed since the
// last build. Rebuilding is deterministic (sources are walked in filename
// order) and idempotent; calling it redundantly is a no-op.
func (m *ApiMap) Catalog() {
	if !m.dirty {
		return
	}
	m.paths = make(map[string][]*pin.Pin)
	m.named = make(map[nameKey][]*pin.Pin)
	for _, fname := range m.Filenames() {
		for _, p := range m.sources[fname].Pins {
			if !indexable(p.Kind) {
				continue
			}
			m.paths[p.Path] = append(m.paths[p.Path], p)
			k := nameKey{kind: p.Kind, name: p.Name}
			m.named[k] = append(m.named[k], p)
		}
	}
	m.dirty = false
}

// indexable reports whether a pin kind belongs in the workspace-level index.
// Locals, parameters and block parameters are lexical: they resolve through
// chain contexts, never through the index.
func indexable(k pin.Kind) bool {
	switch k {
	case pin.KindLocalVariable, pin.KindParameter, pin.KindBlockParameter:
		return false
	}
	return true
}

// Dirty reports whether a Catalog is pending.
func (m *ApiMap) Dirty() bool { return m.dirty }

// Source returns the merged source for filename, or nil.
func (m *ApiMap) Source(filename string) *source.Source {
	return m.sources[filename]
}

// Filenames returns every merged filename in sorted order.
func (m *ApiMap) Filenames() []string {
	names := make([]string, 0, len(m.sources))
	for n := range m.sources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PinsAtPath returns the pins declared at a full path, preferring workspace
// declarations and falling back to the core layer.
func (m *ApiMap) PinsAtPath(path string) []*pin.Pin {
	m.Catalog()
	if pins := m.paths[path]; len(pins) > 0 {
		return pins
	}
	return m.core.PinsAtPath(path)
}

// PinsByName returns every workspace pin of the given kind and name,
// regardless of namespace. Used for fuzzy, name-only lookups.
func (m *ApiMap) PinsByName(kind pin.Kind, name string) []*pin.Pin {
	m.Catalog()
	return m.named[nameKey{kind: kind, name: name}]
}

// MethodPins implements chain.Index. Lookup is by full path
// (namespace#name or namespace.name); non-public pins are filtered unless
// the receiver is implicit self.
func (m *ApiMap) MethodPins(namespace string, scope pin.Scope, name string, includeNonPublic bool) []*pin.Pin {
	m.Catalog()
	if namespace == "" {
		namespace = "Object" // top-level code runs on main
	}
	sep := "#"
	if scope == pin.ScopeClass {
		sep = "."
	}
	var out []*pin.Pin
	for _, p := range m.paths[namespace+sep+name] {
		if p.Kind != pin.KindMethod {
			continue
		}
		if !includeNonPublic && p.Visibility != pin.Public {
			continue
		}
		out = append(out, p)
	}
	if len(out) > 0 {
		return out
	}
	return m.core.MethodPins(namespace, scope, name)
}

// MethodsOf returns every method pin declared on namespace at the given
// scope, workspace declarations first, then the core methods the receiver
// responds to. Duplicate paths are kept: reopened classes contribute one pin
// per declaration.
func (m *ApiMap) MethodsOf(namespace string, scope pin.Scope, includeNonPublic bool) []*pin.Pin {
	m.Catalog()
	if namespace == "" {
		namespace = "Object"
	}
	sep := "#"
	if scope == pin.ScopeClass {
		sep = "."
	}
	prefix := namespace + sep
	var out []*pin.Pin
	for path, pins := range m.paths {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		for _, p := range pins {
			if p.Kind != pin.KindMethod {
				continue
			}
			if !includeNonPublic && p.Visibility != pin.Public {
				continue
			}
			out = append(out, p)
		}
	}
	out = append(out, m.core.MethodsOf(namespace, scope)...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ConstantPins implements chain.Index: resolve a bare constant reference by
// walking the enclosing namespaces innermost-outward, then the root, then
// the core layer.
func (m *ApiMap) ConstantPins(contextNamespace, name string) []*pin.Pin {
	m.Catalog()
	for _, ns := range nesting(contextNamespace) {
		if pins := m.constantPinsIn(ns, name); len(pins) > 0 {
			return pins
		}
	}
	return m.core.ConstantPins(name)
}

// NamespaceConstantPins implements chain.Index: exact `namespace::name`
// lookup with no outward walk.
func (m *ApiMap) NamespaceConstantPins(namespace, name string) []*pin.Pin {
	m.Catalog()
	if pins := m.constantPinsIn(namespace, name); len(pins) > 0 {
		return pins
	}
	if namespace == "" {
		return m.core.ConstantPins(name)
	}
	return nil
}

func (m *ApiMap) constantPinsIn(namespace, name string) []*pin.Pin {
	path := name
	if namespace != "" {
		path = namespace + "::" + name
	}
	var out []*pin.Pin
	for _, p := range m.paths[path] {
		switch p.Kind {
		case pin.KindClass, pin.KindModule, pin.KindConstant:
			out = append(out, p)
		}
	}
	return out
}

// VariablePins implements chain.Index: instance/class variable lookup scoped
// to a namespace. The variable name keeps its sigil (`@x`, `@@x`).
func (m *ApiMap) VariablePins(namespace string, scope pin.Scope, name string) []*pin.Pin {
	m.Catalog()
	if namespace == "" {
		namespace = "Object"
	}
	sep := "#"
	if scope == pin.ScopeClass {
		sep = "."
	}
	var out []*pin.Pin
	for _, p := range m.paths[namespace+sep+name] {
		switch p.Kind {
		case pin.KindInstanceVariable, pin.KindClassVariable:
			out = append(out, p)
		}
	}
	return out
}

// Document returns the pins declared exactly at path, workspace first, core
// as fallback.
func (m *ApiMap) Document(path string) []*pin.Pin {
	return m.PinsAtPath(path)
}

// Search returns workspace pins whose path contains query, in stable path
// order.
func (m *ApiMap) Search(query string) []*pin.Pin {
	m.Catalog()
	var out []*pin.Pin
	for path, pins := range m.paths {
		if strings.Contains(path, query) {
			out = append(out, pins...)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Location.String() < out[j].Location.String()
	})
	return out
}

// nesting expands "A::B::C" into ["A::B::C", "A::B", "A", ""].
func nesting(namespace string) []string {
	out := []string{}
	for namespace != "" {
		out = append(out, namespace)
		i := strings.LastIndex(namespace, "::")
		if i < 0 {
			break
		}
		namespace = namespace[:i]
	}
	return append(out, "")
}
