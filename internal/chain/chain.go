// Package chain models resolvable expressions: a Chain is an ordered list of
// Links (variable reference, method call, constant, literal) extracted from a
// dotted or scoped expression like `foo.bar.baz` or `A::B::Foo`. Each link
// resolves against a symbol index to a set of candidate pins; the resolved
// set of one link becomes the receiver context for the next.
package chain

import "loupe/internal/pin"

// Index is the symbol lookup surface links resolve against. Implemented by
// the apimap package; defined here so resolution stays free of an import
// cycle.
type Index interface {
	// MethodPins returns method pins named name on namespace at the given
	// scope. Non-public methods are only returned when includeNonPublic is
	// set (implicit self receivers).
	MethodPins(namespace string, scope pin.Scope, name string, includeNonPublic bool) []*pin.Pin

	// ConstantPins resolves a bare constant reference from inside
	// contextNamespace, walking enclosing namespaces innermost-outward and
	// ending at the root (and the built-in core layer).
	ConstantPins(contextNamespace, name string) []*pin.Pin

	// NamespaceConstantPins resolves `namespace::name` exactly, with no
	// outward walk.
	NamespaceConstantPins(namespace, name string) []*pin.Pin

	// VariablePins returns instance/class variable pins declared on
	// namespace at the given scope.
	VariablePins(namespace string, scope pin.Scope, name string) []*pin.Pin
}

// Context is the lexical context a chain was extracted in: the enclosing
// namespace, whether the position is instance- or class-level, and the
// local/block-parameter pins visible at the chain's location.
type Context struct {
	Namespace string
	Scope     pin.Scope
	Locals    []*pin.Pin
}

// Chain is an ordered sequence of links anchored at a source location.
type Chain struct {
	Links    []Link
	Location pin.Location
	Context  Context
}

// receiver is one candidate receiver type for a link: a namespace plus
// whether lookups should target its class or instance side.
type receiver struct {
	namespace string
	scope     pin.Scope
}

// ResolveSteps resolves every link in order and returns the pin set per
// link. An empty result at any link short-circuits the rest of the chain:
// inference gave up, so later links resolve empty rather than guessing.
func (c *Chain) ResolveSteps(ix Index) [][]*pin.Pin {
	steps := make([][]*pin.Pin, len(c.Links))
	var receivers []receiver
	for i, link := range c.Links {
		head := i == 0
		if !head && receivers == nil {
			break // previous link resolved empty
		}
		pins := link.resolve(ix, c.Context, receivers, head)
		steps[i] = pins
		receivers = nextReceivers(link, pins)
	}
	return steps
}

// Resolve returns the pin set the whole chain denotes: the resolution of its
// final link.
func (c *Chain) Resolve(ix Index) []*pin.Pin {
	steps := c.ResolveSteps(ix)
	if len(steps) == 0 {
		return nil
	}
	return steps[len(steps)-1]
}

// LinkAt returns the index of the link whose span contains pos, or -1.
func (c *Chain) LinkAt(pos pin.Position) int {
	for i, link := range c.Links {
		if link.Location().Range.Contains(pos) {
			return i
		}
	}
	return -1
}

// DefineAt resolves the link covering pos. Used by definition and reference
// queries to answer "what does the identifier under the cursor denote".
func (c *Chain) DefineAt(ix Index, pos pin.Position) []*pin.Pin {
	i := c.LinkAt(pos)
	if i < 0 {
		return nil
	}
	return c.ResolveSteps(ix)[i]
}

// ReceiverType is an inferred receiver: a namespace plus which side of it
// (class or instance) lookups should target.
type ReceiverType struct {
	Namespace string
	Scope     pin.Scope
}

// ReceiversAt infers the receiver types feeding link i: the types produced
// by resolving the preceding links. The head link has no receivers.
func (c *Chain) ReceiversAt(ix Index, i int) []ReceiverType {
	if i <= 0 || i >= len(c.Links) {
		return nil
	}
	steps := c.ResolveSteps(ix)
	rs := nextReceivers(c.Links[i-1], steps[i-1])
	out := make([]ReceiverType, 0, len(rs))
	for _, r := range rs {
		out = append(out, ReceiverType{Namespace: r.namespace, Scope: r.scope})
	}
	return out
}

// nextReceivers derives the receiver types for the link following one that
// resolved to pins. Class and module pins receive class-scope lookups
// (`Foo.bar`); everything else contributes its inferred ReturnType as an
// instance receiver. Literals always yield instances of their core type.
func nextReceivers(l Link, pins []*pin.Pin) []receiver {
	if len(pins) == 0 {
		return nil
	}
	var out []receiver
	seen := make(map[receiver]bool)
	add := func(r receiver) {
		if r.namespace != "" && !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	if _, ok := l.(*Literal); ok {
		for _, p := range pins {
			add(receiver{namespace: p.Path, scope: pin.ScopeInstance})
		}
		return out
	}
	for _, p := range pins {
		switch p.Kind {
		case pin.KindClass, pin.KindModule:
			add(receiver{namespace: p.Path, scope: pin.ScopeClass})
		default:
			if p.ReturnType != "" {
				add(receiver{namespace: p.ReturnType, scope: pin.ScopeInstance})
			}
		}
	}
	return out
}

// unionPins concatenates pin sets, deduplicating by identity.
func unionPins(sets ...[]*pin.Pin) []*pin.Pin {
	var out []*pin.Pin
	seen := make(map[pin.ID]bool)
	for _, set := range sets {
		for _, p := range set {
			if !seen[p.ID()] {
				seen[p.ID()] = true
				out = append(out, p)
			}
		}
	}
	return out
}
