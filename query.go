package loupe

import (
	"context"
	"sort"

	"loupe/internal/pin"
)

// The query surface. Every query is a pure function of current Library
// state: it checks out the file, makes sure the index is cataloged (a no-op
// when clean), and resolves positions through the file's chains. Only
// Checkout can fail; unresolvable positions yield empty results.

// CompletionsAt returns the pins a completion list at (line, col) should
// offer. After a receiver (`foo.` or `Foo::`), these are the methods of the
// inferred receiver types; at a bare position, the visible locals plus the
// methods callable on implicit self.
func (l *Library) CompletionsAt(filename string, line, col int) ([]*Pin, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	src, err := l.checkout(filename)
	if err != nil {
		return nil, err
	}
	pos := pin.Position{Line: line, Col: col}

	c := src.ChainAt(pos)
	if c == nil {
		out := append([]*pin.Pin{}, src.LocalsAt(pos)...)
		return append(out, l.api.MethodsOf("Object", pin.ScopeInstance, true)...), nil
	}

	i := c.LinkAt(pos)
	if i <= 0 {
		// Head position: locals shadow methods, so they come first.
		out := append([]*pin.Pin{}, c.Context.Locals...)
		return append(out, l.api.MethodsOf(c.Context.Namespace, c.Context.Scope, true)...), nil
	}

	var out []*pin.Pin
	seen := make(map[pin.ID]bool)
	for _, r := range c.ReceiversAt(l.api, i) {
		for _, p := range l.api.MethodsOf(r.Namespace, r.Scope, false) {
			if !seen[p.ID()] {
				seen[p.ID()] = true
				out = append(out, p)
			}
		}
	}
	return out, nil
}

// DefinitionsAt returns the declaration pins for the symbol at (line, col):
// the resolution of the chain link under the cursor, or, on a declaration
// itself, every declaration sharing its path.
func (l *Library) DefinitionsAt(filename string, line, col int) ([]*Pin, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	src, err := l.checkout(filename)
	if err != nil {
		return nil, err
	}
	return l.definitionsAt(src, pin.Position{Line: line, Col: col}), nil
}

func (l *Library) definitionsAt(src *Source, pos pin.Position) []*pin.Pin {
	if c := src.ChainAt(pos); c != nil {
		if pins := c.DefineAt(l.api, pos); len(pins) > 0 {
			return pins
		}
	}
	if p := src.PinAt(pos); p != nil {
		switch p.Kind {
		case pin.KindLocalVariable, pin.KindParameter, pin.KindBlockParameter:
			return []*pin.Pin{p}
		}
		if pins := l.api.PinsAtPath(p.Path); len(pins) > 0 {
			return pins
		}
		return []*pin.Pin{p}
	}
	return nil
}

// SignaturesAt returns the method pins a signature-help popup at (line, col)
// describes: the definitions at the position, narrowed to methods.
func (l *Library) SignaturesAt(filename string, line, col int) ([]*Pin, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	src, err := l.checkout(filename)
	if err != nil {
		return nil, err
	}
	var out []*pin.Pin
	for _, p := range l.definitionsAt(src, pin.Position{Line: line, Col: col}) {
		if p.Kind == pin.KindMethod {
			out = append(out, p)
		}
	}
	return out, nil
}

// ReferencesFrom returns every location in the workspace that refers to the
// symbol at (line, col): its declarations plus every chain link that
// resolves to it. The match is type-aware, not textual. With strip set,
// namespace-qualified constant references narrow to the final bare
// identifier.
func (l *Library) ReferencesFrom(filename string, line, col int, strip bool) ([]Location, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	src, err := l.checkout(filename)
	if err != nil {
		return nil, err
	}

	targets := l.definitionsAt(src, pin.Position{Line: line, Col: col})

	var locs []pin.Location
	seenID := make(map[pin.ID]bool)
	seenLoc := make(map[pin.Location]bool)
	for _, t := range targets {
		if seenID[t.ID()] {
			continue
		}
		seenID[t.ID()] = true
		for _, loc := range l.api.ReferencesTo(t, strip) {
			if !seenLoc[loc] {
				seenLoc[loc] = true
				locs = append(locs, loc)
			}
		}
	}

	sort.Slice(locs, func(i, j int) bool {
		a, b := locs[i], locs[j]
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		if a.Range.Start != b.Range.Start {
			return a.Range.Start.Before(b.Range.Start)
		}
		return a.Range.End.Before(b.Range.End)
	})
	return locs, nil
}

// DocumentSymbols returns the declaration pins of a file in declaration
// order: namespaces, methods, constants and attribute variables. Locals and
// parameters are lexical detail, not document structure.
func (l *Library) DocumentSymbols(filename string) ([]*Pin, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	src, err := l.checkout(filename)
	if err != nil {
		return nil, err
	}
	var out []*pin.Pin
	for _, p := range src.Pins {
		switch p.Kind {
		case pin.KindLocalVariable, pin.KindParameter, pin.KindBlockParameter:
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Document returns the pins declared exactly at a full symbol path, like
// "Foo" or "Foo#bar". Workspace declarations shadow core ones.
func (l *Library) Document(path string) []*Pin {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.api.Document(path)
}

// Search returns workspace pins whose path contains query, in stable path
// order.
func (l *Library) Search(query string) []*Pin {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.api.Search(query)
}

// Diagnose runs every diagnostic rule against a file and returns the
// findings in stable order.
func (l *Library) Diagnose(ctx context.Context, filename string) ([]Diagnostic, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	src, err := l.checkout(filename)
	if err != nil {
		return nil, err
	}
	l.api.Catalog()
	return l.rules.Diagnose(ctx, l.api, src)
}
