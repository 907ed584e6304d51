// Package source defines the immutable per-file snapshot: text plus the
// pins and chains extraction produced from it, tagged with a caller-supplied
// version. Edits never mutate a Source; they produce a new one.
package source

import (
	"loupe/internal/chain"
	"loupe/internal/pin"
)

// Source is one file's analyzed snapshot.
type Source struct {
	Filename string
	Version  int
	Text     string
	Pins     []*pin.Pin // declaration order
	Chains   []*chain.Chain
}

// PinAt returns the innermost pin whose location contains pos, or nil.
func (s *Source) PinAt(pos pin.Position) *pin.Pin {
	var best *pin.Pin
	for _, p := range s.Pins {
		if !p.Location.Range.Contains(pos) {
			continue
		}
		if best == nil || within(p.Location.Range, best.Location.Range) {
			best = p
		}
	}
	return best
}

// ChainAt returns the innermost chain whose location contains pos, or nil.
func (s *Source) ChainAt(pos pin.Position) *chain.Chain {
	var best *chain.Chain
	for _, c := range s.Chains {
		if !c.Location.Range.Contains(pos) {
			continue
		}
		if best == nil || within(c.Location.Range, best.Location.Range) {
			best = c
		}
	}
	return best
}

// LocalsAt returns the local-variable, parameter and block-parameter pins
// visible at pos: the locals context of the innermost chain there, or, with
// no chain at pos, the pins of those kinds whose declarations precede pos.
func (s *Source) LocalsAt(pos pin.Position) []*pin.Pin {
	if c := s.ChainAt(pos); c != nil {
		return c.Context.Locals
	}
	var out []*pin.Pin
	for _, p := range s.Pins {
		switch p.Kind {
		case pin.KindLocalVariable, pin.KindParameter, pin.KindBlockParameter:
			if p.Location.Range.Start.Before(pos) {
				out = append(out, p)
			}
		}
	}
	return out
}

// within reports whether inner is contained by outer.
func within(inner, outer pin.Range) bool {
	return outer.Contains(inner.Start) && outer.Contains(inner.End)
}
