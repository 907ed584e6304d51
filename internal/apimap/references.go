package apimap

import (
	"sort"

	"loupe/internal/chain"
	"loupe/internal/pin"
)

// ReferencesTo enumerates every location that refers to the target symbol:
// its declarations plus every chain link, in every merged source, whose
// resolved pin set contains the target's identity. The match is type-aware,
// not textual: a same-named method on an unrelated class never appears.
//
// With strip set, locations of namespace-qualified constant references
// (`A::B::Foo`) narrow to the sub-range of the final bare identifier.
//
// Ordering is stable (filename, then position) and deduplicated: one chain
// position yields at most one location even when several resolution paths
// agree.
func (m *ApiMap) ReferencesTo(target *pin.Pin, strip bool) []pin.Location {
	m.Catalog()
	id := target.ID()

	var locs []pin.Location
	seen := make(map[pin.Location]bool)
	emit := func(loc pin.Location) {
		if loc.Filename == "" || seen[loc] {
			return
		}
		seen[loc] = true
		locs = append(locs, loc)
	}

	for _, fname := range m.Filenames() {
		src := m.sources[fname]

		// The originating declaration(s), including reopened partials.
		for _, p := range src.Pins {
			if p.ID() == id {
				emit(p.Location)
			}
		}

		for _, ch := range src.Chains {
			steps := ch.ResolveSteps(m)
			for i, link := range ch.Links {
				if !containsID(steps[i], id) {
					continue
				}
				loc := link.Location()
				if strip {
					if c, ok := link.(*chain.Constant); ok {
						loc = c.NameLocation()
					}
				}
				emit(loc)
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
	return locs
}

func containsID(pins []*pin.Pin, id pin.ID) bool {
	for _, p := range pins {
		if p.ID() == id {
			return true
		}
	}
	return false
}
