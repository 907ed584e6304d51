package apimap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loupe/internal/pin"
)

// position finds the first occurrence of needle in text and returns its
// start position, so tests don't hand-count columns.
func position(t *testing.T, text, needle string) pin.Position {
	t.Helper()
	idx := strings.Index(text, needle)
	require.GreaterOrEqual(t, idx, 0, "needle %q", needle)
	prefix := text[:idx]
	line := strings.Count(prefix, "\n")
	col := idx - (strings.LastIndex(prefix, "\n") + 1)
	return pin.Position{Line: line, Col: col}
}

func TestReferencesTo_TypeAware(t *testing.T) {
	t.Parallel()
	m := New()

	m.Merge(loadSource(t, "foo.rb", `
class Foo
  def bar
  end
end
`))
	m.Merge(loadSource(t, "other.rb", `
class Other
  def bar
  end
end
`))
	m.Merge(loadSource(t, "use.rb", `
foo = Foo.new
foo.bar
other = Other.new
other.bar
`))

	target := m.PinsAtPath("Foo#bar")
	require.Len(t, target, 1)

	locs := m.ReferencesTo(target[0], false)
	require.Len(t, locs, 2, "declaration plus the one Foo-typed call")

	assert.Equal(t, "foo.rb", locs[0].Filename)
	assert.Equal(t, "use.rb", locs[1].Filename)
	assert.Equal(t, 2, locs[1].Range.Start.Line, "foo.bar, not other.bar")
}

func TestReferencesTo_ParameterUsages(t *testing.T) {
	t.Parallel()
	m := New()

	text := `
class Foo
  def bar(thing)
    thing.to_s
    thing
  end
end
`
	src := loadSource(t, "a.rb", text)
	m.Merge(src)

	// Parameters are lexical: find the declaration pin on the source itself.
	decl := src.PinAt(position(t, text, "thing)"))
	require.NotNil(t, decl)
	require.Equal(t, pin.KindParameter, decl.Kind)

	locs := m.ReferencesTo(decl, false)
	require.Len(t, locs, 3, "declaration plus two usages")
	assert.Equal(t, 2, locs[0].Range.Start.Line)
	assert.Equal(t, 3, locs[1].Range.Start.Line)
	assert.Equal(t, 4, locs[2].Range.Start.Line)
}

func TestReferencesTo_ReassignmentIsUsage(t *testing.T) {
	t.Parallel()
	m := New()

	text := `
def run
  x = 1
  x = 2
  x
end
`
	src := loadSource(t, "a.rb", text)
	m.Merge(src)

	decl := src.PinAt(position(t, text, "x = 1"))
	require.NotNil(t, decl)
	require.Equal(t, pin.KindLocalVariable, decl.Kind)

	locs := m.ReferencesTo(decl, false)
	require.Len(t, locs, 3, "declaration, reassignment, read")
}

func TestReferencesTo_ConstantStrip(t *testing.T) {
	t.Parallel()
	m := New()

	m.Merge(loadSource(t, "def.rb", `
module A
  module B
    class Thing
    end
  end
end
`))
	useText := "x = A::B::Thing\n"
	m.Merge(loadSource(t, "use.rb", useText))

	target := m.PinsAtPath("A::B::Thing")
	require.Len(t, target, 1)

	full := m.ReferencesTo(target[0], false)
	require.Len(t, full, 2)
	useFull := full[1]
	assert.Equal(t, "use.rb", useFull.Filename)
	assert.Equal(t, position(t, useText, "A::B::Thing"), useFull.Range.Start)

	stripped := m.ReferencesTo(target[0], true)
	require.Len(t, stripped, 2)
	useStripped := stripped[1]
	assert.Equal(t, position(t, useText, "Thing"), useStripped.Range.Start,
		"strip narrows to the bare identifier")
}

func TestReferencesTo_DedupedAndOrdered(t *testing.T) {
	t.Parallel()
	m := New()

	m.Merge(loadSource(t, "b.rb", "Foo.new\n"))
	m.Merge(loadSource(t, "a.rb", "class Foo\nend\nFoo.new\n"))

	target := m.PinsAtPath("Foo")
	require.Len(t, target, 1)

	locs := m.ReferencesTo(target[0], false)
	require.Len(t, locs, 3)
	assert.Equal(t, "a.rb", locs[0].Filename)
	assert.Equal(t, "a.rb", locs[1].Filename)
	assert.Equal(t, "b.rb", locs[2].Filename)
	for i := 1; i < len(locs); i++ {
		prev, cur := locs[i-1], locs[i]
		if prev.Filename == cur.Filename {
			assert.True(t, prev.Range.Start.Before(cur.Range.Start))
		}
	}
}
