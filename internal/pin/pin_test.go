package pin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPosition_Before(t *testing.T) {
	t.Parallel()

	assert.True(t, Position{Line: 1, Col: 0}.Before(Position{Line: 2, Col: 0}))
	assert.True(t, Position{Line: 1, Col: 3}.Before(Position{Line: 1, Col: 4}))
	assert.False(t, Position{Line: 1, Col: 4}.Before(Position{Line: 1, Col: 4}))
	assert.False(t, Position{Line: 2, Col: 0}.Before(Position{Line: 1, Col: 9}))
}

func TestRange_Contains(t *testing.T) {
	t.Parallel()

	r := Range{
		Start: Position{Line: 1, Col: 2},
		End:   Position{Line: 3, Col: 5},
	}

	assert.True(t, r.Contains(Position{Line: 1, Col: 2}), "start is inside")
	assert.True(t, r.Contains(Position{Line: 2, Col: 0}))
	assert.True(t, r.Contains(Position{Line: 3, Col: 5}), "end is inclusive")
	assert.False(t, r.Contains(Position{Line: 1, Col: 1}))
	assert.False(t, r.Contains(Position{Line: 3, Col: 6}))
	assert.False(t, r.Contains(Position{Line: 4, Col: 0}))
}

func TestLocation_String(t *testing.T) {
	t.Parallel()

	loc := Location{
		Filename: "lib/foo.rb",
		Range:    Range{Start: Position{Line: 4, Col: 2}},
	}
	assert.Equal(t, "lib/foo.rb:4:2", loc.String())
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "class", KindClass.String())
	assert.Equal(t, "method", KindMethod.String())
	assert.Equal(t, "instance_variable", KindInstanceVariable.String())
}

func TestPin_Identity(t *testing.T) {
	t.Parallel()

	a := &Pin{Kind: KindMethod, Name: "bar", Path: "Foo#bar"}
	b := &Pin{Kind: KindMethod, Name: "bar", Path: "Foo#bar",
		Location: Location{Filename: "other.rb"}}
	c := &Pin{Kind: KindMethod, Name: "bar", Path: "Other#bar"}

	assert.Equal(t, a.ID(), b.ID(), "identity ignores location")
	assert.NotEqual(t, a.ID(), c.ID())
	assert.True(t, a.Same(b))
	assert.False(t, a.Same(c))
	assert.False(t, a.Same(nil))
}
