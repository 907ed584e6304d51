package chain

import (
	"strings"

	"loupe/internal/pin"
)

// Link is one element of a chain. The variant set is closed: Variable, Call,
// Constant, BlockVariable, Literal. Resolution never errors; an
// undeterminable link yields an empty set.
type Link interface {
	Name() string
	Location() pin.Location
	resolve(ix Index, ctx Context, receivers []receiver, head bool) []*pin.Pin
}

type base struct {
	name string
	loc  pin.Location
}

func (b base) Name() string           { return b.name }
func (b base) Location() pin.Location { return b.loc }

// Variable references a local variable, parameter, instance variable or
// class variable by name. Locals shadow instance state.
type Variable struct {
	base
}

// NewVariable returns a variable-reference link.
func NewVariable(name string, loc pin.Location) *Variable {
	return &Variable{base{name: name, loc: loc}}
}

func (v *Variable) resolve(ix Index, ctx Context, receivers []receiver, head bool) []*pin.Pin {
	if !head {
		return nil // variables never have receivers
	}
	if strings.HasPrefix(v.name, "@@") {
		return ix.VariablePins(ctx.Namespace, pin.ScopeClass, v.name)
	}
	if strings.HasPrefix(v.name, "@") {
		return ix.VariablePins(ctx.Namespace, ctx.Scope, v.name)
	}
	// Innermost binding wins: extraction appends locals in nesting order.
	for i := len(ctx.Locals) - 1; i >= 0; i-- {
		l := ctx.Locals[i]
		if l.Name != v.name {
			continue
		}
		switch l.Kind {
		case pin.KindLocalVariable, pin.KindParameter, pin.KindBlockParameter:
			return []*pin.Pin{l}
		}
	}
	return nil
}

// Call references a method on the preceding link's result, or on self when
// the call heads the chain.
type Call struct {
	base
}

// NewCall returns a method-call link.
func NewCall(name string, loc pin.Location) *Call {
	return &Call{base{name: name, loc: loc}}
}

func (c *Call) resolve(ix Index, ctx Context, receivers []receiver, head bool) []*pin.Pin {
	if head {
		// Implicit self: private and protected methods are reachable.
		receivers = []receiver{{namespace: ctx.Namespace, scope: ctx.Scope}}
		var sets [][]*pin.Pin
		for _, r := range receivers {
			sets = append(sets, ix.MethodPins(r.namespace, r.scope, c.name, true))
		}
		return unionPins(sets...)
	}
	var sets [][]*pin.Pin
	for _, r := range receivers {
		pins := ix.MethodPins(r.namespace, r.scope, c.name, false)
		if len(pins) == 0 && c.name == "new" && r.scope == pin.ScopeClass {
			pins = []*pin.Pin{constructorPin(r.namespace)}
		}
		sets = append(sets, pins)
	}
	return unionPins(sets...)
}

// constructorPin synthesizes the implicit `new` class method every class
// responds to. Its return type is an instance of the class, which is what
// seeds inference for `Foo.new.bar` style chains.
func constructorPin(namespace string) *pin.Pin {
	return &pin.Pin{
		Kind:       pin.KindMethod,
		Name:       "new",
		Path:       namespace + ".new",
		Namespace:  namespace,
		Scope:      pin.ScopeClass,
		ReturnType: namespace,
	}
}

// Constant references a class, module or constant. As chain head it walks
// the enclosing namespaces outward; with a preceding constant link it is a
// qualified lookup inside that namespace only.
type Constant struct {
	base
	// nameLoc is the sub-range of just the bare identifier, used by
	// reference queries with strip set. loc covers the full qualified
	// expression up to and including this identifier.
	nameLoc pin.Location
}

// NewConstant returns a constant-reference link. loc spans the qualified
// reference, nameLoc just the final identifier.
func NewConstant(name string, loc, nameLoc pin.Location) *Constant {
	return &Constant{base: base{name: name, loc: loc}, nameLoc: nameLoc}
}

// NameLocation returns the bare-identifier sub-range.
func (c *Constant) NameLocation() pin.Location { return c.nameLoc }

func (c *Constant) resolve(ix Index, ctx Context, receivers []receiver, head bool) []*pin.Pin {
	if head {
		return ix.ConstantPins(ctx.Namespace, c.name)
	}
	var sets [][]*pin.Pin
	for _, r := range receivers {
		sets = append(sets, ix.NamespaceConstantPins(r.namespace, c.name))
	}
	return unionPins(sets...)
}

// BlockVariable references a parameter declared at the enclosing block's
// header.
type BlockVariable struct {
	base
}

// NewBlockVariable returns a block-parameter reference link.
func NewBlockVariable(name string, loc pin.Location) *BlockVariable {
	return &BlockVariable{base{name: name, loc: loc}}
}

func (b *BlockVariable) resolve(ix Index, ctx Context, receivers []receiver, head bool) []*pin.Pin {
	if !head {
		return nil
	}
	for i := len(ctx.Locals) - 1; i >= 0; i-- {
		l := ctx.Locals[i]
		if l.Kind == pin.KindBlockParameter && l.Name == b.name {
			return []*pin.Pin{l}
		}
	}
	return nil
}

// Literal resolves to the fixed core type of a literal expression (`"s"` →
// String, `1` → Integer). It only exists to seed receiver-type inference for
// the links that follow it.
type Literal struct {
	base
}

// NewLiteral returns a literal link. name is the core class name.
func NewLiteral(name string, loc pin.Location) *Literal {
	return &Literal{base{name: name, loc: loc}}
}

func (l *Literal) resolve(ix Index, ctx Context, receivers []receiver, head bool) []*pin.Pin {
	return ix.NamespaceConstantPins("", l.name)
}
