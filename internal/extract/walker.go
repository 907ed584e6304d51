package extract

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"loupe/internal/chain"
	"loupe/internal/pin"
	"loupe/internal/source"
)

// walker carries the traversal state: the namespace stack, the lexical
// scope (who self is), the active visibility section, and the locals
// visible at the current point.
type walker struct {
	filename string
	text     string
	src      []byte

	pins   []*pin.Pin
	chains []*chain.Chain

	ns         []string
	scope      pin.Scope
	visibility pin.Visibility
	inMethod   bool
	singleton  bool   // inside `class << self`
	owner      string // owner path for locals: method path or namespace
	locals     []*pin.Pin
}

func (w *walker) namespace() string {
	return strings.Join(w.ns, "::")
}

func (w *walker) loc(n *sitter.Node) pin.Location {
	return pin.Location{
		Filename: w.filename,
		Range: pin.Range{
			Start: source.PositionOf(w.text, int(n.StartByte())),
			End:   source.PositionOf(w.text, int(n.EndByte())),
		},
	}
}

// context snapshots the lexical context for a chain. Locals are copied:
// the walker's slice keeps mutating as scopes open and close.
func (w *walker) context() chain.Context {
	locals := make([]*pin.Pin, len(w.locals))
	copy(locals, w.locals)
	return chain.Context{
		Namespace: w.namespace(),
		Scope:     w.scope,
		Locals:    locals,
	}
}

func (w *walker) walkChildren(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.walkNode(n.NamedChild(i))
	}
}

func (w *walker) walkNode(n *sitter.Node) {
	switch n.Type() {
	case "comment":
		// Handled by docsFor on the following declaration.
	case "class":
		w.handleNamespace(n, pin.KindClass)
	case "module":
		w.handleNamespace(n, pin.KindModule)
	case "singleton_class":
		prev := w.singleton
		w.singleton = true
		w.walkChildren(n)
		w.singleton = prev
	case "method":
		w.handleMethod(n, false)
	case "singleton_method":
		w.handleMethod(n, true)
	case "assignment", "operator_assignment":
		w.handleAssignment(n)
	case "call":
		w.handleCall(n)
	case "block", "do_block":
		w.handleBlock(n)
	case "identifier":
		// A bare visibility marker parses as an identifier, not a call.
		if !w.inMethod {
			switch n.Content(w.src) {
			case "private":
				w.visibility = pin.Private
				return
			case "protected":
				w.visibility = pin.Protected
				return
			case "public":
				w.visibility = pin.Public
				return
			}
		}
		w.recordChain(n)
	case "constant", "scope_resolution", "instance_variable", "class_variable":
		w.recordChain(n)
	case "ERROR":
		w.recoverError(n)
	default:
		// Control flow, literals, argument lists: descend and pick up
		// whatever references live inside.
		w.walkChildren(n)
	}
}

// recoverError salvages declarations whose headers parsed intact inside a
// syntax error: a `class`/`module` keyword followed by its constant, or a
// `def` followed by its name, still yields a pin even when the surrounding
// body failed to parse. Properly parsed subtrees inside the error are walked
// normally.
func (w *walker) recoverError(n *sitter.Node) {
	nsDepth := 0
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		child := n.Child(i)
		if child.IsNamed() {
			w.walkNode(child)
			continue
		}
		var next *sitter.Node
		if i+1 < count {
			next = n.Child(i + 1)
		}
		switch child.Type() {
		case "class", "module":
			if next == nil || (next.Type() != "constant" && next.Type() != "scope_resolution") {
				continue
			}
			kind := pin.KindClass
			if child.Type() == "module" {
				kind = pin.KindModule
			}
			segs := strings.Split(next.Content(w.src), "::")
			w.ns = append(w.ns, segs...)
			nsDepth += len(segs)
			full := w.namespace()
			enclosing := ""
			if j := strings.LastIndex(full, "::"); j >= 0 {
				enclosing = full[:j]
			}
			w.pins = append(w.pins, &pin.Pin{
				Kind:       kind,
				Name:       segs[len(segs)-1],
				Path:       full,
				Namespace:  enclosing,
				Scope:      pin.ScopeClass,
				Visibility: pin.Public,
				Location:   w.loc(next),
			})
			i++ // name consumed

		case "def":
			if next == nil || next.Type() != "identifier" {
				continue
			}
			name := next.Content(w.src)
			w.pins = append(w.pins, &pin.Pin{
				Kind:       pin.KindMethod,
				Name:       name,
				Path:       methodPath(w.namespace(), name, pin.ScopeInstance),
				Namespace:  nsOr(w.namespace(), "Object"),
				Scope:      pin.ScopeInstance,
				Visibility: w.visibility,
				Location:   w.loc(next),
			})
			i++
		}
	}
	w.ns = w.ns[:len(w.ns)-nsDepth]
}

// handleNamespace extracts a class or module declaration, pushing its name
// segments onto the namespace stack for the body walk.
func (w *walker) handleNamespace(n *sitter.Node, kind pin.Kind) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		w.walkChildren(n)
		return
	}
	segs := strings.Split(nameNode.Content(w.src), "::")

	w.ns = append(w.ns, segs...)
	full := w.namespace()
	enclosing := ""
	if i := strings.LastIndex(full, "::"); i >= 0 {
		enclosing = full[:i]
	}

	w.pins = append(w.pins, &pin.Pin{
		Kind:       kind,
		Name:       segs[len(segs)-1],
		Path:       full,
		Namespace:  enclosing,
		Scope:      pin.ScopeClass,
		Visibility: pin.Public,
		Location:   w.loc(nameNode),
		Docs:       w.docsFor(n),
	})

	if sc := n.ChildByFieldName("superclass"); sc != nil {
		w.walkChildren(sc)
	}

	prevScope, prevVis, prevOwner := w.scope, w.visibility, w.owner
	prevMethod, prevSingleton := w.inMethod, w.singleton
	localMark := len(w.locals)
	w.scope, w.visibility, w.owner = pin.ScopeClass, pin.Public, full
	w.inMethod, w.singleton = false, false

	if body := n.ChildByFieldName("body"); body != nil {
		w.walkChildren(body)
	}

	w.scope, w.visibility, w.owner = prevScope, prevVis, prevOwner
	w.inMethod, w.singleton = prevMethod, prevSingleton
	w.locals = w.locals[:localMark]
	w.ns = w.ns[:len(w.ns)-len(segs)]
}

// handleMethod extracts a method definition and its parameters, then walks
// the body with the parameters in scope.
func (w *walker) handleMethod(n *sitter.Node, singletonDef bool) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(w.src)

	scope := pin.ScopeInstance
	if singletonDef || w.singleton {
		scope = pin.ScopeClass
	}
	path := methodPath(w.namespace(), name, scope)

	body := n.ChildByFieldName("body")
	w.pins = append(w.pins, &pin.Pin{
		Kind:       pin.KindMethod,
		Name:       name,
		Path:       path,
		Namespace:  nsOr(w.namespace(), "Object"),
		Scope:      scope,
		Visibility: w.visibility,
		Location:   w.loc(nameNode),
		Docs:       w.docsFor(n),
		ReturnType: w.lastExprType(body),
	})

	localMark := len(w.locals)
	if params := n.ChildByFieldName("parameters"); params != nil {
		w.extractParams(params, path, scope)
	}

	prevScope, prevOwner, prevMethod := w.scope, w.owner, w.inMethod
	w.scope, w.owner, w.inMethod = scope, path, true
	if body != nil {
		w.walkChildren(body)
	}
	w.scope, w.owner, w.inMethod = prevScope, prevOwner, prevMethod
	w.locals = w.locals[:localMark]
}

// extractParams walks a parameter list. Required parameters are bare
// identifiers; optional, keyword, splat and block parameters carry their
// name in a field.
func (w *walker) extractParams(params *sitter.Node, methodPath string, scope pin.Scope) {
	for i := 0; i < int(params.NamedChildCount()); i++ {
		child := params.NamedChild(i)
		var nameNode *sitter.Node
		if child.Type() == "identifier" {
			nameNode = child
		} else if nn := child.ChildByFieldName("name"); nn != nil {
			nameNode = nn
			if val := child.ChildByFieldName("value"); val != nil {
				w.walkNode(val) // default expressions can reference things
			}
		}
		if nameNode == nil {
			continue
		}
		name := nameNode.Content(w.src)
		p := &pin.Pin{
			Kind:      pin.KindParameter,
			Name:      name,
			Path:      fmt.Sprintf("%s(%s)", methodPath, name),
			Namespace: nsOr(w.namespace(), "Object"),
			Scope:     scope,
			Location:  w.loc(nameNode),
		}
		w.pins = append(w.pins, p)
		w.locals = append(w.locals, p)
	}
}

// handleAssignment extracts the declared variable (local, ivar, cvar or
// constant) and records reference chains for the right-hand side.
func (w *walker) handleAssignment(n *sitter.Node) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if right != nil {
		w.walkNode(right)
	}
	if left == nil {
		return
	}

	switch left.Type() {
	case "identifier":
		name := left.Content(w.src)
		if w.visibleLocal(name) != nil {
			// Reassignment of an existing binding is a usage, not a new pin.
			w.recordChain(left)
			return
		}
		p := &pin.Pin{
			Kind:       pin.KindLocalVariable,
			Name:       name,
			Path:       fmt.Sprintf("%s:%s@%d", nsOr(w.owner, "Object"), name, w.loc(left).Range.Start.Line),
			Namespace:  nsOr(w.namespace(), "Object"),
			Scope:      w.scope,
			Location:   w.loc(left),
			ReturnType: w.staticType(right),
		}
		w.pins = append(w.pins, p)
		w.locals = append(w.locals, p)

	case "instance_variable":
		name := left.Content(w.src)
		scope := w.ivarScope()
		sep := "#"
		if scope == pin.ScopeClass {
			sep = "."
		}
		w.pins = append(w.pins, &pin.Pin{
			Kind:       pin.KindInstanceVariable,
			Name:       name,
			Path:       nsOr(w.namespace(), "Object") + sep + name,
			Namespace:  nsOr(w.namespace(), "Object"),
			Scope:      scope,
			Location:   w.loc(left),
			ReturnType: w.staticType(right),
		})

	case "class_variable":
		name := left.Content(w.src)
		w.pins = append(w.pins, &pin.Pin{
			Kind:       pin.KindClassVariable,
			Name:       name,
			Path:       nsOr(w.namespace(), "Object") + "." + name,
			Namespace:  nsOr(w.namespace(), "Object"),
			Scope:      pin.ScopeClass,
			Location:   w.loc(left),
			ReturnType: w.staticType(right),
		})

	case "constant":
		name := left.Content(w.src)
		path := name
		if ns := w.namespace(); ns != "" {
			path = ns + "::" + name
		}
		w.pins = append(w.pins, &pin.Pin{
			Kind:       pin.KindConstant,
			Name:       name,
			Path:       path,
			Namespace:  w.namespace(),
			Scope:      pin.ScopeClass,
			Visibility: pin.Public,
			Location:   w.loc(left),
			Docs:       w.docsFor(n),
			ReturnType: w.staticType(right),
		})

	default:
		// Element assignment, attribute assignment, destructuring: the left
		// side still contains resolvable references.
		w.walkNode(left)
	}
}

// ivarScope decides whether an instance variable belongs to the instance or
// the class side: assigned in an instance method it is per-instance,
// assigned directly in a class body it belongs to the class object.
func (w *walker) ivarScope() pin.Scope {
	if w.inMethod {
		return w.scope
	}
	if len(w.ns) > 0 {
		return pin.ScopeClass
	}
	return pin.ScopeInstance
}

// handleCall records the call's expression chain, after intercepting the
// declarative calls that mutate the symbol table instead of referencing it:
// visibility markers and attr_* readers/writers.
func (w *walker) handleCall(n *sitter.Node) {
	recv := n.ChildByFieldName("receiver")
	mnode := n.ChildByFieldName("method")

	if recv == nil && !w.inMethod && mnode != nil {
		switch mnode.Content(w.src) {
		case "private", "protected", "public":
			w.handleVisibility(n, mnode.Content(w.src))
			return
		case "attr_accessor", "attr_reader", "attr_writer":
			w.handleAttr(n, mnode.Content(w.src))
			return
		}
	}

	links := w.linksFor(n)
	if len(links) > 0 {
		w.addChain(n, links)
	}
}

// handleVisibility applies a `private`/`protected`/`public` marker: bare it
// opens a visibility section; with symbol arguments it retags the named
// methods already extracted.
func (w *walker) handleVisibility(n *sitter.Node, name string) {
	vis := pin.Public
	switch name {
	case "private":
		vis = pin.Private
	case "protected":
		vis = pin.Protected
	}

	args := n.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		w.visibility = vis
		return
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() != "simple_symbol" {
			w.walkNode(arg)
			continue
		}
		target := methodPath(w.namespace(), strings.TrimPrefix(arg.Content(w.src), ":"), pin.ScopeInstance)
		for _, p := range w.pins {
			if p.Kind == pin.KindMethod && p.Path == target {
				p.Visibility = vis
			}
		}
	}
}

// handleAttr synthesizes reader/writer method pins for attr_accessor,
// attr_reader and attr_writer declarations.
func (w *walker) handleAttr(n *sitter.Node, kind string) {
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return
	}
	docs := w.docsFor(n)
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() != "simple_symbol" {
			continue
		}
		name := strings.TrimPrefix(arg.Content(w.src), ":")
		if kind != "attr_writer" {
			w.pins = append(w.pins, &pin.Pin{
				Kind:       pin.KindMethod,
				Name:       name,
				Path:       methodPath(w.namespace(), name, pin.ScopeInstance),
				Namespace:  nsOr(w.namespace(), "Object"),
				Scope:      pin.ScopeInstance,
				Visibility: w.visibility,
				Location:   w.loc(arg),
				Docs:       docs,
			})
		}
		if kind != "attr_reader" {
			w.pins = append(w.pins, &pin.Pin{
				Kind:       pin.KindMethod,
				Name:       name + "=",
				Path:       methodPath(w.namespace(), name+"=", pin.ScopeInstance),
				Namespace:  nsOr(w.namespace(), "Object"),
				Scope:      pin.ScopeInstance,
				Visibility: w.visibility,
				Location:   w.loc(arg),
			})
		}
	}
}

// handleBlock extracts block parameters and walks the block body with them
// in scope.
func (w *walker) handleBlock(n *sitter.Node) {
	localMark := len(w.locals)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() != "block_parameters" {
			w.walkNode(child)
			continue
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			param := child.NamedChild(j)
			if param.Type() != "identifier" {
				continue
			}
			name := param.Content(w.src)
			p := &pin.Pin{
				Kind:      pin.KindBlockParameter,
				Name:      name,
				Path:      fmt.Sprintf("%s&%s@%d", nsOr(w.owner, "Object"), name, w.loc(param).Range.Start.Line),
				Namespace: nsOr(w.namespace(), "Object"),
				Scope:     w.scope,
				Location:  w.loc(param),
			}
			w.pins = append(w.pins, p)
			w.locals = append(w.locals, p)
		}
	}
	w.locals = w.locals[:localMark]
}

// recordChain builds and stores the chain for a standalone reference
// expression.
func (w *walker) recordChain(n *sitter.Node) {
	links := w.linksFor(n)
	if len(links) > 0 {
		w.addChain(n, links)
	}
}

func (w *walker) addChain(n *sitter.Node, links []chain.Link) {
	w.chains = append(w.chains, &chain.Chain{
		Links:    links,
		Location: w.loc(n),
		Context:  w.context(),
	})
}

// linksFor flattens an expression node into chain links, innermost receiver
// first. Argument lists and blocks hanging off call nodes are walked here so
// their own references become separate chains.
func (w *walker) linksFor(n *sitter.Node) []chain.Link {
	switch n.Type() {
	case "call":
		var links []chain.Link
		if recv := n.ChildByFieldName("receiver"); recv != nil {
			links = w.linksFor(recv)
			if links == nil && recv.Type() != "self" {
				// Receiver exists but is not chain-resolvable (a ternary, a
				// yield, ...). Anchor the chain on a link that resolves
				// empty so later links don't pretend to know the receiver.
				w.walkNode(recv)
				links = []chain.Link{chain.NewVariable("", w.loc(recv))}
			}
		}
		if args := n.ChildByFieldName("arguments"); args != nil {
			w.walkChildren(args)
		}
		if blk := n.ChildByFieldName("block"); blk != nil {
			w.handleBlock(blk)
		}
		mnode := n.ChildByFieldName("method")
		if mnode == nil {
			return links
		}
		return append(links, chain.NewCall(mnode.Content(w.src), w.loc(mnode)))

	case "identifier":
		name := n.Content(w.src)
		if l := w.visibleLocal(name); l != nil {
			if l.Kind == pin.KindBlockParameter {
				return []chain.Link{chain.NewBlockVariable(name, w.loc(n))}
			}
			return []chain.Link{chain.NewVariable(name, w.loc(n))}
		}
		// Not a visible binding: a bare identifier is an implicit self call.
		return []chain.Link{chain.NewCall(name, w.loc(n))}

	case "instance_variable", "class_variable":
		return []chain.Link{chain.NewVariable(n.Content(w.src), w.loc(n))}

	case "constant":
		return []chain.Link{chain.NewConstant(n.Content(w.src), w.loc(n), w.loc(n))}

	case "scope_resolution":
		var links []chain.Link
		if scope := n.ChildByFieldName("scope"); scope != nil {
			links = w.linksFor(scope)
		}
		nameNode := n.ChildByFieldName("name")
		if nameNode == nil {
			return links
		}
		return append(links, chain.NewConstant(nameNode.Content(w.src), w.loc(n), w.loc(nameNode)))

	case "string":
		w.walkChildren(n) // interpolations
		return []chain.Link{chain.NewLiteral("String", w.loc(n))}

	case "parenthesized_statements":
		if n.NamedChildCount() == 1 {
			return w.linksFor(n.NamedChild(0))
		}
		w.walkChildren(n)
		return nil

	case "self":
		return nil
	}

	if core, ok := literalTypes[n.Type()]; ok {
		w.walkChildren(n) // array/hash elements can hold references
		return []chain.Link{chain.NewLiteral(core, w.loc(n))}
	}
	return nil
}

// visibleLocal returns the innermost visible binding named name, or nil.
func (w *walker) visibleLocal(name string) *pin.Pin {
	for i := len(w.locals) - 1; i >= 0; i-- {
		if w.locals[i].Name == name {
			return w.locals[i]
		}
	}
	return nil
}

// docsFor collects the run of comment lines immediately above a
// declaration. The comment above a body's first declaration hangs off the
// enclosing node rather than the body, so the walk climbs to the parent when
// a node has no preceding sibling.
func (w *walker) docsFor(n *sitter.Node) string {
	var lines []string
	expected := w.loc(n).Range.Start.Line - 1
	cur := n
	for cur != nil {
		prev := cur.PrevNamedSibling()
		if prev == nil {
			cur = cur.Parent()
			continue
		}
		if prev.Type() != "comment" || !w.ownLine(prev) {
			break
		}
		line := w.loc(prev).Range.Start.Line
		if line != expected {
			break
		}
		lines = append([]string{stripComment(prev.Content(w.src))}, lines...)
		expected = line - 1
		cur = prev
	}
	return strings.Join(lines, "\n")
}

// ownLine reports whether the node is the first non-blank content on its
// line. Trailing comments after code are not documentation.
func (w *walker) ownLine(n *sitter.Node) bool {
	for i := int(n.StartByte()) - 1; i >= 0; i-- {
		switch w.text[i] {
		case '\n':
			return true
		case ' ', '\t':
		default:
			return false
		}
	}
	return true
}

// staticType infers the statically evident type of an expression: literals
// map to core classes, `Const.new` to the constant. Anything else is
// unknown.
func (w *walker) staticType(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	if core, ok := literalTypes[n.Type()]; ok {
		return core
	}
	if n.Type() == "call" {
		mnode := n.ChildByFieldName("method")
		recv := n.ChildByFieldName("receiver")
		if mnode != nil && recv != nil && mnode.Content(w.src) == "new" {
			switch recv.Type() {
			case "constant", "scope_resolution":
				return recv.Content(w.src)
			}
		}
	}
	return ""
}

// lastExprType infers a method's return type from its final expression.
func (w *walker) lastExprType(body *sitter.Node) string {
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	return w.staticType(body.NamedChild(int(body.NamedChildCount()) - 1))
}
