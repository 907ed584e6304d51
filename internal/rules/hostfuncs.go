package rules

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"

	"loupe/internal/apimap"
	"loupe/internal/chain"
	"loupe/internal/pin"
	"loupe/internal/source"
)

// Host functions exposed to rule scripts. Risor cannot touch Go structs
// directly, so pins and chains cross the boundary as maps of primitives,
// with chain resolution precomputed on the Go side.

func makeDocumentPinsFn(src *source.Source) *object.Builtin {
	return object.NewBuiltin("document_pins", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("document_pins", 0, len(args))
		}
		items := make([]object.Object, 0, len(src.Pins))
		for _, p := range src.Pins {
			items = append(items, pinMap(p))
		}
		return object.NewList(items)
	})
}

func makeDocumentChainsFn(api *apimap.ApiMap, src *source.Source) *object.Builtin {
	return object.NewBuiltin("document_chains", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("document_chains", 0, len(args))
		}
		items := make([]object.Object, 0, len(src.Chains))
		for _, c := range src.Chains {
			steps := c.ResolveSteps(api)
			links := make([]object.Object, 0, len(c.Links))
			for i, l := range c.Links {
				links = append(links, linkMap(l, i, len(steps[i])))
			}
			items = append(items, object.NewMap(map[string]object.Object{
				"start_line": object.NewInt(int64(c.Location.Range.Start.Line)),
				"start_col":  object.NewInt(int64(c.Location.Range.Start.Col)),
				"end_line":   object.NewInt(int64(c.Location.Range.End.Line)),
				"end_col":    object.NewInt(int64(c.Location.Range.End.Col)),
				"links":      object.NewList(links),
			}))
		}
		return object.NewList(items)
	})
}

func makeReportFn(collect func(Diagnostic)) *object.Builtin {
	return object.NewBuiltin("report", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("report", 1, len(args))
		}
		m, ok := args[0].(*object.Map)
		if !ok {
			return object.Errorf("report: expected a map, got %s", args[0].Type())
		}
		fields := m.Value()

		severity := Severity(getString(fields, "severity"))
		switch severity {
		case SeverityError, SeverityWarning, SeverityHint:
		default:
			severity = SeverityWarning
		}

		collect(Diagnostic{
			Location: pin.Location{
				Range: pin.Range{
					Start: pin.Position{Line: getInt(fields, "start_line"), Col: getInt(fields, "start_col")},
					End:   pin.Position{Line: getInt(fields, "end_line"), Col: getInt(fields, "end_col")},
				},
			},
			Severity: severity,
			Message:  getString(fields, "message"),
		})
		return object.Nil
	})
}

func pinMap(p *pin.Pin) object.Object {
	return object.NewMap(map[string]object.Object{
		"name":        object.NewString(p.Name),
		"kind":        object.NewString(p.Kind.String()),
		"path":        object.NewString(p.Path),
		"namespace":   object.NewString(p.Namespace),
		"scope":       object.NewString(p.Scope.String()),
		"visibility":  object.NewString(p.Visibility.String()),
		"return_type": object.NewString(p.ReturnType),
		"start_line":  object.NewInt(int64(p.Location.Range.Start.Line)),
		"start_col":   object.NewInt(int64(p.Location.Range.Start.Col)),
		"end_line":    object.NewInt(int64(p.Location.Range.End.Line)),
		"end_col":     object.NewInt(int64(p.Location.Range.End.Col)),
	})
}

func linkMap(l chain.Link, index, resolved int) object.Object {
	return object.NewMap(map[string]object.Object{
		"name":       object.NewString(l.Name()),
		"kind":       object.NewString(linkKind(l)),
		"head":       object.NewBool(index == 0),
		"resolved":   object.NewInt(int64(resolved)),
		"start_line": object.NewInt(int64(l.Location().Range.Start.Line)),
		"start_col":  object.NewInt(int64(l.Location().Range.Start.Col)),
		"end_line":   object.NewInt(int64(l.Location().Range.End.Line)),
		"end_col":    object.NewInt(int64(l.Location().Range.End.Col)),
	})
}

func linkKind(l chain.Link) string {
	switch l.(type) {
	case *chain.Variable:
		return "variable"
	case *chain.Call:
		return "call"
	case *chain.Constant:
		return "constant"
	case *chain.BlockVariable:
		return "block_variable"
	case *chain.Literal:
		return "literal"
	}
	return "unknown"
}

func getString(m map[string]object.Object, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(*object.String); ok {
			return s.Value()
		}
		return fmt.Sprintf("%v", v.Interface())
	}
	return ""
}

func getInt(m map[string]object.Object, key string) int {
	if v, ok := m[key]; ok {
		if i, ok := v.(*object.Int); ok {
			return int(i.Value())
		}
	}
	return 0
}
