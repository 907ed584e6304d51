// Package corelib provides the built-in Ruby core symbol table. The table is
// declared in an embedded YAML file, loaded at most once per process, and
// shared read-only underneath every workspace index.
package corelib

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"loupe/internal/pin"
)

//go:embed core.yml
var coreYAML []byte

// Layer is the frozen core symbol table. All lookups are read-only.
type Layer struct {
	paths map[string][]*pin.Pin
	roots map[string][]*pin.Pin // bare constant name → class/module pins
}

var (
	loadOnce sync.Once
	loaded   *Layer
)

// Load returns the process-wide core layer, parsing the embedded table on
// first call. Panics if the embedded YAML is malformed: that is a build
// defect, not a runtime condition.
func Load() *Layer {
	loadOnce.Do(func() {
		l, err := parse(coreYAML)
		if err != nil {
			panic(fmt.Sprintf("corelib: embedded table: %v", err))
		}
		loaded = l
	})
	return loaded
}

// yamlEntry mirrors one class or module entry in core.yml.
type yamlEntry struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"` // class|module, default class
	Docs    string `yaml:"docs"`
	Methods []struct {
		Name    string `yaml:"name"`
		Scope   string `yaml:"scope"` // instance|class, default instance
		Returns string `yaml:"returns"`
		Docs    string `yaml:"docs"`
	} `yaml:"methods"`
}

func parse(data []byte) (*Layer, error) {
	var doc struct {
		Core []yamlEntry `yaml:"core"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	l := &Layer{
		paths: make(map[string][]*pin.Pin),
		roots: make(map[string][]*pin.Pin),
	}
	for _, e := range doc.Core {
		kind := pin.KindClass
		if e.Kind == "module" {
			kind = pin.KindModule
		}
		ns := &pin.Pin{
			Kind: kind,
			Name: e.Name,
			Path: e.Name,
			Docs: e.Docs,
		}
		l.paths[ns.Path] = append(l.paths[ns.Path], ns)
		l.roots[ns.Name] = append(l.roots[ns.Name], ns)

		for _, m := range e.Methods {
			scope := pin.ScopeInstance
			sep := "#"
			if m.Scope == "class" {
				scope = pin.ScopeClass
				sep = "."
			}
			mp := &pin.Pin{
				Kind:       pin.KindMethod,
				Name:       m.Name,
				Path:       e.Name + sep + m.Name,
				Namespace:  e.Name,
				Scope:      scope,
				Docs:       m.Docs,
				ReturnType: m.Returns,
			}
			l.paths[mp.Path] = append(l.paths[mp.Path], mp)
		}
	}
	return l, nil
}

// PinsAtPath returns the core pins declared at path.
func (l *Layer) PinsAtPath(path string) []*pin.Pin {
	return l.paths[path]
}

// ConstantPins returns the core class/module pins for a bare constant name.
func (l *Layer) ConstantPins(name string) []*pin.Pin {
	return l.roots[name]
}

// MethodsOf returns every core method pin on namespace at scope, including
// the Object and Kernel methods every instance responds to.
func (l *Layer) MethodsOf(namespace string, scope pin.Scope) []*pin.Pin {
	var out []*pin.Pin
	collect := func(ns string, sc pin.Scope) {
		sep := "#"
		if sc == pin.ScopeClass {
			sep = "."
		}
		prefix := ns + sep
		for path, pins := range l.paths {
			if strings.HasPrefix(path, prefix) {
				out = append(out, pins...)
			}
		}
	}
	collect(namespace, scope)
	if scope == pin.ScopeInstance && namespace != "Object" {
		collect("Object", pin.ScopeInstance)
		collect("Kernel", pin.ScopeInstance)
	}
	return out
}

// MethodPins returns core method pins named name on namespace at scope.
func (l *Layer) MethodPins(namespace string, scope pin.Scope, name string) []*pin.Pin {
	sep := "#"
	if scope == pin.ScopeClass {
		sep = "."
	}
	pins := l.paths[namespace+sep+name]
	if len(pins) > 0 {
		return pins
	}
	// Everything is an Object; Kernel is mixed into Object.
	if namespace != "Object" && scope == pin.ScopeInstance {
		if ps := l.paths["Object#"+name]; len(ps) > 0 {
			return ps
		}
		return l.paths["Kernel#"+name]
	}
	return nil
}
