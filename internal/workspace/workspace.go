// Package workspace decides which file paths belong to a project: paths
// under the root that match the include patterns and are not excluded by
// gitignore-style rules.
package workspace

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// Wildcard is the root value meaning "no fixed root": any path matching the
// include patterns is mergeable.
const Wildcard = "*"

var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"tmp":          true,
	".git":         true,
}

// Workspace tracks project membership. The member set holds paths known to
// the library (discovered on disk or created in memory); WouldMerge decides
// whether a new path may join.
type Workspace struct {
	root     string
	includes []string
	ignore   *ignore.GitIgnore
	members  map[string]bool
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithIncludes overrides the include patterns (default "**/*.rb").
func WithIncludes(patterns ...string) Option {
	return func(w *Workspace) {
		w.includes = patterns
	}
}

// New creates a Workspace rooted at root. A .gitignore at the root, when
// present, contributes exclude rules.
func New(root string, opts ...Option) *Workspace {
	w := &Workspace{
		root:     root,
		includes: []string{"**/*.rb"},
		members:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	if root != Wildcard {
		if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
			w.ignore = gi
		}
	}
	return w
}

// Root returns the workspace root ("*" when unrooted).
func (w *Workspace) Root() string { return w.root }

// WouldMerge reports whether path is eligible for workspace membership:
// under the root (when one is set), matching an include pattern, and not
// excluded.
func (w *Workspace) WouldMerge(path string) bool {
	rel, ok := w.relative(path)
	if !ok {
		return false
	}
	if !w.matchesInclude(rel) {
		return false
	}
	if w.ignore != nil && w.ignore.MatchesPath(rel) {
		return false
	}
	return true
}

// relative maps path inside the root, rejecting escapes. With a wildcard
// root every path is "inside" and used as-is.
func (w *Workspace) relative(path string) (string, bool) {
	if w.root == Wildcard {
		return filepath.ToSlash(path), true
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

func (w *Workspace) matchesInclude(rel string) bool {
	base := filepath.Base(rel)
	for _, pattern := range w.includes {
		p := pattern
		if strings.HasPrefix(p, "**/") {
			if ok, _ := filepath.Match(strings.TrimPrefix(p, "**/"), base); ok {
				return true
			}
			continue
		}
		if ok, _ := filepath.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Add records path as a member.
func (w *Workspace) Add(path string) { w.members[path] = true }

// Remove drops path from the member set.
func (w *Workspace) Remove(path string) { delete(w.members, path) }

// Contains reports current membership.
func (w *Workspace) Contains(path string) bool { return w.members[path] }

// Filenames returns the current member paths, unordered.
func (w *Workspace) Filenames() []string {
	out := make([]string, 0, len(w.members))
	for p := range w.members {
		out = append(out, p)
	}
	return out
}

// Discover walks the root on disk and returns every mergeable file. Hidden
// directories and the usual dependency directories are skipped. A wildcard
// root discovers nothing: there is no disk to walk.
func (w *Workspace) Discover() ([]string, error) {
	if w.root == Wildcard {
		return nil, nil
	}
	var paths []string
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			name := d.Name()
			if path != w.root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.WouldMerge(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return paths, nil
}
