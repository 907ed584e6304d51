package loupe

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"loupe/internal/apimap"
	"loupe/internal/extract"
	"loupe/internal/rules"
	"loupe/internal/source"
	"loupe/internal/workspace"
	"loupe/scripts"
)

// ErrFileNotFound is returned by Checkout (and the queries built on it) when
// a filename is neither open nor an existing workspace member. It is the only
// hard failure in the normal query path; every other unresolvable condition
// degrades to an empty result.
var ErrFileNotFound = errors.New("file not found")

// Wildcard is the root value meaning "no fixed root": any path matching the
// include patterns is mergeable.
const Wildcard = workspace.Wildcard

// Library is the top-level façade. It owns a workspace (which paths belong
// to the project), a set of open Sources that shadow on-disk content, and
// the aggregated symbol index.
//
// The contract is synchronous: every operation runs to completion before the
// next is observed. A mutex guards the maps so concurrent callers are safe,
// but there is no background work and no cancellation inside queries.
//
// Per filename the state machine is: absent → on-disk (workspace member, not
// open) → open (attached, in-memory content shadows disk) → back to on-disk
// on detach (if still present on disk) or absent (if not).
type Library struct {
	mu   sync.Mutex
	ws   *workspace.Workspace
	open map[string]*source.Source
	api  *apimap.ApiMap

	includes []string
	rules    *rules.Runtime
}

// Option configures a Library.
type Option func(*Library)

// WithIncludes overrides the workspace include patterns (default "**/*.rb").
func WithIncludes(patterns ...string) Option {
	return func(l *Library) {
		l.includes = patterns
	}
}

// WithRules overrides the diagnostics runtime. The default runs the embedded
// rule scripts.
func WithRules(r *rules.Runtime) Option {
	return func(l *Library) {
		l.rules = r
	}
}

// New creates a Library rooted at root. Pass [Wildcard] for a rootless
// library that accepts any matching path.
func New(root string, opts ...Option) *Library {
	l := &Library{
		open: make(map[string]*source.Source),
		api:  apimap.New(),
	}
	for _, opt := range opts {
		opt(l)
	}

	var wsOpts []workspace.Option
	if len(l.includes) > 0 {
		wsOpts = append(wsOpts, workspace.WithIncludes(l.includes...))
	}
	l.ws = workspace.New(root, wsOpts...)

	if l.rules == nil {
		l.rules = rules.NewRuntime("", rules.WithFS(scripts.FS))
	}
	return l
}

// Workspace returns the library's workspace.
func (l *Library) Workspace() *workspace.Workspace {
	return l.ws
}

// Attach marks src as open. Open content shadows on-disk content of the same
// filename for every query. Attach is unconditional: filenames outside the
// workspace become queryable scratch files without becoming members.
func (l *Library) Attach(src *source.Source) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.open[src.Filename] = src
	l.api.Merge(src)
	if l.ws.WouldMerge(src.Filename) && fileExists(src.Filename) {
		l.ws.Add(src.Filename)
	}
}

// Detach removes the open override for filename. The file stays queryable
// only if it independently exists as a workspace member on disk, in which
// case its on-disk content takes over; otherwise it becomes unavailable.
func (l *Library) Detach(filename string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.open, filename)
	if l.ws.Contains(filename) {
		if src, err := loadDisk(filename, 0); err == nil {
			l.api.Merge(src)
			return
		}
		l.ws.Remove(filename)
	}
	l.api.Remove(filename)
}

// Close is Detach under its editor-protocol name.
func (l *Library) Close(filename string) {
	l.Detach(filename)
}

// Merge adds or updates src in the aggregate index without changing its
// open/closed status. O(file), not O(workspace): the index rebuild is
// deferred until Catalog.
func (l *Library) Merge(src *source.Source) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.api.Merge(src)
	if l.ws.WouldMerge(src.Filename) {
		l.ws.Add(src.Filename)
	}
}

// Catalog forces the deferred index rebuild. Idempotent and safe to invoke
// redundantly; a no-op when nothing changed since the last build. Queries
// call it internally, so explicit calls only matter for amortizing a batch
// of merges ahead of a query burst.
func (l *Library) Catalog() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.api.Catalog()
}

// Checkout returns the current Source for filename: the open Source if
// attached, else the merged on-disk Source if filename is a workspace
// member. Fails with [ErrFileNotFound] otherwise.
func (l *Library) Checkout(filename string) (*source.Source, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.checkout(filename)
}

func (l *Library) checkout(filename string) (*source.Source, error) {
	if src, ok := l.open[filename]; ok {
		return src, nil
	}
	if l.ws.Contains(filename) {
		if src := l.api.Source(filename); src != nil {
			return src, nil
		}
		if src, err := loadDisk(filename, 0); err == nil {
			l.api.Merge(src)
			return src, nil
		}
	}
	return nil, fmt.Errorf("checkout %s: %w", filename, ErrFileNotFound)
}

// Create sets workspace content for filename from text. Returns false, and
// does nothing, when the path lies outside the workspace or fails the
// include patterns. Never marks the file open.
func (l *Library) Create(filename, text string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.ws.WouldMerge(filename) {
		return false
	}
	src, err := extract.Load(filename, text, 0)
	if err != nil {
		return false
	}
	l.api.Merge(src)
	l.ws.Add(filename)
	return true
}

// CreateFromDisk reads filename from disk and merges it as a workspace file.
// Returns false when the file does not match the mergeable patterns or does
// not exist.
func (l *Library) CreateFromDisk(filename string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.ws.WouldMerge(filename) {
		return false
	}
	src, err := loadDisk(filename, 0)
	if err != nil {
		return false
	}
	l.api.Merge(src)
	l.ws.Add(filename)
	return true
}

// Delete removes filename's workspace membership. An open file stays
// queryable through its attached Source; otherwise checkout subsequently
// fails.
func (l *Library) Delete(filename string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ws.Remove(filename)
	if _, ok := l.open[filename]; !ok {
		l.api.Remove(filename)
	}
}

// Contains reports whether filename is currently a workspace member.
func (l *Library) Contains(filename string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ws.Contains(filename)
}

// Open reports whether filename is currently attached.
func (l *Library) Open(filename string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.open[filename]
	return ok
}

// Filenames returns every filename in the index, sorted.
func (l *Library) Filenames() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.api.Filenames()
}

// Update applies an ordered list of text changes to the checked-out Source,
// re-extracts, and attaches the result. This is the only way editors mutate
// text: each change's range addresses the text produced by the change before
// it. The new Source's version is u.Version, bumped past the prior version
// if the updater's is not ahead of it.
func (l *Library) Update(u source.Updater) (*source.Source, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur, err := l.checkout(u.Filename)
	if err != nil {
		return nil, err
	}

	text := u.Apply(cur.Text)
	version := u.Version
	if version <= cur.Version {
		version = cur.Version + 1
	}

	src, err := extract.Load(u.Filename, text, version)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", u.Filename, err)
	}
	l.open[u.Filename] = src
	l.api.Merge(src)
	return src, nil
}

// loadDisk reads filename from disk and extracts it.
func loadDisk(filename string, version int) (*source.Source, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return extract.Load(filename, string(data), version)
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	return err == nil && !info.IsDir()
}
