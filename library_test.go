package loupe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loupe/internal/extract"
	"loupe/internal/pin"
	"loupe/internal/source"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func mustLoad(t *testing.T, filename, text string) *source.Source {
	t.Helper()
	src, err := extract.Load(filename, text, 0)
	require.NoError(t, err)
	return src
}

// pos finds the first occurrence of needle in text and returns its line and
// column, so tests don't hand-count positions.
func pos(t *testing.T, text, needle string) (int, int) {
	t.Helper()
	idx := strings.Index(text, needle)
	require.GreaterOrEqual(t, idx, 0, "needle %q", needle)
	prefix := text[:idx]
	line := strings.Count(prefix, "\n")
	col := idx - (strings.LastIndex(prefix, "\n") + 1)
	return line, col
}

func pinPaths(pins []*Pin) []string {
	paths := make([]string, 0, len(pins))
	for _, p := range pins {
		paths = append(paths, p.Path)
	}
	return paths
}

func pinNames(pins []*Pin) map[string]bool {
	names := make(map[string]bool, len(pins))
	for _, p := range pins {
		names[p.Name] = true
	}
	return names
}

func TestCheckout_UnknownFile(t *testing.T) {
	t.Parallel()
	lib := New(t.TempDir())

	_, err := lib.Checkout("nope.rb")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFileNotFound))
}

func TestAttach_ScratchFile(t *testing.T) {
	t.Parallel()
	lib := New(t.TempDir())

	// Attached content need not exist on disk.
	scratch := filepath.Join(lib.Workspace().Root(), "scratch.rb")
	lib.Attach(mustLoad(t, scratch, "class Foo\nend\n"))

	assert.True(t, lib.Open(scratch))
	assert.False(t, lib.Contains(scratch), "no disk backing, no membership")

	src, err := lib.Checkout(scratch)
	require.NoError(t, err)
	assert.Equal(t, "class Foo\nend\n", src.Text)

	// Without disk backing, detach makes the file unavailable.
	lib.Detach(scratch)
	assert.False(t, lib.Open(scratch))
	_, err = lib.Checkout(scratch)
	assert.True(t, errors.Is(err, ErrFileNotFound))
}

func TestAttach_OutsideWorkspace(t *testing.T) {
	t.Parallel()
	lib := New(t.TempDir())

	other := filepath.Join(t.TempDir(), "elsewhere.rb")
	lib.Attach(mustLoad(t, other, "class Elsewhere\nend\n"))

	assert.True(t, lib.Open(other))
	assert.False(t, lib.Contains(other))
	_, err := lib.Checkout(other)
	assert.NoError(t, err, "open files are queryable regardless of membership")
}

func TestDetach_WithDiskBacking(t *testing.T) {
	t.Parallel()
	lib := New(t.TempDir())

	path := filepath.Join(lib.Workspace().Root(), "app.rb")
	writeFile(t, path, "class OnDisk\nend\n")
	require.True(t, lib.CreateFromDisk(path))

	// Open content shadows disk.
	lib.Attach(mustLoad(t, path, "class InMemory\nend\n"))
	src, err := lib.Checkout(path)
	require.NoError(t, err)
	assert.Equal(t, "class InMemory\nend\n", src.Text)

	// Detach falls back to disk.
	lib.Detach(path)
	assert.True(t, lib.Contains(path))
	src, err = lib.Checkout(path)
	require.NoError(t, err)
	assert.Equal(t, "class OnDisk\nend\n", src.Text)
}

func TestCreate(t *testing.T) {
	t.Parallel()
	lib := New(t.TempDir())
	root := lib.Workspace().Root()

	path := filepath.Join(root, "lib", "thing.rb")
	assert.True(t, lib.Create(path, "class Thing\nend\n"))
	assert.True(t, lib.Contains(path))
	assert.False(t, lib.Open(path), "create never opens")

	src, err := lib.Checkout(path)
	require.NoError(t, err)
	assert.Equal(t, "class Thing\nend\n", src.Text)

	assert.False(t, lib.Create("/outside/thing.rb", ""), "outside the root")
	assert.False(t, lib.Create(filepath.Join(root, "notes.txt"), ""), "wrong extension")
}

func TestCreateFromDisk(t *testing.T) {
	t.Parallel()
	lib := New(t.TempDir())
	root := lib.Workspace().Root()

	path := filepath.Join(root, "app.rb")
	writeFile(t, path, "class App\nend\n")
	assert.True(t, lib.CreateFromDisk(path))
	assert.True(t, lib.Contains(path))

	missing := filepath.Join(root, "missing.rb")
	assert.False(t, lib.CreateFromDisk(missing))

	txt := filepath.Join(root, "notes.txt")
	writeFile(t, txt, "hi")
	assert.False(t, lib.CreateFromDisk(txt))
}

func TestDelete(t *testing.T) {
	t.Parallel()
	lib := New(t.TempDir())

	path := filepath.Join(lib.Workspace().Root(), "app.rb")
	require.True(t, lib.Create(path, "class App\nend\n"))

	lib.Delete(path)
	assert.False(t, lib.Contains(path))
	_, err := lib.Checkout(path)
	assert.True(t, errors.Is(err, ErrFileNotFound))
	assert.Empty(t, lib.Document("App"))
}

func TestDelete_OpenFileStaysQueryable(t *testing.T) {
	t.Parallel()
	lib := New(t.TempDir())

	path := filepath.Join(lib.Workspace().Root(), "app.rb")
	writeFile(t, path, "class App\nend\n")
	lib.Attach(mustLoad(t, path, "class App\nend\n"))
	require.True(t, lib.Contains(path))

	lib.Delete(path)
	assert.False(t, lib.Contains(path))
	_, err := lib.Checkout(path)
	assert.NoError(t, err, "the attached source survives membership removal")
}

func TestUpdate(t *testing.T) {
	t.Parallel()
	lib := New(t.TempDir())

	path := filepath.Join(lib.Workspace().Root(), "app.rb")
	text := "class Foo\nend\n"
	require.True(t, lib.Create(path, text))

	line, col := pos(t, text, "Foo")
	src, err := lib.Update(source.Updater{
		Filename: path,
		Version:  7,
		Changes: []source.Change{{
			Range: &pin.Range{
				Start: pin.Position{Line: line, Col: col},
				End:   pin.Position{Line: line, Col: col + 3},
			},
			NewText: "Bar",
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "class Bar\nend\n", src.Text)
	assert.Equal(t, 7, src.Version)
	assert.True(t, lib.Open(path), "update attaches the result")

	assert.NotEmpty(t, lib.Document("Bar"))
	assert.Empty(t, lib.Document("Foo"))
}

func TestUpdate_StaleVersionBumpsPastCurrent(t *testing.T) {
	t.Parallel()
	lib := New(t.TempDir())

	path := filepath.Join(lib.Workspace().Root(), "app.rb")
	lib.Attach(mustLoad(t, path, "x = 1\n"))
	first, err := lib.Update(source.Updater{Filename: path, Version: 5, Changes: []source.Change{{NewText: "x = 2\n"}}})
	require.NoError(t, err)
	require.Equal(t, 5, first.Version)

	second, err := lib.Update(source.Updater{Filename: path, Version: 3, Changes: []source.Change{{NewText: "x = 3\n"}}})
	require.NoError(t, err)
	assert.Equal(t, 6, second.Version, "a version not ahead of the current one is bumped past it")
	assert.Equal(t, "x = 3\n", second.Text)
}

func TestUpdate_UnknownFile(t *testing.T) {
	t.Parallel()
	lib := New(t.TempDir())

	_, err := lib.Update(source.Updater{Filename: "nope.rb", Version: 1})
	assert.True(t, errors.Is(err, ErrFileNotFound))
}

func TestLoad(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.rb"), "class Alpha\nend\n")
	writeFile(t, filepath.Join(root, "lib", "b.rb"), "class Beta\nend\n")
	writeFile(t, filepath.Join(root, "README.md"), "docs")

	lib := New(root)
	require.NoError(t, lib.Load(context.Background()))

	assert.ElementsMatch(t, []string{
		filepath.Join(root, "a.rb"),
		filepath.Join(root, "lib", "b.rb"),
	}, lib.Filenames())
	assert.True(t, lib.Contains(filepath.Join(root, "a.rb")))
	assert.NotEmpty(t, lib.Document("Alpha"))
	assert.NotEmpty(t, lib.Document("Beta"))
}

func TestDocumentSymbols(t *testing.T) {
	t.Parallel()
	lib := New(Wildcard)

	text := `class Foo
  LIMIT = 5

  def bar(arg)
    x = 1
  end
end
`
	lib.Attach(mustLoad(t, "a.rb", text))

	pins, err := lib.DocumentSymbols("a.rb")
	require.NoError(t, err)
	assert.Equal(t, []string{"Foo", "Foo::LIMIT", "Foo#bar"}, pinPaths(pins),
		"locals and parameters are not document structure")
}

func TestDefinitionsAt(t *testing.T) {
	t.Parallel()
	lib := New(Wildcard)

	text := `class Foo
  def bar
  end
end

foo = Foo.new
foo.bar
`
	lib.Attach(mustLoad(t, "a.rb", text))

	line, col := pos(t, text, "foo.bar")
	defs, err := lib.DefinitionsAt("a.rb", line, col+len("foo."))
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "Foo#bar", defs[0].Path)

	// On the declaration itself.
	line, col = pos(t, text, "def bar")
	defs, err = lib.DefinitionsAt("a.rb", line, col+len("def "))
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "Foo#bar", defs[0].Path)
}

func TestSignaturesAt(t *testing.T) {
	t.Parallel()
	lib := New(Wildcard)

	text := `class Foo
  def bar(a, b)
  end
end

Foo.new.bar(1, 2)
`
	lib.Attach(mustLoad(t, "a.rb", text))

	line, col := pos(t, text, "bar(1, 2)")
	sigs, err := lib.SignaturesAt("a.rb", line, col)
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.Equal(t, "Foo#bar", sigs[0].Path)
	assert.Equal(t, KindMethod, sigs[0].Kind)
}

func TestReferencesFrom(t *testing.T) {
	t.Parallel()
	lib := New(Wildcard)

	text := `class Foo
  def bar
  end
end

foo = Foo.new
foo.bar
`
	lib.Attach(mustLoad(t, "a.rb", text))
	lib.Attach(mustLoad(t, "b.rb", "class Other\n  def bar\n  end\nend\nOther.new.bar\n"))

	line, col := pos(t, text, "def bar")
	locs, err := lib.ReferencesFrom("a.rb", line, col+len("def "), false)
	require.NoError(t, err)

	require.Len(t, locs, 2, "the declaration and the one Foo-typed call")
	for _, loc := range locs {
		assert.Equal(t, "a.rb", loc.Filename, "Other#bar is a different method")
	}
}

func TestCompletionsAt_AfterReceiver(t *testing.T) {
	t.Parallel()
	lib := New(Wildcard)

	text := `class Foo
  def bar
  end

  private

  def secret
  end
end

foo = Foo.new
foo.bar
`
	lib.Attach(mustLoad(t, "a.rb", text))

	line, col := pos(t, text, "foo.bar")
	pins, err := lib.CompletionsAt("a.rb", line, col+len("foo."))
	require.NoError(t, err)

	names := pinNames(pins)
	assert.True(t, names["bar"])
	assert.True(t, names["freeze"], "core Object methods offered")
	assert.False(t, names["secret"], "qualified receivers hide non-public methods")
}

func TestCompletionsAt_BarePosition(t *testing.T) {
	t.Parallel()
	lib := New(Wildcard)

	text := `class Foo
  def bar(thing)
    thing
  end

  def helper
  end
end
`
	lib.Attach(mustLoad(t, "a.rb", text))

	line, col := pos(t, text, "thing\n")
	pins, err := lib.CompletionsAt("a.rb", line, col)
	require.NoError(t, err)

	names := pinNames(pins)
	assert.True(t, names["thing"], "visible locals offered")
	assert.True(t, names["helper"], "methods on implicit self offered")
}

func TestDiagnose(t *testing.T) {
	t.Parallel()
	lib := New(Wildcard)

	lib.Attach(mustLoad(t, "a.rb", "x = Missing.new\n"))

	diags, err := lib.Diagnose(context.Background(), "a.rb")
	require.NoError(t, err)
	require.NotEmpty(t, diags)
	assert.Equal(t, "unresolved-constant", diags[0].Rule)
	assert.Contains(t, diags[0].Message, "Missing")
}

func TestSearch(t *testing.T) {
	t.Parallel()
	lib := New(Wildcard)

	lib.Attach(mustLoad(t, "a.rb", "class Widget\n  def render\n  end\nend\n"))

	assert.Equal(t, []string{"Widget#render"}, pinPaths(lib.Search("render")))
	assert.Empty(t, lib.Search("zzz"))
}

func TestExport(t *testing.T) {
	t.Parallel()
	lib := New(Wildcard)
	lib.Attach(mustLoad(t, "a.rb", "class Foo\nend\n"))

	dbPath := filepath.Join(t.TempDir(), "index.db")
	require.NoError(t, lib.Export(dbPath))

	info, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
