package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWouldMerge(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	w := New(root)

	assert.True(t, w.WouldMerge(filepath.Join(root, "app.rb")))
	assert.True(t, w.WouldMerge(filepath.Join(root, "lib", "deep", "thing.rb")))
	assert.False(t, w.WouldMerge(filepath.Join(root, "notes.txt")), "extension filter")
	assert.False(t, w.WouldMerge("/elsewhere/app.rb"), "outside the root")
	assert.False(t, w.WouldMerge(filepath.Join(root, "..", "escape.rb")))
}

func TestWouldMerge_WildcardRoot(t *testing.T) {
	t.Parallel()
	w := New(Wildcard)

	assert.True(t, w.WouldMerge("/anywhere/at/all.rb"))
	assert.False(t, w.WouldMerge("/anywhere/at/all.py"))
}

func TestWouldMerge_CustomIncludes(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	w := New(root, WithIncludes("**/*.rake", "Gemfile"))

	assert.True(t, w.WouldMerge(filepath.Join(root, "tasks", "build.rake")))
	assert.True(t, w.WouldMerge(filepath.Join(root, "Gemfile")))
	assert.False(t, w.WouldMerge(filepath.Join(root, "app.rb")))
}

func TestWouldMerge_Gitignore(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), "generated/\nscratch.rb\n")
	w := New(root)

	assert.True(t, w.WouldMerge(filepath.Join(root, "app.rb")))
	assert.False(t, w.WouldMerge(filepath.Join(root, "scratch.rb")))
	assert.False(t, w.WouldMerge(filepath.Join(root, "generated", "out.rb")))
}

func TestMembership(t *testing.T) {
	t.Parallel()
	w := New(t.TempDir())

	assert.False(t, w.Contains("a.rb"))
	w.Add("a.rb")
	assert.True(t, w.Contains("a.rb"))
	assert.Len(t, w.Filenames(), 1)

	w.Remove("a.rb")
	assert.False(t, w.Contains("a.rb"))
	assert.Empty(t, w.Filenames())
}

func TestDiscover(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "app.rb"), "")
	writeFile(t, filepath.Join(root, "lib", "util.rb"), "")
	writeFile(t, filepath.Join(root, "README.md"), "")
	writeFile(t, filepath.Join(root, ".hidden", "h.rb"), "")
	writeFile(t, filepath.Join(root, "vendor", "dep.rb"), "")

	w := New(root)
	paths, err := w.Discover()
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		filepath.Join(root, "app.rb"),
		filepath.Join(root, "lib", "util.rb"),
	}, paths)
}

func TestDiscover_WildcardRoot(t *testing.T) {
	t.Parallel()
	w := New(Wildcard)
	paths, err := w.Discover()
	require.NoError(t, err)
	assert.Empty(t, paths, "no disk to walk")
}

func TestDiscover_RespectsGitignore(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), "ignored.rb\n")
	writeFile(t, filepath.Join(root, "kept.rb"), "")
	writeFile(t, filepath.Join(root, "ignored.rb"), "")

	w := New(root)
	paths, err := w.Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "kept.rb")}, paths)
}
