package rules

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loupe/internal/apimap"
	"loupe/internal/extract"
	"loupe/internal/source"
	"loupe/scripts"
)

func loadSource(t *testing.T, filename, text string) *source.Source {
	t.Helper()
	src, err := extract.Load(filename, text, 0)
	require.NoError(t, err)
	return src
}

func TestRuleName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unresolved-constant", ruleName("rules/unresolved_constant.risor"))
	assert.Equal(t, "simple", ruleName("simple.risor"))
}

func TestScripts_SortedFromFS(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"b_rule.risor": {Data: []byte("")},
		"a_rule.risor": {Data: []byte("")},
		"notes.txt":    {Data: []byte("ignored")},
	}
	r := NewRuntime("", WithFS(fsys))

	assert.Equal(t, []string{"a_rule.risor", "b_rule.risor"}, r.Scripts())
}

func TestDiagnose_InlineRule(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"flag_classes.risor": {Data: []byte(`
for _, p := range document_pins() {
    if p["kind"] == "class" {
        report({
            "start_line": p["start_line"],
            "start_col": p["start_col"],
            "end_line": p["end_line"],
            "end_col": p["end_col"],
            "severity": "hint",
            "message": "class " + p["name"],
        })
    }
}
`)},
	}
	r := NewRuntime("", WithFS(fsys))

	api := apimap.New()
	src := loadSource(t, "a.rb", "class Foo\nend\n")
	api.Merge(src)

	diags, err := r.Diagnose(context.Background(), api, src)
	require.NoError(t, err)
	require.Len(t, diags, 1)

	d := diags[0]
	assert.Equal(t, "flag-classes", d.Rule)
	assert.Equal(t, SeverityHint, d.Severity)
	assert.Equal(t, "class Foo", d.Message)
	assert.Equal(t, "a.rb", d.Location.Filename)
	assert.Equal(t, 0, d.Location.Range.Start.Line)
}

func TestDiagnose_BadSeverityDefaultsToWarning(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"r.risor": {Data: []byte(`report({"severity": "catastrophic", "message": "m"})`)},
	}
	r := NewRuntime("", WithFS(fsys))

	diags, err := r.Diagnose(context.Background(), apimap.New(), loadSource(t, "a.rb", ""))
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, SeverityWarning, diags[0].Severity)
}

func TestDiagnose_EmbeddedUnresolvedConstant(t *testing.T) {
	t.Parallel()

	r := NewRuntime("", WithFS(scripts.FS))

	api := apimap.New()
	src := loadSource(t, "a.rb", "x = NoSuchThing.new\n")
	api.Merge(src)

	diags, err := r.Diagnose(context.Background(), api, src)
	require.NoError(t, err)

	var found *Diagnostic
	for i := range diags {
		if diags[i].Rule == "unresolved-constant" {
			found = &diags[i]
			break
		}
	}
	require.NotNil(t, found, "NoSuchThing should be flagged")
	assert.Equal(t, SeverityWarning, found.Severity)
	assert.Contains(t, found.Message, "NoSuchThing")
}

func TestDiagnose_EmbeddedUndefinedMethod(t *testing.T) {
	t.Parallel()

	r := NewRuntime("", WithFS(scripts.FS))

	api := apimap.New()
	src := loadSource(t, "a.rb", `
class Foo
  def bar
  end
end

Foo.new.nonexistent
`)
	api.Merge(src)

	diags, err := r.Diagnose(context.Background(), api, src)
	require.NoError(t, err)

	var messages []string
	for _, d := range diags {
		if d.Rule == "undefined-method" {
			messages = append(messages, d.Message)
		}
	}
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "nonexistent")
}

func TestDiagnose_CleanSourceIsQuiet(t *testing.T) {
	t.Parallel()

	r := NewRuntime("", WithFS(scripts.FS))

	api := apimap.New()
	src := loadSource(t, "a.rb", `
class Foo
  def bar
  end
end

Foo.new.bar
`)
	api.Merge(src)

	diags, err := r.Diagnose(context.Background(), api, src)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestDiagnose_SortedByPosition(t *testing.T) {
	t.Parallel()

	r := NewRuntime("", WithFS(scripts.FS))

	api := apimap.New()
	src := loadSource(t, "a.rb", "a = Missing\nb = AlsoMissing\n")
	api.Merge(src)

	diags, err := r.Diagnose(context.Background(), api, src)
	require.NoError(t, err)
	require.Len(t, diags, 2)
	assert.True(t, diags[0].Location.Range.Start.Before(diags[1].Location.Range.Start))
}

func TestDiagnose_ScriptErrorSurfaces(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"broken.risor": {Data: []byte("this is not risor ((")},
	}
	r := NewRuntime("", WithFS(fsys))

	_, err := r.Diagnose(context.Background(), apimap.New(), loadSource(t, "a.rb", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.risor")
}
