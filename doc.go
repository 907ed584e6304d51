// Package loupe provides deterministic, scope-aware code intelligence for
// Ruby built on tree-sitter. It bridges tree-sitter's concrete syntax tree
// and editor-facing semantic understanding: completion, definition,
// references, signatures, document symbols and diagnostics.
//
// # Model
//
// Three layers cooperate:
//
//  1. Extraction: each file's text is parsed with tree-sitter and walked
//     into an immutable [Source]: pins (symbol declarations) plus chains
//     (resolvable expressions like foo.bar.baz, tagged with their lexical
//     context).
//
//  2. Index: merged Sources form an ApiMap, a path-keyed symbol index
//     layered over a built-in Ruby core table. Merging a file is cheap;
//     the index rebuild is deferred until [Library.Catalog], so a batch of
//     merges pays for one rebuild.
//
//  3. Orchestration: a [Library] owns a workspace (which paths belong to
//     the project), a set of open Sources that shadow on-disk content, and
//     the index. Editors drive it with attach/detach/update; queries are
//     pure functions of its current state.
//
// # Usage
//
// Create a Library over a directory, load it, and query:
//
//	lib := loupe.New("path/to/project")
//	if err := lib.Load(ctx); err != nil { ... }
//
//	pins, err := lib.DefinitionsAt("app/models/user.rb", 10, 5)
//	locs, err := lib.ReferencesFrom("app/models/user.rb", 10, 5, false)
//
// Edits arrive as ordered text patches:
//
//	src, err := lib.Update(loupe.Updater{
//		Filename: "app/models/user.rb",
//		Version:  2,
//		Changes:  []loupe.Change{{Range: &r, NewText: "name"}},
//	})
//
// # Resolution
//
// A chain resolves link by link: each link's candidate pin set becomes the
// receiver context for the next, and an empty set short-circuits the rest.
// Reference queries are type-aware, not textual: a same-named method on an
// unrelated class never appears in the result.
//
// # Diagnostics
//
// Diagnostic rules are Risor scripts (embedded defaults under scripts/rules,
// or a directory override) that inspect a document's pins and resolved
// chains through host functions and report findings.
package loupe
