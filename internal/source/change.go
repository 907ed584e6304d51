package source

import "loupe/internal/pin"

// Change is one text patch: replace the given range with NewText. A nil
// Range replaces the whole document. Ranges use the same zero-based,
// rune-column positions as pin locations.
type Change struct {
	Range   *pin.Range
	NewText string
}

// Apply returns text with the change applied.
func (c Change) Apply(text string) string {
	if c.Range == nil {
		return c.NewText
	}
	start := OffsetOf(text, c.Range.Start)
	end := OffsetOf(text, c.Range.End)
	if end < start {
		start, end = end, start
	}
	return text[:start] + c.NewText + text[end:]
}

// Updater is an ordered list of changes an editor sends instead of the whole
// document. Changes apply in sequence: each range addresses the text
// produced by the previous change.
type Updater struct {
	Filename string
	Version  int
	Changes  []Change
}

// Apply runs every change in order against text and returns the result.
func (u Updater) Apply(text string) string {
	for _, c := range u.Changes {
		text = c.Apply(text)
	}
	return text
}
