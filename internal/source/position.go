package source

import (
	"strings"
	"unicode/utf8"

	"loupe/internal/pin"
)

// OffsetOf converts a line/column position to a byte offset in text.
// Columns count runes, so multi-byte text maps consistently. Positions past
// the end of a line clamp to the line's end; lines past the end of the
// document clamp to the document's end.
func OffsetOf(text string, pos pin.Position) int {
	offset := 0
	line := 0
	for line < pos.Line {
		nl := strings.IndexByte(text[offset:], '\n')
		if nl < 0 {
			return len(text)
		}
		offset += nl + 1
		line++
	}
	rest := text[offset:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	for col := 0; col < pos.Col && len(rest) > 0; col++ {
		_, size := utf8.DecodeRuneInString(rest)
		rest = rest[size:]
		offset += size
	}
	return offset
}

// PositionOf converts a byte offset back to a line/column position.
func PositionOf(text string, offset int) pin.Position {
	if offset > len(text) {
		offset = len(text)
	}
	prefix := text[:offset]
	line := strings.Count(prefix, "\n")
	lineStart := strings.LastIndexByte(prefix, '\n') + 1
	col := utf8.RuneCountInString(prefix[lineStart:])
	return pin.Position{Line: line, Col: col}
}
