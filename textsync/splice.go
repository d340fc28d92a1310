package textsync

import (
	"strings"

	"codeshare-server/core"
)

// Splice applies one range replacement to a buffer and returns the result.
// It is a pure function of (buffer, op): no history, no reconciliation. When
// two concurrent operations overlap, the one applied second wins over the
// first's effect wherever their ranges intersect.
//
// The buffer is treated as a line-oriented view split on \n. Columns are
// 1-based rune offsets; malformed ranges are clamped rather than rejected so
// a momentarily stale client does not get desynced further.
func Splice(buffer string, op core.EditOperation) string {
	startLine, startCol, endLine, endCol := clampRange(op)

	lines := strings.Split(buffer, "\n")

	// Pad with empty lines so clients may address lines this side has not
	// materialized yet, e.g. right after an insert it hasn't received.
	for len(lines) < endLine {
		lines = append(lines, "")
	}

	prefix := runePrefix(lines[startLine-1], startCol-1)
	suffix := runeSuffix(lines[endLine-1], endCol-1)

	// Splicing prefix+text+suffix and resplitting covers every case the same
	// way: single-line replace, text with embedded newlines, multi-line
	// ranges, and whole-line deletion (empty text, both columns at 1) which
	// collapses the dropped lines instead of leaving an empty one behind.
	replacement := strings.Split(prefix+op.Text+suffix, "\n")

	result := make([]string, 0, startLine-1+len(replacement)+len(lines)-endLine)
	result = append(result, lines[:startLine-1]...)
	result = append(result, replacement...)
	result = append(result, lines[endLine:]...)

	return strings.Join(result, "\n")
}

// clampRange normalizes an operation's coordinates: lines and columns are
// floored at 1 and an inverted range collapses onto its start.
func clampRange(op core.EditOperation) (startLine, startCol, endLine, endCol int) {
	startLine = max(op.StartLine, 1)
	startCol = max(op.StartColumn, 1)
	endLine = max(op.EndLine, 1)
	endCol = max(op.EndColumn, 1)

	if endLine < startLine || (endLine == startLine && endCol < startCol) {
		endLine, endCol = startLine, startCol
	}
	return startLine, startCol, endLine, endCol
}

// runePrefix returns the first n runes of s, clamped to its length.
func runePrefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if n >= len(runes) {
		return s
	}
	return string(runes[:n])
}

// runeSuffix returns s starting at rune offset n, clamped to its length.
func runeSuffix(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if n >= len(runes) {
		return ""
	}
	return string(runes[n:])
}
