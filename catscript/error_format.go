package catscript

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// formatCodeFrame renders the source line at pos with the given number of
// runes underlined. Positions outside the source yield an empty frame.
func formatCodeFrame(source string, pos Position, width int) string {
	if source == "" || pos.Line <= 0 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if pos.Line > len(lines) {
		return ""
	}

	text := strings.TrimRight(lines[pos.Line-1], "\r")
	length := utf8.RuneCountInString(text)
	column := min(max(pos.Column, 1), length+1)
	width = min(max(width, 1), max(length-column+1, 1))

	label := strconv.Itoa(pos.Line)
	gutter := strings.Repeat(" ", len(label))
	return fmt.Sprintf("  --> line %d, column %d\n %s | %s\n %s | %s%s",
		pos.Line, column,
		label, text,
		gutter, strings.Repeat(" ", column-1), strings.Repeat("^", width))
}

// tokenFrame underlines tok in source.
func tokenFrame(source string, tok Token) string {
	return formatCodeFrame(source, tok.Pos, utf8.RuneCountInString(tok.Literal))
}
