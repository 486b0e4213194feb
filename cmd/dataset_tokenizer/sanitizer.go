package main

import (
	"regexp"
	"strings"
)

var extraWhitespace = regexp.MustCompile("[[:space:]]+")

// SanitizeText normalizes whitespace in a training text: `\r` is dropped,
// runs of newlines collapse to one, a literal `\n` becomes a newline, tabs
// become spaces, a space before a colon goes away, and every line has its
// inner whitespace collapsed and its ends trimmed.
func SanitizeText(text string) string {
	runes := make([]rune, 0, len(text))
	for _, r := range text {
		var last rune
		if len(runes) > 0 {
			last = runes[len(runes)-1]
		}
		switch {
		case r == '\r':
		case r == '\n' && last == '\n':
		case r == 'n' && last == '\\':
			runes[len(runes)-1] = '\n'
		case r == ':' && last == ' ':
			runes[len(runes)-1] = ':'
		case r == '\t':
			runes = append(runes, ' ')
		default:
			runes = append(runes, r)
		}
	}
	lines := strings.Split(string(runes), "\n")
	for lineIdx, line := range lines {
		lines[lineIdx] = strings.TrimSpace(
			extraWhitespace.ReplaceAllString(line, " "))
	}
	return strings.Join(lines, "\n")
}
