package utils

import (
	"regexp"
	"strings"
	"unicode"
)

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// SanitizeLabel cleans a single-line display label such as a device name.
// Tags and control characters are removed and whitespace is collapsed.
func SanitizeLabel(input string) string {
	input = stripHTML(input)
	input = removeControlChars(input)
	return strings.Join(strings.Fields(input), " ")
}

// SanitizeIdentifier trims an identifier and drops every non-printable rune,
// tabs and newlines included. Printable inner characters are kept as sent.
func SanitizeIdentifier(input string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, input))
}

// stripHTML removes HTML tags from string
func stripHTML(input string) string {
	return htmlTag.ReplaceAllString(input, "")
}

// removeControlChars removes control characters from string
func removeControlChars(input string) string {
	var result strings.Builder
	for _, r := range input {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
