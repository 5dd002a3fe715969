package render

import (
	"strings"
	"unicode"
)

// Initials returns up to two uppercase initials for a display name:
// the first letters of the first and last words.
func Initials(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "?"
	}
	first := firstLetter(fields[0])
	if len(fields) == 1 {
		return first
	}
	return first + firstLetter(fields[len(fields)-1])
}

// shortName compresses a full name to fit under a seat: first name plus the
// last-name initial, e.g. "Ada L."
func shortName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	if len(fields) == 1 {
		return fields[0]
	}
	return fields[0] + " " + firstLetter(fields[len(fields)-1]) + "."
}

func firstLetter(word string) string {
	for _, r := range word {
		return string(unicode.ToUpper(r))
	}
	return ""
}
