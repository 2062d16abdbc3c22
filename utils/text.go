package utils

import (
	"strings"
	"unicode"
)

// NormaliseText strips leading/trailing whitespace and collapses internal whitespace.
func NormaliseText(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}

// Slug lowercases s and joins its words with hyphens.
func Slug(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), "-"))
}
