package service

import (
	"strings"
	"unicode"
)

// ParseTags turns a comma-separated tag string into tags. All whitespace
// is removed, so " art, travel " and "art,travel" are equal, and empty
// tokens are dropped.
func ParseTags(s string) []string {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	tags := []string{}
	for _, t := range strings.Split(compact, ",") {
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// FormatTags is the inverse of ParseTags for already parsed tags.
func FormatTags(tags []string) string {
	return strings.Join(tags, ",")
}
