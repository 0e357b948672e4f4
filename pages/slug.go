package pages

import (
	"regexp"
	"strings"
)

var (
	reWhitespace = regexp.MustCompile(`[\s\x0B\p{Z}\x{FEFF}]`)
	reNotSlug    = regexp.MustCompile(`[^A-Za-z0-9-]`)
)

// AsSlug converts a page name into its slug: whitespace becomes a dash,
// everything other than ASCII letters, digits and dashes is dropped, and the
// result is lowercased. AsSlug(AsSlug(s)) == AsSlug(s).
func AsSlug(name string) string {
	s := reWhitespace.ReplaceAllString(name, "-")
	s = reNotSlug.ReplaceAllString(s, "")
	return strings.ToLower(s)
}
