package feed

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Snippet returns the plain-text form of an HTML fragment with whitespace collapsed.
func Snippet(raw string) string {
	if raw == "" {
		return ""
	}
	text := html.UnescapeString(strict.Sanitize(raw))
	return strings.Join(strings.Fields(text), " ")
}
