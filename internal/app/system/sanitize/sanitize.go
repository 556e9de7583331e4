// internal/app/system/sanitize/sanitize.go
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// policy strips all HTML. Chat messages are plain text; anything that
// looks like markup is removed rather than escaped into the log.
var policy = bluemonday.StrictPolicy()

// Text sanitizes one chat message: strips HTML tags and attributes,
// unescapes the entities bluemonday introduces, and trims surrounding
// whitespace. Returns "" for input that is empty after stripping.
func Text(s string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(s)))
}
