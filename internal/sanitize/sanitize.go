// Package sanitize strips markup from client-supplied text before it is stored.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxPasses bounds the sanitize/unescape loop. Each pass can only remove markup, so
// real input settles in two or three.
const maxPasses = 8

// strict removes every element but keeps the text inside script and style, so
// "<script>x</script>" becomes "x" rather than disappearing.
var strict = bluemonday.StrictPolicy().AllowElementsContent("script", "style")

// String returns text with all markup removed and surrounding whitespace trimmed.
// The result is plain text: entities are decoded, so quotes and ampersands stay literal.
func String(text string) string {
	if text == "" {
		return ""
	}

	// decoding can reveal markup that was escaped in the input; repeat until stable
	out := text
	for i := 0; i < maxPasses; i++ {
		next := strings.TrimSpace(html.UnescapeString(strict.Sanitize(out)))
		if next == out {
			break
		}
		out = next
	}
	return out
}

// Ptr sanitizes an optional field, keeping nil as nil.
func Ptr(text *string) *string {
	if text == nil {
		return nil
	}
	s := String(*text)
	return &s
}

// Tags sanitizes each tag in order and drops tags that end up empty.
func Tags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if s := String(tag); s != "" {
			out = append(out, s)
		}
	}
	return out
}
