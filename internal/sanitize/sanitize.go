// Package sanitize holds the pure canonicalization functions the gateway
// applies to records before they are persisted: free-text scrubbing,
// timestamp normalization across input encodings, and category coercion.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxTextLength caps any free-text field after scrubbing.
const maxTextLength = 1000

// CategoryOther is the coercion target for any unrecognized category.
const CategoryOther = "other"

// Categories is the fixed category set. Unknown values coerce to "other".
var Categories = map[string]bool{
	"salary": true, "income": true, "deposit": true, "refund": true,
	"dividend": true, "shopping": true, "groceries": true, "restaurant": true,
	"transportation": true, "gas": true, "utilities": true, "entertainment": true,
	"healthcare": true, "insurance": true, "education": true, "travel": true,
	"subscription": true, "gift": true, "charity": true, "transfer": true,
	"withdrawal": true, "fee": true, "interest": true, "other": true,
	"uncategorized": true,
}

var (
	jsSchemeRe     = regexp.MustCompile(`(?i)javascript:`)
	eventHandlerRe = regexp.MustCompile(`(?i)\bon\w+\s*=`)
)

// Text scrubs a free-text field: trims whitespace, strips angle brackets,
// javascript: scheme prefixes and inline event-handler patterns, and
// truncates to 1000 characters. Idempotent.
func Text(input string) string {
	s := strings.TrimSpace(input)
	s = strings.ReplaceAll(s, "<", "")
	s = strings.ReplaceAll(s, ">", "")

	// Removal can splice two halves of a pattern back together
	// ("javajavascript:script:"), so scrub until a fixpoint.
	for {
		next := jsSchemeRe.ReplaceAllString(s, "")
		next = eventHandlerRe.ReplaceAllString(next, "")
		if next == s {
			break
		}
		s = next
	}

	// Limits count characters, not bytes; truncating on a byte offset
	// could split a multibyte rune.
	if utf8.RuneCountInString(s) > maxTextLength {
		s = string([]rune(s)[:maxTextLength])
	}
	return strings.TrimSpace(s)
}

// Category lower-cases and trims the input and coerces it into the fixed
// category set. The second return value is false when the input was not a
// recognized category and fell back to "other"; callers treat that as a
// warning, never an error.
func Category(input string) (string, bool) {
	c := strings.ToLower(strings.TrimSpace(input))
	if Categories[c] {
		return c, true
	}
	return CategoryOther, false
}
