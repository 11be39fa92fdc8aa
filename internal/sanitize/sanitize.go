// ABOUTME: Pure text-filtering pass for assistant-generated replies
// ABOUTME: Scrubs AI-attribution terms and vendor citation markers before publishing

package sanitize

import (
	"regexp"
	"strings"
)

// disallowedTerms are replaced, whole-word and case-insensitive, with
// "assistant". Applied in order: "model" runs before "language model", so
// the compound form is already broken up by the time its pattern runs.
var disallowedTerms = []string{
	"AI",
	"model",
	"GPT",
	"language model",
	"training",
}

const replacement = "assistant"

// citationPattern matches the vendor's inline source-citation glyph sequence
// (file-index:chunk-index) and bracketed numeric footnote markers.
var citationPattern = regexp.MustCompile(`【\d+:\d+†source】|\[\d+\]`)

var termPatterns = compileTerms()

func compileTerms() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(disallowedTerms))
	for _, term := range disallowedTerms {
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(term)+`\b`))
	}
	return patterns
}

// Sanitize scrubs a generated reply: disallowed terms first, then citation
// markers, then surrounding whitespace. Total for any input, including "".
func Sanitize(text string) string {
	for _, pattern := range termPatterns {
		text = pattern.ReplaceAllString(text, replacement)
	}
	text = citationPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
