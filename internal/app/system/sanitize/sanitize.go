// internal/app/system/sanitize/sanitize.go

// Package sanitize cleans member-supplied text before storage. Join-request
// messages, proposal reasons, and poll questions are plain text; group
// descriptions may carry a limited set of formatting tags.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = bluemonday.StrictPolicy()
	ugc    = bluemonday.UGCPolicy()
)

// Text strips all HTML from s and returns trimmed plain text.
func Text(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// HTML keeps a safe formatting subset (links, emphasis, lists) and removes
// scripts, event handlers, and javascript: URLs.
func HTML(s string) string {
	return strings.TrimSpace(ugc.Sanitize(s))
}
