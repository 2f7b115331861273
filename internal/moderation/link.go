package moderation

import (
	"regexp"
	"strings"
)

// linkPattern matches an http or https URL. It is applied after all
// whitespace has been removed, so "h t t p s : // example.com" still matches.
var linkPattern = regexp.MustCompile(`(?i)https?://\S+`)

// ContainsLink reports whether raw carries a URL once whitespace is ignored.
func ContainsLink(raw string) bool {
	return linkPattern.MatchString(strings.Join(strings.Fields(raw), ""))
}
