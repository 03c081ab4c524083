// Package sanitize strips coding-assistant XML wrapper tags from message
// text before flagging and classification.
package sanitize

import (
	"regexp"
	"strings"
)

var wrapperTagPattern = regexp.MustCompile(
	`</?(?:command-(?:name|message|args|output)|local-command-(?:stdout|stderr|caveat)|` +
		`system-reminder|task-(?:id|notification)|persisted-output|thinking)[^>]*>`,
)

var commandNamePattern = regexp.MustCompile(`<command-name>\s*(/?[\w:-]+)\s*</command-name>`)

// StripTags removes wrapper tags and trims the result.
func StripTags(text string) string {
	return strings.TrimSpace(wrapperTagPattern.ReplaceAllString(text, ""))
}

// CommandName extracts the slash-command name from a wrapped command message,
// without the leading slash. Returns "" when the text is not a command.
func CommandName(text string) string {
	m := commandNamePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimPrefix(m[1], "/")
}

// IsMetaText reports whether text is system-injected rather than
// operator-authored and should be skipped during first-message selection.
func IsMetaText(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	return strings.HasPrefix(lower, "caveat:") ||
		strings.HasPrefix(lower, "<local-command-caveat>") ||
		strings.HasPrefix(lower, "<system-reminder>")
}
