// Package strings holds text helpers for user-facing output.
package strings

import (
	"strings"
)

// NotificationMaxLen bounds the body of a desktop notification. Servers may
// send arbitrarily long failure messages.
const NotificationMaxLen = 200

// MinTruncateLen is the smallest maxLen OneLine accepts: one character plus "...".
const MinTruncateLen = 4

// OneLine collapses all whitespace runs in s to single spaces and truncates
// the result to maxLen runes, ending in "..." when shortened.
func OneLine(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
