package utils

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// strict strips all markup; display names and avatars are plain text.
var strict = bluemonday.StrictPolicy()

// SanitizeText removes markup, trims whitespace and truncates to maxRunes.
func SanitizeText(input string, maxRunes int) string {
	out := strings.TrimSpace(strict.Sanitize(input))
	if maxRunes > 0 && utf8.RuneCountInString(out) > maxRunes {
		out = string([]rune(out)[:maxRunes])
	}
	return out
}
