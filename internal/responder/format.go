package responder

import "strings"

// MaxResponseRunes is the longest reply posted to chat before the ellipsis.
const MaxResponseRunes = 195

// FormatResponse cuts text at the last word boundary within MaxResponseRunes
// and appends "..." when anything was dropped.
func FormatResponse(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= MaxResponseRunes {
		return text
	}

	cut := string(runes[:MaxResponseRunes])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ") + "..."
}
