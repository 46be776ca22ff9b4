package validation

import (
	"strconv"
	"strings"
)

var keycapDigits = []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣", "🔟"}

// NumberEmoji returns the keycap emoji for n (1-10), or "n." beyond that.
func NumberEmoji(n int) string {
	if n >= 1 && n <= len(keycapDigits) {
		return keycapDigits[n-1]
	}

	return strconv.Itoa(n) + "."
}

// FormatOptions renders options for a chat message. Numbered options go one per line,
// plain ones read as "a, b o c".
func FormatOptions(options []string) string {
	switch len(options) {
	case 0:
		return ""
	case 1:
		return options[0]
	}

	if hasKeycap(options) {
		return strings.Join(options, "\n")
	}

	if len(options) == 2 {
		return options[0] + " o " + options[1]
	}

	return strings.Join(options[:len(options)-1], ", ") + " o " + options[len(options)-1]
}

func hasKeycap(options []string) bool {
	for _, option := range options {
		for _, digit := range keycapDigits {
			if strings.Contains(option, digit) {
				return true
			}
		}
	}

	return false
}
