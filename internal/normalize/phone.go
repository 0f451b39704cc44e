// Package normalize holds the string transforms applied to caller-provided
// input before it is forwarded to the practice management system. Voice
// transcription produces phone numbers and dates in every imaginable format,
// so every inbound handler funnels through here first.
package normalize

import (
	"regexp"
	"strings"
)

var phoneSeparators = regexp.MustCompile(`[\s\-.()]`)

// Phone normalizes a French mobile number to its local ten-digit form.
// Accepted inputs include "+33683791443", "06 83 79 14 43", "0033683791443"
// and "0683791443"; all normalize to "0683791443".
func Phone(raw string) string {
	if raw == "" {
		return raw
	}

	tel := phoneSeparators.ReplaceAllString(raw, "")

	switch {
	case strings.HasPrefix(tel, "+33"):
		tel = "0" + tel[3:]
	case strings.HasPrefix(tel, "0033"):
		tel = "0" + tel[4:]
	case strings.HasPrefix(tel, "33") && len(tel) > 10:
		tel = "0" + tel[2:]
	}

	return tel
}
