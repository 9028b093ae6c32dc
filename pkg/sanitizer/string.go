package sanitizer

import (
	"strings"
	"unicode"
)

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

func NormalizeLab(lab string) string {
	return TrimAndNormalize(lab)
}

// NormalizeIdentifier trims an external identifier such as a device or student
// id. Case is preserved because identifiers are compared exactly.
func NormalizeIdentifier(id string) string {
	return strings.TrimSpace(id)
}
