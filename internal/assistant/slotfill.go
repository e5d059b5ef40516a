package assistant

import (
	"regexp"
	"strings"
)

// namePattern accepts letters (including Spanish accents) and spaces,
// 2 to 40 characters. Anything with digits or punctuation is treated as a
// new request rather than an answer to "¿cuál es el nombre?".
var namePattern = regexp.MustCompile(`^[A-Za-zÁÉÍÓÚáéíóúÑñüÜ ]{2,40}$`)

// LooksLikeName reports whether a raw message is plausibly just a person's
// name: it matches the pattern and has one to three words.
func LooksLikeName(message string) bool {
	trimmed := strings.TrimSpace(message)
	if !namePattern.MatchString(trimmed) {
		return false
	}
	words := strings.Fields(trimmed)
	return len(words) >= 1 && len(words) <= 3
}
