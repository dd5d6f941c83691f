package textutil

import "strings"

// SanitizeToken lowercases a user-supplied identifier into a form safe to
// embed in episode filenames. Letters, digits, hyphens, and underscores pass
// through; anything else becomes an underscore. Input that sanitizes to
// nothing yields "unknown" so filenames never end up with an empty segment.
func SanitizeToken(value string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(value) {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r == '-', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	token := strings.Trim(b.String(), "_-")
	if token == "" {
		return "unknown"
	}
	return token
}
