package fsutil

import "strings"

const maxNameLen = 128

// SanitizeName turns an arbitrary label, such as a sheet name, into a safe
// file name stem. Characters other than ASCII letters, digits, dot,
// underscore and dash become a single underscore. Leading and trailing dots
// and underscores are trimmed and an empty result yields "unknown".
func SanitizeName(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxNameLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
