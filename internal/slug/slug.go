// Package slug validates the short machine codes used for category
// icons and dictionary entries.
package slug

import (
	"regexp"
	"strings"
)

var reSlug = regexp.MustCompile(`^[a-z0-9_]{2,32}$`)

// IsSlug returns true if s matches ^[a-z0-9_]{2,32}$
func IsSlug(s string) bool {
	return reSlug.MatchString(s)
}

// Slugify lowercases s, maps every run of non [a-z0-9_] characters to a
// single '_', trims to 32 characters and strips edge underscores.
func Slugify(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(s) {
		ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		switch {
		case ok:
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
		if b.Len() >= 32 {
			break
		}
	}
	return strings.Trim(b.String(), "_")
}
