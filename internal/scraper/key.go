package scraper

import "strings"

// keySeparator joins the normalized name and the system tag.
const keySeparator = "::"

// IdentityKey returns the key two records share when they describe the same
// game on the same system: the lowercased name with everything outside
// [a-z0-9] removed, then the system tag.
//
//	IdentityKey("Mario!", "nes") == IdentityKey("mario", "nes") == "mario::nes"
func IdentityKey(name, system string) string {
	return normalizeName(name) + keySeparator + system
}

func normalizeName(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}
