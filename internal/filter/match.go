package filter

import "strings"

// MatchSubstring checks whether a normalized value matches the
// components of a substring assertion. Both sides are assumed to be in
// canonical form already, so matching is exact.
func MatchSubstring(value string, sub *SubAssert) bool {
	if sub == nil {
		return false
	}
	pos := 0

	if sub.Initial != "" {
		if !strings.HasPrefix(value, sub.Initial) {
			return false
		}
		pos = len(sub.Initial)
	}

	for _, any := range sub.Any {
		if any == "" {
			continue
		}
		idx := strings.Index(value[pos:], any)
		if idx < 0 {
			return false
		}
		pos += idx + len(any)
	}

	if sub.Final != "" {
		if len(value)-pos < len(sub.Final) {
			return false
		}
		if !strings.HasSuffix(value[pos:], sub.Final) {
			return false
		}
	}

	return true
}

// MatchPrefix reports whether a normalized index key can still satisfy
// the assertion's initial component: the early-exit guarantee of an
// indexed substring walk. An assertion with no initial component keeps
// every key.
func MatchPrefix(key string, sub *SubAssert) bool {
	if sub == nil || sub.Initial == "" {
		return true
	}
	return strings.HasPrefix(key, sub.Initial)
}
