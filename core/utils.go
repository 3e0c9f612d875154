package core

import "strings"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// LockKey joins parts into a namespaced lock key, e.g. "rank:class-1:session-2".
func LockKey(parts ...string) string {
	return strings.Join(parts, ":")
}
