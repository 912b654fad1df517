package query

import "strings"

// WrapWildcards turns a user query into a partial-match pattern: "jaho" -> "*jaho*".
// Blank input yields "", and an already wrapped query is returned trimmed but
// otherwise unchanged, so the function is idempotent.
func WrapWildcards(q string) string {
	t := strings.TrimSpace(q)
	if t == "" {
		return ""
	}
	if !strings.HasPrefix(t, "*") {
		t = "*" + t
	}
	if !strings.HasSuffix(t, "*") {
		t += "*"
	}
	return t
}
