package middleware

import "strings"

// ETagMatch reports whether an If-None-Match (or If-Match) header value
// matches etag. Supports comma-separated lists, weak tags and "*".
func ETagMatch(headerVal, etag string) bool {
	headerVal = strings.TrimSpace(headerVal)
	if headerVal == "" {
		return false
	}
	if headerVal == "*" {
		return true
	}
	for _, candidate := range strings.Split(headerVal, ",") {
		// W/"x" matches W/"x" or "x"
		if stripWeakPrefix(strings.TrimSpace(candidate)) == stripWeakPrefix(etag) {
			return true
		}
	}
	return false
}

func stripWeakPrefix(etag string) string {
	return strings.TrimPrefix(etag, "W/")
}
