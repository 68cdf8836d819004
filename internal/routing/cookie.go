package routing

import "strings"

// ExtractCookie returns the value of the first cookie called name in a raw Cookie
// header. present reports whether the request carried a Cookie header at all.
// Values are returned verbatim; entries without '=' never match.
func ExtractCookie(rawHeader string, present bool, name string) (string, bool) {
	if !present || rawHeader == "" {
		return "", false
	}

	for _, entry := range strings.Split(rawHeader, ";") {
		cookieName, value, found := strings.Cut(strings.TrimSpace(entry), "=")
		if !found {
			continue
		}
		if cookieName == name {
			return value, true
		}
	}
	return "", false
}
