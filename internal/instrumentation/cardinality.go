package instrumentation

import "strings"

// Cardinality helpers keep label values bounded. Always use them when a label
// is derived from user input such as an identity or a request path.

// ExtractUserDomain returns the domain of an email address, or "unknown".
//
//	ExtractUserDomain("jane@example.com")  // "example.com"
//	ExtractUserDomain("default")           // "unknown"
func ExtractUserDomain(email string) string {
	if email == "" {
		return "unknown"
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return strings.ToLower(parts[1])
	}

	return "unknown"
}

// RouteLabel returns the mux pattern that matched a request, without the
// method prefix, so "/api/messages/{id}/content" is one label for every id.
// Unmatched requests share the label "other".
func RouteLabel(pattern string) string {
	if pattern == "" {
		return "other"
	}
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		pattern = pattern[i+1:]
	}
	return pattern
}
