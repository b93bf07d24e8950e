package server

import "strings"

// parseQuery splits a handshake query string into properties. Pairs are
// separated by '&' and split at the first '='. Values are not
// percent-decoded. A segment without '=' is stored under the empty key.
// Later keys overwrite earlier ones.
func parseQuery(query string) map[string]string {
	props := make(map[string]string)
	for _, seg := range strings.Split(query, "&") {
		key, value, ok := strings.Cut(seg, "=")
		if !ok {
			key, value = "", seg
		}
		props[key] = value
	}
	return props
}

// splitURI separates the resource from the query at the first '?'.
func splitURI(uri string) (resource, query string) {
	resource, query, _ = strings.Cut(uri, "?")
	return resource, query
}
