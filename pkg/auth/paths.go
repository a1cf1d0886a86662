package auth

import (
	"regexp"
	"strings"
)

// Path classification. Requests fall into three buckets, checked against
// the lower-cased request path:
//
//   - exempt paths bypass authorization entirely (root, API docs, direct
//     downloads, health checks);
//   - internal paths belong to the trusted maintenance/ops namespace and
//     are identified by header alone;
//   - everything else goes through the full authorization flow.

// exemptPatterns are matched from the start of the path. A request whose
// path matches any of them is served without authorization and without an
// identity.
var exemptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^/$`),
	regexp.MustCompile(`api-docs`),
	regexp.MustCompile(`^/s3/download/[^/]+$`),
	regexp.MustCompile(`^/[^/]+/health$`),
	regexp.MustCompile(`^/health$`),
}

// internalPattern marks the trusted internal API namespace. It may occur
// anywhere in the path, not only as the leading segment.
var internalPattern = regexp.MustCompile(`/(system-db|ops|read|maintenance)/api/v1/`)

// IsExemptPath reports whether the request path bypasses authorization.
func IsExemptPath(path string) bool {
	lower := strings.ToLower(path)
	for _, p := range exemptPatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

// IsInternalPath reports whether the request path belongs to the trusted
// internal namespace, where an X-Username header is accepted as sole
// proof of identity.
func IsInternalPath(path string) bool {
	return internalPattern.MatchString(strings.ToLower(path))
}
