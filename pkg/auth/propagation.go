package auth

import (
	"net/http"
	"strings"

	"github.com/Halderpritam123/go-common/pkg/iam"
)

// bearerPrefix is the standard "Bearer " prefix for authorization tokens.
const bearerPrefix = "Bearer "

// ExtractBearerToken extracts the token from an authorization header
// value. It handles the "Bearer " prefix case-insensitively. Returns an
// empty string if the header is empty or does not have a bearer prefix.
func ExtractBearerToken(authHeader string) string {
	if len(authHeader) <= len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return authHeader[len(bearerPrefix):]
}

// RequestMetadata returns the API version and the outbound headers for a
// downstream platform call made while serving r.
//
// Requests in the trusted internal namespace talk to v1 endpoints and
// forward the inbound Authorization header together with the caller's
// username. Everything else talks to v2 endpoints, authenticated with the
// identity's own token plus the inbound service token.
func RequestMetadata(identity Identity, r *http.Request) (string, http.Header) {
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set(iam.HeaderOrgID, identity.OrgID)
	headers.Set(iam.HeaderProjectID, identity.ProjectID)

	if IsInternalPath(r.URL.Path) {
		headers.Set("Authorization", r.Header.Get("Authorization"))
		headers.Set(iam.HeaderUsername, identity.Username)
		return "v1", headers
	}

	headers.Set("Authorization", identity.Token)
	headers.Set(iam.HeaderServiceToken, r.Header.Get(iam.HeaderServiceToken))
	return "v2", headers
}

// PropagatingRoundTripper is an http.RoundTripper that forwards the
// identity from the request context as platform headers on outbound
// requests. Wrap an http.Client's transport with it so every downstream
// call made while serving a request automatically carries the caller's
// org, project, username, and bearer token.
//
// Headers already set on the outbound request are never overwritten; the
// round tripper only fills gaps.
type PropagatingRoundTripper struct {
	// Base is the underlying transport. When nil,
	// http.DefaultTransport is used.
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *PropagatingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	identity, ok := IdentityFromContext(req.Context())
	if !ok {
		return t.base().RoundTrip(req)
	}

	// Per RoundTripper contract the request must not be mutated.
	clone := req.Clone(req.Context())
	setIfEmpty(clone.Header, "Authorization", identity.Token)
	setIfEmpty(clone.Header, iam.HeaderOrgID, identity.OrgID)
	setIfEmpty(clone.Header, iam.HeaderProjectID, identity.ProjectID)
	setIfEmpty(clone.Header, iam.HeaderUsername, identity.Username)
	return t.base().RoundTrip(clone)
}

func (t *PropagatingRoundTripper) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func setIfEmpty(h http.Header, name, value string) {
	if value != "" && h.Get(name) == "" {
		h.Set(name, value)
	}
}
