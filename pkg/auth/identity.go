// Package auth provides the request-time authorization pipeline for
// platform services: inbound gateway middleware that classifies each
// request (exempt, trusted-internal, or full remote authorization),
// resolves the acting user's identity, and attaches it to the request
// context, plus outbound helpers that propagate that identity to
// downstream services over HTTP and gRPC.
//
// Two gateway styles are supported:
//
//   - [Gateway] runs the single-step authorization flow: one POST to the
//     IAM authorization endpoint decides the request, and the resolved
//     principal is enriched with user details before handlers run.
//   - [AuthnGateway] runs the two-stage flow used by integrations that
//     authenticate and authorize separately: Authenticate validates the
//     bearer token, Authorize checks the route against the caller's org
//     and project.
//
// Both gateways share the same path exemption rules, reject with the
// same {message, success:false} body shape, and never leak internal
// error text to the caller.
package auth

// Identity describes the authenticated caller of one request. It is
// constructed by gateway middleware from authorization-endpoint response
// data merged with inbound headers, attached to the request context, and
// discarded when the request ends. It is never persisted.
//
// Which fields are populated depends on how the request was classified:
// a trusted-internal request carries only header-derived fields, while a
// fully authorized request always has OrgID, ProjectID, and UserID set.
type Identity struct {
	OrgID     string
	ProjectID string

	// Token is the caller's bearer credential as received on the inbound
	// Authorization header, including any "Bearer " prefix.
	Token string

	UserID   string
	Username string
	Email    string
	FullName string
}
