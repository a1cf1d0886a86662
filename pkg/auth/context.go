package auth

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// contextKey is an unexported type used for context keys in this package.
// Using a distinct type prevents collisions with keys from other packages.
type contextKey int

const (
	// identityKey stores the authenticated Identity in the context.
	identityKey contextKey = iota

	// requestIDKey stores the gateway-assigned request id in the context.
	requestIDKey
)

// ContextWithIdentity returns a new context with the given Identity
// attached. The identity can later be retrieved with
// [IdentityFromContext].
//
// This is typically called by gateway middleware after a request has been
// authorized; handlers should not need to call it directly.
func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext retrieves the Identity from the context. Returns
// the identity and true if present, or a zero Identity and false if the
// request reached the handler without one (exempt paths, or internal
// requests with no X-Username header).
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// MustIdentityFromContext retrieves the Identity from the context,
// panicking if none is present. Use only on routes that are guaranteed to
// sit behind gateway middleware and are not path-exempt.
func MustIdentityFromContext(ctx context.Context) Identity {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		panic("auth: no identity in context; ensure gateway middleware is configured")
	}
	return identity
}

// ContextWithRequestID returns a new context carrying the gateway-assigned
// request id, used to correlate gateway log records with handler logs.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext retrieves the gateway-assigned request id. Returns
// an empty string and false when no gateway middleware ran.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

// TraceIDFromContext extracts the OpenTelemetry trace ID from the context.
// Returns the trace ID as a hex string and true if a valid trace is
// active, or an empty string and false if no trace is present. This links
// identity and authorization log records to distributed traces.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.HasTraceID() {
		return "", false
	}
	return spanCtx.TraceID().String(), true
}
