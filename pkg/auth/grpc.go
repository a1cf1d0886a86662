package auth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// gRPC metadata keys for identity propagation. They mirror the inbound
// HTTP headers, lower-cased per gRPC metadata convention.
const (
	mdAuthorization = "authorization"
	mdOrgID         = "x-org-id"
	mdProjectID     = "x-project-id"
	mdUsername      = "x-username"
	mdUserID        = "x-user-id"
)

// UnaryServerInterceptor returns a gRPC unary server interceptor that
// reconstructs the caller's [Identity] from incoming metadata and stores
// it in the handler context.
//
// This trusts the propagated headers the same way the HTTP gateway trusts
// the internal namespace: it is meant for mesh-internal services sitting
// behind a gateway that already authorized the request. Requests without
// identity metadata proceed with no identity attached.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		return handler(identityFromIncomingMetadata(ctx), req)
	}
}

// StreamServerInterceptor returns the streaming counterpart of
// [UnaryServerInterceptor], wrapping the stream so the handler context
// carries the reconstructed identity.
func StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx := identityFromIncomingMetadata(ss.Context())
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
	}
}

// UnaryClientInterceptor returns a gRPC unary client interceptor that
// propagates the context identity as outgoing metadata. Calls made with
// no identity in the context proceed without identity metadata.
func UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		return invoker(identityToOutgoingMetadata(ctx), method, req, reply, cc, opts...)
	}
}

// StreamClientInterceptor returns the streaming counterpart of
// [UnaryClientInterceptor].
func StreamClientInterceptor() grpc.StreamClientInterceptor {
	return func(
		ctx context.Context,
		desc *grpc.StreamDesc,
		cc *grpc.ClientConn,
		method string,
		streamer grpc.Streamer,
		opts ...grpc.CallOption,
	) (grpc.ClientStream, error) {
		return streamer(identityToOutgoingMetadata(ctx), desc, cc, method, opts...)
	}
}

// identityFromIncomingMetadata rebuilds the Identity carried in incoming
// metadata, if any, and attaches it to the context.
func identityFromIncomingMetadata(ctx context.Context) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}
	first := func(key string) string {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
		return ""
	}

	identity := Identity{
		OrgID:     first(mdOrgID),
		ProjectID: first(mdProjectID),
		Username:  first(mdUsername),
		UserID:    first(mdUserID),
		Token:     first(mdAuthorization),
	}
	if identity == (Identity{}) {
		return ctx
	}
	if identity.UserID == "" {
		identity.UserID = identity.Username
	}
	return ContextWithIdentity(ctx, identity)
}

// identityToOutgoingMetadata appends the context identity to the outgoing
// metadata, preserving any metadata the caller already set.
func identityToOutgoingMetadata(ctx context.Context) context.Context {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return ctx
	}

	pairs := make([]string, 0, 10)
	appendPair := func(key, value string) {
		if value != "" {
			pairs = append(pairs, key, value)
		}
	}
	appendPair(mdAuthorization, identity.Token)
	appendPair(mdOrgID, identity.OrgID)
	appendPair(mdProjectID, identity.ProjectID)
	appendPair(mdUsername, identity.Username)
	appendPair(mdUserID, identity.UserID)
	if len(pairs) == 0 {
		return ctx
	}

	return metadata.AppendToOutgoingContext(ctx, pairs...)
}

// wrappedServerStream wraps a grpc.ServerStream to override its Context
// method, so handlers see the identity added by the interceptor.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context containing identity information.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
