// Package tokenstore persists proxy authorization tokens keyed by caller id.
//
// Services that call downstream APIs on behalf of external callers exchange
// the caller's credential for a long-lived proxy authorization token once,
// and reuse it afterwards. This package provides the persistence layer for
// those tokens: a [Store] interface with Redis and PostgreSQL
// implementations.
//
// Short-lived proxy access tokens are never stored; only the long-lived
// proxy authorization token is persisted. Writes are last-writer-wins
// upserts, so concurrent regeneration for the same caller id is safe (both
// writers store a valid token).
//
// # Usage
//
//	store, err := tokenstore.NewRedisStore(ctx, tokenstore.RedisConfig{
//	    Host: "redis.databases.svc.cluster.local",
//	    Port: 6379,
//	})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	err = store.Upsert(ctx, tokenstore.Record{ID: "caller-1", Token: "Bearer ..."})
//	rec, err := store.Get(ctx, "caller-1")
package tokenstore

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dmerr "github.com/Halderpritam123/go-common/pkg/errors"
)

// Record is a stored proxy authorization token for one caller.
type Record struct {
	// ID identifies the caller the token was generated for.
	ID string `json:"id"`

	// Token is the proxy authorization token, including its "Bearer " prefix.
	Token string `json:"token"`
}

// Store persists proxy authorization tokens. Implementations are
// [RedisStore] and [PostgresStore].
//
// All implementations are safe for concurrent use.
type Store interface {
	// Get returns the record stored for the given caller id. Returns a
	// [*dmerr.Error] with code [dmerr.CodeNotFoundToken] when no record
	// exists.
	Get(ctx context.Context, id string) (Record, error)

	// Upsert stores the record, replacing any existing record with the
	// same id (last writer wins).
	Upsert(ctx context.Context, rec Record) error

	// Health verifies the backing store is reachable.
	Health(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}

// validateRecord checks that a record is storable.
func validateRecord(rec Record) error {
	if rec.ID == "" {
		return dmerr.Validation("tokenstore: record id must not be empty")
	}
	if rec.Token == "" {
		return dmerr.Validation("tokenstore: record token must not be empty")
	}
	return nil
}

// finishSpan records an error on the span (if any) and ends it. If err is
// nil, the span status is set to OK.
func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// wrapError converts a store error to a platform [*dmerr.Error] with an
// appropriate error code. [context.DeadlineExceeded] is classified as
// [dmerr.CodeTimeout] (retryable); everything else as
// [dmerr.CodeInternalDatabase].
func wrapError(err error, message string) *dmerr.Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return dmerr.Wrap(err, dmerr.CodeTimeout, message)
	}
	return dmerr.Wrap(err, dmerr.CodeInternalDatabase, message)
}
