package tokenstore

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Halderpritam123/go-common/pkg/config"
	dmerr "github.com/Halderpritam123/go-common/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope name for this package.
// It follows the Go module path convention for OTel instrumentation libraries.
const tracerName = "github.com/Halderpritam123/go-common/pkg/tokenstore"

// redisKeyPrefix namespaces token records in Redis so they cannot collide
// with other keys sharing the database.
const redisKeyPrefix = "proxy-token:"

// Default connection settings for Kubernetes deployments, where Redis runs
// behind a Kubernetes Service in the databases namespace.
const (
	// DefaultRedisHost is the Kubernetes Service DNS name for the Redis
	// database.
	DefaultRedisHost = "redis.databases.svc.cluster.local"

	// DefaultRedisPort is the standard Redis port.
	DefaultRedisPort = 6379

	// DefaultDialTimeout is the maximum time to wait when establishing a
	// new connection.
	DefaultDialTimeout = 10 * time.Second

	// DefaultHealthTimeout is the maximum time for a health check when the
	// caller's context has no deadline.
	DefaultHealthTimeout = 5 * time.Second
)

// Cmdable is the slice of a Redis client that [RedisStore] needs. It is
// satisfied by [*redis.Client] and by mock implementations for unit
// testing; use [NewRedisStoreFromClient] to inject one.
type Cmdable interface {
	// Set sets the string value of a key with an optional expiration.
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd

	// Get returns the string value of a key.
	Get(ctx context.Context, key string) *redis.StringCmd

	// Ping pings the Redis server.
	Ping(ctx context.Context) *redis.StatusCmd

	// Close closes the client connection.
	Close() error
}

// Compile-time interface compliance check. This ensures that *redis.Client
// satisfies the Cmdable interface at compile time rather than at runtime.
var _ Cmdable = (*redis.Client)(nil)

// RedisConfig holds the Redis connection configuration for a [RedisStore].
// When [RedisConfig.URI] is set, it takes precedence over the individual
// Host, Port, DB, and Password fields.
type RedisConfig struct {
	// URI is a Redis connection string (e.g.,
	// "redis://:password@host:6379/0"). Supports both "redis://" and
	// "rediss://" (TLS) schemes.
	// Environment variable: TOKENSTORE_REDIS_URI
	URI string `json:"uri,omitempty" env:"TOKENSTORE_REDIS_URI"`

	// Host is the Redis server hostname or IP address.
	// Default: "redis.databases.svc.cluster.local"
	// Environment variable: TOKENSTORE_REDIS_HOST
	Host string `json:"host,omitempty" env:"TOKENSTORE_REDIS_HOST"`

	// Port is the Redis server port.
	// Default: 6379
	// Environment variable: TOKENSTORE_REDIS_PORT
	Port int `json:"port,omitempty" env:"TOKENSTORE_REDIS_PORT"`

	// DB is the Redis database index.
	// Environment variable: TOKENSTORE_REDIS_DB
	DB int `json:"db" env:"TOKENSTORE_REDIS_DB"`

	// Password is the Redis password. Uses [config.Secret] to prevent
	// accidental logging.
	// Environment variable: TOKENSTORE_REDIS_PASSWORD
	Password config.Secret `json:"-" env:"TOKENSTORE_REDIS_PASSWORD"`

	// TTL is an optional expiration applied to stored records. Zero (the
	// default) stores records without expiration; proxy authorization
	// tokens are long-lived and regenerated on demand, so expiry is an
	// optimization, not a requirement.
	// Environment variable: TOKENSTORE_REDIS_TTL
	TTL time.Duration `json:"ttl,omitempty" env:"TOKENSTORE_REDIS_TTL"`

	// TLSEnabled indicates whether to use TLS for the connection. When URI
	// is set with the "rediss://" scheme, TLS is enabled automatically.
	// Environment variable: TOKENSTORE_REDIS_TLS_ENABLED
	TLSEnabled bool `json:"tls_enabled,omitempty" env:"TOKENSTORE_REDIS_TLS_ENABLED"`
}

// Validate checks the configuration and applies defaults for zero-valued
// fields. Returns the first validation error encountered, or nil.
func (c *RedisConfig) Validate() error {
	if c.URI != "" {
		return nil
	}
	if c.Host == "" {
		c.Host = DefaultRedisHost
	}
	if c.Port == 0 {
		c.Port = DefaultRedisPort
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("tokenstore: redis port must be between 1 and 65535, got %d", c.Port)
	}
	if c.TTL < 0 {
		return fmt.Errorf("tokenstore: redis ttl must not be negative, got %v", c.TTL)
	}
	return nil
}

// RedisStore is a Redis-backed [Store] with OpenTelemetry tracing and
// structured error handling. Records are stored as JSON strings under
// "proxy-token:<id>" keys.
//
// A RedisStore is safe for concurrent use by multiple goroutines.
//
// Create one with [NewRedisStore] for production use, or
// [NewRedisStoreFromClient] for testing with a mock or an embedded server.
type RedisStore struct {
	cmdable Cmdable
	tracer  trace.Tracer
	ttl     time.Duration
}

// NewRedisStore creates a Redis-backed store. It validates the
// configuration, creates a go-redis client, and verifies connectivity with
// a ping.
//
// The caller must call [RedisStore.Close] when the store is no longer
// needed.
//
// Error codes returned:
//   - [dmerr.CodeValidation]: invalid configuration
//   - [dmerr.CodeUnavailableDependency]: cannot connect to Redis
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, dmerr.Wrap(err, dmerr.CodeValidation,
			"tokenstore: invalid redis configuration")
	}

	var opts *redis.Options
	if cfg.URI != "" {
		var err error
		opts, err = redis.ParseURL(cfg.URI)
		if err != nil {
			return nil, dmerr.Wrap(err, dmerr.CodeValidation,
				"tokenstore: failed to parse redis connection URI")
		}
	} else {
		opts = &redis.Options{
			Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Password:    cfg.Password.Value(),
			DB:          cfg.DB,
			DialTimeout: DefaultDialTimeout,
		}
		if cfg.TLSEnabled {
			opts.TLSConfig = &tls.Config{
				MinVersion: tls.VersionTLS12,
			}
		}
	}

	rdb := redis.NewClient(opts)

	// Verify connectivity before returning the store.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, dmerr.Wrap(err, dmerr.CodeUnavailableDependency,
			"tokenstore: failed to connect to redis")
	}

	return &RedisStore{
		cmdable: rdb,
		tracer:  otel.Tracer(tracerName),
		ttl:     cfg.TTL,
	}, nil
}

// NewRedisStoreFromClient creates a RedisStore with a pre-existing
// [Cmdable]. This constructor is intended for testing with mocks or
// embedded Redis servers. The ttl parameter matches [RedisConfig.TTL];
// pass zero for no expiration.
func NewRedisStoreFromClient(cmdable Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{
		cmdable: cmdable,
		tracer:  otel.Tracer(tracerName),
		ttl:     ttl,
	}
}

// Get returns the record stored for the given caller id, with OpenTelemetry
// tracing.
//
// Error codes returned:
//   - [dmerr.CodeValidation]: id is empty
//   - [dmerr.CodeNotFoundToken]: no record exists for the id
//   - [dmerr.CodeTimeout] / [dmerr.CodeInternalDatabase]: Redis failure
func (s *RedisStore) Get(ctx context.Context, id string) (Record, error) {
	if id == "" {
		return Record{}, dmerr.Validation("tokenstore: id must not be empty")
	}

	key := redisKeyPrefix + id
	ctx, span := s.startSpan(ctx, "Get", fmt.Sprintf("GET %s", key))
	val, err := s.cmdable.Get(ctx, key).Result()
	finishSpan(span, err)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, dmerr.Newf(dmerr.CodeNotFoundToken,
				"tokenstore: no token stored for id %q", id)
		}
		return Record{}, wrapError(err, "tokenstore: redis get failed")
	}

	var rec Record
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return Record{}, dmerr.Wrapf(err, dmerr.CodeInternalDatabase,
			"tokenstore: stored record for id %q is not valid JSON", id)
	}
	return rec, nil
}

// Upsert stores the record, replacing any existing record with the same id,
// with OpenTelemetry tracing. The write is a plain SET, so concurrent
// writers for the same id resolve last-writer-wins.
//
// Error codes returned:
//   - [dmerr.CodeValidation]: record id or token is empty
//   - [dmerr.CodeTimeout] / [dmerr.CodeInternalDatabase]: Redis failure
func (s *RedisStore) Upsert(ctx context.Context, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return dmerr.Wrap(err, dmerr.CodeInternal,
			"tokenstore: failed to encode record")
	}

	key := redisKeyPrefix + rec.ID
	ctx, span := s.startSpan(ctx, "Upsert", fmt.Sprintf("SET %s", key))
	err = s.cmdable.Set(ctx, key, data, s.ttl).Err()
	finishSpan(span, err)
	if err != nil {
		return wrapError(err, "tokenstore: redis set failed")
	}
	return nil
}

// Health verifies that the Redis connection is alive by executing a ping.
// It applies [DefaultHealthTimeout] if the provided context has no deadline.
//
// Returns nil if Redis is reachable, or a [*dmerr.Error] with code
// [dmerr.CodeUnavailableDependency] if the ping fails.
func (s *RedisStore) Health(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Health", "PING")

	// Apply a default timeout if the caller's context has no deadline.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultHealthTimeout)
		defer cancel()
	}

	err := s.cmdable.Ping(ctx).Err()
	finishSpan(span, err)
	if err != nil {
		return dmerr.Wrap(err, dmerr.CodeUnavailableDependency,
			"tokenstore: redis health check failed")
	}
	return nil
}

// Close releases all connection resources. After Close is called, the store
// must not be used. Close is safe to call multiple times.
func (s *RedisStore) Close() error {
	return s.cmdable.Close()
}

// startSpan creates a new OpenTelemetry span with standard database semantic
// attributes, following the OpenTelemetry semantic conventions for database
// client spans.
func (s *RedisStore) startSpan(ctx context.Context, operationName, statement string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "tokenstore."+operationName,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.statement", statement),
	)
	return ctx, span
}
