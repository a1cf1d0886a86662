//go:build integration

// Package tokenstore_test contains integration tests for the token stores
// that require running Redis and PostgreSQL instances via testcontainers-go.
// These tests are gated behind the "integration" build tag and are executed
// in CI with Docker.
//
// Run locally with:
//
//	go test -v -race -tags=integration ./pkg/tokenstore/...
//
// # Architecture
//
// Each backend runs within its own [suite.Suite] that starts one container
// in SetupSuite and terminates it in TearDownSuite. Test isolation is
// achieved via unique record ids per test method rather than per-test
// containers, which reduces total execution time.
package tokenstore_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/Halderpritam123/go-common/internal/testutil/containers"
	"github.com/Halderpritam123/go-common/pkg/config"
	dmerr "github.com/Halderpritam123/go-common/pkg/errors"
	"github.com/Halderpritam123/go-common/pkg/tokenstore"
)

// storeSuite holds the behavior tests shared by both backends. The
// embedding suite is responsible for populating store in SetupSuite.
type storeSuite struct {
	suite.Suite

	ctx   context.Context
	store tokenstore.Store
}

// TestUpsertThenGet verifies the basic round trip against a real backend.
func (s *storeSuite) TestUpsertThenGet() {
	rec := tokenstore.Record{ID: "roundtrip-svc", Token: "Bearer integration-token"}
	require.NoError(s.T(), s.store.Upsert(s.ctx, rec))

	got, err := s.store.Get(s.ctx, "roundtrip-svc")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), rec, got)
}

// TestUpsertReplaces verifies last-writer-wins replacement.
func (s *storeSuite) TestUpsertReplaces() {
	require.NoError(s.T(), s.store.Upsert(s.ctx, tokenstore.Record{ID: "replace-svc", Token: "Bearer old"}))
	require.NoError(s.T(), s.store.Upsert(s.ctx, tokenstore.Record{ID: "replace-svc", Token: "Bearer new"}))

	got, err := s.store.Get(s.ctx, "replace-svc")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Bearer new", got.Token)
}

// TestGetMissing verifies the not-found code against a real backend.
func (s *storeSuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, "never-written")
	require.Error(s.T(), err)
	assert.True(s.T(), dmerr.HasCode(err, dmerr.CodeNotFoundToken))
}

// TestConcurrentUpserts verifies that concurrent writers for the same id
// leave one of the written tokens in place (last writer wins, no torn
// records).
func (s *storeSuite) TestConcurrentUpserts() {
	const writers = 10

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rec := tokenstore.Record{
				ID:    "concurrent-svc",
				Token: fmt.Sprintf("Bearer token-%d", n),
			}
			assert.NoError(s.T(), s.store.Upsert(s.ctx, rec))
		}(i)
	}
	wg.Wait()

	got, err := s.store.Get(s.ctx, "concurrent-svc")
	require.NoError(s.T(), err)
	assert.Regexp(s.T(), `^Bearer token-\d+$`, got.Token)
}

// TestHealth verifies the health check against a live backend.
func (s *storeSuite) TestHealth() {
	require.NoError(s.T(), s.store.Health(s.ctx))
}

// ===========================================================================
// Redis
// ===========================================================================

type RedisStoreIntegrationSuite struct {
	storeSuite

	redisResult *containers.RedisResult
}

func (s *RedisStoreIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	result, err := containers.StartRedis(s.ctx)
	require.NoError(s.T(), err, "failed to start Redis container")
	s.redisResult = result

	store, err := tokenstore.NewRedisStore(s.ctx, tokenstore.RedisConfig{URI: result.ConnString})
	require.NoError(s.T(), err, "failed to create Redis store")
	s.store = store
}

func (s *RedisStoreIntegrationSuite) TearDownSuite() {
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.redisResult != nil {
		if err := s.redisResult.Container.Terminate(s.ctx); err != nil {
			s.T().Logf("failed to terminate redis container: %v", err)
		}
	}
}

// TestRedisStoreIntegration is the top-level entry point for the Redis
// suite. It is skipped in short mode (-short flag) to allow fast test runs
// without Docker.
func TestRedisStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreIntegrationSuite))
}

// ===========================================================================
// PostgreSQL
// ===========================================================================

type PostgresStoreIntegrationSuite struct {
	storeSuite

	postgresResult *containers.PostgresResult
}

func (s *PostgresStoreIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	result, err := containers.StartPostgres(s.ctx)
	require.NoError(s.T(), err, "failed to start PostgreSQL container")
	s.postgresResult = result

	store, err := tokenstore.NewPostgresStore(s.ctx, tokenstore.PostgresConfig{
		URI: config.Secret(result.ConnString),
	})
	require.NoError(s.T(), err, "failed to create PostgreSQL store")
	s.store = store
}

func (s *PostgresStoreIntegrationSuite) TearDownSuite() {
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.postgresResult != nil {
		if err := s.postgresResult.Container.Terminate(s.ctx); err != nil {
			s.T().Logf("failed to terminate postgres container: %v", err)
		}
	}
}

// TestPostgresStoreIntegration is the top-level entry point for the
// PostgreSQL suite. It is skipped in short mode (-short flag) to allow
// fast test runs without Docker.
func TestPostgresStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreIntegrationSuite))
}
