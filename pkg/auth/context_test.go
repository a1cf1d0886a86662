package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityFromContext_Roundtrip(t *testing.T) {
	t.Parallel()
	identity := Identity{OrgID: "org-1", UserID: "u-42", Username: "jdoe"}
	ctx := ContextWithIdentity(t.Context(), identity)

	got, ok := IdentityFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, identity, got)
}

func TestIdentityFromContext_Missing(t *testing.T) {
	t.Parallel()
	got, ok := IdentityFromContext(t.Context())
	assert.False(t, ok)
	assert.Equal(t, Identity{}, got)
}

func TestMustIdentityFromContext_Panics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() {
		MustIdentityFromContext(t.Context())
	})
}

func TestRequestIDFromContext(t *testing.T) {
	t.Parallel()
	ctx := ContextWithRequestID(t.Context(), "req-1")
	id, ok := RequestIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)

	_, ok = RequestIDFromContext(t.Context())
	assert.False(t, ok)
}
