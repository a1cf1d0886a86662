package iam

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dmerr "github.com/Halderpritam123/go-common/pkg/errors"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:     baseURL,
		NameSpace:   "platform",
		ServiceName: "reporting-service",
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", testConfig("http://iam:8080"), false},
		{"missing base URL", Config{NameSpace: "p", ServiceName: "s"}, true},
		{"missing namespace", Config{BaseURL: "http://x", ServiceName: "s"}, true},
		{"missing service name", Config{BaseURL: "http://x", NameSpace: "p"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dmerr.HasCode(err, dmerr.CodeInternalConfiguration))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestTokenManager_FetchServiceToken_Success verifies the request payload
// and that a 200 atomically replaces the credential's token.
func TestTokenManager_FetchServiceToken_Success(t *testing.T) {
	t.Parallel()
	var gotBody serviceTokenRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, ServiceTokenPath, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "svc-token-1"})
	}))
	defer srv.Close()

	cred := NewServiceCredential("app-secret")
	manager := NewTokenManager(testConfig(srv.URL), cred)

	require.NoError(t, manager.FetchServiceToken(context.Background(), ""))

	assert.Equal(t, "svc-token-1", cred.Token())
	assert.Equal(t, serviceTokenRequest{
		NameSpace:         "platform",
		ApplicationName:   "reporting-service",
		ApplicationSecret: "app-secret",
	}, gotBody)
}

// TestTokenManager_FetchServiceToken_ServiceNameOverride verifies the
// optional application-name override.
func TestTokenManager_FetchServiceToken_ServiceNameOverride(t *testing.T) {
	t.Parallel()
	var gotBody serviceTokenRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "t"})
	}))
	defer srv.Close()

	manager := NewTokenManager(testConfig(srv.URL), NewServiceCredential("s"))
	require.NoError(t, manager.FetchServiceToken(context.Background(), "other-service"))
	assert.Equal(t, "other-service", gotBody.ApplicationName)
}

// TestTokenManager_FetchServiceToken_Non200 verifies the failure code and
// that the credential keeps its previous token.
func TestTokenManager_FetchServiceToken_Non200(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad secret", http.StatusForbidden)
	}))
	defer srv.Close()

	cred := NewServiceCredential("app-secret")
	cred.setToken("previous")
	manager := NewTokenManager(testConfig(srv.URL), cred)

	err := manager.FetchServiceToken(context.Background(), "")
	require.Error(t, err)
	assert.True(t, dmerr.HasCode(err, dmerr.CodeTokenService))
	assert.Equal(t, "previous", cred.Token(), "failed fetch must not clear the token")
}

func TestTokenManager_FetchServiceToken_EmptyToken(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"token": ""})
	}))
	defer srv.Close()

	manager := NewTokenManager(testConfig(srv.URL), NewServiceCredential("s"))
	err := manager.FetchServiceToken(context.Background(), "")
	require.Error(t, err)
	assert.True(t, dmerr.HasCode(err, dmerr.CodeTokenService))
}

func TestTokenManager_FetchServiceToken_Unreachable(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately, to get a refused connection

	manager := NewTokenManager(testConfig(srv.URL), NewServiceCredential("s"))
	err := manager.FetchServiceToken(context.Background(), "")
	require.Error(t, err)
	assert.True(t, dmerr.HasCode(err, dmerr.CodeTokenService))
}

// TestTokenManager_ValidateServiceToken covers the optimistic validation
// contract: only an explicit 400 means invalid.
func TestTokenManager_ValidateServiceToken(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"explicit 400 means invalid", http.StatusBadRequest, false},
		{"200 means valid", http.StatusOK, true},
		{"401 still counts as valid", http.StatusUnauthorized, true},
		{"500 still counts as valid", http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, TokenValidationPath, r.URL.Path)
				assert.Equal(t, "current-token", r.Header.Get(HeaderServiceToken))
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			cred := NewServiceCredential("s")
			cred.setToken("current-token")
			manager := NewTokenManager(testConfig(srv.URL), cred)

			assert.Equal(t, tt.want, manager.ValidateServiceToken(context.Background()))
		})
	}
}

// TestTokenManager_ValidateServiceToken_TransportError verifies that an
// unreachable validation endpoint counts as valid, so transient outages
// never trigger a refetch.
func TestTokenManager_ValidateServiceToken_TransportError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	manager := NewTokenManager(testConfig(srv.URL), NewServiceCredential("s"))
	assert.True(t, manager.ValidateServiceToken(context.Background()))
}

func TestTokenExpiry_NotAJWT(t *testing.T) {
	t.Parallel()
	assert.True(t, tokenExpiry("opaque-token").IsZero())
}
