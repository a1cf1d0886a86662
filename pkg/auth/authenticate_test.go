package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Halderpritam123/go-common/pkg/iam"
)

// authnStub serves the token-validate and authorize-route endpoints,
// counting calls to each.
type authnStub struct {
	mu sync.Mutex

	validateStatus int
	validateBody   any
	validateHits   int

	routeStatus   int
	routeBody     any
	routeHits     int
	routeRequests []routeAuthzRequest

	srv *httptest.Server
}

func newAuthnStub(t *testing.T) *authnStub {
	s := &authnStub{
		validateStatus: http.StatusOK,
		validateBody: map[string]any{
			"payload": map[string]string{
				"userId":    "u-42",
				"username":  "jdoe",
				"emailId":   "jdoe@example.com",
				"firstName": "Jane",
				"lastName":  "Doe",
			},
		},
		routeStatus: http.StatusOK,
		routeBody:   map[string]any{"success": true},
	}
	mux := http.NewServeMux()
	mux.HandleFunc(iam.TokenValidationPath, func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc(iam.TokenValidatePath, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.validateHits++
		status, body := s.validateStatus, s.validateBody
		s.mu.Unlock()
		w.WriteHeader(status)
		if body != nil {
			_ = json.NewEncoder(w).Encode(body)
		}
	})
	mux.HandleFunc(iam.AuthorizeRoutePath, func(w http.ResponseWriter, r *http.Request) {
		var req routeAuthzRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		s.mu.Lock()
		s.routeHits++
		s.routeRequests = append(s.routeRequests, req)
		status, body := s.routeStatus, s.routeBody
		s.mu.Unlock()
		w.WriteHeader(status)
		if body != nil {
			_ = json.NewEncoder(w).Encode(body)
		}
	})
	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *authnStub) outboundCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validateHits + s.routeHits
}

func newTestAuthnGateway(t *testing.T, stub *authnStub) *AuthnGateway {
	cred := iam.NewServiceCredential("app-secret")
	cfg := iam.Config{
		BaseURL:     stub.srv.URL,
		NameSpace:   "platform",
		ServiceName: "reporting-service",
	}
	return NewAuthnGateway(cfg, iam.NewCaller(cred, iam.NewTokenManager(cfg, cred)))
}

func decodeFailure(t *testing.T, rec *httptest.ResponseRecorder) failureBody {
	t.Helper()
	var body failureBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// TestAuthnGateway_Authenticate_MissingToken: no Authorization header on
// a non-exempt path answers 401 immediately, with zero outbound calls.
func TestAuthnGateway_Authenticate_MissingToken(t *testing.T) {
	t.Parallel()
	stub := newAuthnStub(t)
	gw := newTestAuthnGateway(t, stub)

	var got capturedRequest
	rec := httptest.NewRecorder()
	gw.Authenticate(capture(&got)).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/v1/report", nil))

	assert.False(t, got.served)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, failureBody{Message: msgTokenMissing, Success: false}, decodeFailure(t, rec))
	assert.Equal(t, 0, stub.outboundCalls())
}

func TestAuthnGateway_Authenticate_Success(t *testing.T) {
	t.Parallel()
	stub := newAuthnStub(t)
	gw := newTestAuthnGateway(t, stub)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)
	req.Header.Set("Authorization", "Bearer user-token")

	var got capturedRequest
	rec := httptest.NewRecorder()
	gw.Authenticate(capture(&got)).ServeHTTP(rec, req)

	require.True(t, got.served)
	require.True(t, got.hasIdentity)
	assert.Equal(t, Identity{
		Token:    "Bearer user-token",
		UserID:   "u-42",
		Username: "jdoe",
		Email:    "jdoe@example.com",
		FullName: "Jane Doe",
	}, got.identity)
	// Provisional identity: org/project arrive in the authorize stage.
	assert.Empty(t, got.identity.OrgID)
	assert.Empty(t, got.identity.ProjectID)
}

func TestAuthnGateway_Authenticate_Rejected(t *testing.T) {
	t.Parallel()
	stub := newAuthnStub(t)
	stub.validateStatus = http.StatusUnauthorized
	stub.validateBody = map[string]any{"message": "token expired"}
	gw := newTestAuthnGateway(t, stub)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)
	req.Header.Set("Authorization", "Bearer stale")

	var got capturedRequest
	rec := httptest.NewRecorder()
	gw.Authenticate(capture(&got)).ServeHTTP(rec, req)

	assert.False(t, got.served)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	// The upstream response text is surfaced as the rejection message.
	assert.Contains(t, decodeFailure(t, rec).Message, "token expired")
}

func TestAuthnGateway_Authenticate_ExemptPath(t *testing.T) {
	t.Parallel()
	stub := newAuthnStub(t)
	gw := newTestAuthnGateway(t, stub)

	var got capturedRequest
	rec := httptest.NewRecorder()
	gw.Authenticate(capture(&got)).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.True(t, got.served)
	assert.False(t, got.hasIdentity)
	assert.Equal(t, 0, stub.outboundCalls())
}

// TestAuthnGateway_Authorize_MissingHeaders: org/project headers are
// required before any outbound call.
func TestAuthnGateway_Authorize_MissingHeaders(t *testing.T) {
	t.Parallel()
	stub := newAuthnStub(t)
	gw := newTestAuthnGateway(t, stub)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)
	req.Header.Set(iam.HeaderOrgID, "org-1") // project missing

	var got capturedRequest
	rec := httptest.NewRecorder()
	gw.Authorize(capture(&got)).ServeHTTP(rec, req)

	assert.False(t, got.served)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, failureBody{Message: msgHeadersMissing, Success: false}, decodeFailure(t, rec))
	assert.Equal(t, 0, stub.outboundCalls())
}

func TestAuthnGateway_Authorize_Success(t *testing.T) {
	t.Parallel()
	stub := newAuthnStub(t)
	gw := newTestAuthnGateway(t, stub)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/report", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	req.Header.Set(iam.HeaderOrgID, "org-1")
	req.Header.Set(iam.HeaderProjectID, "proj-1")

	// Authenticate then authorize, the way services chain the stages.
	var got capturedRequest
	rec := httptest.NewRecorder()
	gw.Authenticate(gw.Authorize(capture(&got))).ServeHTTP(rec, req)

	require.True(t, got.served)
	require.True(t, got.hasIdentity)
	assert.Equal(t, "org-1", got.identity.OrgID)
	assert.Equal(t, "proj-1", got.identity.ProjectID)
	assert.Equal(t, "u-42", got.identity.UserID)

	require.Len(t, stub.routeRequests, 1)
	sent := stub.routeRequests[0]
	assert.Equal(t, "/api/v1/report", sent.APIRoute)
	assert.Equal(t, http.MethodPut, sent.APIMethod)
	assert.Equal(t, "org-1", sent.OrgDetails.OrgID)
	assert.Nil(t, sent.OrgDetails.RoleID)
	assert.Equal(t, "proj-1", sent.ProjectLevelDetails.ProjectID)
	assert.Nil(t, sent.ProjectLevelDetails.RoleID)
}

// TestAuthnGateway_Authorize_SuccessFalse: a 200 with success:false is a
// rejection carrying the upstream message with status 403.
func TestAuthnGateway_Authorize_SuccessFalse(t *testing.T) {
	t.Parallel()
	stub := newAuthnStub(t)
	stub.routeBody = map[string]any{"success": false, "message": "role missing"}
	gw := newTestAuthnGateway(t, stub)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)
	req.Header.Set(iam.HeaderOrgID, "org-1")
	req.Header.Set(iam.HeaderProjectID, "proj-1")

	var got capturedRequest
	rec := httptest.NewRecorder()
	gw.Authorize(capture(&got)).ServeHTTP(rec, req)

	assert.False(t, got.served)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, failureBody{Message: "role missing", Success: false}, decodeFailure(t, rec))
}

func TestAuthnGateway_Authorize_Non200(t *testing.T) {
	t.Parallel()
	stub := newAuthnStub(t)
	stub.routeStatus = http.StatusInternalServerError
	stub.routeBody = map[string]any{"success": false, "message": "policy engine down"}
	gw := newTestAuthnGateway(t, stub)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)
	req.Header.Set(iam.HeaderOrgID, "org-1")
	req.Header.Set(iam.HeaderProjectID, "proj-1")

	var got capturedRequest
	rec := httptest.NewRecorder()
	gw.Authorize(capture(&got)).ServeHTTP(rec, req)

	assert.False(t, got.served)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "policy engine down", decodeFailure(t, rec).Message)
}

func TestAuthnGateway_Authorize_ExemptPath(t *testing.T) {
	t.Parallel()
	stub := newAuthnStub(t)
	gw := newTestAuthnGateway(t, stub)

	var got capturedRequest
	rec := httptest.NewRecorder()
	gw.Authorize(capture(&got)).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/reporting-service/health", nil))

	assert.True(t, got.served)
	assert.Equal(t, 0, stub.outboundCalls())
}
