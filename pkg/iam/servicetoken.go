package iam

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dmerr "github.com/Halderpritam123/go-common/pkg/errors"
)

// DefaultRequestTimeout bounds outbound IAM calls when the caller's context
// carries no deadline.
const DefaultRequestTimeout = 60 * time.Second

// maxErrorBodyBytes caps how much of an upstream failure body is read into
// error messages and logs.
const maxErrorBodyBytes = 4096

// TokenManager owns the service-token lifecycle: it fetches tokens from IAM
// with the application secret and validates the current token on demand. It
// is the only writer of [ServiceCredential]'s token.
//
// A TokenManager is safe for concurrent use. Concurrent fetches are
// tolerated (each stores an equally fresh token); there is no single-flight
// guard.
type TokenManager struct {
	cfg    Config
	cred   *ServiceCredential
	client *http.Client
	logger *slog.Logger
}

// NewTokenManager creates a TokenManager operating on the given credential.
func NewTokenManager(cfg Config, cred *ServiceCredential) *TokenManager {
	return &TokenManager{
		cfg:    cfg,
		cred:   cred,
		client: &http.Client{Timeout: DefaultRequestTimeout},
		logger: slog.Default(),
	}
}

// FetchServiceToken requests a fresh service token from IAM and atomically
// replaces the credential's token on success. serviceName overrides the
// configured application name when non-empty; pass "" for the common case.
//
// Error codes returned:
//   - [dmerr.CodeTokenService]: IAM returned a non-200 status, the response
//     carried no token, or the request could not be delivered
func (m *TokenManager) FetchServiceToken(ctx context.Context, serviceName string) error {
	name := serviceName
	if name == "" {
		name = m.cfg.ServiceName
	}

	body, err := json.Marshal(serviceTokenRequest{
		NameSpace:         m.cfg.NameSpace,
		ApplicationName:   name,
		ApplicationSecret: m.cred.SecretKey().Value(),
	})
	if err != nil {
		return dmerr.Wrap(err, dmerr.CodeInternal,
			"iam: failed to encode service token request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.cfg.BaseURL+ServiceTokenPath, bytes.NewReader(body))
	if err != nil {
		return dmerr.Wrap(err, dmerr.CodeInternal,
			"iam: failed to build service token request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return dmerr.Wrap(err, dmerr.CodeTokenService,
			"iam: service token request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return dmerr.ServiceTokenf(
			"iam: failed to fetch service token: status %d: %s",
			resp.StatusCode, detail)
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return dmerr.Wrap(err, dmerr.CodeTokenService,
			"iam: service token response is not valid JSON")
	}
	if payload.Token == "" {
		return dmerr.ServiceToken("iam: service token response carried no token")
	}

	m.cred.setToken(payload.Token)
	m.logger.InfoContext(ctx, "service token refreshed",
		"application", name,
		"expiresAt", tokenExpiry(payload.Token))
	return nil
}

// ValidateServiceToken checks the current service token against IAM.
// Validation is optimistic: only an explicit 400 from the validation
// endpoint means invalid; transport failures and every other status count
// as valid, so transient outages never trigger a refetch.
func (m *TokenManager) ValidateServiceToken(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		m.cfg.BaseURL+TokenValidationPath, nil)
	if err != nil {
		return true
	}
	req.Header.Set(HeaderServiceToken, m.cred.Token())

	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.WarnContext(ctx, "service token validation unreachable, assuming valid",
			"error", err)
		return true
	}
	defer resp.Body.Close()

	return resp.StatusCode != http.StatusBadRequest
}

// tokenExpiry returns the exp claim of a JWT without verifying its
// signature, for logging only. Returns the zero time when the token is not
// a parseable JWT or carries no expiry.
func tokenExpiry(token string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
