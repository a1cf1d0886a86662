package iam

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	dmerr "github.com/Halderpritam123/go-common/pkg/errors"
	"github.com/Halderpritam123/go-common/pkg/tokenstore"
)

// TokenProxy mints proxy tokens for service-initiated calls made on behalf
// of a user. Two token kinds are involved:
//
//   - The proxy authorization token is long-lived and expensive to mint (it
//     requires the caller's original bearer credential). It is cached in a
//     [tokenstore.Store] keyed by caller id.
//   - The proxy access token is short-lived and cheap to mint from a proxy
//     authorization token. It is never cached; every call returns a fresh
//     one.
//
// A TokenProxy is safe for concurrent use. Concurrent generation for the
// same caller id is tolerated: both writers persist a valid authorization
// token and the last write wins.
type TokenProxy struct {
	cfg    Config
	cred   *ServiceCredential
	store  tokenstore.Store
	client *http.Client
	logger *slog.Logger
}

// NewTokenProxy creates a TokenProxy persisting proxy authorization tokens
// in store. The store may be nil when callers never pass a caller id (no
// caching).
func NewTokenProxy(cfg Config, cred *ServiceCredential, store tokenstore.Store) *TokenProxy {
	return &TokenProxy{
		cfg:    cfg,
		cred:   cred,
		store:  store,
		client: &http.Client{Timeout: DefaultRequestTimeout},
		logger: slog.Default(),
	}
}

// Exchange performs one token exchange against the authentication endpoint.
// Exactly one of authToken and proxyAuthToken must be non-empty: presenting
// authToken mints a proxy authorization token, presenting proxyAuthToken
// mints a proxy access token. The returned token carries the "Bearer "
// prefix.
//
// Error codes returned:
//   - [dmerr.CodeValidation]: neither or both tokens supplied
//   - [dmerr.CodeTokenGeneration]: non-200 from the endpoint (carrying the
//     upstream message) or transport failure
func (p *TokenProxy) Exchange(ctx context.Context, authToken, proxyAuthToken string) (string, error) {
	if (authToken == "") == (proxyAuthToken == "") {
		return "", dmerr.Validation(
			"iam: exactly one of authToken and proxyAuthToken must be supplied")
	}

	body, err := json.Marshal(exchangeRequest{
		ServiceToken:            p.cred.Token(),
		AuthToken:               authToken,
		ProxyAuthorizationToken: proxyAuthToken,
	})
	if err != nil {
		return "", dmerr.Wrap(err, dmerr.CodeInternal,
			"iam: failed to encode token exchange request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+ProxyTokenPath, bytes.NewReader(body))
	if err != nil {
		return "", dmerr.Wrap(err, dmerr.CodeInternal,
			"iam: failed to build token exchange request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", dmerr.Wrap(err, dmerr.CodeTokenGeneration,
			"iam: token exchange request failed")
	}
	defer resp.Body.Close()

	var payload tokenResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr != nil && resp.StatusCode == http.StatusOK {
		return "", dmerr.Wrap(decodeErr, dmerr.CodeTokenGeneration,
			"iam: token exchange response is not valid JSON")
	}

	if resp.StatusCode != http.StatusOK {
		message := payload.Message
		if message == "" {
			message = "token exchange failed"
		}
		p.logger.ErrorContext(ctx, "token exchange rejected",
			"status", resp.StatusCode, "message", message)
		return "", dmerr.TokenGenerationf("iam: %s", message)
	}

	return "Bearer " + payload.Token, nil
}

// GenerateAndPersist runs the full two-step exchange: the caller's bearer
// credential buys a proxy authorization token, which in turn buys a proxy
// access token. When callerID is non-empty the authorization token (never
// the access token) is upserted into the store, overwriting any prior
// value. Returns the access token.
//
// Error codes returned:
//   - [dmerr.CodeTokenGeneration]: either exchange step or the persist
//     failed
func (p *TokenProxy) GenerateAndPersist(ctx context.Context, authToken, callerID string) (string, error) {
	proxyAuthToken, err := p.Exchange(ctx, authToken, "")
	if err != nil {
		return "", err
	}

	accessToken, err := p.Exchange(ctx, "", proxyAuthToken)
	if err != nil {
		return "", err
	}

	if callerID != "" {
		rec := tokenstore.Record{ID: callerID, Token: proxyAuthToken}
		if err := p.store.Upsert(ctx, rec); err != nil {
			return "", dmerr.Wrapf(err, dmerr.CodeTokenGeneration,
				"iam: failed to persist proxy authorization token for %q", callerID)
		}
	}
	return accessToken, nil
}

// GetOrCreateAccessToken returns a fresh proxy access token for the caller.
// When callerID is non-empty and a proxy authorization token is already
// stored, that token is exchanged directly (skipping the expensive first
// step and leaving the stored record untouched). Otherwise it falls through
// to [TokenProxy.GenerateAndPersist].
//
// Error codes returned:
//   - [dmerr.CodeTokenGeneration]: exchange, lookup, or persist failed
func (p *TokenProxy) GetOrCreateAccessToken(ctx context.Context, authToken, callerID string) (string, error) {
	if callerID == "" {
		return p.GenerateAndPersist(ctx, authToken, callerID)
	}

	rec, err := p.store.Get(ctx, callerID)
	switch {
	case err == nil:
		return p.Exchange(ctx, "", rec.Token)
	case dmerr.HasCode(err, dmerr.CodeNotFoundToken):
		return p.GenerateAndPersist(ctx, authToken, callerID)
	default:
		return "", dmerr.Wrapf(err, dmerr.CodeTokenGeneration,
			"iam: failed to load proxy authorization token for %q", callerID)
	}
}
