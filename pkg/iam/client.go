package iam

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	dmerr "github.com/Halderpritam123/go-common/pkg/errors"
)

// Client bundles the IAM management operations: internal user-token
// generation, user-detail lookups, and service registration. All calls go
// through the retrying [Caller], so each one carries the service token and
// recovers from a stale token once.
type Client struct {
	cfg    Config
	cred   *ServiceCredential
	caller *Caller
	logger *slog.Logger
}

// NewClient creates a Client dispatching through caller.
func NewClient(cfg Config, cred *ServiceCredential, caller *Caller) *Client {
	return &Client{
		cfg:    cfg,
		cred:   cred,
		caller: caller,
		logger: slog.Default(),
	}
}

// GenerateUserToken mints a bearer token for the given user via the
// internal-token endpoint, authenticated with the service secret. The
// returned token carries the "Bearer " prefix. Used for service-initiated
// work performed on a user's behalf.
//
// Error codes returned:
//   - [dmerr.CodeValidation]: userID is empty
//   - [dmerr.CodeTokenGeneration]: non-200 from the endpoint
func (c *Client) GenerateUserToken(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", dmerr.Validation("iam: user id must not be empty")
	}

	headers := http.Header{}
	headers.Set(HeaderSecret, c.cred.SecretKey().Value())

	params := url.Values{}
	params.Set("userId", userID)

	resp, err := c.caller.Get(ctx, c.cfg.BaseURL+InternalTokenPath, params, headers)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.ErrorContext(ctx, "internal token generation failed",
			"userId", userID, "status", resp.StatusCode)
		return "", dmerr.TokenGenerationf(
			"iam: failed to generate token for user %q: status %d: %s",
			userID, resp.StatusCode, resp.Body)
	}

	var payload internalTokenResponse
	if err := resp.Decode(&payload); err != nil {
		return "", dmerr.Wrap(err, dmerr.CodeTokenGeneration,
			"iam: internal token response is not valid JSON")
	}
	return "Bearer " + payload.Payload.Token, nil
}
