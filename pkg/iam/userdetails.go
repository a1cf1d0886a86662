package iam

import (
	"context"
	"net/http"

	dmerr "github.com/Halderpritam123/go-common/pkg/errors"
)

// GetUserDetails looks up a user through the v2 management endpoint,
// authenticated with the caller's bearer token plus the service token. This
// is the lookup the authorization gateway uses to enrich a resolved
// principal with username, email, and full name.
//
// Error codes returned:
//   - [dmerr.CodeValidation]: userID is empty
//   - [dmerr.CodeNotFoundUser]: the endpoint answered 4xx or 5xx
func (c *Client) GetUserDetails(ctx context.Context, userID, authToken string) (UserInfo, error) {
	if userID == "" {
		return UserInfo{}, dmerr.Validation("iam: user id must not be empty")
	}

	headers := http.Header{}
	headers.Set("Accept", "application/json")
	if authToken != "" {
		headers.Set("Authorization", authToken)
	}

	resp, err := c.caller.Get(ctx, c.cfg.BaseURL+UserDetailV2Path+userID, nil, headers)
	if err != nil {
		return UserInfo{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return UserInfo{}, dmerr.Newf(dmerr.CodeNotFoundUser,
			"iam: failed to fetch details for user %q: status %d", userID, resp.StatusCode)
	}

	var info UserInfo
	if err := resp.Decode(&info); err != nil {
		return UserInfo{}, err
	}
	return info, nil
}

// GetUserDetailsV1 looks up a user through the v1 auth-user endpoint, which
// scopes the lookup to an org and project. The response payload carries the
// same user fields as the v2 endpoint.
//
// Error codes returned:
//   - [dmerr.CodeValidation]: userID is empty
//   - [dmerr.CodeNotFoundUser]: the endpoint answered 4xx or 5xx
func (c *Client) GetUserDetailsV1(ctx context.Context, userID, orgID, projectID, authToken string) (UserInfo, error) {
	if userID == "" {
		return UserInfo{}, dmerr.Validation("iam: user id must not be empty")
	}

	headers := http.Header{}
	headers.Set(HeaderOrgID, orgID)
	headers.Set(HeaderProjectID, projectID)
	if authToken != "" {
		headers.Set("Authorization", authToken)
	}

	resp, err := c.caller.Get(ctx, c.cfg.BaseURL+UserDetailV1Path+userID, nil, headers)
	if err != nil {
		return UserInfo{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return UserInfo{}, dmerr.Newf(dmerr.CodeNotFoundUser,
			"iam: failed to fetch details for user %q: status %d", userID, resp.StatusCode)
	}

	var payload struct {
		Payload UserInfo `json:"payload"`
	}
	if err := resp.Decode(&payload); err != nil {
		return UserInfo{}, err
	}
	return payload.Payload, nil
}
