// Package iam provides clients for the platform's identity and access
// management services: service-token lifecycle, an outbound HTTP caller with
// transparent token refresh, proxy-token generation, internal user-token
// generation, user-detail lookups, and service registration.
//
// # Service tokens
//
// Every service authenticates to the platform with a service token fetched
// from IAM using its application secret. The token is held in a
// [ServiceCredential] shared by all components; [TokenManager] is the only
// writer. Staleness is detected reactively: nothing watches token expiry,
// and a 401 from any downstream service triggers validation and, when the
// token really is invalid, a refetch.
//
// # Outbound calls
//
// [Caller] wraps outbound HTTP calls. It injects the current service token
// into the X-Service-Token header, retries exactly once after a 401 caused
// by a stale token, and converts transport failures into synthetic
// status-400 responses so that network errors never surface as Go errors
// to gateway code.
//
// # Proxy tokens
//
// [TokenProxy] exchanges a caller's bearer credential for a long-lived
// proxy authorization token and short-lived proxy access tokens, persisting
// the former through a [tokenstore.Store]. See that package for the
// persistence contract.
//
// # Usage
//
//	cred := iam.NewServiceCredential(secret)
//	manager := iam.NewTokenManager(cfg, cred)
//	if err := manager.FetchServiceToken(ctx, ""); err != nil {
//	    return err
//	}
//	caller := iam.NewCaller(cfg, cred, manager)
//	resp, err := caller.Get(ctx, cfg.BaseURL+"/auth-user/api/user/42", nil, nil)
package iam
