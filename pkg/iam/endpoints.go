package iam

import (
	"fmt"

	"github.com/Halderpritam123/go-common/pkg/config"
	dmerr "github.com/Halderpritam123/go-common/pkg/errors"
)

// IAM and auth service endpoint paths, relative to [Config.BaseURL].
const (
	// ServiceTokenPath issues service tokens. The trailing slash is part
	// of the upstream contract and distinguishes this endpoint from
	// [ProxyTokenPath].
	ServiceTokenPath = "/iam/v2/authentication/"

	// ProxyTokenPath exchanges credentials for proxy tokens.
	ProxyTokenPath = "/iam/v2/authentication"

	// TokenValidationPath validates the current service token.
	TokenValidationPath = "/iam/v2/authorization/token/validation"

	// AuthorizationPath is the full-flow authorization decision endpoint.
	AuthorizationPath = "/iam/v2/authorization"

	// UserDetailV2Path is the v2 user-detail lookup; append the user id.
	UserDetailV2Path = "/iam/v2/mgmt/user/id/"

	// RegistrationPath registers a service and its routes with IAM.
	RegistrationPath = "/iam/v2/mgmt/application/registration"

	// TokenValidatePath validates an end-user bearer token.
	TokenValidatePath = "/auth/api/token/validate"

	// AuthorizeRoutePath is the per-route authorization check used by the
	// two-stage authentication flow.
	AuthorizeRoutePath = "/auth-user/api/authorize-route"

	// InternalTokenPath mints user tokens for service-initiated work.
	InternalTokenPath = "/auth/api/internal-token"

	// UserDetailV1Path is the v1 user-detail lookup; append the user id.
	UserDetailV1Path = "/auth-user/api/user/"
)

// Header names used by the platform's identity contract.
const (
	// HeaderServiceToken carries the service-to-service token.
	HeaderServiceToken = "X-Service-Token"

	// HeaderOrgID and HeaderProjectID scope a request to a tenant.
	HeaderOrgID     = "X-Org-Id"
	HeaderProjectID = "X-Project-Id"

	// HeaderUsername identifies trusted internal callers on header-only
	// paths.
	HeaderUsername = "X-Username"

	// HeaderSecret authenticates internal token generation. Lowercase is
	// part of the upstream contract.
	HeaderSecret = "x-secret"
)

// Config holds the settings shared by the package's clients. Values come
// from the environment or the bootstrap config object (see
// [config.Source]).
type Config struct {
	// BaseURL is the platform gateway base URL all IAM and auth endpoint
	// paths are appended to (e.g. "https://gw.platform.internal").
	// Environment variable: PLATFORM_BASE_ROUTE_URI
	BaseURL string `json:"base_url" env:"PLATFORM_BASE_ROUTE_URI" required:"true"`

	// NameSpace is the platform namespace the service belongs to.
	// Environment variable: PLATFORM_NAME_SPACE
	NameSpace string `json:"name_space" env:"PLATFORM_NAME_SPACE" required:"true"`

	// ServiceName is the registered application name of this service.
	// Environment variable: PLATFORM_SERVICE_NAME
	ServiceName string `json:"service_name" env:"PLATFORM_SERVICE_NAME" required:"true"`
}

// Validate implements [config.Validator].
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return dmerr.Configuration("iam: base URL must not be empty")
	}
	if c.NameSpace == "" {
		return dmerr.Configuration("iam: namespace must not be empty")
	}
	if c.ServiceName == "" {
		return dmerr.Configuration("iam: service name must not be empty")
	}
	return nil
}

// Compile-time interface compliance check.
var _ config.Validator = (*Config)(nil)

// serviceTokenRequest is the body of the service-token issuance POST.
type serviceTokenRequest struct {
	NameSpace         string `json:"nameSpace"`
	ApplicationName   string `json:"applicationName"`
	ApplicationSecret string `json:"applicationSecret"`
}

// tokenResponse is the body returned by the token issuance and exchange
// endpoints. Message is populated on failures.
type tokenResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// exchangeRequest is the body of the proxy-token exchange POST. Exactly one
// of AuthToken and ProxyAuthorizationToken is set per call.
type exchangeRequest struct {
	ServiceToken            string `json:"serviceToken"`
	AuthToken               string `json:"authToken,omitempty"`
	ProxyAuthorizationToken string `json:"proxyAuthorizationToken,omitempty"`
}

// internalTokenResponse is the body returned by [InternalTokenPath].
type internalTokenResponse struct {
	Payload struct {
		Token string `json:"token"`
	} `json:"payload"`
}

// UserInfo is the user record returned by the user-detail endpoints.
type UserInfo struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// FullName joins the first and last name the way the platform's UIs display
// them.
func (u UserInfo) FullName() string {
	return fmt.Sprintf("%s %s", u.FirstName, u.LastName)
}
