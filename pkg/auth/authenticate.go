package auth

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/Halderpritam123/go-common/pkg/iam"
)

// tokenValidateResponse is the 200 body of the token-validate endpoint.
type tokenValidateResponse struct {
	Payload struct {
		UserID    string `json:"userId"`
		Username  string `json:"username"`
		EmailID   string `json:"emailId"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"payload"`
}

// routeAuthzRequest is the body of the route-authorization check. Role
// ids are resolved server-side and always sent as null.
type routeAuthzRequest struct {
	APIRoute            string       `json:"apiRoute"`
	APIMethod           string       `json:"apiMethod"`
	OrgDetails          scopeDetails `json:"orgDetails"`
	ProjectLevelDetails scopeDetails `json:"projectLevelDetails"`
}

type scopeDetails struct {
	OrgID     string  `json:"orgId,omitempty"`
	ProjectID string  `json:"projectId,omitempty"`
	RoleID    *string `json:"roleId"`
}

type routeAuthzResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// AuthnGateway is the two-stage pipeline used by integrations that
// authenticate and authorize as distinct steps. [AuthnGateway.Authenticate]
// validates the bearer token and attaches a provisional identity (no org
// or project yet); [AuthnGateway.Authorize] requires the org/project
// headers, merges them in, and checks the route against the caller's
// grants. Both stages skip exempt paths independently.
type AuthnGateway struct {
	cfg    iam.Config
	caller *iam.Caller
	logger *slog.Logger
}

// NewAuthnGateway creates an AuthnGateway dispatching through caller.
func NewAuthnGateway(cfg iam.Config, caller *iam.Caller) *AuthnGateway {
	return &AuthnGateway{
		cfg:    cfg,
		caller: caller,
		logger: slog.Default(),
	}
}

// Authenticate wraps next with bearer-token validation. A missing
// Authorization header answers 401 immediately, with no outbound call.
// A rejected token answers 401 carrying the upstream response text.
func (g *AuthnGateway) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsExemptPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := ContextWithRequestID(r.Context(), uuid.NewString())

		token := r.Header.Get("Authorization")
		if token == "" {
			g.logger.DebugContext(ctx, "authentication token is missing",
				"path", r.URL.Path)
			writeFailure(w, http.StatusUnauthorized, msgTokenMissing)
			return
		}

		headers := http.Header{}
		headers.Set("Authorization", token)

		resp, err := g.caller.Get(ctx, g.cfg.BaseURL+iam.TokenValidatePath, nil, headers)
		if err != nil {
			g.logger.ErrorContext(ctx, "authentication dispatch failed", "error", err)
			writeFailure(w, http.StatusInternalServerError, msgAuthenticationFailed)
			return
		}
		if resp.StatusCode != http.StatusOK {
			g.logger.WarnContext(ctx, "authentication rejected",
				"path", r.URL.Path, "status", resp.StatusCode)
			writeFailure(w, http.StatusUnauthorized, string(resp.Body))
			return
		}

		var validated tokenValidateResponse
		if err := resp.Decode(&validated); err != nil {
			g.logger.ErrorContext(ctx, "token-validate response is not valid JSON", "error", err)
			writeFailure(w, http.StatusInternalServerError, msgAuthenticationFailed)
			return
		}

		identity := Identity{
			Token:    token,
			UserID:   validated.Payload.UserID,
			Username: validated.Payload.Username,
			Email:    validated.Payload.EmailID,
			FullName: validated.Payload.FirstName + " " + validated.Payload.LastName,
		}
		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(ctx, identity)))
	})
}

// Authorize wraps next with the route-authorization check. It expects to
// run after [AuthnGateway.Authenticate] so a provisional identity is
// already on the context. Missing X-Org-Id/X-Project-Id headers answer
// 403 with no outbound call; a rejected route answers 403 carrying the
// upstream message.
func (g *AuthnGateway) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsExemptPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		orgID := r.Header.Get(iam.HeaderOrgID)
		projectID := r.Header.Get(iam.HeaderProjectID)
		if orgID == "" || projectID == "" {
			g.logger.DebugContext(ctx, "authorization headers are missing",
				"path", r.URL.Path)
			writeFailure(w, http.StatusForbidden, msgHeadersMissing)
			return
		}

		identity, _ := IdentityFromContext(ctx)
		identity.OrgID = orgID
		identity.ProjectID = projectID

		payload := routeAuthzRequest{
			APIRoute:            r.URL.Path,
			APIMethod:           r.Method,
			OrgDetails:          scopeDetails{OrgID: orgID},
			ProjectLevelDetails: scopeDetails{ProjectID: projectID},
		}
		headers := http.Header{}
		headers.Set("Authorization", identity.Token)

		resp, err := g.caller.Post(ctx, g.cfg.BaseURL+iam.AuthorizeRoutePath, payload, nil, headers)
		if err != nil {
			g.logger.ErrorContext(ctx, "route authorization dispatch failed", "error", err)
			writeFailure(w, http.StatusInternalServerError, msgAuthorizationFailed)
			return
		}

		var decision routeAuthzResponse
		if err := resp.Decode(&decision); err != nil {
			g.logger.ErrorContext(ctx, "authorize-route response is not valid JSON",
				"status", resp.StatusCode, "error", err)
			writeFailure(w, http.StatusInternalServerError, msgAuthorizationFailed)
			return
		}

		if resp.StatusCode != http.StatusOK || !decision.Success {
			message := decision.Message
			if message == "" {
				message = string(resp.Body)
			}
			g.logger.WarnContext(ctx, "route authorization rejected",
				"path", r.URL.Path, "method", r.Method,
				"status", resp.StatusCode, "message", message)
			writeFailure(w, http.StatusForbidden, message)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(ctx, identity)))
	})
}
