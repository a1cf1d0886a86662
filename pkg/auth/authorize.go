package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/Halderpritam123/go-common/pkg/iam"
)

// userDirectory is the slice of the IAM client the gateway needs: the
// v2 user-detail lookup used to enrich a resolved principal.
type userDirectory interface {
	GetUserDetails(ctx context.Context, userID, authToken string) (iam.UserInfo, error)
}

var _ userDirectory = (*iam.Client)(nil)

// authorizationRequest is the decision payload POSTed to the IAM
// authorization endpoint. The nested request snapshot mirrors the
// servlet-style request description the endpoint expects.
type authorizationRequest struct {
	ApplicationName string          `json:"applicationName"`
	RequestPath     string          `json:"requestPath"`
	Method          string          `json:"method"`
	NameSpace       string          `json:"nameSpace"`
	Request         requestSnapshot `json:"request"`
	AuthToken       string          `json:"authToken"`
	ServiceToken    string          `json:"serviceToken"`
	OrgID           string          `json:"orgId"`
	ProjectID       string          `json:"projectId"`
}

type requestSnapshot struct {
	ContextPath string `json:"contextPath"`

	// Headers carries every inbound header, multi-valued, so the
	// authorization service sees exactly what the gateway saw.
	Headers map[string][]string `json:"headers"`

	Method         string `json:"method"`
	PathInfo       string `json:"pathInfo"`
	PathTranslated string `json:"pathTranslated"`
	QueryString    string `json:"queryString"`
	RequestURI     string `json:"requestURI"`
	RequestURL     string `json:"requestURL"`
	ServletPath    string `json:"servletPath"`
}

type authorizationResponse struct {
	RequestPrincipal struct {
		PrincipalList []principal `json:"principalList"`
	} `json:"requestPrincipal"`
}

type principal struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// principalTypeUser is the principal type resolved to the acting user.
const principalTypeUser = "User"

// Gateway is the single-step authorization middleware. Each inbound
// request is classified in order:
//
//  1. Exempt path: served untouched, no identity attached.
//  2. Trusted internal path: an X-Username header alone identifies the
//     caller; no remote call is made.
//  3. Everything else: the request is described to the IAM authorization
//     endpoint, the first User principal of the decision becomes the
//     acting user, and the identity is enriched with user details before
//     the handler runs.
//
// Rejections and internal failures both answer with
// {message: "Request failed during authorization.", success:false} —
// rejections keep the upstream status code, failures use 500.
type Gateway struct {
	cfg    iam.Config
	caller *iam.Caller
	users  userDirectory
	logger *slog.Logger
}

// NewGateway creates a Gateway dispatching decisions through caller and
// enriching identities through users.
func NewGateway(cfg iam.Config, caller *iam.Caller, users userDirectory) *Gateway {
	return &Gateway{
		cfg:    cfg,
		caller: caller,
		users:  users,
		logger: slog.Default(),
	}
}

// Middleware wraps next with the authorization state machine.
func (g *Gateway) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsExemptPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := ContextWithRequestID(r.Context(), uuid.NewString())
		r = r.WithContext(ctx)

		if IsInternalPath(r.URL.Path) {
			// Header-only trust: the internal namespace is reachable only
			// from inside the mesh, so X-Username stands in for the user.
			if username := r.Header.Get(iam.HeaderUsername); username != "" {
				identity := Identity{
					OrgID:     r.Header.Get(iam.HeaderOrgID),
					ProjectID: r.Header.Get(iam.HeaderProjectID),
					UserID:    username,
					Username:  username,
				}
				r = r.WithContext(ContextWithIdentity(ctx, identity))
			}
			next.ServeHTTP(w, r)
			return
		}

		identity, errStatus := g.decide(ctx, r)
		if errStatus != 0 {
			writeFailure(w, errStatus, msgAuthorizationFailed)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(ctx, identity)))
	})
}

// decide runs the full authorization flow for one request. It returns the
// resolved identity, or a zero identity and the HTTP status to reject
// with. A rejection keeps the authorization endpoint's status; every
// internal failure maps to 500.
func (g *Gateway) decide(ctx context.Context, r *http.Request) (Identity, int) {
	token := r.Header.Get("Authorization")
	orgID := r.Header.Get(iam.HeaderOrgID)
	projectID := r.Header.Get(iam.HeaderProjectID)

	payload := authorizationRequest{
		ApplicationName: g.cfg.ServiceName,
		RequestPath:     r.URL.Path,
		Method:          r.Method,
		NameSpace:       g.cfg.NameSpace,
		Request:         g.snapshot(r),
		AuthToken:       token,
		ServiceToken:    r.Header.Get(iam.HeaderServiceToken),
		OrgID:           orgID,
		ProjectID:       projectID,
	}

	headers := http.Header{}
	headers.Set("Authorization", token)
	headers.Set(iam.HeaderOrgID, orgID)
	headers.Set(iam.HeaderProjectID, projectID)

	resp, err := g.caller.Post(ctx, g.cfg.BaseURL+iam.AuthorizationPath, payload, nil, headers)
	if err != nil {
		g.logger.ErrorContext(ctx, "authorization dispatch failed",
			"path", r.URL.Path, "error", err)
		return Identity{}, http.StatusInternalServerError
	}
	if resp.StatusCode != http.StatusOK {
		g.logger.WarnContext(ctx, "authorization rejected",
			"path", r.URL.Path, "method", r.Method, "status", resp.StatusCode)
		return Identity{}, resp.StatusCode
	}

	var decision authorizationResponse
	if err := resp.Decode(&decision); err != nil {
		g.logger.ErrorContext(ctx, "authorization response is not valid JSON",
			"path", r.URL.Path, "error", err)
		return Identity{}, http.StatusInternalServerError
	}

	// First User principal wins; a decision with none leaves the user id
	// empty and the enrichment below fails the request.
	var userID string
	for _, p := range decision.RequestPrincipal.PrincipalList {
		if p.Type == principalTypeUser {
			userID = p.ID
			break
		}
	}

	identity := Identity{
		OrgID:     orgID,
		ProjectID: projectID,
		Token:     token,
		UserID:    userID,
	}

	info, err := g.users.GetUserDetails(ctx, userID, token)
	if err != nil {
		g.logger.ErrorContext(ctx, "user detail enrichment failed",
			"userId", userID, "error", err)
		return Identity{}, http.StatusInternalServerError
	}
	identity.Username = info.Username
	identity.Email = info.Email
	identity.FullName = info.FullName()

	return identity, 0
}

// snapshot captures the inbound request in the servlet-style shape the
// authorization endpoint expects.
func (g *Gateway) snapshot(r *http.Request) requestSnapshot {
	path := r.URL.Path
	return requestSnapshot{
		ContextPath:    g.cfg.BaseURL,
		Headers:        map[string][]string(r.Header),
		Method:         r.Method,
		PathInfo:       path,
		PathTranslated: "/" + path,
		QueryString:    r.URL.RawQuery,
		RequestURI:     requestRoot(r),
		RequestURL:     requestURL(r),
		ServletPath:    path,
	}
}

// requestRoot reconstructs the scheme://host/ root of the inbound request.
func requestRoot(r *http.Request) string {
	return requestScheme(r) + "://" + r.Host + "/"
}

// requestURL reconstructs the full inbound URL.
func requestURL(r *http.Request) string {
	return requestScheme(r) + "://" + r.Host + r.URL.RequestURI()
}

func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
