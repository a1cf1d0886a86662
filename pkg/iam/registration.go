package iam

import (
	"context"
	"net/http"
	"strings"

	dmerr "github.com/Halderpritam123/go-common/pkg/errors"
)

// Action describes one registrable route of a service. Actions are derived
// from the serving framework's route table at startup and sent to IAM in a
// one-shot registration call; they are never persisted locally.
type Action struct {
	NameSpace    string `json:"nameSpace"`
	ResourceName string `json:"resourceName"`
	Path         string `json:"path"`
	ActionName   string `json:"actionName"`
	Method       string `json:"method"`
	IsRegistered bool   `json:"isRegistered"`
}

// Route is a framework-agnostic route table entry used to build Actions.
type Route struct {
	// Method is the HTTP method the route serves.
	Method string

	// Path is the route pattern. Angle-bracket placeholders ("<id>") are
	// translated to the brace form IAM expects ("{id}").
	Path string

	// Name is the route's handler name, used as the action name.
	Name string
}

// registrationRequest is the body of the service registration POST.
type registrationRequest struct {
	Application registrationApplication `json:"application"`
	Actions     []Action                `json:"actions"`
}

type registrationApplication struct {
	NameSpace    string `json:"nameSpace"`
	ResourceName string `json:"resourceName"`
	IsRegistered bool   `json:"isRegistered"`
}

// placeholderReplacer rewrites angle-bracket route placeholders to the
// brace form of the IAM registration contract.
var placeholderReplacer = strings.NewReplacer("<", "{", ">", "}")

// ActionsFromRoutes converts a route table into registrable Actions.
// Health-check and static-asset routes are skipped, as are HEAD and
// OPTIONS entries, matching what IAM expects a service to register.
func (c *Client) ActionsFromRoutes(routes []Route) []Action {
	actions := make([]Action, 0, len(routes))
	for _, r := range routes {
		switch r.Name {
		case "health", "static":
			continue
		}
		switch strings.ToUpper(r.Method) {
		case http.MethodHead, http.MethodOptions:
			continue
		}
		actions = append(actions, Action{
			NameSpace:    c.cfg.NameSpace,
			ResourceName: c.cfg.ServiceName,
			Path:         placeholderReplacer.Replace(r.Path),
			ActionName:   r.Name,
			Method:       strings.ToUpper(r.Method),
			IsRegistered: true,
		})
	}
	return actions
}

// RegisterService registers the service and its routes with IAM. Called
// once at startup, after the first service token has been fetched.
//
// Error codes returned:
//   - [dmerr.CodeTokenRegistration]: non-200 from the registration endpoint
func (c *Client) RegisterService(ctx context.Context, actions []Action) error {
	body := registrationRequest{
		Application: registrationApplication{
			NameSpace:    c.cfg.NameSpace,
			ResourceName: c.cfg.ServiceName,
			IsRegistered: true,
		},
		Actions: actions,
	}

	resp, err := c.caller.Post(ctx, c.cfg.BaseURL+RegistrationPath, body, nil, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.ErrorContext(ctx, "service registration failed",
			"service", c.cfg.ServiceName, "status", resp.StatusCode)
		return dmerr.Newf(dmerr.CodeTokenRegistration,
			"iam: failed to register service %q: status %d", c.cfg.ServiceName, resp.StatusCode)
	}

	c.logger.InfoContext(ctx, "service registered",
		"service", c.cfg.ServiceName, "actions", len(actions))
	return nil
}
