// Package rbac decides which role may call which route. Policies are casbin
// rules over request paths and HTTP methods.
package rbac

import (
	"fmt"
	"log/slog"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/simp-lee/pressdesk/internal/domain"
)

// modelText matches paths with keyMatch2 and methods with a regex. A deny
// rule overrides any allow.
const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act, eft

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow)) && !some(where (p.eft == deny))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && (p.act == "*" || regexMatch(r.act, p.act))
`

const (
	readOnly  = "^(GET|HEAD)$"
	readWrite = "^(GET|HEAD|POST|PUT|PATCH)$"
)

// DefaultPolicy is used when no policy file is configured.
//
//   - super_admin and admin may do anything
//   - editor may read and write records but not delete them, and may not
//     manage users
//   - viewer may only read
//
// Everyone signed in may open the dashboard and end their session.
func DefaultPolicy() [][]string {
	p := [][]string{
		{string(domain.RoleEditor), "/", readOnly, "allow"},
		{string(domain.RoleViewer), "/", readOnly, "allow"},
		{string(domain.RoleEditor), "/api/v1/auth/logout", "^POST$", "allow"},
		{string(domain.RoleViewer), "/api/v1/auth/logout", "^POST$", "allow"},
	}
	for _, prefix := range []string{"/api/v1", "/admin"} {
		p = append(p,
			[]string{string(domain.RoleEditor), prefix + "/*", readWrite, "allow"},
			[]string{string(domain.RoleEditor), prefix + "/users", "*", "deny"},
			[]string{string(domain.RoleEditor), prefix + "/users/*", "*", "deny"},
			[]string{string(domain.RoleViewer), prefix + "/*", readOnly, "allow"},
			[]string{string(domain.RoleViewer), prefix + "/users", "*", "deny"},
			[]string{string(domain.RoleViewer), prefix + "/users/*", "*", "deny"},
		)
	}
	p = append(p,
		[]string{string(domain.RoleAdmin), "/*", "*", "allow"},
		[]string{string(domain.RoleSuperAdmin), "/*", "*", "allow"},
	)
	return p
}

// Enforcer answers access questions.
type Enforcer struct {
	e *casbin.SyncedEnforcer
}

// New builds an Enforcer. With an empty policyPath the DefaultPolicy is
// loaded; otherwise policies come from the CSV file at policyPath.
func New(policyPath string) (*Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("rbac: parse model: %w", err)
	}

	if policyPath != "" {
		e, err := casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(policyPath))
		if err != nil {
			return nil, fmt.Errorf("rbac: load policy %s: %w", policyPath, err)
		}
		return &Enforcer{e: e}, nil
	}

	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("rbac: create enforcer: %w", err)
	}
	if _, err := e.AddPolicies(DefaultPolicy()); err != nil {
		return nil, fmt.Errorf("rbac: add default policy: %w", err)
	}
	return &Enforcer{e: e}, nil
}

// Allowed reports whether role may call method on path. Evaluation errors
// deny.
func (e *Enforcer) Allowed(role domain.Role, path, method string) bool {
	ok, err := e.e.Enforce(string(role), path, method)
	if err != nil {
		slog.Error("rbac: enforce failed", "role", role, "path", path, "method", method, "error", err)
		return false
	}
	return ok
}
