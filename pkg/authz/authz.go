// Package authz answers whether a backend session is privileged. Privileged
// sessions may edit the pid and sorting columns in batch edit mode.
package authz

import (
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
)

type Mode string

const (
	ModeEnforce  Mode = "enforce"
	ModeDisabled Mode = "disabled"
)

// Objects and actions checked by the backend.
const (
	ObjectBackend = "backend"
	ActionAdmin   = "admin"
	RoleAdmin     = "admin"
)

// DefaultModel is a role based model with key matching on objects.
const DefaultModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch(r.obj, p.obj) && r.act == p.act
`

// ParseMode validates a configured mode. Empty means enforce.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.TrimSpace(strings.ToLower(raw))) {
	case "", ModeEnforce:
		return ModeEnforce, nil
	case ModeDisabled:
		return ModeDisabled, nil
	default:
		return "", errors.New("authz: invalid mode (expected enforce|disabled)")
	}
}

type Authorizer struct {
	enforcer *casbin.Enforcer
	mode     Mode
}

// New loads the model at modelPath (DefaultModel when empty) and the
// policies at policyPath (none when empty).
func New(modelPath, policyPath string, mode Mode) (*Authorizer, error) {
	var (
		m   model.Model
		err error
	)
	if strings.TrimSpace(modelPath) == "" {
		m, err = model.NewModelFromString(DefaultModel)
	} else {
		m, err = model.NewModelFromFile(modelPath)
	}
	if err != nil {
		return nil, fmt.Errorf("authz: load model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("authz: enforcer: %w", err)
	}
	if strings.TrimSpace(policyPath) != "" {
		enforcer.SetAdapter(fileadapter.NewAdapter(policyPath))
		if err := enforcer.LoadPolicy(); err != nil {
			return nil, fmt.Errorf("authz: load policy: %w", err)
		}
	}
	return &Authorizer{enforcer: enforcer, mode: mode}, nil
}

// Subject maps a user name to a casbin subject.
func Subject(user string) string {
	user = strings.TrimSpace(strings.ToLower(user))
	if user == "" {
		user = "anonymous"
	}
	return "user:" + user
}

// Role maps a role name to a casbin subject.
func Role(name string) string {
	return "role:" + strings.TrimSpace(strings.ToLower(name))
}

// GrantAdmin assigns the admin role to user and makes sure the role holds
// the backend admin permission.
func (a *Authorizer) GrantAdmin(user string) error {
	if _, err := a.enforcer.AddPolicy(Role(RoleAdmin), ObjectBackend, ActionAdmin); err != nil {
		return fmt.Errorf("authz: add policy: %w", err)
	}
	if _, err := a.enforcer.AddGroupingPolicy(Subject(user), Role(RoleAdmin)); err != nil {
		return fmt.Errorf("authz: add role: %w", err)
	}
	return nil
}

// Authorize checks subject/object/action. A disabled authorizer allows
// everything.
func (a *Authorizer) Authorize(subject, object, action string) (bool, error) {
	if a == nil {
		return false, nil
	}
	if a.mode == ModeDisabled {
		return true, nil
	}
	ok, err := a.enforcer.Enforce(subject, object, action)
	if err != nil {
		return false, fmt.Errorf("authz: enforce: %w", err)
	}
	return ok, nil
}

// IsAdmin reports whether user holds the backend admin permission.
func (a *Authorizer) IsAdmin(user string) (bool, error) {
	return a.Authorize(Subject(user), ObjectBackend, ActionAdmin)
}
