// Package guard decides whether navigation to a role-scoped route may proceed.
package guard

import (
	"fmt"

	"github.com/and161185/shopverse/internal/model"
)

// Outcome is the kind of Decision.
type Outcome int

const (
	// Pending means the session has not finished initializing; show a neutral state.
	Pending Outcome = iota
	// Allow means the protected content may render.
	Allow
	// Redirect means navigate to Decision.Path.
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Decision is the guard's answer. Notice is set for a role mismatch.
type Decision struct {
	Outcome Outcome
	Path    string
	Notice  string
}

// Snapshot is the session state the guard reads.
type Snapshot struct {
	Ready   bool
	Session model.Session
}

var loginPaths = map[model.Role]string{
	model.RoleAdmin:  "/admin/login",
	model.RoleSeller: "/seller/login",
}

// LoginPath is where an unauthenticated visitor of a route requiring role is sent.
func LoginPath(required model.Role) string {
	if p, ok := loginPaths[required]; ok {
		return p
	}
	return "/login"
}

// Evaluate decides a navigation. An empty required role accepts any signed-in principal.
func Evaluate(required model.Role, snap Snapshot) Decision {
	if !snap.Ready {
		return Decision{Outcome: Pending}
	}
	if !snap.Session.Authenticated() {
		return Decision{Outcome: Redirect, Path: LoginPath(required)}
	}
	if required != "" && snap.Session.Role != required {
		return Decision{
			Outcome: Redirect,
			Path:    "/",
			Notice:  fmt.Sprintf("Access denied. Only %ss can access this page.", required),
		}
	}
	return Decision{Outcome: Allow}
}
