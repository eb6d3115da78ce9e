package guard

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/shopverse/internal/model"
)

func session(role model.Role) model.Session {
	return model.Session{Identity: model.Identity{"_id": "x"}, Role: role, Token: "t"}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()
	guest := model.GuestSession()
	cases := []struct {
		name     string
		required model.Role
		snap     Snapshot
		want     Decision
	}{
		{"pending before init", model.RoleAdmin, Snapshot{Session: session(model.RoleAdmin)}, Decision{Outcome: Pending}},
		{"pending even as guest", "", Snapshot{Session: guest}, Decision{Outcome: Pending}},
		{"admin route as seller", model.RoleAdmin, Snapshot{Ready: true, Session: session(model.RoleSeller)},
			Decision{Outcome: Redirect, Path: "/", Notice: "Access denied. Only admins can access this page."}},
		{"admin route as guest", model.RoleAdmin, Snapshot{Ready: true, Session: guest}, Decision{Outcome: Redirect, Path: "/admin/login"}},
		{"seller route as guest", model.RoleSeller, Snapshot{Ready: true, Session: guest}, Decision{Outcome: Redirect, Path: "/seller/login"}},
		{"user route as guest", model.RoleUser, Snapshot{Ready: true, Session: guest}, Decision{Outcome: Redirect, Path: "/login"}},
		{"any route as guest", "", Snapshot{Ready: true, Session: guest}, Decision{Outcome: Redirect, Path: "/login"}},
		{"any route as user", "", Snapshot{Ready: true, Session: session(model.RoleUser)}, Decision{Outcome: Allow}},
		{"any route as seller", "", Snapshot{Ready: true, Session: session(model.RoleSeller)}, Decision{Outcome: Allow}},
		{"seller route as seller", model.RoleSeller, Snapshot{Ready: true, Session: session(model.RoleSeller)}, Decision{Outcome: Allow}},
		{"user route as admin", model.RoleUser, Snapshot{Ready: true, Session: session(model.RoleAdmin)},
			Decision{Outcome: Redirect, Path: "/", Notice: "Access denied. Only users can access this page."}},
		{"half session is no session", model.RoleUser, Snapshot{Ready: true, Session: model.Session{Role: model.RoleUser, Token: "t"}},
			Decision{Outcome: Redirect, Path: "/login"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, Evaluate(c.required, c.snap))
		})
	}
}

func TestOutcomeString(t *testing.T) {
	if Allow.String() != "allow" || Pending.String() != "pending" || Redirect.String() != "redirect" {
		t.Fatalf("unexpected outcome names")
	}
	if Outcome(9).String() != "outcome(9)" {
		t.Fatalf("unexpected fallback: %s", Outcome(9))
	}
}
