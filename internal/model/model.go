// Package model defines domain entities shared by the session and cart services.
package model

import (
	"fmt"
	"strings"

	"github.com/and161185/shopverse/internal/errs"
)

// Role identifies the kind of principal behind a session.
type Role string

const (
	RoleGuest  Role = "guest"
	RoleUser   Role = "user"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// ParseRole maps user input to a Role. Empty input means RoleUser.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleUser:
		return RoleUser, nil
	case RoleSeller:
		return RoleSeller, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleGuest:
		return RoleGuest, nil
	}
	return "", fmt.Errorf("%w: %q", errs.ErrInvalidRole, s)
}

// CanSignIn reports whether the role can own an authenticated session.
func (r Role) CanSignIn() bool {
	return r == RoleUser || r == RoleSeller || r == RoleAdmin
}

// Identity is the opaque principal record returned by the backend.
// Known fields are exposed through accessors; everything else is carried as is.
type Identity map[string]any

func (i Identity) str(keys ...string) string {
	for _, k := range keys {
		if v, ok := i[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// ID returns the backend identifier (`_id`, falling back to `id`).
func (i Identity) ID() string { return i.str("_id", "id") }

// Name returns the display name.
func (i Identity) Name() string { return i.str("name", "username") }

// Email returns the e-mail address.
func (i Identity) Email() string { return i.str("email") }

// ProfileImage returns the avatar URL, if any.
func (i Identity) ProfileImage() string { return i.str("profileImage", "avatar") }

// ShopName returns the seller's shop name, if any.
func (i Identity) ShopName() string { return i.str("shopName") }

// Role returns the role recorded inside the identity itself (may be empty).
func (i Identity) Role() string { return i.str("role") }

// Clone returns a shallow copy.
func (i Identity) Clone() Identity {
	if i == nil {
		return nil
	}
	out := make(Identity, len(i))
	for k, v := range i {
		out[k] = v
	}
	return out
}

// Merge returns a shallow merge of patch over i. Neither input is modified.
func (i Identity) Merge(patch Identity) Identity {
	out := i.Clone()
	if out == nil {
		out = Identity{}
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Session is the active principal. The zero value is not valid; use GuestSession.
type Session struct {
	Identity Identity
	Role     Role
	Token    string
}

// GuestSession returns the unauthenticated session.
func GuestSession() Session { return Session{Role: RoleGuest} }

// Authenticated reports whether the session belongs to a signed-in principal.
func (s Session) Authenticated() bool {
	return s.Role.CanSignIn() && s.Token != "" && s.Identity != nil
}
