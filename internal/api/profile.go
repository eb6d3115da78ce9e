package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/and161185/shopverse/internal/convert"
	"github.com/and161185/shopverse/internal/errs"
	"github.com/and161185/shopverse/internal/model"
)

var (
	profileRead = map[model.Role]string{
		model.RoleUser:   "/users/profile",
		model.RoleSeller: "/profile/seller",
		model.RoleAdmin:  "/profile/admin",
	}
	profileWrite = map[model.Role]string{
		model.RoleUser:   "/users/profile",
		model.RoleSeller: "/seller/profile",
		model.RoleAdmin:  "/admin/profile",
	}
)

// Whoami fetches the current principal's profile. The body is the identity itself.
func (c *Client) Whoami(ctx context.Context, role model.Role) (model.Identity, error) {
	path, ok := profileRead[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrInvalidRole, role)
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return convert.IdentityFromWire(raw)
}

// UpdateProfile writes patch. The response wraps the identity under the role
// key; when it does not, the body itself is taken as the identity.
func (c *Client) UpdateProfile(ctx context.Context, role model.Role, patch model.Identity) (model.Identity, error) {
	path, ok := profileWrite[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrInvalidRole, role)
	}
	var env authEnvelope
	if err := c.do(ctx, http.MethodPut, path, patch, &env); err != nil {
		return nil, err
	}
	key := authRoutes[role].envelope
	if raw, ok := env[key]; ok {
		return convert.IdentityFromWire(raw)
	}
	out := model.Identity{}
	for k, v := range env {
		if k == "success" || k == "message" {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return nil, fmt.Errorf("profile response: %w", err)
		}
		out[k] = val
	}
	return out, nil
}
