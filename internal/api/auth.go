package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/and161185/shopverse/internal/convert"
	"github.com/and161185/shopverse/internal/errs"
	"github.com/and161185/shopverse/internal/model"
	"github.com/and161185/shopverse/internal/repository"
)

type route struct {
	login    string
	register string
	envelope string
}

var authRoutes = map[model.Role]route{
	model.RoleUser:   {login: "/auth/login", register: "/auth/register", envelope: "user"},
	model.RoleSeller: {login: "/seller/login", register: "/seller/register", envelope: "seller"},
	model.RoleAdmin:  {login: "/admin/login", register: "/admin/register", envelope: "admin"},
}

// authEnvelope is {"<role>": {...}, "token": "..."}.
type authEnvelope map[string]json.RawMessage

func (e authEnvelope) decode(key string) (model.Identity, string, error) {
	var token string
	if raw, ok := e["token"]; ok && !isNullJSON(raw) {
		if err := json.Unmarshal(raw, &token); err != nil {
			return nil, "", fmt.Errorf("token: %w", err)
		}
	}
	id, err := convert.IdentityFromWire(e[key])
	if err != nil {
		return nil, "", err
	}
	return id, token, nil
}

func isNullJSON(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// Login posts credentials to the role's login endpoint.
func (c *Client) Login(ctx context.Context, role model.Role, cred repository.Credentials) (model.Identity, string, error) {
	r, ok := authRoutes[role]
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", errs.ErrInvalidRole, role)
	}
	var env authEnvelope
	if err := c.do(ctx, http.MethodPost, r.login, cred, &env); err != nil {
		return nil, "", err
	}
	id, token, err := env.decode(r.envelope)
	if err != nil {
		return nil, "", fmt.Errorf("login response: %w", err)
	}
	if token == "" {
		return nil, "", fmt.Errorf("login response: missing token")
	}
	return id, token, nil
}

// Register posts a registration. Customers get no session back and must log in.
func (c *Client) Register(ctx context.Context, role model.Role, reg repository.Registration) (model.Identity, string, error) {
	r, ok := authRoutes[role]
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", errs.ErrInvalidRole, role)
	}
	if role != model.RoleSeller {
		reg.ShopName = ""
	}
	var env authEnvelope
	if err := c.do(ctx, http.MethodPost, r.register, reg, &env); err != nil {
		return nil, "", err
	}
	id, token, err := env.decode(r.envelope)
	if err != nil {
		return nil, "", fmt.Errorf("register response: %w", err)
	}
	return id, token, nil
}
