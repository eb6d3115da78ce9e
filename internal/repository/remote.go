// Package repository defines the remote source-of-truth interfaces the services depend on.
// The REST client in internal/api implements all of them.
package repository

import (
	"context"

	"github.com/and161185/shopverse/internal/model"
)

// Credentials is what a login form submits.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is what a registration form submits. ShopName is seller-only.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	ShopName string `json:"shopName,omitempty"`
}

// Bearer arms and disarms the credential attached to every outbound request.
type Bearer interface {
	// SetBearer attaches token to all future requests.
	SetBearer(token string)
	// ClearBearer stops attaching a credential.
	ClearBearer()
}

// AuthRemote issues sessions.
type AuthRemote interface {
	// Login exchanges credentials for an identity and a bearer token.
	Login(ctx context.Context, role model.Role, c Credentials) (model.Identity, string, error)
	// Register creates an account. The token is empty when the role does not
	// issue a session on registration.
	Register(ctx context.Context, role model.Role, r Registration) (model.Identity, string, error)
}

// ProfileRemote reads and writes the principal's profile.
type ProfileRemote interface {
	// Whoami fetches the role-specific profile of the current principal.
	Whoami(ctx context.Context, role model.Role) (model.Identity, error)
	// UpdateProfile writes patch and returns the server's identity.
	UpdateProfile(ctx context.Context, role model.Role, patch model.Identity) (model.Identity, error)
}

// CartRemote is the server-owned cart of the authenticated principal.
type CartRemote interface {
	// FetchCart returns the full server cart.
	FetchCart(ctx context.Context) (model.Cart, error)
	// AddToCart adds quantity of productID and returns the full server cart.
	AddToCart(ctx context.Context, productID, vendorID string, quantity int) (model.Cart, error)
	// UpdateCartItem sets the quantity of productID. ok is false when the
	// server did not send the cart back.
	UpdateCartItem(ctx context.Context, productID string, quantity int) (cart model.Cart, ok bool, err error)
	// RemoveCartItem deletes productID and returns the full server cart.
	RemoveCartItem(ctx context.Context, productID string) (model.Cart, error)
	// ClearCart empties the server cart.
	ClearCart(ctx context.Context) error
}

// CatalogRemote reads public catalog data.
type CatalogRemote interface {
	// GetProduct returns the product by id.
	GetProduct(ctx context.Context, id string) (model.ProductRef, error)
}
