package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/and161185/shopverse/internal/convert"
	"github.com/and161185/shopverse/internal/errs"
	"github.com/and161185/shopverse/internal/model"
)

type cartEnvelope struct {
	Cart *[]convert.WireLine `json:"cart"`
}

func (e cartEnvelope) decode() (model.Cart, bool, error) {
	if e.Cart == nil {
		return nil, false, nil
	}
	c, err := convert.CartFromWire(*e.Cart)
	if err != nil {
		return nil, false, fmt.Errorf("cart response: %w", err)
	}
	return c, true, nil
}

func itemPath(productID string) string {
	return "/cart/" + url.PathEscape(productID)
}

// FetchCart returns the server cart. A response without a cart is an empty cart.
func (c *Client) FetchCart(ctx context.Context) (model.Cart, error) {
	var env cartEnvelope
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &env); err != nil {
		return nil, err
	}
	cart, _, err := env.decode()
	if cart == nil && err == nil {
		cart = model.Cart{}
	}
	return cart, err
}

// AddToCart posts one line and returns the resulting server cart.
func (c *Client) AddToCart(ctx context.Context, productID, vendorID string, quantity int) (model.Cart, error) {
	if quantity < 1 {
		return nil, errs.ErrInvalidQuantity
	}
	body := struct {
		ProductID string `json:"productId"`
		VendorID  string `json:"vendorId,omitempty"`
		Quantity  int    `json:"quantity"`
	}{productID, vendorID, quantity}

	var env cartEnvelope
	if err := c.do(ctx, http.MethodPost, "/cart/add", body, &env); err != nil {
		return nil, err
	}
	cart, ok, err := env.decode()
	if err == nil && !ok {
		err = fmt.Errorf("cart response: missing cart")
	}
	return cart, err
}

// UpdateCartItem sets the quantity of one line. ok reports whether the server sent the cart back.
func (c *Client) UpdateCartItem(ctx context.Context, productID string, quantity int) (model.Cart, bool, error) {
	body := struct {
		Quantity int `json:"quantity"`
	}{quantity}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPut, itemPath(productID), body, &raw); err != nil {
		return nil, false, err
	}
	if isNullJSON(raw) {
		return nil, false, nil
	}
	var env cartEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false, fmt.Errorf("cart response: %w", err)
	}
	return env.decode()
}

// RemoveCartItem deletes one line and returns the resulting server cart.
func (c *Client) RemoveCartItem(ctx context.Context, productID string) (model.Cart, error) {
	var env cartEnvelope
	if err := c.do(ctx, http.MethodDelete, itemPath(productID), nil, &env); err != nil {
		return nil, err
	}
	cart, ok, err := env.decode()
	if err == nil && !ok {
		err = fmt.Errorf("cart response: missing cart")
	}
	return cart, err
}

// ClearCart empties the server cart.
func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/cart", nil, nil)
}
