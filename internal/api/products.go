package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/and161185/shopverse/internal/convert"
	"github.com/and161185/shopverse/internal/model"
)

// GetProduct fetches one catalog product. The backend answers either with the
// product itself or with {"product": {...}}.
func (c *Client) GetProduct(ctx context.Context, id string) (model.ProductRef, error) {
	var raw map[string]json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &raw); err != nil {
		return model.ProductRef{}, err
	}
	body, _ := json.Marshal(raw)
	if inner, ok := raw["product"]; ok {
		body = inner
	}
	var wp convert.WireProduct
	if err := json.Unmarshal(body, &wp); err != nil {
		return model.ProductRef{}, err
	}
	return convert.ProductFromWire(wp)
}
