// Package convert maps the backend's JSON shapes onto domain types.
package convert

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	model "github.com/and161185/shopverse/internal/model"
)

// --- wire shapes ---

// WireProduct is a catalog product as the backend serializes it.
// Vendor is either an id string or a populated vendor object.
type WireProduct struct {
	ID     string          `json:"_id"`
	AltID  string          `json:"id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Images []string        `json:"images"`
	Vendor json.RawMessage `json:"vendor"`
}

// WireLine is one cart line. Product is either populated or a bare id.
type WireLine struct {
	Product  json.RawMessage `json:"product"`
	VendorID string          `json:"vendorId"`
	Vendor   json.RawMessage `json:"vendor"`
	Quantity int             `json:"quantity"`
}

// --- helpers ---

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// RefID extracts an id from either `"abc"` or `{"_id":"abc"}` / `{"id":"abc"}`.
func RefID(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	t := bytes.TrimSpace(raw)
	switch t[0] {
	case '"':
		var s string
		if err := json.Unmarshal(t, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{':
		var obj struct {
			ID    string `json:"_id"`
			AltID string `json:"id"`
		}
		if err := json.Unmarshal(t, &obj); err != nil {
			return "", err
		}
		if obj.ID != "" {
			return obj.ID, nil
		}
		return obj.AltID, nil
	}
	return "", fmt.Errorf("unexpected reference %s", t)
}

// --- products ---

// ProductFromWire converts a wire product into a ProductRef.
func ProductFromWire(p WireProduct) (model.ProductRef, error) {
	vendor, err := RefID(p.Vendor)
	if err != nil {
		return model.ProductRef{}, fmt.Errorf("product vendor: %w", err)
	}
	id := p.ID
	if id == "" {
		id = p.AltID
	}
	return model.ProductRef{
		ID:       id,
		Name:     p.Name,
		Price:    p.Price,
		Images:   p.Images,
		VendorID: vendor,
	}, nil
}

// --- cart ---

// LineFromWire converts a wire cart line.
func LineFromWire(in WireLine) (model.CartLine, error) {
	var p model.ProductRef
	t := bytes.TrimSpace(in.Product)
	switch {
	case isNull(t):
		return model.CartLine{}, fmt.Errorf("cart line without product")
	case t[0] == '{':
		var wp WireProduct
		if err := json.Unmarshal(t, &wp); err != nil {
			return model.CartLine{}, fmt.Errorf("cart product: %w", err)
		}
		var err error
		if p, err = ProductFromWire(wp); err != nil {
			return model.CartLine{}, err
		}
	default:
		id, err := RefID(t)
		if err != nil {
			return model.CartLine{}, fmt.Errorf("cart product: %w", err)
		}
		p = model.ProductRef{ID: id}
	}

	vendor := in.VendorID
	if vendor == "" {
		v, err := RefID(in.Vendor)
		if err != nil {
			return model.CartLine{}, fmt.Errorf("cart vendor: %w", err)
		}
		vendor = v
	}
	if vendor == "" {
		vendor = p.VendorID
	}
	return model.CartLine{Product: p, VendorID: vendor, Quantity: in.Quantity}, nil
}

// CartFromWire converts and normalizes a server cart; lines that violate the
// quantity or uniqueness rules are folded or dropped.
func CartFromWire(in []WireLine) (model.Cart, error) {
	out := make(model.Cart, 0, len(in))
	for i := range in {
		l, err := LineFromWire(in[i])
		if err != nil {
			return nil, fmt.Errorf("line[%d]: %w", i, err)
		}
		out = append(out, l)
	}
	return out.Normalize(), nil
}

// --- identity ---

// IdentityFromWire decodes an identity object; null yields nil.
func IdentityFromWire(raw json.RawMessage) (model.Identity, error) {
	if isNull(raw) {
		return nil, nil
	}
	var id model.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}
	return id, nil
}
