package model

import "github.com/shopspring/decimal"

// ProductRef is the slice of a catalog product the cart needs.
type ProductRef struct {
	ID       string          `json:"_id"`
	Name     string          `json:"name,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Images   []string        `json:"images,omitempty"`
	VendorID string          `json:"vendor,omitempty"`
}

// CartLine is one product in the cart. Quantity is always positive.
type CartLine struct {
	Product  ProductRef `json:"product"`
	VendorID string     `json:"vendorId,omitempty"`
	Quantity int        `json:"quantity"`
}

// Subtotal returns price * quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an ordered list of lines keyed by product ID.
// Methods never modify the receiver; they return a new slice.
type Cart []CartLine

// Clone returns a copy that shares no backing array with c.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// Index returns the position of the line for productID, or -1.
func (c Cart) Index(productID string) int {
	for i := range c {
		if c[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

// Add appends a line or increments the existing one.
func (c Cart) Add(p ProductRef, vendorID string, qty int) Cart {
	if qty <= 0 || p.ID == "" {
		return c.Clone()
	}
	out := c.Clone()
	if i := out.Index(p.ID); i >= 0 {
		out[i].Quantity += qty
		return out
	}
	if vendorID == "" {
		vendorID = p.VendorID
	}
	return append(out, CartLine{Product: p, VendorID: vendorID, Quantity: qty})
}

// Remove drops the line for productID.
func (c Cart) Remove(productID string) Cart {
	out := make(Cart, 0, len(c))
	for _, l := range c {
		if l.Product.ID != productID {
			out = append(out, l)
		}
	}
	return out
}

// SetQuantity sets the quantity of an existing line; qty <= 0 removes it.
func (c Cart) SetQuantity(productID string, qty int) Cart {
	if qty <= 0 {
		return c.Remove(productID)
	}
	out := c.Clone()
	if i := out.Index(productID); i >= 0 {
		out[i].Quantity = qty
	}
	return out
}

// Normalize drops non-positive lines and folds duplicate product IDs into the first occurrence.
func (c Cart) Normalize() Cart {
	out := make(Cart, 0, len(c))
	for _, l := range c {
		if l.Quantity <= 0 || l.Product.ID == "" {
			continue
		}
		if l.VendorID == "" {
			l.VendorID = l.Product.VendorID
		}
		if i := out.Index(l.Product.ID); i >= 0 {
			out[i].Quantity += l.Quantity
			continue
		}
		out = append(out, l)
	}
	return out
}

// TotalItems is the sum of all quantities.
func (c Cart) TotalItems() int {
	n := 0
	for _, l := range c {
		n += l.Quantity
	}
	return n
}

// TotalPrice is the sum of price * quantity over all lines.
func (c Cart) TotalPrice() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}
