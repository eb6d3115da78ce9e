package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func prod(id, price string) ProductRef {
	return ProductRef{ID: id, Name: "p-" + id, Price: decimal.RequireFromString(price), VendorID: "v-" + id}
}

func TestCart_Add_IncrementsExistingLine(t *testing.T) {
	t.Parallel()
	var c Cart
	c = c.Add(prod("a", "10.50"), "", 2)
	c = c.Add(prod("a", "10.50"), "", 3)

	require.Len(t, c, 1)
	require.Equal(t, 5, c[0].Quantity)
	require.Equal(t, "v-a", c[0].VendorID)
}

func TestCart_Add_IgnoresNonPositiveAndKeepsReceiver(t *testing.T) {
	t.Parallel()
	c := Cart{}.Add(prod("a", "1"), "", 1)
	same := c.Add(prod("b", "1"), "", 0)
	require.Len(t, same, 1)

	grown := c.Add(prod("b", "1"), "vx", 1)
	require.Len(t, c, 1, "receiver must not change")
	require.Len(t, grown, 2)
	require.Equal(t, "vx", grown[1].VendorID)
}

func TestCart_SetQuantity_ZeroRemoves(t *testing.T) {
	t.Parallel()
	c := Cart{}.Add(prod("a", "1"), "", 1).Add(prod("b", "2"), "", 1)

	c2 := c.SetQuantity("a", 0)
	require.Equal(t, c.Remove("a"), c2)
	require.Equal(t, -1, c2.Index("a"))

	c3 := c.SetQuantity("b", 7)
	require.Equal(t, 7, c3[c3.Index("b")].Quantity)

	require.Equal(t, c, c.SetQuantity("missing", 3))
}

func TestCart_Normalize(t *testing.T) {
	t.Parallel()
	in := Cart{
		{Product: prod("a", "1"), Quantity: 1},
		{Product: prod("b", "1"), Quantity: 0},
		{Product: prod("a", "1"), Quantity: 2},
		{Product: ProductRef{}, Quantity: 4},
		{Product: prod("c", "1"), Quantity: -1},
	}
	out := in.Normalize()
	require.Len(t, out, 1)
	require.Equal(t, 3, out[0].Quantity)
	require.Equal(t, "v-a", out[0].VendorID)
}

func TestCart_Totals(t *testing.T) {
	t.Parallel()
	c := Cart{}.Add(prod("a", "19.99"), "", 2).Add(prod("b", "0.01"), "", 3)

	require.Equal(t, 5, c.TotalItems())
	require.Equal(t, "40.01", c.TotalPrice().StringFixed(2))

	require.Equal(t, 0, Cart(nil).TotalItems())
	require.True(t, Cart(nil).TotalPrice().IsZero())
}
