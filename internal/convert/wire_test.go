package convert

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRefID_Variants(t *testing.T) {
	t.Parallel()
	for raw, want := range map[string]string{
		``:                 "",
		`null`:             "",
		`"v1"`:             "v1",
		`{"_id":"v2"}`:     "v2",
		`{"id":"v3"}`:      "v3",
		` {"_id":"v4"} `:   "v4",
		`{"shopName":"s"}`: "",
	} {
		got, err := RefID(json.RawMessage(raw))
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}
	_, err := RefID(json.RawMessage(`42`))
	require.Error(t, err)
}

func TestCartFromWire_PopulatedAndBareProducts(t *testing.T) {
	t.Parallel()
	body := `[
		{"product":{"_id":"p1","name":"Mug","price":12.5,"vendor":{"_id":"v1","shopName":"S"}},"quantity":2},
		{"product":"p2","vendorId":"v2","quantity":1},
		{"product":{"id":"p3","price":"3.10","vendor":"v3"},"vendor":"v9","quantity":4}
	]`
	var lines []WireLine
	require.NoError(t, json.Unmarshal([]byte(body), &lines))

	c, err := CartFromWire(lines)
	require.NoError(t, err)
	require.Len(t, c, 3)

	require.Equal(t, "p1", c[0].Product.ID)
	require.Equal(t, "v1", c[0].VendorID)
	require.Equal(t, "12.5", c[0].Product.Price.String())

	require.Equal(t, "p2", c[1].Product.ID)
	require.Equal(t, "v2", c[1].VendorID)
	require.True(t, c[1].Product.Price.IsZero())

	require.Equal(t, "p3", c[2].Product.ID)
	require.Equal(t, "v9", c[2].VendorID, "line vendor wins over product vendor")
	require.Equal(t, "12.40", c[2].Subtotal().StringFixed(2))
}

func TestCartFromWire_EnforcesInvariants(t *testing.T) {
	t.Parallel()
	body := `[
		{"product":"p1","quantity":1},
		{"product":"p1","quantity":2},
		{"product":"p2","quantity":0}
	]`
	var lines []WireLine
	require.NoError(t, json.Unmarshal([]byte(body), &lines))
	c, err := CartFromWire(lines)
	require.NoError(t, err)
	require.Len(t, c, 1)
	require.Equal(t, 3, c[0].Quantity)
}

func TestCartFromWire_Errors(t *testing.T) {
	t.Parallel()
	_, err := CartFromWire([]WireLine{{Quantity: 1}})
	require.Error(t, err)

	_, err = CartFromWire([]WireLine{{Product: json.RawMessage(`{"_id":"p","vendor":7}`), Quantity: 1}})
	require.Error(t, err)
}

func TestIdentityFromWire(t *testing.T) {
	t.Parallel()
	id, err := IdentityFromWire(json.RawMessage(`{"_id":"u1","name":"Ann"}`))
	require.NoError(t, err)
	require.Equal(t, "u1", id.ID())

	id, err = IdentityFromWire(json.RawMessage(`null`))
	require.NoError(t, err)
	require.Nil(t, id)

	_, err = IdentityFromWire(json.RawMessage(`[1]`))
	require.Error(t, err)
}
