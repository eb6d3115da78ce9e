package forms

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/shopverse/internal/errs"
	"github.com/and161185/shopverse/internal/model"
)

func TestValidate_Login(t *testing.T) {
	t.Parallel()
	require.NoError(t, Validate(Login{Email: "a@b.co", Password: "x"}))

	err := Validate(Login{Email: "not-mail"})
	require.ErrorIs(t, err, errs.ErrValidation)
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "must be a valid email", fe["email"])
	require.Equal(t, "is required", fe["password"])
}

func TestValidate_RegisterShopNameOnlyForSellers(t *testing.T) {
	t.Parallel()
	base := Register{Role: model.RoleUser, Name: "Ann", Email: "ann@shop.test", Password: "secret"}
	require.NoError(t, Validate(base))

	seller := base
	seller.Role = model.RoleSeller
	err := Validate(seller)
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "is required", fe["shopName"])

	seller.ShopName = "Ann's"
	require.NoError(t, Validate(seller))

	bad := base
	bad.Role = model.RoleGuest
	bad.Password = "123"
	err = Validate(bad)
	require.ErrorAs(t, err, &fe)
	require.Contains(t, fe["role"], "must be one of")
	require.Equal(t, "must be at least 6 characters", fe["password"])
}

func TestRegister_TrimsInput(t *testing.T) {
	t.Parallel()
	r := Register{Name: " Ann ", Email: " ann@shop.test ", Password: " pw ", ShopName: " S "}.Registration()
	require.Equal(t, "Ann", r.Name)
	require.Equal(t, "ann@shop.test", r.Email)
	require.Equal(t, " pw ", r.Password)
	require.Equal(t, "S", r.ShopName)
}

func TestValidateProfile(t *testing.T) {
	t.Parallel()
	require.NoError(t, ValidateProfile(model.Identity{"name": "Ann", "phone": "1"}))

	err := ValidateProfile(model.Identity{})
	require.ErrorIs(t, err, errs.ErrValidation)

	err = ValidateProfile(model.Identity{"email": "bad", "role": "admin", "name": ""})
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	require.Len(t, fe, 3)
	require.Equal(t, "cannot be changed", fe["role"])
	require.Contains(t, err.Error(), "email must be a valid email")
}
