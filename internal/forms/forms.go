// Package forms validates user input before it reaches the stores.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/and161185/shopverse/internal/errs"
	"github.com/and161185/shopverse/internal/model"
	"github.com/and161185/shopverse/internal/repository"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// Login is the sign-in form.
type Login struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Credentials converts a validated form.
func (l Login) Credentials() repository.Credentials {
	return repository.Credentials{Email: strings.TrimSpace(l.Email), Password: l.Password}
}

// Register is the sign-up form. ShopName is required for sellers.
type Register struct {
	Role     model.Role `json:"role" validate:"required,oneof=user seller admin"`
	Name     string     `json:"name" validate:"required,max=100"`
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=6"`
	ShopName string     `json:"shopName" validate:"required_if=Role seller,max=100"`
}

// Registration converts a validated form.
func (r Register) Registration() repository.Registration {
	return repository.Registration{
		Name:     strings.TrimSpace(r.Name),
		Email:    strings.TrimSpace(r.Email),
		Password: r.Password,
		ShopName: strings.TrimSpace(r.ShopName),
	}
}

// FieldErrors maps a field name to a human-readable problem.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+f[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (f FieldErrors) Unwrap() error { return errs.ErrValidation }

// Validate checks a form struct. The returned error wraps errs.ErrValidation.
func Validate(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	out := FieldErrors{}
	for _, fe := range ve {
		out[fe.Field()] = message(fe)
	}
	return out
}

// ValidateProfile checks the fields of a profile patch the backend constrains.
func ValidateProfile(patch model.Identity) error {
	if len(patch) == 0 {
		return FieldErrors{"profile": "is empty"}
	}
	out := FieldErrors{}
	for _, k := range []string{"_id", "id", "role", "password"} {
		if _, ok := patch[k]; ok {
			out[k] = "cannot be changed"
		}
	}
	if v, ok := patch["email"]; ok {
		if err := validate.Var(v, "required,email"); err != nil {
			out["email"] = "must be a valid email"
		}
	}
	if v, ok := patch["name"]; ok {
		if err := validate.Var(v, "required"); err != nil {
			out["name"] = "is required"
		}
	}
	if len(out) > 0 {
		return out
	}
	return nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email"
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	}
	return "is invalid"
}
