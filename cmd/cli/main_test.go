package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/and161185/shopverse/internal/apitest"
	"github.com/and161185/shopverse/internal/errs"
)

type cli struct {
	t    *testing.T
	srv  *apitest.Server
	dir  string
	last string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	srv := apitest.New(t)
	srv.SeedProduct(apitest.Product{ID: "p1", Name: "Lamp", Price: decimal.RequireFromString("12.50"), VendorID: "v1"})
	srv.SeedProduct(apitest.Product{ID: "p2", Name: "Desk", Price: decimal.RequireFromString("100"), VendorID: "v2"})
	srv.SeedAccount("user", "ann@shop.test", "secret", map[string]any{"name": "Ann"})
	srv.SeedAccount("admin", "root@shop.test", "secret", map[string]any{"name": "Root"})
	return &cli{t: t, srv: srv, dir: t.TempDir()}
}

func (c *cli) run(args ...string) (string, string, error) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	global := []string{"-api", c.srv.URL(), "-assets", c.srv.AssetURL(), "-backend", "file", "-dir", c.dir}
	err := run(context.Background(), append(global, args...), &out, &errOut)
	return out.String(), errOut.String(), err
}

func (c *cli) ok(args ...string) string {
	c.t.Helper()
	out, errOut, err := c.run(args...)
	if err != nil {
		c.t.Fatalf("sv %v: %v (stderr: %s)", args, err, errOut)
	}
	return out
}

func Test_version(t *testing.T) {
	c := newCLI(t)
	if out := c.ok("version"); !strings.HasPrefix(out, "sv dev") {
		t.Fatalf("unexpected version output: %q", out)
	}
}

func Test_usage(t *testing.T) {
	c := newCLI(t)
	if _, errOut, err := c.run(); !errors.Is(err, errUsage) || !strings.Contains(errOut, "Commands:") {
		t.Fatalf("want usage error, got %v / %q", err, errOut)
	}
	if _, _, err := c.run("frobnicate"); !errors.Is(err, errUsage) {
		t.Fatalf("want usage error for unknown command, got %v", err)
	}
	if _, _, err := c.run("cart-set", "-id", "p1"); !errors.Is(err, errUsage) {
		t.Fatalf("cart-set without -qty should be a usage error, got %v", err)
	}
	if out, _, err := c.run("guard", "-role", "guest"); !errors.Is(err, errs.ErrInvalidRole) || out != "" {
		t.Fatalf("guard -role guest should be rejected, got %v / %q", err, out)
	}
}

func Test_guestCartThenLogin(t *testing.T) {
	c := newCLI(t)

	out := c.ok("cart-add", "-id", "p1", "-qty", "2")
	if !strings.Contains(out, "items: 2  total: 25.00") {
		t.Fatalf("unexpected cart output:\n%s", out)
	}
	out = c.ok("cart")
	if !strings.Contains(out, "Lamp") {
		t.Fatalf("guest cart not persisted between runs:\n%s", out)
	}

	if out := c.ok("guard", "-role", "user"); strings.TrimSpace(out) != "redirect /login" {
		t.Fatalf("unexpected guard output %q", out)
	}

	out = c.ok("login", "-e", "ann@shop.test", "-p", "secret")
	if !strings.Contains(out, "ok: Ann (user)") {
		t.Fatalf("unexpected login output %q", out)
	}
	if got := c.srv.CartOf("user", "ann@shop.test"); got["p1"] != 2 {
		t.Fatalf("guest cart not merged: %v", got)
	}

	out = c.ok("cart-add", "-id", "p2")
	if !strings.Contains(out, "items: 3  total: 125.00") {
		t.Fatalf("unexpected cart output:\n%s", out)
	}
	out = c.ok("cart-set", "-id", "p1", "-qty", "0")
	if strings.Contains(out, "Lamp") || !strings.Contains(out, "items: 1") {
		t.Fatalf("qty 0 should remove the line:\n%s", out)
	}
	if out := c.ok("guard", "-role", "admin"); !strings.Contains(out, "Access denied. Only admins can access this page.") {
		t.Fatalf("unexpected guard output %q", out)
	}

	out = c.ok("whoami")
	if !strings.Contains(out, `"role": "user"`) || !strings.Contains(out, "tokenExpiresAt") {
		t.Fatalf("unexpected whoami output:\n%s", out)
	}

	c.ok("logout")
	if out := c.ok("cart"); strings.TrimSpace(out) != "cart is empty" {
		t.Fatalf("guest cart after logout should be empty, got:\n%s", out)
	}
	if got := c.srv.CartOf("user", "ann@shop.test"); got["p2"] != 1 {
		t.Fatalf("server cart should survive logout: %v", got)
	}
}

func Test_loginFailureShowsServerMessage(t *testing.T) {
	c := newCLI(t)
	_, _, err := c.run("login", "-role", "admin", "-e", "root@shop.test", "-p", "nope")
	if err == nil {
		t.Fatal("want error")
	}
	var buf bytes.Buffer
	fail(&buf, err)
	if strings.TrimSpace(buf.String()) != "Invalid credentials" {
		t.Fatalf("unexpected message %q", buf.String())
	}

	_, _, err = c.run("login", "-role", "guest", "-e", "a@b.co", "-p", "x")
	if err == nil {
		t.Fatal("guest role must not sign in")
	}
}

func Test_profileAndRefresh(t *testing.T) {
	c := newCLI(t)
	c.ok("login", "-role", "admin", "-e", "root@shop.test", "-p", "secret")

	out := c.ok("profile", "-set", "name=Groot", "-set", "phone=42")
	if !strings.Contains(out, `"name": "Groot"`) || !strings.Contains(out, `"role": "admin"`) {
		t.Fatalf("unexpected profile output:\n%s", out)
	}
	out = c.ok("whoami", "-refresh")
	if !strings.Contains(out, `"phone": "42"`) {
		t.Fatalf("refresh lost server fields:\n%s", out)
	}
	if _, _, err := c.run("profile", "-set", "noequals"); !errors.Is(err, errUsage) {
		t.Fatalf("want usage error, got %v", err)
	}
}

func Test_register(t *testing.T) {
	c := newCLI(t)
	out := c.ok("register", "-name", "Cy", "-e", "cy@shop.test", "-p", "secret1")
	if !strings.Contains(out, "sv login") {
		t.Fatalf("customers are not signed in on registration: %q", out)
	}
	out = c.ok("register", "-role", "seller", "-name", "Di", "-e", "di@shop.test", "-p", "secret1", "-shop", "Di's")
	if !strings.Contains(out, "signed in as seller") {
		t.Fatalf("unexpected output %q", out)
	}
	if out := c.ok("guard"); strings.TrimSpace(out) != "allow" {
		t.Fatalf("unexpected guard output %q", out)
	}
}

func Test_kvFlag(t *testing.T) {
	k := kvFlag{}
	if err := k.Set("a=b=c"); err != nil || k["a"] != "b=c" {
		t.Fatalf("Set: %v %v", err, k)
	}
	if err := k.Set("=x"); err == nil {
		t.Fatal("empty key must fail")
	}
	_ = k.Set("z=1")
	if k.String() != "a,z" {
		t.Fatalf("String() = %q", k.String())
	}
}
