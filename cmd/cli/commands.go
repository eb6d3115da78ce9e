package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/and161185/shopverse/internal/api"
	"github.com/and161185/shopverse/internal/errs"
	"github.com/and161185/shopverse/internal/forms"
	"github.com/and161185/shopverse/internal/guard"
	"github.com/and161185/shopverse/internal/model"
)

type handler func(ctx context.Context, e *env) error

var commands map[string]handler

func init() {
	commands = map[string]handler{
		"login":      cmdLogin,
		"register":   cmdRegister,
		"logout":     cmdLogout,
		"whoami":     cmdWhoami,
		"profile":    cmdProfile,
		"cart":       cmdCart,
		"cart-add":   cmdCartAdd,
		"cart-rm":    cmdCartRemove,
		"cart-set":   cmdCartSet,
		"cart-clear": cmdCartClear,
		"guard":      cmdGuard,
	}
}

func parseRole(fs *flag.FlagSet, args []string) (model.Role, error) {
	role := fs.String("role", "user", "user|seller|admin")
	if err := fs.Parse(args); err != nil {
		return "", errUsage
	}
	r, err := model.ParseRole(*role)
	if err != nil {
		return "", err
	}
	if !r.CanSignIn() {
		return "", fmt.Errorf("role %q cannot sign in", r)
	}
	return r, nil
}

func cmdLogin(ctx context.Context, e *env) error {
	fs := e.flags("login")
	email := fs.String("e", "", "email")
	pass := fs.String("p", "", "password")
	role, err := parseRole(fs, e.args)
	if err != nil {
		return err
	}
	if err := e.app.SignIn(ctx, role, forms.Login{Email: *email, Password: *pass}); err != nil {
		return err
	}
	cur := e.app.Session.Current()
	fmt.Fprintf(e.out, "ok: %s (%s)\n", cur.Identity.Name(), cur.Role)
	return nil
}

func cmdRegister(ctx context.Context, e *env) error {
	fs := e.flags("register")
	name := fs.String("name", "", "display name")
	email := fs.String("e", "", "email")
	pass := fs.String("p", "", "password")
	shop := fs.String("shop", "", "shop name (sellers)")
	role, err := parseRole(fs, e.args)
	if err != nil {
		return err
	}
	signedIn, err := e.app.SignUp(ctx, forms.Register{Role: role, Name: *name, Email: *email, Password: *pass, ShopName: *shop})
	if err != nil {
		return err
	}
	if signedIn {
		fmt.Fprintf(e.out, "registered and signed in as %s\n", role)
		return nil
	}
	fmt.Fprintln(e.out, "registered; run `sv login` to sign in")
	return nil
}

func cmdLogout(ctx context.Context, e *env) error {
	if !e.app.Session.Authenticated() {
		fmt.Fprintln(e.out, "not signed in")
		return nil
	}
	if err := e.app.Session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(e.out, "ok")
	return nil
}

func cmdWhoami(ctx context.Context, e *env) error {
	fs := e.flags("whoami")
	refresh := fs.Bool("refresh", false, "re-read the profile from the server")
	if err := fs.Parse(e.args); err != nil {
		return errUsage
	}
	if *refresh && e.app.Session.Authenticated() {
		if err := e.app.Session.Refresh(ctx); err != nil {
			fmt.Fprintf(e.errOut, "refresh failed, showing stored profile: %s\n", api.UserMessage(err, err.Error()))
		}
	}
	cur := e.app.Session.Current()
	out := map[string]any{"role": cur.Role, "identity": cur.Identity}
	if cur.Token != "" {
		if info, err := api.InspectToken(cur.Token); err == nil && !info.ExpiresAt.IsZero() {
			out["tokenExpiresAt"] = info.ExpiresAt.UTC().Format(time.RFC3339)
			out["tokenExpired"] = info.Expired(time.Now())
		}
	}
	e.printJSON(out)
	return nil
}

// kvFlag collects repeated -set key=value pairs.
type kvFlag map[string]any

func (k kvFlag) String() string {
	keys := make([]string, 0, len(k))
	for key := range k {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

func (k kvFlag) Set(s string) error {
	key, val, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return fmt.Errorf("want key=value, got %q", s)
	}
	k[key] = val
	return nil
}

func cmdProfile(ctx context.Context, e *env) error {
	fs := e.flags("profile")
	patch := kvFlag{}
	fs.Var(patch, "set", "key=value (repeatable)")
	if err := fs.Parse(e.args); err != nil {
		return errUsage
	}
	id, err := e.app.SaveProfile(ctx, model.Identity(patch))
	if err != nil {
		return err
	}
	e.printJSON(id)
	return nil
}

func cmdCart(_ context.Context, e *env) error {
	lines := e.app.Cart.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(e.out, "cart is empty")
		return nil
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tPRICE\tSUBTOTAL")
	for _, l := range lines {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", l.Product.ID, l.Product.Name, l.Quantity,
			l.Product.Price.StringFixed(2), l.Subtotal().StringFixed(2))
	}
	_ = tw.Flush()
	fmt.Fprintf(e.out, "items: %d  total: %s\n", e.app.Cart.TotalItems(), e.app.Cart.TotalPrice().StringFixed(2))
	return nil
}

func idFlags(e *env, name string, qtyDefault int) (*flag.FlagSet, *string, *int) {
	fs := e.flags(name)
	id := fs.String("id", "", "product id")
	qty := fs.Int("qty", qtyDefault, "quantity")
	return fs, id, qty
}

func cmdCartAdd(ctx context.Context, e *env) error {
	fs, id, qty := idFlags(e, "cart-add", 1)
	if err := fs.Parse(e.args); err != nil || *id == "" {
		return needFlags(fs, "-id")
	}
	// cart failures stay silent: the local state is what the user sees
	if _, err := e.app.AddProduct(ctx, *id, *qty); err != nil && !errors.Is(err, context.Canceled) {
		if isInput(err) {
			return err
		}
		fmt.Fprintf(e.errOut, "warning: %s\n", api.UserMessage(err, "cart not synced"))
	}
	return cmdCart(ctx, e)
}

func cmdCartRemove(ctx context.Context, e *env) error {
	fs, id, _ := idFlags(e, "cart-rm", 0)
	if err := fs.Parse(e.args); err != nil || *id == "" {
		return needFlags(fs, "-id")
	}
	if err := e.app.Cart.RemoveFromCart(ctx, *id); err != nil {
		fmt.Fprintf(e.errOut, "warning: %s\n", api.UserMessage(err, "cart not synced"))
	}
	return cmdCart(ctx, e)
}

func cmdCartSet(ctx context.Context, e *env) error {
	fs, id, qty := idFlags(e, "cart-set", 0)
	if err := fs.Parse(e.args); err != nil || *id == "" || !wasSet(fs, "qty") {
		return needFlags(fs, "-id and -qty")
	}
	if err := e.app.Cart.UpdateQuantity(ctx, *id, *qty); err != nil {
		if isInput(err) {
			return err
		}
		fmt.Fprintf(e.errOut, "warning: %s\n", api.UserMessage(err, "cart not synced"))
	}
	return cmdCart(ctx, e)
}

func cmdCartClear(ctx context.Context, e *env) error {
	if err := e.app.Cart.ClearCart(ctx); err != nil {
		fmt.Fprintf(e.errOut, "warning: %s\n", api.UserMessage(err, "cart not synced"))
	}
	return cmdCart(ctx, e)
}

func cmdGuard(_ context.Context, e *env) error {
	fs := e.flags("guard")
	role := fs.String("role", "", "required role (empty: any signed-in principal)")
	if err := fs.Parse(e.args); err != nil {
		return errUsage
	}
	var required model.Role
	if *role != "" {
		r, err := model.ParseRole(*role)
		if err != nil {
			return err
		}
		if !r.CanSignIn() {
			return fmt.Errorf("%w: %q cannot be required by a route", errs.ErrInvalidRole, r)
		}
		required = r
	}
	d := e.app.Authorize(required)
	switch d.Outcome {
	case guard.Allow:
		fmt.Fprintln(e.out, "allow")
	case guard.Redirect:
		fmt.Fprintf(e.out, "redirect %s\n", d.Path)
		if d.Notice != "" {
			fmt.Fprintln(e.out, d.Notice)
		}
	default:
		fmt.Fprintln(e.out, d.Outcome)
	}
	return nil
}

func needFlags(fs *flag.FlagSet, what string) error {
	fmt.Fprintf(fs.Output(), "need %s\n", what)
	return errUsage
}

// isInput reports errors caused by the arguments rather than the backend.
func isInput(err error) bool {
	return errors.Is(err, errs.ErrInvalidQuantity) ||
		errors.Is(err, errs.ErrValidation) ||
		errors.Is(err, errs.ErrNotFound)
}

// wasSet reports whether the named flag was given on the command line.
func wasSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
