// Package app wires the stores together and owns their lifecycle:
// New, then Initialize, then Close.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/shopverse/internal/api"
	"github.com/and161185/shopverse/internal/config"
	"github.com/and161185/shopverse/internal/errs"
	"github.com/and161185/shopverse/internal/forms"
	"github.com/and161185/shopverse/internal/guard"
	"github.com/and161185/shopverse/internal/model"
	"github.com/and161185/shopverse/internal/repository"
	"github.com/and161185/shopverse/internal/service"
	"github.com/and161185/shopverse/internal/storage"
)

// App is the application root.
type App struct {
	API     *api.Client
	Session *service.SessionStore
	Cart    *service.CartStore

	auth        repository.AuthRemote
	catalog     repository.CatalogRemote
	log         *zap.Logger
	store       storage.Storage
	closeStore  func() error
	unsubscribe func()
}

// New opens storage and constructs the stores in dependency order. Nothing is
// read from storage until Initialize.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	st, closeStore, err := OpenStorage(ctx, cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a, err := NewWithStorage(cfg, st, log)
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	a.closeStore = closeStore
	return a, nil
}

// NewWithStorage builds an App over an already opened storage.
func NewWithStorage(cfg *config.Config, st storage.Storage, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	client, err := api.New(cfg.API.URL, cfg.API.Timeout, log.Named("api"))
	if err != nil {
		return nil, err
	}
	sess := service.NewSessionStore(st, client, client, cfg.API.AssetURL, log.Named("session"))
	cart := service.NewCartStore(sess, client, st, service.CartOptions{
		MergeGuestOnLogin:    cfg.Cart.MergeOnLogin,
		LogoutOnUnauthorized: cfg.Cart.LogoutOnUnauthorized,
	}, log.Named("cart"))

	return &App{
		API:         client,
		Session:     sess,
		Cart:        cart,
		auth:        client,
		catalog:     client,
		log:         log,
		store:       st,
		closeStore:  func() error { return nil },
		unsubscribe: sess.Subscribe(cart.OnSessionChange),
	}, nil
}

// Initialize restores the session, then loads the cart for it.
func (a *App) Initialize(ctx context.Context) error {
	serr := a.Session.Initialize(ctx)
	if serr != nil {
		a.log.Warn("session restore incomplete", zap.Error(serr))
	}
	if err := a.Cart.Load(ctx); err != nil {
		a.log.Warn("cart load failed", zap.Error(err))
	}
	return serr
}

// Close detaches the stores and releases storage.
func (a *App) Close() error {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	a.API.CloseIdle()
	return a.closeStore()
}

// Storage exposes the device storage.
func (a *App) Storage() storage.Storage { return a.store }

// SignIn validates the form and logs in as role.
func (a *App) SignIn(ctx context.Context, role model.Role, f forms.Login) error {
	if err := forms.Validate(f); err != nil {
		return err
	}
	id, token, err := a.auth.Login(ctx, role, f.Credentials())
	if err != nil {
		return err
	}
	return a.Session.Login(ctx, id, token, role)
}

// SignUp registers an account. Sellers and admins are signed in straight away;
// customers are not and must sign in afterwards, which signedIn reports.
func (a *App) SignUp(ctx context.Context, f forms.Register) (signedIn bool, err error) {
	if err := forms.Validate(f); err != nil {
		return false, err
	}
	id, token, err := a.auth.Register(ctx, f.Role, f.Registration())
	if err != nil {
		return false, err
	}
	if token == "" || f.Role == model.RoleUser {
		return false, nil
	}
	if err := a.Session.Login(ctx, id, token, f.Role); err != nil {
		return true, err
	}
	return true, nil
}

// SaveProfile validates and writes a profile patch for the active principal.
func (a *App) SaveProfile(ctx context.Context, patch model.Identity) (model.Identity, error) {
	if err := forms.ValidateProfile(patch); err != nil {
		return nil, err
	}
	return a.Session.SaveProfile(ctx, patch)
}

// AddProduct looks productID up in the catalog and adds quantity of it to the cart.
func (a *App) AddProduct(ctx context.Context, productID string, quantity int) (model.ProductRef, error) {
	if quantity < 1 {
		return model.ProductRef{}, errs.ErrInvalidQuantity
	}
	p, err := a.catalog.GetProduct(ctx, productID)
	if err != nil {
		return model.ProductRef{}, fmt.Errorf("product %s: %w", productID, err)
	}
	return p, a.Cart.AddToCart(ctx, p, quantity)
}

// Authorize evaluates the route guard against the current session.
func (a *App) Authorize(required model.Role) guard.Decision {
	return guard.Evaluate(required, guard.Snapshot{
		Ready:   a.Session.Ready(),
		Session: a.Session.Current(),
	})
}

// Message renders err for a person: the server's own text when there is one.
func Message(err error, fallback string) string {
	var fe forms.FieldErrors
	if errors.As(err, &fe) {
		return fe.Error()
	}
	return api.UserMessage(err, fallback)
}
