package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/and161185/shopverse/internal/errs"
	"github.com/and161185/shopverse/internal/model"
	"github.com/and161185/shopverse/internal/repository"
	"github.com/and161185/shopverse/internal/storage"
)

// SessionView is what the cart needs from the session: the active token and a
// way to report that the server rejected it.
type SessionView interface {
	Token() string
	Expire(ctx context.Context, token, reason string)
}

var _ SessionView = (*SessionStore)(nil)

// CartOptions tunes session-transition behaviour.
type CartOptions struct {
	// MergeGuestOnLogin pushes guest lines to the server cart on sign-in.
	MergeGuestOnLogin bool
	// LogoutOnUnauthorized expires the session when a cart call gets 401.
	LogoutOnUnauthorized bool
}

// CartStore keeps the local cart view. For a guest it is the store of record and
// is mirrored to device storage; for a signed-in principal it caches the server
// cart and replaces the view with the server's answer after each mutation. Add
// and quantity changes show up before the server answers and stay in place if
// the call fails; removal and clearing wait for the server.
//
// Every remote call takes a sequence number when issued. A response is applied
// only if its number is above the last one applied and the session token is
// unchanged; anything else is stale and dropped.
type CartStore struct {
	session SessionView
	remote  repository.CartRemote
	store   storage.Storage
	opts    CartOptions
	log     *zap.Logger

	mu      sync.Mutex
	lines   model.Cart
	server  bool // lines mirror the server cart
	issued  uint64
	applied uint64
}

// NewCartStore constructs an empty cart. Call Load once the session is initialized.
func NewCartStore(session SessionView, remote repository.CartRemote, store storage.Storage, opts CartOptions, log *zap.Logger) *CartStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartStore{
		session: session,
		remote:  remote,
		store:   store,
		opts:    opts,
		log:     log,
		lines:   model.Cart{},
	}
}

// Lines returns a copy of the current lines.
func (c *CartStore) Lines() model.Cart {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines.Clone()
}

// TotalItems is the sum of quantities, computed on read.
func (c *CartStore) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines.TotalItems()
}

// TotalPrice is the sum of price * quantity, computed on read.
func (c *CartStore) TotalPrice() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines.TotalPrice()
}

// Load replaces the view with the server cart when signed in, or with the
// persisted guest cart otherwise. A failed fetch leaves an empty cart.
func (c *CartStore) Load(ctx context.Context) error {
	token := c.session.Token()
	if token == "" {
		return c.loadGuest(ctx)
	}

	c.mu.Lock()
	c.issued++
	seq := c.issued
	c.mu.Unlock()

	cart, err := c.remote.FetchCart(ctx)
	if err != nil {
		c.mu.Lock()
		if c.current(seq, token) {
			c.lines, c.server, c.applied = model.Cart{}, true, seq
		}
		c.mu.Unlock()
		return c.failed(ctx, "load", token, err)
	}
	c.apply(seq, token, cart, "load")
	return nil
}

func (c *CartStore) loadGuest(ctx context.Context) error {
	lines, err := c.readGuest(ctx)

	c.mu.Lock()
	c.issued++
	c.applied = c.issued
	c.lines, c.server = lines, false
	c.mu.Unlock()

	if err != nil {
		c.log.Warn("guest cart unreadable, starting empty", zap.Error(err))
	}
	return err
}

func (c *CartStore) readGuest(ctx context.Context) (model.Cart, error) {
	raw, err := c.store.Get(ctx, GuestCartKey)
	if errors.Is(err, errs.ErrNotFound) {
		return model.Cart{}, nil
	}
	if err != nil {
		return model.Cart{}, err
	}
	var lines model.Cart
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return model.Cart{}, fmt.Errorf("decode guest cart: %w", err)
	}
	return lines.Normalize(), nil
}

// AddToCart adds quantity of product, incrementing an existing line.
func (c *CartStore) AddToCart(ctx context.Context, product model.ProductRef, quantity int) error {
	if quantity < 1 {
		return errs.ErrInvalidQuantity
	}
	if product.ID == "" {
		return fmt.Errorf("%w: product id is required", errs.ErrValidation)
	}
	token, seq, err := c.mutate(ctx, true, func(l model.Cart) model.Cart {
		return l.Add(product, product.VendorID, quantity)
	})
	if token == "" {
		return err
	}
	cart, err := c.remote.AddToCart(ctx, product.ID, product.VendorID, quantity)
	if err != nil {
		return c.failed(ctx, "add", token, err)
	}
	c.apply(seq, token, cart, "add")
	return nil
}

// RemoveFromCart drops the line for productID. When signed in the view changes
// only once the server has answered.
func (c *CartStore) RemoveFromCart(ctx context.Context, productID string) error {
	token, seq, err := c.mutate(ctx, false, func(l model.Cart) model.Cart {
		return l.Remove(productID)
	})
	if token == "" {
		return err
	}
	cart, err := c.remote.RemoveCartItem(ctx, productID)
	if err != nil {
		return c.failed(ctx, "remove", token, err)
	}
	c.apply(seq, token, cart, "remove")
	return nil
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less removes
// the line. A guest cart rejects unknown lines with ErrNotFound; a signed-in
// update always goes to the server, which may know lines the local view lacks.
func (c *CartStore) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return c.RemoveFromCart(ctx, productID)
	}

	known := true
	token, seq, err := c.mutate(ctx, true, func(l model.Cart) model.Cart {
		known = l.Index(productID) >= 0
		return l.SetQuantity(productID, quantity)
	})
	if token == "" {
		if err == nil && !known {
			return fmt.Errorf("cart line %q: %w", productID, errs.ErrNotFound)
		}
		return err
	}
	cart, ok, err := c.remote.UpdateCartItem(ctx, productID, quantity)
	if err != nil {
		return c.failed(ctx, "update", token, err)
	}
	if !ok && !known {
		// the server has a line the view lacks and sent no cart back
		return c.Load(ctx)
	}
	if !ok {
		// nothing to reconcile against; the optimistic view stands
		c.mu.Lock()
		if c.current(seq, token) {
			c.applied = seq
		}
		c.mu.Unlock()
		return nil
	}
	c.apply(seq, token, cart, "update")
	return nil
}

// ClearCart empties the cart. A guest's persisted cart is evicted.
func (c *CartStore) ClearCart(ctx context.Context) error {
	token := c.session.Token()
	if token == "" {
		c.mu.Lock()
		c.issued++
		c.applied = c.issued
		c.lines, c.server = model.Cart{}, false
		err := c.store.Remove(ctx, GuestCartKey)
		c.mu.Unlock()
		return err
	}

	token, seq, err := c.mutate(ctx, false, func(model.Cart) model.Cart { return model.Cart{} })
	if token == "" {
		return err
	}
	if err := c.remote.ClearCart(ctx); err != nil {
		return c.failed(ctx, "clear", token, err)
	}
	c.apply(seq, token, model.Cart{}, "clear")
	return nil
}

// OnSessionChange reloads the cart after a session transition. On sign-in the
// guest cart is optionally pushed to the server, then evicted from storage.
func (c *CartStore) OnSessionChange(ctx context.Context, prev, next model.Session) {
	if !prev.Authenticated() && next.Authenticated() {
		c.adoptGuest(ctx)
	}
	if err := c.Load(ctx); err != nil {
		c.log.Warn("cart reload failed", zap.Error(err))
	}
}

func (c *CartStore) adoptGuest(ctx context.Context) {
	c.mu.Lock()
	guest := model.Cart{}
	if !c.server {
		guest = c.lines.Clone()
	}
	c.mu.Unlock()

	if len(guest) == 0 {
		if stored, err := c.readGuest(ctx); err == nil {
			guest = stored
		}
	}
	if c.opts.MergeGuestOnLogin {
		for _, l := range guest {
			if _, err := c.remote.AddToCart(ctx, l.Product.ID, l.VendorID, l.Quantity); err != nil {
				c.log.Warn("guest cart line not merged", zap.String("product", l.Product.ID), zap.Error(err))
			}
		}
	}
	if err := c.store.Remove(ctx, GuestCartKey); err != nil {
		c.log.Warn("guest cart eviction failed", zap.Error(err))
	}
}

// mutate applies fn to a guest view, persists the result and returns an empty
// token. When signed in it returns the token and a fresh sequence number for the
// remote leg, applying fn first only if optimistic is set.
func (c *CartStore) mutate(ctx context.Context, optimistic bool, fn func(model.Cart) model.Cart) (string, uint64, error) {
	token := c.session.Token()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	if token == "" {
		c.lines = fn(c.lines)
		c.applied = c.issued
		c.server = false
		return "", 0, c.persistGuest(ctx)
	}
	if optimistic {
		c.lines = fn(c.lines)
	}
	return token, c.issued, nil
}

// persistGuest mirrors the guest cart to storage. Caller holds mu.
func (c *CartStore) persistGuest(ctx context.Context) error {
	raw, err := json.Marshal(c.lines)
	if err != nil {
		return fmt.Errorf("encode guest cart: %w", err)
	}
	if err := c.store.Set(ctx, GuestCartKey, string(raw)); err != nil {
		c.log.Warn("guest cart not persisted", zap.Error(err))
		return err
	}
	return nil
}

// current reports whether a response for seq under token may still be applied. Caller holds mu.
func (c *CartStore) current(seq uint64, token string) bool {
	return seq > c.applied && c.session.Token() == token
}

// apply installs a server cart if the response is still current.
func (c *CartStore) apply(seq uint64, token string, cart model.Cart, op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(seq, token) {
		c.log.Debug("stale cart response dropped", zap.String("op", op), zap.Uint64("seq", seq), zap.Uint64("applied", c.applied))
		return
	}
	if cart == nil {
		cart = model.Cart{}
	}
	c.lines, c.server, c.applied = cart.Normalize(), true, seq
}

// failed logs a remote failure, expires the session on 401 when configured and
// returns the error. The local view is left as it is.
func (c *CartStore) failed(ctx context.Context, op, token string, err error) error {
	c.log.Warn("cart remote call failed", zap.String("op", op), zap.Error(err))
	if errors.Is(err, errs.ErrUnauthorized) && c.opts.LogoutOnUnauthorized {
		c.session.Expire(ctx, token, "cart "+op+": unauthorized")
	}
	return fmt.Errorf("cart %s: %w", op, err)
}
