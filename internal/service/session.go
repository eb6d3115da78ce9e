// Package service contains the session and cart stores.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/and161185/shopverse/internal/errs"
	"github.com/and161185/shopverse/internal/model"
	"github.com/and161185/shopverse/internal/repository"
	"github.com/and161185/shopverse/internal/storage"
)

// Partition is the pair of storage keys one role persists its session under.
type Partition struct {
	Role     model.Role
	InfoKey  string
	TokenKey string
}

// Partitions lists the role partitions in activation precedence order.
var Partitions = []Partition{
	{Role: model.RoleAdmin, InfoKey: "adminInfo", TokenKey: "adminToken"},
	{Role: model.RoleSeller, InfoKey: "sellerInfo", TokenKey: "sellerToken"},
	{Role: model.RoleUser, InfoKey: "shopverseUser", TokenKey: "shopverseToken"},
}

// GuestCartKey holds the serialized guest cart while no session is active.
const GuestCartKey = "shopverseCart"

// PartitionFor returns the storage partition of role.
func PartitionFor(role model.Role) (Partition, bool) {
	for _, p := range Partitions {
		if p.Role == role {
			return p, true
		}
	}
	return Partition{}, false
}

// imageFields are identity fields holding image paths.
var imageFields = []string{"profileImage", "avatar"}

// Listener observes session transitions. It runs on the goroutine that
// caused the transition, after the store's lock is released.
type Listener func(ctx context.Context, prev, next model.Session)

// SessionStore owns the active principal and its persisted credentials.
type SessionStore struct {
	store     storage.Storage
	bearer    repository.Bearer
	profiles  repository.ProfileRemote
	assetBase string
	log       *zap.Logger

	mu        sync.RWMutex
	sess      model.Session
	ready     bool
	listeners map[int]Listener
	nextID    int
}

// NewSessionStore constructs a store in the guest state. Call Initialize before use.
func NewSessionStore(store storage.Storage, bearer repository.Bearer, profiles repository.ProfileRemote, assetBase string, log *zap.Logger) *SessionStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionStore{
		store:     store,
		bearer:    bearer,
		profiles:  profiles,
		assetBase: strings.TrimRight(assetBase, "/"),
		log:       log,
		sess:      model.GuestSession(),
		listeners: map[int]Listener{},
	}
}

// Initialize activates the first persisted partition holding both identity and
// token. It makes no network call. Unreadable partitions are skipped and their
// errors returned after the store is marked ready.
func (s *SessionStore) Initialize(ctx context.Context) error {
	var errList error
	sess := model.GuestSession()
	for _, p := range Partitions {
		id, token, err := s.readPartition(ctx, p)
		if err != nil {
			s.log.Warn("session partition unreadable", zap.String("role", string(p.Role)), zap.Error(err))
			errList = multierr.Append(errList, err)
			continue
		}
		if id == nil || token == "" {
			continue
		}
		sess = model.Session{Identity: s.normalize(id), Role: p.Role, Token: token}
		break
	}

	s.mu.Lock()
	s.sess = sess
	s.ready = true
	s.mu.Unlock()

	if sess.Authenticated() {
		s.bearer.SetBearer(sess.Token)
		s.log.Info("session restored", zap.String("role", string(sess.Role)))
	} else {
		s.bearer.ClearBearer()
	}
	return errList
}

func (s *SessionStore) readPartition(ctx context.Context, p Partition) (model.Identity, string, error) {
	token, err := s.store.Get(ctx, p.TokenKey)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", p.TokenKey, err)
	}
	raw, err := s.store.Get(ctx, p.InfoKey)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", p.InfoKey, err)
	}
	var id model.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return nil, "", fmt.Errorf("%s: %w", p.InfoKey, err)
	}
	return id, token, nil
}

// Ready reports whether Initialize has completed.
func (s *SessionStore) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Current returns a copy of the active session.
func (s *SessionStore) Current() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.sess
	out.Identity = s.sess.Identity.Clone()
	return out
}

// Token returns the active bearer token, or "" for a guest.
func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.Token
}

// Authenticated reports whether a principal is signed in.
func (s *SessionStore) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.Authenticated()
}

// Subscribe registers l for session transitions and returns its cancel func.
func (s *SessionStore) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Login activates a session for role and persists it under the role's partition.
// Other partitions are left untouched. Persistence failures are returned but the
// in-memory session stays active.
func (s *SessionStore) Login(ctx context.Context, identity model.Identity, token string, role model.Role) error {
	p, ok := PartitionFor(role)
	if !ok {
		return fmt.Errorf("%w: %q", errs.ErrInvalidRole, role)
	}
	if token == "" || identity == nil {
		return fmt.Errorf("%w: identity and token are required", errs.ErrValidation)
	}
	id := s.normalize(identity)
	if role == model.RoleAdmin {
		id["role"] = string(model.RoleAdmin)
	}
	next := model.Session{Identity: id, Role: role, Token: token}

	s.mu.Lock()
	prev := s.sess
	s.sess = next
	s.ready = true
	s.mu.Unlock()

	s.bearer.SetBearer(token)
	err := s.persist(ctx, p, id, token)
	s.log.Info("session started", zap.String("role", string(role)))
	s.notify(ctx, prev, next)
	return err
}

// Logout clears the active role's partition and returns to the guest state.
func (s *SessionStore) Logout(ctx context.Context) error {
	s.mu.Lock()
	prev := s.sess
	s.sess = model.GuestSession()
	s.mu.Unlock()

	s.bearer.ClearBearer()
	if !prev.Authenticated() {
		return nil
	}
	p, _ := PartitionFor(prev.Role)
	err := multierr.Combine(
		s.store.Remove(ctx, p.InfoKey),
		s.store.Remove(ctx, p.TokenKey),
	)
	s.log.Info("session ended", zap.String("role", string(prev.Role)))
	s.notify(ctx, prev, model.GuestSession())
	return err
}

// Expire logs out when token is still the active one. It is the reaction to
// the server rejecting token; a stale rejection for an older session is ignored.
func (s *SessionStore) Expire(ctx context.Context, token, reason string) {
	if token == "" || s.Token() != token {
		return
	}
	s.log.Warn("session expired", zap.String("reason", reason))
	if err := s.Logout(ctx); err != nil {
		s.log.Warn("session cleanup failed", zap.Error(err))
	}
}

// UpdateIdentity shallow-merges patch into the identity and re-persists it.
// Without an active session it does nothing.
func (s *SessionStore) UpdateIdentity(ctx context.Context, patch model.Identity) error {
	s.mu.Lock()
	if !s.sess.Authenticated() {
		s.mu.Unlock()
		return nil
	}
	s.sess.Identity = s.normalize(s.sess.Identity.Merge(patch))
	cur := s.sess
	s.mu.Unlock()

	p, _ := PartitionFor(cur.Role)
	return s.persistInfo(ctx, p, cur.Identity)
}

// Refresh replaces the identity with the server's copy. On failure the local
// identity stays in effect. A response that arrives after the session changed is
// discarded with errs.ErrStaleResponse.
func (s *SessionStore) Refresh(ctx context.Context) error {
	cur := s.Current()
	if !cur.Authenticated() {
		return errs.ErrNoSession
	}
	id, err := s.profiles.Whoami(ctx, cur.Role)
	if err != nil {
		s.log.Warn("session refresh failed", zap.String("role", string(cur.Role)), zap.Error(err))
		return fmt.Errorf("refresh: %w", err)
	}
	if len(id) == 0 {
		return fmt.Errorf("refresh: empty profile")
	}
	return s.applyIdentity(ctx, cur.Token, id, false)
}

// SaveProfile writes patch to the server and applies the identity it returns.
func (s *SessionStore) SaveProfile(ctx context.Context, patch model.Identity) (model.Identity, error) {
	cur := s.Current()
	if !cur.Authenticated() {
		return nil, errs.ErrNoSession
	}
	id, err := s.profiles.UpdateProfile(ctx, cur.Role, patch)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if len(id) == 0 {
		id = patch
	}
	if err := s.applyIdentity(ctx, cur.Token, id, true); err != nil {
		return nil, err
	}
	return s.Current().Identity, nil
}

// applyIdentity installs id for the session that issued token, either replacing
// the identity wholesale or merging id into it.
func (s *SessionStore) applyIdentity(ctx context.Context, token string, id model.Identity, merge bool) error {
	s.mu.Lock()
	if s.sess.Token != token {
		s.mu.Unlock()
		return errs.ErrStaleResponse
	}
	if merge {
		id = s.sess.Identity.Merge(id)
	}
	merged := s.normalize(id)
	if s.sess.Role == model.RoleAdmin {
		merged["role"] = string(model.RoleAdmin)
	}
	s.sess.Identity = merged
	cur := s.sess
	s.mu.Unlock()

	p, _ := PartitionFor(cur.Role)
	return s.persistInfo(ctx, p, cur.Identity)
}

func (s *SessionStore) persist(ctx context.Context, p Partition, id model.Identity, token string) error {
	return multierr.Combine(
		s.persistInfo(ctx, p, id),
		s.store.Set(ctx, p.TokenKey, token),
	)
}

func (s *SessionStore) persistInfo(ctx context.Context, p Partition, id model.Identity) error {
	raw, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	return s.store.Set(ctx, p.InfoKey, string(raw))
}

func (s *SessionStore) notify(ctx context.Context, prev, next model.Session) {
	if prev.Authenticated() == next.Authenticated() && prev.Token == next.Token {
		return
	}
	s.mu.RLock()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.RUnlock()
	for _, l := range ls {
		s.call(ctx, l, prev, next)
	}
}

// call runs one listener; a panicking listener is logged and the rest still run.
func (s *SessionStore) call(ctx context.Context, l Listener, prev, next model.Session) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("session listener panic",
				zap.Any("reason", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	l(ctx, prev, next)
}

// normalize returns a copy of id with image paths made absolute against the asset host.
func (s *SessionStore) normalize(id model.Identity) model.Identity {
	out := id.Clone()
	if out == nil {
		out = model.Identity{}
	}
	for _, f := range imageFields {
		if v, ok := out[f].(string); ok {
			out[f] = AbsoluteImage(s.assetBase, v)
		}
	}
	return out
}

// AbsoluteImage resolves a server-relative image path against base. URLs that
// already start with "http" and empty paths are returned unchanged.
func AbsoluteImage(base, path string) string {
	if path == "" || strings.HasPrefix(path, "http") {
		return path
	}
	p := strings.ReplaceAll(path, `\`, "/")
	return base + "/" + strings.TrimLeft(p, "/")
}
