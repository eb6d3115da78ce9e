// Package apitest runs an in-process fake of the storefront backend for tests.
package apitest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
)

// Prefix is the API mount point; URL() already includes it.
const Prefix = "/api"

var signingKey = []byte("apitest-signing-key")

// Request is one call the server received.
type Request struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	Body          []byte
}

// Product is a seeded catalog entry.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Images   []string
	VendorID string
}

type account struct {
	role     string
	password string
	identity map[string]any
}

type line struct {
	productID string
	vendorID  string
	quantity  int
}

type hold struct {
	reached chan struct{}
	release chan struct{}
}

// Server is the fake backend. All state is guarded by mu.
type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	accounts map[string]*account // role|email
	tokens   map[string]string   // token -> role|email
	products map[string]Product
	carts    map[string][]line // role|email
	fails    map[string][]int
	holds    map[string]*hold
	requests []Request
	omitCart bool
}

// New starts a server; it is closed when the test ends if t is non-nil.
func New(t interface{ Cleanup(func()) }) *Server {
	s := &Server{
		accounts: map[string]*account{},
		tokens:   map[string]string{},
		products: map[string]Product{},
		carts:    map[string][]line{},
		fails:    map[string][]int{},
		holds:    map[string]*hold{},
	}
	s.srv = httptest.NewServer(s.routes())
	if t != nil {
		t.Cleanup(s.Close)
	}
	return s
}

// URL is the API base, e.g. http://127.0.0.1:1234/api.
func (s *Server) URL() string { return s.srv.URL + Prefix }

// AssetURL is the asset host without the API prefix.
func (s *Server) AssetURL() string { return s.srv.URL }

// Close stops the server and releases any held handlers.
func (s *Server) Close() {
	s.mu.Lock()
	for k, h := range s.holds {
		closeOnce(h.release)
		delete(s.holds, k)
	}
	s.mu.Unlock()
	s.srv.Close()
}

func closeOnce(ch chan struct{}) {
	select {
	case <-ch:
	default:
		close(ch)
	}
}

func accKey(role, email string) string { return role + "|" + strings.ToLower(email) }

// SeedAccount registers an account directly. Extra identity fields are kept.
func (s *Server) SeedAccount(role, email, password string, identity map[string]any) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addAccount(role, email, password, identity)
}

func (s *Server) addAccount(role, email, password string, identity map[string]any) map[string]any {
	id := map[string]any{}
	for k, v := range identity {
		id[k] = v
	}
	if _, ok := id["_id"]; !ok {
		id["_id"] = uuid.Must(uuid.NewV4()).String()
	}
	id["email"] = email
	if _, ok := id["name"]; !ok {
		id["name"] = strings.Split(email, "@")[0]
	}
	s.accounts[accKey(role, email)] = &account{role: role, password: password, identity: id}
	return copyMap(id)
}

// SeedProduct adds a catalog product.
func (s *Server) SeedProduct(p Product) {
	s.mu.Lock()
	s.products[p.ID] = p
	s.mu.Unlock()
}

// SeedCart replaces the server cart of an account with quantities by product id.
func (s *Server) SeedCart(role, email string, qty map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var lines []line
	for id, q := range qty {
		lines = append(lines, line{productID: id, vendorID: s.products[id].VendorID, quantity: q})
	}
	s.carts[accKey(role, email)] = lines
}

// CartOf returns quantities by product id for an account.
func (s *Server) CartOf(role, email string) map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]int{}
	for _, l := range s.carts[accKey(role, email)] {
		out[l.productID] = l.quantity
	}
	return out
}

// OmitCartOnUpdate makes PUT /cart/{id} answer without a cart body.
func (s *Server) OmitCartOnUpdate(on bool) {
	s.mu.Lock()
	s.omitCart = on
	s.mu.Unlock()
}

// Revoke invalidates a token so subsequent calls with it get 401.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// Fail makes the next request matching method and path (relative to Prefix) answer with status.
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	k := method + " " + path
	s.fails[k] = append(s.fails[k], status)
	s.mu.Unlock()
}

// Hold makes the next matching request apply its effect and then block before
// responding. reached is closed once the effect is applied; release lets it answer.
func (s *Server) Hold(method, path string) (reached <-chan struct{}, release func()) {
	h := &hold{reached: make(chan struct{}), release: make(chan struct{})}
	s.mu.Lock()
	s.holds[method+" "+path] = h
	s.mu.Unlock()
	return h.reached, func() { closeOnce(h.release) }
}

// Requests returns a copy of everything received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// --- plumbing ---

type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (b *bufferedWriter) Header() http.Header { return b.header }
func (b *bufferedWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}
func (b *bufferedWriter) WriteHeader(code int) { b.status = code }

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		path := strings.TrimPrefix(r.URL.Path, Prefix)
		k := r.Method + " " + path

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
			Body:          body,
		})
		var status int
		if q := s.fails[k]; len(q) > 0 {
			status, s.fails[k] = q[0], q[1:]
		}
		h := s.holds[k]
		delete(s.holds, k)
		s.mu.Unlock()

		if status != 0 {
			writeJSON(w, status, map[string]any{"message": fmt.Sprintf("injected %d", status)})
			return
		}
		if h == nil {
			next.ServeHTTP(w, r)
			return
		}

		bw := &bufferedWriter{header: http.Header{}}
		next.ServeHTTP(bw, r)
		close(h.reached)
		select {
		case <-h.release:
		case <-r.Context().Done():
			return
		}
		for key, v := range bw.header {
			w.Header()[key] = v
		}
		if bw.status == 0 {
			bw.status = http.StatusOK
		}
		w.WriteHeader(bw.status)
		_, _ = w.Write(bw.body.Bytes())
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func message(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"message": msg})
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *Server) issue(acc *account) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   acc.identity["_id"],
		"role": acc.role,
		"jti":  uuid.Must(uuid.NewV4()).String(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	s.tokens[signed] = accKey(acc.role, acc.identity["email"].(string))
	return signed
}

// principal resolves the bearer token. Caller holds mu.
func (s *Server) principal(r *http.Request) (string, *account, bool) {
	tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || tok == "" {
		return "", nil, false
	}
	key, ok := s.tokens[tok]
	if !ok {
		return "", nil, false
	}
	acc, ok := s.accounts[key]
	return key, acc, ok
}
