package apitest

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

var envelopes = map[string]string{"user": "user", "seller": "seller", "admin": "admin"}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.intercept)
	r.Route(Prefix, func(r chi.Router) {
		r.Post("/auth/login", s.login("user"))
		r.Post("/seller/login", s.login("seller"))
		r.Post("/admin/login", s.login("admin"))
		r.Post("/auth/register", s.register("user"))
		r.Post("/seller/register", s.register("seller"))
		r.Post("/admin/register", s.register("admin"))

		r.Get("/users/profile", s.profile("user"))
		r.Get("/profile/seller", s.profile("seller"))
		r.Get("/profile/admin", s.profile("admin"))
		r.Put("/users/profile", s.updateProfile("user"))
		r.Put("/seller/profile", s.updateProfile("seller"))
		r.Put("/admin/profile", s.updateProfile("admin"))

		r.Get("/products/{id}", s.product)

		r.Get("/cart", s.getCart)
		r.Post("/cart/add", s.addCart)
		r.Put("/cart/{id}", s.updateCart)
		r.Delete("/cart/{id}", s.removeCart)
		r.Delete("/cart", s.clearCart)
	})
	return r
}

func (s *Server) login(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			message(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		acc, ok := s.accounts[accKey(role, in.Email)]
		if !ok || acc.password != in.Password {
			message(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			envelopes[role]: copyMap(acc.identity),
			"token":         s.issue(acc),
		})
	}
}

func (s *Server) register(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
			ShopName string `json:"shopName"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" || in.Password == "" {
			message(w, http.StatusBadRequest, "Please provide all required fields")
			return
		}
		if role == "seller" && in.ShopName == "" {
			message(w, http.StatusBadRequest, "Shop name is required")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, exists := s.accounts[accKey(role, in.Email)]; exists {
			message(w, http.StatusBadRequest, "User already exists")
			return
		}
		extra := map[string]any{"name": in.Name}
		if in.ShopName != "" {
			extra["shopName"] = in.ShopName
		}
		id := s.addAccount(role, in.Email, in.Password, extra)
		if role == "user" {
			writeJSON(w, http.StatusCreated, map[string]any{"message": "User registered successfully", "user": id})
			return
		}
		acc := s.accounts[accKey(role, in.Email)]
		writeJSON(w, http.StatusCreated, map[string]any{envelopes[role]: id, "token": s.issue(acc)})
	}
}

func (s *Server) profile(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, acc, ok := s.principal(r)
		if !ok {
			message(w, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}
		if acc.role != role {
			message(w, http.StatusForbidden, "Access denied")
			return
		}
		writeJSON(w, http.StatusOK, copyMap(acc.identity))
	}
}

func (s *Server) updateProfile(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch map[string]any
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			message(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		_, acc, ok := s.principal(r)
		if !ok {
			message(w, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}
		if acc.role != role {
			message(w, http.StatusForbidden, "Access denied")
			return
		}
		for k, v := range patch {
			if k == "_id" || k == "email" || k == "password" {
				continue
			}
			acc.identity[k] = v
		}
		out := map[string]any{envelopes[role]: copyMap(acc.identity)}
		if role != "user" {
			out["success"] = true
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) wireProduct(p Product) map[string]any {
	return map[string]any{
		"_id":    p.ID,
		"name":   p.Name,
		"price":  p.Price,
		"images": p.Images,
		"vendor": map[string]any{"_id": p.VendorID},
	}
}

func (s *Server) product(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[chi.URLParam(r, "id")]
	if !ok {
		message(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, s.wireProduct(p))
}

// cartBody renders a cart. Caller holds mu.
func (s *Server) cartBody(key string) map[string]any {
	lines := make([]map[string]any, 0, len(s.carts[key]))
	for _, l := range s.carts[key] {
		p, ok := s.products[l.productID]
		if !ok {
			p = Product{ID: l.productID, Price: decimal.Zero, VendorID: l.vendorID}
		}
		lines = append(lines, map[string]any{
			"product":  s.wireProduct(p),
			"vendorId": l.vendorID,
			"quantity": l.quantity,
		})
	}
	return map[string]any{"cart": lines}
}

// cartOwner authenticates a cart call. Caller holds mu.
func (s *Server) cartOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	key, _, ok := s.principal(r)
	if !ok {
		message(w, http.StatusUnauthorized, "Not authorized, token failed")
		return "", false
	}
	return key, true
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.cartOwner(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.cartBody(key))
}

func (s *Server) addCart(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ProductID string `json:"productId"`
		VendorID  string `json:"vendorId"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.ProductID == "" || in.Quantity < 1 {
		message(w, http.StatusBadRequest, "Invalid cart item")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.cartOwner(w, r)
	if !ok {
		return
	}
	if _, known := s.products[in.ProductID]; !known {
		message(w, http.StatusNotFound, "Product not found")
		return
	}
	lines := s.carts[key]
	found := false
	for i := range lines {
		if lines[i].productID == in.ProductID {
			lines[i].quantity += in.Quantity
			found = true
		}
	}
	if !found {
		vendor := in.VendorID
		if vendor == "" {
			vendor = s.products[in.ProductID].VendorID
		}
		lines = append(lines, line{productID: in.ProductID, vendorID: vendor, quantity: in.Quantity})
	}
	s.carts[key] = lines
	writeJSON(w, http.StatusOK, s.cartBody(key))
}

func (s *Server) updateCart(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Quantity < 1 {
		message(w, http.StatusBadRequest, "Quantity must be at least 1")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.cartOwner(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	lines := s.carts[key]
	found := false
	for i := range lines {
		if lines[i].productID == id {
			lines[i].quantity = in.Quantity
			found = true
		}
	}
	if !found {
		message(w, http.StatusNotFound, "Item not in cart")
		return
	}
	if s.omitCart {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Cart updated"})
		return
	}
	writeJSON(w, http.StatusOK, s.cartBody(key))
}

func (s *Server) removeCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.cartOwner(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	lines := s.carts[key][:0:0]
	for _, l := range s.carts[key] {
		if l.productID != id {
			lines = append(lines, l)
		}
	}
	s.carts[key] = lines
	writeJSON(w, http.StatusOK, s.cartBody(key))
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.cartOwner(w, r)
	if !ok {
		return
	}
	delete(s.carts, key)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Cart cleared"})
}
