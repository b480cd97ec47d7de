package httpsvc

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func (s *Server) addCartItem(w http.ResponseWriter, r *http.Request) {
	var item domain.CartItem
	if err := s.decodeJSON(w, r, &item); err != nil {
		s.writeError(w, r, "add cart item", err)
		return
	}
	if err := s.svc.Cart.Add(r.Context(), item); err != nil {
		s.writeError(w, r, "add cart item", err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Item added to cart"})
}

func (s *Server) listCart(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Cart.ListByUser(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		s.writeError(w, r, "list cart", err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (s *Server) removeCartItem(w http.ResponseWriter, r *http.Request) {
	err := s.svc.Cart.Remove(r.Context(), chi.URLParam(r, "email"), chi.URLParam(r, "productId"))
	if err != nil {
		s.writeError(w, r, "remove cart item", err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Item removed from cart"})
}
