package httpsvc

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// saleRequest принимает также устаревшее написание идентификатора salesId.
type saleRequest struct {
	domain.Sale
	LegacySalesID string `json:"salesId,omitempty"`
}

func (r saleRequest) toSale() domain.Sale {
	sale := r.Sale
	if strings.TrimSpace(sale.SaleID) == "" {
		sale.SaleID = strings.TrimSpace(r.LegacySalesID)
	}
	return sale
}

type recordSaleResponse struct {
	Message string `json:"message"`
	SaleID  string `json:"saleId"`
}

func (s *Server) recordSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "record sale", err)
		return
	}

	saleID, err := s.svc.Sales.Record(r.Context(), req.toSale())
	if err != nil {
		s.writeError(w, r, "record sale", err)
		return
	}
	respondJSON(w, http.StatusOK, recordSaleResponse{Message: "Sale recorded", SaleID: saleID})
}

func (s *Server) listSales(w http.ResponseWriter, r *http.Request) {
	sales, err := s.svc.Sales.List(r.Context())
	if err != nil {
		s.writeError(w, r, "list sales", err)
		return
	}
	respondJSON(w, http.StatusOK, sales)
}

func (s *Server) listUserSales(w http.ResponseWriter, r *http.Request) {
	sales, err := s.svc.Sales.ListByUser(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		s.writeError(w, r, "list user sales", err)
		return
	}
	respondJSON(w, http.StatusOK, sales)
}

func (s *Server) deleteSale(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Sales.Delete(r.Context(), chi.URLParam(r, "saleId")); err != nil {
		s.writeError(w, r, "delete sale", err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Sale deleted"})
}
