package httpsvc

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const signatureHeader = "Stripe-Signature"

type webhookResponse struct {
	Received bool `json:"received"`
}

func (s *Server) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckoutRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "create checkout session", err)
		return
	}

	session, err := s.svc.Checkout.CreateSession(r.Context(), req)
	if err != nil {
		s.writeError(w, r, "create checkout session", err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// webhook передаёт сырое тело в обработчик: подпись считается по исходным байтам.
func (s *Server) webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		s.writeError(w, r, "webhook", fmt.Errorf("%w: read body: %v", domain.ErrValidation, err))
		return
	}

	if err := s.svc.Webhook.Handle(r.Context(), payload, r.Header.Get(signatureHeader)); err != nil {
		if errors.Is(err, domain.ErrWebhookSignature) {
			s.logger.WithError(err).Info("webhook rejected")
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprintf(w, "Webhook Error: %v", err)
			return
		}
		s.writeError(w, r, "webhook", err)
		return
	}
	respondJSON(w, http.StatusOK, webhookResponse{Received: true})
}
