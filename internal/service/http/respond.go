package httpsvc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// errorResponse — тело ответа об ошибке.
type errorResponse struct {
	Err string `json:"err"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Err: message})
}

// statusForError сопоставляет доменную ошибку с HTTP-статусом и текстом для клиента.
// Подробности внутренних ошибок клиенту не отдаются.
func statusForError(err error) (int, string) {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrWebhookSignature):
		return http.StatusBadRequest, err.Error()
	case domain.IsNotFound(err):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrPaymentsDisabled):
		return http.StatusServiceUnavailable, err.Error()
	default:
		return http.StatusInternalServerError, genericErrorMessage
	}
}

// writeError логирует ошибку и отправляет клиенту ответ по таблице statusForError.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, message := statusForError(err)

	entry := s.logger.WithError(err).WithFields(log.Fields{
		"op":         op,
		"status":     status,
		"request_id": middleware.GetReqID(r.Context()),
	})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Info("request rejected")
	}

	respondError(w, status, message)
}

// decodeJSON читает JSON-тело с ограничением размера.
// Ошибки разбора считаются ошибками валидации.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", domain.ErrValidation, err)
	}
	return nil
}
