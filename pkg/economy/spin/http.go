package spin

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/kamyabi/economy-engine/pkg/app/errors"
	apphttp "github.com/kamyabi/economy-engine/pkg/app/http"
	"github.com/kamyabi/economy-engine/pkg/auth"
)

const defaultHistoryLimit = 20

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers spin endpoints on the given chi router
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Post("/spin", apphttp.HandleError(h.spin))
	r.Get("/spin/history", apphttp.HandleError(h.history))
}

// spin handles HTTP requests
func (h *HTTP) spin(w http.ResponseWriter, r *http.Request) error {
	uid, ok := auth.UIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	outcome, err := h.service.Spin(r.Context(), uid)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, outcome)
	return nil
}

// history handles HTTP requests
func (h *HTTP) history(w http.ResponseWriter, r *http.Request) error {
	uid, ok := auth.UIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			return apperrors.BadRequestError(err, "limit must be an integer between 1 and 100")
		}
		limit = parsed
	}

	results, err := h.service.History(r.Context(), uid, limit)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, results)
	return nil
}

func (h *HTTP) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
