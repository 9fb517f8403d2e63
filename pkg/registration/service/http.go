package service

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/kamyabi/economy-engine/pkg/app/errors"
	apphttp "github.com/kamyabi/economy-engine/pkg/app/http"
	"github.com/kamyabi/economy-engine/pkg/auth"
	"github.com/kamyabi/economy-engine/pkg/registration"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers HTTP endpoints for the registration service
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Post("/register", apphttp.HandleError(h.register))
	r.Get("/me", apphttp.HandleError(h.me))
}

// register handles HTTP requests
func (h *HTTP) register(w http.ResponseWriter, r *http.Request) error {
	uid, ok := auth.UIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}
	phone, _ := auth.PhoneFromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}

	var req registration.RegisterRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return apperrors.BadRequestError(err, "invalid JSON")
		}
	}

	resp, err := h.service.Register(r.Context(), uid, phone, &req)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusCreated, resp)
	return nil
}

// me handles HTTP requests
func (h *HTTP) me(w http.ResponseWriter, r *http.Request) error {
	uid, ok := auth.UIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	resp, err := h.service.Me(r.Context(), uid)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
