package task

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "github.com/kamyabi/economy-engine/pkg/app/errors"
	apphttp "github.com/kamyabi/economy-engine/pkg/app/http"
	"github.com/kamyabi/economy-engine/pkg/auth"
	"github.com/kamyabi/economy-engine/pkg/economy"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service  Service
	logger   *zap.Logger
	validate *validator.Validate
}

// RegisterRoutes registers task endpoints on the given chi router
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}

	r.Post("/claim", apphttp.HandleError(h.claim))
	r.Get("/status", apphttp.HandleError(h.status))
}

type claimRequest struct {
	Task string `json:"task" validate:"required"`
}

// claim handles HTTP requests
func (h *HTTP) claim(w http.ResponseWriter, r *http.Request) error {
	uid, ok := auth.UIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}

	var req claimRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}
	if err := h.validate.Struct(&req); err != nil {
		return apperrors.BadRequestError(err, "task is required")
	}

	result, err := h.service.Claim(r.Context(), uid, economy.TaskSlot(req.Task))
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, result)
	return nil
}

// status handles HTTP requests
func (h *HTTP) status(w http.ResponseWriter, r *http.Request) error {
	uid, ok := auth.UIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	status, err := h.service.Status(r.Context(), uid)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, status)
	return nil
}

func (h *HTTP) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
