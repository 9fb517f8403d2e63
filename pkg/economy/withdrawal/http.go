package withdrawal

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "github.com/kamyabi/economy-engine/pkg/app/errors"
	apphttp "github.com/kamyabi/economy-engine/pkg/app/http"
	"github.com/kamyabi/economy-engine/pkg/auth"
	"github.com/kamyabi/economy-engine/pkg/economy"
)

const defaultListLimit = 20

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service  Service
	logger   *zap.Logger
	validate *validator.Validate
}

func newHTTP(service Service, logger *zap.Logger) *HTTP {
	return &HTTP{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the client-facing withdrawal endpoints
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := newHTTP(service, logger)

	r.Post("/request", apphttp.HandleError(h.request))
	r.Get("/", apphttp.HandleError(h.list))
}

// RegisterAdminRoutes registers the admin review endpoints
func RegisterAdminRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := newHTTP(service, logger)

	r.Get("/", apphttp.HandleError(h.listAll))
	r.Get("/pending", apphttp.HandleError(h.listPending))
	r.Post("/{id}/approve", apphttp.HandleError(h.approve))
	r.Post("/{id}/reject", apphttp.HandleError(h.reject))
}

type requestBody struct {
	Method        string `json:"method" validate:"required"`
	Amount        int64  `json:"amount" validate:"required,gt=0"`
	AccountNumber string `json:"account_number" validate:"required"`
	AccountName   string `json:"account_name"`
}

// request handles HTTP requests
func (h *HTTP) request(w http.ResponseWriter, r *http.Request) error {
	uid, ok := auth.UIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	var body requestBody
	if err := h.decode(r, &body); err != nil {
		return err
	}

	result, err := h.service.Request(r.Context(), uid, &Request{
		Method:        economy.WithdrawalMethod(body.Method),
		Amount:        body.Amount,
		AccountNumber: body.AccountNumber,
		AccountName:   body.AccountName,
	})
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusCreated, result)
	return nil
}

// list handles HTTP requests
func (h *HTTP) list(w http.ResponseWriter, r *http.Request) error {
	uid, ok := auth.UIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	limit, err := parseLimit(r)
	if err != nil {
		return err
	}

	withdrawals, err := h.service.List(r.Context(), uid, limit)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, withdrawals)
	return nil
}

// listPending handles HTTP requests
func (h *HTTP) listPending(w http.ResponseWriter, r *http.Request) error {
	limit, err := parseLimit(r)
	if err != nil {
		return err
	}

	withdrawals, err := h.service.ListPending(r.Context(), limit)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, withdrawals)
	return nil
}

// listAll handles HTTP requests
func (h *HTTP) listAll(w http.ResponseWriter, r *http.Request) error {
	limit, err := parseLimit(r)
	if err != nil {
		return err
	}

	status := economy.WithdrawalStatus(r.URL.Query().Get("status"))
	withdrawals, err := h.service.ListAll(r.Context(), status, limit)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, withdrawals)
	return nil
}

// approve handles HTTP requests
func (h *HTTP) approve(w http.ResponseWriter, r *http.Request) error {
	adminUID, ok := auth.UIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	id := chi.URLParam(r, "id")
	result, err := h.service.Approve(r.Context(), id, adminUID)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, result)
	return nil
}

type rejectBody struct {
	Reason string `json:"reason" validate:"required"`
}

// reject handles HTTP requests
func (h *HTTP) reject(w http.ResponseWriter, r *http.Request) error {
	adminUID, ok := auth.UIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	var body rejectBody
	if err := h.decode(r, &body); err != nil {
		return err
	}

	id := chi.URLParam(r, "id")
	result, err := h.service.Reject(r.Context(), id, adminUID, body.Reason)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, result)
	return nil
}

func (h *HTTP) decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}
	if err := h.validate.Struct(dst); err != nil {
		return apperrors.BadRequestError(err, "missing or invalid fields")
	}
	return nil
}

func parseLimit(r *http.Request) (int, error) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			return 0, apperrors.BadRequestError(err, "limit must be an integer between 1 and 100")
		}
		limit = parsed
	}
	return limit, nil
}

func (h *HTTP) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
