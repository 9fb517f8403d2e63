package security

import (
	"encoding/json"
	"io"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/kamyabi/economy-engine/pkg/app/errors"
	apphttp "github.com/kamyabi/economy-engine/pkg/app/http"
	"github.com/kamyabi/economy-engine/pkg/auth"
	"github.com/kamyabi/economy-engine/pkg/economy"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers the client-facing security endpoints
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Post("/attest", apphttp.HandleError(h.attest))
	r.Post("/report", apphttp.HandleError(h.report))
}

// RegisterAdminRoutes registers the admin ban management endpoints
func RegisterAdminRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Post("/{uid}/ban", apphttp.HandleError(h.adminBan))
	r.Post("/{uid}/unban", apphttp.HandleError(h.adminUnban))
	r.Get("/{uid}/ban", apphttp.HandleError(h.getBan))
}

type attestBody struct {
	IntegrityToken    string      `json:"integrity_token"`
	DeviceFingerprint Fingerprint `json:"device_fingerprint"`
	AppVersion        string      `json:"app_version"`
	DetectedIssues    []string    `json:"detected_issues"`
}

// attest handles HTTP requests
func (h *HTTP) attest(w http.ResponseWriter, r *http.Request) error {
	uid, ok := auth.UIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	var body attestBody
	if err := decode(r, &body); err != nil {
		return err
	}

	decision, err := h.service.Attest(r.Context(), uid, &AttestRequest{
		IntegrityToken: body.IntegrityToken,
		Fingerprint:    body.DeviceFingerprint,
		AppVersion:     body.AppVersion,
		DetectedIssues: body.DetectedIssues,
		ClientIP:       clientIP(r),
	})
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, decision)
	return nil
}

type reportBody struct {
	Violations []string       `json:"violations"`
	Evidence   map[string]any `json:"evidence"`
}

// report handles HTTP requests
func (h *HTTP) report(w http.ResponseWriter, r *http.Request) error {
	uid, ok := auth.UIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	var body reportBody
	if err := decode(r, &body); err != nil {
		return err
	}

	decision, err := h.service.Report(r.Context(), uid, &ViolationReport{
		Violations: body.Violations,
		Evidence:   body.Evidence,
	})
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, decision)
	return nil
}

type adminBanBody struct {
	Reason   string         `json:"reason"`
	Evidence map[string]any `json:"evidence"`
}

// adminBan handles HTTP requests
func (h *HTTP) adminBan(w http.ResponseWriter, r *http.Request) error {
	adminUID, ok := auth.UIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	var body adminBanBody
	if err := decode(r, &body); err != nil {
		return err
	}

	uid := chi.URLParam(r, "uid")
	if err := h.service.AdminBan(r.Context(), uid, adminUID, economy.BanReason(body.Reason), body.Evidence); err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, map[string]any{"banned": true, "uid": uid})
	return nil
}

// adminUnban handles HTTP requests
func (h *HTTP) adminUnban(w http.ResponseWriter, r *http.Request) error {
	adminUID, ok := auth.UIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	uid := chi.URLParam(r, "uid")
	if err := h.service.AdminUnban(r.Context(), uid, adminUID); err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, map[string]any{"banned": false, "uid": uid})
	return nil
}

// getBan handles HTTP requests
func (h *HTTP) getBan(w http.ResponseWriter, r *http.Request) error {
	uid := chi.URLParam(r, "uid")
	ban, err := h.service.GetBan(r.Context(), uid)
	if err != nil {
		return err
	}
	if ban == nil {
		return apperrors.ResourceNotFoundError(nil, "no ban record for account")
	}

	writeJSON(w, http.StatusOK, ban)
	return nil
}

func decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}
	return nil
}

// clientIP extracts the caller address set by the RealIP middleware
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
