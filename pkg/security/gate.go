package security

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kamyabi/economy-engine/internal/metrics"
	apperrors "github.com/kamyabi/economy-engine/pkg/app/errors"
	"github.com/kamyabi/economy-engine/pkg/economy"
)

// Store is the narrow data-access interface for the attestation gate
type Store interface {
	GetAccount(ctx context.Context, uid string) (*economy.Account, error)
	GetDeviceBinding(ctx context.Context, key string) (*economy.DeviceBinding, error)
	UpsertDeviceBinding(ctx context.Context, b *economy.DeviceBinding) error
	BanAccount(ctx context.Context, ban *economy.Ban) error
	UnbanAccount(ctx context.Context, uid, adminUID string, now time.Time) error
	GetBan(ctx context.Context, uid string) (*economy.Ban, error)
}

// AttestRequest carries one startup or periodic attestation
type AttestRequest struct {
	IntegrityToken string
	Fingerprint    Fingerprint
	AppVersion     string
	DetectedIssues []string
	ClientIP       string
}

// ViolationReport carries a client-side tamper report
type ViolationReport struct {
	Violations []string
	Evidence   map[string]any
}

// Decision is the gate's answer to an attestation or report
type Decision struct {
	Allowed bool   `json:"allowed"`
	Banned  bool   `json:"banned"`
	Reason  string `json:"reason,omitempty"`
}

// Service defines the interface for the attestation gate
type Service interface {
	Attest(ctx context.Context, uid string, req *AttestRequest) (*Decision, error)
	Report(ctx context.Context, uid string, report *ViolationReport) (*Decision, error)
	AdminBan(ctx context.Context, uid, adminUID string, reason economy.BanReason, evidence map[string]any) error
	AdminUnban(ctx context.Context, uid, adminUID string) error
	GetBan(ctx context.Context, uid string) (*economy.Ban, error)
}

// violationReasons maps client-reported violation names onto ban reasons
var violationReasons = map[string]economy.BanReason{
	"root":           economy.BanRootDetected,
	"emulator":       economy.BanEmulatorDetected,
	"vpn":            economy.BanVPNDetected,
	"clone":          economy.BanCloneDetected,
	"parallel_space": economy.BanParallelSpaceDetected,
	"hooking":        economy.BanHookingDetected,
}

type gateService struct {
	store      Store
	verifier   IntegrityVerifier
	ipIntel    IPIntel
	credential CredentialAdmin
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a new attestation gate service
func NewService(
	store Store,
	verifier IntegrityVerifier,
	ipIntel IPIntel,
	credential CredentialAdmin,
	logger *zap.Logger,
) Service {
	return &gateService{
		store:      store,
		verifier:   verifier,
		ipIntel:    ipIntel,
		credential: credential,
		logger:     logger,
		now:        time.Now,
	}
}

// Attest runs the gate checks in strict order, short-circuiting on the
// first failure. Client-side detection is trusted for banning but never
// for allowing: a clean self-report still goes through the integrity
// token, IP reputation, and device binding checks.
func (s *gateService) Attest(ctx context.Context, uid string, req *AttestRequest) (*Decision, error) {
	acct, err := s.store.GetAccount(ctx, uid)
	if err != nil {
		return nil, wrapDomainErr(err)
	}

	// 1. Already banned: reject without writing new evidence.
	if acct.Status == economy.StatusBanned {
		metrics.AttestationsTotal.WithLabelValues("rejected").Inc()
		return &Decision{Banned: true, Reason: "account is banned"}, nil
	}

	// 2. Client self-reported violations ban instantly.
	if len(req.DetectedIssues) > 0 {
		reason := reasonForViolation(req.DetectedIssues[0])
		return s.ban(ctx, uid, reason, map[string]any{
			"detected_issues": req.DetectedIssues,
			"app_version":     req.AppVersion,
		})
	}

	// 3. Integrity token verification.
	if req.IntegrityToken == "" {
		return s.ban(ctx, uid, economy.BanIntegrityFailed, map[string]any{
			"detail": "missing integrity token",
		})
	}
	verdict, err := s.verifier.Verify(ctx, req.IntegrityToken)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	if !verdict.TokenValid || !verdict.DeviceIntegrity {
		return s.ban(ctx, uid, economy.BanIntegrityFailed, map[string]any{
			"token_valid":      verdict.TokenValid,
			"device_integrity": verdict.DeviceIntegrity,
		})
	}
	if !verdict.AppIntegrity {
		return s.ban(ctx, uid, economy.BanCloneDetected, map[string]any{
			"app_integrity": false,
		})
	}

	// 4. IP reputation. A lookup outage is logged and skipped; the
	// remaining checks still run.
	if req.ClientIP != "" {
		report, err := s.ipIntel.Lookup(ctx, req.ClientIP)
		if err != nil {
			s.logger.Warn("ip reputation lookup failed, skipping check",
				zap.String("uid", uid),
				zap.Error(err),
			)
		} else if report.Flagged() {
			return s.ban(ctx, uid, economy.BanVPNDetected, map[string]any{
				"ip":            req.ClientIP,
				"is_vpn":        report.IsVPN,
				"is_proxy":      report.IsProxy,
				"is_datacenter": report.IsDatacenter,
			})
		}
	}

	// 5. Device binding. A key bound to a different uid bans the
	// requesting uid; the earlier binding is untouched.
	key := req.Fingerprint.Key()
	existing, err := s.store.GetDeviceBinding(ctx, key)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	if existing != nil && existing.BoundUID != uid {
		return s.ban(ctx, uid, economy.BanMultiAccountDevice, map[string]any{
			"device_key": key,
		})
	}

	// 6. Full pass: create or refresh the binding.
	binding := &economy.DeviceBinding{
		Key:        key,
		BoundUID:   uid,
		LastSeen:   s.now(),
		LastIP:     req.ClientIP,
		AppVersion: req.AppVersion,
	}
	if err := s.store.UpsertDeviceBinding(ctx, binding); err != nil {
		if errors.Is(err, economy.ErrDeviceConflict) {
			// Lost the race against another uid binding the same key.
			return s.ban(ctx, uid, economy.BanMultiAccountDevice, map[string]any{
				"device_key": key,
			})
		}
		return nil, apperrors.GeneralError(err)
	}

	metrics.AttestationsTotal.WithLabelValues("allowed").Inc()
	return &Decision{Allowed: true}, nil
}

// Report processes a client-side tamper report. An empty violation list
// is a no-op acknowledgement.
func (s *gateService) Report(ctx context.Context, uid string, report *ViolationReport) (*Decision, error) {
	acct, err := s.store.GetAccount(ctx, uid)
	if err != nil {
		return nil, wrapDomainErr(err)
	}
	if acct.Status == economy.StatusBanned {
		return &Decision{Banned: true, Reason: "account is banned"}, nil
	}
	if len(report.Violations) == 0 {
		return &Decision{Allowed: true}, nil
	}

	evidence := map[string]any{"violations": report.Violations}
	for k, v := range report.Evidence {
		evidence[k] = v
	}
	return s.ban(ctx, uid, reasonForViolation(report.Violations[0]), evidence)
}

// AdminBan bans an account on an operator's decision
func (s *gateService) AdminBan(ctx context.Context, uid, adminUID string, reason economy.BanReason, evidence map[string]any) error {
	if reason == "" {
		reason = economy.BanAdminManual
	}
	_, err := s.banAs(ctx, uid, adminUID, reason, evidence)
	return err
}

// AdminUnban restores a banned account and re-enables its credential
func (s *gateService) AdminUnban(ctx context.Context, uid, adminUID string) error {
	if err := s.store.UnbanAccount(ctx, uid, adminUID, s.now()); err != nil {
		return wrapDomainErr(err)
	}
	if err := s.credential.Enable(ctx, uid); err != nil {
		// The account is restored; credential re-enable must be retried
		// manually if the admin backend was unreachable.
		s.logger.Error("failed to re-enable credential after unban",
			zap.String("uid", uid),
			zap.Error(err),
		)
		return apperrors.GeneralError(err)
	}
	s.logger.Info("account unbanned",
		zap.String("uid", uid),
		zap.String("admin_uid", adminUID),
	)
	return nil
}

// GetBan returns the ban record for an account, or nil when none exists
func (s *gateService) GetBan(ctx context.Context, uid string) (*economy.Ban, error) {
	return s.store.GetBan(ctx, uid)
}

func (s *gateService) ban(ctx context.Context, uid string, reason economy.BanReason, evidence map[string]any) (*Decision, error) {
	return s.banAs(ctx, uid, economy.SystemActor, reason, evidence)
}

// banAs writes the ban record, flips the account status, and disables
// the external credential. The credential disable is best-effort: the
// status flip already blocks every economy operation.
func (s *gateService) banAs(ctx context.Context, uid, actor string, reason economy.BanReason, evidence map[string]any) (*Decision, error) {
	ban := &economy.Ban{
		UID:      uid,
		Reason:   reason,
		Evidence: evidence,
		BannedAt: s.now(),
		BannedBy: actor,
	}
	if err := s.store.BanAccount(ctx, ban); err != nil {
		return nil, wrapDomainErr(err)
	}

	if err := s.credential.Disable(ctx, uid); err != nil {
		s.logger.Error("failed to disable credential for banned account",
			zap.String("uid", uid),
			zap.Error(err),
		)
	}

	metrics.BansTotal.WithLabelValues(string(reason), actor).Inc()
	metrics.AttestationsTotal.WithLabelValues("banned").Inc()
	s.logger.Warn("account banned",
		zap.String("uid", uid),
		zap.String("reason", string(reason)),
		zap.String("banned_by", actor),
	)
	return &Decision{Banned: true, Reason: string(reason)}, nil
}

func reasonForViolation(violation string) economy.BanReason {
	if reason, ok := violationReasons[violation]; ok {
		return reason
	}
	if reason := economy.BanReason(violation); knownReason(reason) {
		return reason
	}
	return economy.BanSuspiciousBehavior
}

func knownReason(reason economy.BanReason) bool {
	switch reason {
	case economy.BanRootDetected,
		economy.BanEmulatorDetected,
		economy.BanVPNDetected,
		economy.BanCloneDetected,
		economy.BanParallelSpaceDetected,
		economy.BanHookingDetected,
		economy.BanIntegrityFailed,
		economy.BanMultiAccountDevice,
		economy.BanAdminManual,
		economy.BanSuspiciousBehavior:
		return true
	default:
		return false
	}
}

func wrapDomainErr(err error) error {
	switch {
	case errors.Is(err, economy.ErrAccountNotFound):
		return apperrors.ResourceNotFoundError(err, err.Error())
	default:
		return err
	}
}
