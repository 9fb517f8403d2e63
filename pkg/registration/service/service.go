// Package service implements the registration business logic: account
// creation, referral code issuance, and the frozen ancestor chain.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kamyabi/economy-engine/internal/metrics"
	apperrors "github.com/kamyabi/economy-engine/pkg/app/errors"
	"github.com/kamyabi/economy-engine/pkg/economy"
	"github.com/kamyabi/economy-engine/pkg/economy/referral"
	"github.com/kamyabi/economy-engine/pkg/registration"
)

// codeAttempts bounds retries when a generated referral code collides
const codeAttempts = 5

// Store is the narrow data-access interface for the registration service
type Store interface {
	GetAccount(ctx context.Context, uid string) (*economy.Account, error)
	GetAccountByReferralCode(ctx context.Context, code string) (*economy.Account, error)
	GetReferralRecord(ctx context.Context, uid string) (*economy.ReferralRecord, error)
	CreateAccount(ctx context.Context, acct *economy.Account, rec *economy.ReferralRecord) error
}

// Service defines the interface for the registration business logic
type Service interface {
	Register(ctx context.Context, uid, phone string, req *registration.RegisterRequest) (*registration.RegisterResponse, error)
	Me(ctx context.Context, uid string) (*registration.ProfileResponse, error)
}

type registrationService struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new registration service
func NewService(store Store, logger *zap.Logger) Service {
	return &registrationService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Register creates the account with a fresh referral code and, when an
// inviter code was supplied, freezes the ancestor chain and pays the
// inviter's signup bonus. The account, its referral record, and the
// inviter side effects all commit in one transaction.
func (s *registrationService) Register(
	ctx context.Context,
	uid, phone string,
	req *registration.RegisterRequest,
) (*registration.RegisterResponse, error) {
	var inviterUID string
	inviterChain := map[int]string{}

	if req.ReferralCode != "" {
		inviter, err := s.store.GetAccountByReferralCode(ctx, req.ReferralCode)
		if err != nil {
			if errors.Is(err, economy.ErrReferralCodeNotFound) {
				return nil, apperrors.BadRequestError(err, "referral code not found")
			}
			return nil, fmt.Errorf("failed to resolve referral code: %w", err)
		}
		if inviter.UID == uid {
			return nil, apperrors.BadRequestError(nil, "cannot use your own referral code")
		}

		inviterRec, err := s.store.GetReferralRecord(ctx, inviter.UID)
		if err != nil {
			return nil, fmt.Errorf("failed to load inviter referral record: %w", err)
		}
		inviterUID = inviter.UID
		inviterChain = inviterRec.Chain
	}

	code, err := s.uniqueReferralCode(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	acct := &economy.Account{
		UID:          uid,
		Phone:        phone,
		Status:       economy.StatusActive,
		TaskProgress: economy.NewTaskProgress(),
		NextCycleAt:  now,
		NextTaskAt:   now,
		ReferralCode: code,
		InvitedBy:    inviterUID,
		CreatedAt:    now,
	}
	rec := &economy.ReferralRecord{
		UID:        uid,
		InviterUID: inviterUID,
		Chain:      referral.BuildChain(inviterUID, inviterChain),
	}

	if err := s.store.CreateAccount(ctx, acct, rec); err != nil {
		if errors.Is(err, economy.ErrAccountExists) {
			return nil, apperrors.ConflictError(err, "account already registered")
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	metrics.RegistrationsTotal.WithLabelValues(strconv.FormatBool(inviterUID != "")).Inc()

	return &registration.RegisterResponse{
		UID:          acct.UID,
		Phone:        acct.Phone,
		Status:       string(acct.Status),
		Balance:      acct.Balance,
		ReferralCode: acct.ReferralCode,
		InvitedBy:    acct.InvitedBy,
		NextCycleAt:  acct.NextCycleAt,
		NextTaskAt:   acct.NextTaskAt,
	}, nil
}

// Me returns the caller's account summary together with the verified
// L1 invite count from the referral record.
func (s *registrationService) Me(ctx context.Context, uid string) (*registration.ProfileResponse, error) {
	acct, err := s.store.GetAccount(ctx, uid)
	if err != nil {
		if errors.Is(err, economy.ErrAccountNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "account not registered")
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	rec, err := s.store.GetReferralRecord(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to load referral record: %w", err)
	}

	progress := make(map[string]string, len(acct.TaskProgress))
	for slot, state := range acct.TaskProgress {
		progress[string(slot)] = string(state)
	}

	return &registration.ProfileResponse{
		UID:               acct.UID,
		Phone:             acct.Phone,
		Status:            string(acct.Status),
		Balance:           acct.Balance,
		TotalEarned:       acct.TotalEarned,
		ReferralCode:      acct.ReferralCode,
		InvitedBy:         acct.InvitedBy,
		TaskProgress:      progress,
		NextCycleAt:       acct.NextCycleAt,
		NextTaskAt:        acct.NextTaskAt,
		VerifiedInvitesL1: rec.VerifiedInvitesL1,
		CreatedAt:         acct.CreatedAt,
	}, nil
}

// uniqueReferralCode draws codes until one is unclaimed. The code space
// is large enough that more than one retry is already unusual.
func (s *registrationService) uniqueReferralCode(ctx context.Context) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := economy.NewReferralCode()
		if err != nil {
			return "", err
		}
		_, err = s.store.GetAccountByReferralCode(ctx, code)
		if errors.Is(err, economy.ErrReferralCodeNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check referral code: %w", err)
		}
		s.logger.Warn("referral code collision, retrying", zap.String("code", code))
	}
	return "", fmt.Errorf("failed to generate a unique referral code after %d attempts", codeAttempts)
}
