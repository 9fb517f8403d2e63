package spin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kamyabi/economy-engine/internal/metrics"
	apperrors "github.com/kamyabi/economy-engine/pkg/app/errors"
	"github.com/kamyabi/economy-engine/pkg/economy"
)

// Store is the narrow data-access interface for the spin service
type Store interface {
	GetAccount(ctx context.Context, uid string) (*economy.Account, error)
	CommitSpin(ctx context.Context, result *economy.SpinResult, now time.Time) (*economy.Account, error)
	ListSpinResults(ctx context.Context, uid string, limit int) ([]*economy.SpinResult, error)
}

// Cascader hands a paid reward off for asynchronous commission fan-out
type Cascader interface {
	Enqueue(sourceUID string, reward int64, ref string)
}

// Outcome is returned to the client after a resolved draw
type Outcome struct {
	SpinID      string    `json:"spin_id"`
	Prize       int64     `json:"prize"`
	Label       string    `json:"label"`
	Balance     int64     `json:"balance"`
	NextTaskAt  time.Time `json:"next_task_at"`
	NextCycleAt time.Time `json:"next_cycle_at"`
}

// Service defines the interface for the spin business logic
type Service interface {
	Spin(ctx context.Context, uid string) (*Outcome, error)
	History(ctx context.Context, uid string, limit int) ([]*economy.SpinResult, error)
}

type spinService struct {
	store    Store
	cascader Cascader
	logger   *zap.Logger
	roll     func() (int, error)
	now      func() time.Time
}

// NewService creates a new spin service
func NewService(store Store, cascader Cascader, logger *zap.Logger) Service {
	return &spinService{
		store:    store,
		cascader: cascader,
		logger:   logger,
		roll:     SecureRoll,
		now:      time.Now,
	}
}

// Spin draws the wheel and commits the outcome against the task_4 slot.
// The draw happens before the commit, so an aborted transaction discards
// the prize along with the slot transition; nothing is ever paid without
// the audit record.
func (s *spinService) Spin(ctx context.Context, uid string) (*Outcome, error) {
	now := s.now()

	acct, err := s.store.GetAccount(ctx, uid)
	if err != nil {
		return nil, wrapDomainErr(err)
	}
	if err := acct.CanClaim(economy.Task4, now); err != nil {
		if errors.Is(err, economy.ErrTaskCompleted) {
			err = economy.ErrSpinCompleted
		}
		return nil, wrapDomainErr(err)
	}

	roll, err := s.roll()
	if err != nil {
		return nil, err
	}
	seg := Draw(roll)

	result := &economy.SpinResult{
		SpinID:    uuid.NewString(),
		UID:       uid,
		Prize:     seg.Prize,
		Label:     seg.Label,
		Weights:   WeightSnapshot(),
		CreatedAt: now,
	}

	updated, err := s.store.CommitSpin(ctx, result, now)
	if err != nil {
		return nil, wrapDomainErr(err)
	}
	metrics.SpinsTotal.WithLabelValues(result.Label).Inc()

	if seg.Prize > 0 {
		metrics.RewardsCredited.WithLabelValues(string(economy.EntrySpinReward)).Add(float64(seg.Prize))
		s.cascader.Enqueue(uid, seg.Prize, result.SpinID)
	}

	return &Outcome{
		SpinID:      result.SpinID,
		Prize:       seg.Prize,
		Label:       seg.Label,
		Balance:     updated.Balance,
		NextTaskAt:  updated.NextTaskAt,
		NextCycleAt: updated.NextCycleAt,
	}, nil
}

// History lists the account's past draws, newest first
func (s *spinService) History(ctx context.Context, uid string, limit int) ([]*economy.SpinResult, error) {
	results, err := s.store.ListSpinResults(ctx, uid, limit)
	if err != nil {
		return nil, wrapDomainErr(err)
	}
	return results, nil
}

func wrapDomainErr(err error) error {
	var cycleErr *economy.CycleGateError
	var cooldownErr *economy.CooldownError
	switch {
	case errors.Is(err, economy.ErrAccountNotFound):
		return apperrors.ResourceNotFoundError(err, err.Error())
	case errors.Is(err, economy.ErrAccountNotActive):
		return apperrors.ForbiddenError(err, err.Error())
	case errors.As(err, &cycleErr):
		return apperrors.WithDetails(
			apperrors.ConflictError(err, err.Error()),
			map[string]any{"next_cycle_at": cycleErr.NextCycleAt},
		)
	case errors.As(err, &cooldownErr):
		return apperrors.WithDetails(
			apperrors.ConflictError(err, err.Error()),
			map[string]any{"next_task_at": cooldownErr.NextTaskAt},
		)
	case errors.Is(err, economy.ErrCycleNotReady),
		errors.Is(err, economy.ErrCooldownActive),
		errors.Is(err, economy.ErrSpinCompleted):
		return apperrors.ConflictError(err, err.Error())
	default:
		return err
	}
}
