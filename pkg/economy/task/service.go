// Package task implements the daily task claim flow: the cycle and
// cooldown gates, the invite challenge on task_3, and the atomic reward
// credit with its commission hand-off.
package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kamyabi/economy-engine/internal/metrics"
	apperrors "github.com/kamyabi/economy-engine/pkg/app/errors"
	"github.com/kamyabi/economy-engine/pkg/economy"
)

// Store is the narrow data-access interface for the task service.
// Defined here to keep the task service decoupled from the store
// implementation details.
type Store interface {
	GetAccount(ctx context.Context, uid string) (*economy.Account, error)
	GetReferralRecord(ctx context.Context, uid string) (*economy.ReferralRecord, error)
	CommitTaskClaim(ctx context.Context, uid string, slot economy.TaskSlot, reward int64, now time.Time) (*economy.Account, error)
}

// Cascader hands a paid reward off for asynchronous commission fan-out
type Cascader interface {
	Enqueue(sourceUID string, reward int64, ref string)
}

// ClaimResult is returned to the client after a successful claim
type ClaimResult struct {
	Task        economy.TaskSlot `json:"task"`
	Reward      int64            `json:"reward"`
	Balance     int64            `json:"balance"`
	NextTaskAt  time.Time        `json:"next_task_at"`
	NextCycleAt time.Time        `json:"next_cycle_at"`
}

// InviteProgress reports progress toward the task_3 invite challenge
type InviteProgress struct {
	Verified int `json:"verified"`
	Target   int `json:"target"`
}

// Status is the client-facing snapshot of an account's task state.
// CycleReady and CooldownReady are evaluated at request time so the
// client can gate its buttons without comparing clocks.
type Status struct {
	UID           string            `json:"uid"`
	Balance       int64             `json:"balance"`
	TotalEarned   int64             `json:"total_earned"`
	Tasks         map[string]string `json:"tasks"`
	CycleReady    bool              `json:"cycle_ready"`
	CooldownReady bool              `json:"cooldown_ready"`
	NextTaskAt    time.Time         `json:"next_task_at"`
	NextCycleAt   time.Time         `json:"next_cycle_at"`
	Invites       InviteProgress    `json:"invites"`
}

// Service defines the interface for the task claim business logic
type Service interface {
	Claim(ctx context.Context, uid string, slot economy.TaskSlot) (*ClaimResult, error)
	Status(ctx context.Context, uid string) (*Status, error)
}

type taskService struct {
	store    Store
	cascader Cascader
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new task service
func NewService(store Store, cascader Cascader, logger *zap.Logger) Service {
	return &taskService{
		store:    store,
		cascader: cascader,
		logger:   logger,
		now:      time.Now,
	}
}

// Claim validates and commits a claim for one of the fixed-reward slots.
// task_4 is rejected here; it resolves through the spin wheel. The store
// re-validates the gates under the account row lock, so a stale precheck
// can never double-pay.
func (s *taskService) Claim(ctx context.Context, uid string, slot economy.TaskSlot) (*ClaimResult, error) {
	if slot == economy.Task4 {
		return nil, apperrors.BadRequestError(economy.ErrSpinSlot, economy.ErrSpinSlot.Error())
	}
	reward, ok := economy.TaskRewards[slot]
	if !ok {
		return nil, apperrors.BadRequestError(nil, fmt.Sprintf("unknown task %q", slot))
	}

	now := s.now()

	acct, err := s.store.GetAccount(ctx, uid)
	if err != nil {
		return nil, wrapDomainErr(err)
	}
	if err := acct.CanClaim(slot, now); err != nil {
		return nil, wrapDomainErr(err)
	}

	if slot == economy.Task3 {
		rec, err := s.store.GetReferralRecord(ctx, uid)
		if err != nil {
			return nil, wrapDomainErr(err)
		}
		if rec.VerifiedInvitesL1 < economy.InviteTarget {
			challenge := &economy.InviteChallengeError{
				Verified: rec.VerifiedInvitesL1,
				Target:   economy.InviteTarget,
			}
			return nil, apperrors.ForbiddenError(challenge, challenge.Error())
		}
	}

	updated, err := s.store.CommitTaskClaim(ctx, uid, slot, reward, now)
	if err != nil {
		metrics.TaskClaimsTotal.WithLabelValues(string(slot), "rejected").Inc()
		return nil, wrapDomainErr(err)
	}
	metrics.TaskClaimsTotal.WithLabelValues(string(slot), "ok").Inc()
	metrics.RewardsCredited.WithLabelValues(string(economy.EntryTaskReward)).Add(float64(reward))

	s.cascader.Enqueue(uid, reward, string(slot))

	return &ClaimResult{
		Task:        slot,
		Reward:      reward,
		Balance:     updated.Balance,
		NextTaskAt:  updated.NextTaskAt,
		NextCycleAt: updated.NextCycleAt,
	}, nil
}

// Status returns the account's current task cycle snapshot
func (s *taskService) Status(ctx context.Context, uid string) (*Status, error) {
	now := s.now()

	acct, err := s.store.GetAccount(ctx, uid)
	if err != nil {
		return nil, wrapDomainErr(err)
	}
	rec, err := s.store.GetReferralRecord(ctx, uid)
	if err != nil {
		return nil, wrapDomainErr(err)
	}

	tasks := make(map[string]string, len(acct.TaskProgress))
	for slot, state := range acct.TaskProgress {
		tasks[string(slot)] = string(state)
	}

	return &Status{
		UID:           acct.UID,
		Balance:       acct.Balance,
		TotalEarned:   acct.TotalEarned,
		Tasks:         tasks,
		CycleReady:    !now.Before(acct.NextCycleAt),
		CooldownReady: !now.Before(acct.NextTaskAt),
		NextTaskAt:    acct.NextTaskAt,
		NextCycleAt:   acct.NextCycleAt,
		Invites: InviteProgress{
			Verified: rec.VerifiedInvitesL1,
			Target:   economy.InviteTarget,
		},
	}, nil
}

// wrapDomainErr maps domain errors onto service error categories so the
// HTTP layer renders the right status while keeping the client-contract
// message intact.
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
		errors.Is(err, economy.ErrTaskCompleted):
		return apperrors.ConflictError(err, err.Error())
	default:
		return err
	}
}
