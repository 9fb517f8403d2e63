package economy

import (
	"errors"
	"fmt"
	"time"
)

// Stable domain errors. The message text is part of the client contract:
// mobile clients branch on these strings, so they must not change.
var (
	ErrAccountNotFound  = errors.New("User not found")
	ErrAccountNotActive = errors.New("Account is not active")
	ErrCycleNotReady    = errors.New("Task cycle not ready yet")
	ErrCooldownActive   = errors.New("Task cooldown active")
	ErrTaskCompleted    = errors.New("Task already completed in this cycle")
	ErrSpinSlot         = errors.New("Use spin endpoint for Task 4")
	ErrSpinCompleted    = errors.New("Spin already completed in this cycle")

	ErrAccountExists           = errors.New("account already registered")
	ErrReferralCodeNotFound    = errors.New("referral code not found")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrPendingWithdrawalExists = errors.New("a pending withdrawal already exists")
	ErrWithdrawalNotFound      = errors.New("withdrawal not found")
	ErrDeviceConflict          = errors.New("device is bound to another account")
)

// CycleGateError reports a claim attempted before the cycle window
// opened, embedding the instant the next cycle starts so the client
// can schedule the retry.
type CycleGateError struct {
	NextCycleAt time.Time
}

func (e *CycleGateError) Error() string { return ErrCycleNotReady.Error() }

func (e *CycleGateError) Unwrap() error { return ErrCycleNotReady }

// CooldownError reports a claim attempted inside the cooldown window,
// embedding the instant it ends.
type CooldownError struct {
	NextTaskAt time.Time
}

func (e *CooldownError) Error() string { return ErrCooldownActive.Error() }

func (e *CooldownError) Unwrap() error { return ErrCooldownActive }

// InviteChallengeError reports an unmet task_3 invite precondition,
// embedding the current verified invite count.
type InviteChallengeError struct {
	Verified int
	Target   int
}

func (e *InviteChallengeError) Error() string {
	return fmt.Sprintf("Invite challenge not completed: %d/%d verified invites", e.Verified, e.Target)
}

// WithdrawalStateError reports a decision attempted on a non-pending
// withdrawal, embedding the current status.
type WithdrawalStateError struct {
	Status WithdrawalStatus
}

func (e *WithdrawalStateError) Error() string {
	return fmt.Sprintf("Withdrawal is already %s", e.Status)
}
