package economy

import "time"

// CanClaim checks every precondition for completing the given slot at
// the given instant, in the order clients expect: existence and status
// first, then the cycle gate, then the cooldown, then slot state.
// It returns nil when the claim may proceed.
func (a *Account) CanClaim(slot TaskSlot, now time.Time) error {
	if a.Status != StatusActive {
		return ErrAccountNotActive
	}
	if now.Before(a.NextCycleAt) {
		return &CycleGateError{NextCycleAt: a.NextCycleAt}
	}
	if now.Before(a.NextTaskAt) {
		return &CooldownError{NextTaskAt: a.NextTaskAt}
	}
	if a.TaskProgress[slot] == SlotCompleted {
		return ErrTaskCompleted
	}
	return nil
}

// ApplyClaim transitions the account state for a successful claim:
// marks the slot completed, starts the cooldown, credits the reward,
// and rolls the cycle over when all four slots are done. Callers must
// have validated with CanClaim first; ApplyClaim performs no checks.
func (a *Account) ApplyClaim(slot TaskSlot, reward int64, now time.Time) {
	if a.TaskProgress == nil {
		a.TaskProgress = NewTaskProgress()
	}
	a.TaskProgress[slot] = SlotCompleted
	a.LastTaskAt = now
	a.NextTaskAt = now.Add(TaskCooldown)
	a.Balance += reward
	a.TotalEarned += reward

	if a.cycleComplete() {
		for _, s := range TaskSlots {
			a.TaskProgress[s] = SlotPending
		}
		a.NextCycleAt = now.Add(CycleDuration)
	}
}

func (a *Account) cycleComplete() bool {
	for _, s := range TaskSlots {
		if a.TaskProgress[s] != SlotCompleted {
			return false
		}
	}
	return true
}
