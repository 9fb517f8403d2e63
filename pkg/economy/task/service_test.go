package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/kamyabi/economy-engine/pkg/app/errors"
	"github.com/kamyabi/economy-engine/pkg/economy"
)

func activeAccount(uid string) *economy.Account {
	past := time.Now().Add(-time.Hour)
	return &economy.Account{
		UID:          uid,
		Status:       economy.StatusActive,
		TaskProgress: economy.NewTaskProgress(),
		NextCycleAt:  past,
		NextTaskAt:   past,
	}
}

func newTestService(store *mockStore, cascader *mockCascader) Service {
	return NewService(store, cascader, zap.NewNop())
}

func TestClaim_Success(t *testing.T) {
	acct := activeAccount("uid-1")
	cascader := &mockCascader{}

	store := &mockStore{
		getAccountFn: func(_ context.Context, uid string) (*economy.Account, error) {
			require.Equal(t, "uid-1", uid)
			return acct, nil
		},
		commitTaskClaimFn: func(_ context.Context, uid string, slot economy.TaskSlot, reward int64, now time.Time) (*economy.Account, error) {
			require.Equal(t, economy.Task1, slot)
			require.Equal(t, int64(20), reward)
			committed := activeAccount(uid)
			committed.ApplyClaim(slot, reward, now)
			return committed, nil
		},
	}

	result, err := newTestService(store, cascader).Claim(context.Background(), "uid-1", economy.Task1)
	require.NoError(t, err)
	require.Equal(t, economy.Task1, result.Task)
	require.Equal(t, int64(20), result.Reward)
	require.Equal(t, int64(20), result.Balance)

	require.Len(t, cascader.calls, 1)
	require.Equal(t, "uid-1", cascader.calls[0].sourceUID)
	require.Equal(t, int64(20), cascader.calls[0].reward)
	require.Equal(t, "task_1", cascader.calls[0].ref)
}

func TestClaim_SpinSlotRejected(t *testing.T) {
	cascader := &mockCascader{}
	store := &mockStore{
		getAccountFn: func(context.Context, string) (*economy.Account, error) {
			t.Fatal("store must not be hit for task_4")
			return nil, nil
		},
	}

	_, err := newTestService(store, cascader).Claim(context.Background(), "uid-1", economy.Task4)
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.CategoryDataError))
	require.EqualError(t, err, "Use spin endpoint for Task 4")
	require.Empty(t, cascader.calls)
}

func TestClaim_UnknownSlotRejected(t *testing.T) {
	store := &mockStore{}
	_, err := newTestService(store, &mockCascader{}).Claim(context.Background(), "uid-1", economy.TaskSlot("task_9"))
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.CategoryDataError))
}

func TestClaim_GateFailures(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(a *economy.Account)
		wantErr  error
		category apperrors.Category
	}{
		{
			name:     "banned account",
			mutate:   func(a *economy.Account) { a.Status = economy.StatusBanned },
			wantErr:  economy.ErrAccountNotActive,
			category: apperrors.CategoryForbidden,
		},
		{
			name:     "cycle not ready",
			mutate:   func(a *economy.Account) { a.NextCycleAt = time.Now().Add(time.Hour) },
			wantErr:  economy.ErrCycleNotReady,
			category: apperrors.CategoryDataConflict,
		},
		{
			name:     "cooldown active",
			mutate:   func(a *economy.Account) { a.NextTaskAt = time.Now().Add(time.Minute) },
			wantErr:  economy.ErrCooldownActive,
			category: apperrors.CategoryDataConflict,
		},
		{
			name:     "slot already completed",
			mutate:   func(a *economy.Account) { a.TaskProgress[economy.Task1] = economy.SlotCompleted },
			wantErr:  economy.ErrTaskCompleted,
			category: apperrors.CategoryDataConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct := activeAccount("uid-1")
			tt.mutate(acct)

			cascader := &mockCascader{}
			store := &mockStore{
				getAccountFn: func(context.Context, string) (*economy.Account, error) {
					return acct, nil
				},
			}

			_, err := newTestService(store, cascader).Claim(context.Background(), "uid-1", economy.Task1)
			require.ErrorIs(t, err, tt.wantErr)
			require.True(t, apperrors.Is(err, tt.category))
			require.Empty(t, cascader.calls)
		})
	}
}

func TestClaim_InviteChallenge(t *testing.T) {
	store := &mockStore{
		getAccountFn: func(context.Context, string) (*economy.Account, error) {
			return activeAccount("uid-1"), nil
		},
		getReferralRecordFn: func(context.Context, string) (*economy.ReferralRecord, error) {
			return &economy.ReferralRecord{UID: "uid-1", VerifiedInvitesL1: 7}, nil
		},
	}
	cascader := &mockCascader{}

	_, err := newTestService(store, cascader).Claim(context.Background(), "uid-1", economy.Task3)
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.CategoryForbidden))
	require.EqualError(t, err, "Invite challenge not completed: 7/15 verified invites")

	var challenge *economy.InviteChallengeError
	require.True(t, errors.As(err, &challenge))
	require.Equal(t, 7, challenge.Verified)
	require.Equal(t, 15, challenge.Target)
	require.Empty(t, cascader.calls)
}

func TestClaim_InviteChallengeMet(t *testing.T) {
	store := &mockStore{
		getAccountFn: func(context.Context, string) (*economy.Account, error) {
			return activeAccount("uid-1"), nil
		},
		getReferralRecordFn: func(context.Context, string) (*economy.ReferralRecord, error) {
			return &economy.ReferralRecord{UID: "uid-1", VerifiedInvitesL1: 15}, nil
		},
		commitTaskClaimFn: func(_ context.Context, uid string, slot economy.TaskSlot, reward int64, now time.Time) (*economy.Account, error) {
			committed := activeAccount(uid)
			committed.ApplyClaim(slot, reward, now)
			return committed, nil
		},
	}

	result, err := newTestService(store, &mockCascader{}).Claim(context.Background(), "uid-1", economy.Task3)
	require.NoError(t, err)
	require.Equal(t, int64(50), result.Reward)
}

func TestClaim_CommitRace(t *testing.T) {
	// The precheck passes but a concurrent claim wins inside the store
	// transaction; the conflict must surface and nothing is cascaded.
	store := &mockStore{
		getAccountFn: func(context.Context, string) (*economy.Account, error) {
			return activeAccount("uid-1"), nil
		},
		commitTaskClaimFn: func(context.Context, string, economy.TaskSlot, int64, time.Time) (*economy.Account, error) {
			return nil, economy.ErrTaskCompleted
		},
	}
	cascader := &mockCascader{}

	_, err := newTestService(store, cascader).Claim(context.Background(), "uid-1", economy.Task1)
	require.ErrorIs(t, err, economy.ErrTaskCompleted)
	require.Empty(t, cascader.calls)
}

func TestClaim_AccountNotFound(t *testing.T) {
	store := &mockStore{
		getAccountFn: func(context.Context, string) (*economy.Account, error) {
			return nil, economy.ErrAccountNotFound
		},
	}

	_, err := newTestService(store, &mockCascader{}).Claim(context.Background(), "uid-missing", economy.Task1)
	require.ErrorIs(t, err, economy.ErrAccountNotFound)
	require.True(t, apperrors.Is(err, apperrors.CategoryResourceNotFound))
	require.EqualError(t, err, "User not found")
}

func TestStatus(t *testing.T) {
	acct := activeAccount("uid-1")
	acct.Balance = 120
	acct.TotalEarned = 350
	acct.TaskProgress[economy.Task1] = economy.SlotCompleted

	store := &mockStore{
		getAccountFn: func(context.Context, string) (*economy.Account, error) {
			return acct, nil
		},
		getReferralRecordFn: func(context.Context, string) (*economy.ReferralRecord, error) {
			return &economy.ReferralRecord{UID: "uid-1", VerifiedInvitesL1: 4}, nil
		},
	}

	status, err := newTestService(store, &mockCascader{}).Status(context.Background(), "uid-1")
	require.NoError(t, err)
	require.Equal(t, int64(120), status.Balance)
	require.Equal(t, int64(350), status.TotalEarned)
	require.Equal(t, "completed", status.Tasks["task_1"])
	require.Equal(t, "pending", status.Tasks["task_2"])
	require.True(t, status.CycleReady)
	require.True(t, status.CooldownReady)
	require.Equal(t, 4, status.Invites.Verified)
	require.Equal(t, 15, status.Invites.Target)
}

func TestStatus_ReadinessFlags(t *testing.T) {
	acct := activeAccount("uid-1")
	acct.NextCycleAt = time.Now().Add(12 * time.Hour)
	acct.NextTaskAt = time.Now().Add(2 * time.Minute)

	store := &mockStore{
		getAccountFn: func(context.Context, string) (*economy.Account, error) {
			return acct, nil
		},
		getReferralRecordFn: func(context.Context, string) (*economy.ReferralRecord, error) {
			return &economy.ReferralRecord{UID: "uid-1"}, nil
		},
	}

	status, err := newTestService(store, &mockCascader{}).Status(context.Background(), "uid-1")
	require.NoError(t, err)
	require.False(t, status.CycleReady)
	require.False(t, status.CooldownReady)
	require.Equal(t, acct.NextCycleAt, status.NextCycleAt)
	require.Equal(t, acct.NextTaskAt, status.NextTaskAt)
}

func TestClaim_GateRejectionCarriesRetryTime(t *testing.T) {
	nextCycle := time.Now().Add(6 * time.Hour)
	nextTask := time.Now().Add(90 * time.Second)

	tests := []struct {
		name       string
		mutate     func(a *economy.Account)
		wantErr    error
		detailKey  string
		detailTime time.Time
	}{
		{
			name:       "cycle gate",
			mutate:     func(a *economy.Account) { a.NextCycleAt = nextCycle },
			wantErr:    economy.ErrCycleNotReady,
			detailKey:  "next_cycle_at",
			detailTime: nextCycle,
		},
		{
			name:       "cooldown gate",
			mutate:     func(a *economy.Account) { a.NextTaskAt = nextTask },
			wantErr:    economy.ErrCooldownActive,
			detailKey:  "next_task_at",
			detailTime: nextTask,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct := activeAccount("uid-1")
			tt.mutate(acct)

			store := &mockStore{
				getAccountFn: func(context.Context, string) (*economy.Account, error) {
					return acct, nil
				},
			}

			_, err := newTestService(store, &mockCascader{}).Claim(context.Background(), "uid-1", economy.Task1)
			require.ErrorIs(t, err, tt.wantErr)

			var svcErr *apperrors.ServiceError
			require.True(t, errors.As(err, &svcErr))
			require.Equal(t, tt.detailTime, svcErr.Details[tt.detailKey])
		})
	}
}
