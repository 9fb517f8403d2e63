package spin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/kamyabi/economy-engine/pkg/app/errors"
	"github.com/kamyabi/economy-engine/pkg/economy"
)

type mockStore struct {
	getAccountFn      func(ctx context.Context, uid string) (*economy.Account, error)
	commitSpinFn      func(ctx context.Context, result *economy.SpinResult, now time.Time) (*economy.Account, error)
	listSpinResultsFn func(ctx context.Context, uid string, limit int) ([]*economy.SpinResult, error)
}

func (m *mockStore) GetAccount(ctx context.Context, uid string) (*economy.Account, error) {
	return m.getAccountFn(ctx, uid)
}

func (m *mockStore) CommitSpin(ctx context.Context, result *economy.SpinResult, now time.Time) (*economy.Account, error) {
	return m.commitSpinFn(ctx, result, now)
}

func (m *mockStore) ListSpinResults(ctx context.Context, uid string, limit int) ([]*economy.SpinResult, error) {
	return m.listSpinResultsFn(ctx, uid, limit)
}

type cascadeCall struct {
	sourceUID string
	reward    int64
	ref       string
}

type mockCascader struct {
	calls []cascadeCall
}

func (m *mockCascader) Enqueue(sourceUID string, reward int64, ref string) {
	m.calls = append(m.calls, cascadeCall{sourceUID: sourceUID, reward: reward, ref: ref})
}

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

// fixedRollService returns a service whose wheel roll is deterministic
func fixedRollService(store Store, cascader Cascader, roll int) Service {
	svc := NewService(store, cascader, zap.NewNop()).(*spinService)
	svc.roll = func() (int, error) { return roll, nil }
	return svc
}

func TestSpin_WinningDraw(t *testing.T) {
	var committed *economy.SpinResult
	store := &mockStore{
		getAccountFn: func(_ context.Context, uid string) (*economy.Account, error) {
			return activeAccount(uid), nil
		},
		commitSpinFn: func(_ context.Context, result *economy.SpinResult, now time.Time) (*economy.Account, error) {
			committed = result
			acct := activeAccount(result.UID)
			acct.ApplyClaim(economy.Task4, result.Prize, now)
			return acct, nil
		},
	}
	cascader := &mockCascader{}

	// roll 87 lands on the 50 segment
	outcome, err := fixedRollService(store, cascader, 87).Spin(context.Background(), "uid-1")
	require.NoError(t, err)
	require.Equal(t, int64(50), outcome.Prize)
	require.Equal(t, "50 PKR", outcome.Label)
	require.Equal(t, int64(50), outcome.Balance)
	require.NotEmpty(t, outcome.SpinID)

	require.NotNil(t, committed)
	require.Equal(t, "50 PKR", committed.Label)
	require.Equal(t, WeightSnapshot(), committed.Weights)

	require.Len(t, cascader.calls, 1)
	require.Equal(t, int64(50), cascader.calls[0].reward)
	require.Equal(t, outcome.SpinID, cascader.calls[0].ref)
}

func TestSpin_ZeroPrizeSkipsCascade(t *testing.T) {
	store := &mockStore{
		getAccountFn: func(_ context.Context, uid string) (*economy.Account, error) {
			return activeAccount(uid), nil
		},
		commitSpinFn: func(_ context.Context, result *economy.SpinResult, now time.Time) (*economy.Account, error) {
			acct := activeAccount(result.UID)
			acct.ApplyClaim(economy.Task4, result.Prize, now)
			return acct, nil
		},
	}
	cascader := &mockCascader{}

	// roll 40 lands on the 0 segment
	outcome, err := fixedRollService(store, cascader, 40).Spin(context.Background(), "uid-1")
	require.NoError(t, err)
	require.Equal(t, int64(0), outcome.Prize)
	require.Equal(t, "Try Again", outcome.Label)
	require.Empty(t, cascader.calls)
}

func TestSpin_AlreadyCompleted(t *testing.T) {
	acct := activeAccount("uid-1")
	acct.TaskProgress[economy.Task4] = economy.SlotCompleted

	store := &mockStore{
		getAccountFn: func(context.Context, string) (*economy.Account, error) {
			return acct, nil
		},
	}
	cascader := &mockCascader{}

	_, err := fixedRollService(store, cascader, 0).Spin(context.Background(), "uid-1")
	require.ErrorIs(t, err, economy.ErrSpinCompleted)
	require.True(t, apperrors.Is(err, apperrors.CategoryDataConflict))
	require.EqualError(t, err, "Spin already completed in this cycle")
	require.Empty(t, cascader.calls)
}

func TestSpin_CommitRaceSurfacesSpinError(t *testing.T) {
	store := &mockStore{
		getAccountFn: func(_ context.Context, uid string) (*economy.Account, error) {
			return activeAccount(uid), nil
		},
		commitSpinFn: func(context.Context, *economy.SpinResult, time.Time) (*economy.Account, error) {
			return nil, economy.ErrSpinCompleted
		},
	}
	cascader := &mockCascader{}

	_, err := fixedRollService(store, cascader, 0).Spin(context.Background(), "uid-1")
	require.ErrorIs(t, err, economy.ErrSpinCompleted)
	require.Empty(t, cascader.calls)
}

func TestSpin_BannedAccount(t *testing.T) {
	acct := activeAccount("uid-1")
	acct.Status = economy.StatusBanned

	store := &mockStore{
		getAccountFn: func(context.Context, string) (*economy.Account, error) {
			return acct, nil
		},
	}

	_, err := fixedRollService(store, &mockCascader{}, 0).Spin(context.Background(), "uid-1")
	require.ErrorIs(t, err, economy.ErrAccountNotActive)
	require.True(t, apperrors.Is(err, apperrors.CategoryForbidden))
}

func TestHistory(t *testing.T) {
	store := &mockStore{
		listSpinResultsFn: func(_ context.Context, uid string, limit int) ([]*economy.SpinResult, error) {
			require.Equal(t, "uid-1", uid)
			require.Equal(t, 20, limit)
			return []*economy.SpinResult{{SpinID: "spin-1", UID: uid, Prize: 25}}, nil
		},
	}

	results, err := fixedRollService(store, &mockCascader{}, 0).History(context.Background(), "uid-1", 20)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, int64(25), results[0].Prize)
}
