package task

import (
	"context"
	"time"

	"github.com/kamyabi/economy-engine/pkg/economy"
)

type mockStore struct {
	getAccountFn        func(ctx context.Context, uid string) (*economy.Account, error)
	getReferralRecordFn func(ctx context.Context, uid string) (*economy.ReferralRecord, error)
	commitTaskClaimFn   func(ctx context.Context, uid string, slot economy.TaskSlot, reward int64, now time.Time) (*economy.Account, error)
}

func (m *mockStore) GetAccount(ctx context.Context, uid string) (*economy.Account, error) {
	return m.getAccountFn(ctx, uid)
}

func (m *mockStore) GetReferralRecord(ctx context.Context, uid string) (*economy.ReferralRecord, error) {
	return m.getReferralRecordFn(ctx, uid)
}

func (m *mockStore) CommitTaskClaim(ctx context.Context, uid string, slot economy.TaskSlot, reward int64, now time.Time) (*economy.Account, error) {
	return m.commitTaskClaimFn(ctx, uid, slot, reward, now)
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
