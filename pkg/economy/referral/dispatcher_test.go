package referral

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kamyabi/economy-engine/pkg/economy"
)

type credit struct {
	ancestorUID string
	amount      int64
	level       int
	sourceUID   string
}

type mockStore struct {
	mu      sync.Mutex
	records map[string]*economy.ReferralRecord
	credits []credit
	failUID string
}

func (m *mockStore) GetReferralRecord(_ context.Context, uid string) (*economy.ReferralRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[uid]
	if !ok {
		return nil, economy.ErrAccountNotFound
	}
	return rec, nil
}

func (m *mockStore) CreditCommission(_ context.Context, ancestorUID string, amount int64, level int, sourceUID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ancestorUID == m.failUID {
		return errors.New("credit failed")
	}
	m.credits = append(m.credits, credit{
		ancestorUID: ancestorUID,
		amount:      amount,
		level:       level,
		sourceUID:   sourceUID,
	})
	return nil
}

func (m *mockStore) allCredits() []credit {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]credit, len(m.credits))
	copy(out, m.credits)
	return out
}

func TestProcess_ThreeLevelCascade(t *testing.T) {
	store := &mockStore{
		records: map[string]*economy.ReferralRecord{
			"uid-src": {
				UID:   "uid-src",
				Chain: map[int]string{1: "uid-l1", 2: "uid-l2", 3: "uid-l3", 4: "uid-l4"},
			},
		},
	}
	d := NewDispatcher(store, 10, 1, zap.NewNop())

	d.process(context.Background(), Event{SourceUID: "uid-src", Reward: 199, Ref: "task_3"})

	// Commissions are the integer floor of 10/5/2 percent; level 4 and
	// beyond receive nothing.
	require.Equal(t, []credit{
		{ancestorUID: "uid-l1", amount: 19, level: 1, sourceUID: "uid-src"},
		{ancestorUID: "uid-l2", amount: 9, level: 2, sourceUID: "uid-src"},
		{ancestorUID: "uid-l3", amount: 3, level: 3, sourceUID: "uid-src"},
	}, store.allCredits())
}

func TestProcess_SkipsZeroCommissions(t *testing.T) {
	store := &mockStore{
		records: map[string]*economy.ReferralRecord{
			"uid-src": {
				UID:   "uid-src",
				Chain: map[int]string{1: "uid-l1", 2: "uid-l2", 3: "uid-l3"},
			},
		},
	}
	d := NewDispatcher(store, 10, 1, zap.NewNop())

	// 20 * 5% = 1, 20 * 2% floors to 0: only levels 1 and 2 get paid.
	d.process(context.Background(), Event{SourceUID: "uid-src", Reward: 20, Ref: "task_1"})

	credits := store.allCredits()
	require.Len(t, credits, 2)
	require.Equal(t, int64(2), credits[0].amount)
	require.Equal(t, int64(1), credits[1].amount)
}

func TestProcess_ShortChain(t *testing.T) {
	store := &mockStore{
		records: map[string]*economy.ReferralRecord{
			"uid-src": {UID: "uid-src", Chain: map[int]string{1: "uid-l1"}},
		},
	}
	d := NewDispatcher(store, 10, 1, zap.NewNop())

	d.process(context.Background(), Event{SourceUID: "uid-src", Reward: 100, Ref: "task_1"})

	credits := store.allCredits()
	require.Len(t, credits, 1)
	require.Equal(t, "uid-l1", credits[0].ancestorUID)
	require.Equal(t, int64(10), credits[0].amount)
}

func TestProcess_GappedChainStillPaysDeeperLevels(t *testing.T) {
	store := &mockStore{
		records: map[string]*economy.ReferralRecord{
			"uid-src": {
				UID:   "uid-src",
				Chain: map[int]string{1: "uid-l1", 3: "uid-l3"},
			},
		},
	}
	d := NewDispatcher(store, 10, 1, zap.NewNop())

	// Level 2 is absent from the chain snapshot; level 3 must still be paid.
	d.process(context.Background(), Event{SourceUID: "uid-src", Reward: 100, Ref: "task_1"})

	require.Equal(t, []credit{
		{ancestorUID: "uid-l1", amount: 10, level: 1, sourceUID: "uid-src"},
		{ancestorUID: "uid-l3", amount: 2, level: 3, sourceUID: "uid-src"},
	}, store.allCredits())
}

func TestProcess_LevelFailureDoesNotBlockOthers(t *testing.T) {
	store := &mockStore{
		records: map[string]*economy.ReferralRecord{
			"uid-src": {
				UID:   "uid-src",
				Chain: map[int]string{1: "uid-l1", 2: "uid-l2", 3: "uid-l3"},
			},
		},
		failUID: "uid-l2",
	}
	d := NewDispatcher(store, 10, 1, zap.NewNop())

	d.process(context.Background(), Event{SourceUID: "uid-src", Reward: 100, Ref: "task_1"})

	credits := store.allCredits()
	require.Len(t, credits, 2)
	require.Equal(t, "uid-l1", credits[0].ancestorUID)
	require.Equal(t, "uid-l3", credits[1].ancestorUID)
}

func TestDispatcher_StartStopProcessesQueued(t *testing.T) {
	store := &mockStore{
		records: map[string]*economy.ReferralRecord{
			"uid-src": {UID: "uid-src", Chain: map[int]string{1: "uid-l1"}},
		},
	}
	d := NewDispatcher(store, 16, 2, zap.NewNop())
	d.Start()

	for i := 0; i < 5; i++ {
		d.Enqueue("uid-src", 100, "task_1")
	}

	require.Eventually(t, func() bool {
		return len(store.allCredits()) == 5
	}, 2*time.Second, 10*time.Millisecond)

	d.Stop()
}

func TestDispatcher_StopDrainsQueue(t *testing.T) {
	store := &mockStore{
		records: map[string]*economy.ReferralRecord{
			"uid-src": {UID: "uid-src", Chain: map[int]string{1: "uid-l1"}},
		},
	}
	// Workers not started yet: everything stays queued until Stop drains.
	d := NewDispatcher(store, 16, 1, zap.NewNop())
	for i := 0; i < 3; i++ {
		d.Enqueue("uid-src", 100, "task_1")
	}

	d.Start()
	d.Stop()

	require.Len(t, store.allCredits(), 3)
}

func TestEnqueue_DropsWhenFull(t *testing.T) {
	store := &mockStore{records: map[string]*economy.ReferralRecord{}}
	d := NewDispatcher(store, 1, 1, zap.NewNop())

	// No workers running: the second event cannot fit and is dropped
	// without blocking.
	done := make(chan struct{})
	go func() {
		d.Enqueue("uid-a", 100, "task_1")
		d.Enqueue("uid-b", 100, "task_1")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
	require.Len(t, d.queue, 1)
}
