package referral

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kamyabi/economy-engine/internal/metrics"
	"github.com/kamyabi/economy-engine/pkg/economy"
)

// Store is the narrow data-access interface for the commission cascade
type Store interface {
	GetReferralRecord(ctx context.Context, uid string) (*economy.ReferralRecord, error)
	CreditCommission(ctx context.Context, ancestorUID string, amount int64, level int, sourceUID string, now time.Time) error
}

// Event is one reward to fan commissions out for
type Event struct {
	SourceUID string
	Reward    int64
	Ref       string
}

// Dispatcher runs the asynchronous commission cascade. Claim handlers
// enqueue events and return immediately; a fixed worker pool pays the
// ancestors. The queue is best-effort: a full queue drops the event with
// a log line rather than blocking a claim response.
type Dispatcher struct {
	store   Store
	logger  *zap.Logger
	queue   chan Event
	workers int
	now     func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewDispatcher creates a new commission dispatcher
func NewDispatcher(store Store, queueSize, workers int, logger *zap.Logger) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		store:   store,
		logger:  logger,
		queue:   make(chan Event, queueSize),
		workers: workers,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
}

// Start starts the worker pool
func (d *Dispatcher) Start() {
	d.logger.Info("Starting commission dispatcher",
		zap.Int("workers", d.workers),
		zap.Int("queue_size", cap(d.queue)),
	)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Stop drains the queue and stops the workers
func (d *Dispatcher) Stop() {
	d.logger.Info("Stopping commission dispatcher")
	close(d.stopCh)
	d.wg.Wait()
	d.logger.Info("Commission dispatcher stopped")
}

// Enqueue hands a paid reward to the cascade without blocking
func (d *Dispatcher) Enqueue(sourceUID string, reward int64, ref string) {
	event := Event{SourceUID: sourceUID, Reward: reward, Ref: ref}
	select {
	case d.queue <- event:
		metrics.CommissionQueueDepth.Set(float64(len(d.queue)))
	default:
		d.logger.Warn("commission queue full, dropping event",
			zap.String("source_uid", sourceUID),
			zap.Int64("reward", reward),
			zap.String("ref", ref),
		)
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case event := <-d.queue:
			metrics.CommissionQueueDepth.Set(float64(len(d.queue)))
			d.process(context.Background(), event)
		case <-d.stopCh:
			// Drain whatever is still queued before exiting.
			for {
				select {
				case event := <-d.queue:
					d.process(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// process pays commissions to the first three chain levels. Each level
// is credited in its own transaction; a failure at one level is logged
// and does not block the others.
func (d *Dispatcher) process(ctx context.Context, event Event) {
	rec, err := d.store.GetReferralRecord(ctx, event.SourceUID)
	if err != nil {
		d.logger.Error("failed to load referral record for cascade",
			zap.String("source_uid", event.SourceUID),
			zap.Error(err),
		)
		return
	}

	now := d.now()
	for level := 1; level <= len(economy.CommissionRates); level++ {
		// A missing level does not end the walk; deeper ancestors can
		// still be present when an intermediate account was removed
		// from the chain snapshot.
		ancestorUID := rec.Chain[level]
		if ancestorUID == "" {
			continue
		}

		amount := economy.Commission(event.Reward, economy.CommissionRates[level-1])
		if amount == 0 {
			continue
		}

		if err := d.store.CreditCommission(ctx, ancestorUID, amount, level, event.SourceUID, now); err != nil {
			metrics.CommissionsTotal.WithLabelValues(strconv.Itoa(level), "failed").Inc()
			d.logger.Error("failed to credit commission",
				zap.String("source_uid", event.SourceUID),
				zap.String("ancestor_uid", ancestorUID),
				zap.Int("level", level),
				zap.Int64("amount", amount),
				zap.Error(err),
			)
			continue
		}
		metrics.CommissionsTotal.WithLabelValues(strconv.Itoa(level), "ok").Inc()
		metrics.RewardsCredited.WithLabelValues(string(economy.EntryReferralCommission)).Add(float64(amount))

		d.logger.Debug("commission credited",
			zap.String("source_uid", event.SourceUID),
			zap.String("ancestor_uid", ancestorUID),
			zap.Int("level", level),
			zap.Int64("amount", amount),
		)
	}
}
