package task

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kamyabi/economy-engine/pkg/economy"
)

const serviceName = "TaskService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the task Service
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

// Claim wraps the service method with logging
func (ls *logService) Claim(ctx context.Context, uid string, slot economy.TaskSlot) (result *ClaimResult, err error) {
	start := time.Now()

	ls.logger.Info("Claim started",
		zap.String("service", serviceName),
		zap.String("method", "Claim"),
		zap.String("uid", uid),
		zap.String("task", string(slot)),
	)

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Warn("Claim failed",
				zap.String("service", serviceName),
				zap.String("method", "Claim"),
				zap.String("uid", uid),
				zap.String("task", string(slot)),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("Claim completed",
				zap.String("service", serviceName),
				zap.String("method", "Claim"),
				zap.String("uid", uid),
				zap.String("task", string(slot)),
				zap.Int64("reward", result.Reward),
				zap.Int64("balance", result.Balance),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.Claim(ctx, uid, slot)
}

// Status wraps the service method with logging
func (ls *logService) Status(ctx context.Context, uid string) (status *Status, err error) {
	start := time.Now()

	defer func() {
		if err != nil {
			ls.logger.Warn("Status failed",
				zap.String("service", serviceName),
				zap.String("method", "Status"),
				zap.String("uid", uid),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
		}
	}()

	return ls.svc.Status(ctx, uid)
}
