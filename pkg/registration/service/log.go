package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kamyabi/economy-engine/pkg/registration"
)

const serviceName = "RegistrationService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the registration Service
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

// Register wraps the service method with logging
func (ls *logService) Register(
	ctx context.Context,
	uid, phone string,
	req *registration.RegisterRequest,
) (resp *registration.RegisterResponse, err error) {
	start := time.Now()

	ls.logger.Info("Register started",
		zap.String("service", serviceName),
		zap.String("method", "Register"),
		zap.String("uid", uid),
		zap.Bool("has_referral_code", req.ReferralCode != ""),
	)

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("Register failed",
				zap.String("service", serviceName),
				zap.String("method", "Register"),
				zap.String("uid", uid),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("Register completed",
				zap.String("service", serviceName),
				zap.String("method", "Register"),
				zap.String("uid", uid),
				zap.String("referral_code", resp.ReferralCode),
				zap.String("invited_by", resp.InvitedBy),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.Register(ctx, uid, phone, req)
}

// Me wraps the service method with logging
func (ls *logService) Me(ctx context.Context, uid string) (resp *registration.ProfileResponse, err error) {
	start := time.Now()

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("Me failed",
				zap.String("service", serviceName),
				zap.String("method", "Me"),
				zap.String("uid", uid),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Debug("Me completed",
				zap.String("service", serviceName),
				zap.String("method", "Me"),
				zap.String("uid", uid),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.Me(ctx, uid)
}
