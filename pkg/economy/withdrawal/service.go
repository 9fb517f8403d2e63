// Package withdrawal implements the payout request flow: validation,
// the request-time balance debit, and the admin approve/reject decision.
package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kamyabi/economy-engine/internal/metrics"
	apperrors "github.com/kamyabi/economy-engine/pkg/app/errors"
	"github.com/kamyabi/economy-engine/pkg/economy"
)

// Store is the narrow data-access interface for the withdrawal service
type Store interface {
	GetAccount(ctx context.Context, uid string) (*economy.Account, error)
	CreateWithdrawal(ctx context.Context, w *economy.Withdrawal) error
	ApproveWithdrawal(ctx context.Context, id, adminUID string, now time.Time) (*economy.Withdrawal, error)
	RejectWithdrawal(ctx context.Context, id, adminUID, reason string, now time.Time) (*economy.Withdrawal, error)
	ListWithdrawals(ctx context.Context, uid string, limit int) ([]*economy.Withdrawal, error)
	ListPendingWithdrawals(ctx context.Context, limit int) ([]*economy.Withdrawal, error)
	ListAllWithdrawals(ctx context.Context, status economy.WithdrawalStatus, limit int) ([]*economy.Withdrawal, error)
}

// Request carries a payout request from the client
type Request struct {
	Method        economy.WithdrawalMethod
	Amount        int64
	AccountNumber string
	AccountName   string
}

// Service defines the interface for the withdrawal business logic
type Service interface {
	Request(ctx context.Context, uid string, req *Request) (*economy.Withdrawal, error)
	Approve(ctx context.Context, id, adminUID string) (*economy.Withdrawal, error)
	Reject(ctx context.Context, id, adminUID, reason string) (*economy.Withdrawal, error)
	List(ctx context.Context, uid string, limit int) ([]*economy.Withdrawal, error)
	ListPending(ctx context.Context, limit int) ([]*economy.Withdrawal, error)
	ListAll(ctx context.Context, status economy.WithdrawalStatus, limit int) ([]*economy.Withdrawal, error)
}

type withdrawalService struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new withdrawal service
func NewService(store Store, logger *zap.Logger) Service {
	return &withdrawalService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Request validates and creates a payout request. The full amount is
// debited from the balance immediately; the fee is carried on the
// record and deducted from the paid-out net, not charged on top.
func (s *withdrawalService) Request(ctx context.Context, uid string, req *Request) (*economy.Withdrawal, error) {
	if !economy.ValidWithdrawalMethod(req.Method) {
		return nil, apperrors.BadRequestError(nil, fmt.Sprintf("unsupported withdrawal method %q", req.Method))
	}
	if req.Amount < economy.MinWithdrawal {
		return nil, apperrors.BadRequestError(nil, fmt.Sprintf("minimum withdrawal is %d", economy.MinWithdrawal))
	}
	if len(req.AccountNumber) < economy.MinAccountNumberLen {
		return nil, apperrors.BadRequestError(nil, "account number is too short")
	}

	acct, err := s.store.GetAccount(ctx, uid)
	if err != nil {
		return nil, wrapDomainErr(err)
	}
	if acct.Status != economy.StatusActive {
		return nil, wrapDomainErr(economy.ErrAccountNotActive)
	}
	if acct.Balance < req.Amount {
		return nil, wrapDomainErr(economy.ErrInsufficientBalance)
	}

	fee := economy.WithdrawalFee(req.Method, req.Amount)
	w := &economy.Withdrawal{
		ID:            uuid.NewString(),
		UID:           uid,
		Method:        req.Method,
		Amount:        req.Amount,
		Fee:           fee,
		NetAmount:     req.Amount - fee,
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
		Status:        economy.WithdrawalPending,
		RequestedAt:   s.now(),
	}

	if err := s.store.CreateWithdrawal(ctx, w); err != nil {
		return nil, wrapDomainErr(err)
	}
	metrics.WithdrawalsTotal.WithLabelValues(string(w.Method), string(w.Status)).Inc()
	metrics.WithdrawalAmount.WithLabelValues(string(w.Method)).Observe(float64(w.Amount))
	return w, nil
}

// Approve marks a pending request approved. The operator pays out the
// net amount off-platform; the ledger debit already happened.
func (s *withdrawalService) Approve(ctx context.Context, id, adminUID string) (*economy.Withdrawal, error) {
	w, err := s.store.ApproveWithdrawal(ctx, id, adminUID, s.now())
	if err != nil {
		return nil, wrapDomainErr(err)
	}
	metrics.WithdrawalsTotal.WithLabelValues(string(w.Method), string(w.Status)).Inc()
	return w, nil
}

// Reject marks a pending request rejected and refunds the full amount
func (s *withdrawalService) Reject(ctx context.Context, id, adminUID, reason string) (*economy.Withdrawal, error) {
	if reason == "" {
		return nil, apperrors.BadRequestError(nil, "rejection reason is required")
	}
	w, err := s.store.RejectWithdrawal(ctx, id, adminUID, reason, s.now())
	if err != nil {
		return nil, wrapDomainErr(err)
	}
	metrics.WithdrawalsTotal.WithLabelValues(string(w.Method), string(w.Status)).Inc()
	return w, nil
}

// List returns the account's payout history, newest first
func (s *withdrawalService) List(ctx context.Context, uid string, limit int) ([]*economy.Withdrawal, error) {
	withdrawals, err := s.store.ListWithdrawals(ctx, uid, limit)
	if err != nil {
		return nil, wrapDomainErr(err)
	}
	return withdrawals, nil
}

// ListPending returns the admin review queue, oldest first
func (s *withdrawalService) ListPending(ctx context.Context, limit int) ([]*economy.Withdrawal, error) {
	withdrawals, err := s.store.ListPendingWithdrawals(ctx, limit)
	if err != nil {
		return nil, wrapDomainErr(err)
	}
	return withdrawals, nil
}

// ListAll returns payout requests across all accounts, newest first,
// optionally narrowed to one status. An empty status means no filter.
func (s *withdrawalService) ListAll(ctx context.Context, status economy.WithdrawalStatus, limit int) ([]*economy.Withdrawal, error) {
	if status != "" &&
		status != economy.WithdrawalPending &&
		status != economy.WithdrawalApproved &&
		status != economy.WithdrawalRejected {
		return nil, apperrors.BadRequestError(nil, fmt.Sprintf("unknown withdrawal status %q", status))
	}
	withdrawals, err := s.store.ListAllWithdrawals(ctx, status, limit)
	if err != nil {
		return nil, wrapDomainErr(err)
	}
	return withdrawals, nil
}

func wrapDomainErr(err error) error {
	var stateErr *economy.WithdrawalStateError
	switch {
	case errors.Is(err, economy.ErrAccountNotFound),
		errors.Is(err, economy.ErrWithdrawalNotFound):
		return apperrors.ResourceNotFoundError(err, err.Error())
	case errors.Is(err, economy.ErrAccountNotActive):
		return apperrors.ForbiddenError(err, err.Error())
	case errors.Is(err, economy.ErrInsufficientBalance):
		return apperrors.BadRequestError(err, err.Error())
	case errors.Is(err, economy.ErrPendingWithdrawalExists):
		return apperrors.ConflictError(err, err.Error())
	case errors.As(err, &stateErr):
		return apperrors.ConflictError(err, err.Error())
	default:
		return err
	}
}
