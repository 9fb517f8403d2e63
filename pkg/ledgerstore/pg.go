// Package ledgerstore is the PostgreSQL persistence layer of the economy
// engine. Every balance mutation runs inside a transaction that locks the
// affected account row and appends the matching ledger entry, so the
// invariant balance == sum(ledger amounts) holds at every commit point.
package ledgerstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/kamyabi/economy-engine/pkg/economy"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the economy store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func isIntegrityViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.IntegrityViolation()
}

// =============================================================================
// Accounts
// =============================================================================

func (s *pgStore) GetAccount(ctx context.Context, uid string) (*economy.Account, error) {
	dao := new(AccountDao)
	err := s.db.NewSelect().Model(dao).Where("uid = ?", uid).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, economy.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return toAccount(dao), nil
}

func (s *pgStore) GetAccountByReferralCode(ctx context.Context, code string) (*economy.Account, error) {
	dao := new(AccountDao)
	err := s.db.NewSelect().Model(dao).Where("referral_code = ?", code).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, economy.ErrReferralCodeNotFound
		}
		return nil, fmt.Errorf("failed to get account by referral code: %w", err)
	}
	return toAccount(dao), nil
}

// CreateAccount persists a new account together with its referral record.
// When the account has an inviter, the inviter's children list, verified
// invite counter, and signup bonus are all applied in the same transaction.
func (s *pgStore) CreateAccount(ctx context.Context, acct *economy.Account, rec *economy.ReferralRecord) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(toAccountDao(acct)).Exec(ctx); err != nil {
			if isIntegrityViolation(err) {
				return economy.ErrAccountExists
			}
			return fmt.Errorf("failed to create account: %w", err)
		}

		if _, err := tx.NewInsert().Model(toReferralRecordDao(rec)).Exec(ctx); err != nil {
			return fmt.Errorf("failed to create referral record: %w", err)
		}

		if rec.InviterUID == "" {
			return nil
		}

		_, err := tx.NewUpdate().
			Model((*ReferralRecordDao)(nil)).
			Set("children_l1 = children_l1 || ?::jsonb", jsonArray(acct.UID)).
			Set("verified_invites_l1 = verified_invites_l1 + 1").
			Where("uid = ?", rec.InviterUID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update inviter referral record: %w", err)
		}

		balanceAfter, err := creditBalance(ctx, tx, rec.InviterUID, economy.SignupBonus)
		if err != nil {
			return fmt.Errorf("failed to credit signup bonus: %w", err)
		}

		return appendLedgerEntry(ctx, tx, &LedgerEntryDao{
			EntryID:      uuid.NewString(),
			UID:          rec.InviterUID,
			Type:         string(economy.EntryInviteBonusL1),
			Amount:       economy.SignupBonus,
			BalanceAfter: balanceAfter,
			Ref:          acct.UID,
			CreatedAt:    acct.CreatedAt,
		})
	})
}

// jsonArray renders a single-element JSON array literal for jsonb concat
func jsonArray(elem string) string {
	return `["` + elem + `"]`
}

// creditBalance adds amount to both balance and total_earned and returns
// the new balance. Must run inside a transaction.
func creditBalance(ctx context.Context, tx bun.Tx, uid string, amount int64) (int64, error) {
	dao := new(AccountDao)
	err := tx.NewUpdate().
		Model(dao).
		Set("balance = balance + ?", amount).
		Set("total_earned = total_earned + ?", amount).
		Where("uid = ?", uid).
		Returning("balance").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, economy.ErrAccountNotFound
		}
		return 0, err
	}
	return dao.Balance, nil
}

func appendLedgerEntry(ctx context.Context, tx bun.Tx, entry *LedgerEntryDao) error {
	if _, err := tx.NewInsert().Model(entry).Exec(ctx); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

func appendAdminAction(ctx context.Context, tx bun.Tx, action *AdminActionDao) error {
	if _, err := tx.NewInsert().Model(action).Exec(ctx); err != nil {
		return fmt.Errorf("failed to append admin action: %w", err)
	}
	return nil
}

// lockAccount reads the account row FOR UPDATE, serializing concurrent
// claims against the same account.
func lockAccount(ctx context.Context, tx bun.Tx, uid string) (*economy.Account, error) {
	dao := new(AccountDao)
	err := tx.NewSelect().Model(dao).Where("uid = ?", uid).For("UPDATE").Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, economy.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	return toAccount(dao), nil
}

func saveAccount(ctx context.Context, tx bun.Tx, acct *economy.Account) error {
	dao := toAccountDao(acct)
	_, err := tx.NewUpdate().
		Model(dao).
		Column("status", "balance", "total_earned", "task_progress", "next_cycle_at", "next_task_at", "last_task_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// =============================================================================
// Task and spin commits
// =============================================================================

// CommitTaskClaim re-validates the claim preconditions under the account
// row lock and, when they hold, applies the slot transition, credits the
// reward, and appends the ledger and task-log records in one transaction.
// Precondition failures surface as the economy domain errors.
func (s *pgStore) CommitTaskClaim(
	ctx context.Context,
	uid string,
	slot economy.TaskSlot,
	reward int64,
	now time.Time,
) (*economy.Account, error) {
	var acct *economy.Account
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		a, err := lockAccount(ctx, tx, uid)
		if err != nil {
			return err
		}
		if err := a.CanClaim(slot, now); err != nil {
			return err
		}
		a.ApplyClaim(slot, reward, now)

		if err := saveAccount(ctx, tx, a); err != nil {
			return err
		}

		if err := appendLedgerEntry(ctx, tx, &LedgerEntryDao{
			EntryID:      uuid.NewString(),
			UID:          uid,
			Type:         string(economy.EntryTaskReward),
			Amount:       reward,
			BalanceAfter: a.Balance,
			Ref:          string(slot),
			CreatedAt:    now,
		}); err != nil {
			return err
		}

		if err := appendTaskLog(ctx, tx, uid, slot, reward, now); err != nil {
			return err
		}

		acct = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// CommitSpin applies a resolved wheel draw to the task_4 slot. The spin
// result record is written even for a zero prize; the ledger entry only
// when the prize is positive.
func (s *pgStore) CommitSpin(
	ctx context.Context,
	result *economy.SpinResult,
	now time.Time,
) (*economy.Account, error) {
	var acct *economy.Account
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		a, err := lockAccount(ctx, tx, result.UID)
		if err != nil {
			return err
		}
		if err := a.CanClaim(economy.Task4, now); err != nil {
			if errors.Is(err, economy.ErrTaskCompleted) {
				return economy.ErrSpinCompleted
			}
			return err
		}
		a.ApplyClaim(economy.Task4, result.Prize, now)

		if err := saveAccount(ctx, tx, a); err != nil {
			return err
		}

		if _, err := tx.NewInsert().Model(toSpinResultDao(result)).Exec(ctx); err != nil {
			return fmt.Errorf("failed to record spin result: %w", err)
		}

		if result.Prize > 0 {
			if err := appendLedgerEntry(ctx, tx, &LedgerEntryDao{
				EntryID:      uuid.NewString(),
				UID:          result.UID,
				Type:         string(economy.EntrySpinReward),
				Amount:       result.Prize,
				BalanceAfter: a.Balance,
				Ref:          result.SpinID,
				CreatedAt:    now,
			}); err != nil {
				return err
			}
		}

		if err := appendTaskLog(ctx, tx, result.UID, economy.Task4, result.Prize, now); err != nil {
			return err
		}

		acct = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

func appendTaskLog(ctx context.Context, tx bun.Tx, uid string, slot economy.TaskSlot, reward int64, now time.Time) error {
	log := &TaskLogDao{
		UID:       uid,
		Date:      now.UTC().Format("2006-01-02"),
		Task:      string(slot),
		Reward:    reward,
		CreatedAt: now,
	}
	if _, err := tx.NewInsert().Model(log).Exec(ctx); err != nil {
		return fmt.Errorf("failed to append task log: %w", err)
	}
	return nil
}

// =============================================================================
// Referral
// =============================================================================

func (s *pgStore) GetReferralRecord(ctx context.Context, uid string) (*economy.ReferralRecord, error) {
	dao := new(ReferralRecordDao)
	err := s.db.NewSelect().Model(dao).Where("uid = ?", uid).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, economy.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get referral record: %w", err)
	}
	return toReferralRecord(dao), nil
}

// CreditCommission atomically credits a single ancestor and appends the
// matching ledger entry. Each cascade level is its own transaction so a
// failure at one level does not roll back the levels already paid.
func (s *pgStore) CreditCommission(
	ctx context.Context,
	ancestorUID string,
	amount int64,
	level int,
	sourceUID string,
	now time.Time,
) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		balanceAfter, err := creditBalance(ctx, tx, ancestorUID, amount)
		if err != nil {
			return fmt.Errorf("failed to credit commission: %w", err)
		}
		return appendLedgerEntry(ctx, tx, &LedgerEntryDao{
			EntryID:      uuid.NewString(),
			UID:          ancestorUID,
			Type:         string(economy.EntryReferralCommission),
			Amount:       amount,
			BalanceAfter: balanceAfter,
			Ref:          fmt.Sprintf("L%d:%s", level, sourceUID),
			CreatedAt:    now,
		})
	})
}

// =============================================================================
// Security
// =============================================================================

func (s *pgStore) GetDeviceBinding(ctx context.Context, key string) (*economy.DeviceBinding, error) {
	dao := new(DeviceBindingDao)
	err := s.db.NewSelect().Model(dao).Where("key = ?", key).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get device binding: %w", err)
	}
	return toDeviceBinding(dao), nil
}

// UpsertDeviceBinding creates the binding or refreshes it when it is
// already bound to the same uid. A key bound to a different uid returns
// ErrDeviceConflict; rebinding is a fraud signal, not an update.
func (s *pgStore) UpsertDeviceBinding(ctx context.Context, b *economy.DeviceBinding) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := new(DeviceBindingDao)
		err := tx.NewSelect().Model(existing).Where("key = ?", b.Key).For("UPDATE").Scan(ctx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.NewInsert().Model(toDeviceBindingDao(b)).Exec(ctx); err != nil {
				if isIntegrityViolation(err) {
					return economy.ErrDeviceConflict
				}
				return fmt.Errorf("failed to create device binding: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("failed to read device binding: %w", err)
		}

		if existing.BoundUID != b.BoundUID {
			return economy.ErrDeviceConflict
		}

		_, err = tx.NewUpdate().
			Model((*DeviceBindingDao)(nil)).
			Set("last_seen = ?", b.LastSeen).
			Set("last_ip = ?", b.LastIP).
			Set("app_version = ?", b.AppVersion).
			Where("key = ?", b.Key).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to refresh device binding: %w", err)
		}
		return nil
	})
}

// BanAccount writes the ban record and flips the account status in one
// transaction. A repeated ban for the same uid overwrites the record and
// clears any earlier unban fields.
func (s *pgStore) BanAccount(ctx context.Context, ban *economy.Ban) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		dao := toBanDao(ban)
		_, err := tx.NewInsert().
			Model(dao).
			On("CONFLICT (uid) DO UPDATE").
			Set("reason = EXCLUDED.reason").
			Set("evidence = EXCLUDED.evidence").
			Set("banned_at = EXCLUDED.banned_at").
			Set("banned_by = EXCLUDED.banned_by").
			Set("unbanned_at = NULL").
			Set("unbanned_by = NULL").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to write ban record: %w", err)
		}

		res, err := tx.NewUpdate().
			Model((*AccountDao)(nil)).
			Set("status = ?", string(economy.StatusBanned)).
			Where("uid = ?", ban.UID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update account status: %w", err)
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return economy.ErrAccountNotFound
		}

		// Gate bans are already on the ban record; only operator
		// decisions go to the admin trail.
		if ban.BannedBy != economy.SystemActor {
			return appendAdminAction(ctx, tx, &AdminActionDao{
				AdminUID:  ban.BannedBy,
				Action:    economy.ActionAccountBanned,
				TargetUID: ban.UID,
				Details:   map[string]any{"reason": string(ban.Reason)},
				CreatedAt: ban.BannedAt,
			})
		}
		return nil
	})
}

// UnbanAccount restores the account and stamps the existing ban record;
// the record itself is never deleted.
func (s *pgStore) UnbanAccount(ctx context.Context, uid, adminUID string, now time.Time) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*BanDao)(nil)).
			Set("unbanned_at = ?", now).
			Set("unbanned_by = ?", adminUID).
			Where("uid = ?", uid).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update ban record: %w", err)
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return economy.ErrAccountNotFound
		}

		_, err = tx.NewUpdate().
			Model((*AccountDao)(nil)).
			Set("status = ?", string(economy.StatusActive)).
			Where("uid = ?", uid).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to restore account status: %w", err)
		}

		return appendAdminAction(ctx, tx, &AdminActionDao{
			AdminUID:  adminUID,
			Action:    economy.ActionAccountUnbanned,
			TargetUID: uid,
			CreatedAt: now,
		})
	})
}

func (s *pgStore) GetBan(ctx context.Context, uid string) (*economy.Ban, error) {
	dao := new(BanDao)
	err := s.db.NewSelect().Model(dao).Where("uid = ?", uid).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ban: %w", err)
	}
	return toBan(dao), nil
}

// =============================================================================
// Withdrawals
// =============================================================================

// CreateWithdrawal debits the account and creates the pending request in
// one transaction. The debit touches balance only; total_earned is a
// monotonic earnings counter.
func (s *pgStore) CreateWithdrawal(ctx context.Context, w *economy.Withdrawal) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		a, err := lockAccount(ctx, tx, w.UID)
		if err != nil {
			return err
		}
		if a.Status != economy.StatusActive {
			return economy.ErrAccountNotActive
		}
		if a.Balance < w.Amount {
			return economy.ErrInsufficientBalance
		}

		pending, err := tx.NewSelect().
			Model((*WithdrawalDao)(nil)).
			Where("uid = ? AND status = ?", w.UID, string(economy.WithdrawalPending)).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check pending withdrawals: %w", err)
		}
		if pending {
			return economy.ErrPendingWithdrawalExists
		}

		dao := new(AccountDao)
		err = tx.NewUpdate().
			Model(dao).
			Set("balance = balance - ?", w.Amount).
			Where("uid = ?", w.UID).
			Returning("balance").
			Scan(ctx)
		if err != nil {
			return fmt.Errorf("failed to debit balance: %w", err)
		}

		if _, err := tx.NewInsert().Model(toWithdrawalDao(w)).Exec(ctx); err != nil {
			if isIntegrityViolation(err) {
				return economy.ErrPendingWithdrawalExists
			}
			return fmt.Errorf("failed to create withdrawal: %w", err)
		}

		return appendLedgerEntry(ctx, tx, &LedgerEntryDao{
			EntryID:      uuid.NewString(),
			UID:          w.UID,
			Type:         string(economy.EntryWithdrawal),
			Amount:       -w.Amount,
			BalanceAfter: dao.Balance,
			Ref:          w.ID,
			CreatedAt:    w.RequestedAt,
		})
	})
}

func lockWithdrawal(ctx context.Context, tx bun.Tx, id string) (*WithdrawalDao, error) {
	dao := new(WithdrawalDao)
	err := tx.NewSelect().Model(dao).Where("id = ?", id).For("UPDATE").Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, economy.ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("failed to lock withdrawal: %w", err)
	}
	return dao, nil
}

// ApproveWithdrawal flips a pending request to approved. No balance
// change: the debit already happened at request time.
func (s *pgStore) ApproveWithdrawal(ctx context.Context, id, adminUID string, now time.Time) (*economy.Withdrawal, error) {
	var approved *economy.Withdrawal
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		dao, err := lockWithdrawal(ctx, tx, id)
		if err != nil {
			return err
		}
		if dao.Status != string(economy.WithdrawalPending) {
			return &economy.WithdrawalStateError{Status: economy.WithdrawalStatus(dao.Status)}
		}

		dao.Status = string(economy.WithdrawalApproved)
		dao.DecidedAt = &now
		dao.DecidedBy = &adminUID

		_, err = tx.NewUpdate().
			Model(dao).
			Column("status", "decided_at", "decided_by").
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to approve withdrawal: %w", err)
		}

		if err := appendAdminAction(ctx, tx, &AdminActionDao{
			AdminUID:  adminUID,
			Action:    economy.ActionWithdrawalApproved,
			TargetUID: dao.UID,
			TargetID:  dao.ID,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		approved = toWithdrawal(dao)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// RejectWithdrawal flips a pending request to rejected and refunds the
// full original amount in the same transaction.
func (s *pgStore) RejectWithdrawal(ctx context.Context, id, adminUID, reason string, now time.Time) (*economy.Withdrawal, error) {
	var rejected *economy.Withdrawal
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		dao, err := lockWithdrawal(ctx, tx, id)
		if err != nil {
			return err
		}
		if dao.Status != string(economy.WithdrawalPending) {
			return &economy.WithdrawalStateError{Status: economy.WithdrawalStatus(dao.Status)}
		}

		dao.Status = string(economy.WithdrawalRejected)
		dao.DecidedAt = &now
		dao.DecidedBy = &adminUID
		dao.RejectionReason = &reason

		_, err = tx.NewUpdate().
			Model(dao).
			Column("status", "decided_at", "decided_by", "rejection_reason").
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to reject withdrawal: %w", err)
		}

		balanceAfter, err := creditBalance(ctx, tx, dao.UID, dao.Amount)
		if err != nil {
			return fmt.Errorf("failed to refund withdrawal: %w", err)
		}

		if err := appendLedgerEntry(ctx, tx, &LedgerEntryDao{
			EntryID:      uuid.NewString(),
			UID:          dao.UID,
			Type:         string(economy.EntryWithdrawalRefund),
			Amount:       dao.Amount,
			BalanceAfter: balanceAfter,
			Ref:          dao.ID,
			CreatedAt:    now,
		}); err != nil {
			return err
		}

		if err := appendAdminAction(ctx, tx, &AdminActionDao{
			AdminUID:  adminUID,
			Action:    economy.ActionWithdrawalRejected,
			TargetUID: dao.UID,
			TargetID:  dao.ID,
			Details:   map[string]any{"reason": reason},
			CreatedAt: now,
		}); err != nil {
			return err
		}

		rejected = toWithdrawal(dao)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

func (s *pgStore) GetWithdrawal(ctx context.Context, id string) (*economy.Withdrawal, error) {
	dao := new(WithdrawalDao)
	err := s.db.NewSelect().Model(dao).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, economy.ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("failed to get withdrawal: %w", err)
	}
	return toWithdrawal(dao), nil
}

func (s *pgStore) ListWithdrawals(ctx context.Context, uid string, limit int) ([]*economy.Withdrawal, error) {
	var daos []WithdrawalDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("uid = ?", uid).
		Order("requested_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	withdrawals := make([]*economy.Withdrawal, len(daos))
	for i := range daos {
		withdrawals[i] = toWithdrawal(&daos[i])
	}
	return withdrawals, nil
}

func (s *pgStore) ListPendingWithdrawals(ctx context.Context, limit int) ([]*economy.Withdrawal, error) {
	var daos []WithdrawalDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("status = ?", string(economy.WithdrawalPending)).
		Order("requested_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending withdrawals: %w", err)
	}
	withdrawals := make([]*economy.Withdrawal, len(daos))
	for i := range daos {
		withdrawals[i] = toWithdrawal(&daos[i])
	}
	return withdrawals, nil
}

func (s *pgStore) ListAllWithdrawals(ctx context.Context, status economy.WithdrawalStatus, limit int) ([]*economy.Withdrawal, error) {
	var daos []WithdrawalDao
	q := s.db.NewSelect().
		Model(&daos).
		Order("requested_at DESC").
		Limit(limit)
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list all withdrawals: %w", err)
	}
	withdrawals := make([]*economy.Withdrawal, len(daos))
	for i := range daos {
		withdrawals[i] = toWithdrawal(&daos[i])
	}
	return withdrawals, nil
}

// =============================================================================
// Audit
// =============================================================================

func (s *pgStore) ListLedgerEntries(ctx context.Context, uid string, limit int) ([]*economy.LedgerEntry, error) {
	var daos []LedgerEntryDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("uid = ?", uid).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	entries := make([]*economy.LedgerEntry, len(daos))
	for i := range daos {
		entries[i] = toLedgerEntry(&daos[i])
	}
	return entries, nil
}

func (s *pgStore) ListSpinResults(ctx context.Context, uid string, limit int) ([]*economy.SpinResult, error) {
	var daos []SpinResultDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("uid = ?", uid).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list spin results: %w", err)
	}
	results := make([]*economy.SpinResult, len(daos))
	for i := range daos {
		results[i] = toSpinResult(&daos[i])
	}
	return results, nil
}

func (s *pgStore) ListAdminActions(ctx context.Context, limit int) ([]*economy.AdminAction, error) {
	var daos []AdminActionDao
	err := s.db.NewSelect().
		Model(&daos).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin actions: %w", err)
	}
	actions := make([]*economy.AdminAction, len(daos))
	for i := range daos {
		actions[i] = toAdminAction(&daos[i])
	}
	return actions, nil
}

// Imbalance reports an account whose balance has drifted from the sum of
// its ledger entry amounts.
type Imbalance struct {
	UID       string `bun:"uid"`
	Balance   int64  `bun:"balance"`
	LedgerSum int64  `bun:"ledger_sum"`
}

// LedgerImbalances returns every account violating the ledger invariant.
// An empty result is the healthy state.
func (s *pgStore) LedgerImbalances(ctx context.Context) ([]Imbalance, error) {
	var imbalances []Imbalance
	err := s.db.NewSelect().
		TableExpr("accounts AS a").
		ColumnExpr("a.uid").
		ColumnExpr("a.balance").
		ColumnExpr("COALESCE(SUM(l.amount), 0) AS ledger_sum").
		Join("LEFT JOIN ledger_entries AS l ON l.uid = a.uid").
		GroupExpr("a.uid, a.balance").
		Having("a.balance != COALESCE(SUM(l.amount), 0)").
		Scan(ctx, &imbalances)
	if err != nil {
		return nil, fmt.Errorf("failed to compute ledger imbalances: %w", err)
	}
	return imbalances, nil
}
