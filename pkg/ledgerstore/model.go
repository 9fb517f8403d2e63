package ledgerstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/kamyabi/economy-engine/pkg/economy"
)

// AccountDao is a data access object that maps directly to the 'accounts' table in PostgreSQL.
type AccountDao struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`
	UID           string            `bun:"uid,pk,type:varchar(64)"`
	Phone         string            `bun:"phone,notnull,type:varchar(32)"`
	Status        string            `bun:"status,notnull,type:varchar(16)"`
	Balance       int64             `bun:"balance,notnull,default:0"`
	TotalEarned   int64             `bun:"total_earned,notnull,default:0"`
	TaskProgress  map[string]string `bun:"task_progress,type:jsonb"`
	NextCycleAt   time.Time         `bun:"next_cycle_at,notnull"`
	NextTaskAt    time.Time         `bun:"next_task_at,notnull"`
	LastTaskAt    *time.Time        `bun:"last_task_at"`
	ReferralCode  string            `bun:"referral_code,unique,notnull,type:varchar(16)"`
	InvitedBy     *string           `bun:"invited_by,type:varchar(64)"`
	CreatedAt     time.Time         `bun:"created_at,nullzero,default:current_timestamp"`
}

func toAccountDao(acct *economy.Account) *AccountDao {
	dao := &AccountDao{
		UID:          acct.UID,
		Phone:        acct.Phone,
		Status:       string(acct.Status),
		Balance:      acct.Balance,
		TotalEarned:  acct.TotalEarned,
		TaskProgress: make(map[string]string, len(acct.TaskProgress)),
		NextCycleAt:  acct.NextCycleAt,
		NextTaskAt:   acct.NextTaskAt,
		ReferralCode: acct.ReferralCode,
	}
	for slot, state := range acct.TaskProgress {
		dao.TaskProgress[string(slot)] = string(state)
	}
	if !acct.LastTaskAt.IsZero() {
		t := acct.LastTaskAt
		dao.LastTaskAt = &t
	}
	if acct.InvitedBy != "" {
		dao.InvitedBy = &acct.InvitedBy
	}
	return dao
}

func toAccount(dao *AccountDao) *economy.Account {
	acct := &economy.Account{
		UID:          dao.UID,
		Phone:        dao.Phone,
		Status:       economy.AccountStatus(dao.Status),
		Balance:      dao.Balance,
		TotalEarned:  dao.TotalEarned,
		TaskProgress: economy.NewTaskProgress(),
		NextCycleAt:  dao.NextCycleAt,
		NextTaskAt:   dao.NextTaskAt,
		ReferralCode: dao.ReferralCode,
		CreatedAt:    dao.CreatedAt,
	}
	for slot, state := range dao.TaskProgress {
		acct.TaskProgress[economy.TaskSlot(slot)] = economy.SlotState(state)
	}
	if dao.LastTaskAt != nil {
		acct.LastTaskAt = *dao.LastTaskAt
	}
	if dao.InvitedBy != nil {
		acct.InvitedBy = *dao.InvitedBy
	}
	return acct
}

// DeviceBindingDao maps to the 'device_bindings' table.
type DeviceBindingDao struct {
	bun.BaseModel `bun:"table:device_bindings,alias:d"`
	Key           string    `bun:"key,pk,type:varchar(80)"`
	BoundUID      string    `bun:"bound_uid,notnull,type:varchar(64)"`
	LastSeen      time.Time `bun:"last_seen,notnull"`
	LastIP        string    `bun:"last_ip,type:varchar(45)"`
	AppVersion    string    `bun:"app_version,type:varchar(32)"`
	RiskScore     int       `bun:"risk_score,notnull,default:0"`
}

func toDeviceBindingDao(b *economy.DeviceBinding) *DeviceBindingDao {
	return &DeviceBindingDao{
		Key:        b.Key,
		BoundUID:   b.BoundUID,
		LastSeen:   b.LastSeen,
		LastIP:     b.LastIP,
		AppVersion: b.AppVersion,
		RiskScore:  b.RiskScore,
	}
}

func toDeviceBinding(dao *DeviceBindingDao) *economy.DeviceBinding {
	return &economy.DeviceBinding{
		Key:        dao.Key,
		BoundUID:   dao.BoundUID,
		LastSeen:   dao.LastSeen,
		LastIP:     dao.LastIP,
		AppVersion: dao.AppVersion,
		RiskScore:  dao.RiskScore,
	}
}

// BanDao maps to the 'bans' table. Unbans update the record in place.
type BanDao struct {
	bun.BaseModel `bun:"table:bans,alias:b"`
	UID           string         `bun:"uid,pk,type:varchar(64)"`
	Reason        string         `bun:"reason,notnull,type:varchar(40)"`
	Evidence      map[string]any `bun:"evidence,type:jsonb"`
	BannedAt      time.Time      `bun:"banned_at,notnull"`
	BannedBy      string         `bun:"banned_by,notnull,type:varchar(64)"`
	UnbannedAt    *time.Time     `bun:"unbanned_at"`
	UnbannedBy    *string        `bun:"unbanned_by,type:varchar(64)"`
}

func toBanDao(ban *economy.Ban) *BanDao {
	dao := &BanDao{
		UID:        ban.UID,
		Reason:     string(ban.Reason),
		Evidence:   ban.Evidence,
		BannedAt:   ban.BannedAt,
		BannedBy:   ban.BannedBy,
		UnbannedAt: ban.UnbannedAt,
	}
	if ban.UnbannedBy != "" {
		dao.UnbannedBy = &ban.UnbannedBy
	}
	return dao
}

func toBan(dao *BanDao) *economy.Ban {
	ban := &economy.Ban{
		UID:        dao.UID,
		Reason:     economy.BanReason(dao.Reason),
		Evidence:   dao.Evidence,
		BannedAt:   dao.BannedAt,
		BannedBy:   dao.BannedBy,
		UnbannedAt: dao.UnbannedAt,
	}
	if dao.UnbannedBy != nil {
		ban.UnbannedBy = *dao.UnbannedBy
	}
	return ban
}

// ReferralRecordDao maps to the 'referral_records' table.
type ReferralRecordDao struct {
	bun.BaseModel     `bun:"table:referral_records,alias:r"`
	UID               string         `bun:"uid,pk,type:varchar(64)"`
	InviterUID        *string        `bun:"inviter_uid,type:varchar(64)"`
	Chain             map[int]string `bun:"chain,type:jsonb"`
	ChildrenL1        []string       `bun:"children_l1,type:jsonb"`
	VerifiedInvitesL1 int            `bun:"verified_invites_l1,notnull,default:0"`
}

func toReferralRecordDao(rec *economy.ReferralRecord) *ReferralRecordDao {
	dao := &ReferralRecordDao{
		UID:               rec.UID,
		Chain:             rec.Chain,
		ChildrenL1:        rec.ChildrenL1,
		VerifiedInvitesL1: rec.VerifiedInvitesL1,
	}
	if dao.Chain == nil {
		dao.Chain = map[int]string{}
	}
	if dao.ChildrenL1 == nil {
		dao.ChildrenL1 = []string{}
	}
	if rec.InviterUID != "" {
		dao.InviterUID = &rec.InviterUID
	}
	return dao
}

func toReferralRecord(dao *ReferralRecordDao) *economy.ReferralRecord {
	rec := &economy.ReferralRecord{
		UID:               dao.UID,
		Chain:             dao.Chain,
		ChildrenL1:        dao.ChildrenL1,
		VerifiedInvitesL1: dao.VerifiedInvitesL1,
	}
	if rec.Chain == nil {
		rec.Chain = map[int]string{}
	}
	if dao.InviterUID != nil {
		rec.InviterUID = *dao.InviterUID
	}
	return rec
}

// LedgerEntryDao maps to the append-only 'ledger_entries' table.
type LedgerEntryDao struct {
	bun.BaseModel `bun:"table:ledger_entries,alias:l"`
	EntryID       string    `bun:"entry_id,pk,type:uuid"`
	UID           string    `bun:"uid,notnull,type:varchar(64)"`
	Type          string    `bun:"type,notnull,type:varchar(32)"`
	Amount        int64     `bun:"amount,notnull"`
	BalanceAfter  int64     `bun:"balance_after,notnull"`
	Ref           string    `bun:"ref,type:varchar(128)"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

func toLedgerEntry(dao *LedgerEntryDao) *economy.LedgerEntry {
	return &economy.LedgerEntry{
		EntryID:      dao.EntryID,
		UID:          dao.UID,
		Type:         economy.EntryType(dao.Type),
		Amount:       dao.Amount,
		BalanceAfter: dao.BalanceAfter,
		Ref:          dao.Ref,
		CreatedAt:    dao.CreatedAt,
	}
}

// WithdrawalDao maps to the 'withdrawals' table. A partial unique index
// on (uid) WHERE status = 'pending' backs the one-pending-per-account
// invariant.
type WithdrawalDao struct {
	bun.BaseModel   `bun:"table:withdrawals,alias:w"`
	ID              string     `bun:"id,pk,type:uuid"`
	UID             string     `bun:"uid,notnull,type:varchar(64)"`
	Method          string     `bun:"method,notnull,type:varchar(20)"`
	Amount          int64      `bun:"amount,notnull"`
	Fee             int64      `bun:"fee,notnull,default:0"`
	NetAmount       int64      `bun:"net_amount,notnull"`
	AccountNumber   string     `bun:"account_number,notnull,type:varchar(64)"`
	AccountName     string     `bun:"account_name,type:varchar(128)"`
	Status          string     `bun:"status,notnull,type:varchar(16)"`
	RequestedAt     time.Time  `bun:"requested_at,notnull"`
	DecidedAt       *time.Time `bun:"decided_at"`
	DecidedBy       *string    `bun:"decided_by,type:varchar(64)"`
	RejectionReason *string    `bun:"rejection_reason,type:varchar(255)"`
}

func toWithdrawalDao(w *economy.Withdrawal) *WithdrawalDao {
	dao := &WithdrawalDao{
		ID:            w.ID,
		UID:           w.UID,
		Method:        string(w.Method),
		Amount:        w.Amount,
		Fee:           w.Fee,
		NetAmount:     w.NetAmount,
		AccountNumber: w.AccountNumber,
		AccountName:   w.AccountName,
		Status:        string(w.Status),
		RequestedAt:   w.RequestedAt,
		DecidedAt:     w.DecidedAt,
	}
	if w.DecidedBy != "" {
		dao.DecidedBy = &w.DecidedBy
	}
	if w.RejectionReason != "" {
		dao.RejectionReason = &w.RejectionReason
	}
	return dao
}

func toWithdrawal(dao *WithdrawalDao) *economy.Withdrawal {
	w := &economy.Withdrawal{
		ID:            dao.ID,
		UID:           dao.UID,
		Method:        economy.WithdrawalMethod(dao.Method),
		Amount:        dao.Amount,
		Fee:           dao.Fee,
		NetAmount:     dao.NetAmount,
		AccountNumber: dao.AccountNumber,
		AccountName:   dao.AccountName,
		Status:        economy.WithdrawalStatus(dao.Status),
		RequestedAt:   dao.RequestedAt,
		DecidedAt:     dao.DecidedAt,
	}
	if dao.DecidedBy != nil {
		w.DecidedBy = *dao.DecidedBy
	}
	if dao.RejectionReason != nil {
		w.RejectionReason = *dao.RejectionReason
	}
	return w
}

// SpinResultDao maps to the immutable 'spin_results' audit table.
type SpinResultDao struct {
	bun.BaseModel `bun:"table:spin_results,alias:s"`
	SpinID        string         `bun:"spin_id,pk,type:uuid"`
	UID           string         `bun:"uid,notnull,type:varchar(64)"`
	Prize         int64          `bun:"prize,notnull"`
	Label         string         `bun:"label,notnull,type:varchar(32)"`
	Weights       map[string]int `bun:"weights,type:jsonb"`
	CreatedAt     time.Time      `bun:"created_at,nullzero,default:current_timestamp"`
}

func toSpinResultDao(r *economy.SpinResult) *SpinResultDao {
	return &SpinResultDao{
		SpinID:    r.SpinID,
		UID:       r.UID,
		Prize:     r.Prize,
		Label:     r.Label,
		Weights:   r.Weights,
		CreatedAt: r.CreatedAt,
	}
}

func toSpinResult(dao *SpinResultDao) *economy.SpinResult {
	return &economy.SpinResult{
		SpinID:    dao.SpinID,
		UID:       dao.UID,
		Prize:     dao.Prize,
		Label:     dao.Label,
		Weights:   dao.Weights,
		CreatedAt: dao.CreatedAt,
	}
}

// AdminActionDao maps to the append-only 'admin_actions' audit table.
// Every operator decision leaves a row here, next to the record it
// touched.
type AdminActionDao struct {
	bun.BaseModel `bun:"table:admin_actions,alias:aa"`
	ID            int64          `bun:"id,pk,autoincrement"`
	AdminUID      string         `bun:"admin_uid,notnull,type:varchar(64)"`
	Action        string         `bun:"action,notnull,type:varchar(40)"`
	TargetUID     string         `bun:"target_uid,type:varchar(64)"`
	TargetID      string         `bun:"target_id,type:varchar(64)"`
	Details       map[string]any `bun:"details,type:jsonb"`
	CreatedAt     time.Time      `bun:"created_at,nullzero,default:current_timestamp"`
}

func toAdminAction(dao *AdminActionDao) *economy.AdminAction {
	return &economy.AdminAction{
		ID:        dao.ID,
		AdminUID:  dao.AdminUID,
		Action:    dao.Action,
		TargetUID: dao.TargetUID,
		TargetID:  dao.TargetID,
		Details:   dao.Details,
		CreatedAt: dao.CreatedAt,
	}
}

// TaskLogDao maps to the per-day 'task_logs' analytics table.
type TaskLogDao struct {
	bun.BaseModel `bun:"table:task_logs,alias:t"`
	ID            int64     `bun:"id,pk,autoincrement"`
	UID           string    `bun:"uid,notnull,type:varchar(64)"`
	Date          string    `bun:"date,notnull,type:varchar(10)"`
	Task          string    `bun:"task,notnull,type:varchar(10)"`
	Reward        int64     `bun:"reward,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}
