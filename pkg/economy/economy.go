// Package economy defines the core domain model of the reward economy:
// accounts, the task cycle state machine, referral records, ledger entries,
// withdrawals and the constants that govern them.
package economy

import "time"

// AccountStatus represents the lifecycle state of an account
type AccountStatus string

const (
	StatusActive  AccountStatus = "active"
	StatusBanned  AccountStatus = "banned"
	StatusPending AccountStatus = "pending"
)

// TaskSlot identifies one of the four daily task slots
type TaskSlot string

const (
	Task1 TaskSlot = "task_1"
	Task2 TaskSlot = "task_2"
	Task3 TaskSlot = "task_3"
	Task4 TaskSlot = "task_4"
)

// TaskSlots lists all slots in cycle order
var TaskSlots = []TaskSlot{Task1, Task2, Task3, Task4}

// SlotState represents the per-cycle state of a single task slot
type SlotState string

const (
	SlotPending   SlotState = "pending"
	SlotCompleted SlotState = "completed"
	SlotLocked    SlotState = "locked"
)

// Economy constants. Amounts are integer reward units.
const (
	// CycleDuration is the window during which each slot can be completed once
	CycleDuration = 24 * time.Hour
	// TaskCooldown is the minimum interval between two task completions
	TaskCooldown = 3 * time.Minute
	// InviteTarget is the number of verified L1 invites required for task_3
	InviteTarget = 15
	// SignupBonus is credited to the direct inviter on each registration
	SignupBonus int64 = 3
	// MinWithdrawal is the smallest amount a payout request may carry
	MinWithdrawal int64 = 500
	// CryptoFeePercent is the fee taken on the crypto payout rail
	CryptoFeePercent int64 = 2
	// MinAccountNumberLen is the minimum plausible payout account identifier length
	MinAccountNumberLen = 5
)

// TaskRewards maps fixed-reward slots to their reward amount.
// task_4 resolves through the spin wheel and has no fixed reward.
var TaskRewards = map[TaskSlot]int64{
	Task1: 20,
	Task2: 20,
	Task3: 50,
}

// CommissionRates holds the percentage paid to ancestors at levels 1..3
var CommissionRates = [3]int64{10, 5, 2}

// MaxChainDepth is the deepest ancestor level recorded in a referral chain
const MaxChainDepth = 6

// Commission returns the floor of rate percent of the reward amount
func Commission(reward int64, ratePercent int64) int64 {
	return reward * ratePercent / 100
}

// Account is the per-user economy state. Balance and TotalEarned are
// integer unit accumulators; Balance must always equal the sum of the
// account's ledger entry amounts.
type Account struct {
	UID          string
	Phone        string
	Status       AccountStatus
	Balance      int64
	TotalEarned  int64
	TaskProgress map[TaskSlot]SlotState
	NextCycleAt  time.Time
	NextTaskAt   time.Time
	LastTaskAt   time.Time
	ReferralCode string
	InvitedBy    string
	CreatedAt    time.Time
}

// NewTaskProgress returns a fresh all-pending progress map
func NewTaskProgress() map[TaskSlot]SlotState {
	progress := make(map[TaskSlot]SlotState, len(TaskSlots))
	for _, slot := range TaskSlots {
		progress[slot] = SlotPending
	}
	return progress
}

// DeviceBinding enforces the one-account-per-device constraint.
// Key is a one-way hash of the device fingerprint tuple.
type DeviceBinding struct {
	Key        string
	BoundUID   string
	LastSeen   time.Time
	LastIP     string
	AppVersion string
	RiskScore  int
}

// BanReason enumerates why an account was banned
type BanReason string

const (
	BanRootDetected          BanReason = "root_detected"
	BanEmulatorDetected      BanReason = "emulator_detected"
	BanVPNDetected           BanReason = "vpn_detected"
	BanCloneDetected         BanReason = "clone_detected"
	BanParallelSpaceDetected BanReason = "parallel_space_detected"
	BanHookingDetected       BanReason = "hooking_detected"
	BanIntegrityFailed       BanReason = "integrity_failed"
	BanMultiAccountDevice    BanReason = "multi_account_device"
	BanAdminManual           BanReason = "admin_manual_ban"
	BanSuspiciousBehavior    BanReason = "suspicious_behavior"
)

// SystemActor is recorded as BannedBy when the gate bans automatically
const SystemActor = "system"

// Ban is the audit record of an account ban. Unbans update the same
// record rather than deleting it.
type Ban struct {
	UID        string
	Reason     BanReason
	Evidence   map[string]any
	BannedAt   time.Time
	BannedBy   string
	UnbannedAt *time.Time
	UnbannedBy string
}

// AdminAction is one row of the operator audit trail. Recorded
// alongside every admin decision, never deleted.
type AdminAction struct {
	ID        int64
	AdminUID  string
	Action    string
	TargetUID string
	TargetID  string
	Details   map[string]any
	CreatedAt time.Time
}

// Admin audit trail action names
const (
	ActionWithdrawalApproved = "withdrawal_approved"
	ActionWithdrawalRejected = "withdrawal_rejected"
	ActionAccountBanned      = "account_banned"
	ActionAccountUnbanned    = "account_unbanned"
)

// ReferralRecord captures the fixed ancestor chain of an account.
// Chain maps level (1..6) to the ancestor uid; level 1 is the direct
// inviter. ChildrenL1 is append-only.
type ReferralRecord struct {
	UID               string
	InviterUID        string
	Chain             map[int]string
	ChildrenL1        []string
	VerifiedInvitesL1 int
}

// EntryType tags a ledger entry with the event that produced it
type EntryType string

const (
	EntryTaskReward         EntryType = "task_reward"
	EntrySpinReward         EntryType = "spin_reward"
	EntryReferralCommission EntryType = "referral_commission"
	EntryInviteBonusL1      EntryType = "invite_bonus_l1"
	EntryWithdrawal         EntryType = "withdrawal"
	EntryWithdrawalRefund   EntryType = "withdrawal_refund"
)

// LedgerEntry is an immutable record of a single balance-affecting event.
// Amount is signed; BalanceAfter snapshots the account balance after the
// entry was applied.
type LedgerEntry struct {
	EntryID      string
	UID          string
	Type         EntryType
	Amount       int64
	BalanceAfter int64
	Ref          string
	CreatedAt    time.Time
}

// WithdrawalMethod enumerates the supported payout rails
type WithdrawalMethod string

const (
	MethodEasypaisa WithdrawalMethod = "easypaisa"
	MethodJazzcash  WithdrawalMethod = "jazzcash"
	MethodUSDT      WithdrawalMethod = "usdt_trc20"
)

// WithdrawalMethods lists all accepted payout rails
var WithdrawalMethods = []WithdrawalMethod{MethodEasypaisa, MethodJazzcash, MethodUSDT}

// ValidWithdrawalMethod reports whether m is an accepted payout rail
func ValidWithdrawalMethod(m WithdrawalMethod) bool {
	for _, method := range WithdrawalMethods {
		if m == method {
			return true
		}
	}
	return false
}

// WithdrawalFee returns the fee charged for the given method and amount
func WithdrawalFee(method WithdrawalMethod, amount int64) int64 {
	if method == MethodUSDT {
		return amount * CryptoFeePercent / 100
	}
	return 0
}

// WithdrawalStatus represents the lifecycle state of a payout request
type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

// Withdrawal is a payout request. The balance debit happens at request
// time; rejection refunds the full original amount.
type Withdrawal struct {
	ID              string
	UID             string
	Method          WithdrawalMethod
	Amount          int64
	Fee             int64
	NetAmount       int64
	AccountNumber   string
	AccountName     string
	Status          WithdrawalStatus
	RequestedAt     time.Time
	DecidedAt       *time.Time
	DecidedBy       string
	RejectionReason string
}

// SpinResult is the immutable audit record of one wheel draw, written
// even for zero-prize outcomes.
type SpinResult struct {
	SpinID    string
	UID       string
	Prize     int64
	Label     string
	Weights   map[string]int
	CreatedAt time.Time
}

// TaskLog is a per-day analytics record of a completed task; it is not
// consulted for gating decisions.
type TaskLog struct {
	UID       string
	Date      string
	Task      TaskSlot
	Reward    int64
	CreatedAt time.Time
}
