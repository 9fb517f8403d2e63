package ledgerstore

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kamyabi/economy-engine/pkg/economy"
	"github.com/kamyabi/economy-engine/pkg/pgutil"
	mghelper "github.com/kamyabi/economy-engine/pkg/pgutil/migrations"
)

func setupStore(t *testing.T) (context.Context, *pgStore) {
	t.Helper()
	requireDockerAccess(t)

	ctx := context.Background()
	db, cleanup := pgutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	err := mghelper.CreateSchema(ctx, db,
		&AccountDao{},
		&DeviceBindingDao{},
		&BanDao{},
		&ReferralRecordDao{},
		&LedgerEntryDao{},
		&WithdrawalDao{},
		&SpinResultDao{},
		&TaskLogDao{},
	)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return ctx, NewStore(db)
}

func requireDockerAccess(t *testing.T) {
	t.Helper()

	candidates := []string{
		"/var/run/docker.sock",
		filepath.Join(os.Getenv("HOME"), ".docker/run/docker.sock"),
	}

	for _, sock := range candidates {
		if sock == "" {
			continue
		}
		if _, err := os.Stat(sock); err != nil {
			continue
		}
		conn, err := (&net.Dialer{}).DialContext(context.Background(), "unix", sock)
		if err == nil {
			_ = conn.Close()
			return
		}
	}

	t.Skip("docker daemon socket is not accessible; skipping testcontainer-backed ledgerstore tests")
}

// newTestAccount returns an active account whose cycle and cooldown gates
// are already open at time.Now().
func newTestAccount(uid, code string) *economy.Account {
	past := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	return &economy.Account{
		UID:          uid,
		Phone:        "+92300" + uid,
		Status:       economy.StatusActive,
		TaskProgress: economy.NewTaskProgress(),
		NextCycleAt:  past,
		NextTaskAt:   past,
		ReferralCode: code,
		CreatedAt:    past,
	}
}

func mustCreateAccount(t *testing.T, ctx context.Context, s *pgStore, acct *economy.Account) {
	t.Helper()
	rec := &economy.ReferralRecord{UID: acct.UID, InviterUID: acct.InvitedBy}
	if acct.InvitedBy != "" {
		rec.Chain = map[int]string{1: acct.InvitedBy}
	}
	if err := s.CreateAccount(ctx, acct, rec); err != nil {
		t.Fatalf("CreateAccount(%s) failed: %v", acct.UID, err)
	}
}

func assertLedgerBalanced(t *testing.T, ctx context.Context, s *pgStore) {
	t.Helper()
	imbalances, err := s.LedgerImbalances(ctx)
	if err != nil {
		t.Fatalf("LedgerImbalances() failed: %v", err)
	}
	if len(imbalances) != 0 {
		t.Fatalf("expected balanced ledger, got %+v", imbalances)
	}
}

func TestLedgerPGStore_CreateAccountAndInviterBonus(t *testing.T) {
	ctx, s := setupStore(t)

	inviter := newTestAccount("uid-inviter", "KCAAAAAA")
	mustCreateAccount(t, ctx, s, inviter)

	invitee := newTestAccount("uid-invitee", "KCBBBBBB")
	invitee.InvitedBy = inviter.UID
	mustCreateAccount(t, ctx, s, invitee)

	got, err := s.GetAccount(ctx, inviter.UID)
	if err != nil {
		t.Fatalf("GetAccount(inviter) failed: %v", err)
	}
	if got.Balance != economy.SignupBonus {
		t.Fatalf("inviter balance: got %d want %d", got.Balance, economy.SignupBonus)
	}
	if got.TotalEarned != economy.SignupBonus {
		t.Fatalf("inviter total earned: got %d want %d", got.TotalEarned, economy.SignupBonus)
	}

	rec, err := s.GetReferralRecord(ctx, inviter.UID)
	if err != nil {
		t.Fatalf("GetReferralRecord(inviter) failed: %v", err)
	}
	if rec.VerifiedInvitesL1 != 1 {
		t.Fatalf("verified invites: got %d want 1", rec.VerifiedInvitesL1)
	}
	if len(rec.ChildrenL1) != 1 || rec.ChildrenL1[0] != invitee.UID {
		t.Fatalf("children: got %v want [%s]", rec.ChildrenL1, invitee.UID)
	}

	entries, err := s.ListLedgerEntries(ctx, inviter.UID, 10)
	if err != nil {
		t.Fatalf("ListLedgerEntries() failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one ledger entry, got %d", len(entries))
	}
	if entries[0].Type != economy.EntryInviteBonusL1 {
		t.Fatalf("entry type: got %s want %s", entries[0].Type, economy.EntryInviteBonusL1)
	}
	if entries[0].BalanceAfter != economy.SignupBonus {
		t.Fatalf("balance after: got %d want %d", entries[0].BalanceAfter, economy.SignupBonus)
	}

	dup := newTestAccount(inviter.UID, "KCCCCCCC")
	err = s.CreateAccount(ctx, dup, &economy.ReferralRecord{UID: dup.UID})
	if !errors.Is(err, economy.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}

	_, err = s.GetAccountByReferralCode(ctx, "KCBBBBBB")
	if err != nil {
		t.Fatalf("GetAccountByReferralCode() failed: %v", err)
	}
	_, err = s.GetAccountByReferralCode(ctx, "KCZZZZZZ")
	if !errors.Is(err, economy.ErrReferralCodeNotFound) {
		t.Fatalf("expected ErrReferralCodeNotFound, got %v", err)
	}

	assertLedgerBalanced(t, ctx, s)
}

func TestLedgerPGStore_CommitTaskClaim(t *testing.T) {
	ctx, s := setupStore(t)

	acct := newTestAccount("uid-tasks", "KCDDDDDD")
	mustCreateAccount(t, ctx, s, acct)

	now := time.Now().UTC().Truncate(time.Second)
	updated, err := s.CommitTaskClaim(ctx, acct.UID, economy.Task1, economy.TaskRewards[economy.Task1], now)
	if err != nil {
		t.Fatalf("CommitTaskClaim(task_1) failed: %v", err)
	}
	if updated.Balance != 20 {
		t.Fatalf("balance after task_1: got %d want 20", updated.Balance)
	}
	if updated.TaskProgress[economy.Task1] != economy.SlotCompleted {
		t.Fatalf("task_1 state: got %s want completed", updated.TaskProgress[economy.Task1])
	}

	// Within cooldown the claim must fail against the persisted state.
	_, err = s.CommitTaskClaim(ctx, acct.UID, economy.Task2, economy.TaskRewards[economy.Task2], now.Add(time.Minute))
	if !errors.Is(err, economy.ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive, got %v", err)
	}

	afterCooldown := now.Add(economy.TaskCooldown)
	_, err = s.CommitTaskClaim(ctx, acct.UID, economy.Task1, economy.TaskRewards[economy.Task1], afterCooldown)
	if !errors.Is(err, economy.ErrTaskCompleted) {
		t.Fatalf("expected ErrTaskCompleted, got %v", err)
	}

	_, err = s.CommitTaskClaim(ctx, "uid-missing", economy.Task1, 20, now)
	if !errors.Is(err, economy.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	assertLedgerBalanced(t, ctx, s)
}

func TestLedgerPGStore_CommitTaskClaim_Concurrent(t *testing.T) {
	ctx, s := setupStore(t)

	acct := newTestAccount("uid-race", "KCRRRRRR")
	mustCreateAccount(t, ctx, s, acct)

	// Two writers race for the same slot; the row lock serializes them so
	// exactly one claim commits and the loser fails a revalidated gate.
	now := time.Now().UTC().Truncate(time.Second)
	start := make(chan struct{})
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.CommitTaskClaim(ctx, acct.UID, economy.Task1, economy.TaskRewards[economy.Task1], now)
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	var succeeded, rejected int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, economy.ErrTaskCompleted), errors.Is(err, economy.ErrCooldownActive):
			rejected++
		default:
			t.Fatalf("unexpected claim error: %v", err)
		}
	}
	if succeeded != 1 || rejected != 1 {
		t.Fatalf("expected one winner and one gate rejection, got %d/%d", succeeded, rejected)
	}

	got, err := s.GetAccount(ctx, acct.UID)
	if err != nil {
		t.Fatalf("GetAccount() failed: %v", err)
	}
	if got.Balance != economy.TaskRewards[economy.Task1] {
		t.Fatalf("balance after race: got %d want %d", got.Balance, economy.TaskRewards[economy.Task1])
	}

	entries, err := s.ListLedgerEntries(ctx, acct.UID, 10)
	if err != nil {
		t.Fatalf("ListLedgerEntries() failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected a single reward entry, got %d", len(entries))
	}

	assertLedgerBalanced(t, ctx, s)
}

func TestLedgerPGStore_CommitSpin(t *testing.T) {
	ctx, s := setupStore(t)

	acct := newTestAccount("uid-spin", "KCEEEEEE")
	mustCreateAccount(t, ctx, s, acct)

	now := time.Now().UTC().Truncate(time.Second)
	result := &economy.SpinResult{
		SpinID:    uuid.NewString(),
		UID:       acct.UID,
		Prize:     50,
		Label:     "50 PKR",
		Weights:   map[string]int{"15 PKR": 40, "Try Again": 35, "25 PKR": 12, "50 PKR": 8, "100 PKR": 4, "199 PKR": 1},
		CreatedAt: now,
	}

	updated, err := s.CommitSpin(ctx, result, now)
	if err != nil {
		t.Fatalf("CommitSpin() failed: %v", err)
	}
	if updated.Balance != 50 {
		t.Fatalf("balance after spin: got %d want 50", updated.Balance)
	}
	if updated.TaskProgress[economy.Task4] != economy.SlotCompleted {
		t.Fatalf("task_4 state: got %s want completed", updated.TaskProgress[economy.Task4])
	}

	second := &economy.SpinResult{
		SpinID:    uuid.NewString(),
		UID:       acct.UID,
		Prize:     15,
		Label:     "15 PKR",
		CreatedAt: now.Add(economy.TaskCooldown),
	}
	_, err = s.CommitSpin(ctx, second, now.Add(economy.TaskCooldown))
	if !errors.Is(err, economy.ErrSpinCompleted) {
		t.Fatalf("expected ErrSpinCompleted, got %v", err)
	}

	results, err := s.ListSpinResults(ctx, acct.UID, 10)
	if err != nil {
		t.Fatalf("ListSpinResults() failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one recorded spin, got %d", len(results))
	}
	if results[0].Prize != 50 {
		t.Fatalf("recorded prize: got %d want 50", results[0].Prize)
	}

	assertLedgerBalanced(t, ctx, s)
}

func TestLedgerPGStore_CommitSpin_ZeroPrize(t *testing.T) {
	ctx, s := setupStore(t)

	acct := newTestAccount("uid-spin-zero", "KCFFFFFF")
	mustCreateAccount(t, ctx, s, acct)

	now := time.Now().UTC().Truncate(time.Second)
	result := &economy.SpinResult{
		SpinID:    uuid.NewString(),
		UID:       acct.UID,
		Prize:     0,
		Label:     "Try Again",
		CreatedAt: now,
	}
	updated, err := s.CommitSpin(ctx, result, now)
	if err != nil {
		t.Fatalf("CommitSpin() failed: %v", err)
	}
	if updated.Balance != 0 {
		t.Fatalf("balance after zero spin: got %d want 0", updated.Balance)
	}

	// The draw is recorded for audit even when nothing was won.
	results, err := s.ListSpinResults(ctx, acct.UID, 10)
	if err != nil {
		t.Fatalf("ListSpinResults() failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one recorded spin, got %d", len(results))
	}

	entries, err := s.ListLedgerEntries(ctx, acct.UID, 10)
	if err != nil {
		t.Fatalf("ListLedgerEntries() failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no ledger entries for a zero prize, got %d", len(entries))
	}

	assertLedgerBalanced(t, ctx, s)
}

func TestLedgerPGStore_CreditCommission(t *testing.T) {
	ctx, s := setupStore(t)

	ancestor := newTestAccount("uid-ancestor", "KCGGGGGG")
	mustCreateAccount(t, ctx, s, ancestor)

	now := time.Now().UTC().Truncate(time.Second)
	if err := s.CreditCommission(ctx, ancestor.UID, 5, 1, "uid-source", now); err != nil {
		t.Fatalf("CreditCommission() failed: %v", err)
	}

	got, err := s.GetAccount(ctx, ancestor.UID)
	if err != nil {
		t.Fatalf("GetAccount() failed: %v", err)
	}
	if got.Balance != 5 || got.TotalEarned != 5 {
		t.Fatalf("balance/total: got %d/%d want 5/5", got.Balance, got.TotalEarned)
	}

	entries, err := s.ListLedgerEntries(ctx, ancestor.UID, 10)
	if err != nil {
		t.Fatalf("ListLedgerEntries() failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one ledger entry, got %d", len(entries))
	}
	if entries[0].Type != economy.EntryReferralCommission {
		t.Fatalf("entry type: got %s want %s", entries[0].Type, economy.EntryReferralCommission)
	}
	if entries[0].Ref != "L1:uid-source" {
		t.Fatalf("entry ref: got %s want L1:uid-source", entries[0].Ref)
	}

	err = s.CreditCommission(ctx, "uid-missing", 5, 1, "uid-source", now)
	if !errors.Is(err, economy.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	assertLedgerBalanced(t, ctx, s)
}

func TestLedgerPGStore_WithdrawalLifecycle(t *testing.T) {
	ctx, s := setupStore(t)

	acct := newTestAccount("uid-payout", "KCHHHHHH")
	mustCreateAccount(t, ctx, s, acct)

	now := time.Now().UTC().Truncate(time.Second)
	if err := s.CreditCommission(ctx, acct.UID, 1000, 1, "uid-seed", now); err != nil {
		t.Fatalf("failed to seed balance: %v", err)
	}

	w := &economy.Withdrawal{
		ID:            uuid.NewString(),
		UID:           acct.UID,
		Method:        economy.MethodEasypaisa,
		Amount:        600,
		NetAmount:     600,
		AccountNumber: "03001234567",
		AccountName:   "Test Account",
		Status:        economy.WithdrawalPending,
		RequestedAt:   now,
	}
	if err := s.CreateWithdrawal(ctx, w); err != nil {
		t.Fatalf("CreateWithdrawal() failed: %v", err)
	}

	got, err := s.GetAccount(ctx, acct.UID)
	if err != nil {
		t.Fatalf("GetAccount() failed: %v", err)
	}
	if got.Balance != 400 {
		t.Fatalf("balance after debit: got %d want 400", got.Balance)
	}
	if got.TotalEarned != 1000 {
		t.Fatalf("total earned must not change on withdrawal: got %d want 1000", got.TotalEarned)
	}

	second := &economy.Withdrawal{
		ID:            uuid.NewString(),
		UID:           acct.UID,
		Method:        economy.MethodJazzcash,
		Amount:        100,
		NetAmount:     100,
		AccountNumber: "03007654321",
		Status:        economy.WithdrawalPending,
		RequestedAt:   now,
	}
	err = s.CreateWithdrawal(ctx, second)
	if !errors.Is(err, economy.ErrPendingWithdrawalExists) {
		t.Fatalf("expected ErrPendingWithdrawalExists, got %v", err)
	}

	rejected, err := s.RejectWithdrawal(ctx, w.ID, "admin-1", "account mismatch", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("RejectWithdrawal() failed: %v", err)
	}
	if rejected.Status != economy.WithdrawalRejected {
		t.Fatalf("status: got %s want rejected", rejected.Status)
	}
	if rejected.RejectionReason != "account mismatch" {
		t.Fatalf("rejection reason: got %q", rejected.RejectionReason)
	}

	got, err = s.GetAccount(ctx, acct.UID)
	if err != nil {
		t.Fatalf("GetAccount() failed: %v", err)
	}
	if got.Balance != 1000 {
		t.Fatalf("balance after refund: got %d want 1000", got.Balance)
	}

	_, err = s.ApproveWithdrawal(ctx, w.ID, "admin-1", now.Add(2*time.Minute))
	var stateErr *economy.WithdrawalStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected WithdrawalStateError, got %v", err)
	}
	if stateErr.Status != economy.WithdrawalRejected {
		t.Fatalf("state error status: got %s want rejected", stateErr.Status)
	}

	tooLarge := &economy.Withdrawal{
		ID:            uuid.NewString(),
		UID:           acct.UID,
		Method:        economy.MethodUSDT,
		Amount:        5000,
		NetAmount:     4900,
		AccountNumber: "TTrc20Address",
		Status:        economy.WithdrawalPending,
		RequestedAt:   now,
	}
	err = s.CreateWithdrawal(ctx, tooLarge)
	if !errors.Is(err, economy.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	retry := &economy.Withdrawal{
		ID:            uuid.NewString(),
		UID:           acct.UID,
		Method:        economy.MethodEasypaisa,
		Amount:        500,
		NetAmount:     500,
		AccountNumber: "03001234567",
		Status:        economy.WithdrawalPending,
		RequestedAt:   now.Add(3 * time.Minute),
	}
	if err := s.CreateWithdrawal(ctx, retry); err != nil {
		t.Fatalf("CreateWithdrawal(retry) failed: %v", err)
	}
	approved, err := s.ApproveWithdrawal(ctx, retry.ID, "admin-1", now.Add(4*time.Minute))
	if err != nil {
		t.Fatalf("ApproveWithdrawal() failed: %v", err)
	}
	if approved.Status != economy.WithdrawalApproved {
		t.Fatalf("status: got %s want approved", approved.Status)
	}
	if approved.DecidedBy != "admin-1" {
		t.Fatalf("decided by: got %s want admin-1", approved.DecidedBy)
	}

	// Approval keeps the debit in place.
	got, err = s.GetAccount(ctx, acct.UID)
	if err != nil {
		t.Fatalf("GetAccount() failed: %v", err)
	}
	if got.Balance != 500 {
		t.Fatalf("balance after approval: got %d want 500", got.Balance)
	}

	all, err := s.ListWithdrawals(ctx, acct.UID, 10)
	if err != nil {
		t.Fatalf("ListWithdrawals() failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 withdrawals, got %d", len(all))
	}

	pending, err := s.ListPendingWithdrawals(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingWithdrawals() failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending withdrawals, got %d", len(pending))
	}

	// Both decisions leave a trail entry, newest first.
	actions, err := s.ListAdminActions(ctx, 10)
	if err != nil {
		t.Fatalf("ListAdminActions() failed: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("expected 2 admin actions, got %d", len(actions))
	}
	if actions[0].Action != economy.ActionWithdrawalApproved || actions[0].TargetID != retry.ID {
		t.Fatalf("unexpected first admin action: %+v", actions[0])
	}
	if actions[1].Action != economy.ActionWithdrawalRejected || actions[1].TargetID != w.ID {
		t.Fatalf("unexpected second admin action: %+v", actions[1])
	}
	if actions[1].Details["reason"] != "account mismatch" {
		t.Fatalf("rejection reason not recorded: %+v", actions[1].Details)
	}

	assertLedgerBalanced(t, ctx, s)
}

func TestLedgerPGStore_DeviceBinding(t *testing.T) {
	ctx, s := setupStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	binding := &economy.DeviceBinding{
		Key:        "dev_abc123",
		BoundUID:   "uid-device-owner",
		LastSeen:   now,
		LastIP:     "203.0.113.7",
		AppVersion: "1.4.2",
	}
	if err := s.UpsertDeviceBinding(ctx, binding); err != nil {
		t.Fatalf("UpsertDeviceBinding() failed: %v", err)
	}

	refreshed := *binding
	refreshed.LastSeen = now.Add(time.Hour)
	refreshed.AppVersion = "1.5.0"
	if err := s.UpsertDeviceBinding(ctx, &refreshed); err != nil {
		t.Fatalf("UpsertDeviceBinding(refresh) failed: %v", err)
	}

	got, err := s.GetDeviceBinding(ctx, binding.Key)
	if err != nil {
		t.Fatalf("GetDeviceBinding() failed: %v", err)
	}
	if got == nil {
		t.Fatalf("expected binding to exist")
	}
	if got.AppVersion != "1.5.0" {
		t.Fatalf("app version: got %s want 1.5.0", got.AppVersion)
	}

	hijack := *binding
	hijack.BoundUID = "uid-other"
	err = s.UpsertDeviceBinding(ctx, &hijack)
	if !errors.Is(err, economy.ErrDeviceConflict) {
		t.Fatalf("expected ErrDeviceConflict, got %v", err)
	}

	missing, err := s.GetDeviceBinding(ctx, "dev_unknown")
	if err != nil {
		t.Fatalf("GetDeviceBinding(unknown) failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown key, got %+v", missing)
	}
}

func TestLedgerPGStore_BanAndUnban(t *testing.T) {
	ctx, s := setupStore(t)

	acct := newTestAccount("uid-banned", "KCJJJJJJ")
	mustCreateAccount(t, ctx, s, acct)

	now := time.Now().UTC().Truncate(time.Second)
	ban := &economy.Ban{
		UID:      acct.UID,
		Reason:   economy.BanEmulatorDetected,
		Evidence: map[string]any{"model": "sdk_gphone64"},
		BannedAt: now,
		BannedBy: economy.SystemActor,
	}
	if err := s.BanAccount(ctx, ban); err != nil {
		t.Fatalf("BanAccount() failed: %v", err)
	}

	got, err := s.GetAccount(ctx, acct.UID)
	if err != nil {
		t.Fatalf("GetAccount() failed: %v", err)
	}
	if got.Status != economy.StatusBanned {
		t.Fatalf("status: got %s want banned", got.Status)
	}

	stored, err := s.GetBan(ctx, acct.UID)
	if err != nil {
		t.Fatalf("GetBan() failed: %v", err)
	}
	if stored == nil || stored.Reason != economy.BanEmulatorDetected {
		t.Fatalf("unexpected ban record: %+v", stored)
	}

	if err := s.UnbanAccount(ctx, acct.UID, "admin-1", now.Add(time.Hour)); err != nil {
		t.Fatalf("UnbanAccount() failed: %v", err)
	}

	got, err = s.GetAccount(ctx, acct.UID)
	if err != nil {
		t.Fatalf("GetAccount() failed: %v", err)
	}
	if got.Status != economy.StatusActive {
		t.Fatalf("status after unban: got %s want active", got.Status)
	}

	stored, err = s.GetBan(ctx, acct.UID)
	if err != nil {
		t.Fatalf("GetBan() failed: %v", err)
	}
	if stored.UnbannedAt == nil || stored.UnbannedBy != "admin-1" {
		t.Fatalf("ban record not stamped on unban: %+v", stored)
	}

	// Re-banning the same account overwrites the record and clears the
	// earlier unban fields.
	reban := &economy.Ban{
		UID:      acct.UID,
		Reason:   economy.BanAdminManual,
		BannedAt: now.Add(2 * time.Hour),
		BannedBy: "admin-2",
	}
	if err := s.BanAccount(ctx, reban); err != nil {
		t.Fatalf("BanAccount(reban) failed: %v", err)
	}
	stored, err = s.GetBan(ctx, acct.UID)
	if err != nil {
		t.Fatalf("GetBan() failed: %v", err)
	}
	if stored.Reason != economy.BanAdminManual || stored.UnbannedAt != nil {
		t.Fatalf("reban did not reset record: %+v", stored)
	}

	err = s.BanAccount(ctx, &economy.Ban{UID: "uid-missing", Reason: economy.BanAdminManual, BannedAt: now, BannedBy: "admin-1"})
	if !errors.Is(err, economy.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	// The automatic gate ban leaves no trail entry; the operator unban
	// and reban do.
	actions, err := s.ListAdminActions(ctx, 10)
	if err != nil {
		t.Fatalf("ListAdminActions() failed: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("expected 2 admin actions, got %d", len(actions))
	}
	if actions[0].Action != economy.ActionAccountBanned || actions[0].AdminUID != "admin-2" {
		t.Fatalf("unexpected first admin action: %+v", actions[0])
	}
	if actions[1].Action != economy.ActionAccountUnbanned || actions[1].AdminUID != "admin-1" {
		t.Fatalf("unexpected second admin action: %+v", actions[1])
	}
}

func TestLedgerPGStore_LedgerImbalances(t *testing.T) {
	ctx, s := setupStore(t)

	acct := newTestAccount("uid-audit", "KCKKKKKK")
	mustCreateAccount(t, ctx, s, acct)

	now := time.Now().UTC().Truncate(time.Second)
	if _, err := s.CommitTaskClaim(ctx, acct.UID, economy.Task1, 20, now); err != nil {
		t.Fatalf("CommitTaskClaim() failed: %v", err)
	}
	assertLedgerBalanced(t, ctx, s)

	// Corrupt the balance directly and expect the auditor query to flag it.
	_, err := s.db.NewUpdate().
		Model((*AccountDao)(nil)).
		Set("balance = balance + 7").
		Where("uid = ?", acct.UID).
		Exec(ctx)
	if err != nil {
		t.Fatalf("failed to corrupt balance: %v", err)
	}

	imbalances, err := s.LedgerImbalances(ctx)
	if err != nil {
		t.Fatalf("LedgerImbalances() failed: %v", err)
	}
	if len(imbalances) != 1 {
		t.Fatalf("expected one imbalance, got %d", len(imbalances))
	}
	if imbalances[0].UID != acct.UID {
		t.Fatalf("imbalance uid: got %s want %s", imbalances[0].UID, acct.UID)
	}
	if imbalances[0].Balance != 27 || imbalances[0].LedgerSum != 20 {
		t.Fatalf("imbalance amounts: got %d/%d want 27/20", imbalances[0].Balance, imbalances[0].LedgerSum)
	}
}
