package security

import (
	"context"
	"time"

	"github.com/kamyabi/economy-engine/pkg/economy"
)

type mockStore struct {
	getAccountFn          func(ctx context.Context, uid string) (*economy.Account, error)
	getDeviceBindingFn    func(ctx context.Context, key string) (*economy.DeviceBinding, error)
	upsertDeviceBindingFn func(ctx context.Context, b *economy.DeviceBinding) error
	banAccountFn          func(ctx context.Context, ban *economy.Ban) error
	unbanAccountFn        func(ctx context.Context, uid, adminUID string, now time.Time) error
	getBanFn              func(ctx context.Context, uid string) (*economy.Ban, error)
}

func (m *mockStore) GetAccount(ctx context.Context, uid string) (*economy.Account, error) {
	return m.getAccountFn(ctx, uid)
}

func (m *mockStore) GetDeviceBinding(ctx context.Context, key string) (*economy.DeviceBinding, error) {
	return m.getDeviceBindingFn(ctx, key)
}

func (m *mockStore) UpsertDeviceBinding(ctx context.Context, b *economy.DeviceBinding) error {
	return m.upsertDeviceBindingFn(ctx, b)
}

func (m *mockStore) BanAccount(ctx context.Context, ban *economy.Ban) error {
	return m.banAccountFn(ctx, ban)
}

func (m *mockStore) UnbanAccount(ctx context.Context, uid, adminUID string, now time.Time) error {
	return m.unbanAccountFn(ctx, uid, adminUID, now)
}

func (m *mockStore) GetBan(ctx context.Context, uid string) (*economy.Ban, error) {
	return m.getBanFn(ctx, uid)
}

type mockVerifier struct {
	verdict *IntegrityVerdict
	err     error
	tokens  []string
}

func (m *mockVerifier) Verify(_ context.Context, token string) (*IntegrityVerdict, error) {
	m.tokens = append(m.tokens, token)
	return m.verdict, m.err
}

type mockIPIntel struct {
	report *IPReport
	err    error
	ips    []string
}

func (m *mockIPIntel) Lookup(_ context.Context, ip string) (*IPReport, error) {
	m.ips = append(m.ips, ip)
	return m.report, m.err
}

type mockCredentialAdmin struct {
	disabled   []string
	enabled    []string
	disableErr error
	enableErr  error
}

func (m *mockCredentialAdmin) Disable(_ context.Context, uid string) error {
	m.disabled = append(m.disabled, uid)
	return m.disableErr
}

func (m *mockCredentialAdmin) Enable(_ context.Context, uid string) error {
	m.enabled = append(m.enabled, uid)
	return m.enableErr
}
