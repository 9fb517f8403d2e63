package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// The unconfigured constructors must return local stand-ins so the gate
// works in environments without external security providers.

func TestNewIntegrityVerifier_Unconfigured(t *testing.T) {
	v := NewIntegrityVerifier("", "", time.Second)

	verdict, err := v.Verify(context.Background(), "any-token")
	require.NoError(t, err)
	require.True(t, verdict.TokenValid)
	require.True(t, verdict.DeviceIntegrity)
	require.True(t, verdict.AppIntegrity)

	verdict, err = v.Verify(context.Background(), "invalid")
	require.NoError(t, err)
	require.False(t, verdict.TokenValid)
}

func TestNewIPIntel_Unconfigured(t *testing.T) {
	intel := NewIPIntel("", "", time.Second)

	report, err := intel.Lookup(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	require.False(t, report.Flagged())
}

func TestNewCredentialAdmin_Unconfigured(t *testing.T) {
	admin := NewCredentialAdmin("", "", time.Second)

	require.NoError(t, admin.Disable(context.Background(), "uid-1"))
	require.NoError(t, admin.Enable(context.Background(), "uid-1"))
}
