// Package security implements the attestation gate: device integrity
// verification, the one-account-per-device binding, and the ban
// lifecycle. It is the only path that can flip an account to banned.
package security

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint is the stable device identifier tuple reported by the
// client at attestation time.
type Fingerprint struct {
	AndroidID        string `json:"android_id"`
	BuildFingerprint string `json:"build_fingerprint"`
	Model            string `json:"model"`
	Manufacturer     string `json:"manufacturer"`
	ScreenResolution string `json:"screen_resolution"`
}

// deviceKeyPrefix namespaces binding keys in storage
const deviceKeyPrefix = "dev_"

// Key derives the deterministic device binding key from the fingerprint
// tuple. The full SHA-256 digest keeps collisions out of the binding
// table; the raw identifiers never leave the request.
func (f Fingerprint) Key() string {
	joined := strings.Join([]string{
		f.AndroidID,
		f.BuildFingerprint,
		f.Model,
		f.Manufacturer,
		f.ScreenResolution,
	}, "|")
	sum := sha256.Sum256([]byte(joined))
	return deviceKeyPrefix + hex.EncodeToString(sum[:])
}
