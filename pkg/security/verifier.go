package security

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// IntegrityVerdict is the result of verifying a device integrity token
type IntegrityVerdict struct {
	TokenValid      bool `json:"token_valid"`
	DeviceIntegrity bool `json:"device_integrity"`
	AppIntegrity    bool `json:"app_integrity"`
}

// IntegrityVerifier verifies a client-supplied device integrity token
// against an external attestation backend.
type IntegrityVerifier interface {
	Verify(ctx context.Context, token string) (*IntegrityVerdict, error)
}

// httpVerifier calls a remote verification endpoint
type httpVerifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewIntegrityVerifier creates an HTTP-backed integrity verifier. With
// an empty baseURL it degrades to a local development verifier that
// passes every token except the literal "invalid".
func NewIntegrityVerifier(baseURL, apiKey string, timeout time.Duration) IntegrityVerifier {
	if baseURL == "" {
		return devVerifier{}
	}
	return &httpVerifier{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// devVerifier is the unconfigured stand-in. It never makes a network
// call, so local environments can exercise the gate without a provider.
type devVerifier struct{}

func (devVerifier) Verify(_ context.Context, token string) (*IntegrityVerdict, error) {
	ok := token != "invalid"
	return &IntegrityVerdict{TokenValid: ok, DeviceIntegrity: ok, AppIntegrity: ok}, nil
}

func (v *httpVerifier) Verify(ctx context.Context, token string) (*IntegrityVerdict, error) {
	payload, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return nil, fmt.Errorf("failed to encode verification request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/v1/verify", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("integrity verification call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("integrity verifier returned status %d", resp.StatusCode)
	}

	var verdict IntegrityVerdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return nil, fmt.Errorf("failed to decode verification verdict: %w", err)
	}
	return &verdict, nil
}
