package security

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// CredentialAdmin disables and re-enables an account's external identity
// credential. Disabling makes every future token-based call fail
// authentication, independently of the account status flag.
type CredentialAdmin interface {
	Disable(ctx context.Context, uid string) error
	Enable(ctx context.Context, uid string) error
}

type noopCredentialAdmin struct{}

func (noopCredentialAdmin) Disable(_ context.Context, _ string) error { return nil }
func (noopCredentialAdmin) Enable(_ context.Context, _ string) error  { return nil }

type httpCredentialAdmin struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewCredentialAdmin creates an HTTP-backed credential admin client.
// With an empty baseURL both operations are no-ops; the account status
// flag still blocks every economy operation on its own.
func NewCredentialAdmin(baseURL, apiKey string, timeout time.Duration) CredentialAdmin {
	if baseURL == "" {
		return noopCredentialAdmin{}
	}
	return &httpCredentialAdmin{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *httpCredentialAdmin) Disable(ctx context.Context, uid string) error {
	return c.post(ctx, "/v1/credentials/disable", uid)
}

func (c *httpCredentialAdmin) Enable(ctx context.Context, uid string) error {
	return c.post(ctx, "/v1/credentials/enable", uid)
}

func (c *httpCredentialAdmin) post(ctx context.Context, path, uid string) error {
	payload, err := json.Marshal(map[string]string{"uid": uid})
	if err != nil {
		return fmt.Errorf("failed to encode credential request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build credential request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("credential admin call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("credential admin returned status %d", resp.StatusCode)
	}
	return nil
}
