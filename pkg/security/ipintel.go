package security

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// IPReport is the reputation verdict for a single address
type IPReport struct {
	IsVPN        bool `json:"is_vpn"`
	IsProxy      bool `json:"is_proxy"`
	IsDatacenter bool `json:"is_datacenter"`
}

// Flagged reports whether any reputation signal fired
func (r *IPReport) Flagged() bool {
	return r.IsVPN || r.IsProxy || r.IsDatacenter
}

// IPIntel looks up the reputation of a client address
type IPIntel interface {
	Lookup(ctx context.Context, ip string) (*IPReport, error)
}

// clearIPIntel is the unconfigured stand-in; every address reads clean.
type clearIPIntel struct{}

func (clearIPIntel) Lookup(_ context.Context, _ string) (*IPReport, error) {
	return &IPReport{}, nil
}

type httpIPIntel struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewIPIntel creates an HTTP-backed IP reputation client. With an empty
// baseURL every lookup returns a clear report, so the gate's remaining
// checks still run in environments without a reputation provider.
func NewIPIntel(baseURL, apiKey string, timeout time.Duration) IPIntel {
	if baseURL == "" {
		return clearIPIntel{}
	}
	return &httpIPIntel{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *httpIPIntel) Lookup(ctx context.Context, ip string) (*IPReport, error) {
	endpoint := fmt.Sprintf("%s/v1/lookup?ip=%s", c.baseURL, url.QueryEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build reputation request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reputation lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reputation service returned status %d", resp.StatusCode)
	}

	var report IPReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode reputation report: %w", err)
	}
	return &report, nil
}
