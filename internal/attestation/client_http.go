package attestation

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"veritasor/pkg/platform/circuit"
	"veritasor/pkg/platform/sentinel"
)

// HTTPClient queries the attestation service over its HTTP API. A circuit
// breaker fails lookups fast while the service is down so redemption
// requests do not pile up behind a dead dependency.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	breaker *circuit.Breaker
}

// NewHTTPClient builds a client for the attestation service at baseURL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: circuit.New("attestation-service", circuit.WithFailureThreshold(5)),
	}
}

type attestationResponse struct {
	RootHash  string    `json:"root_hash"`
	Timestamp time.Time `json:"timestamp"`
	Version   uint32    `json:"version"`
}

type revocationResponse struct {
	Revoked bool `json:"revoked"`
}

// GetAttestation returns the attestation for (issuer, period), or nil when
// the service reports none exists.
func (c *HTTPClient) GetAttestation(ctx context.Context, issuer, period string) (*Attestation, error) {
	var resp attestationResponse
	found, err := c.get(ctx, c.endpoint("attestations", issuer, period), &resp)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	att := &Attestation{Timestamp: resp.Timestamp, Version: resp.Version}
	raw, err := hex.DecodeString(resp.RootHash)
	if err != nil || len(raw) != len(att.RootHash) {
		return nil, fmt.Errorf("attestation service returned malformed root hash for %s/%s", issuer, period)
	}
	copy(att.RootHash[:], raw)
	return att, nil
}

// IsRevoked reports whether the attestation for (issuer, period) has been
// revoked.
func (c *HTTPClient) IsRevoked(ctx context.Context, issuer, period string) (bool, error) {
	var resp revocationResponse
	found, err := c.get(ctx, c.endpoint("revocations", issuer, period), &resp)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return resp.Revoked, nil
}

func (c *HTTPClient) endpoint(kind, issuer, period string) string {
	return fmt.Sprintf("%s/%s/%s/%s",
		c.baseURL, kind, url.PathEscape(issuer), url.PathEscape(period))
}

// get performs a GET and decodes the body. A 404 is reported as not-found
// rather than as an error; any transport failure or non-2xx status wraps
// sentinel.ErrUnavailable so the engine can surface a distinct
// external-dependency failure.
func (c *HTTPClient) get(ctx context.Context, endpoint string, out any) (bool, error) {
	if c.breaker.IsOpen() {
		return false, fmt.Errorf("attestation service circuit open: %w", sentinel.ErrUnavailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return false, fmt.Errorf("attestation service request: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.breaker.RecordSuccess()
		return false, nil
	case resp.StatusCode >= http.StatusInternalServerError:
		c.breaker.RecordFailure()
		return false, fmt.Errorf("attestation service returned %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	case resp.StatusCode != http.StatusOK:
		c.breaker.RecordSuccess()
		return false, fmt.Errorf("attestation service returned %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
	c.breaker.RecordSuccess()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode attestation response: %w", err)
	}
	return true, nil
}
