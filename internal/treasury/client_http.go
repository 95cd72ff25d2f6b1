package treasury

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"veritasor/pkg/domain"
	"veritasor/pkg/platform/circuit"
	"veritasor/pkg/platform/sentinel"
)

// HTTPClient invokes a remote treasury service to execute transfers. A
// circuit breaker fails transfers fast while the service is down; the engine
// aborts the redemption either way, so the period stays redeemable.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	breaker *circuit.Breaker
}

// NewHTTPClient builds a client for the treasury service at baseURL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		breaker: circuit.New("treasury-service", circuit.WithFailureThreshold(5)),
	}
}

type transferRequest struct {
	Token  string `json:"token"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// Transfer posts a transfer order. A 402 response maps to
// sentinel.ErrInsufficientFunds; any other failure wraps
// sentinel.ErrUnavailable.
func (c *HTTPClient) Transfer(ctx context.Context, token, from, to domain.Identity, amount int64) error {
	body, err := json.Marshal(transferRequest{
		Token:  token.String(),
		From:   from.String(),
		To:     to.String(),
		Amount: amount,
	})
	if err != nil {
		return err
	}

	if c.breaker.IsOpen() {
		return fmt.Errorf("treasury circuit open: %w", sentinel.ErrUnavailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transfers", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return fmt.Errorf("treasury request: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent:
		c.breaker.RecordSuccess()
		return nil
	case resp.StatusCode == http.StatusPaymentRequired:
		c.breaker.RecordSuccess()
		return fmt.Errorf("treasury refused transfer of %d: %w", amount, sentinel.ErrInsufficientFunds)
	case resp.StatusCode >= http.StatusInternalServerError:
		c.breaker.RecordFailure()
		return fmt.Errorf("treasury returned %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	default:
		c.breaker.RecordSuccess()
		return fmt.Errorf("treasury returned %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
}
