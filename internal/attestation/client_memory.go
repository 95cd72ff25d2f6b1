package attestation

import (
	"context"
	"sync"
	"time"
)

type key struct {
	issuer string
	period string
}

// InMemoryClient is a self-contained attestation source for tests and local
// development. Proofs are submitted directly instead of through the external
// service.
type InMemoryClient struct {
	mu           sync.RWMutex
	attestations map[key]*Attestation
	revoked      map[key]bool
}

// NewInMemoryClient builds an empty in-memory attestation source.
func NewInMemoryClient() *InMemoryClient {
	return &InMemoryClient{
		attestations: make(map[key]*Attestation),
		revoked:      make(map[key]bool),
	}
}

// Submit records a proof for (issuer, period).
func (c *InMemoryClient) Submit(issuer, period string, att Attestation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if att.Timestamp.IsZero() {
		att.Timestamp = time.Now()
	}
	c.attestations[key{issuer, period}] = &att
}

// Revoke marks the proof for (issuer, period) as revoked.
func (c *InMemoryClient) Revoke(issuer, period string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked[key{issuer, period}] = true
}

func (c *InMemoryClient) GetAttestation(_ context.Context, issuer, period string) (*Attestation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	att, ok := c.attestations[key{issuer, period}]
	if !ok {
		return nil, nil
	}
	copied := *att
	return &copied, nil
}

func (c *InMemoryClient) IsRevoked(_ context.Context, issuer, period string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revoked[key{issuer, period}], nil
}
