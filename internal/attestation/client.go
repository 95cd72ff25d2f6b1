// Package attestation consumes the external attestation service that backs
// every redemption. The service owns revenue proofs per (issuer, period);
// the bond engine only asks whether a proof exists and whether it has been
// revoked.
package attestation

import (
	"context"
	"time"
)

// Attestation is the externally produced revenue proof for one
// (issuer, period) pair.
type Attestation struct {
	RootHash  [32]byte  `json:"root_hash"`
	Timestamp time.Time `json:"timestamp"`
	Version   uint32    `json:"version"`
}

// Client answers attestation existence and revocation queries. A nil
// Attestation with a nil error means no attestation exists; absence is not
// an error, it is a fact the redemption engine rejects on.
type Client interface {
	GetAttestation(ctx context.Context, issuer, period string) (*Attestation, error)
	IsRevoked(ctx context.Context, issuer, period string) (bool, error)
}
