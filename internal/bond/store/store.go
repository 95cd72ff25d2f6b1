// Package store persists bonds, ownership, redemption records, and
// cumulative totals. Implementations return pkg/platform/sentinel errors
// for infrastructure facts; the service layer translates them into domain
// errors.
package store

import (
	"context"

	"veritasor/internal/bond/models"
	"veritasor/pkg/domain"
)

// Store is the persistence boundary for the bond service.
//
// Read methods report absence as a zero value with a nil error (unknown
// bonds are a fact, not a failure). Mutations return sentinel.ErrNotFound /
// ErrConflict as appropriate.
type Store interface {
	// SetAdmin registers the administrator once. A second call returns
	// sentinel.ErrConflict.
	SetAdmin(ctx context.Context, admin domain.Identity) error
	// GetAdmin returns the registered administrator, or
	// sentinel.ErrNotFound before initialization.
	GetAdmin(ctx context.Context) (domain.Identity, error)

	// CreateBond allocates the next bond identifier and persists the bond,
	// its initial owner, and a zero cumulative total in one atomic unit.
	// The counter only advances when the whole unit commits, so failed
	// attempts never consume an identifier. The bond's ID field is assigned
	// by the store.
	CreateBond(ctx context.Context, bond *models.Bond, owner domain.Identity) (domain.BondID, error)

	// GetBond returns the bond, or nil when the identifier is unknown.
	GetBond(ctx context.Context, id domain.BondID) (*models.Bond, error)
	// GetOwner returns the current owner, or "" when the bond is unknown.
	GetOwner(ctx context.Context, id domain.BondID) (domain.Identity, error)
	// SetOwner overwrites the stored owner. Returns sentinel.ErrNotFound
	// for unknown bonds.
	SetOwner(ctx context.Context, id domain.BondID, owner domain.Identity) error

	// GetRedemption returns the record for (bond, period), or nil when none
	// exists.
	GetRedemption(ctx context.Context, id domain.BondID, period string) (*models.RedemptionRecord, error)
	// GetTotalRedeemed returns the cumulative redeemed amount (zero for
	// unknown bonds).
	GetTotalRedeemed(ctx context.Context, id domain.BondID) (int64, error)

	// ApplyRedemption persists the record, sets the cumulative total to
	// newTotal, and, when flip is set, transitions the bond to
	// FullyRedeemed — all in one atomic unit. A record already present for
	// (bond, period) returns sentinel.ErrConflict with nothing written.
	ApplyRedemption(ctx context.Context, rec *models.RedemptionRecord, newTotal int64, flip bool) error

	// SetStatus transitions the bond's status. Returns sentinel.ErrNotFound
	// for unknown bonds.
	SetStatus(ctx context.Context, id domain.BondID, status models.BondStatus) error
}
