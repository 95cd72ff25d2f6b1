package models

import (
	"time"

	"veritasor/pkg/domain"
)

// BondStructure selects the repayment formula. It is a closed set: the
// redemption engine switches over it exhaustively, so adding a structure is
// a deliberate decision point, not a silent fall-through.
type BondStructure string

const (
	// StructureFixed pays the minimum payment every period regardless of
	// revenue.
	StructureFixed BondStructure = "fixed"
	// StructureRevenueLinked pays a basis-point share of attested revenue,
	// clamped between the per-period minimum and maximum.
	StructureRevenueLinked BondStructure = "revenue_linked"
	// StructureHybrid pays the minimum plus a revenue share, capped at the
	// per-period maximum.
	StructureHybrid BondStructure = "hybrid"
)

// IsValid reports whether s is a known structure.
func (s BondStructure) IsValid() bool {
	switch s {
	case StructureFixed, StructureRevenueLinked, StructureHybrid:
		return true
	}
	return false
}

// BondStatus is the bond lifecycle state. Transitions are forward-only:
// Active -> FullyRedeemed and Active -> Defaulted. Both end states are
// terminal.
type BondStatus string

const (
	StatusActive        BondStatus = "active"
	StatusFullyRedeemed BondStatus = "fully_redeemed"
	StatusDefaulted     BondStatus = "defaulted"
)

// CanTransitionTo reports whether the status may move to target.
func (s BondStatus) CanTransitionTo(target BondStatus) bool {
	if s != StatusActive {
		return false
	}
	return target == StatusFullyRedeemed || target == StatusDefaulted
}

// Bond is one issued debt instrument.
//
// Invariants:
//   - FaceValue is positive and is the ceiling on cumulative repayment
//   - RevenueShareBps is within [0, 10000]
//   - 0 <= MinPayment <= MaxPayment, MaxPayment > 0
//   - All terms except Status are immutable after issuance
//   - Status only moves forward (see BondStatus)
//
// MaturityPeriods is informational: the engine does not enforce maturity
// deadlines.
type Bond struct {
	ID                domain.BondID   `json:"id"`
	Issuer            domain.Identity `json:"issuer"`
	FaceValue         int64           `json:"face_value"`
	Structure         BondStructure   `json:"structure"`
	RevenueShareBps   uint32          `json:"revenue_share_bps"`
	MinPayment        int64           `json:"min_payment_per_period"`
	MaxPayment        int64           `json:"max_payment_per_period"`
	MaturityPeriods   uint32          `json:"maturity_periods"`
	AttestationSource string          `json:"attestation_source"`
	Token             domain.Identity `json:"token"`
	Status            BondStatus      `json:"status"`
	IssuedAt          time.Time       `json:"issued_at"`
}

// IsActive reports whether the bond accepts redemptions and default-marking.
func (b *Bond) IsActive() bool {
	return b.Status == StatusActive
}

// RedemptionRecord is one completed repayment for a (bond, period) pair.
// Records are immutable once written and are never deleted: the existence
// of a record is itself the double-spend guard for its period.
type RedemptionRecord struct {
	BondID          domain.BondID `json:"bond_id"`
	Period          string        `json:"period"`
	AttestedRevenue int64         `json:"attested_revenue"`
	Amount          int64         `json:"redemption_amount"`
	RedeemedAt      time.Time     `json:"redeemed_at"`
}
