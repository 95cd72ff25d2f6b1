package models

import (
	"time"

	"veritasor/pkg/domain"
)

// IssueBondRequest is the HTTP payload for bond issuance. The issuer is
// taken from the authenticated caller, never from the body.
type IssueBondRequest struct {
	InitialOwner      string        `json:"initial_owner"`
	FaceValue         int64         `json:"face_value"`
	Structure         BondStructure `json:"structure"`
	RevenueShareBps   uint32        `json:"revenue_share_bps"`
	MinPayment        int64         `json:"min_payment_per_period"`
	MaxPayment        int64         `json:"max_payment_per_period"`
	MaturityPeriods   uint32        `json:"maturity_periods"`
	AttestationSource string        `json:"attestation_source"`
	Token             string        `json:"token"`
}

// IssueBondResponse returns the allocated identifier.
type IssueBondResponse struct {
	BondID domain.BondID `json:"bond_id"`
}

// RedeemRequest triggers one period's redemption. No authentication is
// required: payment always goes to the recorded owner.
type RedeemRequest struct {
	Period          string `json:"period"`
	AttestedRevenue int64  `json:"attested_revenue"`
}

// RedeemResponse reports the recorded redemption.
type RedeemResponse struct {
	BondID          domain.BondID `json:"bond_id"`
	Period          string        `json:"period"`
	AttestedRevenue int64         `json:"attested_revenue"`
	Amount          int64         `json:"redemption_amount"`
	RedeemedAt      time.Time     `json:"redeemed_at"`
	Status          BondStatus    `json:"status"`
}

// TransferOwnershipRequest moves the bond to a new owner. The current owner
// is the authenticated caller.
type TransferOwnershipRequest struct {
	NewOwner string `json:"new_owner"`
}

// OwnerResponse reports the current owner of a bond.
type OwnerResponse struct {
	BondID domain.BondID   `json:"bond_id"`
	Owner  domain.Identity `json:"owner"`
}

// TotalsResponse reports cumulative and remaining repayment for a bond.
type TotalsResponse struct {
	BondID         domain.BondID `json:"bond_id"`
	TotalRedeemed  int64         `json:"total_redeemed"`
	RemainingValue int64         `json:"remaining_value"`
}

// AdminResponse reports the registered administrator identity.
type AdminResponse struct {
	Admin domain.Identity `json:"admin"`
}
