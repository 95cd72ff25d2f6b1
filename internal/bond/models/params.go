package models

import (
	"veritasor/pkg/domain"
	dErrors "veritasor/pkg/domain-errors"
	"veritasor/pkg/fixedpoint"
)

// IssueParams carries the terms of a new bond through validation.
type IssueParams struct {
	Issuer            domain.Identity
	InitialOwner      domain.Identity
	FaceValue         int64
	Structure         BondStructure
	RevenueShareBps   uint32
	MinPayment        int64
	MaxPayment        int64
	MaturityPeriods   uint32
	AttestationSource string
	Token             domain.Identity
}

// Validate checks every issuance precondition. Each violation is a distinct
// bad-request error so callers can tell rejections apart.
func (p *IssueParams) Validate() error {
	if p.Issuer.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "issuer is required")
	}
	if p.InitialOwner.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "initial owner is required")
	}
	if p.Token.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "token is required")
	}
	if !p.Structure.IsValid() {
		return dErrors.New(dErrors.CodeBadRequest, "unknown bond structure")
	}
	if p.FaceValue <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "face_value must be positive")
	}
	if p.RevenueShareBps > fixedpoint.BasisPointsDenominator {
		return dErrors.New(dErrors.CodeBadRequest, "revenue_share_bps must be <= 10000")
	}
	if p.MinPayment < 0 {
		return dErrors.New(dErrors.CodeBadRequest, "min_payment_per_period must be non-negative")
	}
	if p.MaxPayment <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "max_payment_per_period must be positive")
	}
	if p.MaxPayment < p.MinPayment {
		return dErrors.New(dErrors.CodeBadRequest, "max_payment_per_period must be >= min_payment_per_period")
	}
	if p.MaturityPeriods == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "maturity_periods must be positive")
	}
	if p.Issuer == p.InitialOwner {
		return dErrors.New(dErrors.CodeBadRequest, "issuer and initial owner must differ")
	}
	return nil
}
