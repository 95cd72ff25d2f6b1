package service

import (
	"context"

	"veritasor/internal/bond/models"
	"veritasor/pkg/domain"
	dErrors "veritasor/pkg/domain-errors"
	audit "veritasor/pkg/platform/audit"
)

// Issue validates the parameters, assigns the next bond identifier, and
// persists the bond as Active with the initial owner. A failed issuance never
// consumes an identifier: the counter only advances inside the store's
// create transaction, which runs after validation.
func (s *Service) Issue(ctx context.Context, caller domain.Identity, params models.IssueParams) (*models.Bond, error) {
	if caller.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if caller != params.Issuer {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the issuer may issue its own bonds")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	bond := &models.Bond{
		Issuer:            params.Issuer,
		FaceValue:         params.FaceValue,
		Structure:         params.Structure,
		RevenueShareBps:   params.RevenueShareBps,
		MinPayment:        params.MinPayment,
		MaxPayment:        params.MaxPayment,
		MaturityPeriods:   params.MaturityPeriods,
		AttestationSource: params.AttestationSource,
		Token:             params.Token,
		Status:            models.StatusActive,
		IssuedAt:          s.clock().UTC(),
	}
	id, err := s.store.CreateBond(ctx, bond, params.InitialOwner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create bond")
	}
	bond.ID = id

	if s.metrics != nil {
		s.metrics.BondsIssued.WithLabelValues(string(bond.Structure)).Inc()
	}
	s.emitAudit(ctx, audit.Event{
		Action: string(audit.EventBondIssued),
		BondID: bond.ID,
		Actor:  caller,
		Amount: bond.FaceValue,
	})
	s.logger.InfoContext(ctx, "bond issued",
		"bond_id", bond.ID,
		"issuer", bond.Issuer,
		"structure", bond.Structure,
		"face_value", bond.FaceValue,
	)
	return bond, nil
}
