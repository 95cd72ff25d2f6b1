package service

import (
	"context"

	"veritasor/internal/bond/models"
	"veritasor/pkg/domain"
	dErrors "veritasor/pkg/domain-errors"
	audit "veritasor/pkg/platform/audit"
)

// MarkDefaulted moves an active bond to Defaulted. Admin only. The state is
// terminal: no further redemptions are accepted, though ownership transfers
// remain possible.
func (s *Service) MarkDefaulted(ctx context.Context, caller domain.Identity, bondID domain.BondID) error {
	admin, err := s.GetAdmin(ctx)
	if err != nil {
		return err
	}
	if caller != admin {
		return dErrors.New(dErrors.CodeUnauthorized, "only the admin may mark a bond defaulted")
	}

	unlock := s.locks.lock(bondID)
	defer unlock()

	bond, err := s.store.GetBond(ctx, bondID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load bond")
	}
	if bond == nil {
		return dErrors.New(dErrors.CodeNotFound, "bond not found")
	}
	if !bond.IsActive() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "bond is not active: %s", bond.Status)
	}

	if err := s.store.SetStatus(ctx, bondID, models.StatusDefaulted); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set status")
	}

	if s.metrics != nil {
		s.metrics.BondsDefaulted.Inc()
	}
	s.emitAudit(ctx, audit.Event{
		Action: string(audit.EventBondDefaulted),
		BondID: bondID,
		Actor:  caller,
	})
	s.logger.InfoContext(ctx, "bond marked defaulted",
		"bond_id", bondID,
		"admin", caller,
	)
	return nil
}
