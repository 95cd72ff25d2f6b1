package service

import (
	"context"
	"errors"

	"veritasor/pkg/domain"
	dErrors "veritasor/pkg/domain-errors"
	audit "veritasor/pkg/platform/audit"
	"veritasor/pkg/platform/sentinel"
)

// TransferOwnership reassigns the redemption beneficiary. Only the current
// owner may transfer, and ownership changes remain possible in every bond
// status so positions stay sellable even on defaulted paper.
func (s *Service) TransferOwnership(ctx context.Context, caller domain.Identity, bondID domain.BondID, newOwner domain.Identity) error {
	if newOwner.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "new owner identity is required")
	}

	unlock := s.locks.lock(bondID)
	defer unlock()

	owner, err := s.store.GetOwner(ctx, bondID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load owner")
	}
	if owner.IsNil() {
		return dErrors.New(dErrors.CodeNotFound, "bond not found")
	}
	if caller != owner {
		return dErrors.New(dErrors.CodeUnauthorized, "only the current owner may transfer")
	}
	if newOwner == owner {
		return dErrors.New(dErrors.CodeBadRequest, "cannot transfer to current owner")
	}

	if err := s.store.SetOwner(ctx, bondID, newOwner); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "bond not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set owner")
	}

	if s.metrics != nil {
		s.metrics.OwnershipTransfers.Inc()
	}
	s.emitAudit(ctx, audit.Event{
		Action: string(audit.EventOwnershipTransfer),
		BondID: bondID,
		Actor:  caller,
	})
	s.logger.InfoContext(ctx, "bond ownership transferred",
		"bond_id", bondID,
		"from", owner,
		"to", newOwner,
	)
	return nil
}
