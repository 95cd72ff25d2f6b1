package service

import (
	"context"
	"errors"
	"fmt"

	"veritasor/internal/bond/models"
	"veritasor/pkg/domain"
	dErrors "veritasor/pkg/domain-errors"
	"veritasor/pkg/fixedpoint"
	audit "veritasor/pkg/platform/audit"
	"veritasor/pkg/platform/sentinel"
)

// Redeem executes one redemption for (bond, period). The whole sequence is
// all-or-nothing: any failure before the store write leaves no trace beyond
// logs and metrics, and the persisted record is the permanent double-spend
// guard for the period.
//
// Redemption is permissionless. Any caller may trigger it; the payment always
// goes to the recorded owner, so there is no incentive to redeem someone
// else's bond.
func (s *Service) Redeem(ctx context.Context, bondID domain.BondID, period string, attestedRevenue int64) (*models.RedemptionRecord, error) {
	if period == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "period is required")
	}
	if attestedRevenue < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "attested_revenue must be non-negative")
	}

	unlock := s.locks.lock(bondID)
	defer unlock()

	bond, err := s.store.GetBond(ctx, bondID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load bond")
	}
	if bond == nil {
		return nil, s.reject(ctx, bondID, period, "bond_not_found",
			dErrors.New(dErrors.CodeNotFound, "bond not found"))
	}
	if !bond.IsActive() {
		switch bond.Status {
		case models.StatusFullyRedeemed:
			return nil, s.reject(ctx, bondID, period, "fully_redeemed",
				dErrors.New(dErrors.CodeInvariantViolation, "bond is fully redeemed"))
		case models.StatusDefaulted:
			return nil, s.reject(ctx, bondID, period, "defaulted",
				dErrors.New(dErrors.CodeInvariantViolation, "bond is defaulted"))
		default:
			return nil, s.reject(ctx, bondID, period, "not_active",
				dErrors.Newf(dErrors.CodeInvariantViolation, "bond is not active: %s", bond.Status))
		}
	}

	att, err := s.attestations.GetAttestation(ctx, bond.Issuer.String(), period)
	if err != nil {
		return nil, s.reject(ctx, bondID, period, "attestation_unavailable",
			dErrors.Wrap(err, dErrors.CodeUnavailable, "attestation lookup failed"))
	}
	if att == nil {
		return nil, s.reject(ctx, bondID, period, "attestation_missing",
			dErrors.New(dErrors.CodeUnavailable, "no attestation published for period"))
	}
	revoked, err := s.attestations.IsRevoked(ctx, bond.Issuer.String(), period)
	if err != nil {
		return nil, s.reject(ctx, bondID, period, "attestation_unavailable",
			dErrors.Wrap(err, dErrors.CodeUnavailable, "revocation lookup failed"))
	}
	if revoked {
		return nil, s.reject(ctx, bondID, period, "attestation_revoked",
			dErrors.New(dErrors.CodeUnavailable, "attestation for period has been revoked"))
	}

	existing, err := s.store.GetRedemption(ctx, bondID, period)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load redemption")
	}
	if existing != nil {
		return nil, s.reject(ctx, bondID, period, "already_redeemed",
			dErrors.New(dErrors.CodeConflict, "period already redeemed"))
	}

	total, err := s.store.GetTotalRedeemed(ctx, bondID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load total")
	}
	tentative := redemptionAmount(bond, attestedRevenue)
	actual := fixedpoint.Min(tentative, bond.FaceValue-total)

	// A zero-amount period still gets a record: it consumes the period so
	// the same attestation can never be replayed at a higher revenue later.
	if actual > 0 {
		owner, err := s.store.GetOwner(ctx, bondID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load owner")
		}
		if err := s.tokens.Transfer(ctx, bond.Token, bond.Issuer, owner, actual); err != nil {
			if errors.Is(err, sentinel.ErrInsufficientFunds) {
				return nil, s.reject(ctx, bondID, period, "insufficient_funds",
					dErrors.Wrap(err, dErrors.CodeUnavailable, "issuer has insufficient funds"))
			}
			return nil, s.reject(ctx, bondID, period, "transfer_failed",
				dErrors.Wrap(err, dErrors.CodeUnavailable, "token transfer failed"))
		}
	}

	rec := &models.RedemptionRecord{
		BondID:          bondID,
		Period:          period,
		AttestedRevenue: attestedRevenue,
		Amount:          actual,
		RedeemedAt:      s.clock().UTC(),
	}
	newTotal := fixedpoint.Add(total, actual)
	fullyRedeemed := newTotal == bond.FaceValue

	if err := s.store.ApplyRedemption(ctx, rec, newTotal, fullyRedeemed); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, s.reject(ctx, bondID, period, "already_redeemed",
				dErrors.New(dErrors.CodeConflict, "period already redeemed"))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record redemption")
	}

	if s.metrics != nil {
		s.metrics.Redemptions.WithLabelValues(string(bond.Structure)).Inc()
		s.metrics.AmountRedeemed.Add(float64(actual))
	}
	s.emitAudit(ctx, audit.Event{
		Action: string(audit.EventBondRedeemed),
		BondID: bondID,
		Period: period,
		Amount: actual,
	})
	if fullyRedeemed {
		s.emitAudit(ctx, audit.Event{
			Action: string(audit.EventBondFullyRedeemed),
			BondID: bondID,
			Period: period,
		})
	}
	s.logger.InfoContext(ctx, "bond redeemed",
		"bond_id", bondID,
		"period", period,
		"attested_revenue", attestedRevenue,
		"amount", actual,
		"total_redeemed", newTotal,
		"fully_redeemed", fullyRedeemed,
	)
	return rec, nil
}

// redemptionAmount computes the tentative payment for a period before the
// remaining-face-value cap is applied. All arithmetic saturates instead of
// wrapping.
func redemptionAmount(bond *models.Bond, attestedRevenue int64) int64 {
	switch bond.Structure {
	case models.StructureFixed:
		return bond.MinPayment
	case models.StructureRevenueLinked:
		share := fixedpoint.Share(attestedRevenue, bond.RevenueShareBps)
		return fixedpoint.Clamp(share, bond.MinPayment, bond.MaxPayment)
	case models.StructureHybrid:
		share := fixedpoint.Share(attestedRevenue, bond.RevenueShareBps)
		return fixedpoint.Min(fixedpoint.Add(bond.MinPayment, share), bond.MaxPayment)
	default:
		// Structure is validated at issuance; reaching this is a bug.
		panic(fmt.Sprintf("unknown bond structure %q", bond.Structure))
	}
}

func (s *Service) reject(ctx context.Context, bondID domain.BondID, period, reason string, err error) error {
	if s.metrics != nil {
		s.metrics.RedemptionsRejected.WithLabelValues(reason).Inc()
	}
	s.emitAudit(ctx, audit.Event{
		Action: string(audit.EventRedemptionRejected),
		BondID: bondID,
		Period: period,
		Reason: reason,
	})
	s.logger.WarnContext(ctx, "redemption rejected",
		"bond_id", bondID,
		"period", period,
		"reason", reason,
	)
	return err
}
