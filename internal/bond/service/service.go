// Package service implements the bond engine: issuance, redemption,
// ownership transfer, and default-marking. Every mutation is all-or-nothing;
// per-bond locks serialize redemption, transfer, and default so the
// double-spend check and the record write always act on the same state.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"veritasor/internal/attestation"
	"veritasor/internal/bond/models"
	"veritasor/internal/bond/store"
	"veritasor/internal/platform/metrics"
	"veritasor/internal/treasury"
	"veritasor/pkg/domain"
	dErrors "veritasor/pkg/domain-errors"
	audit "veritasor/pkg/platform/audit"
	"veritasor/pkg/platform/sentinel"
)

// AuditPublisher receives domain events. Emission failures are logged, not
// propagated: the store transaction is the record of truth.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Clock is injected for testability; defaults to time.Now.
type Clock func() time.Time

type Service struct {
	store        store.Store
	attestations attestation.Client
	tokens       treasury.TokenClient

	locks bondLocks

	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor AuditPublisher
	clock   Clock
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = publisher
	}
}

func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(st store.Store, attestations attestation.Client, tokens treasury.TokenClient, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("bond store is required")
	}
	if attestations == nil {
		return nil, fmt.Errorf("attestation client is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token client is required")
	}

	svc := &Service{
		store:        st,
		attestations: attestations,
		tokens:       tokens,
		logger:       slog.Default(),
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Initialize registers the administrator. It succeeds exactly once.
func (s *Service) Initialize(ctx context.Context, admin domain.Identity) error {
	if admin.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "admin identity is required")
	}
	if err := s.store.SetAdmin(ctx, admin); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "already initialized")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to register admin")
	}

	s.emitAudit(ctx, audit.Event{
		Action: string(audit.EventAdminInitialized),
		Actor:  admin,
	})
	return nil
}

// GetAdmin returns the registered administrator identity.
func (s *Service) GetAdmin(ctx context.Context) (domain.Identity, error) {
	admin, err := s.store.GetAdmin(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeInvariantViolation, "not initialized")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load admin")
	}
	return admin, nil
}

// GetBond returns the bond, or nil when the identifier is unknown.
func (s *Service) GetBond(ctx context.Context, id domain.BondID) (*models.Bond, error) {
	bond, err := s.store.GetBond(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load bond")
	}
	return bond, nil
}

// GetOwner returns the current owner, or "" when the bond is unknown.
func (s *Service) GetOwner(ctx context.Context, id domain.BondID) (domain.Identity, error) {
	owner, err := s.store.GetOwner(ctx, id)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load owner")
	}
	return owner, nil
}

// GetRedemption returns the record for (bond, period), or nil when none
// exists.
func (s *Service) GetRedemption(ctx context.Context, id domain.BondID, period string) (*models.RedemptionRecord, error) {
	rec, err := s.store.GetRedemption(ctx, id, period)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load redemption")
	}
	return rec, nil
}

// GetTotalRedeemed returns the cumulative redeemed amount for a bond.
func (s *Service) GetTotalRedeemed(ctx context.Context, id domain.BondID) (int64, error) {
	total, err := s.store.GetTotalRedeemed(ctx, id)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load total")
	}
	return total, nil
}

// GetRemainingValue returns face value minus the cumulative redeemed amount.
func (s *Service) GetRemainingValue(ctx context.Context, id domain.BondID) (int64, error) {
	bond, err := s.GetBond(ctx, id)
	if err != nil {
		return 0, err
	}
	if bond == nil {
		return 0, dErrors.New(dErrors.CodeNotFound, "bond not found")
	}
	total, err := s.GetTotalRedeemed(ctx, id)
	if err != nil {
		return 0, err
	}
	return bond.FaceValue - total, nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emission failed",
			"error", err,
			"action", event.Action,
			"bond_id", event.BondID,
		)
	}
}
