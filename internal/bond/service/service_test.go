package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"veritasor/internal/attestation"
	"veritasor/internal/bond/models"
	"veritasor/internal/bond/store"
	"veritasor/internal/treasury"
	"veritasor/pkg/domain"
	dErrors "veritasor/pkg/domain-errors"
	audit "veritasor/pkg/platform/audit"
	"veritasor/pkg/platform/audit/publisher"
	auditmemory "veritasor/pkg/platform/audit/store/memory"
)

const (
	issuerID = domain.Identity("acct:issuer")
	ownerID  = domain.Identity("acct:owner")
	buyerID  = domain.Identity("acct:buyer")
	adminID  = domain.Identity("acct:admin")
	tokenID  = domain.Identity("token:usdc")
)

type ServiceSuite struct {
	suite.Suite

	ctx     context.Context
	store   *store.InMemory
	atts    *attestation.InMemoryClient
	ledger  *treasury.InMemoryLedger
	audits  *auditmemory.InMemoryStore
	service *Service
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.atts = attestation.NewInMemoryClient()
	s.ledger = treasury.NewInMemoryLedger()
	s.audits = auditmemory.NewInMemoryStore()

	svc, err := New(s.store, s.atts, s.ledger,
		WithAuditPublisher(publisher.NewPublisher(s.audits)),
		WithClock(func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }),
	)
	s.Require().NoError(err)
	s.service = svc

	s.ledger.Mint(tokenID, issuerID, 100_000_000)
	s.Require().NoError(s.service.Initialize(s.ctx, adminID))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) issueParams(structure models.BondStructure) models.IssueParams {
	return models.IssueParams{
		Issuer:            issuerID,
		InitialOwner:      ownerID,
		FaceValue:         2_000_000,
		Structure:         structure,
		RevenueShareBps:   500,
		MinPayment:        100_000,
		MaxPayment:        1_000_000,
		MaturityPeriods:   12,
		AttestationSource: "acme-revenue-oracle",
		Token:             tokenID,
	}
}

func (s *ServiceSuite) issue(structure models.BondStructure) *models.Bond {
	bond, err := s.service.Issue(s.ctx, issuerID, s.issueParams(structure))
	s.Require().NoError(err)
	return bond
}

func (s *ServiceSuite) attest(period string) {
	s.atts.Submit(issuerID.String(), period, attestation.Attestation{
		Timestamp: time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		Version:   1,
	})
}

// --- Initialization ---

func (s *ServiceSuite) TestInitializeOnlyOnce() {
	err := s.service.Initialize(s.ctx, domain.Identity("acct:other"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	admin, err := s.service.GetAdmin(s.ctx)
	s.Require().NoError(err)
	s.Equal(adminID, admin)
}

// --- Issuance ---

func (s *ServiceSuite) TestIssueAssignsSequentialIDs() {
	first := s.issue(models.StructureFixed)
	second := s.issue(models.StructureRevenueLinked)
	s.Equal(first.ID+1, second.ID)

	owner, err := s.service.GetOwner(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Equal(ownerID, owner)

	got, err := s.service.GetBond(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(models.StatusActive, got.Status)
	s.Equal(int64(2_000_000), got.FaceValue)
}

func (s *ServiceSuite) TestIssueRequiresIssuerCaller() {
	_, err := s.service.Issue(s.ctx, ownerID, s.issueParams(models.StructureFixed))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestIssueValidation() {
	base := s.issueParams(models.StructureRevenueLinked)

	cases := []struct {
		name   string
		mutate func(*models.IssueParams)
		want   string
	}{
		{"zero face value", func(p *models.IssueParams) { p.FaceValue = 0 }, "face_value must be positive"},
		{"negative face value", func(p *models.IssueParams) { p.FaceValue = -1 }, "face_value must be positive"},
		{"bps over denominator", func(p *models.IssueParams) { p.RevenueShareBps = 10_001 }, "revenue_share_bps must be <= 10000"},
		{"negative min payment", func(p *models.IssueParams) { p.MinPayment = -1 }, "min_payment_per_period must be non-negative"},
		{"zero max payment", func(p *models.IssueParams) { p.MaxPayment = 0; p.MinPayment = 0 }, "max_payment_per_period must be positive"},
		{"max below min", func(p *models.IssueParams) { p.MaxPayment = 50_000 }, "max_payment_per_period must be >= min_payment_per_period"},
		{"zero maturity", func(p *models.IssueParams) { p.MaturityPeriods = 0 }, "maturity_periods must be positive"},
		{"unknown structure", func(p *models.IssueParams) { p.Structure = "balloon" }, "unknown bond structure"},
		{"issuer owns itself", func(p *models.IssueParams) { p.InitialOwner = issuerID }, "issuer and initial owner must differ"},
		{"missing token", func(p *models.IssueParams) { p.Token = "" }, "token is required"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			params := base
			tc.mutate(&params)
			_, err := s.service.Issue(s.ctx, params.Issuer, params)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
			s.Contains(err.Error(), tc.want)
		})
	}
}

func (s *ServiceSuite) TestFailedIssueDoesNotConsumeID() {
	first := s.issue(models.StructureFixed)

	bad := s.issueParams(models.StructureFixed)
	bad.FaceValue = 0
	_, err := s.service.Issue(s.ctx, issuerID, bad)
	s.Require().Error(err)

	second := s.issue(models.StructureFixed)
	s.Equal(first.ID+1, second.ID)
}

// --- Redemption formulas ---

func (s *ServiceSuite) TestRedeemFixedIgnoresRevenue() {
	bond := s.issue(models.StructureFixed)
	s.attest("2026-02")

	rec, err := s.service.Redeem(s.ctx, bond.ID, "2026-02", 5_000_000)
	s.Require().NoError(err)
	s.Equal(int64(100_000), rec.Amount)
	s.Equal(int64(100_000), s.ledger.Balance(tokenID, ownerID))
}

func (s *ServiceSuite) TestRedeemRevenueLinked() {
	params := s.issueParams(models.StructureRevenueLinked)
	params.FaceValue = 10_000_000
	params.RevenueShareBps = 500 // 5%
	params.MinPayment = 100_000
	params.MaxPayment = 400_000
	bond, err := s.service.Issue(s.ctx, issuerID, params)
	s.Require().NoError(err)

	cases := []struct {
		period  string
		revenue int64
		want    int64
	}{
		{"2026-01", 6_000_000, 300_000}, // 5% inside the band
		{"2026-02", 1_000_000, 100_000}, // 5% = 50_000, floor applies
		{"2026-03", 20_000_000, 400_000}, // 5% = 1_000_000, cap applies
	}
	for _, tc := range cases {
		s.attest(tc.period)
		rec, err := s.service.Redeem(s.ctx, bond.ID, tc.period, tc.revenue)
		s.Require().NoError(err, tc.period)
		s.Equal(tc.want, rec.Amount, tc.period)
	}

	total, err := s.service.GetTotalRedeemed(s.ctx, bond.ID)
	s.Require().NoError(err)
	s.Equal(int64(800_000), total)
}

func (s *ServiceSuite) TestRedeemHybrid() {
	params := s.issueParams(models.StructureHybrid)
	params.FaceValue = 10_000_000
	params.RevenueShareBps = 1_000 // 10%
	params.MinPayment = 200_000
	params.MaxPayment = 700_000
	bond, err := s.service.Issue(s.ctx, issuerID, params)
	s.Require().NoError(err)

	// base 200_000 + 10% of 3_000_000 = 500_000
	s.attest("2026-01")
	rec, err := s.service.Redeem(s.ctx, bond.ID, "2026-01", 3_000_000)
	s.Require().NoError(err)
	s.Equal(int64(500_000), rec.Amount)

	// base 200_000 + 10% of 9_000_000 would be 1_100_000, capped at max
	s.attest("2026-02")
	rec, err = s.service.Redeem(s.ctx, bond.ID, "2026-02", 9_000_000)
	s.Require().NoError(err)
	s.Equal(int64(700_000), rec.Amount)
}

// --- Cap and terminal state ---

func (s *ServiceSuite) TestFinalRedemptionIsCappedAndFlipsStatus() {
	params := s.issueParams(models.StructureFixed)
	params.FaceValue = 250_000
	params.MinPayment = 100_000
	params.MaxPayment = 100_000
	bond, err := s.service.Issue(s.ctx, issuerID, params)
	s.Require().NoError(err)

	for _, period := range []string{"2026-01", "2026-02"} {
		s.attest(period)
		rec, err := s.service.Redeem(s.ctx, bond.ID, period, 0)
		s.Require().NoError(err)
		s.Equal(int64(100_000), rec.Amount)
	}

	// Only 50_000 of face value remains; the payment is capped to it.
	s.attest("2026-03")
	rec, err := s.service.Redeem(s.ctx, bond.ID, "2026-03", 0)
	s.Require().NoError(err)
	s.Equal(int64(50_000), rec.Amount)

	got, err := s.service.GetBond(s.ctx, bond.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusFullyRedeemed, got.Status)

	remaining, err := s.service.GetRemainingValue(s.ctx, bond.ID)
	s.Require().NoError(err)
	s.Zero(remaining)

	// Terminal: a further period is rejected even with an attestation.
	s.attest("2026-04")
	_, err = s.service.Redeem(s.ctx, bond.ID, "2026-04", 1_000_000)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *ServiceSuite) TestZeroAmountRedemptionIsRecorded() {
	params := s.issueParams(models.StructureRevenueLinked)
	params.MinPayment = 0
	params.RevenueShareBps = 500
	bond, err := s.service.Issue(s.ctx, issuerID, params)
	s.Require().NoError(err)

	s.attest("2026-01")
	rec, err := s.service.Redeem(s.ctx, bond.ID, "2026-01", 0)
	s.Require().NoError(err)
	s.Zero(rec.Amount)
	s.Zero(s.ledger.Balance(tokenID, ownerID))

	// The zero-amount record still consumes the period.
	_, err = s.service.Redeem(s.ctx, bond.ID, "2026-01", 50_000_000)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

// --- Attestation gating ---

func (s *ServiceSuite) TestRedeemRequiresAttestation() {
	bond := s.issue(models.StructureFixed)

	_, err := s.service.Redeem(s.ctx, bond.ID, "2026-01", 1_000_000)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	total, terr := s.service.GetTotalRedeemed(s.ctx, bond.ID)
	s.Require().NoError(terr)
	s.Zero(total)
}

func (s *ServiceSuite) TestRedeemRejectsRevokedAttestation() {
	bond := s.issue(models.StructureFixed)
	s.attest("2026-01")
	s.atts.Revoke(issuerID.String(), "2026-01")

	_, err := s.service.Redeem(s.ctx, bond.ID, "2026-01", 1_000_000)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Contains(err.Error(), "revoked")
}

func (s *ServiceSuite) TestRedeemRejectsNegativeRevenue() {
	bond := s.issue(models.StructureFixed)
	s.attest("2026-01")

	_, err := s.service.Redeem(s.ctx, bond.ID, "2026-01", -1)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

// --- Double spend ---

func (s *ServiceSuite) TestRedeemSamePeriodTwiceFails() {
	bond := s.issue(models.StructureFixed)
	s.attest("2026-01")

	_, err := s.service.Redeem(s.ctx, bond.ID, "2026-01", 1_000_000)
	s.Require().NoError(err)

	_, err = s.service.Redeem(s.ctx, bond.ID, "2026-01", 1_000_000)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	// The owner was paid exactly once.
	s.Equal(int64(100_000), s.ledger.Balance(tokenID, ownerID))
}

func (s *ServiceSuite) TestConcurrentSamePeriodExactlyOneSucceeds() {
	bond := s.issue(models.StructureFixed)
	s.attest("2026-01")

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.service.Redeem(s.ctx, bond.ID, "2026-01", 1_000_000)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		}
	}
	s.Equal(1, succeeded)
	s.Equal(int64(100_000), s.ledger.Balance(tokenID, ownerID))
}

// --- Transfer failures abort ---

func (s *ServiceSuite) TestTransferFailureLeavesNoRecord() {
	params := s.issueParams(models.StructureFixed)
	params.Token = domain.Identity("token:unfunded")
	bond, err := s.service.Issue(s.ctx, issuerID, params)
	s.Require().NoError(err)
	s.attest("2026-01")

	_, err = s.service.Redeem(s.ctx, bond.ID, "2026-01", 1_000_000)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	rec, rerr := s.service.GetRedemption(s.ctx, bond.ID, "2026-01")
	s.Require().NoError(rerr)
	s.Nil(rec)
	total, terr := s.service.GetTotalRedeemed(s.ctx, bond.ID)
	s.Require().NoError(terr)
	s.Zero(total)

	// The period remains redeemable once the issuer is funded.
	s.ledger.Mint(params.Token, issuerID, 1_000_000)
	recovered, err := s.service.Redeem(s.ctx, bond.ID, "2026-01", 1_000_000)
	s.Require().NoError(err)
	s.Equal(int64(100_000), recovered.Amount)
}

// --- Ownership ---

func (s *ServiceSuite) TestTransferOwnership() {
	bond := s.issue(models.StructureFixed)

	err := s.service.TransferOwnership(s.ctx, ownerID, bond.ID, buyerID)
	s.Require().NoError(err)

	owner, err := s.service.GetOwner(s.ctx, bond.ID)
	s.Require().NoError(err)
	s.Equal(buyerID, owner)

	// Subsequent redemptions pay the new owner.
	s.attest("2026-01")
	_, err = s.service.Redeem(s.ctx, bond.ID, "2026-01", 0)
	s.Require().NoError(err)
	s.Equal(int64(100_000), s.ledger.Balance(tokenID, buyerID))
	s.Zero(s.ledger.Balance(tokenID, ownerID))
}

func (s *ServiceSuite) TestTransferRequiresCurrentOwner() {
	bond := s.issue(models.StructureFixed)

	err := s.service.TransferOwnership(s.ctx, buyerID, bond.ID, buyerID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestTransferToSelfRejected() {
	bond := s.issue(models.StructureFixed)

	err := s.service.TransferOwnership(s.ctx, ownerID, bond.ID, ownerID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestTransferUnknownBond() {
	err := s.service.TransferOwnership(s.ctx, ownerID, domain.BondID(999), buyerID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// --- Default ---

func (s *ServiceSuite) TestMarkDefaulted() {
	bond := s.issue(models.StructureFixed)

	err := s.service.MarkDefaulted(s.ctx, adminID, bond.ID)
	s.Require().NoError(err)

	got, gerr := s.service.GetBond(s.ctx, bond.ID)
	s.Require().NoError(gerr)
	s.Equal(models.StatusDefaulted, got.Status)

	s.attest("2026-01")
	_, err = s.service.Redeem(s.ctx, bond.ID, "2026-01", 1_000_000)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	// Defaulted paper can still change hands.
	s.Require().NoError(s.service.TransferOwnership(s.ctx, ownerID, bond.ID, buyerID))
}

func (s *ServiceSuite) TestMarkDefaultedRequiresAdmin() {
	bond := s.issue(models.StructureFixed)

	err := s.service.MarkDefaulted(s.ctx, issuerID, bond.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestMarkDefaultedTwiceFails() {
	bond := s.issue(models.StructureFixed)
	s.Require().NoError(s.service.MarkDefaulted(s.ctx, adminID, bond.ID))

	err := s.service.MarkDefaulted(s.ctx, adminID, bond.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

// --- Audit trail ---

func (s *ServiceSuite) TestAuditTrailForLifecycle() {
	bond := s.issue(models.StructureFixed)
	s.attest("2026-01")
	_, err := s.service.Redeem(s.ctx, bond.ID, "2026-01", 1_000_000)
	s.Require().NoError(err)

	events, err := s.audits.ListByBond(s.ctx, bond.ID)
	s.Require().NoError(err)

	actions := make([]string, 0, len(events))
	for _, ev := range events {
		actions = append(actions, ev.Action)
	}
	s.Contains(actions, string(audit.EventBondIssued))
	s.Contains(actions, string(audit.EventBondRedeemed))
}

// --- Formula unit coverage ---

func TestRedemptionAmount(t *testing.T) {
	bond := func(structure models.BondStructure, bps uint32, min, max int64) *models.Bond {
		return &models.Bond{
			Structure:       structure,
			RevenueShareBps: bps,
			MinPayment:      min,
			MaxPayment:      max,
		}
	}

	cases := []struct {
		name    string
		bond    *models.Bond
		revenue int64
		want    int64
	}{
		{"fixed ignores revenue", bond(models.StructureFixed, 9_999, 500_000, 1_000_000), 123_456_789, 500_000},
		{"linked in band", bond(models.StructureRevenueLinked, 500, 100_000, 400_000), 6_000_000, 300_000},
		{"linked floor", bond(models.StructureRevenueLinked, 500, 100_000, 400_000), 0, 100_000},
		{"linked cap", bond(models.StructureRevenueLinked, 500, 100_000, 400_000), 1_000_000_000, 400_000},
		{"linked truncates", bond(models.StructureRevenueLinked, 3, 0, 1_000_000), 999, 0},
		{"hybrid base plus share", bond(models.StructureHybrid, 1_000, 200_000, 700_000), 3_000_000, 500_000},
		{"hybrid capped", bond(models.StructureHybrid, 1_000, 200_000, 700_000), 9_000_000, 700_000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, redemptionAmount(tc.bond, tc.revenue))
		})
	}

	require.Panics(t, func() {
		redemptionAmount(bond("balloon", 0, 0, 1), 0)
	})
}
