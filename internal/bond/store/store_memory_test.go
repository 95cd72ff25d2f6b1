package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritasor/internal/bond/models"
	"veritasor/pkg/domain"
	"veritasor/pkg/platform/sentinel"
)

func newBond() *models.Bond {
	return &models.Bond{
		Issuer:            "acct:issuer",
		FaceValue:         2_000_000,
		Structure:         models.StructureFixed,
		RevenueShareBps:   0,
		MinPayment:        100_000,
		MaxPayment:        100_000,
		MaturityPeriods:   12,
		AttestationSource: "acme-revenue-oracle",
		Token:             "token:usdc",
		Status:            models.StatusActive,
		IssuedAt:          time.Now().UTC(),
	}
}

func TestInMemoryAdmin(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	_, err := s.GetAdmin(ctx)
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	require.NoError(t, s.SetAdmin(ctx, "acct:admin"))
	require.ErrorIs(t, s.SetAdmin(ctx, "acct:other"), sentinel.ErrConflict)

	admin, err := s.GetAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity("acct:admin"), admin)
}

func TestInMemoryCreateBond(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	first, err := s.CreateBond(ctx, newBond(), "acct:owner")
	require.NoError(t, err)
	second, err := s.CreateBond(ctx, newBond(), "acct:owner")
	require.NoError(t, err)
	assert.Equal(t, first+1, second)

	bond, err := s.GetBond(ctx, first)
	require.NoError(t, err)
	require.NotNil(t, bond)
	assert.Equal(t, first, bond.ID)

	owner, err := s.GetOwner(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity("acct:owner"), owner)

	total, err := s.GetTotalRedeemed(ctx, first)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestInMemoryGetBondReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	id, err := s.CreateBond(ctx, newBond(), "acct:owner")
	require.NoError(t, err)

	bond, err := s.GetBond(ctx, id)
	require.NoError(t, err)
	bond.FaceValue = 1

	again, err := s.GetBond(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(2_000_000), again.FaceValue)
}

func TestInMemoryUnknownBondReads(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	bond, err := s.GetBond(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, bond)

	owner, err := s.GetOwner(ctx, 999)
	require.NoError(t, err)
	assert.True(t, owner.IsNil())

	rec, err := s.GetRedemption(ctx, 999, "2026-01")
	require.NoError(t, err)
	assert.Nil(t, rec)

	total, err := s.GetTotalRedeemed(ctx, 999)
	require.NoError(t, err)
	assert.Zero(t, total)

	require.ErrorIs(t, s.SetOwner(ctx, 999, "acct:buyer"), sentinel.ErrNotFound)
}

func TestInMemoryApplyRedemption(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	id, err := s.CreateBond(ctx, newBond(), "acct:owner")
	require.NoError(t, err)

	rec := &models.RedemptionRecord{
		BondID:          id,
		Period:          "2026-01",
		AttestedRevenue: 1_000_000,
		Amount:          100_000,
		RedeemedAt:      time.Now().UTC(),
	}
	require.NoError(t, s.ApplyRedemption(ctx, rec, 100_000, false))

	got, err := s.GetRedemption(ctx, id, "2026-01")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(100_000), got.Amount)

	// Duplicate period is rejected and leaves the total untouched.
	require.ErrorIs(t, s.ApplyRedemption(ctx, rec, 200_000, false), sentinel.ErrConflict)
	total, err := s.GetTotalRedeemed(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), total)
}

func TestInMemoryApplyRedemptionFlip(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	id, err := s.CreateBond(ctx, newBond(), "acct:owner")
	require.NoError(t, err)

	rec := &models.RedemptionRecord{
		BondID:     id,
		Period:     "2026-01",
		Amount:     2_000_000,
		RedeemedAt: time.Now().UTC(),
	}
	require.NoError(t, s.ApplyRedemption(ctx, rec, 2_000_000, true))

	bond, err := s.GetBond(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFullyRedeemed, bond.Status)
}

func TestInMemorySetStatus(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	id, err := s.CreateBond(ctx, newBond(), "acct:owner")
	require.NoError(t, err)

	require.NoError(t, s.SetStatus(ctx, id, models.StatusDefaulted))
	bond, err := s.GetBond(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDefaulted, bond.Status)

	require.ErrorIs(t, s.SetStatus(ctx, 999, models.StatusDefaulted), sentinel.ErrNotFound)
}
