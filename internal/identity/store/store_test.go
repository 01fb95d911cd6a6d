package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/suite"

	"attendance/internal/identity/models"
	"attendance/internal/identity/store"
	"attendance/internal/identity/store/memtier"
	dErrors "attendance/pkg/domain-errors"
)

type StoreSuite struct {
	suite.Suite
	ctx       context.Context
	durable   *memtier.Tier
	session   *memtier.Tier
	redundant *memtier.Tier
	store     *store.Store
	created   time.Time
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.durable = memtier.New()
	s.session = memtier.New()
	s.redundant = memtier.New()
	s.created = time.UnixMilli(1_700_000_000_000).UTC()
	s.store = store.New(s.durable, s.session, s.redundant,
		store.WithClock(clockwork.NewFakeClockAt(s.created.Add(time.Hour))))
}

func (s *StoreSuite) ident(id string) models.DeviceIdentity {
	return models.DeviceIdentity{ID: id, CreatedAt: s.created, AppVersionAtCreation: "19.9.8"}
}

func (s *StoreSuite) TestWriteSideKeys() {
	written, err := s.store.Write(s.ctx, s.ident("abc"))
	s.Require().NoError(err)
	s.ElementsMatch([]models.TierName{models.TierDurable, models.TierSession, models.TierRedundant}, written)

	s.Equal("1700000000000", mustGet(s, s.durable, "OS_DEVICE_ID_timestamp"))
	s.Equal("19.9.8", mustGet(s, s.durable, "OS_DEVICE_ID_version"))
	s.Equal("19.9.8", mustGet(s, s.durable, "OS_DEVICE_ID_created_version"))
	s.Equal("1700000000000", mustGet(s, s.session, "OS_DEVICE_ID_timestamp"))
	_, err = s.redundant.Get(s.ctx, "OS_DEVICE_ID_timestamp")
	s.Error(err)

	ident, ok := s.store.Identity(s.ctx, models.TierDurable)
	s.True(ok)
	s.Equal(s.ident("abc"), ident)
}

func (s *StoreSuite) TestWriteSucceedsWhenAnyTierAccepts() {
	s.durable.Break(errors.New("disk full"))
	s.session.Break(errors.New("quota"))

	written, err := s.store.Write(s.ctx, s.ident("abc"))
	s.Require().NoError(err)
	s.Equal([]models.TierName{models.TierRedundant}, written)
	s.Equal("abc", s.store.Read(s.ctx).Redundant)
}

func (s *StoreSuite) TestWriteFailsWhenAllTiersFail() {
	s.durable.Break(errors.New("a"))
	s.session.Break(errors.New("b"))
	s.redundant.Break(errors.New("c"))

	_, err := s.store.Write(s.ctx, s.ident("abc"))
	s.Equal(dErrors.CodeInternal, dErrors.CodeOf(err))
}

func (s *StoreSuite) TestReadTreatsBrokenTierAsEmpty() {
	_, _ = s.store.Write(s.ctx, s.ident("abc"))
	s.session.Break(errors.New("gone"))

	snap := s.store.Read(s.ctx)
	s.Equal(models.Snapshot{Durable: "abc", Redundant: "abc"}, snap)
	s.False(snap.Consistent())
}

func (s *StoreSuite) TestReconcile() {
	s.Run("durable wins over disagreeing tiers", func() {
		s.SetupTest()
		_, _ = s.store.Write(s.ctx, s.ident("truth"), models.TierDurable)
		_, _ = s.store.Write(s.ctx, s.ident("stale"), models.TierSession, models.TierRedundant)

		report, err := s.store.Reconcile(s.ctx, "19.9.8")
		s.Require().NoError(err)
		s.Equal(models.TierDurable, report.Source)
		s.Equal("truth", report.Adopted)
		s.ElementsMatch([]models.TierName{models.TierSession, models.TierRedundant}, report.Repaired)
		s.True(s.store.Read(s.ctx).Consistent())
	})

	s.Run("empty durable is refilled from redundant before session", func() {
		s.SetupTest()
		_, _ = s.store.Write(s.ctx, s.ident("cookie"), models.TierRedundant)
		_, _ = s.store.Write(s.ctx, s.ident("session"), models.TierSession)

		report, err := s.store.Reconcile(s.ctx, "19.9.8")
		s.Require().NoError(err)
		s.Equal(models.TierRedundant, report.Source)
		snap := s.store.Read(s.ctx)
		s.Equal("cookie", snap.Durable)
		s.True(snap.Consistent())
	})

	s.Run("empty durable is refilled from session", func() {
		s.SetupTest()
		_, _ = s.store.Write(s.ctx, s.ident("session"), models.TierSession)

		report, err := s.store.Reconcile(s.ctx, "19.9.8")
		s.Require().NoError(err)
		s.Equal(models.TierSession, report.Source)
		s.Equal("session", s.store.Read(s.ctx).Durable)
	})

	s.Run("consistent tiers are left alone", func() {
		s.SetupTest()
		_, _ = s.store.Write(s.ctx, s.ident("same"))

		report, err := s.store.Reconcile(s.ctx, "19.9.8")
		s.Require().NoError(err)
		s.False(report.Changed())
	})

	s.Run("app upgrade refreshes the durable version", func() {
		s.SetupTest()
		_, _ = s.store.Write(s.ctx, s.ident("same"))

		report, err := s.store.Reconcile(s.ctx, "20.0.0")
		s.Require().NoError(err)
		s.True(report.VersionSet)
		s.Empty(report.Repaired)
		s.Equal("20.0.0", mustGet(s, s.durable, "OS_DEVICE_ID_version"))

		ident, ok := s.store.Identity(s.ctx, models.TierDurable)
		s.Require().True(ok)
		s.Equal(s.ident("same"), ident, "creation metadata survives the upgrade")
	})

	s.Run("identity written before the creation key keeps its version", func() {
		s.SetupTest()
		s.Require().NoError(s.durable.Set(s.ctx, "OS_DEVICE_ID", "legacy"))
		s.Require().NoError(s.durable.Set(s.ctx, "OS_DEVICE_ID_version", "18.0.0"))

		_, err := s.store.Reconcile(s.ctx, "20.0.0")
		s.Require().NoError(err)
		s.Equal("20.0.0", mustGet(s, s.durable, "OS_DEVICE_ID_version"))

		ident, ok := s.store.Identity(s.ctx, models.TierDurable)
		s.Require().True(ok)
		s.Equal("18.0.0", ident.AppVersionAtCreation)
	})

	s.Run("nothing stored", func() {
		s.SetupTest()
		report, err := s.store.Reconcile(s.ctx, "19.9.8")
		s.Require().NoError(err)
		s.Empty(report.Adopted)
		s.False(report.Changed())
	})
}

func (s *StoreSuite) TestClear() {
	_, _ = s.store.Write(s.ctx, s.ident("abc"))
	s.Require().NoError(s.store.Clear(s.ctx, models.TierDurable))

	_, ok := s.store.Identity(s.ctx, models.TierDurable)
	s.False(ok)
	s.Equal("abc", s.store.Read(s.ctx).Session)
}

func (s *StoreSuite) TestCustomKey() {
	st := store.New(s.durable, nil, nil, store.WithKey("DEV"))
	_, err := st.Write(s.ctx, s.ident("abc"))
	s.Require().NoError(err)
	s.Equal("abc", mustGet(s, s.durable, "DEV"))
}

func mustGet(s *StoreSuite, t *memtier.Tier, key string) string {
	v, err := t.Get(s.ctx, key)
	s.Require().NoError(err)
	return v
}
