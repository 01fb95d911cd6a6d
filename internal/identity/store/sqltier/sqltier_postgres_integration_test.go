//go:build integration

package sqltier_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"attendance/internal/identity/store/sqltier"
	"attendance/pkg/platform/sentinel"
	"attendance/pkg/testutil/containers"
)

type PostgresTierSuite struct {
	suite.Suite
	pg   *containers.PostgresContainer
	tier *sqltier.Tier
}

func TestPostgresTierSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresTierSuite))
}

func (s *PostgresTierSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.tier = sqltier.New(s.pg.DB)
	s.Require().NoError(s.tier.EnsureSchema(context.Background()))
}

func (s *PostgresTierSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background(), "device_identity_kv"))
}

func (s *PostgresTierSuite) TestRoundTrip() {
	ctx := context.Background()
	_, err := s.tier.Get(ctx, "OS_DEVICE_ID")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.tier.Set(ctx, "OS_DEVICE_ID", "a"))
	s.Require().NoError(s.tier.Set(ctx, "OS_DEVICE_ID", "b"))
	v, err := s.tier.Get(ctx, "OS_DEVICE_ID")
	s.Require().NoError(err)
	s.Equal("b", v)

	s.Require().NoError(s.tier.Delete(ctx, "OS_DEVICE_ID"))
	_, err = s.tier.Get(ctx, "OS_DEVICE_ID")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
