//go:build unit

package commands_test

import (
	"context"
	"testing"

	"academy-booking/internal/pkg/errs"
	"academy-booking/internal/usecase/commands"
	"academy-booking/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type CapacityCommandsTestSuite struct {
	commandSuite
}

func TestCapacityCommandsSuite(t *testing.T) {
	suite.Run(t, new(CapacityCommandsTestSuite))
}

func (s *CapacityCommandsTestSuite) TestReconcile_RequiresAdmin() {
	_, err := s.capacity.Reconcile(s.ctx, s.batch.ID, s.parent)
	s.True(errs.Is(err, commands.ErrForbidden))

	_, err = s.capacity.Reconcile(s.ctx, s.batch.ID, s.staff)
	s.True(errs.Is(err, commands.ErrForbidden))
}

func (s *CapacityCommandsTestSuite) TestReconcile_UnknownBatch() {
	_, err := s.capacity.Reconcile(s.ctx, uuid.New(), s.admin)
	s.True(errs.Is(err, commands.ErrBatchNotFound))
}

func (s *CapacityCommandsTestSuite) TestReconcile_NoDrift() {
	s.reserve()

	res, err := s.capacity.Reconcile(s.ctx, s.batch.ID, s.admin)

	s.Require().NoError(err)
	s.Equal(0, res.Drift())
	s.Equal(1, res.Before)
	s.Equal(1, res.After)
	s.Equal(s.batch.Capacity, res.Capacity)
}

func (s *CapacityCommandsTestSuite) TestReconcile_CorrectsDrift() {
	s.reserve()
	s.store.SetCommitted(s.batch.ID, 3)

	res, err := s.capacity.Reconcile(s.ctx, s.batch.ID, s.admin)

	s.Require().NoError(err)
	s.Equal(3, res.Before)
	s.Equal(1, res.After)
	s.Equal(-2, res.Drift())
	s.Equal(1, s.store.Committed(s.batch.ID))

	s.Run("freed seats can be booked again", func() {
		s.reserve(s.child(), s.child())
		s.Equal(3, s.store.Committed(s.batch.ID))
	})
}

func (s *CapacityCommandsTestSuite) TestReconcile_ReleasesOrphanedHolds() {
	// A hold whose booking never landed.
	err := s.store.Within(s.ctx, func(ctx context.Context, tx shared.Tx) error {
		_, err := tx.Capacity().TryReserve(ctx, s.batch.ID, s.batch.Capacity, 2)
		return err
	})
	s.Require().NoError(err)
	s.Equal(2, s.store.Committed(s.batch.ID))

	res, err := s.capacity.Reconcile(s.ctx, s.batch.ID, s.admin)

	s.Require().NoError(err)
	s.Equal(1, res.OrphansReleased)
	s.Equal(0, res.After)
	s.Equal(0, s.store.Committed(s.batch.ID))
}
