//go:build unit

package repository_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"academy-booking/internal/domain/booking"
	"academy-booking/internal/infra"
	"academy-booking/internal/infra/repository"
	"academy-booking/tests/common/builder"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/suite"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type BookingRepositoryTestSuite struct {
	suite.Suite
	ctx  context.Context
	mock pgxmock.PgxPoolIface
	repo *repository.BookingRepository
}

func (s *BookingRepositoryTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	s.Require().NoError(err)
	s.ctx = context.Background()
	s.mock = mock
	s.repo = repository.NewBookingRepository(mock, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *BookingRepositoryTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.mock.Close()
}

func TestBookingRepositorySuite(t *testing.T) {
	suite.Run(t, new(BookingRepositoryTestSuite))
}

func (s *BookingRepositoryTestSuite) TestCreate() {
	b, err := builder.NewBookingBuilder().WithParticipants(uuid.New(), uuid.New()).BuildNew()
	s.Require().NoError(err)

	s.Run("inserts booking and participants", func() {
		s.mock.ExpectExec(sqlLike("INSERT INTO bookings")).
			WithArgs(b.ID(), b.UserID(), b.BatchID(), b.CenterID(), b.SportID(),
				"requested", "not_initiated", 0, false, int64(150000), "INR",
				pgxmock.AnyArg(), b.CapacityToken(), true, false, b.CreatedAt(), b.UpdatedAt()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		s.mock.ExpectExec(sqlLike("INSERT INTO booking_participants")).
			WithArgs(b.ID(), b.BatchID(), true, b.ParticipantIDs()).
			WillReturnResult(pgxmock.NewResult("INSERT", 2))

		s.Require().NoError(s.repo.Create(s.ctx, b))
	})

	s.Run("participant already enrolled", func() {
		s.mock.ExpectExec(sqlLike("INSERT INTO bookings")).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		s.mock.ExpectExec(sqlLike("INSERT INTO booking_participants")).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "booking_participants_active_uniq"})

		err := s.repo.Create(s.ctx, b)

		s.True(infra.IsKind(err, infra.KindDuplicateKey))
	})
}

func (s *BookingRepositoryTestSuite) TestUpdate() {
	b := builder.NewBookingBuilder().AsPaymentPending("order_0001").MustBuildDomain()

	s.Run("writes state and participant activity", func() {
		s.mock.ExpectExec(sqlLike("UPDATE bookings SET")).
			WithArgs(b.ID(), "payment_pending", "pending", 0, false,
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				true, false, b.UpdatedAt()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		s.mock.ExpectExec(sqlLike("UPDATE booking_participants SET is_active")).
			WithArgs(b.ID(), true).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		s.Require().NoError(s.repo.Update(s.ctx, b))
	})

	s.Run("missing row", func() {
		s.mock.ExpectExec(sqlLike("UPDATE bookings SET")).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := s.repo.Update(s.ctx, b)

		s.True(infra.IsKind(err, infra.KindNotFound))
	})

	s.Run("serialization failure is a conflict", func() {
		s.mock.ExpectExec(sqlLike("UPDATE bookings SET")).
			WillReturnError(&pgconn.PgError{Code: "40001"})

		err := s.repo.Update(s.ctx, b)

		s.True(infra.IsKind(err, infra.KindConflict))
	})
}

func (s *BookingRepositoryTestSuite) TestFindIDByOrderID() {
	id := uuid.New()

	s.mock.ExpectQuery(sqlLike("SELECT id FROM bookings WHERE order_id")).
		WithArgs("order_0001").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))
	got, err := s.repo.FindIDByOrderID(s.ctx, "order_0001")
	s.Require().NoError(err)
	s.Equal(id, got)

	s.mock.ExpectQuery(sqlLike("SELECT id FROM bookings WHERE order_id")).
		WithArgs("order_missing").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	_, err = s.repo.FindIDByOrderID(s.ctx, "order_missing")
	s.True(infra.IsKind(err, infra.KindNotFound))
}

func (s *BookingRepositoryTestSuite) TestActiveParticipants() {
	batchID := uuid.New()
	held := uuid.New()
	ids := []uuid.UUID{held, uuid.New()}

	s.mock.ExpectQuery(sqlLike("SELECT participant_id FROM booking_participants")).
		WithArgs(batchID, ids).
		WillReturnRows(pgxmock.NewRows([]string{"participant_id"}).AddRow(held))

	got, err := s.repo.ActiveParticipants(s.ctx, batchID, ids)

	s.Require().NoError(err)
	s.Equal([]uuid.UUID{held}, got)
}

func (s *BookingRepositoryTestSuite) TestListStale() {
	a, b := uuid.New(), uuid.New()
	cutoff := fixedNow.Add(-30 * time.Minute)

	s.mock.ExpectQuery(sqlLike("SELECT id FROM bookings")).
		WithArgs([]string{"requested", "payment_pending"}, cutoff, 100).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(a).AddRow(b))

	got, err := s.repo.ListStale(s.ctx, []booking.Status{booking.StatusRequested, booking.StatusPaymentPending}, cutoff, 100)

	s.Require().NoError(err)
	s.Equal([]uuid.UUID{a, b}, got)
}
