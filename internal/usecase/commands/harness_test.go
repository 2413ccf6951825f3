//go:build unit

package commands_test

import (
	"context"
	"io"
	"log/slog"
	"time"

	"academy-booking/internal/domain/batch"
	"academy-booking/internal/domain/booking"
	"academy-booking/internal/domain/user"
	"academy-booking/internal/infra/lock"
	"academy-booking/internal/pkg/clock"
	"academy-booking/internal/pkg/config"
	"academy-booking/internal/usecase/commands"
	"academy-booking/tests/common/builder"
	"academy-booking/tests/common/fake"
	"academy-booking/tests/common/memstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

var startTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// commandSuite wires the real commands over the in-memory store.
type commandSuite struct {
	suite.Suite
	ctx      context.Context
	cfg      config.Config
	store    *memstore.Store
	catalog  *fake.Catalog
	gateway  *fake.Gateway
	clock    *clock.MockClock
	bookings commands.BookingCommands
	payments commands.PaymentCommands
	capacity commands.CapacityCommands
	sweeper  commands.Sweeper

	batch  *batch.Batch
	parent user.Actor
	staff  user.Actor
	admin  user.Actor
}

func (s *commandSuite) SetupTest() {
	s.ctx = context.Background()
	s.cfg = config.NewTestConfig()
	s.store = memstore.New()
	s.catalog = fake.NewCatalog()
	s.gateway = fake.NewGateway()
	s.clock = clock.NewMockClock(startTime)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	locker := lock.NewLocalLocker(time.Second)

	s.bookings = commands.NewBookingCommands(s.store, locker, s.catalog, s.catalog, s.cfg, s.clock, logger)
	s.payments = commands.NewPaymentCommands(s.store, locker, s.gateway, s.catalog, s.cfg, s.clock, logger)
	s.capacity = commands.NewCapacityCommands(s.store, s.catalog, logger)
	s.sweeper = commands.NewSweeper(s.store, locker, s.catalog, s.cfg, s.clock, logger)

	s.batch = builder.NewBatchBuilder().WithCapacity(3).Build()
	s.catalog.AddBatch(s.batch)

	s.parent = user.NewActor(uuid.New(), user.RoleUser)
	s.staff = user.NewActor(uuid.New(), user.RoleAcademy)
	s.admin = user.NewActor(uuid.New(), user.RoleAdmin)
	s.catalog.GrantCenter(s.staff.UserID, s.batch.CenterID)
}

// child registers an eligible participant owned by the parent.
func (s *commandSuite) child() uuid.UUID {
	p := builder.NewParticipantBuilder().OwnedBy(s.parent.UserID).Build()
	s.catalog.AddParticipants(p)
	return p.ID
}

func (s *commandSuite) reserve(participants ...uuid.UUID) *booking.Booking {
	if len(participants) == 0 {
		participants = []uuid.UUID{s.child()}
	}
	b, err := s.bookings.Reserve(s.ctx, commands.ReserveInput{
		Actor:          s.parent,
		BatchID:        s.batch.ID,
		ParticipantIDs: participants,
	})
	s.Require().NoError(err)
	return b
}

// pendingPayment reserves and opens a gateway order, returning the order id.
func (s *commandSuite) pendingPayment() (*booking.Booking, string) {
	b := s.reserve()
	res, err := s.payments.CreateOrder(s.ctx, b.ID(), s.parent)
	s.Require().NoError(err)
	return res.Booking, res.Order.ID
}

func (s *commandSuite) verify(orderID, paymentID string) (*commands.VerifyPaymentResult, error) {
	return s.payments.VerifyPayment(s.ctx, commands.VerifyPaymentInput{
		OrderID:   orderID,
		PaymentID: paymentID,
		Signature: s.gateway.ComputeSignature(orderID, paymentID),
	})
}

func (s *commandSuite) current(id uuid.UUID) *booking.Booking {
	b := s.store.Booking(id)
	s.Require().NotNil(b)
	return b
}
