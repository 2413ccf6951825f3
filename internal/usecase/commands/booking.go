package commands

import (
	"context"
	"log/slog"

	"academy-booking/internal/domain/booking"
	"academy-booking/internal/domain/user"
	"academy-booking/internal/pkg/clock"
	"academy-booking/internal/pkg/config"
	"academy-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type ReserveInput struct {
	Actor          user.Actor
	BatchID        uuid.UUID
	ParticipantIDs []uuid.UUID
	Notes          string
}

type DecideInput struct {
	BookingID uuid.UUID
	Actor     user.Actor
	Approve   bool
	Reason    string
}

type BookingCommands interface {
	Reserve(ctx context.Context, in ReserveInput) (*booking.Booking, error)
	Decide(ctx context.Context, in DecideInput) (*booking.Booking, error)
	Cancel(ctx context.Context, bookingID uuid.UUID, actor user.Actor) (*booking.Booking, error)
	Complete(ctx context.Context, bookingID uuid.UUID, actor user.Actor) (*booking.Booking, error)
	SoftDelete(ctx context.Context, bookingID uuid.UUID, actor user.Actor) error
}

type bookingCommandsImpl struct {
	bookingMutator
	catalog shared.Catalog
	cfg     config.BookingConfig
	logger  *slog.Logger
}

func NewBookingCommands(
	uow shared.UnitOfWork,
	locker shared.BookingLocker,
	catalog shared.Catalog,
	authorizer shared.CenterAuthorizer,
	cfg config.Config,
	clock clock.Clock,
	logger *slog.Logger,
) BookingCommands {
	return &bookingCommandsImpl{
		bookingMutator: bookingMutator{
			uow:        uow,
			locker:     locker,
			authorizer: authorizer,
			clock:      clock,
		},
		catalog: catalog,
		cfg:     cfg.Booking,
		logger:  logger,
	}
}
