package queries

import (
	"context"
	"time"

	"academy-booking/internal/domain/user"
	"academy-booking/internal/infra"
	"academy-booking/internal/pkg/errs"
	"academy-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrBookingNotFound = errs.New("booking view not found")
	ErrBatchNotFound   = errs.New("batch view not found")
	ErrAccessDenied    = errs.New("booking access denied")
	ErrCenterRequired  = errs.New("center filter required")
)

// BookingView represents read-optimized booking data
type BookingView struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	BatchID         uuid.UUID
	CenterID        uuid.UUID
	SportID         uuid.UUID
	ParticipantIDs  []uuid.UUID
	Status          string
	PaymentStatus   string
	PaymentAttempts int
	RefundRequested bool
	Amount          int64
	Currency        string
	OrderID         *string
	PaymentID       *string
	Notes           *string
	RejectReason    *string
	CancelReason    *string
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type BookingFilter struct {
	UserID        *uuid.UUID
	CenterID      *uuid.UUID
	BatchID       *uuid.UUID
	Status        *string
	PaymentStatus *string
	From          *time.Time
	To            *time.Time
}

type BookingPage struct {
	Items      []*BookingView
	Pagination Pagination
}

type Availability struct {
	BatchID   uuid.UUID
	Capacity  int
	Committed int
	Free      int
}

type BookingQueries interface {
	Get(ctx context.Context, id uuid.UUID, actor user.Actor) (*BookingView, error)
	List(ctx context.Context, filter BookingFilter, page, limit int, actor user.Actor) (*BookingPage, error)
	Availability(ctx context.Context, batchID uuid.UUID) (*Availability, error)
}

// BookingReadStore never returns soft-deleted rows.
type BookingReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*BookingView, error)
	List(ctx context.Context, filter BookingFilter, limit, offset int) ([]*BookingView, int, error)
}

type bookingQueriesImpl struct {
	readStore  BookingReadStore
	catalog    shared.Catalog
	authorizer shared.CenterAuthorizer
	uow        shared.UnitOfWork
}

func NewBookingQueries(
	readStore BookingReadStore,
	catalog shared.Catalog,
	authorizer shared.CenterAuthorizer,
	uow shared.UnitOfWork,
) BookingQueries {
	return &bookingQueriesImpl{
		readStore:  readStore,
		catalog:    catalog,
		authorizer: authorizer,
		uow:        uow,
	}
}

func (q *bookingQueriesImpl) Get(ctx context.Context, id uuid.UUID, actor user.Actor) (*BookingView, error) {
	view, err := q.readStore.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrBookingNotFound)
		}
		return nil, err
	}

	if view.UserID == actor.UserID || actor.IsPrivileged() {
		return view, nil
	}
	if actor.Role == user.RoleAcademy {
		ok, err := q.authorizer.IsAuthorizedForCenter(ctx, actor, view.CenterID)
		if err != nil {
			return nil, err
		}
		if ok {
			return view, nil
		}
	}
	return nil, ErrAccessDenied
}

func (q *bookingQueriesImpl) List(ctx context.Context, filter BookingFilter, page, limit int, actor user.Actor) (*BookingPage, error) {
	filter, err := q.scopeFilter(ctx, filter, actor)
	if err != nil {
		return nil, err
	}

	p := NewPagination(ValidatePage(page), ValidateLimit(limit), 0)
	items, total, err := q.readStore.List(ctx, filter, p.Limit, p.Offset())
	if err != nil {
		return nil, err
	}

	return &BookingPage{
		Items:      items,
		Pagination: NewPagination(p.Page, p.Limit, total),
	}, nil
}

// scopeFilter narrows a filter to what the actor may see.
func (q *bookingQueriesImpl) scopeFilter(ctx context.Context, filter BookingFilter, actor user.Actor) (BookingFilter, error) {
	switch {
	case actor.IsPrivileged():
		return filter, nil
	case actor.Role == user.RoleAcademy:
		if filter.CenterID == nil {
			return filter, ErrCenterRequired
		}
		ok, err := q.authorizer.IsAuthorizedForCenter(ctx, actor, *filter.CenterID)
		if err != nil {
			return filter, err
		}
		if !ok {
			return filter, ErrAccessDenied
		}
		return filter, nil
	default:
		userID := actor.UserID
		filter.UserID = &userID
		return filter, nil
	}
}

func (q *bookingQueriesImpl) Availability(ctx context.Context, batchID uuid.UUID) (*Availability, error) {
	b, err := q.catalog.GetBatch(ctx, batchID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrBatchNotFound)
		}
		return nil, err
	}

	var free int
	err = q.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		n, err := tx.Capacity().FreeSeats(ctx, b.ID, b.Capacity)
		if err != nil {
			return err
		}
		free = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Availability{
		BatchID:   b.ID,
		Capacity:  b.Capacity,
		Committed: b.Capacity - free,
		Free:      free,
	}, nil
}
