package commands

import (
	"context"
	"log/slog"

	"academy-booking/internal/domain/user"
	"academy-booking/internal/infra"
	"academy-booking/internal/pkg/errs"
	"academy-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type CapacityCommands interface {
	Reconcile(ctx context.Context, batchID uuid.UUID, actor user.Actor) (*shared.ReconcileResult, error)
}

type capacityCommandsImpl struct {
	uow     shared.UnitOfWork
	catalog shared.Catalog
	logger  *slog.Logger
}

func NewCapacityCommands(uow shared.UnitOfWork, catalog shared.Catalog, logger *slog.Logger) CapacityCommands {
	return &capacityCommandsImpl{
		uow:     uow,
		catalog: catalog,
		logger:  logger,
	}
}

func (c *capacityCommandsImpl) Reconcile(ctx context.Context, batchID uuid.UUID, actor user.Actor) (*shared.ReconcileResult, error) {
	if !actor.IsPrivileged() {
		return nil, ErrForbidden
	}
	return reconcileBatch(ctx, c.uow, c.catalog, c.logger, batchID)
}

func reconcileBatch(ctx context.Context, uow shared.UnitOfWork, catalog shared.Catalog, logger *slog.Logger, batchID uuid.UUID) (*shared.ReconcileResult, error) {
	b, err := catalog.GetBatch(ctx, batchID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrBatchNotFound)
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	var result shared.ReconcileResult
	err = uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		r, err := tx.Capacity().Reconcile(ctx, b.ID, b.Capacity)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Drift() != 0 || result.OrphansReleased > 0 {
		logger.WarnContext(ctx, "capacity ledger drift corrected",
			"batch_id", batchID,
			"before", result.Before,
			"after", result.After,
			"orphans_released", result.OrphansReleased)
	}
	return &result, nil
}
