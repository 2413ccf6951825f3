package components

import (
	"log/slog"

	"academy-booking/internal/infra/db"
	"academy-booking/internal/infra/gateway"
	"academy-booking/internal/infra/readstore"
	"academy-booking/internal/infra/uow"
	"academy-booking/internal/pkg/config"
	"academy-booking/internal/usecase/queries"
	"academy-booking/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	baseOption,
	readstoreModule,
	repositoryModule,
	gatewayModule,
)

var baseOption = fx.Provide(
	NewDBTX,
	NewTxBeginner,
)

var readstoreModule = fx.Module("persistence/readstore",
	fx.Provide(
		// Catalog (batches, participants)
		fx.Annotate(
			readstore.NewCatalogReadStore,
			fx.As(new(shared.Catalog)),
		),
		// Center staff
		fx.Annotate(
			readstore.NewCenterAccessReadStore,
			fx.As(new(shared.CenterAuthorizer)),
		),
		// Booking views
		fx.Annotate(
			readstore.NewBookingReadStore,
			fx.As(new(queries.BookingReadStore)),
		),
	),
)

// Write-side repositories are built per transaction by the unit of work.
var repositoryModule = fx.Module("persistence/repository",
	fx.Provide(
		uow.NewPostgresUoW,
	),
)

var gatewayModule = fx.Module("persistence/gateway",
	fx.Provide(
		fx.Annotate(
			NewPaymentGateway,
			fx.As(new(shared.PaymentGateway)),
		),
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}

func NewTxBeginner(pool *pgxpool.Pool) uow.TxBeginner {
	return pool
}

func NewPaymentGateway(cfg config.Config, logger *slog.Logger) *gateway.Client {
	return gateway.NewClient(cfg.Payment, logger)
}
