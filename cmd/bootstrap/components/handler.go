package components

import (
	"academy-booking/internal/handler"
	"academy-booking/internal/handler/api"
	"academy-booking/internal/handler/middleware"
	"academy-booking/internal/pkg/config"
	"academy-booking/internal/usecase/commands"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewBookingHandler,
		api.NewBatchHandler,
		NewPaymentHandler,
		NewHandlers,
		middleware.NewAuthMiddleware,
	),
	fx.Invoke(handler.NewRouter),
)

func NewPaymentHandler(cmds commands.PaymentCommands, cfg config.Config) *api.PaymentHandler {
	return api.NewPaymentHandler(cmds, cfg.Payment.KeyID)
}

func NewHandlers(b *api.BookingHandler, p *api.PaymentHandler, batch *api.BatchHandler) handler.Handlers {
	return handler.Handlers{Booking: b, Payment: p, Batch: batch}
}
