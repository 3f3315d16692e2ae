package dispatch_service

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"chakula-delivery/internal/common/config"
	"chakula-delivery/internal/common/events"
	"chakula-delivery/internal/common/mq"
	"chakula-delivery/internal/common/rmq"
	"chakula-delivery/internal/dispatch/handler"
	dispatchrmq "chakula-delivery/internal/dispatch/rmq"
	"chakula-delivery/internal/dispatch/service"
)

// Run wires the dispatch HTTP surface and bridges dispatch events onto
// the dispatch topic exchange.
func Run(cfg *config.Config, svc *service.Service, rabbit *mq.RabbitMQ, bus *events.Bus) {
	client := dispatchrmq.NewClient(rabbit, rmq.DispatchExchange)
	bus.Subscribe(func(e events.Event) {
		dsc, ok := e.(events.DispatchStatusChanged)
		if !ok {
			return
		}
		_ = client.PublishDispatchStatus(context.Background(), rmq.DispatchStatusMessage{
			OrderID:    dsc.Order,
			DispatchID: dsc.DispatchID,
			OldStatus:  dsc.OldStatus,
			NewStatus:  dsc.NewStatus,
			DriverID:   dsc.DriverID,
			Timestamp:  dsc.At,
		})
	})

	mux := http.NewServeMux()
	handler.SetupRoutes(mux, handler.NewDispatchHandler(svc))

	addr := fmt.Sprintf(":%d", cfg.Services.DispatchServicePort)
	log.Printf("Dispatch service listening on %s", addr)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Fatalf("dispatch service: %v", err)
		}
	}()
}
