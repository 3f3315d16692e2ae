package order_service

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"chakula-delivery/internal/common/config"
	"chakula-delivery/internal/common/events"
	"chakula-delivery/internal/common/mq"
	"chakula-delivery/internal/common/rmq"
	notificationhandler "chakula-delivery/internal/notification/handler"
	notificationsvc "chakula-delivery/internal/notification/service"
	"chakula-delivery/internal/order/handler"
	orderrmq "chakula-delivery/internal/order/rmq"
	"chakula-delivery/internal/order/service"
)

// Run wires the order HTTP surface and bridges order events onto the
// order topic exchange. Notification routes share the same mux since
// they are user-facing like orders.
func Run(cfg *config.Config, svc *service.Service, notifications *notificationsvc.Service, rabbit *mq.RabbitMQ, bus *events.Bus) {
	client := orderrmq.NewClient(rabbit, rmq.OrderExchange)
	bus.Subscribe(func(e events.Event) {
		osc, ok := e.(events.OrderStatusChanged)
		if !ok {
			return
		}
		_ = client.PublishOrderStatus(context.Background(), rmq.OrderStatusMessage{
			OrderID:     osc.Order,
			OrderNumber: osc.OrderNum,
			OldStatus:   osc.OldStatus,
			NewStatus:   osc.NewStatus,
			CustomerID:  osc.CustomerID,
			VendorID:    osc.VendorID,
			DriverID:    osc.DriverID,
			Notes:       osc.Notes,
			Timestamp:   osc.At,
		})
	})

	mux := http.NewServeMux()
	handler.SetupRoutes(mux, handler.NewOrderHandler(svc))
	notificationhandler.SetupRoutes(mux, notificationhandler.NewNotificationHandler(notifications))

	addr := fmt.Sprintf(":%d", cfg.Services.OrderServicePort)
	log.Printf("Order service listening on %s", addr)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Fatalf("order service: %v", err)
		}
	}()
}
