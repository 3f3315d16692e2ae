package gateway_service

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"chakula-delivery/internal/common/config"
	"chakula-delivery/internal/common/events"
	"chakula-delivery/internal/common/mq"
	"chakula-delivery/internal/common/rmq"
	"chakula-delivery/internal/gateway"
	gatewayrmq "chakula-delivery/internal/gateway/rmq"
)

// Run serves the websocket endpoint and relays domain events into the
// hub rooms. The in-process bus always feeds the hub; the RabbitMQ
// consumers are attached only when GATEWAY_RELAY_FROM_MQ is set, for
// deployments where the other services run as separate processes.
// Attaching both in a single binary would deliver every frame twice.
func Run(cfg *config.Config, gw *gateway.Gateway, rabbit *mq.RabbitMQ, bus *events.Bus) {
	gw.BindBus(bus)

	if cfg.Gateway.RelayFromMQ {
		attachConsumers(gw, rabbit)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", gw.WSHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Now().UTC().Format(time.RFC3339))
	})

	addr := fmt.Sprintf(":%d", cfg.Gateway.Port)
	log.Printf("Broadcast gateway listening on %s", addr)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Fatalf("gateway: %v", err)
		}
	}()
}

func attachConsumers(gw *gateway.Gateway, rabbit *mq.RabbitMQ) {
	client := gatewayrmq.NewClient(rabbit)
	if err := client.ConsumeOrderStatus("gateway_order_status", func(msg rmq.OrderStatusMessage) {
		gw.Relay(events.OrderStatusChanged{
			Order:      msg.OrderID,
			OrderNum:   msg.OrderNumber,
			OldStatus:  msg.OldStatus,
			NewStatus:  msg.NewStatus,
			CustomerID: msg.CustomerID,
			VendorID:   msg.VendorID,
			DriverID:   msg.DriverID,
			Notes:      msg.Notes,
			At:         msg.Timestamp,
		})
	}); err != nil {
		log.Printf("gateway: order status consumer unavailable: %v", err)
	}
	if err := client.ConsumeDispatchStatus("gateway_dispatch_status", func(msg rmq.DispatchStatusMessage) {
		gw.Relay(events.DispatchStatusChanged{
			Order:      msg.OrderID,
			DispatchID: msg.DispatchID,
			OldStatus:  msg.OldStatus,
			NewStatus:  msg.NewStatus,
			DriverID:   msg.DriverID,
			At:         msg.Timestamp,
		})
	}); err != nil {
		log.Printf("gateway: dispatch status consumer unavailable: %v", err)
	}
	if err := client.ConsumeLocationUpdates("gateway_location", func(msg rmq.LocationUpdateMessage) {
		gw.Relay(events.LocationUpdated{
			Order:                msg.OrderID,
			DispatchID:           msg.DispatchID,
			DriverID:             msg.DriverID,
			Latitude:             msg.Location.Lat,
			Longitude:            msg.Location.Lng,
			SpeedKmh:             msg.SpeedKmh,
			HeadingDegrees:       msg.HeadingDegrees,
			DistanceToPickupKm:   msg.DistanceToPickupKm,
			DistanceToDeliveryKm: msg.DistanceToDeliveryKm,
			At:                   msg.Timestamp,
		})
	}); err != nil {
		log.Printf("gateway: location consumer unavailable: %v", err)
	}
}
