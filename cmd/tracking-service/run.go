package tracking_service

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"chakula-delivery/internal/common/config"
	"chakula-delivery/internal/common/events"
	"chakula-delivery/internal/common/mq"
	"chakula-delivery/internal/common/rmq"
	"chakula-delivery/internal/tracking/handler"
	trackingrmq "chakula-delivery/internal/tracking/rmq"
	"chakula-delivery/internal/tracking/service"
)

// Run wires the tracking HTTP surface and fans accepted location pings
// out on the location exchange.
func Run(cfg *config.Config, svc *service.Service, rabbit *mq.RabbitMQ, bus *events.Bus) {
	client := trackingrmq.NewClient(rabbit, rmq.LocationExchange)
	bus.Subscribe(func(e events.Event) {
		loc, ok := e.(events.LocationUpdated)
		if !ok {
			return
		}
		_ = client.PublishLocation(context.Background(), rmq.LocationUpdateMessage{
			OrderID:    loc.Order,
			DispatchID: loc.DispatchID,
			DriverID:   loc.DriverID,
			Location: rmq.LatLng{
				Lat: loc.Latitude,
				Lng: loc.Longitude,
			},
			SpeedKmh:             loc.SpeedKmh,
			HeadingDegrees:       loc.HeadingDegrees,
			DistanceToPickupKm:   loc.DistanceToPickupKm,
			DistanceToDeliveryKm: loc.DistanceToDeliveryKm,
			Timestamp:            loc.At,
		})
	})

	mux := http.NewServeMux()
	handler.SetupRoutes(mux, handler.NewTrackingHandler(svc))

	addr := fmt.Sprintf(":%d", cfg.Services.TrackingServicePort)
	log.Printf("Tracking service listening on %s", addr)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Fatalf("tracking service: %v", err)
		}
	}()
}
