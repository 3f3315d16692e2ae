package rmq

import "time"

// Wire messages exchanged between services over RabbitMQ.
// Status events go to the "order_topic" / "dispatch_topic" topic
// exchanges; location updates go to the "location_fanout" exchange.

const (
	OrderExchange    = "order_topic"
	DispatchExchange = "dispatch_topic"
	LocationExchange = "location_fanout"
)

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type OrderStatusMessage struct {
	OrderID       string    `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	OldStatus     string    `json:"old_status"`
	NewStatus     string    `json:"new_status"`
	CustomerID    string    `json:"customer_id"`
	VendorID      string    `json:"vendor_id"`
	DriverID      string    `json:"driver_id,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`
}

type DispatchStatusMessage struct {
	OrderID       string    `json:"order_id"`
	DispatchID    string    `json:"dispatch_id"`
	OldStatus     string    `json:"old_status"`
	NewStatus     string    `json:"new_status"`
	DriverID      string    `json:"driver_id"`
	Location      *LatLng   `json:"location,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`
}

type LocationUpdateMessage struct {
	OrderID              string    `json:"order_id"`
	DispatchID           string    `json:"dispatch_id"`
	DriverID             string    `json:"driver_id"`
	Location             LatLng    `json:"location"`
	SpeedKmh             *float64  `json:"speed_kmh,omitempty"`
	HeadingDegrees       *float64  `json:"heading_degrees,omitempty"`
	DistanceToPickupKm   *float64  `json:"distance_to_pickup_km,omitempty"`
	DistanceToDeliveryKm *float64  `json:"distance_to_delivery_km,omitempty"`
	Timestamp            time.Time `json:"timestamp"`
}
