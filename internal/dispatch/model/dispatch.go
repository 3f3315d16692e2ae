package model

import (
	"time"

	commonmodel "chakula-delivery/internal/common/model"
)

// Dispatch is the driver-assignment and delivery-execution record,
// bound 1:1 to an order.
type Dispatch struct {
	ID           string  `json:"id" db:"id"`
	OrderID      string  `json:"order_id" db:"order_id"`
	DriverID     string  `json:"driver_id" db:"driver_id"`
	DispatcherID string  `json:"dispatcher_id" db:"dispatcher_id"`
	RouteID      *string `json:"route_id,omitempty" db:"route_id"`

	Status DispatchStatus `json:"status" db:"status"`

	CurrentLat        *float64   `json:"current_lat,omitempty" db:"current_lat"`
	CurrentLng        *float64   `json:"current_lng,omitempty" db:"current_lng"`
	LocationUpdatedAt *time.Time `json:"location_updated_at,omitempty" db:"location_updated_at"`

	AssignedAt        time.Time  `json:"assigned_at" db:"assigned_at"`
	AcceptedAt        *time.Time `json:"accepted_at,omitempty" db:"accepted_at"`
	EnRoutePickupAt   *time.Time `json:"en_route_pickup_at,omitempty" db:"en_route_pickup_at"`
	ArrivedPickupAt   *time.Time `json:"arrived_pickup_at,omitempty" db:"arrived_pickup_at"`
	PickedUpAt        *time.Time `json:"picked_up_at,omitempty" db:"picked_up_at"`
	EnRouteDeliveryAt *time.Time `json:"en_route_delivery_at,omitempty" db:"en_route_delivery_at"`
	ArrivedDeliveryAt *time.Time `json:"arrived_delivery_at,omitempty" db:"arrived_delivery_at"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`

	DistanceTraveledKm float64 `json:"distance_traveled_km" db:"distance_traveled_km"`
	TimeToPickupSec    *int64  `json:"time_to_pickup_sec,omitempty" db:"time_to_pickup_sec"`
	TimeToDeliverySec  *int64  `json:"time_to_delivery_sec,omitempty" db:"time_to_delivery_sec"`

	Rating   *int    `json:"rating,omitempty" db:"rating"`
	Feedback *string `json:"feedback,omitempty" db:"feedback"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// StatusHistory is the append-only dispatch transition log; every status
// change writes exactly one row with the acting principal and, when the
// actor is a driver in the field, their location.
type StatusHistory struct {
	ID         string           `json:"id" db:"id"`
	DispatchID string           `json:"dispatch_id" db:"dispatch_id"`
	Status     DispatchStatus   `json:"status" db:"status"`
	ActorID    string           `json:"actor_id" db:"actor_id"`
	ActorRole  commonmodel.Role `json:"actor_role" db:"actor_role"`
	Lat        *float64         `json:"lat,omitempty" db:"lat"`
	Lng        *float64         `json:"lng,omitempty" db:"lng"`
	Notes      string           `json:"notes,omitempty" db:"notes"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
}

// Route optionally groups several dispatches for one driver run.
type Route struct {
	ID        string    `json:"id" db:"id"`
	DriverID  string    `json:"driver_id" db:"driver_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
