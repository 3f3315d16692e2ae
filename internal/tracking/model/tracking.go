package model

import "time"

// Session is the live location-streaming context for one in-flight
// dispatch. At most one session is active per order at any time.
type Session struct {
	ID         string `json:"id" db:"id"`
	OrderID    string `json:"order_id" db:"order_id"`
	DispatchID string `json:"dispatch_id" db:"dispatch_id"`
	DriverID   string `json:"driver_id" db:"driver_id"`

	Active bool `json:"active" db:"active"`

	CurrentLat *float64   `json:"current_lat,omitempty" db:"current_lat"`
	CurrentLng *float64   `json:"current_lng,omitempty" db:"current_lng"`
	LastPingAt *time.Time `json:"last_ping_at,omitempty" db:"last_ping_at"`

	DistanceToPickupKm   *float64 `json:"distance_to_pickup_km,omitempty" db:"distance_to_pickup_km"`
	DistanceToDeliveryKm *float64 `json:"distance_to_delivery_km,omitempty" db:"distance_to_delivery_km"`
	DistanceTraveledKm   float64  `json:"distance_traveled_km" db:"distance_traveled_km"`

	EstimatedPickupAt   *time.Time `json:"estimated_pickup_at,omitempty" db:"estimated_pickup_at"`
	EstimatedDeliveryAt *time.Time `json:"estimated_delivery_at,omitempty" db:"estimated_delivery_at"`

	StartedAt time.Time  `json:"started_at" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type EventType string

const (
	EventLocationUpdate EventType = "location_update"
	EventStatusChange   EventType = "status_change"
	EventGeofenceEnter  EventType = "geofence_enter"
	EventGeofenceExit   EventType = "geofence_exit"
	EventSpeedAlert     EventType = "speed_alert"
	EventEmergencyAlert EventType = "emergency_alert"
)

// TrackingEvent is one append-only entry in a session's event log.
type TrackingEvent struct {
	ID        string    `json:"id" db:"id"`
	SessionID string    `json:"session_id" db:"session_id"`
	Type      EventType `json:"type" db:"type"`
	Lat       *float64  `json:"lat,omitempty" db:"lat"`
	Lng       *float64  `json:"lng,omitempty" db:"lng"`
	SpeedKmh  *float64  `json:"speed_kmh,omitempty" db:"speed_kmh"`
	Notes     string    `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type GeofenceKind string

const (
	GeofencePickup     GeofenceKind = "pickup"
	GeofenceDelivery   GeofenceKind = "delivery"
	GeofenceVendor     GeofenceKind = "vendor"
	GeofenceWarehouse  GeofenceKind = "warehouse"
	GeofenceRestricted GeofenceKind = "restricted"
)

// Geofence is a named circular trigger zone. Pickup and delivery fences
// auto-detect arrival; the other kinds only produce tracking events.
type Geofence struct {
	ID        string       `json:"id" db:"id"`
	OrderID   *string      `json:"order_id,omitempty" db:"order_id"`
	Name      string       `json:"name" db:"name"`
	Kind      GeofenceKind `json:"kind" db:"kind"`
	CenterLat float64      `json:"center_lat" db:"center_lat"`
	CenterLng float64      `json:"center_lng" db:"center_lng"`
	RadiusM   float64      `json:"radius_m" db:"radius_m"`
	Active    bool         `json:"active" db:"active"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}
