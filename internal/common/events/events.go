package events

import (
	"time"

	"chakula-delivery/internal/common/model"
)

type Kind string

const (
	KindOrderStatusChanged    Kind = "ORDER_STATUS_CHANGED"
	KindDispatchStatusChanged Kind = "DISPATCH_STATUS_CHANGED"
	KindLocationUpdated       Kind = "LOCATION_UPDATED"
	KindGeofenceEntered       Kind = "GEOFENCE_ENTERED"
	KindPaymentStatusChanged  Kind = "PAYMENT_STATUS_CHANGED"
)

// Event is a typed domain event emitted by a state-changing operation
// after its state change has been committed. One payload type per kind;
// consumers switch on the concrete type.
type Event interface {
	EventKind() Kind
	OrderID() string
}

type OrderStatusChanged struct {
	Order      string
	OrderNum   string
	OldStatus  string
	NewStatus  string
	CustomerID string
	VendorID   string
	DriverID   string
	Actor      model.Actor
	Notes      string
	At         time.Time
}

func (e OrderStatusChanged) EventKind() Kind { return KindOrderStatusChanged }
func (e OrderStatusChanged) OrderID() string { return e.Order }

type DispatchStatusChanged struct {
	Order      string
	DispatchID string
	OldStatus  string
	NewStatus  string
	DriverID   string
	Actor      model.Actor
	At         time.Time
}

func (e DispatchStatusChanged) EventKind() Kind { return KindDispatchStatusChanged }
func (e DispatchStatusChanged) OrderID() string { return e.Order }

type LocationUpdated struct {
	Order                string
	DispatchID           string
	DriverID             string
	Latitude             float64
	Longitude            float64
	SpeedKmh             *float64
	HeadingDegrees       *float64
	DistanceToPickupKm   *float64
	DistanceToDeliveryKm *float64
	At                   time.Time
}

func (e LocationUpdated) EventKind() Kind { return KindLocationUpdated }
func (e LocationUpdated) OrderID() string { return e.Order }

type PaymentStatusChanged struct {
	Order      string
	OrderNum   string
	OldStatus  string
	NewStatus  string
	CustomerID string
	VendorID   string
	At         time.Time
}

func (e PaymentStatusChanged) EventKind() Kind { return KindPaymentStatusChanged }
func (e PaymentStatusChanged) OrderID() string { return e.Order }

type GeofenceEntered struct {
	Order        string
	DispatchID   string
	DriverID     string
	GeofenceKind string
	At           time.Time
}

func (e GeofenceEntered) EventKind() Kind { return KindGeofenceEntered }
func (e GeofenceEntered) OrderID() string { return e.Order }
