package model

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderPreparing OrderStatus = "PREPARING"
	OrderReady     OrderStatus = "READY"
	OrderPickedUp  OrderStatus = "PICKED_UP"
	OrderInTransit OrderStatus = "IN_TRANSIT"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderFailed    OrderStatus = "FAILED"
)

// orderTransitions is the canonical forward graph. Cancellation is legal
// from every non-terminal status up to READY; once the driver holds the
// order only DELIVERED and FAILED remain.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderPreparing, OrderCancelled},
	OrderPreparing: {OrderReady, OrderCancelled},
	OrderReady:     {OrderPickedUp, OrderCancelled},
	OrderPickedUp:  {OrderInTransit, OrderDelivered, OrderFailed},
	OrderInTransit: {OrderDelivered, OrderFailed},
	OrderDelivered: {},
	OrderCancelled: {},
	OrderFailed:    {},
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled || s == OrderFailed
}

// CanTransitionTo reports whether t is a legal successor of s.
func (s OrderStatus) CanTransitionTo(t OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == t {
			return true
		}
	}
	return false
}

// LegalSuccessors returns the statuses reachable from s, for error reporting.
func (s OrderStatus) LegalSuccessors() []string {
	next := orderTransitions[s]
	out := make([]string, len(next))
	for i, n := range next {
		out[i] = string(n)
	}
	return out
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
	PaymentFailed   PaymentStatus = "FAILED"
)
