package model

type DispatchStatus string

const (
	DispatchAssigned        DispatchStatus = "ASSIGNED"
	DispatchAccepted        DispatchStatus = "ACCEPTED"
	DispatchRejected        DispatchStatus = "REJECTED"
	DispatchEnRoutePickup   DispatchStatus = "EN_ROUTE_PICKUP"
	DispatchArrivedPickup   DispatchStatus = "ARRIVED_PICKUP"
	DispatchPickedUp        DispatchStatus = "PICKED_UP"
	DispatchEnRouteDelivery DispatchStatus = "EN_ROUTE_DELIVERY"
	DispatchArrivedDelivery DispatchStatus = "ARRIVED_DELIVERY"
	DispatchDelivered       DispatchStatus = "DELIVERED"
	DispatchFailed          DispatchStatus = "FAILED"
	DispatchCancelled       DispatchStatus = "CANCELLED"
)

// dispatchTransitions is the pickup->delivery pipeline. FAILED and
// CANCELLED are reachable from every non-terminal status.
var dispatchTransitions = map[DispatchStatus][]DispatchStatus{
	DispatchAssigned:        {DispatchAccepted, DispatchRejected, DispatchFailed, DispatchCancelled},
	DispatchAccepted:        {DispatchEnRoutePickup, DispatchFailed, DispatchCancelled},
	DispatchEnRoutePickup:   {DispatchArrivedPickup, DispatchFailed, DispatchCancelled},
	DispatchArrivedPickup:   {DispatchPickedUp, DispatchFailed, DispatchCancelled},
	DispatchPickedUp:        {DispatchEnRouteDelivery, DispatchFailed, DispatchCancelled},
	DispatchEnRouteDelivery: {DispatchArrivedDelivery, DispatchFailed, DispatchCancelled},
	DispatchArrivedDelivery: {DispatchDelivered, DispatchFailed, DispatchCancelled},
	DispatchRejected:        {},
	DispatchDelivered:       {},
	DispatchFailed:          {},
	DispatchCancelled:       {},
}

func (s DispatchStatus) Valid() bool {
	_, ok := dispatchTransitions[s]
	return ok
}

func (s DispatchStatus) Terminal() bool {
	return len(dispatchTransitions[s]) == 0 && s.Valid()
}

// ReleasesOrder reports whether a dispatch ending in this status hands
// the order back to the assignable pool. REJECTED and CANCELLED end the
// dispatch without moving the order, so the driver slot is freed and a
// dispatcher can assign again.
func (s DispatchStatus) ReleasesOrder() bool {
	return s == DispatchRejected || s == DispatchCancelled
}

func (s DispatchStatus) CanTransitionTo(t DispatchStatus) bool {
	for _, next := range dispatchTransitions[s] {
		if next == t {
			return true
		}
	}
	return false
}

func (s DispatchStatus) LegalSuccessors() []string {
	next := dispatchTransitions[s]
	out := make([]string, len(next))
	for i, n := range next {
		out[i] = string(n)
	}
	return out
}
