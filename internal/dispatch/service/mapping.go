package service

import (
	"chakula-delivery/internal/dispatch/model"
	ordermodel "chakula-delivery/internal/order/model"
)

// OrderStatusFor is the pure mapping from a dispatch status to the
// order status it drives. The second return is false for dispatch
// statuses that do not move the order (acceptance and the en-route /
// arrived pickup legs happen while the order stays READY).
//
// CANCELLED deliberately has no mapping: a cancelled dispatch returns
// the order to the assignment pool, it does not cancel the purchase.
func OrderStatusFor(s model.DispatchStatus) (ordermodel.OrderStatus, bool) {
	switch s {
	case model.DispatchPickedUp:
		return ordermodel.OrderPickedUp, true
	case model.DispatchEnRouteDelivery, model.DispatchArrivedDelivery:
		return ordermodel.OrderInTransit, true
	case model.DispatchDelivered:
		return ordermodel.OrderDelivered, true
	case model.DispatchFailed:
		return ordermodel.OrderFailed, true
	}
	return "", false
}
