package gateway

import (
	"context"
	"strings"

	"chakula-delivery/internal/common/errs"
	commonmodel "chakula-delivery/internal/common/model"
	ordermodel "chakula-delivery/internal/order/model"
)

// OrderGetter resolves an order so room access can be checked.
type OrderGetter interface {
	Get(ctx context.Context, orderID string) (*ordermodel.Order, error)
}

// canWatchOrder gates order rooms: the order's customer, vendor or
// assigned driver, plus dispatchers and admins.
func canWatchOrder(actor commonmodel.Actor, order *ordermodel.Order) bool {
	if actor.CanModerate() || actor.CanDispatch() {
		return true
	}
	switch {
	case actor.ID == order.CustomerID:
		return true
	case actor.ID == order.VendorID:
		return true
	case order.DriverID != nil && actor.ID == *order.DriverID && actor.CanDrive():
		return true
	}
	return false
}

// Authorize checks whether the actor may join the named room.
func (g *Gateway) Authorize(ctx context.Context, actor commonmodel.Actor, room string) error {
	switch {
	case room == RoomDrivers:
		if !actor.CanDrive() && !actor.CanModerate() && !actor.CanDispatch() {
			return errs.Permission("drivers room is for drivers and dispatch staff")
		}
	case room == RoomDispatchers:
		if !actor.CanDispatch() && !actor.CanModerate() {
			return errs.Permission("dispatchers room is for dispatch staff")
		}
	case strings.HasPrefix(room, "user_"):
		if actor.ID != strings.TrimPrefix(room, "user_") && !actor.CanModerate() {
			return errs.Permission("user topics are private")
		}
	case strings.HasPrefix(room, "order_"):
		orderID := strings.TrimPrefix(room, "order_")
		order, err := g.orders.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if !canWatchOrder(actor, order) {
			return errs.Permission("not a participant of this order")
		}
	default:
		return errs.Validation("room", "unknown room "+room)
	}
	return nil
}
