package service

import (
	"testing"

	"chakula-delivery/internal/dispatch/model"
	ordermodel "chakula-delivery/internal/order/model"
)

func TestOrderStatusFor(t *testing.T) {
	tests := []struct {
		dispatch model.DispatchStatus
		order    ordermodel.OrderStatus
		mapped   bool
	}{
		{model.DispatchAssigned, "", false},
		{model.DispatchAccepted, "", false},
		{model.DispatchRejected, "", false},
		{model.DispatchEnRoutePickup, "", false},
		{model.DispatchArrivedPickup, "", false},
		{model.DispatchPickedUp, ordermodel.OrderPickedUp, true},
		{model.DispatchEnRouteDelivery, ordermodel.OrderInTransit, true},
		{model.DispatchArrivedDelivery, ordermodel.OrderInTransit, true},
		{model.DispatchDelivered, ordermodel.OrderDelivered, true},
		{model.DispatchFailed, ordermodel.OrderFailed, true},
		{model.DispatchCancelled, "", false},
	}
	for _, tt := range tests {
		got, ok := OrderStatusFor(tt.dispatch)
		if ok != tt.mapped || got != tt.order {
			t.Errorf("OrderStatusFor(%s) = (%q, %v), want (%q, %v)",
				tt.dispatch, got, ok, tt.order, tt.mapped)
		}
	}
}
