package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"chakula-delivery/internal/common/errs"
	"chakula-delivery/internal/common/events"
	commonmodel "chakula-delivery/internal/common/model"
	ordermodel "chakula-delivery/internal/order/model"
)

func newTestClient(actor commonmodel.Actor) *Client {
	return &Client{
		ID:    actor.ID + "-conn",
		Actor: actor,
		Send:  make(chan []byte, 16),
	}
}

func drain(c *Client) []OutboundMessage {
	var out []OutboundMessage
	for {
		select {
		case raw := <-c.Send:
			var m OutboundMessage
			if err := json.Unmarshal(raw, &m); err == nil {
				out = append(out, m)
			}
		default:
			return out
		}
	}
}

type stubOrders struct {
	order *ordermodel.Order
}

func (s *stubOrders) Get(_ context.Context, orderID string) (*ordermodel.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, errs.NotFound("order", orderID)
	}
	return s.order, nil
}

func testOrder() *ordermodel.Order {
	driverID := "drv-1"
	return &ordermodel.Order{
		ID:         "ord-1",
		CustomerID: "cust-1",
		VendorID:   "vend-1",
		DriverID:   &driverID,
		Status:     ordermodel.OrderReady,
	}
}

func TestHub_SingleMembershipPerRoom(t *testing.T) {
	hub := NewHub()
	c := newTestClient(commonmodel.Actor{ID: "cust-1", Role: commonmodel.RoleCustomer})

	if !hub.Join("order_ord-1", c) {
		t.Fatal("first join refused")
	}
	if hub.Join("order_ord-1", c) {
		t.Error("second join of same (connection, room) pair accepted")
	}
	if got := hub.Members("order_ord-1"); got != 1 {
		t.Errorf("room members = %d, want 1", got)
	}
}

func TestHub_DisconnectDropsAllMemberships(t *testing.T) {
	hub := NewHub()
	c := newTestClient(commonmodel.Actor{ID: "disp-1", Role: commonmodel.RoleDispatcher})
	hub.Join("order_ord-1", c)
	hub.Join(RoomDispatchers, c)

	hub.Disconnect(c)

	if hub.Members("order_ord-1") != 0 || hub.Members(RoomDispatchers) != 0 {
		t.Error("disconnect left stale room memberships")
	}
}

func TestHub_PublishReachesOnlyRoomMembers(t *testing.T) {
	hub := NewHub()
	in := newTestClient(commonmodel.Actor{ID: "cust-1", Role: commonmodel.RoleCustomer})
	out := newTestClient(commonmodel.Actor{ID: "cust-2", Role: commonmodel.RoleCustomer})
	hub.Join("order_ord-1", in)
	hub.Join("order_ord-2", out)

	if delivered := hub.Publish("order_ord-1", []byte(`{}`)); delivered != 1 {
		t.Errorf("delivered = %d, want 1", delivered)
	}
	if len(out.Send) != 0 {
		t.Error("message leaked into another room")
	}
}

func TestAuthorize_OrderRoom(t *testing.T) {
	g := NewGateway(&stubOrders{order: testOrder()})
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   commonmodel.Actor
		allowed bool
	}{
		{"customer", commonmodel.Actor{ID: "cust-1", Role: commonmodel.RoleCustomer}, true},
		{"vendor", commonmodel.Actor{ID: "vend-1", Role: commonmodel.RoleVendor}, true},
		{"assigned driver", commonmodel.Actor{ID: "drv-1", Role: commonmodel.RoleDriver}, true},
		{"dispatcher", commonmodel.Actor{ID: "disp-1", Role: commonmodel.RoleDispatcher}, true},
		{"admin", commonmodel.Actor{ID: "adm-1", Role: commonmodel.RoleAdmin}, true},
		{"other customer", commonmodel.Actor{ID: "cust-9", Role: commonmodel.RoleCustomer}, false},
		{"other driver", commonmodel.Actor{ID: "drv-9", Role: commonmodel.RoleDriver}, false},
	}
	for _, tt := range tests {
		err := g.Authorize(ctx, tt.actor, "order_ord-1")
		if tt.allowed && err != nil {
			t.Errorf("%s: unexpected denial: %v", tt.name, err)
		}
		if !tt.allowed {
			var perr *errs.PermissionError
			if !errors.As(err, &perr) {
				t.Errorf("%s: expected PermissionError, got %v", tt.name, err)
			}
		}
	}
}

func TestAuthorize_RoleAndUserRooms(t *testing.T) {
	g := NewGateway(&stubOrders{})
	ctx := context.Background()

	driver := commonmodel.Actor{ID: "drv-1", Role: commonmodel.RoleDriver}
	customer := commonmodel.Actor{ID: "cust-1", Role: commonmodel.RoleCustomer}

	if err := g.Authorize(ctx, driver, RoomDrivers); err != nil {
		t.Errorf("driver denied drivers room: %v", err)
	}
	if err := g.Authorize(ctx, customer, RoomDrivers); err == nil {
		t.Error("customer allowed into drivers room")
	}
	if err := g.Authorize(ctx, customer, RoomDispatchers); err == nil {
		t.Error("customer allowed into dispatchers room")
	}
	if err := g.Authorize(ctx, customer, "user_cust-1"); err != nil {
		t.Errorf("customer denied own topic: %v", err)
	}
	if err := g.Authorize(ctx, customer, "user_cust-2"); err == nil {
		t.Error("customer allowed into someone else's topic")
	}
}

func TestRelay_LocationIntoOrderRoom(t *testing.T) {
	g := NewGateway(&stubOrders{order: testOrder()})
	bus := events.NewBus()
	g.BindBus(bus)

	watcher := newTestClient(commonmodel.Actor{ID: "cust-1", Role: commonmodel.RoleCustomer})
	g.Hub.Join("order_ord-1", watcher)

	bus.Publish(events.LocationUpdated{
		Order:      "ord-1",
		DispatchID: "dsp-1",
		DriverID:   "drv-1",
		Latitude:   -6.8,
		Longitude:  39.28,
		At:         time.Now().UTC(),
	})

	msgs := drain(watcher)
	if len(msgs) != 1 || msgs[0].Type != "location" {
		t.Fatalf("watcher got %v, want one location message", msgs)
	}
}

func TestRelay_ReadyOrderReachesDispatchers(t *testing.T) {
	g := NewGateway(&stubOrders{order: testOrder()})
	bus := events.NewBus()
	g.BindBus(bus)

	dispatcher := newTestClient(commonmodel.Actor{ID: "disp-1", Role: commonmodel.RoleDispatcher})
	g.Hub.Join(RoomDispatchers, dispatcher)

	bus.Publish(events.OrderStatusChanged{
		Order:      "ord-1",
		OldStatus:  "PREPARING",
		NewStatus:  "READY",
		CustomerID: "cust-1",
		VendorID:   "vend-1",
		At:         time.Now().UTC(),
	})
	bus.Publish(events.OrderStatusChanged{
		Order:      "ord-1",
		OldStatus:  "PENDING",
		NewStatus:  "CONFIRMED",
		CustomerID: "cust-1",
		VendorID:   "vend-1",
		At:         time.Now().UTC(),
	})

	msgs := drain(dispatcher)
	if len(msgs) != 1 {
		t.Fatalf("dispatchers room got %d messages, want only the READY one", len(msgs))
	}
}
