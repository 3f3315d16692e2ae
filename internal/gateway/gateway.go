package gateway

import (
	"encoding/json"
	"time"

	"chakula-delivery/internal/common/events"
	"chakula-delivery/internal/common/logger"
)

// Gateway owns the hub and relays domain events into its rooms.
type Gateway struct {
	Hub    *Hub
	orders OrderGetter
}

func NewGateway(orders OrderGetter) *Gateway {
	return &Gateway{Hub: NewHub(), orders: orders}
}

// OutboundMessage is the frame pushed to room subscribers.
type OutboundMessage struct {
	Type      string      `json:"type"`
	Room      string      `json:"room"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// BindBus subscribes the gateway to the in-process event stream so
// every status change and location ping reaches the watching rooms.
func (g *Gateway) BindBus(bus *events.Bus) {
	bus.Subscribe(g.Relay)
}

// Relay routes one domain event into the rooms that should see it.
// Also the entry point for events arriving over RabbitMQ.
func (g *Gateway) Relay(e events.Event) {
	orderRoom := RoomForOrder(e.OrderID())

	switch ev := e.(type) {
	case events.OrderStatusChanged:
		g.push("order_status", orderRoom, ev)
		g.push("order_status", RoomForUser(ev.CustomerID), ev)
		g.push("order_status", RoomForUser(ev.VendorID), ev)
		// Dispatchers watch for orders entering the assignable pool.
		if ev.NewStatus == "READY" {
			g.push("order_status", RoomDispatchers, ev)
		}
	case events.DispatchStatusChanged:
		g.push("dispatch_status", orderRoom, ev)
		g.push("dispatch_status", RoomForUser(ev.DriverID), ev)
		g.push("dispatch_status", RoomDispatchers, ev)
	case events.LocationUpdated:
		g.push("location", orderRoom, ev)
		g.push("location", RoomDispatchers, ev)
	case events.GeofenceEntered:
		g.push("geofence", orderRoom, ev)
	case events.PaymentStatusChanged:
		g.push("payment_status", RoomForUser(ev.CustomerID), ev)
	}
}

func (g *Gateway) push(msgType, room string, payload interface{}) {
	body, err := json.Marshal(OutboundMessage{
		Type:      msgType,
		Room:      room,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		logger.Error("gateway_push", "failed to marshal outbound message", "", "", err.Error())
		return
	}
	g.Hub.Publish(room, body)
}
