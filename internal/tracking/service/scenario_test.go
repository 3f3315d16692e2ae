package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"chakula-delivery/internal/common/events"
	commonmodel "chakula-delivery/internal/common/model"
	dispatchmodel "chakula-delivery/internal/dispatch/model"
	dispatchsvc "chakula-delivery/internal/dispatch/service"
	ordermodel "chakula-delivery/internal/order/model"
	ordersvc "chakula-delivery/internal/order/service"
)

// In-memory repositories backing the real order and dispatch services
// for the full-pipeline scenario.

type memOrderRepo struct {
	mu      sync.Mutex
	orders  map[string]*ordermodel.Order
	history map[string][]ordermodel.StatusHistory
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{
		orders:  make(map[string]*ordermodel.Order),
		history: make(map[string][]ordermodel.StatusHistory),
	}
}

func (r *memOrderRepo) Insert(_ context.Context, o *ordermodel.Order, first ordermodel.StatusHistory) (*ordermodel.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders[o.ID] = &cp
	r.history[o.ID] = append(r.history[o.ID], first)
	out := *o
	return &out, nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id string) (*ordermodel.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *memOrderRepo) UpdateStatusCAS(_ context.Context, orderID string, from, to ordermodel.OrderStatus, at time.Time, h ordermodel.StatusHistory) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = at
	r.history[orderID] = append(r.history[orderID], h)
	return true, nil
}

func (r *memOrderRepo) ClaimDriver(_ context.Context, orderID, driverID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok || o.Status != ordermodel.OrderReady || o.DriverID != nil {
		return false, nil
	}
	o.DriverID = &driverID
	return true, nil
}

func (r *memOrderRepo) ReleaseDriver(_ context.Context, orderID, driverID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok || o.DriverID == nil || *o.DriverID != driverID {
		return false, nil
	}
	o.DriverID = nil
	return true, nil
}

func (r *memOrderRepo) UpdatePaymentStatus(_ context.Context, orderID string, from, to ordermodel.PaymentStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok || o.PaymentStatus != from {
		return false, nil
	}
	o.PaymentStatus = to
	return true, nil
}

func (r *memOrderRepo) History(_ context.Context, orderID string) ([]ordermodel.StatusHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ordermodel.StatusHistory, len(r.history[orderID]))
	copy(out, r.history[orderID])
	return out, nil
}

type memDispatchRepo struct {
	mu         sync.Mutex
	dispatches map[string]*dispatchmodel.Dispatch
	byOrder    map[string]string
	history    map[string][]dispatchmodel.StatusHistory
}

func newMemDispatchRepo() *memDispatchRepo {
	return &memDispatchRepo{
		dispatches: make(map[string]*dispatchmodel.Dispatch),
		byOrder:    make(map[string]string),
		history:    make(map[string][]dispatchmodel.StatusHistory),
	}
}

func (r *memDispatchRepo) Insert(_ context.Context, d *dispatchmodel.Dispatch, first dispatchmodel.StatusHistory) (*dispatchmodel.Dispatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.dispatches[d.ID] = &cp
	r.byOrder[d.OrderID] = d.ID
	r.history[d.ID] = append(r.history[d.ID], first)
	out := *d
	return &out, nil
}

func (r *memDispatchRepo) GetByID(_ context.Context, id string) (*dispatchmodel.Dispatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.dispatches[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *memDispatchRepo) GetByOrderID(_ context.Context, orderID string) (*dispatchmodel.Dispatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byOrder[orderID]
	if !ok {
		return nil, nil
	}
	cp := *r.dispatches[id]
	return &cp, nil
}

func (r *memDispatchRepo) UpdateStatusCAS(_ context.Context, dispatchID string, from, to dispatchmodel.DispatchStatus, at time.Time, h dispatchmodel.StatusHistory) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.dispatches[dispatchID]
	if !ok || d.Status != from {
		return false, nil
	}
	d.Status = to
	d.UpdatedAt = at
	if to == dispatchmodel.DispatchPickedUp {
		d.PickedUpAt = &at
	}
	r.history[dispatchID] = append(r.history[dispatchID], h)
	return true, nil
}

func (r *memDispatchRepo) UpdateLocation(_ context.Context, dispatchID string, lat, lng float64, at time.Time, delta float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.dispatches[dispatchID]
	if !ok {
		return nil
	}
	d.CurrentLat = &lat
	d.CurrentLng = &lng
	d.LocationUpdatedAt = &at
	d.DistanceTraveledKm += delta
	return nil
}

func (r *memDispatchRepo) SetMetrics(_ context.Context, dispatchID string, ttp, ttd *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.dispatches[dispatchID]
	if !ok {
		return nil
	}
	if ttp != nil {
		d.TimeToPickupSec = ttp
	}
	if ttd != nil {
		d.TimeToDeliverySec = ttd
	}
	return nil
}

func (r *memDispatchRepo) SetFeedback(_ context.Context, dispatchID string, rating int, feedback string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.dispatches[dispatchID]
	if !ok || d.Status != dispatchmodel.DispatchDelivered {
		return false, nil
	}
	d.Rating = &rating
	d.Feedback = &feedback
	return true, nil
}

func (r *memDispatchRepo) History(_ context.Context, dispatchID string) ([]dispatchmodel.StatusHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]dispatchmodel.StatusHistory, len(r.history[dispatchID]))
	copy(out, r.history[dispatchID])
	return out, nil
}

// TestFullDeliveryScenario drives one order through the whole pipeline:
// checkout, kitchen, assignment, tracking with geofence arrivals, and
// delivery, checking money math and the cross-service derivations.
func TestFullDeliveryScenario(t *testing.T) {
	bus := events.NewBus()
	orders := ordersvc.NewService(newMemOrderRepo(), bus)
	dispatches := dispatchsvc.NewService(newMemDispatchRepo(), orders, bus)
	sessions := newFakeSessionRepo()
	tracking := NewService(sessions, dispatches, orders, bus, 100)

	customer := commonmodel.Actor{ID: "cust-1", Role: commonmodel.RoleCustomer}
	vendor := commonmodel.Actor{ID: "vend-1", Role: commonmodel.RoleVendor}
	driver := commonmodel.Actor{ID: "drv-1", Role: commonmodel.RoleDriver}
	dispatcher := commonmodel.Actor{ID: "disp-1", Role: commonmodel.RoleDispatcher}

	ctx := context.Background()

	// Vendor and customer ~1.5 km apart along one meridian.
	const (
		vLat, vLng = -6.81600, 39.28030
		dLat, dLng = -6.80251, 39.28030
	)

	order, err := orders.Create(ctx, customer, ordersvc.CreateOrderInput{
		CustomerID:      "cust-1",
		VendorID:        "vend-1",
		DeliveryAddress: "Mikocheni B, Dar es Salaam",
		DeliveryLat:     dLat,
		DeliveryLng:     dLng,
		VendorLat:       vLat,
		VendorLng:       vLng,
		TaxAmount:       2800,
		Items: []ordermodel.OrderItem{
			{ProductID: "prod-1", VendorID: "vend-1", Name: "Chicken biryani", Quantity: 2, UnitPrice: 12500},
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if order.Subtotal != 25000 {
		t.Errorf("subtotal = %v, want 25000", order.Subtotal)
	}
	if order.DeliveryFee != 3000 {
		t.Errorf("delivery fee = %v, want 3000 for a 1.5 km run", order.DeliveryFee)
	}
	if order.TotalAmount != 30800 {
		t.Errorf("total = %v, want 30800", order.TotalAmount)
	}

	// Kitchen side.
	for _, st := range []ordermodel.OrderStatus{ordermodel.OrderConfirmed, ordermodel.OrderPreparing, ordermodel.OrderReady} {
		if _, err := orders.Transition(ctx, vendor, order.ID, st, ""); err != nil {
			t.Fatalf("vendor transition to %s: %v", st, err)
		}
	}

	dispatch, err := dispatches.Assign(ctx, dispatcher, order.ID, "drv-1")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	for _, st := range []dispatchmodel.DispatchStatus{dispatchmodel.DispatchAccepted, dispatchmodel.DispatchEnRoutePickup} {
		if _, err := dispatches.UpdateStatus(ctx, driver, dispatch.ID, st, nil, nil, ""); err != nil {
			t.Fatalf("driver transition to %s: %v", st, err)
		}
	}

	session, err := tracking.Start(ctx, driver, order.ID)
	if err != nil {
		t.Fatalf("start tracking: %v", err)
	}

	// Arriving at the vendor fires the pickup geofence.
	now := time.Now().UTC()
	if _, err := tracking.IngestLocation(ctx, driver, session.ID, LocationPing{Lat: vLat, Lng: vLng, At: now}); err != nil {
		t.Fatalf("ping at vendor: %v", err)
	}
	d, _ := dispatches.Get(ctx, dispatch.ID)
	if d.Status != dispatchmodel.DispatchArrivedPickup {
		t.Fatalf("dispatch status = %s, want ARRIVED_PICKUP after vendor geofence", d.Status)
	}

	if _, err := dispatches.UpdateStatus(ctx, driver, dispatch.ID, dispatchmodel.DispatchPickedUp, nil, nil, ""); err != nil {
		t.Fatalf("pick up: %v", err)
	}
	o, _ := orders.Get(ctx, order.ID)
	if o.Status != ordermodel.OrderPickedUp {
		t.Errorf("order status = %s, want PICKED_UP", o.Status)
	}

	if _, err := dispatches.UpdateStatus(ctx, driver, dispatch.ID, dispatchmodel.DispatchEnRouteDelivery, nil, nil, ""); err != nil {
		t.Fatalf("en route delivery: %v", err)
	}
	o, _ = orders.Get(ctx, order.ID)
	if o.Status != ordermodel.OrderInTransit {
		t.Errorf("order status = %s, want IN_TRANSIT", o.Status)
	}

	// Arriving at the customer fires the delivery geofence.
	if _, err := tracking.IngestLocation(ctx, driver, session.ID, LocationPing{Lat: dLat, Lng: dLng, At: now.Add(5 * time.Minute)}); err != nil {
		t.Fatalf("ping at delivery: %v", err)
	}
	d, _ = dispatches.Get(ctx, dispatch.ID)
	if d.Status != dispatchmodel.DispatchArrivedDelivery {
		t.Fatalf("dispatch status = %s, want ARRIVED_DELIVERY after delivery geofence", d.Status)
	}

	if _, err := dispatches.UpdateStatus(ctx, driver, dispatch.ID, dispatchmodel.DispatchDelivered, nil, nil, ""); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	o, _ = orders.Get(ctx, order.ID)
	if o.Status != ordermodel.OrderDelivered {
		t.Errorf("order status = %s, want DELIVERED", o.Status)
	}

	// The terminal order ended the tracking session.
	got, _ := tracking.Get(ctx, session.ID)
	if got.Active {
		t.Error("tracking session still active after delivery")
	}

	// And the customer can now rate the run.
	rated, err := dispatches.RecordFeedback(ctx, customer, dispatch.ID, 5, "hot and fast")
	if err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if rated.Rating == nil || *rated.Rating != 5 {
		t.Errorf("rating = %v, want 5", rated.Rating)
	}
}
