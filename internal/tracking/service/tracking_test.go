package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chakula-delivery/internal/common/errs"
	"chakula-delivery/internal/common/events"
	commonmodel "chakula-delivery/internal/common/model"
	dispatchmodel "chakula-delivery/internal/dispatch/model"
	ordermodel "chakula-delivery/internal/order/model"
	"chakula-delivery/internal/tracking/model"
)

type fakeSessionRepo struct {
	mu        sync.Mutex
	sessions  map[string]*model.Session
	events    map[string][]model.TrackingEvent
	geofences map[string][]model.Geofence
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		sessions:  make(map[string]*model.Session),
		events:    make(map[string][]model.TrackingEvent),
		geofences: make(map[string][]model.Geofence),
	}
}

func (r *fakeSessionRepo) Insert(_ context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sessions {
		if existing.OrderID == s.OrderID && existing.Active {
			return errors.New("duplicate active session")
		}
	}
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) GetActiveByOrderID(_ context.Context, orderID string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.OrderID == orderID && s.Active {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) UpdatePosition(_ context.Context, sessionID string, lat, lng float64, at time.Time, dtp, dtd *float64, delta float64, estPickup, estDelivery *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return errors.New("session not found")
	}
	s.CurrentLat = &lat
	s.CurrentLng = &lng
	s.LastPingAt = &at
	if dtp != nil {
		s.DistanceToPickupKm = dtp
		s.EstimatedPickupAt = estPickup
	}
	if dtd != nil {
		s.DistanceToDeliveryKm = dtd
		s.EstimatedDeliveryAt = estDelivery
	}
	s.DistanceTraveledKm += delta
	s.UpdatedAt = at
	return nil
}

func (r *fakeSessionRepo) End(_ context.Context, sessionID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || !s.Active {
		return false, nil
	}
	s.Active = false
	s.EndedAt = &at
	return true, nil
}

func (r *fakeSessionRepo) AppendEvent(_ context.Context, e model.TrackingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[e.SessionID] = append(r.events[e.SessionID], e)
	return nil
}

func (r *fakeSessionRepo) Events(_ context.Context, sessionID string) ([]model.TrackingEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.TrackingEvent, len(r.events[sessionID]))
	copy(out, r.events[sessionID])
	return out, nil
}

func (r *fakeSessionRepo) GeofencesForOrder(_ context.Context, orderID string) ([]model.Geofence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.geofences[orderID], nil
}

// fakeDispatchAPI holds one dispatch and enforces the real status graph
// so geofence triggers behave one-shot.
type fakeDispatchAPI struct {
	mu                sync.Mutex
	dispatch          *dispatchmodel.Dispatch
	statusCalls       []dispatchmodel.DispatchStatus
	locationCallCount int
}

func (f *fakeDispatchAPI) GetByOrder(_ context.Context, orderID string) (*dispatchmodel.Dispatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dispatch == nil || f.dispatch.OrderID != orderID {
		return nil, errs.NotFound("dispatch for order", orderID)
	}
	cp := *f.dispatch
	return &cp, nil
}

func (f *fakeDispatchAPI) UpdateStatus(_ context.Context, _ commonmodel.Actor, dispatchID string, newStatus dispatchmodel.DispatchStatus, _, _ *float64, _ string) (*dispatchmodel.Dispatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dispatch == nil || f.dispatch.ID != dispatchID {
		return nil, errs.NotFound("dispatch", dispatchID)
	}
	if !f.dispatch.Status.CanTransitionTo(newStatus) {
		return nil, errs.IllegalTransition("dispatch", string(f.dispatch.Status), string(newStatus), f.dispatch.Status.LegalSuccessors())
	}
	f.dispatch.Status = newStatus
	f.statusCalls = append(f.statusCalls, newStatus)
	cp := *f.dispatch
	return &cp, nil
}

func (f *fakeDispatchAPI) RecordLocation(_ context.Context, _ string, _, _ float64, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locationCallCount++
	return nil
}

type fakeOrderAPI struct {
	order *ordermodel.Order
}

func (f *fakeOrderAPI) Get(_ context.Context, orderID string) (*ordermodel.Order, error) {
	if f.order == nil || f.order.ID != orderID {
		return nil, errs.NotFound("order", orderID)
	}
	cp := *f.order
	return &cp, nil
}

var (
	trackDriver = commonmodel.Actor{ID: "drv-1", Role: commonmodel.RoleDriver}

	// Vendor at the city centre, customer ~1.5 km north.
	vendorLat, vendorLng     = -6.8160, 39.2803
	deliveryLat, deliveryLng = -6.8025, 39.2803
)

type trackFixture struct {
	repo       *fakeSessionRepo
	dispatches *fakeDispatchAPI
	orders     *fakeOrderAPI
	bus        *events.Bus
	svc        *Service
}

func newTrackFixture(dispatchStatus dispatchmodel.DispatchStatus) *trackFixture {
	driverID := "drv-1"
	f := &trackFixture{
		repo: newFakeSessionRepo(),
		dispatches: &fakeDispatchAPI{
			dispatch: &dispatchmodel.Dispatch{
				ID:       "dsp-1",
				OrderID:  "ord-1",
				DriverID: driverID,
				Status:   dispatchStatus,
			},
		},
		orders: &fakeOrderAPI{
			order: &ordermodel.Order{
				ID:          "ord-1",
				CustomerID:  "cust-1",
				VendorID:    "vend-1",
				DriverID:    &driverID,
				Status:      ordermodel.OrderReady,
				VendorLat:   vendorLat,
				VendorLng:   vendorLng,
				DeliveryLat: deliveryLat,
				DeliveryLng: deliveryLng,
			},
		},
		bus: events.NewBus(),
	}
	f.svc = NewService(f.repo, f.dispatches, f.orders, f.bus, 100)
	return f
}

func (f *trackFixture) markPickedUp() {
	now := time.Now().UTC()
	f.dispatches.dispatch.Status = dispatchmodel.DispatchPickedUp
	f.dispatches.dispatch.PickedUpAt = &now
}

func TestStart_Idempotent(t *testing.T) {
	f := newTrackFixture(dispatchmodel.DispatchAccepted)

	first, err := f.svc.Start(context.Background(), trackDriver, "ord-1")
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	second, err := f.svc.Start(context.Background(), trackDriver, "ord-1")
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("second start returned session %s, want %s", second.ID, first.ID)
	}
}

func TestStart_ForeignDriver(t *testing.T) {
	f := newTrackFixture(dispatchmodel.DispatchAccepted)

	other := commonmodel.Actor{ID: "drv-9", Role: commonmodel.RoleDriver}
	_, err := f.svc.Start(context.Background(), other, "ord-1")
	var perr *errs.PermissionError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PermissionError, got %v", err)
	}
}

func TestIngestLocation_RejectsOutOfRange(t *testing.T) {
	f := newTrackFixture(dispatchmodel.DispatchAccepted)
	session, _ := f.svc.Start(context.Background(), trackDriver, "ord-1")

	_, err := f.svc.IngestLocation(context.Background(), trackDriver, session.ID, LocationPing{Lat: 95, Lng: 39, At: time.Now()})
	var verr *errs.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	got, _ := f.svc.Get(context.Background(), session.ID)
	if got.CurrentLat != nil {
		t.Error("rejected ping mutated session state")
	}
}

func TestIngestLocation_RejectsStalePing(t *testing.T) {
	f := newTrackFixture(dispatchmodel.DispatchAccepted)
	session, _ := f.svc.Start(context.Background(), trackDriver, "ord-1")

	now := time.Now().UTC()
	if _, err := f.svc.IngestLocation(context.Background(), trackDriver, session.ID, LocationPing{Lat: -6.82, Lng: 39.27, At: now}); err != nil {
		t.Fatalf("fresh ping: %v", err)
	}

	_, err := f.svc.IngestLocation(context.Background(), trackDriver, session.ID, LocationPing{Lat: -6.83, Lng: 39.26, At: now.Add(-time.Minute)})
	var verr *errs.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for stale ping, got %v", err)
	}

	got, _ := f.svc.Get(context.Background(), session.ID)
	if got.CurrentLat == nil || *got.CurrentLat != -6.82 {
		t.Errorf("stale ping overwrote position: lat = %v", got.CurrentLat)
	}
}

func TestIngestLocation_ForeignDriver(t *testing.T) {
	f := newTrackFixture(dispatchmodel.DispatchAccepted)
	session, _ := f.svc.Start(context.Background(), trackDriver, "ord-1")

	other := commonmodel.Actor{ID: "drv-9", Role: commonmodel.RoleDriver}
	_, err := f.svc.IngestLocation(context.Background(), other, session.ID, LocationPing{Lat: -6.82, Lng: 39.27, At: time.Now()})
	var perr *errs.PermissionError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PermissionError, got %v", err)
	}
}

func TestIngestLocation_DistanceLegSwitch(t *testing.T) {
	f := newTrackFixture(dispatchmodel.DispatchAccepted)
	session, _ := f.svc.Start(context.Background(), trackDriver, "ord-1")

	now := time.Now().UTC()
	got, err := f.svc.IngestLocation(context.Background(), trackDriver, session.ID, LocationPing{Lat: -6.83, Lng: 39.27, At: now})
	if err != nil {
		t.Fatalf("pre-pickup ping: %v", err)
	}
	if got.DistanceToPickupKm == nil || *got.DistanceToPickupKm <= 0 {
		t.Error("expected distance-to-pickup before pickup")
	}
	if got.DistanceToDeliveryKm != nil {
		t.Error("distance-to-delivery set before pickup")
	}

	f.markPickedUp()
	got, err = f.svc.IngestLocation(context.Background(), trackDriver, session.ID, LocationPing{Lat: -6.81, Lng: 39.28, At: now.Add(time.Minute)})
	if err != nil {
		t.Fatalf("post-pickup ping: %v", err)
	}
	if got.DistanceToDeliveryKm == nil || *got.DistanceToDeliveryKm <= 0 {
		t.Error("expected distance-to-delivery after pickup")
	}
	if got.DistanceTraveledKm <= 0 {
		t.Error("cumulative distance not accumulated")
	}
}

func TestGeofence_OneShotArrivedPickup(t *testing.T) {
	f := newTrackFixture(dispatchmodel.DispatchEnRoutePickup)
	session, _ := f.svc.Start(context.Background(), trackDriver, "ord-1")

	now := time.Now().UTC()
	// Two consecutive pings at the vendor's door.
	for i := 0; i < 2; i++ {
		at := now.Add(time.Duration(i) * 10 * time.Second)
		if _, err := f.svc.IngestLocation(context.Background(), trackDriver, session.ID, LocationPing{Lat: vendorLat, Lng: vendorLng, At: at}); err != nil {
			t.Fatalf("ping %d: %v", i, err)
		}
	}

	var arrivals int
	for _, st := range f.dispatches.statusCalls {
		if st == dispatchmodel.DispatchArrivedPickup {
			arrivals++
		}
	}
	if arrivals != 1 {
		t.Fatalf("arrived_pickup fired %d times, want exactly 1", arrivals)
	}
	if f.dispatches.dispatch.Status != dispatchmodel.DispatchArrivedPickup {
		t.Errorf("dispatch status = %s, want ARRIVED_PICKUP", f.dispatches.dispatch.Status)
	}
}

func TestGeofence_ArrivedDelivery(t *testing.T) {
	f := newTrackFixture(dispatchmodel.DispatchEnRouteDelivery)
	now := time.Now().UTC()
	f.dispatches.dispatch.PickedUpAt = &now
	session, _ := f.svc.Start(context.Background(), trackDriver, "ord-1")

	var geofenceEvents int
	f.bus.Subscribe(func(e events.Event) {
		if _, ok := e.(events.GeofenceEntered); ok {
			geofenceEvents++
		}
	})

	if _, err := f.svc.IngestLocation(context.Background(), trackDriver, session.ID, LocationPing{Lat: deliveryLat, Lng: deliveryLng, At: now.Add(time.Second)}); err != nil {
		t.Fatalf("ping: %v", err)
	}

	if f.dispatches.dispatch.Status != dispatchmodel.DispatchArrivedDelivery {
		t.Errorf("dispatch status = %s, want ARRIVED_DELIVERY", f.dispatches.dispatch.Status)
	}
	if geofenceEvents != 1 {
		t.Errorf("geofence events published = %d, want 1", geofenceEvents)
	}
}

func TestEnd_Idempotent(t *testing.T) {
	f := newTrackFixture(dispatchmodel.DispatchAccepted)
	session, _ := f.svc.Start(context.Background(), trackDriver, "ord-1")

	first, err := f.svc.End(context.Background(), trackDriver, session.ID)
	if err != nil {
		t.Fatalf("first end: %v", err)
	}
	if first.Active || first.EndedAt == nil {
		t.Error("session still active after end")
	}

	second, err := f.svc.End(context.Background(), trackDriver, session.ID)
	if err != nil {
		t.Fatalf("second end: %v", err)
	}
	if second.Active {
		t.Error("second end reactivated session")
	}
}

func TestTerminalOrderEndsSession(t *testing.T) {
	f := newTrackFixture(dispatchmodel.DispatchAccepted)
	session, _ := f.svc.Start(context.Background(), trackDriver, "ord-1")

	f.bus.Publish(events.OrderStatusChanged{
		Order:     "ord-1",
		OldStatus: string(ordermodel.OrderInTransit),
		NewStatus: string(ordermodel.OrderDelivered),
		At:        time.Now().UTC(),
	})

	got, _ := f.svc.Get(context.Background(), session.ID)
	if got.Active {
		t.Error("session still active after order reached terminal status")
	}
}

func TestSpeedAlertEvent(t *testing.T) {
	f := newTrackFixture(dispatchmodel.DispatchAccepted)
	session, _ := f.svc.Start(context.Background(), trackDriver, "ord-1")

	speed := 150.0
	if _, err := f.svc.IngestLocation(context.Background(), trackDriver, session.ID, LocationPing{Lat: -6.83, Lng: 39.27, SpeedKmh: &speed, At: time.Now()}); err != nil {
		t.Fatalf("ping: %v", err)
	}

	evts, _ := f.svc.Events(context.Background(), session.ID)
	var alerts int
	for _, e := range evts {
		if e.Type == model.EventSpeedAlert {
			alerts++
		}
	}
	if alerts != 1 {
		t.Errorf("speed alerts = %d, want 1", alerts)
	}
}
