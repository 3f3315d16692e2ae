package service

import (
	"context"
	"fmt"
	"time"

	"chakula-delivery/internal/common/errs"
	"chakula-delivery/internal/common/events"
	"chakula-delivery/internal/common/logger"
	commonmodel "chakula-delivery/internal/common/model"
	dispatchmodel "chakula-delivery/internal/dispatch/model"
	ordermodel "chakula-delivery/internal/order/model"
	"chakula-delivery/internal/tracking/model"
	"chakula-delivery/pkg/geo"

	"github.com/google/uuid"
)

// speedAlertThresholdKmh marks pings implausibly fast for a delivery
// vehicle in city traffic.
const speedAlertThresholdKmh = 120.0

// SessionRepository is the persistence port for tracking sessions and
// their event logs.
type SessionRepository interface {
	Insert(ctx context.Context, s *model.Session) error
	GetByID(ctx context.Context, id string) (*model.Session, error)
	GetActiveByOrderID(ctx context.Context, orderID string) (*model.Session, error)
	UpdatePosition(ctx context.Context, sessionID string, lat, lng float64, at time.Time, distanceToPickupKm, distanceToDeliveryKm *float64, distanceDeltaKm float64, estPickupAt, estDeliveryAt *time.Time) error
	End(ctx context.Context, sessionID string, at time.Time) (bool, error)
	AppendEvent(ctx context.Context, e model.TrackingEvent) error
	Events(ctx context.Context, sessionID string) ([]model.TrackingEvent, error)
	GeofencesForOrder(ctx context.Context, orderID string) ([]model.Geofence, error)
}

// DispatchAPI is the slice of the dispatch coordinator tracking needs:
// finding the order's dispatch, pushing arrival transitions and feeding
// it the driver's position.
type DispatchAPI interface {
	GetByOrder(ctx context.Context, orderID string) (*dispatchmodel.Dispatch, error)
	UpdateStatus(ctx context.Context, actor commonmodel.Actor, dispatchID string, newStatus dispatchmodel.DispatchStatus, lat, lng *float64, notes string) (*dispatchmodel.Dispatch, error)
	RecordLocation(ctx context.Context, dispatchID string, lat, lng float64, at time.Time) error
}

// OrderAPI provides the order's vendor and delivery coordinates.
type OrderAPI interface {
	Get(ctx context.Context, orderID string) (*ordermodel.Order, error)
}

type Service struct {
	repo           SessionRepository
	dispatches     DispatchAPI
	orders         OrderAPI
	bus            *events.Bus
	defaultRadiusM float64
	now            func() time.Time
}

func NewService(repo SessionRepository, dispatches DispatchAPI, orders OrderAPI, bus *events.Bus, defaultRadiusM float64) *Service {
	s := &Service{
		repo:           repo,
		dispatches:     dispatches,
		orders:         orders,
		bus:            bus,
		defaultRadiusM: defaultRadiusM,
		now:            time.Now,
	}
	// A terminal order ends its live session.
	bus.Subscribe(s.handleOrderEvent)
	return s
}

// Start opens the tracking session for an order. Drivers reconnect over
// flaky mobile networks, so a second start returns the existing active
// session instead of erroring.
func (s *Service) Start(ctx context.Context, actor commonmodel.Actor, orderID string) (*model.Session, error) {
	dispatch, err := s.dispatches.GetByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanModerate() {
		if !actor.CanDrive() || dispatch.DriverID != actor.ID {
			return nil, errs.Permission("only the order's assigned driver may start tracking")
		}
	}
	if dispatch.Status.Terminal() {
		return nil, errs.Conflict("tracking", fmt.Sprintf("dispatch already %s", dispatch.Status))
	}

	existing, err := s.repo.GetActiveByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := s.now().UTC()
	session := &model.Session{
		ID:         uuid.NewString(),
		OrderID:    orderID,
		DispatchID: dispatch.ID,
		DriverID:   dispatch.DriverID,
		Active:     true,
		StartedAt:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, session); err != nil {
		// Another connection raced us through the partial unique index;
		// hand back whichever session won.
		if winner, gerr := s.repo.GetActiveByOrderID(ctx, orderID); gerr == nil && winner != nil {
			return winner, nil
		}
		return nil, fmt.Errorf("failed to start tracking session: %w", err)
	}

	logger.Info("tracking_started", fmt.Sprintf("session %s opened by driver %s", session.ID, dispatch.DriverID), "", orderID)
	return session, nil
}

// LocationPing is one driver position report.
type LocationPing struct {
	Lat            float64
	Lng            float64
	AccuracyM      *float64
	SpeedKmh       *float64
	HeadingDegrees *float64
	At             time.Time
}

// IngestLocation processes a driver ping: validates it, appends the
// tracking event, updates the session's position and distances, feeds
// the dispatch, fans the location out and runs the geofence check. A
// stale ping (older than the last accepted one) is rejected without
// mutating anything, so an out-of-order report can never re-fire an
// arrival already handled.
func (s *Service) IngestLocation(ctx context.Context, actor commonmodel.Actor, sessionID string, ping LocationPing) (*model.Session, error) {
	if err := geo.ValidateLatLon(ping.Lat, ping.Lng); err != nil {
		return nil, errs.Validation("location", err.Error())
	}

	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errs.NotFound("tracking session", sessionID)
	}
	if !actor.CanModerate() && session.DriverID != actor.ID {
		return nil, errs.Permission("only the session's driver may report locations")
	}
	if !session.Active {
		return nil, errs.Conflict("tracking", "session already ended")
	}

	at := ping.At
	if at.IsZero() {
		at = s.now()
	}
	at = at.UTC()
	if session.LastPingAt != nil && at.Before(*session.LastPingAt) {
		return nil, errs.Validation("timestamp", "stale location ping")
	}

	order, err := s.orders.Get(ctx, session.OrderID)
	if err != nil {
		return nil, err
	}
	dispatch, err := s.dispatches.GetByOrder(ctx, session.OrderID)
	if err != nil {
		return nil, err
	}

	var delta float64
	if session.CurrentLat != nil && session.CurrentLng != nil {
		delta = geo.DistanceKm(*session.CurrentLat, *session.CurrentLng, ping.Lat, ping.Lng)
	}

	// Before pickup the driver heads for the vendor, after it for the
	// customer. Only the relevant distance is recomputed.
	pickedUp := dispatch.PickedUpAt != nil
	var distToPickup, distToDelivery *float64
	var estPickup, estDelivery *time.Time
	if pickedUp {
		d := geo.DistanceKm(ping.Lat, ping.Lng, order.DeliveryLat, order.DeliveryLng)
		distToDelivery = &d
		estDelivery = estimateArrival(at, d, ping.SpeedKmh)
	} else {
		d := geo.DistanceKm(ping.Lat, ping.Lng, order.VendorLat, order.VendorLng)
		distToPickup = &d
		estPickup = estimateArrival(at, d, ping.SpeedKmh)
	}

	if err := s.repo.UpdatePosition(ctx, sessionID, ping.Lat, ping.Lng, at, distToPickup, distToDelivery, delta, estPickup, estDelivery); err != nil {
		return nil, fmt.Errorf("failed to update session position: %w", err)
	}

	lat, lng := ping.Lat, ping.Lng
	if err := s.repo.AppendEvent(ctx, model.TrackingEvent{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Type:      model.EventLocationUpdate,
		Lat:       &lat,
		Lng:       &lng,
		SpeedKmh:  ping.SpeedKmh,
		CreatedAt: at,
	}); err != nil {
		logger.Warn("tracking_event_failed", "failed to append location event", "", session.OrderID, err.Error())
	}

	if ping.SpeedKmh != nil && *ping.SpeedKmh > speedAlertThresholdKmh {
		_ = s.repo.AppendEvent(ctx, model.TrackingEvent{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Type:      model.EventSpeedAlert,
			Lat:       &lat,
			Lng:       &lng,
			SpeedKmh:  ping.SpeedKmh,
			Notes:     fmt.Sprintf("speed %.0f km/h above %.0f km/h threshold", *ping.SpeedKmh, speedAlertThresholdKmh),
			CreatedAt: at,
		})
	}

	if err := s.dispatches.RecordLocation(ctx, dispatch.ID, ping.Lat, ping.Lng, at); err != nil {
		logger.Warn("tracking_dispatch_sync", "failed to push location to dispatch", "", session.OrderID, err.Error())
	}

	s.bus.Publish(events.LocationUpdated{
		Order:                session.OrderID,
		DispatchID:           dispatch.ID,
		DriverID:             session.DriverID,
		Latitude:             ping.Lat,
		Longitude:            ping.Lng,
		SpeedKmh:             ping.SpeedKmh,
		HeadingDegrees:       ping.HeadingDegrees,
		DistanceToPickupKm:   distToPickup,
		DistanceToDeliveryKm: distToDelivery,
		At:                   at,
	})

	s.checkGeofences(ctx, actor, session, order, dispatch, ping.Lat, ping.Lng, at)

	session.CurrentLat = &lat
	session.CurrentLng = &lng
	session.LastPingAt = &at
	session.DistanceTraveledKm += delta
	if distToPickup != nil {
		session.DistanceToPickupKm = distToPickup
		session.EstimatedPickupAt = estPickup
	}
	if distToDelivery != nil {
		session.DistanceToDeliveryKm = distToDelivery
		session.EstimatedDeliveryAt = estDelivery
	}
	session.UpdatedAt = at
	return session, nil
}

// checkGeofences fires the arrival transitions when the driver enters
// the pickup or delivery zone. The dispatch status graph makes the
// trigger one-shot per leg: once the dispatch is past ARRIVED_PICKUP a
// second ping inside the same fence cannot transition it again.
func (s *Service) checkGeofences(ctx context.Context, actor commonmodel.Actor, session *model.Session, order *ordermodel.Order, dispatch *dispatchmodel.Dispatch, lat, lng float64, at time.Time) {
	for _, fence := range s.fencesFor(ctx, order) {
		if !geo.WithinRadiusKm(lat, lng, fence.CenterLat, fence.CenterLng, fence.RadiusM/1000) {
			continue
		}

		var target dispatchmodel.DispatchStatus
		switch fence.Kind {
		case model.GeofencePickup, model.GeofenceVendor:
			target = dispatchmodel.DispatchArrivedPickup
		case model.GeofenceDelivery:
			target = dispatchmodel.DispatchArrivedDelivery
		default:
			// Informational zones only leave a trace in the event log.
			_ = s.repo.AppendEvent(ctx, model.TrackingEvent{
				ID:        uuid.NewString(),
				SessionID: session.ID,
				Type:      model.EventGeofenceEnter,
				Lat:       &lat,
				Lng:       &lng,
				Notes:     fmt.Sprintf("entered %s zone %s", fence.Kind, fence.Name),
				CreatedAt: at,
			})
			continue
		}

		if !dispatch.Status.CanTransitionTo(target) {
			continue
		}

		driver := commonmodel.Actor{ID: session.DriverID, Role: commonmodel.RoleDriver}
		if !actor.CanModerate() {
			driver = actor
		}
		updated, err := s.dispatches.UpdateStatus(ctx, driver, dispatch.ID, target, &lat, &lng, fmt.Sprintf("geofence %s", fence.Name))
		if err != nil {
			logger.Warn("geofence_transition", fmt.Sprintf("geofence-triggered %s rejected", target), "", session.OrderID, err.Error())
			continue
		}
		dispatch.Status = updated.Status

		_ = s.repo.AppendEvent(ctx, model.TrackingEvent{
			ID:        uuid.NewString(),
			SessionID: session.ID,
			Type:      model.EventGeofenceEnter,
			Lat:       &lat,
			Lng:       &lng,
			Notes:     fmt.Sprintf("entered %s zone, dispatch moved to %s", fence.Kind, target),
			CreatedAt: at,
		})
		s.bus.Publish(events.GeofenceEntered{
			Order:        session.OrderID,
			DispatchID:   dispatch.ID,
			DriverID:     session.DriverID,
			GeofenceKind: string(fence.Kind),
			At:           at,
		})
		logger.Info("geofence_entered", fmt.Sprintf("driver entered %s fence, dispatch -> %s", fence.Kind, target), "", session.OrderID)
	}
}

// fencesFor returns the order's stored geofences, falling back to
// default circles around the vendor and the delivery address.
func (s *Service) fencesFor(ctx context.Context, order *ordermodel.Order) []model.Geofence {
	stored, err := s.repo.GeofencesForOrder(ctx, order.ID)
	if err != nil {
		logger.Warn("geofence_lookup", "failed to load geofences", "", order.ID, err.Error())
	}
	hasPickup, hasDelivery := false, false
	for _, f := range stored {
		switch f.Kind {
		case model.GeofencePickup, model.GeofenceVendor:
			hasPickup = true
		case model.GeofenceDelivery:
			hasDelivery = true
		}
	}
	if !hasPickup {
		stored = append(stored, model.Geofence{
			Name:      "vendor pickup",
			Kind:      model.GeofencePickup,
			CenterLat: order.VendorLat,
			CenterLng: order.VendorLng,
			RadiusM:   s.defaultRadiusM,
			Active:    true,
		})
	}
	if !hasDelivery {
		stored = append(stored, model.Geofence{
			Name:      "delivery address",
			Kind:      model.GeofenceDelivery,
			CenterLat: order.DeliveryLat,
			CenterLng: order.DeliveryLng,
			RadiusM:   s.defaultRadiusM,
			Active:    true,
		})
	}
	active := stored[:0]
	for _, f := range stored {
		if f.Active {
			active = append(active, f)
		}
	}
	return active
}

// End closes the session. Ending an already-ended session is a no-op.
func (s *Service) End(ctx context.Context, actor commonmodel.Actor, sessionID string) (*model.Session, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errs.NotFound("tracking session", sessionID)
	}
	if !actor.CanModerate() && session.DriverID != actor.ID {
		return nil, errs.Permission("only the session's driver may end tracking")
	}
	if !session.Active {
		return session, nil
	}

	now := s.now().UTC()
	if _, err := s.repo.End(ctx, sessionID, now); err != nil {
		return nil, fmt.Errorf("failed to end tracking session: %w", err)
	}
	session.Active = false
	session.EndedAt = &now
	session.UpdatedAt = now
	logger.Info("tracking_ended", fmt.Sprintf("session %s closed", sessionID), "", session.OrderID)
	return session, nil
}

func (s *Service) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errs.NotFound("tracking session", sessionID)
	}
	return session, nil
}

func (s *Service) GetActiveByOrder(ctx context.Context, orderID string) (*model.Session, error) {
	session, err := s.repo.GetActiveByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errs.NotFound("active tracking session for order", orderID)
	}
	return session, nil
}

func (s *Service) Events(ctx context.Context, sessionID string) ([]model.TrackingEvent, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errs.NotFound("tracking session", sessionID)
	}
	return s.repo.Events(ctx, sessionID)
}

// handleOrderEvent ends the active session when the order reaches a
// terminal status.
func (s *Service) handleOrderEvent(e events.Event) {
	osc, ok := e.(events.OrderStatusChanged)
	if !ok || !ordermodel.OrderStatus(osc.NewStatus).Terminal() {
		return
	}

	ctx := context.Background()
	session, err := s.repo.GetActiveByOrderID(ctx, osc.Order)
	if err != nil || session == nil {
		return
	}
	if _, err := s.repo.End(ctx, session.ID, s.now().UTC()); err != nil {
		logger.Warn("tracking_auto_end", "failed to end session on terminal order", "", osc.Order, err.Error())
		return
	}
	logger.Info("tracking_auto_end", fmt.Sprintf("session %s ended, order %s", session.ID, osc.NewStatus), "", osc.Order)
}

// estimateArrival projects the arrival time from the remaining distance
// at the reported speed. Unknown or standstill speed yields no estimate.
func estimateArrival(at time.Time, distanceKm float64, speedKmh *float64) *time.Time {
	if speedKmh == nil || *speedKmh <= 0 {
		return nil
	}
	eta := at.Add(time.Duration(distanceKm / *speedKmh * float64(time.Hour)))
	return &eta
}
