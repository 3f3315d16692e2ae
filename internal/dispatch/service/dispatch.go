package service

import (
	"context"
	"fmt"
	"time"

	"chakula-delivery/internal/common/errs"
	"chakula-delivery/internal/common/events"
	"chakula-delivery/internal/common/logger"
	commonmodel "chakula-delivery/internal/common/model"
	"chakula-delivery/internal/dispatch/model"
	ordermodel "chakula-delivery/internal/order/model"
	"chakula-delivery/pkg/geo"

	"github.com/google/uuid"
)

// DispatchRepository is the persistence port for dispatches. Status
// mutations are compare-and-set on the current status.
type DispatchRepository interface {
	Insert(ctx context.Context, d *model.Dispatch, first model.StatusHistory) (*model.Dispatch, error)
	GetByID(ctx context.Context, id string) (*model.Dispatch, error)
	GetByOrderID(ctx context.Context, orderID string) (*model.Dispatch, error)
	UpdateStatusCAS(ctx context.Context, dispatchID string, from, to model.DispatchStatus, at time.Time, h model.StatusHistory) (bool, error)
	UpdateLocation(ctx context.Context, dispatchID string, lat, lng float64, at time.Time, distanceDeltaKm float64) error
	SetMetrics(ctx context.Context, dispatchID string, timeToPickupSec, timeToDeliverySec *int64) error
	SetFeedback(ctx context.Context, dispatchID string, rating int, feedback string) (bool, error)
	History(ctx context.Context, dispatchID string) ([]model.StatusHistory, error)
}

// OrderAPI is the slice of the order service the coordinator needs:
// reading the order, claiming and releasing the driver slot and driving
// the derived order transitions.
type OrderAPI interface {
	Get(ctx context.Context, orderID string) (*ordermodel.Order, error)
	ClaimDriver(ctx context.Context, orderID, driverID string) (*ordermodel.Order, error)
	ReleaseDriver(ctx context.Context, orderID, driverID string) error
	Transition(ctx context.Context, actor commonmodel.Actor, orderID string, newStatus ordermodel.OrderStatus, notes string) (*ordermodel.Order, error)
}

type Service struct {
	repo   DispatchRepository
	orders OrderAPI
	bus    *events.Bus
	now    func() time.Time
}

func NewService(repo DispatchRepository, orders OrderAPI, bus *events.Bus) *Service {
	s := &Service{repo: repo, orders: orders, bus: bus, now: time.Now}
	// Cascade: cancelling an order cancels its live dispatch.
	bus.Subscribe(s.handleOrderEvent)
	return s
}

// Assign creates the dispatch binding a driver to a READY order. The
// order-side driver slot is claimed with a compare-and-set, so of two
// concurrent assignments exactly one succeeds.
func (s *Service) Assign(ctx context.Context, actor commonmodel.Actor, orderID, driverID string) (*model.Dispatch, error) {
	if !actor.CanDispatch() {
		return nil, errs.Permission("only dispatchers may assign drivers")
	}
	if driverID == "" {
		return nil, errs.Validation("driver_id", "driver_id is required")
	}

	// A rejected or cancelled dispatch released the order; only a live
	// one blocks a new assignment.
	existing, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if existing != nil && !existing.Status.ReleasesOrder() {
		return nil, errs.Conflict("dispatch", fmt.Sprintf("order already has dispatch %s", existing.ID))
	}

	order, err := s.orders.ClaimDriver(ctx, orderID, driverID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	dispatch := &model.Dispatch{
		ID:           uuid.NewString(),
		OrderID:      order.ID,
		DriverID:     driverID,
		DispatcherID: actor.ID,
		Status:       model.DispatchAssigned,
		AssignedAt:   now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	first := model.StatusHistory{
		ID:         uuid.NewString(),
		DispatchID: dispatch.ID,
		Status:     model.DispatchAssigned,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Notes:      "driver assigned",
		CreatedAt:  now,
	}

	created, err := s.repo.Insert(ctx, dispatch, first)
	if err != nil {
		logger.Error("assign_failed", "failed to persist dispatch", "", orderID, err.Error())
		return nil, fmt.Errorf("failed to persist dispatch: %w", err)
	}

	s.bus.Publish(events.DispatchStatusChanged{
		Order:      order.ID,
		DispatchID: created.ID,
		OldStatus:  "",
		NewStatus:  string(model.DispatchAssigned),
		DriverID:   driverID,
		Actor:      actor,
		At:         now,
	})

	logger.Info("driver_assigned", fmt.Sprintf("driver %s assigned by dispatcher %s", driverID, actor.ID), "", orderID)
	return created, nil
}

// UpdateStatus advances the dispatch along the pickup->delivery
// pipeline, appends history, stamps the per-leg timestamp, updates
// performance metrics and synchronously derives the matching order
// transition through OrderStatusFor.
func (s *Service) UpdateStatus(ctx context.Context, actor commonmodel.Actor, dispatchID string, newStatus model.DispatchStatus, lat, lng *float64, notes string) (*model.Dispatch, error) {
	dispatch, err := s.repo.GetByID(ctx, dispatchID)
	if err != nil {
		return nil, err
	}
	if dispatch == nil {
		return nil, errs.NotFound("dispatch", dispatchID)
	}

	if !newStatus.Valid() {
		return nil, errs.Validation("status", fmt.Sprintf("unknown status %q", newStatus))
	}
	if !actor.CanModerate() {
		if !actor.CanDrive() || dispatch.DriverID != actor.ID {
			return nil, errs.Permission("only the dispatch's driver may update its status")
		}
	}
	if !dispatch.Status.CanTransitionTo(newStatus) {
		return nil, errs.IllegalTransition("dispatch", string(dispatch.Status), string(newStatus), dispatch.Status.LegalSuccessors())
	}

	now := s.now().UTC()
	history := model.StatusHistory{
		ID:         uuid.NewString(),
		DispatchID: dispatchID,
		Status:     newStatus,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Lat:        lat,
		Lng:        lng,
		Notes:      notes,
		CreatedAt:  now,
	}
	ok, err := s.repo.UpdateStatusCAS(ctx, dispatchID, dispatch.Status, newStatus, now, history)
	if err != nil {
		logger.Error("dispatch_transition_failed", "failed to update dispatch status", "", dispatch.OrderID, err.Error())
		return nil, fmt.Errorf("failed to update dispatch status: %w", err)
	}
	if !ok {
		return nil, errs.Conflict("dispatch", fmt.Sprintf("dispatch left status %s concurrently", dispatch.Status))
	}

	oldStatus := dispatch.Status
	dispatch.Status = newStatus
	dispatch.UpdatedAt = now
	applyLegTimestamp(dispatch, newStatus, now)

	if err := s.updateMetrics(ctx, dispatch, newStatus, now); err != nil {
		logger.Warn("dispatch_metrics_failed", "failed to update dispatch metrics", "", dispatch.OrderID, err.Error())
	}

	// A dispatch ending without a delivery frees the driver slot so the
	// dispatcher can assign someone else.
	if newStatus.ReleasesOrder() {
		if err := s.orders.ReleaseDriver(ctx, dispatch.OrderID, dispatch.DriverID); err != nil {
			logger.Warn("driver_release_failed", "failed to release the order's driver slot", "", dispatch.OrderID, err.Error())
		}
	}

	s.deriveOrderTransition(ctx, actor, dispatch, newStatus, notes)

	s.bus.Publish(events.DispatchStatusChanged{
		Order:      dispatch.OrderID,
		DispatchID: dispatch.ID,
		OldStatus:  string(oldStatus),
		NewStatus:  string(newStatus),
		DriverID:   dispatch.DriverID,
		Actor:      actor,
		At:         now,
	})

	logger.Info("dispatch_transition", fmt.Sprintf("dispatch moved %s -> %s", oldStatus, newStatus), "", dispatch.OrderID)
	return dispatch, nil
}

// deriveOrderTransition pushes the order status change implied by the
// dispatch status, when the order graph allows it. A dispatch leg that
// does not advance the order (second ARRIVED ping, FAILED before
// pickup) is skipped, not an error.
func (s *Service) deriveOrderTransition(ctx context.Context, actor commonmodel.Actor, dispatch *model.Dispatch, newStatus model.DispatchStatus, notes string) {
	target, ok := OrderStatusFor(newStatus)
	if !ok {
		return
	}

	order, err := s.orders.Get(ctx, dispatch.OrderID)
	if err != nil {
		logger.Warn("derive_order_transition", "failed to load order for derived transition", "", dispatch.OrderID, err.Error())
		return
	}
	if !order.Status.CanTransitionTo(target) {
		logger.Debug("derive_order_transition", fmt.Sprintf("order %s cannot take derived %s, skipping", order.Status, target), "", dispatch.OrderID)
		return
	}

	if _, err := s.orders.Transition(ctx, actor, dispatch.OrderID, target, notes); err != nil {
		logger.Warn("derive_order_transition", fmt.Sprintf("derived order transition to %s rejected", target), "", dispatch.OrderID, err.Error())
	}
}

func (s *Service) updateMetrics(ctx context.Context, dispatch *model.Dispatch, newStatus model.DispatchStatus, now time.Time) error {
	switch newStatus {
	case model.DispatchPickedUp:
		ttp := int64(now.Sub(dispatch.AssignedAt).Seconds())
		dispatch.TimeToPickupSec = &ttp
		return s.repo.SetMetrics(ctx, dispatch.ID, &ttp, nil)
	case model.DispatchDelivered:
		if dispatch.PickedUpAt == nil {
			return nil
		}
		ttd := int64(now.Sub(*dispatch.PickedUpAt).Seconds())
		dispatch.TimeToDeliverySec = &ttd
		return s.repo.SetMetrics(ctx, dispatch.ID, nil, &ttd)
	}
	return nil
}

// RecordLocation updates the dispatch's current position and cumulative
// distance. Called by the tracking service on every accepted ping.
func (s *Service) RecordLocation(ctx context.Context, dispatchID string, lat, lng float64, at time.Time) error {
	dispatch, err := s.repo.GetByID(ctx, dispatchID)
	if err != nil {
		return err
	}
	if dispatch == nil {
		return errs.NotFound("dispatch", dispatchID)
	}

	var delta float64
	if dispatch.CurrentLat != nil && dispatch.CurrentLng != nil {
		delta = geo.DistanceKm(*dispatch.CurrentLat, *dispatch.CurrentLng, lat, lng)
	}
	return s.repo.UpdateLocation(ctx, dispatchID, lat, lng, at, delta)
}

// RecordFeedback stores the customer's rating once the dispatch is
// delivered.
func (s *Service) RecordFeedback(ctx context.Context, actor commonmodel.Actor, dispatchID string, rating int, feedback string) (*model.Dispatch, error) {
	if rating < 1 || rating > 5 {
		return nil, errs.Validation("rating", "rating must be between 1 and 5")
	}

	dispatch, err := s.repo.GetByID(ctx, dispatchID)
	if err != nil {
		return nil, err
	}
	if dispatch == nil {
		return nil, errs.NotFound("dispatch", dispatchID)
	}

	order, err := s.orders.Get(ctx, dispatch.OrderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanModerate() && actor.ID != order.CustomerID {
		return nil, errs.Permission("only the order's customer may rate the delivery")
	}

	ok, err := s.repo.SetFeedback(ctx, dispatchID, rating, feedback)
	if err != nil {
		return nil, fmt.Errorf("failed to store feedback: %w", err)
	}
	if !ok {
		return nil, errs.Validation("status", "feedback can only be recorded for delivered dispatches")
	}

	dispatch.Rating = &rating
	dispatch.Feedback = &feedback
	logger.Info("dispatch_feedback", fmt.Sprintf("rating %d recorded", rating), "", dispatch.OrderID)
	return dispatch, nil
}

func (s *Service) Get(ctx context.Context, dispatchID string) (*model.Dispatch, error) {
	dispatch, err := s.repo.GetByID(ctx, dispatchID)
	if err != nil {
		return nil, err
	}
	if dispatch == nil {
		return nil, errs.NotFound("dispatch", dispatchID)
	}
	return dispatch, nil
}

func (s *Service) GetByOrder(ctx context.Context, orderID string) (*model.Dispatch, error) {
	dispatch, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if dispatch == nil {
		return nil, errs.NotFound("dispatch for order", orderID)
	}
	return dispatch, nil
}

func (s *Service) History(ctx context.Context, dispatchID string) ([]model.StatusHistory, error) {
	dispatch, err := s.repo.GetByID(ctx, dispatchID)
	if err != nil {
		return nil, err
	}
	if dispatch == nil {
		return nil, errs.NotFound("dispatch", dispatchID)
	}
	return s.repo.History(ctx, dispatchID)
}

// handleOrderEvent cascade-cancels the dispatch when its order is
// cancelled. The dispatch->order direction never fires for CANCELLED
// (see OrderStatusFor), so this cannot loop.
func (s *Service) handleOrderEvent(e events.Event) {
	osc, ok := e.(events.OrderStatusChanged)
	if !ok || osc.NewStatus != string(ordermodel.OrderCancelled) {
		return
	}

	ctx := context.Background()
	dispatch, err := s.repo.GetByOrderID(ctx, osc.Order)
	if err != nil || dispatch == nil {
		return
	}
	if dispatch.Status.Terminal() {
		return
	}

	now := s.now().UTC()
	history := model.StatusHistory{
		ID:         uuid.NewString(),
		DispatchID: dispatch.ID,
		Status:     model.DispatchCancelled,
		ActorID:    osc.Actor.ID,
		ActorRole:  osc.Actor.Role,
		Notes:      "order cancelled",
		CreatedAt:  now,
	}
	ok2, err := s.repo.UpdateStatusCAS(ctx, dispatch.ID, dispatch.Status, model.DispatchCancelled, now, history)
	if err != nil || !ok2 {
		logger.Warn("cascade_cancel", "failed to cascade order cancellation to dispatch", "", osc.Order, "")
		return
	}
	if err := s.orders.ReleaseDriver(ctx, osc.Order, dispatch.DriverID); err != nil {
		logger.Warn("driver_release_failed", "failed to release the order's driver slot", "", osc.Order, err.Error())
	}

	s.bus.Publish(events.DispatchStatusChanged{
		Order:      osc.Order,
		DispatchID: dispatch.ID,
		OldStatus:  string(dispatch.Status),
		NewStatus:  string(model.DispatchCancelled),
		DriverID:   dispatch.DriverID,
		Actor:      osc.Actor,
		At:         now,
	})
	logger.Info("cascade_cancel", "dispatch cancelled with its order", "", osc.Order)
}

func applyLegTimestamp(d *model.Dispatch, status model.DispatchStatus, at time.Time) {
	switch status {
	case model.DispatchAccepted:
		d.AcceptedAt = &at
	case model.DispatchEnRoutePickup:
		d.EnRoutePickupAt = &at
	case model.DispatchArrivedPickup:
		d.ArrivedPickupAt = &at
	case model.DispatchPickedUp:
		d.PickedUpAt = &at
	case model.DispatchEnRouteDelivery:
		d.EnRouteDeliveryAt = &at
	case model.DispatchArrivedDelivery:
		d.ArrivedDeliveryAt = &at
	case model.DispatchDelivered:
		d.DeliveredAt = &at
	}
}
