package service

import (
	"context"
	"fmt"
	"time"

	"chakula-delivery/internal/common/errs"
	"chakula-delivery/internal/common/events"
	"chakula-delivery/internal/common/logger"
	commonmodel "chakula-delivery/internal/common/model"
	"chakula-delivery/internal/order/model"
	"chakula-delivery/pkg/geo"

	"github.com/google/uuid"
)

// OrderRepository is the persistence port for orders. Status mutations
// are compare-and-set on the current status so that two concurrent
// transitions from the same source status cannot both succeed.
type OrderRepository interface {
	Insert(ctx context.Context, order *model.Order, first model.StatusHistory) (*model.Order, error)
	GetByID(ctx context.Context, id string) (*model.Order, error)
	UpdateStatusCAS(ctx context.Context, orderID string, from, to model.OrderStatus, at time.Time, h model.StatusHistory) (bool, error)
	ClaimDriver(ctx context.Context, orderID, driverID string) (bool, error)
	ReleaseDriver(ctx context.Context, orderID, driverID string) (bool, error)
	UpdatePaymentStatus(ctx context.Context, orderID string, from, to model.PaymentStatus) (bool, error)
	History(ctx context.Context, orderID string) ([]model.StatusHistory, error)
}

type Service struct {
	repo OrderRepository
	bus  *events.Bus
	now  func() time.Time
}

func NewService(repo OrderRepository, bus *events.Bus) *Service {
	return &Service{repo: repo, bus: bus, now: time.Now}
}

type CreateOrderInput struct {
	CustomerID      string
	VendorID        string
	Items           []model.OrderItem
	DeliveryAddress string
	DeliveryLat     float64
	DeliveryLng     float64
	VendorLat       float64
	VendorLng       float64
	TaxAmount       float64
}

// Create validates the cart, prices the order and persists it in
// PENDING together with its first history row.
func (s *Service) Create(ctx context.Context, actor commonmodel.Actor, in CreateOrderInput) (*model.Order, error) {
	if actor.Role == commonmodel.RoleCustomer && actor.ID != in.CustomerID {
		return nil, errs.Permission("customers can only order for themselves")
	}

	if err := s.validateCreateInput(in); err != nil {
		logger.Warn("create_order_invalid", "order creation rejected", "", "", err.Error())
		return nil, err
	}

	now := s.now().UTC()

	var subtotal float64
	for i := range in.Items {
		in.Items[i].ID = uuid.NewString()
		in.Items[i].LineTotal = float64(in.Items[i].Quantity) * in.Items[i].UnitPrice
		subtotal += in.Items[i].LineTotal
	}

	distanceKm := geo.DistanceKm(in.VendorLat, in.VendorLng, in.DeliveryLat, in.DeliveryLng)
	fee := DeliveryFee(distanceKm)

	order := &model.Order{
		ID:              uuid.NewString(),
		OrderNumber:     fmt.Sprintf("ORD_%s", now.Format("20060102_150405")),
		CustomerID:      in.CustomerID,
		VendorID:        in.VendorID,
		Status:          model.OrderPending,
		PaymentStatus:   model.PaymentPending,
		Subtotal:        subtotal,
		DeliveryFee:     fee,
		TaxAmount:       in.TaxAmount,
		TotalAmount:     subtotal + fee + in.TaxAmount,
		DeliveryAddress: in.DeliveryAddress,
		DeliveryLat:     in.DeliveryLat,
		DeliveryLng:     in.DeliveryLng,
		VendorLat:       in.VendorLat,
		VendorLng:       in.VendorLng,
		CreatedAt:       now,
		UpdatedAt:       now,
		Items:           in.Items,
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}

	first := model.StatusHistory{
		ID:        uuid.NewString(),
		OrderID:   order.ID,
		Status:    model.OrderPending,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Notes:     "order created",
		CreatedAt: now,
	}

	created, err := s.repo.Insert(ctx, order, first)
	if err != nil {
		logger.Error("create_order_failed", "failed to persist order", "", order.ID, err.Error())
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	s.bus.Publish(events.OrderStatusChanged{
		Order:      created.ID,
		OrderNum:   created.OrderNumber,
		OldStatus:  "",
		NewStatus:  string(created.Status),
		CustomerID: created.CustomerID,
		VendorID:   created.VendorID,
		Actor:      actor,
		Notes:      "order created",
		At:         now,
	})

	logger.Info("create_order_success", fmt.Sprintf("order %s created, total %.0f", created.OrderNumber, created.TotalAmount), "", created.ID)
	return created, nil
}

// Transition moves the order to newStatus if that is a legal successor
// of the current status and the actor holds the matching capability.
// Exactly one history row is appended per successful transition and an
// OrderStatusChanged event is published after commit.
func (s *Service) Transition(ctx context.Context, actor commonmodel.Actor, orderID string, newStatus model.OrderStatus, notes string) (*model.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errs.NotFound("order", orderID)
	}

	if !newStatus.Valid() {
		return nil, errs.Validation("status", fmt.Sprintf("unknown status %q", newStatus))
	}
	if err := transitionPermitted(actor, order, newStatus); err != nil {
		logger.Warn("order_transition_denied", fmt.Sprintf("actor %s (%s) may not set %s", actor.ID, actor.Role, newStatus), "", orderID, err.Error())
		return nil, err
	}
	if !order.Status.CanTransitionTo(newStatus) {
		return nil, errs.IllegalTransition("order", string(order.Status), string(newStatus), order.Status.LegalSuccessors())
	}

	now := s.now().UTC()
	history := model.StatusHistory{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Status:    newStatus,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Notes:     notes,
		CreatedAt: now,
	}
	ok, err := s.repo.UpdateStatusCAS(ctx, orderID, order.Status, newStatus, now, history)
	if err != nil {
		logger.Error("order_transition_failed", "failed to update order status", "", orderID, err.Error())
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if !ok {
		return nil, errs.Conflict("order", fmt.Sprintf("order left status %s concurrently", order.Status))
	}

	oldStatus := order.Status
	order.Status = newStatus
	order.UpdatedAt = now
	applyStatusTimestamp(order, newStatus, now)

	driverID := ""
	if order.DriverID != nil {
		driverID = *order.DriverID
	}
	s.bus.Publish(events.OrderStatusChanged{
		Order:      order.ID,
		OrderNum:   order.OrderNumber,
		OldStatus:  string(oldStatus),
		NewStatus:  string(newStatus),
		CustomerID: order.CustomerID,
		VendorID:   order.VendorID,
		DriverID:   driverID,
		Actor:      actor,
		Notes:      notes,
		At:         now,
	})

	logger.Info("order_transition", fmt.Sprintf("order moved %s -> %s", oldStatus, newStatus), "", orderID)
	return order, nil
}

// ClaimDriver atomically binds a driver to a READY order that has no
// driver yet. The dispatch coordinator calls this when creating a
// dispatch; the loser of a concurrent double-assignment gets a conflict.
func (s *Service) ClaimDriver(ctx context.Context, orderID, driverID string) (*model.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errs.NotFound("order", orderID)
	}
	if order.Status != model.OrderReady {
		return nil, errs.Conflict("order", fmt.Sprintf("order is %s, drivers can only be assigned to READY orders", order.Status))
	}
	if order.DriverID != nil {
		return nil, errs.Conflict("order", "order already has a driver assigned")
	}

	ok, err := s.repo.ClaimDriver(ctx, orderID, driverID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim driver slot: %w", err)
	}
	if !ok {
		return nil, errs.Conflict("order", "another driver was assigned concurrently")
	}

	order.DriverID = &driverID
	logger.Info("driver_claimed", fmt.Sprintf("driver %s bound to order", driverID), "", orderID)
	return order, nil
}

// ReleaseDriver unbinds the driver after a dispatch ends without
// delivering, returning the order to the assignable pool. Releasing an
// already-released slot is a no-op.
func (s *Service) ReleaseDriver(ctx context.Context, orderID, driverID string) error {
	ok, err := s.repo.ReleaseDriver(ctx, orderID, driverID)
	if err != nil {
		return fmt.Errorf("failed to release driver slot: %w", err)
	}
	if ok {
		logger.Info("driver_released", fmt.Sprintf("driver %s unbound from order", driverID), "", orderID)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, orderID string) (*model.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errs.NotFound("order", orderID)
	}
	return order, nil
}

func (s *Service) History(ctx context.Context, orderID string) ([]model.StatusHistory, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errs.NotFound("order", orderID)
	}
	return s.repo.History(ctx, orderID)
}

// MarkPaid records a successful charge reported by the payment service.
func (s *Service) MarkPaid(ctx context.Context, orderID string) error {
	ok, err := s.repo.UpdatePaymentStatus(ctx, orderID, model.PaymentPending, model.PaymentPaid)
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	if !ok {
		return errs.Conflict("order", "payment status is no longer PENDING")
	}
	s.publishPaymentEvent(ctx, orderID, model.PaymentPending, model.PaymentPaid)
	logger.Info("payment_received", "order marked paid", "", orderID)
	return nil
}

// MarkRefunded records a refund reported by the payment service.
func (s *Service) MarkRefunded(ctx context.Context, orderID string) error {
	ok, err := s.repo.UpdatePaymentStatus(ctx, orderID, model.PaymentPaid, model.PaymentRefunded)
	if err != nil {
		return fmt.Errorf("failed to mark order refunded: %w", err)
	}
	if !ok {
		return errs.Conflict("order", "only PAID orders can be refunded")
	}
	s.publishPaymentEvent(ctx, orderID, model.PaymentPaid, model.PaymentRefunded)
	logger.Info("payment_refunded", "order marked refunded", "", orderID)
	return nil
}

func (s *Service) publishPaymentEvent(ctx context.Context, orderID string, from, to model.PaymentStatus) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil || order == nil {
		return
	}
	s.bus.Publish(events.PaymentStatusChanged{
		Order:      order.ID,
		OrderNum:   order.OrderNumber,
		OldStatus:  string(from),
		NewStatus:  string(to),
		CustomerID: order.CustomerID,
		VendorID:   order.VendorID,
		At:         s.now().UTC(),
	})
}

func transitionPermitted(actor commonmodel.Actor, order *model.Order, target model.OrderStatus) error {
	if actor.CanModerate() {
		return nil
	}
	switch target {
	case model.OrderConfirmed, model.OrderPreparing, model.OrderReady:
		if !actor.CanActForVendor() || actor.ID != order.VendorID {
			return errs.Permission("only the order's vendor may run kitchen transitions")
		}
	case model.OrderPickedUp, model.OrderInTransit, model.OrderDelivered, model.OrderFailed:
		if !actor.CanDrive() || order.DriverID == nil || *order.DriverID != actor.ID {
			return errs.Permission("only the assigned driver may run delivery transitions")
		}
	case model.OrderCancelled:
		ownsOrder := actor.ID == order.CustomerID || actor.ID == order.VendorID
		if !ownsOrder {
			return errs.Permission("only the customer, the vendor or a dispatcher may cancel")
		}
	default:
		return errs.Permission(fmt.Sprintf("no actor may set status %s directly", target))
	}
	return nil
}

func applyStatusTimestamp(order *model.Order, status model.OrderStatus, at time.Time) {
	switch status {
	case model.OrderConfirmed:
		order.ConfirmedAt = &at
	case model.OrderReady:
		order.ReadyAt = &at
	case model.OrderPickedUp:
		order.PickedUpAt = &at
	case model.OrderDelivered:
		order.DeliveredAt = &at
	case model.OrderCancelled:
		order.CancelledAt = &at
	}
}
