package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chakula-delivery/internal/common/events"
	"chakula-delivery/internal/common/logger"
	commonmodel "chakula-delivery/internal/common/model"
	"chakula-delivery/internal/notification/model"

	"github.com/google/uuid"
)

// NotificationRepository is the persistence port for the notification
// queue and per-user preferences.
type NotificationRepository interface {
	Enqueue(ctx context.Context, n *model.Notification) error
	MarkSent(ctx context.Context, id string, at time.Time) error
	Preferences(ctx context.Context, userID string) (*model.Preferences, error)
	SavePreferences(ctx context.Context, p *model.Preferences) error
	ListForRecipient(ctx context.Context, recipientID string, limit int) ([]model.Notification, error)
}

// ChannelSender delivers one queued notification through one external
// channel. A false/error result leaves the queue row unsent.
type ChannelSender interface {
	Send(ctx context.Context, n model.Notification) error
}

type recipient struct {
	id   string
	role commonmodel.Role
}

// Service fans domain events out to recipients' enabled channels.
// Delivery runs on a bounded worker pool so a slow channel never blocks
// the transition that triggered it; best-effort, at-most-once.
type Service struct {
	repo        NotificationRepository
	senders     map[model.Channel]ChannelSender
	jobs        chan model.Notification
	wg          sync.WaitGroup
	pending     sync.WaitGroup
	lookupOrder func(ctx context.Context, orderID string) (customerID, vendorID string, err error)
	now         func() time.Time
}

func NewService(repo NotificationRepository, senders map[model.Channel]ChannelSender, bus *events.Bus, workers int) *Service {
	if workers < 1 {
		workers = 1
	}
	s := &Service{
		repo:    repo,
		senders: senders,
		jobs:    make(chan model.Notification, 256),
		now:     time.Now,
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	bus.Subscribe(s.HandleEvent)
	return s
}

// HandleEvent maps a domain event to (recipient, channel) pairs,
// enqueues a queue row per pair and hands delivery to the pool.
func (s *Service) HandleEvent(e events.Event) {
	ctx := context.Background()

	var category model.Category
	var title, message string
	var recipients []recipient

	switch ev := e.(type) {
	case events.OrderStatusChanged:
		category = model.CategoryOrderUpdates
		title = "Order update"
		message = fmt.Sprintf("Order %s is now %s", ev.OrderNum, ev.NewStatus)
		recipients = append(recipients,
			recipient{ev.CustomerID, commonmodel.RoleCustomer},
			recipient{ev.VendorID, commonmodel.RoleVendor},
		)
		if ev.DriverID != "" {
			recipients = append(recipients, recipient{ev.DriverID, commonmodel.RoleDriver})
		}
	case events.DispatchStatusChanged:
		category = model.CategoryDeliveryUpdates
		title = "Delivery update"
		message = fmt.Sprintf("Your delivery is now %s", ev.NewStatus)
		order, err := s.orderParties(ctx, ev.Order)
		if err == nil {
			recipients = append(recipients, order...)
		}
		if ev.DriverID != "" {
			recipients = append(recipients, recipient{ev.DriverID, commonmodel.RoleDriver})
		}
	case events.GeofenceEntered:
		category = model.CategoryDeliveryUpdates
		title = "Driver nearby"
		message = fmt.Sprintf("Your driver has reached the %s area", ev.GeofenceKind)
		order, err := s.orderParties(ctx, ev.Order)
		if err == nil {
			recipients = append(recipients, order...)
		}
	case events.PaymentStatusChanged:
		category = model.CategoryPaymentUpdates
		title = "Payment update"
		message = fmt.Sprintf("Payment for order %s is %s", ev.OrderNum, ev.NewStatus)
		recipients = append(recipients,
			recipient{ev.CustomerID, commonmodel.RoleCustomer},
			recipient{ev.VendorID, commonmodel.RoleVendor},
		)
	default:
		// Location pings stream through the broadcast gateway, not the
		// notification queue.
		return
	}

	seen := make(map[string]bool, len(recipients))
	for _, rcpt := range recipients {
		if rcpt.id == "" || seen[rcpt.id] {
			continue
		}
		seen[rcpt.id] = true
		s.fanOutTo(ctx, rcpt, category, title, message, e.OrderID())
	}
}

func (s *Service) fanOutTo(ctx context.Context, rcpt recipient, category model.Category, title, message, orderID string) {
	prefs, err := s.repo.Preferences(ctx, rcpt.id)
	if err != nil {
		logger.Warn("notification_prefs", "failed to load preferences, using defaults", "", orderID, err.Error())
	}
	if prefs == nil {
		p := model.DefaultPreferences(rcpt.id)
		prefs = &p
	}
	if !prefs.CategoryEnabled(category) {
		return
	}

	for channel := range s.senders {
		if !prefs.ChannelEnabled(channel) {
			continue
		}
		n := model.Notification{
			ID:            uuid.NewString(),
			RecipientID:   rcpt.id,
			RecipientRole: rcpt.role,
			Category:      category,
			Channel:       channel,
			Title:         title,
			Message:       message,
			OrderID:       orderID,
			CreatedAt:     s.now().UTC(),
		}
		if err := s.repo.Enqueue(ctx, &n); err != nil {
			logger.Error("notification_enqueue", "failed to enqueue notification", "", orderID, err.Error())
			continue
		}

		s.pending.Add(1)
		select {
		case s.jobs <- n:
		default:
			// Pool saturated; at-most-once means we drop rather than
			// block the triggering transition.
			s.pending.Done()
			logger.Warn("notification_dropped", fmt.Sprintf("worker pool full, dropped %s notification", channel), "", orderID, "")
		}
	}
}

func (s *Service) worker() {
	defer s.wg.Done()
	for n := range s.jobs {
		s.deliver(n)
		s.pending.Done()
	}
}

func (s *Service) deliver(n model.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sender := s.senders[n.Channel]
	if sender == nil {
		return
	}
	if err := sender.Send(ctx, n); err != nil {
		// One channel failing never touches the others.
		logger.Warn("notification_send", fmt.Sprintf("%s delivery failed for %s", n.Channel, n.RecipientID), "", n.OrderID, err.Error())
		return
	}
	if err := s.repo.MarkSent(ctx, n.ID, s.now().UTC()); err != nil {
		logger.Warn("notification_send", "failed to mark notification sent", "", n.OrderID, err.Error())
	}
}

// orderParties resolves the customer and vendor of an order for events
// that only carry the order id.
func (s *Service) orderParties(ctx context.Context, orderID string) ([]recipient, error) {
	if s.lookupOrder == nil {
		return nil, nil
	}
	customerID, vendorID, err := s.lookupOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return []recipient{
		{customerID, commonmodel.RoleCustomer},
		{vendorID, commonmodel.RoleVendor},
	}, nil
}

// SetOrderLookup wires the order party resolver. Without it, dispatch
// and geofence events only reach the driver.
func (s *Service) SetOrderLookup(fn func(ctx context.Context, orderID string) (customerID, vendorID string, err error)) {
	s.lookupOrder = fn
}

// GetPreferences returns the stored preferences or the defaults.
func (s *Service) GetPreferences(ctx context.Context, userID string) (*model.Preferences, error) {
	prefs, err := s.repo.Preferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		p := model.DefaultPreferences(userID)
		return &p, nil
	}
	return prefs, nil
}

func (s *Service) UpdatePreferences(ctx context.Context, p *model.Preferences) error {
	p.UpdatedAt = s.now().UTC()
	return s.repo.SavePreferences(ctx, p)
}

func (s *Service) ListForRecipient(ctx context.Context, recipientID string, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListForRecipient(ctx, recipientID, limit)
}

// Drain blocks until every accepted job has been delivered. Test and
// shutdown hook.
func (s *Service) Drain() {
	s.pending.Wait()
}

// Close drains and stops the worker pool.
func (s *Service) Close() {
	s.pending.Wait()
	close(s.jobs)
	s.wg.Wait()
}
