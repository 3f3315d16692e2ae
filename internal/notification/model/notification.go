package model

import (
	"time"

	commonmodel "chakula-delivery/internal/common/model"
)

type Channel string

const (
	ChannelPush     Channel = "push"
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelRealtime Channel = "realtime"
)

type Category string

const (
	CategoryOrderUpdates    Category = "order_updates"
	CategoryDeliveryUpdates Category = "delivery_updates"
	CategoryPaymentUpdates  Category = "payment_updates"
	CategorySystemAlerts    Category = "system_alerts"
)

// Notification is one queued message for one recipient on one channel.
// is_sent flips to true only after the channel sender succeeds.
type Notification struct {
	ID            string           `json:"id" db:"id"`
	RecipientID   string           `json:"recipient_id" db:"recipient_id"`
	RecipientRole commonmodel.Role `json:"recipient_role" db:"recipient_role"`
	Category      Category         `json:"category" db:"category"`
	Channel       Channel          `json:"channel" db:"channel"`
	Title         string           `json:"title" db:"title"`
	Message       string           `json:"message" db:"message"`
	OrderID       string           `json:"order_id,omitempty" db:"order_id"`
	IsSent        bool             `json:"is_sent" db:"is_sent"`
	SentAt        *time.Time       `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}

// Preferences holds a user's channel toggles and category opt-outs.
type Preferences struct {
	UserID string `json:"user_id" db:"user_id"`

	Push     bool `json:"push" db:"push"`
	Email    bool `json:"email" db:"email"`
	SMS      bool `json:"sms" db:"sms"`
	Realtime bool `json:"realtime" db:"realtime"`

	OrderUpdates    bool `json:"order_updates" db:"order_updates"`
	DeliveryUpdates bool `json:"delivery_updates" db:"delivery_updates"`
	PaymentUpdates  bool `json:"payment_updates" db:"payment_updates"`
	SystemAlerts    bool `json:"system_alerts" db:"system_alerts"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultPreferences is what a user without a stored row gets:
// everything on.
func DefaultPreferences(userID string) Preferences {
	return Preferences{
		UserID:          userID,
		Push:            true,
		Email:           true,
		SMS:             true,
		Realtime:        true,
		OrderUpdates:    true,
		DeliveryUpdates: true,
		PaymentUpdates:  true,
		SystemAlerts:    true,
	}
}

// ChannelEnabled reports whether the channel toggle is on.
func (p Preferences) ChannelEnabled(c Channel) bool {
	switch c {
	case ChannelPush:
		return p.Push
	case ChannelEmail:
		return p.Email
	case ChannelSMS:
		return p.SMS
	case ChannelRealtime:
		return p.Realtime
	}
	return false
}

// CategoryEnabled reports whether the recipient wants this category.
func (p Preferences) CategoryEnabled(c Category) bool {
	switch c {
	case CategoryOrderUpdates:
		return p.OrderUpdates
	case CategoryDeliveryUpdates:
		return p.DeliveryUpdates
	case CategoryPaymentUpdates:
		return p.PaymentUpdates
	case CategorySystemAlerts:
		return p.SystemAlerts
	}
	return false
}
