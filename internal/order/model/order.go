package model

import (
	"time"

	commonmodel "chakula-delivery/internal/common/model"
)

type Order struct {
	ID            string        `json:"id" db:"id"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
	OrderNumber   string        `json:"order_number" db:"order_number"`
	CustomerID    string        `json:"customer_id" db:"customer_id"`
	VendorID      string        `json:"vendor_id" db:"vendor_id"`
	DriverID      *string       `json:"driver_id,omitempty" db:"driver_id"`
	Status        OrderStatus   `json:"status" db:"status"`
	PaymentStatus PaymentStatus `json:"payment_status" db:"payment_status"`

	Subtotal    float64 `json:"subtotal" db:"subtotal"`
	DeliveryFee float64 `json:"delivery_fee" db:"delivery_fee"`
	TaxAmount   float64 `json:"tax_amount" db:"tax_amount"`
	TotalAmount float64 `json:"total_amount" db:"total_amount"`

	DeliveryAddress string  `json:"delivery_address" db:"delivery_address"`
	DeliveryLat     float64 `json:"delivery_lat" db:"delivery_lat"`
	DeliveryLng     float64 `json:"delivery_lng" db:"delivery_lng"`
	// Vendor pickup coordinates are snapshotted at checkout so that
	// tracking does not depend on the vendor record later changing.
	VendorLat float64 `json:"vendor_lat" db:"vendor_lat"`
	VendorLng float64 `json:"vendor_lng" db:"vendor_lng"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty" db:"confirmed_at"`
	ReadyAt     *time.Time `json:"ready_at,omitempty" db:"ready_at"`
	PickedUpAt  *time.Time `json:"picked_up_at,omitempty" db:"picked_up_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`

	Items []OrderItem `json:"items,omitempty"`
}

type OrderItem struct {
	ID        string  `json:"id" db:"id"`
	OrderID   string  `json:"order_id" db:"order_id"`
	ProductID string  `json:"product_id" db:"product_id"`
	VendorID  string  `json:"vendor_id" db:"vendor_id"`
	Name      string  `json:"name" db:"name"`
	Quantity  int     `json:"quantity" db:"quantity"`
	UnitPrice float64 `json:"unit_price" db:"unit_price"`
	LineTotal float64 `json:"line_total" db:"line_total"`
}

// StatusHistory is the append-only transition log. Exactly one row is
// written for every successful status change, including the initial
// PENDING row at creation.
type StatusHistory struct {
	ID        string            `json:"id" db:"id"`
	OrderID   string            `json:"order_id" db:"order_id"`
	Status    OrderStatus       `json:"status" db:"status"`
	ActorID   string            `json:"actor_id" db:"actor_id"`
	ActorRole commonmodel.Role  `json:"actor_role" db:"actor_role"`
	Notes     string            `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}
