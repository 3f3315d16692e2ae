package dto

import (
	"chakula-delivery/internal/order/model"
	"chakula-delivery/internal/order/service"
)

type OrderItemRequest struct {
	ProductID string  `json:"product_id"`
	VendorID  string  `json:"vendor_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type CreateOrderRequest struct {
	CustomerID      string             `json:"customer_id"`
	VendorID        string             `json:"vendor_id"`
	Items           []OrderItemRequest `json:"items"`
	DeliveryAddress string             `json:"delivery_address"`
	DeliveryLat     float64            `json:"delivery_lat"`
	DeliveryLng     float64            `json:"delivery_lng"`
	VendorLat       float64            `json:"vendor_lat"`
	VendorLng       float64            `json:"vendor_lng"`
	TaxAmount       float64            `json:"tax_amount"`
}

func (r CreateOrderRequest) ToInput() service.CreateOrderInput {
	items := make([]model.OrderItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = model.OrderItem{
			ProductID: it.ProductID,
			VendorID:  it.VendorID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
	}
	return service.CreateOrderInput{
		CustomerID:      r.CustomerID,
		VendorID:        r.VendorID,
		Items:           items,
		DeliveryAddress: r.DeliveryAddress,
		DeliveryLat:     r.DeliveryLat,
		DeliveryLng:     r.DeliveryLng,
		VendorLat:       r.VendorLat,
		VendorLng:       r.VendorLng,
		TaxAmount:       r.TaxAmount,
	}
}

type TransitionRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type PaymentWebhookRequest struct {
	Result string `json:"result"` // "paid" or "refunded"
}

type OrderResponse struct {
	OrderID     string  `json:"order_id"`
	OrderNumber string  `json:"order_number"`
	Status      string  `json:"status"`
	Subtotal    float64 `json:"subtotal"`
	DeliveryFee float64 `json:"delivery_fee"`
	TaxAmount   float64 `json:"tax_amount"`
	TotalAmount float64 `json:"total_amount"`
}

func FromOrder(o *model.Order) OrderResponse {
	return OrderResponse{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Status:      string(o.Status),
		Subtotal:    o.Subtotal,
		DeliveryFee: o.DeliveryFee,
		TaxAmount:   o.TaxAmount,
		TotalAmount: o.TotalAmount,
	}
}
