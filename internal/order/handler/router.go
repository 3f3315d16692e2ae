package handler

import "net/http"

func SetupRoutes(mux *http.ServeMux, h *OrderHandler) {
	mux.HandleFunc("POST /orders", h.CreateOrder)
	mux.HandleFunc("GET /orders/{order_id}", h.GetOrder)
	mux.HandleFunc("GET /orders/{order_id}/history", h.GetHistory)
	mux.HandleFunc("POST /orders/{order_id}/status", h.Transition)
	mux.HandleFunc("POST /orders/{order_id}/cancel", h.Cancel)
	mux.HandleFunc("POST /orders/{order_id}/payment", h.PaymentWebhook)
}
