package handler

import "net/http"

func SetupRoutes(mux *http.ServeMux, h *DispatchHandler) {
	mux.HandleFunc("POST /dispatches", h.Assign)
	mux.HandleFunc("GET /dispatches/{dispatch_id}", h.GetDispatch)
	mux.HandleFunc("GET /dispatches/{dispatch_id}/history", h.GetHistory)
	mux.HandleFunc("POST /dispatches/{dispatch_id}/status", h.UpdateStatus)
	mux.HandleFunc("POST /dispatches/{dispatch_id}/feedback", h.Feedback)
	mux.HandleFunc("GET /orders/{order_id}/dispatch", h.GetByOrder)
}
