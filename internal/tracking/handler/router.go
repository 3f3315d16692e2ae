package handler

import "net/http"

func SetupRoutes(mux *http.ServeMux, h *TrackingHandler) {
	mux.HandleFunc("POST /tracking/sessions", h.Start)
	mux.HandleFunc("GET /tracking/sessions/{session_id}", h.GetSession)
	mux.HandleFunc("GET /tracking/sessions/{session_id}/events", h.GetEvents)
	mux.HandleFunc("POST /tracking/sessions/{session_id}/location", h.IngestLocation)
	mux.HandleFunc("POST /tracking/sessions/{session_id}/end", h.End)
	mux.HandleFunc("GET /orders/{order_id}/tracking", h.GetActiveByOrder)
}
