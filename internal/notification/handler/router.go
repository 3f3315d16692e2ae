package handler

import "net/http"

func SetupRoutes(mux *http.ServeMux, h *NotificationHandler) {
	mux.HandleFunc("GET /notifications", h.List)
	mux.HandleFunc("GET /notifications/preferences", h.GetPreferences)
	mux.HandleFunc("PUT /notifications/preferences", h.UpdatePreferences)
}
