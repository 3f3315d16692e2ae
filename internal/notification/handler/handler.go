package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"chakula-delivery/internal/common/auth"
	"chakula-delivery/internal/common/errs"
	commonmodel "chakula-delivery/internal/common/model"
	"chakula-delivery/internal/notification/model"
	"chakula-delivery/internal/notification/service"
)

type NotificationHandler struct {
	NotificationService *service.Service
}

func NewNotificationHandler(svc *service.Service) *NotificationHandler {
	return &NotificationHandler{NotificationService: svc}
}

func (h *NotificationHandler) actor(w http.ResponseWriter, r *http.Request) (commonmodel.Actor, bool) {
	actor, err := auth.ActorFromToken(r.Header.Get("Authorization"))
	if err != nil {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return commonmodel.Actor{}, false
	}
	return actor, true
}

// List returns the caller's own notification queue, newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	notifications, err := h.NotificationService.ListForRecipient(r.Context(), actor.ID, limit)
	if err != nil {
		http.Error(w, err.Error(), errs.HTTPStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (h *NotificationHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	prefs, err := h.NotificationService.GetPreferences(r.Context(), actor.ID)
	if err != nil {
		http.Error(w, err.Error(), errs.HTTPStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (h *NotificationHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var prefs model.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	prefs.UserID = actor.ID

	if err := h.NotificationService.UpdatePreferences(r.Context(), &prefs); err != nil {
		http.Error(w, err.Error(), errs.HTTPStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
