package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"chakula-delivery/internal/common/auth"
	"chakula-delivery/internal/common/errs"
	"chakula-delivery/internal/common/logger"
	commonmodel "chakula-delivery/internal/common/model"
	"chakula-delivery/internal/tracking/handler/dto"
	"chakula-delivery/internal/tracking/service"
)

type TrackingHandler struct {
	TrackingService *service.Service
}

func NewTrackingHandler(svc *service.Service) *TrackingHandler {
	return &TrackingHandler{TrackingService: svc}
}

func (h *TrackingHandler) actor(w http.ResponseWriter, r *http.Request) (commonmodel.Actor, bool) {
	actor, err := auth.ActorFromToken(r.Header.Get("Authorization"))
	if err != nil {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return commonmodel.Actor{}, false
	}
	return actor, true
}

func (h *TrackingHandler) Start(w http.ResponseWriter, r *http.Request) {
	const action = "StartTracking"
	requestID := r.Header.Get("X-Request-ID")

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req dto.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.OrderID == "" {
		http.Error(w, "order_id is required", http.StatusBadRequest)
		return
	}

	session, err := h.TrackingService.Start(r.Context(), actor, req.OrderID)
	if err != nil {
		logger.Warn(action, "failed to start tracking session", requestID, req.OrderID, err.Error())
		http.Error(w, err.Error(), errs.HTTPStatus(err))
		return
	}

	logger.Info(action, "tracking session started", requestID, req.OrderID)
	writeJSON(w, http.StatusCreated, session)
}

// IngestLocation is the driver ping endpoint. Missing lat/lng is
// rejected here so a malformed payload never reaches the session.
func (h *TrackingHandler) IngestLocation(w http.ResponseWriter, r *http.Request) {
	const action = "IngestLocation"
	requestID := r.Header.Get("X-Request-ID")

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	sessionID := r.PathValue("session_id")
	var req dto.LocationPingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Lat == nil || req.Lng == nil {
		http.Error(w, "lat and lng are required", http.StatusBadRequest)
		return
	}

	ping := service.LocationPing{
		Lat:            *req.Lat,
		Lng:            *req.Lng,
		AccuracyM:      req.AccuracyM,
		SpeedKmh:       req.SpeedKmh,
		HeadingDegrees: req.HeadingDegrees,
	}
	if req.Timestamp != nil {
		ping.At = *req.Timestamp
	} else {
		ping.At = time.Now()
	}

	session, err := h.TrackingService.IngestLocation(r.Context(), actor, sessionID, ping)
	if err != nil {
		logger.Warn(action, "location ping rejected", requestID, "", err.Error())
		http.Error(w, err.Error(), errs.HTTPStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (h *TrackingHandler) End(w http.ResponseWriter, r *http.Request) {
	const action = "EndTracking"
	requestID := r.Header.Get("X-Request-ID")

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	session, err := h.TrackingService.End(r.Context(), actor, r.PathValue("session_id"))
	if err != nil {
		logger.Warn(action, "failed to end tracking session", requestID, "", err.Error())
		http.Error(w, err.Error(), errs.HTTPStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (h *TrackingHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	session, err := h.TrackingService.Get(r.Context(), r.PathValue("session_id"))
	if err != nil {
		http.Error(w, err.Error(), errs.HTTPStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *TrackingHandler) GetActiveByOrder(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	session, err := h.TrackingService.GetActiveByOrder(r.Context(), r.PathValue("order_id"))
	if err != nil {
		http.Error(w, err.Error(), errs.HTTPStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *TrackingHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	events, err := h.TrackingService.Events(r.Context(), r.PathValue("session_id"))
	if err != nil {
		http.Error(w, err.Error(), errs.HTTPStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
