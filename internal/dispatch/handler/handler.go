package handler

import (
	"encoding/json"
	"net/http"

	"chakula-delivery/internal/common/auth"
	"chakula-delivery/internal/common/errs"
	"chakula-delivery/internal/common/logger"
	commonmodel "chakula-delivery/internal/common/model"
	"chakula-delivery/internal/dispatch/handler/dto"
	"chakula-delivery/internal/dispatch/model"
	"chakula-delivery/internal/dispatch/service"
)

type DispatchHandler struct {
	DispatchService *service.Service
}

func NewDispatchHandler(svc *service.Service) *DispatchHandler {
	return &DispatchHandler{DispatchService: svc}
}

func (h *DispatchHandler) actor(w http.ResponseWriter, r *http.Request) (commonmodel.Actor, bool) {
	actor, err := auth.ActorFromToken(r.Header.Get("Authorization"))
	if err != nil {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return commonmodel.Actor{}, false
	}
	return actor, true
}

func (h *DispatchHandler) Assign(w http.ResponseWriter, r *http.Request) {
	const action = "AssignDriver"
	requestID := r.Header.Get("X-Request-ID")

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req dto.AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error(action, "invalid JSON in request body", requestID, "", err.Error())
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.OrderID == "" {
		http.Error(w, "order_id is required", http.StatusBadRequest)
		return
	}

	dispatch, err := h.DispatchService.Assign(r.Context(), actor, req.OrderID, req.DriverID)
	if err != nil {
		logger.Warn(action, "driver assignment rejected", requestID, req.OrderID, err.Error())
		http.Error(w, err.Error(), errs.HTTPStatus(err))
		return
	}

	logger.Info(action, "driver assigned successfully", requestID, req.OrderID)
	writeJSON(w, http.StatusCreated, dispatch)
}

func (h *DispatchHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	const action = "UpdateDispatchStatus"
	requestID := r.Header.Get("X-Request-ID")

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	dispatchID := r.PathValue("dispatch_id")
	var req dto.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error(action, "invalid JSON in request body", requestID, "", err.Error())
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	dispatch, err := h.DispatchService.UpdateStatus(r.Context(), actor, dispatchID, model.DispatchStatus(req.Status), req.Lat, req.Lng, req.Notes)
	if err != nil {
		logger.Warn(action, "dispatch transition rejected", requestID, "", err.Error())
		http.Error(w, err.Error(), errs.HTTPStatus(err))
		return
	}

	logger.Info(action, "dispatch transitioned successfully", requestID, dispatch.OrderID)
	writeJSON(w, http.StatusOK, dispatch)
}

func (h *DispatchHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	const action = "DispatchFeedback"
	requestID := r.Header.Get("X-Request-ID")

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	dispatchID := r.PathValue("dispatch_id")
	var req dto.FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	dispatch, err := h.DispatchService.RecordFeedback(r.Context(), actor, dispatchID, req.Rating, req.Feedback)
	if err != nil {
		logger.Warn(action, "feedback rejected", requestID, "", err.Error())
		http.Error(w, err.Error(), errs.HTTPStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, dispatch)
}

func (h *DispatchHandler) GetDispatch(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	dispatch, err := h.DispatchService.Get(r.Context(), r.PathValue("dispatch_id"))
	if err != nil {
		http.Error(w, err.Error(), errs.HTTPStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, dispatch)
}

func (h *DispatchHandler) GetByOrder(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	dispatch, err := h.DispatchService.GetByOrder(r.Context(), r.PathValue("order_id"))
	if err != nil {
		http.Error(w, err.Error(), errs.HTTPStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, dispatch)
}

func (h *DispatchHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	history, err := h.DispatchService.History(r.Context(), r.PathValue("dispatch_id"))
	if err != nil {
		http.Error(w, err.Error(), errs.HTTPStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
