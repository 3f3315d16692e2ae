package handler

import (
	"encoding/json"
	"net/http"

	"chakula-delivery/internal/common/auth"
	"chakula-delivery/internal/common/errs"
	"chakula-delivery/internal/common/logger"
	commonmodel "chakula-delivery/internal/common/model"
	"chakula-delivery/internal/order/handler/dto"
	"chakula-delivery/internal/order/model"
	"chakula-delivery/internal/order/service"
)

type OrderHandler struct {
	OrderService *service.Service
}

func NewOrderHandler(svc *service.Service) *OrderHandler {
	return &OrderHandler{OrderService: svc}
}

func (h *OrderHandler) actor(w http.ResponseWriter, r *http.Request) (commonmodel.Actor, bool) {
	actor, err := auth.ActorFromToken(r.Header.Get("Authorization"))
	if err != nil {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return commonmodel.Actor{}, false
	}
	return actor, true
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	const action = "CreateOrder"
	requestID := r.Header.Get("X-Request-ID")

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req dto.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error(action, "invalid JSON in request body", requestID, "", err.Error())
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	order, err := h.OrderService.Create(r.Context(), actor, req.ToInput())
	if err != nil {
		logger.Error(action, "failed to create order", requestID, "", err.Error())
		http.Error(w, err.Error(), errs.HTTPStatus(err))
		return
	}

	logger.Info(action, "order created successfully", requestID, order.ID)
	writeJSON(w, http.StatusCreated, dto.FromOrder(order))
}

func (h *OrderHandler) Transition(w http.ResponseWriter, r *http.Request) {
	const action = "TransitionOrder"
	requestID := r.Header.Get("X-Request-ID")

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	orderID := r.PathValue("order_id")
	if orderID == "" {
		http.Error(w, "order_id is required", http.StatusBadRequest)
		return
	}

	var req dto.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error(action, "invalid JSON in request body", requestID, orderID, err.Error())
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	order, err := h.OrderService.Transition(r.Context(), actor, orderID, model.OrderStatus(req.Status), req.Notes)
	if err != nil {
		logger.Warn(action, "order transition rejected", requestID, orderID, err.Error())
		http.Error(w, err.Error(), errs.HTTPStatus(err))
		return
	}

	logger.Info(action, "order transitioned successfully", requestID, orderID)
	writeJSON(w, http.StatusOK, dto.FromOrder(order))
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	const action = "CancelOrder"
	requestID := r.Header.Get("X-Request-ID")

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	orderID := r.PathValue("order_id")
	var req dto.CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	order, err := h.OrderService.Transition(r.Context(), actor, orderID, model.OrderCancelled, req.Reason)
	if err != nil {
		logger.Warn(action, "order cancel rejected", requestID, orderID, err.Error())
		http.Error(w, err.Error(), errs.HTTPStatus(err))
		return
	}

	logger.Info(action, "order cancelled", requestID, orderID)
	writeJSON(w, http.StatusOK, dto.FromOrder(order))
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	orderID := r.PathValue("order_id")
	order, err := h.OrderService.Get(r.Context(), orderID)
	if err != nil {
		http.Error(w, err.Error(), errs.HTTPStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	orderID := r.PathValue("order_id")
	history, err := h.OrderService.History(r.Context(), orderID)
	if err != nil {
		http.Error(w, err.Error(), errs.HTTPStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// PaymentWebhook reacts to the external payment service reporting a
// charge or refund outcome.
func (h *OrderHandler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	const action = "PaymentWebhook"
	requestID := r.Header.Get("X-Request-ID")

	orderID := r.PathValue("order_id")
	var req dto.PaymentWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	var err error
	switch req.Result {
	case "paid":
		err = h.OrderService.MarkPaid(r.Context(), orderID)
	case "refunded":
		err = h.OrderService.MarkRefunded(r.Context(), orderID)
	default:
		http.Error(w, "result must be 'paid' or 'refunded'", http.StatusBadRequest)
		return
	}
	if err != nil {
		logger.Warn(action, "payment update rejected", requestID, orderID, err.Error())
		http.Error(w, err.Error(), errs.HTTPStatus(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
