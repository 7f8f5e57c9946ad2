package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prezentinnynizwszystkie-ctrl/render/internal/db"
	"github.com/prezentinnynizwszystkie-ctrl/render/internal/models"
	"github.com/prezentinnynizwszystkie-ctrl/render/internal/queue"
)

// Enqueuer queues a pipeline run for an order and reports queue depth.
type Enqueuer interface {
	EnqueueProcessOrder(ctx context.Context, orderID string) error
	GetQueueLength(ctx context.Context, queueName string) (int64, error)
}

// OrderReader reads an order row back for status polling.
type OrderReader interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
}

type Handler struct {
	orders OrderReader
	queue  Enqueuer
}

func NewHandler(orders OrderReader, q Enqueuer) *Handler {
	return &Handler{
		orders: orders,
		queue:  q,
	}
}

// Process handles POST /process. It queues the assembly run and responds
// before any work happens; run failures are visible only on the order row.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	var req models.ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.OrderID == "" {
		respondError(w, http.StatusBadRequest, "order_id is required")
		return
	}

	if err := h.queue.EnqueueProcessOrder(r.Context(), req.OrderID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue order")
		return
	}

	respondJSON(w, http.StatusOK, models.ProcessResponse{
		Status:  "started",
		Message: fmt.Sprintf("order %s queued for processing", req.OrderID),
	})
}

// GetOrder handles GET /orders/{orderID}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "order_id is required")
		return
	}

	order, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, db.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "Order not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to get order")
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health handles GET /health. Queue depth is best effort: a Redis hiccup
// should not fail the health probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "ok"}

	if depth, err := h.queue.GetQueueLength(r.Context(), queue.QueueProcessOrder); err == nil {
		resp["queue_depth"] = depth
	}

	respondJSON(w, http.StatusOK, resp)
}
