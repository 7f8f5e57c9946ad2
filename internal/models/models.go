package models

import "time"

// OrderStatus is the lifecycle status persisted on a story order.
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusError      OrderStatus = "error"
)

// Order is one row of the story_orders table. The pipeline reads the
// descriptive attributes once at the start of a run and only ever writes
// status and status_message afterwards.
type Order struct {
	OrderID       string      `json:"order_id"`
	PartnerName   string      `json:"partner_name"`
	StoryTitle    string      `json:"story_title"`
	RecipientSex  string      `json:"recipient_sex"`
	Status        OrderStatus `json:"status"`
	StatusMessage string      `json:"status_message"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// ProcessRequest is the body of POST /process.
type ProcessRequest struct {
	OrderID string `json:"order_id"`
}

// ProcessResponse acknowledges a queued run. It is sent before the
// pipeline does any work; failures are visible only on the order row.
type ProcessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
