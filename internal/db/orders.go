package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prezentinnynizwszystkie-ctrl/render/internal/models"
)

// ErrOrderNotFound is returned when no story_orders row exists for an id.
var ErrOrderNotFound = fmt.Errorf("order not found")

func (db *DB) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	query := `
		SELECT
			order_id, partner_name, story_title, recipient_sex,
			status, status_message, created_at, updated_at
		FROM story_orders
		WHERE order_id = $1
	`

	order := &models.Order{}
	err := db.QueryRowContext(ctx, query, orderID).Scan(
		&order.OrderID, &order.PartnerName, &order.StoryTitle, &order.RecipientSex,
		&order.Status, &order.StatusMessage, &order.CreatedAt, &order.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return order, nil
}

// UpdateOrderStatus overwrites status and status_message unconditionally.
// No history is kept; the latest write wins.
func (db *DB) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus, message string) error {
	query := `
		UPDATE story_orders
		SET status = $1, status_message = $2, updated_at = NOW()
		WHERE order_id = $3
	`
	_, err := db.ExecContext(ctx, query, status, message, orderID)
	return err
}
