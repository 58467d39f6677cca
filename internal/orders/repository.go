// Package orders archives completed orders in PostgreSQL.
package orders

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/ovenlight/pizzeria-bot/internal/flow"
)

// Repository records completed orders. It implements flow.OrderLog.
type Repository struct {
	db  *sql.DB
	log *slog.Logger
}

var _ flow.OrderLog = (*Repository)(nil)

// NewRepository builds an order archive over the given database.
func NewRepository(db *sql.DB, log *slog.Logger) *Repository {
	if log == nil {
		log = slog.Default()
	}

	return &Repository{db: db, log: log}
}

// Record inserts one completed order. The order id comes from the invoice
// payload, so a redelivered payment notice does not produce a duplicate row.
func (r *Repository) Record(ctx context.Context, order flow.OrderRecord) error {
	const query = `
		INSERT INTO orders (id, chat_id, total, delivery_fee, delivery, lon, lat)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		order.ID, order.ChatID, order.Total, order.DeliveryFee,
		order.Delivery, order.Lon, order.Lat)
	if err != nil {
		r.log.Error("failed to record order", "order_id", order.ID, "error", err)
		return fmt.Errorf("insert order %s: %w", order.ID, err)
	}

	return nil
}
