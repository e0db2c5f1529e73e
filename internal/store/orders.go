package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/storefront/internal/models"
)

const orderColumns = `id, user_id, items, payment_intent, address, email, contact, order_status, created_at`

type OrderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID,
		&order.OrderBy,
		&order.Products,
		&order.PaymentIntent,
		&order.Address,
		&order.Email,
		&order.Contact,
		&order.OrderStatus,
		&order.CreatedAt,
	)
	return order, err
}

func (r *OrderRepo) Create(ctx context.Context, o *models.Order) (*models.Order, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}

	query := `
		INSERT INTO orders (id, user_id, items, payment_intent, address, email, contact, order_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING ` + orderColumns

	order, err := scanOrder(r.db.QueryRowContext(ctx, query,
		o.ID, o.OrderBy, o.Products, o.PaymentIntent, o.Address, o.Email, o.Contact, o.OrderStatus))
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return order, nil
}

// ListByUser returns every order placed by userID, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}
