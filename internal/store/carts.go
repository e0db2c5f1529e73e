package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

const cartColumns = `id, user_id, items, created_at, updated_at`

type CartRepo struct {
	db *sql.DB
}

func NewCartRepo(db *sql.DB) *CartRepo {
	return &CartRepo{db: db}
}

func scanCart(row rowScanner) (*models.Cart, error) {
	cart := &models.Cart{}
	err := row.Scan(
		&cart.ID,
		&cart.UserID,
		&cart.Products,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	return cart, err
}

func (r *CartRepo) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	query := `SELECT ` + cartColumns + ` FROM carts WHERE user_id = $1`

	cart, err := scanCart(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, database.ErrCartNotFound
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	return cart, nil
}

// EnsureForUser creates an empty cart for userID unless one exists. It
// reports whether a row was inserted.
func (r *CartRepo) EnsureForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	return ensureCart(ctx, r.db, userID)
}

func ensureCart(ctx context.Context, q database.Querier, userID uuid.UUID) (bool, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO carts (id, user_id, items, created_at, updated_at)
		 VALUES ($1, $2, '[]', NOW(), NOW())
		 ON CONFLICT (user_id) DO NOTHING`,
		uuid.New(), userID)
	if err != nil {
		return false, fmt.Errorf("ensure cart: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// Mutate locks the user's cart row, hands it to fn and persists the line
// items fn leaves behind, all in one transaction. With create set, a missing
// cart is created first; otherwise a missing cart yields
// database.ErrCartNotFound. If fn fails nothing is written, including the
// created cart. fn may run more than once when the transaction is retried.
func (r *CartRepo) Mutate(ctx context.Context, userID uuid.UUID, create bool, fn func(*models.Cart) error) (*models.Cart, bool, error) {
	var (
		cart    *models.Cart
		created bool
	)

	err := database.WithTx(ctx, r.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		created = false
		if create {
			inserted, err := ensureCart(ctx, tx, userID)
			if err != nil {
				return err
			}
			created = inserted
		}

		current, err := scanCart(tx.QueryRowContext(ctx,
			`SELECT `+cartColumns+` FROM carts WHERE user_id = $1 FOR UPDATE`, userID))
		if err != nil {
			if database.IsNoRows(err) {
				return database.ErrCartNotFound
			}
			return fmt.Errorf("lock cart: %w", err)
		}

		if err := fn(current); err != nil {
			return err
		}

		err = tx.QueryRowContext(ctx,
			`UPDATE carts SET items = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at`,
			current.Products, current.ID).Scan(&current.UpdatedAt)
		if err != nil {
			return fmt.Errorf("save cart: %w", err)
		}

		cart = current
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return cart, created, nil
}

func (r *CartRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrCartNotFound
	}

	return nil
}
