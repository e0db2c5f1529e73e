package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

type rowScanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, username, email, password_hash, is_admin, created_at, updated_at`

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

// Create inserts u. A username or email collision is reported as
// database.ErrDuplicate with the underlying *pq.Error still in the chain.
func (r *UserRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRowContext(ctx, query, u.ID, u.Username, u.Email, u.PasswordHash, u.IsAdmin))
	if err != nil {
		if _, ok := database.UniqueViolation(err); ok {
			return nil, fmt.Errorf("create user: %w: %w", database.ErrDuplicate, err)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return user, nil
}

// Taken reports whether username or email is already registered.
func (r *UserRepo) Taken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error) {
	query := `
		SELECT
			EXISTS(SELECT 1 FROM users WHERE username = $1),
			EXISTS(SELECT 1 FROM users WHERE email = $2)`

	err = r.db.QueryRowContext(ctx, query, username, email).Scan(&usernameTaken, &emailTaken)
	if err != nil {
		return false, false, fmt.Errorf("check user uniqueness: %w", err)
	}

	return usernameTaken, emailTaken, nil
}
