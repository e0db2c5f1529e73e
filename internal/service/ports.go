// Package service implements the storefront's business rules on top of the
// repositories. Every protected operation takes the caller's auth.Identity
// as an explicit argument.
package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/models"
)

type UserStore interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Taken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error)
}

type ProductStore interface {
	Create(ctx context.Context, p *models.Product) (*models.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	Update(ctx context.Context, id uuid.UUID, patch models.ProductPatch) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type CartStore interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	EnsureForUser(ctx context.Context, userID uuid.UUID) (bool, error)
	Mutate(ctx context.Context, userID uuid.UUID, create bool, fn func(*models.Cart) error) (*models.Cart, bool, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type OrderStore interface {
	Create(ctx context.Context, o *models.Order) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
}

// ProductCache is an optional read-through cache in front of ProductStore.
type ProductCache interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, bool)
	Set(ctx context.Context, p *models.Product)
	Invalidate(ctx context.Context, id uuid.UUID)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Matches(hash, password string) (bool, error)
}

type TokenSigner interface {
	Issue(id auth.Identity) (string, error)
}
