package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

const productColumns = `id, title, slug, description, image, categories, size, color, price, listed_by, created_at, updated_at`

type ProductRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) *ProductRepo {
	return &ProductRepo{db: db}
}

func scanProduct(row rowScanner) (*models.Product, error) {
	product := &models.Product{}
	err := row.Scan(
		&product.ID,
		&product.Title,
		&product.Slug,
		&product.Description,
		&product.Image,
		pq.Array(&product.Categories),
		&product.Size,
		&product.Color,
		&product.Price,
		&product.ListedBy,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	return product, err
}

func (r *ProductRepo) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	categories := p.Categories
	if categories == nil {
		categories = []string{}
	}

	query := `
		INSERT INTO products (id, title, slug, description, image, categories, size, color, price, listed_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING ` + productColumns

	product, err := scanProduct(r.db.QueryRowContext(ctx, query,
		p.ID, p.Title, p.Slug, p.Description, p.Image, pq.Array(categories),
		p.Size, p.Color, p.Price, p.ListedBy))
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func (r *ProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// GetMany loads the products with the given ids. Missing ids are absent from
// the returned map.
func (r *ProductRepo) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1::uuid[])`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out[product.ID] = product
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return out, nil
}

func (r *ProductRepo) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	var (
		query string
		args  []any
	)

	switch {
	case filter.Newest > 0:
		query = `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id DESC LIMIT $1`
		args = append(args, filter.Newest)
	case filter.Category != "":
		query = `SELECT ` + productColumns + ` FROM products WHERE $1 = ANY(categories) ORDER BY created_at DESC, id DESC`
		args = append(args, filter.Category)
	default:
		query = `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id DESC`
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// Update applies the non-nil fields of patch. An empty patch only bumps
// updated_at.
func (r *ProductRepo) Update(ctx context.Context, id uuid.UUID, patch models.ProductPatch) (*models.Product, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Slug != nil {
		add("slug", *patch.Slug)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Image != nil {
		add("image", *patch.Image)
	}
	if patch.Categories != nil {
		add("categories", pq.Array(patch.Categories))
	}
	if patch.Size != nil {
		add("size", *patch.Size)
	}
	if patch.Color != nil {
		add("color", *patch.Color)
	}
	if patch.Price != nil {
		add("price", *patch.Price)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE products SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), productColumns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

func (r *ProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}
