package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/safar/storefront/internal/apperr"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

// newestLimit is how many products the "new" listing returns.
const newestLimit = 2

type ListProductsInput struct {
	New      bool
	Category string
}

type CreateProductInput struct {
	Title       string
	Description string
	Image       string
	Categories  []string
	Size        string
	Color       string
	Price       decimal.Decimal
}

type UpdateProductInput struct {
	Title       *string
	Description *string
	Image       *string
	Categories  []string
	Size        *string
	Color       *string
	Price       *decimal.Decimal
}

type CatalogService struct {
	products ProductStore
	cache    ProductCache
	log      *slog.Logger
}

// NewCatalogService wires the catalog. cache may be nil.
func NewCatalogService(products ProductStore, cache ProductCache, log *slog.Logger) *CatalogService {
	return &CatalogService{
		products: products,
		cache:    cache,
		log:      log,
	}
}

// List returns the catalog listing. An empty result is a not-found error.
func (s *CatalogService) List(ctx context.Context, in ListProductsInput) ([]models.Product, error) {
	filter := models.ProductFilter{Category: strings.TrimSpace(in.Category)}
	if in.New {
		filter.Newest = newestLimit
	}

	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("failed to list products", err)
	}
	if len(products) == 0 {
		return nil, apperr.NotFound("no products found")
	}
	return products, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (*models.Product, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.NotFound("product not found")
	}
	return s.get(ctx, productID)
}

func (s *CatalogService) get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if s.cache != nil {
		if product, ok := s.cache.Get(ctx, id); ok {
			return product, nil
		}
	}

	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, apperr.Internal("failed to load product", err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, product)
	}
	return product, nil
}

func (s *CatalogService) Create(ctx context.Context, caller auth.Identity, in CreateProductInput) (*models.Product, error) {
	if err := auth.AuthorizeAdmin(caller); err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || in.Price.IsZero() {
		return nil, apperr.Validation("title and price are required")
	}
	if in.Price.IsNegative() {
		return nil, apperr.Validation("price must not be negative")
	}

	product, err := s.products.Create(ctx, &models.Product{
		Title:       in.Title,
		Slug:        slug.Make(in.Title),
		Description: in.Description,
		Image:       in.Image,
		Categories:  in.Categories,
		Size:        in.Size,
		Color:       in.Color,
		Price:       in.Price,
		ListedBy:    caller.UserID,
	})
	if err != nil {
		return nil, apperr.Internal("failed to create product", err)
	}

	s.log.InfoContext(ctx, "product created", "product_id", product.ID, "listed_by", caller.UserID)
	return product, nil
}

func (s *CatalogService) Update(ctx context.Context, caller auth.Identity, id string, in UpdateProductInput) (*models.Product, error) {
	if err := auth.AuthorizeAdmin(caller); err != nil {
		return nil, err
	}

	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.NotFound("product not found")
	}

	patch := models.ProductPatch{
		Description: in.Description,
		Image:       in.Image,
		Categories:  in.Categories,
		Size:        in.Size,
		Color:       in.Color,
		Price:       in.Price,
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperr.Validation("title must not be empty")
		}
		derived := slug.Make(title)
		patch.Title = &title
		patch.Slug = &derived
	}
	if in.Price != nil && in.Price.IsNegative() {
		return nil, apperr.Validation("price must not be negative")
	}

	product, err := s.products.Update(ctx, productID, patch)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, apperr.Internal("failed to update product", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, productID)
	}
	return product, nil
}

func (s *CatalogService) Delete(ctx context.Context, caller auth.Identity, id string) error {
	if err := auth.AuthorizeAdmin(caller); err != nil {
		return err
	}

	productID, err := uuid.Parse(id)
	if err != nil {
		return apperr.NotFound("product not found")
	}

	if err := s.products.Delete(ctx, productID); err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			return apperr.NotFound("product not found")
		}
		return apperr.Internal("failed to delete product", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, productID)
	}
	s.log.InfoContext(ctx, "product deleted", "product_id", productID)
	return nil
}
