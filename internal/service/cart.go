package service

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"github.com/safar/storefront/internal/apperr"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/metrics"
	"github.com/safar/storefront/internal/models"
)

type AddItemInput struct {
	ProductID string
	Quantity  int
}

type CartService struct {
	carts    CartStore
	products ProductStore
	log      *slog.Logger
}

func NewCartService(carts CartStore, products ProductStore, log *slog.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		log:      log,
	}
}

func errItemNotInCart() error {
	return apperr.Validation("item does not exist in cart")
}

func cartStoreErr(err error, msg string) error {
	if errors.Is(err, database.ErrCartNotFound) {
		return apperr.NotFound("cart not found for this user")
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(msg, err)
}

// AddItem merges quantity of the product into the caller's cart, creating
// the cart when needed. Title, image and price are snapshotted from the
// catalog when the line is first added. created reports whether the cart
// itself was created by this call.
func (s *CartService) AddItem(ctx context.Context, caller auth.Identity, in AddItemInput) (cart *models.Cart, created bool, err error) {
	defer func() { metrics.CartMutationsTotal.WithLabelValues("add", metrics.Outcome(err)).Inc() }()

	productID, err := uuid.Parse(in.ProductID)
	if err != nil || productID == uuid.Nil {
		return nil, false, apperr.Validation("invalid product")
	}
	if in.Quantity < 1 {
		return nil, false, apperr.Validation("quantity must be a positive integer")
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			return nil, false, apperr.NotFound("product not found")
		}
		return nil, false, apperr.Internal("failed to load product", err)
	}

	cart, created, err = s.carts.Mutate(ctx, caller.UserID, true, func(c *models.Cart) error {
		if i := c.Products.IndexOf(productID); i >= 0 {
			if c.Products[i].Quantity > math.MaxInt-in.Quantity {
				return apperr.Validation("quantity too large")
			}
			c.Products[i].Quantity += in.Quantity
			return nil
		}
		c.Products = append(c.Products, models.LineItem{
			ProductID: product.ID,
			Title:     product.Title,
			Image:     product.Image,
			Price:     product.Price,
			Quantity:  in.Quantity,
		})
		return nil
	})
	if err != nil {
		return nil, false, cartStoreErr(err, "failed to add item to cart")
	}

	return cart, created, nil
}

func (s *CartService) GetCart(ctx context.Context, caller auth.Identity) (*models.Cart, error) {
	cart, err := s.carts.GetByUser(ctx, caller.UserID)
	if err != nil {
		return nil, cartStoreErr(err, "failed to load cart")
	}
	return cart, nil
}

func (s *CartService) RemoveItem(ctx context.Context, caller auth.Identity, productID string) (cart *models.Cart, err error) {
	defer func() { metrics.CartMutationsTotal.WithLabelValues("remove", metrics.Outcome(err)).Inc() }()

	// A malformed id can never match a line; uuid.Nil keeps the
	// cart-not-found check ahead of the item check.
	id, _ := uuid.Parse(productID)

	cart, _, err = s.carts.Mutate(ctx, caller.UserID, false, func(c *models.Cart) error {
		i := c.Products.IndexOf(id)
		if id == uuid.Nil || i < 0 {
			return errItemNotInCart()
		}
		c.Products = append(c.Products[:i], c.Products[i+1:]...)
		return nil
	})
	if err != nil {
		return nil, cartStoreErr(err, "failed to remove item from cart")
	}
	return cart, nil
}

// UpdateQuantity overwrites the quantity of an existing line verbatim. Zero
// and negative values are stored as given.
func (s *CartService) UpdateQuantity(ctx context.Context, caller auth.Identity, productID string, quantity int) (cart *models.Cart, err error) {
	defer func() { metrics.CartMutationsTotal.WithLabelValues("update_quantity", metrics.Outcome(err)).Inc() }()

	id, _ := uuid.Parse(productID)

	cart, _, err = s.carts.Mutate(ctx, caller.UserID, false, func(c *models.Cart) error {
		i := c.Products.IndexOf(id)
		if id == uuid.Nil || i < 0 {
			return errItemNotInCart()
		}
		c.Products[i].Quantity = quantity
		return nil
	})
	if err != nil {
		return nil, cartStoreErr(err, "failed to update cart item")
	}
	return cart, nil
}

func (s *CartService) DeleteCart(ctx context.Context, caller auth.Identity) (err error) {
	defer func() { metrics.CartMutationsTotal.WithLabelValues("delete", metrics.Outcome(err)).Inc() }()

	if err := s.carts.DeleteByUser(ctx, caller.UserID); err != nil {
		return cartStoreErr(err, "failed to delete cart")
	}
	return nil
}
