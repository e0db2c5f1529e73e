package api

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/apperr"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/service"
)

type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	GetUser(ctx context.Context, caller auth.Identity, id string) (*models.User, error)
}

type CatalogService interface {
	List(ctx context.Context, in service.ListProductsInput) ([]models.Product, error)
	Get(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, caller auth.Identity, in service.CreateProductInput) (*models.Product, error)
	Update(ctx context.Context, caller auth.Identity, id string, in service.UpdateProductInput) (*models.Product, error)
	Delete(ctx context.Context, caller auth.Identity, id string) error
}

type CartService interface {
	AddItem(ctx context.Context, caller auth.Identity, in service.AddItemInput) (*models.Cart, bool, error)
	GetCart(ctx context.Context, caller auth.Identity) (*models.Cart, error)
	RemoveItem(ctx context.Context, caller auth.Identity, productID string) (*models.Cart, error)
	UpdateQuantity(ctx context.Context, caller auth.Identity, productID string, quantity int) (*models.Cart, error)
	DeleteCart(ctx context.Context, caller auth.Identity) error
}

type OrderService interface {
	CreateOrder(ctx context.Context, caller auth.Identity, in service.CreateOrderInput) (*models.Order, error)
	GetUserOrders(ctx context.Context, caller auth.Identity) ([]models.OrderView, error)
}

// Handlers groups the HTTP handlers over the storefront services.
type Handlers struct {
	auth    AuthService
	catalog CatalogService
	carts   CartService
	orders  OrderService
}

func NewHandlers(authSvc AuthService, catalog CatalogService, carts CartService, orders OrderService) *Handlers {
	return &Handlers{
		auth:    authSvc,
		catalog: catalog,
		carts:   carts,
		orders:  orders,
	}
}

// bindJSON decodes the body into v. On failure it records a validation
// error and reports false. A field of the wrong JSON type is named in the
// message; anything else carries msg.
func bindJSON(c *gin.Context, v any, msg string) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			msg = "invalid value for " + typeErr.Field
		}
		_ = c.Error(&apperr.Error{Kind: apperr.KindValidation, Message: msg, Err: err})
		return false
	}
	return true
}

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}
