package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safar/storefront/internal/apperr"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/metrics"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

type CreateOrderInput struct {
	Address string
	Email   string
	Contact string
	// CartTotal is what the client believes the cart costs. It is only
	// compared against the computed amount.
	CartTotal *decimal.Decimal
}

type OrderService struct {
	orders   OrderStore
	carts    CartStore
	products ProductStore
	users    UserStore
	log      *slog.Logger
	now      func() time.Time
}

func NewOrderService(orders OrderStore, carts CartStore, products ProductStore, users UserStore, log *slog.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		carts:    carts,
		products: products,
		users:    users,
		log:      log,
		now:      time.Now,
	}
}

func newPaymentID() string {
	return "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CreateOrder snapshots the caller's cart into a cash-on-delivery order.
// The cart is left untouched.
func (s *OrderService) CreateOrder(ctx context.Context, caller auth.Identity, in CreateOrderInput) (*models.Order, error) {
	in.Address = strings.TrimSpace(in.Address)
	in.Email = strings.TrimSpace(in.Email)
	in.Contact = strings.TrimSpace(in.Contact)
	if in.Address == "" || in.Email == "" || in.Contact == "" {
		return nil, apperr.Validation("address, email and contact are required")
	}

	cart, err := s.carts.GetByUser(ctx, caller.UserID)
	if err != nil && !errors.Is(err, database.ErrCartNotFound) {
		return nil, apperr.Internal("failed to load cart", err)
	}
	if cart == nil || len(cart.Products) == 0 {
		return nil, apperr.Validation("user cart is empty")
	}

	items := make(models.LineItems, len(cart.Products))
	copy(items, cart.Products)
	amount := items.Total()

	if in.CartTotal != nil && !in.CartTotal.Equal(amount) {
		metrics.OrderTotalMismatchTotal.Inc()
		s.log.WarnContext(ctx, "client cart total differs from computed amount",
			"user_id", caller.UserID,
			"client_total", in.CartTotal.String(),
			"computed_total", amount.String(),
		)
	}

	order, err := s.orders.Create(ctx, &models.Order{
		Products: items,
		PaymentIntent: models.PaymentIntent{
			ID:       newPaymentID(),
			Method:   models.PaymentMethodCOD,
			Amount:   amount,
			Status:   models.PaymentStatusCOD,
			Created:  s.now().UnixMilli(),
			Currency: models.CurrencyUSD,
		},
		OrderBy:     caller.UserID,
		Address:     in.Address,
		Email:       in.Email,
		Contact:     in.Contact,
		OrderStatus: models.OrderStatusCOD,
	})
	if err != nil {
		return nil, apperr.Internal("failed to create order", err)
	}

	metrics.OrdersCreatedTotal.Inc()
	s.log.InfoContext(ctx, "order created",
		"order_id", order.ID,
		"user_id", caller.UserID,
		"amount", amount.String(),
		"lines", len(items),
	)
	return order, nil
}

// GetUserOrders returns the caller's orders with the ordering user and the
// line item products resolved to their current records.
func (s *OrderService) GetUserOrders(ctx context.Context, caller auth.Identity) ([]models.OrderView, error) {
	orders, err := s.orders.ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, apperr.Internal("failed to list orders", err)
	}
	if len(orders) == 0 {
		return nil, apperr.NotFound("no orders found")
	}

	user, err := s.users.GetByID(ctx, caller.UserID)
	if err != nil && !errors.Is(err, database.ErrUserNotFound) {
		return nil, apperr.Internal("failed to load user", err)
	}

	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, o := range orders {
		for _, item := range o.Products {
			if _, ok := seen[item.ProductID]; !ok {
				seen[item.ProductID] = struct{}{}
				ids = append(ids, item.ProductID)
			}
		}
	}
	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("failed to load order products", err)
	}

	views := make([]models.OrderView, 0, len(orders))
	for _, o := range orders {
		lines := make([]models.ResolvedLineItem, 0, len(o.Products))
		for _, item := range o.Products {
			lines = append(lines, models.ResolvedLineItem{LineItem: item, Product: products[item.ProductID]})
		}
		views = append(views, models.OrderView{
			ID:            o.ID,
			Products:      lines,
			PaymentIntent: o.PaymentIntent,
			OrderBy:       user,
			Address:       o.Address,
			Email:         o.Email,
			Contact:       o.Contact,
			OrderStatus:   o.OrderStatus,
			CreatedAt:     o.CreatedAt,
		})
	}
	return views, nil
}
