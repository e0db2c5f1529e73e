package service

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/safar/storefront/internal/apperr"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

var admin = auth.Identity{UserID: uuid.New(), IsAdmin: true}

func assertKind(t *testing.T, err error, want apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected %s error, got nil", want)
	}
	if got := apperr.KindOf(err); got != want {
		t.Fatalf("Expected %s error, got %s (%v)", want, got, err)
	}
}

func (h *harness) register(t *testing.T, username, email string) *models.User {
	t.Helper()
	user, err := h.auth.Register(context.Background(), RegisterInput{Username: username, Email: email, Password: "secret"})
	if err != nil {
		t.Fatalf("Register(%s): %v", username, err)
	}
	return user
}

func (h *harness) product(t *testing.T, title, price string, categories ...string) *models.Product {
	t.Helper()
	p, err := h.catalog.Create(context.Background(), admin, CreateProductInput{
		Title:      title,
		Price:      decimal.RequireFromString(price),
		Categories: categories,
	})
	if err != nil {
		t.Fatalf("Create product %s: %v", title, err)
	}
	return p
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	cases := []RegisterInput{
		{Email: "a@example.com", Password: "x"},
		{Username: "ann", Password: "x"},
		{Username: "ann", Email: "a@example.com"},
		{Username: "   ", Email: "a@example.com", Password: "x"},
	}
	for _, in := range cases {
		_, err := h.auth.Register(ctx, in)
		assertKind(t, err, apperr.KindValidation)
	}
}

func TestRegisterPasswordLength(t *testing.T) {
	h := newHarness()
	h.auth.hasher = auth.NewPasswordHasher(4)
	ctx := context.Background()

	_, err := h.auth.Register(ctx, RegisterInput{Username: "ann", Email: "a@example.com", Password: strings.Repeat("a", auth.MaxPasswordBytes+1)})
	assertKind(t, err, apperr.KindValidation)
	if len(h.store.users) != 0 {
		t.Fatalf("Expected no user stored, got %d", len(h.store.users))
	}

	if _, err := h.auth.Register(ctx, RegisterInput{Username: "ann", Email: "a@example.com", Password: strings.Repeat("a", auth.MaxPasswordBytes)}); err != nil {
		t.Fatalf("Expected a %d byte password to register, got %v", auth.MaxPasswordBytes, err)
	}
}

func TestRegisterConflict(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.register(t, "ann", "ann@example.com")

	_, err := h.auth.Register(ctx, RegisterInput{Username: "ann", Email: "other@example.com", Password: "y", IsAdmin: true})
	assertKind(t, err, apperr.KindConflict)
	if err.Error() != "username already taken" {
		t.Errorf("Unexpected message %q", err.Error())
	}

	_, err = h.auth.Register(ctx, RegisterInput{Username: "bob", Email: "ann@example.com", Password: "y"})
	assertKind(t, err, apperr.KindConflict)
	if err.Error() != "email already taken" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestRegisterHashesPassword(t *testing.T) {
	h := newHarness()
	user := h.register(t, "ann", "ann@example.com")
	if user.PasswordHash == "secret" {
		t.Error("Password stored in plain text")
	}
}

func TestLogin(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	user := h.register(t, "ann", "ann@example.com")

	t.Run("wrong password", func(t *testing.T) {
		res, err := h.auth.Login(ctx, "ann@example.com", "nope")
		assertKind(t, err, apperr.KindAuth)
		if res != nil {
			t.Error("No token may be issued on failure")
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := h.auth.Login(ctx, "ghost@example.com", "secret")
		assertKind(t, err, apperr.KindNotFound)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := h.auth.Login(ctx, "", "secret")
		assertKind(t, err, apperr.KindValidation)
	})

	t.Run("success creates cart", func(t *testing.T) {
		res, err := h.auth.Login(ctx, "ann@example.com", "secret")
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		id, err := h.tokens.Verify(res.AccessToken)
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if id.UserID != user.ID || id.IsAdmin {
			t.Errorf("Unexpected identity %+v", id)
		}
		cart, err := h.carts.GetCart(ctx, id)
		if err != nil {
			t.Fatalf("GetCart after login: %v", err)
		}
		if len(cart.Products) != 0 {
			t.Errorf("Expected empty cart, got %d lines", len(cart.Products))
		}
	})
}

func TestGetUserOwnerOrAdmin(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	ann := h.register(t, "ann", "ann@example.com")
	bob := h.register(t, "bob", "bob@example.com")

	if _, err := h.auth.GetUser(ctx, auth.Identity{UserID: ann.ID}, ann.ID.String()); err != nil {
		t.Errorf("Owner lookup failed: %v", err)
	}
	if _, err := h.auth.GetUser(ctx, admin, ann.ID.String()); err != nil {
		t.Errorf("Admin lookup failed: %v", err)
	}
	_, err := h.auth.GetUser(ctx, auth.Identity{UserID: bob.ID}, ann.ID.String())
	assertKind(t, err, apperr.KindForbidden)
}

func TestCatalogList(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.catalog.List(ctx, ListProductsInput{})
	assertKind(t, err, apperr.KindNotFound)

	h.product(t, "Mug", "10", "kitchen")
	h.product(t, "Shirt", "20", "clothes")
	newest := h.product(t, "Pan", "30", "kitchen")

	all, err := h.catalog.List(ctx, ListProductsInput{})
	if err != nil || len(all) != 3 {
		t.Fatalf("Expected 3 products, got %d (%v)", len(all), err)
	}

	fresh, err := h.catalog.List(ctx, ListProductsInput{New: true})
	if err != nil || len(fresh) != 2 || fresh[0].ID != newest.ID {
		t.Fatalf("Unexpected newest listing %+v (%v)", fresh, err)
	}

	kitchen, err := h.catalog.List(ctx, ListProductsInput{Category: "kitchen"})
	if err != nil || len(kitchen) != 2 {
		t.Fatalf("Expected 2 kitchen products, got %d (%v)", len(kitchen), err)
	}

	_, err = h.catalog.List(ctx, ListProductsInput{Category: "garden"})
	assertKind(t, err, apperr.KindNotFound)
}

func TestCatalogCreate(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.catalog.Create(ctx, auth.Identity{UserID: uuid.New()}, CreateProductInput{Title: "Mug", Price: decimal.NewFromInt(1)})
	assertKind(t, err, apperr.KindForbidden)

	_, err = h.catalog.Create(ctx, admin, CreateProductInput{Price: decimal.NewFromInt(1)})
	assertKind(t, err, apperr.KindValidation)

	_, err = h.catalog.Create(ctx, admin, CreateProductInput{Title: "Mug"})
	assertKind(t, err, apperr.KindValidation)

	p := h.product(t, "Coffee Mug XL", "9.99")
	if p.Slug != "coffee-mug-xl" {
		t.Errorf("Expected slug coffee-mug-xl, got %q", p.Slug)
	}
	if p.ListedBy != admin.UserID {
		t.Errorf("Expected listedBy %s, got %s", admin.UserID, p.ListedBy)
	}
}

func TestCatalogUpdateAndCache(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p := h.product(t, "Mug", "10")

	if _, err := h.catalog.Get(ctx, p.ID.String()); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := h.catalog.Get(ctx, p.ID.String()); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if h.cache.hits != 1 {
		t.Errorf("Expected second read to hit the cache, hits=%d", h.cache.hits)
	}

	title := "Tall Mug"
	updated, err := h.catalog.Update(ctx, admin, p.ID.String(), UpdateProductInput{Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Slug != "tall-mug" || !updated.Price.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Unexpected product after update %+v", updated)
	}

	got, err := h.catalog.Get(ctx, p.ID.String())
	if err != nil || got.Title != title {
		t.Fatalf("Expected fresh title after invalidation, got %+v (%v)", got, err)
	}

	_, err = h.catalog.Update(ctx, admin, uuid.NewString(), UpdateProductInput{Title: &title})
	assertKind(t, err, apperr.KindNotFound)
}

func TestCatalogDelete(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p := h.product(t, "Mug", "10")

	if err := h.catalog.Delete(ctx, admin, p.ID.String()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	assertKind(t, h.catalog.Delete(ctx, admin, p.ID.String()), apperr.KindNotFound)

	_, err := h.catalog.Get(ctx, p.ID.String())
	assertKind(t, err, apperr.KindNotFound)

	_, err = h.catalog.Get(ctx, "not-a-uuid")
	assertKind(t, err, apperr.KindNotFound)
}

func TestAddItemValidation(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	user := auth.Identity{UserID: uuid.New()}
	p := h.product(t, "Mug", "10")

	_, _, err := h.carts.AddItem(ctx, user, AddItemInput{ProductID: "", Quantity: 1})
	assertKind(t, err, apperr.KindValidation)

	_, _, err = h.carts.AddItem(ctx, user, AddItemInput{ProductID: "abc", Quantity: 1})
	assertKind(t, err, apperr.KindValidation)

	_, _, err = h.carts.AddItem(ctx, user, AddItemInput{ProductID: uuid.NewString(), Quantity: 1})
	assertKind(t, err, apperr.KindNotFound)

	_, _, err = h.carts.AddItem(ctx, user, AddItemInput{ProductID: p.ID.String(), Quantity: 0})
	assertKind(t, err, apperr.KindValidation)

	_, err = h.carts.GetCart(ctx, user)
	assertKind(t, err, apperr.KindNotFound)
}

func TestAddItemMergesSameProduct(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	user := auth.Identity{UserID: uuid.New()}
	p := h.product(t, "Mug", "10")

	cart, created, err := h.carts.AddItem(ctx, user, AddItemInput{ProductID: p.ID.String(), Quantity: 2})
	if err != nil || !created {
		t.Fatalf("First add: created=%v err=%v", created, err)
	}
	if cart.Products[0].Title != "Mug" || !cart.Products[0].Price.Equal(p.Price) {
		t.Errorf("Expected catalog snapshot, got %+v", cart.Products[0])
	}

	cart, created, err = h.carts.AddItem(ctx, user, AddItemInput{ProductID: p.ID.String(), Quantity: 3})
	if err != nil || created {
		t.Fatalf("Second add: created=%v err=%v", created, err)
	}
	if len(cart.Products) != 1 || cart.Products[0].Quantity != 5 {
		t.Fatalf("Expected one line with quantity 5, got %+v", cart.Products)
	}
}

func TestAddItemQuantityOverflow(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	user := auth.Identity{UserID: uuid.New()}
	p := h.product(t, "Mug", "10")

	if _, _, err := h.carts.AddItem(ctx, user, AddItemInput{ProductID: p.ID.String(), Quantity: math.MaxInt}); err != nil {
		t.Fatalf("First add: %v", err)
	}
	_, _, err := h.carts.AddItem(ctx, user, AddItemInput{ProductID: p.ID.String(), Quantity: 1})
	assertKind(t, err, apperr.KindValidation)

	cart, err := h.carts.GetCart(ctx, user)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if cart.Products[0].Quantity != math.MaxInt {
		t.Errorf("Expected quantity to stay at MaxInt, got %d", cart.Products[0].Quantity)
	}
}

func TestAddItemDistinctProducts(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	user := auth.Identity{UserID: uuid.New()}

	ids := make([]uuid.UUID, 0, 4)
	for _, title := range []string{"A", "B", "C", "D"} {
		ids = append(ids, h.product(t, title, "1").ID)
	}
	sequence := []uuid.UUID{ids[0], ids[1], ids[0], ids[2], ids[3], ids[1]}
	for _, id := range sequence {
		if _, _, err := h.carts.AddItem(ctx, user, AddItemInput{ProductID: id.String(), Quantity: 1}); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
	}

	cart, err := h.carts.GetCart(ctx, user)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if len(cart.Products) != len(ids) {
		t.Errorf("Expected %d lines, got %d", len(ids), len(cart.Products))
	}
}

func TestAddItemConcurrentIncrementsSum(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	user := auth.Identity{UserID: uuid.New()}
	p := h.product(t, "Mug", "10")

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := h.carts.AddItem(ctx, user, AddItemInput{ProductID: p.ID.String(), Quantity: 1}); err != nil {
				t.Errorf("AddItem: %v", err)
			}
		}()
	}
	wg.Wait()

	cart, err := h.carts.GetCart(ctx, user)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if len(cart.Products) != 1 || cart.Products[0].Quantity != workers {
		t.Fatalf("Expected one line with quantity %d, got %+v", workers, cart.Products)
	}
}

func TestRemoveItem(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	user := auth.Identity{UserID: uuid.New()}
	mug := h.product(t, "Mug", "10")
	pan := h.product(t, "Pan", "20")

	_, err := h.carts.RemoveItem(ctx, user, mug.ID.String())
	assertKind(t, err, apperr.KindNotFound)

	for _, p := range []*models.Product{mug, pan} {
		if _, _, err := h.carts.AddItem(ctx, user, AddItemInput{ProductID: p.ID.String(), Quantity: 1}); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
	}

	_, err = h.carts.RemoveItem(ctx, user, uuid.NewString())
	assertKind(t, err, apperr.KindValidation)
	_, err = h.carts.RemoveItem(ctx, user, "garbage")
	assertKind(t, err, apperr.KindValidation)

	if _, err := h.carts.RemoveItem(ctx, user, mug.ID.String()); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	cart, err := h.carts.GetCart(ctx, user)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if cart.Products.IndexOf(mug.ID) >= 0 {
		t.Error("Removed product still in cart")
	}
	if len(cart.Products) != 1 {
		t.Errorf("Expected 1 remaining line, got %d", len(cart.Products))
	}
}

func TestUpdateQuantityIsVerbatim(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	user := auth.Identity{UserID: uuid.New()}
	p := h.product(t, "Mug", "10")

	_, err := h.carts.UpdateQuantity(ctx, user, p.ID.String(), 3)
	assertKind(t, err, apperr.KindNotFound)

	if _, _, err := h.carts.AddItem(ctx, user, AddItemInput{ProductID: p.ID.String(), Quantity: 1}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	for _, q := range []int{7, 0, -2} {
		if _, err := h.carts.UpdateQuantity(ctx, user, p.ID.String(), q); err != nil {
			t.Fatalf("UpdateQuantity(%d): %v", q, err)
		}
		cart, err := h.carts.GetCart(ctx, user)
		if err != nil {
			t.Fatalf("GetCart: %v", err)
		}
		if got := cart.Products[0].Quantity; got != q {
			t.Errorf("Expected quantity %d, got %d", q, got)
		}
	}

	_, err = h.carts.UpdateQuantity(ctx, user, uuid.NewString(), 1)
	assertKind(t, err, apperr.KindValidation)
}

func TestDeleteCart(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	user := auth.Identity{UserID: uuid.New()}
	p := h.product(t, "Mug", "10")

	assertKind(t, h.carts.DeleteCart(ctx, user), apperr.KindNotFound)

	if _, _, err := h.carts.AddItem(ctx, user, AddItemInput{ProductID: p.ID.String(), Quantity: 1}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := h.carts.DeleteCart(ctx, user); err != nil {
		t.Fatalf("DeleteCart: %v", err)
	}
	_, err := h.carts.GetCart(ctx, user)
	assertKind(t, err, apperr.KindNotFound)
}

func TestCreateOrderRequiresCart(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	user := auth.Identity{UserID: uuid.New()}
	in := CreateOrderInput{Address: "1 Main St", Email: "a@example.com", Contact: "555"}

	_, err := h.orders.CreateOrder(ctx, user, in)
	assertKind(t, err, apperr.KindValidation)

	if _, err := (memCarts{h.store}).EnsureForUser(ctx, user.UserID); err != nil {
		t.Fatalf("EnsureForUser: %v", err)
	}
	_, err = h.orders.CreateOrder(ctx, user, in)
	assertKind(t, err, apperr.KindValidation)

	if len(h.store.orders) != 0 {
		t.Errorf("Expected no orders, got %d", len(h.store.orders))
	}
}

func TestCreateOrderRequiresContactDetails(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	user := auth.Identity{UserID: uuid.New()}
	p := h.product(t, "Mug", "10")
	if _, _, err := h.carts.AddItem(ctx, user, AddItemInput{ProductID: p.ID.String(), Quantity: 1}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	cases := []CreateOrderInput{
		{Email: "a@example.com", Contact: "555"},
		{Address: "1 Main St", Contact: "555"},
		{Address: "1 Main St", Email: "a@example.com", Contact: "  "},
	}
	for _, in := range cases {
		_, err := h.orders.CreateOrder(ctx, user, in)
		assertKind(t, err, apperr.KindValidation)
	}
	if len(h.store.orders) != 0 {
		t.Errorf("Expected no orders, got %d", len(h.store.orders))
	}
}

func TestCreateOrderComputesAmount(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	user := auth.Identity{UserID: uuid.New()}
	mug := h.product(t, "Mug", "12.50")
	pan := h.product(t, "Pan", "3")

	h.carts.AddItem(ctx, user, AddItemInput{ProductID: mug.ID.String(), Quantity: 2})
	h.carts.AddItem(ctx, user, AddItemInput{ProductID: pan.ID.String(), Quantity: 1})

	bogus := decimal.NewFromInt(1)
	order, err := h.orders.CreateOrder(ctx, user, CreateOrderInput{
		Address:   "1 Main St",
		Email:     "a@example.com",
		Contact:   "555",
		CartTotal: &bogus,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	pi := order.PaymentIntent
	if !pi.Amount.Equal(decimal.RequireFromString("28")) {
		t.Errorf("Expected amount 28, got %s", pi.Amount)
	}
	if pi.Method != models.PaymentMethodCOD || pi.Status != models.PaymentStatusCOD || pi.Currency != models.CurrencyUSD {
		t.Errorf("Unexpected payment intent %+v", pi)
	}
	if pi.ID == "" || pi.Created == 0 {
		t.Errorf("Payment intent missing id or timestamp: %+v", pi)
	}
	if order.OrderStatus != models.OrderStatusCOD || order.OrderBy != user.UserID {
		t.Errorf("Unexpected order %+v", order)
	}
}

func TestCreateOrderLeavesCart(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	user := auth.Identity{UserID: uuid.New()}
	p := h.product(t, "Mug", "10")
	h.carts.AddItem(ctx, user, AddItemInput{ProductID: p.ID.String(), Quantity: 4})

	before, _ := h.carts.GetCart(ctx, user)
	if _, err := h.orders.CreateOrder(ctx, user, CreateOrderInput{Address: "x", Email: "y", Contact: "z"}); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	after, err := h.carts.GetCart(ctx, user)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if len(after.Products) != len(before.Products) || after.Products[0].Quantity != 4 {
		t.Errorf("Cart changed by order: before %+v after %+v", before.Products, after.Products)
	}
}

func TestGetUserOrdersEmpty(t *testing.T) {
	h := newHarness()
	_, err := h.orders.GetUserOrders(context.Background(), auth.Identity{UserID: uuid.New()})
	assertKind(t, err, apperr.KindNotFound)
}

func TestCheckoutFlow(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	h.register(t, "ann", "ann@example.com")
	res, err := h.auth.Login(ctx, "ann@example.com", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	user, err := h.tokens.Authenticate("Bearer " + res.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	p := h.product(t, "Mug", "10")

	for _, q := range []int{2, 3} {
		if _, _, err := h.carts.AddItem(ctx, user, AddItemInput{ProductID: p.ID.String(), Quantity: q}); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
	}
	cart, err := h.carts.GetCart(ctx, user)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if len(cart.Products) != 1 || cart.Products[0].Quantity != 5 {
		t.Fatalf("Expected one line with quantity 5, got %+v", cart.Products)
	}

	if _, err := h.orders.CreateOrder(ctx, user, CreateOrderInput{Address: "1 Main St", Email: "ann@example.com", Contact: "555"}); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	orders, err := h.orders.GetUserOrders(ctx, user)
	if err != nil {
		t.Fatalf("GetUserOrders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("Expected 1 order, got %d", len(orders))
	}
	o := orders[0]
	if len(o.Products) != 1 || o.Products[0].ProductID != p.ID || o.Products[0].Quantity != 5 {
		t.Errorf("Unexpected order lines %+v", o.Products)
	}
	if o.Products[0].Product == nil || o.Products[0].Product.ID != p.ID {
		t.Error("Expected product reference to be resolved")
	}
	if o.OrderBy == nil || o.OrderBy.Username != "ann" {
		t.Errorf("Expected resolved user, got %+v", o.OrderBy)
	}
}
