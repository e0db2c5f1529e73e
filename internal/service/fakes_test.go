package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/logger"
	"github.com/safar/storefront/internal/models"
)

// memStore implements every repository port over maps guarded by one mutex.
// Cart mutations hold the lock for the whole read-modify-write, mirroring
// the row lock taken by the SQL repository.
type memStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*models.User
	products map[uuid.UUID]*models.Product
	carts    map[uuid.UUID]*models.Cart
	orders   []models.Order
	clock    time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[uuid.UUID]*models.User),
		products: make(map[uuid.UUID]*models.Product),
		carts:    make(map[uuid.UUID]*models.Cart),
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

type memUsers struct{ *memStore }
type memProducts struct{ *memStore }
type memCarts struct{ *memStore }
type memOrders struct{ *memStore }

func (m memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return nil, database.ErrDuplicate
		}
	}
	created := *u
	created.ID = uuid.New()
	created.CreatedAt = m.tick()
	created.UpdatedAt = created.CreatedAt
	m.users[created.ID] = &created
	out := created
	return &out, nil
}

func (m memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (m memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, database.ErrUserNotFound
}

func (m memUsers) Taken(_ context.Context, username, email string) (bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var usernameTaken, emailTaken bool
	for _, u := range m.users {
		usernameTaken = usernameTaken || u.Username == username
		emailTaken = emailTaken || u.Email == email
	}
	return usernameTaken, emailTaken, nil
}

func (m memProducts) Create(_ context.Context, p *models.Product) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	created := *p
	created.ID = uuid.New()
	created.CreatedAt = m.tick()
	created.UpdatedAt = created.CreatedAt
	m.products[created.ID] = &created
	out := created
	return &out, nil
}

func (m memProducts) GetByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, database.ErrProductNotFound
	}
	out := *p
	return &out, nil
}

func (m memProducts) GetMany(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := make(map[uuid.UUID]*models.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out := *p
			found[id] = &out
		}
	}
	return found, nil
}

func (m memProducts) List(_ context.Context, filter models.ProductFilter) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.Product
	for _, p := range m.products {
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	switch {
	case filter.Newest > 0:
		if len(all) > filter.Newest {
			all = all[:filter.Newest]
		}
		return all, nil
	case filter.Category != "":
		var matched []models.Product
		for _, p := range all {
			for _, c := range p.Categories {
				if c == filter.Category {
					matched = append(matched, p)
					break
				}
			}
		}
		return matched, nil
	default:
		return all, nil
	}
}

func (m memProducts) Update(_ context.Context, id uuid.UUID, patch models.ProductPatch) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, database.ErrProductNotFound
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Slug != nil {
		p.Slug = *patch.Slug
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	if patch.Categories != nil {
		p.Categories = patch.Categories
	}
	if patch.Size != nil {
		p.Size = *patch.Size
	}
	if patch.Color != nil {
		p.Color = *patch.Color
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	p.UpdatedAt = m.tick()
	out := *p
	return &out, nil
}

func (m memProducts) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return database.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func copyCart(c *models.Cart) *models.Cart {
	out := *c
	out.Products = append(models.LineItems{}, c.Products...)
	return &out
}

func (m memCarts) GetByUser(_ context.Context, userID uuid.UUID) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return nil, database.ErrCartNotFound
	}
	return copyCart(c), nil
}

func (m memCarts) ensure(userID uuid.UUID) bool {
	if _, ok := m.carts[userID]; ok {
		return false
	}
	now := m.tick()
	m.carts[userID] = &models.Cart{ID: uuid.New(), UserID: userID, Products: models.LineItems{}, CreatedAt: now, UpdatedAt: now}
	return true
}

func (m memCarts) EnsureForUser(_ context.Context, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensure(userID), nil
}

func (m memCarts) Mutate(_ context.Context, userID uuid.UUID, create bool, fn func(*models.Cart) error) (*models.Cart, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var created bool
	if create {
		created = m.ensure(userID)
	}
	c, ok := m.carts[userID]
	if !ok {
		return nil, false, database.ErrCartNotFound
	}
	working := copyCart(c)
	if err := fn(working); err != nil {
		if created {
			delete(m.carts, userID)
		}
		return nil, false, err
	}
	working.UpdatedAt = m.tick()
	m.carts[userID] = working
	return copyCart(working), created, nil
}

func (m memCarts) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[userID]; !ok {
		return database.ErrCartNotFound
	}
	delete(m.carts, userID)
	return nil
}

func (m memOrders) Create(_ context.Context, o *models.Order) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	created := *o
	created.ID = uuid.New()
	created.Products = append(models.LineItems{}, o.Products...)
	created.CreatedAt = m.tick()
	m.orders = append(m.orders, created)
	out := created
	return &out, nil
}

func (m memOrders) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for i := len(m.orders) - 1; i >= 0; i-- {
		if m.orders[i].OrderBy == userID {
			out = append(out, m.orders[i])
		}
	}
	return out, nil
}

// plainHasher stands in for bcrypt so tests stay fast.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }

func (plainHasher) Matches(hash, password string) (bool, error) {
	return strings.TrimPrefix(hash, "plain:") == password, nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]models.Product
	hits    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[uuid.UUID]models.Product)}
}

func (c *memCache) Get(_ context.Context, id uuid.UUID) (*models.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[id]
	if ok {
		c.hits++
	}
	return &p, ok
}

func (c *memCache) Set(_ context.Context, p *models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[p.ID] = *p
}

func (c *memCache) Invalidate(_ context.Context, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

type harness struct {
	store   *memStore
	cache   *memCache
	tokens  *auth.TokenIssuer
	auth    *AuthService
	catalog *CatalogService
	carts   *CartService
	orders  *OrderService
}

func newHarness() *harness {
	s := newMemStore()
	log := logger.Discard()
	c := newMemCache()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	return &harness{
		store:   s,
		cache:   c,
		tokens:  tokens,
		auth:    NewAuthService(memUsers{s}, memCarts{s}, plainHasher{}, tokens, log),
		catalog: NewCatalogService(memProducts{s}, c, log),
		carts:   NewCartService(memCarts{s}, memProducts{s}, log),
		orders:  NewOrderService(memOrders{s}, memCarts{s}, memProducts{s}, memUsers{s}, log),
	}
}
