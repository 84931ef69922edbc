package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"vinyl-store/internal/domain"
	"vinyl-store/internal/repository"
	"vinyl-store/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var pngImage = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func pngFile(name string) *storage.File {
	return &storage.File{Name: name, Data: pngImage}
}

// memDB is an in-memory stand-in for the database. The transactor restores
// a snapshot when the unit of work fails.
type memDB struct {
	mu            sync.Mutex
	products      map[uuid.UUID]domain.Product
	customers     map[uuid.UUID]domain.Customer
	admins        map[uuid.UUID]domain.Administrator
	carts         map[uuid.UUID]domain.Cart
	orders        map[uuid.UUID]domain.Order
	events        map[uuid.UUID]domain.Event
	notifications []domain.Notification
}

func newMemDB() *memDB {
	return &memDB{
		products:  map[uuid.UUID]domain.Product{},
		customers: map[uuid.UUID]domain.Customer{},
		admins:    map[uuid.UUID]domain.Administrator{},
		carts:     map[uuid.UUID]domain.Cart{},
		orders:    map[uuid.UUID]domain.Order{},
		events:    map[uuid.UUID]domain.Event{},
	}
}

func copyCart(c domain.Cart) domain.Cart {
	items := make([]domain.CartItem, len(c.Items))
	copy(items, c.Items)
	for i := range items {
		items[i].Product = nil
	}
	c.Items = items
	return c
}

func copyOrder(o domain.Order) domain.Order {
	items := make([]domain.OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

func (m *memDB) snapshot() *memDB {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := newMemDB()
	for k, v := range m.products {
		snap.products[k] = v
	}
	for k, v := range m.customers {
		snap.customers[k] = v
	}
	for k, v := range m.admins {
		snap.admins[k] = v
	}
	for k, v := range m.carts {
		snap.carts[k] = copyCart(v)
	}
	for k, v := range m.orders {
		snap.orders[k] = copyOrder(v)
	}
	for k, v := range m.events {
		snap.events[k] = v
	}
	snap.notifications = append(snap.notifications, m.notifications...)
	return snap
}

func (m *memDB) restore(snap *memDB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = snap.products
	m.customers = snap.customers
	m.admins = snap.admins
	m.carts = snap.carts
	m.orders = snap.orders
	m.events = snap.events
	m.notifications = snap.notifications
}

type memTransactor struct {
	db *memDB
}

func (t memTransactor) WithinTx(_ context.Context, fn func(tx *sql.Tx) error) error {
	snap := t.db.snapshot()
	if err := fn(nil); err != nil {
		t.db.restore(snap)
		return err
	}
	return nil
}

// Products

type memProducts struct {
	db *memDB
}

func (r memProducts) Create(_ context.Context, p *domain.Product) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.products {
		if existing.Name == p.Name {
			return repository.ErrProductAlreadyExists
		}
	}
	r.db.products[p.ID] = *p
	return nil
}

func (r memProducts) Update(_ context.Context, p *domain.Product) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.products[p.ID]; !ok {
		return repository.ErrProductNotFound
	}
	r.db.products[p.ID] = *p
	return nil
}

func (r memProducts) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(r.db.products, id)
	return nil
}

func (r memProducts) FindByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &p, nil
}

func (r memProducts) List(_ context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.Product
	for _, p := range r.db.products {
		if filter.Genre != "" && p.Genre != filter.Genre {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

func (r memProducts) DecrementStock(_ context.Context, _ *sql.Tx, id uuid.UUID, quantity int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.products[id]
	if !ok || p.Stock < quantity {
		return repository.ErrInsufficientStock
	}
	p.Stock -= quantity
	r.db.products[id] = p
	return nil
}

// Carts

type memCarts struct {
	db *memDB
}

func (r memCarts) load(customerID uuid.UUID) (*domain.Cart, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.carts[customerID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	cart := copyCart(stored)
	for i := range cart.Items {
		if p, ok := r.db.products[cart.Items[i].ProductID]; ok {
			p := p
			cart.Items[i].Product = &p
		}
	}
	return &cart, nil
}

func (r memCarts) GetOrCreateForUpdate(_ context.Context, _ *sql.Tx, customerID uuid.UUID) (*domain.Cart, error) {
	cart, err := r.load(customerID)
	if err == repository.ErrCartNotFound {
		return domain.NewCart(customerID, time.Now()), nil
	}
	return cart, err
}

func (r memCarts) FindForUpdate(_ context.Context, _ *sql.Tx, customerID uuid.UUID) (*domain.Cart, error) {
	return r.load(customerID)
}

func (r memCarts) FindByCustomer(_ context.Context, customerID uuid.UUID) (*domain.Cart, error) {
	return r.load(customerID)
}

func (r memCarts) Save(_ context.Context, _ *sql.Tx, cart *domain.Cart) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.carts[cart.CustomerID] = copyCart(*cart)
	return nil
}

func (r memCarts) Delete(_ context.Context, _ *sql.Tx, cartID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for customerID, cart := range r.db.carts {
		if cart.ID == cartID {
			delete(r.db.carts, customerID)
			return nil
		}
	}
	return repository.ErrCartNotFound
}

// Orders

type memOrders struct {
	db *memDB
}

func (r memOrders) Create(_ context.Context, _ *sql.Tx, o *domain.Order) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.orders[o.ID] = copyOrder(*o)
	return nil
}

func (r memOrders) FindByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	o = copyOrder(o)
	return &o, nil
}

func (r memOrders) List(_ context.Context, customerID *uuid.UUID) ([]domain.OrderSummary, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.OrderSummary
	for _, o := range r.db.orders {
		if customerID != nil && o.CustomerID != *customerID {
			continue
		}
		out = append(out, o.Summary())
	}
	return out, nil
}

func (r memOrders) MarkShipped(_ context.Context, _ *sql.Tx, o *domain.Order) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.orders[o.ID]
	if !ok || stored.Status != domain.StatusPending {
		return repository.ErrOrderNotPending
	}
	stored.Status = o.Status
	stored.ShippingProofURL = o.ShippingProofURL
	stored.ShipDate = o.ShipDate
	r.db.orders[o.ID] = stored
	return nil
}

// Accounts

type memCustomers struct {
	db *memDB
}

func (r memCustomers) Create(_ context.Context, c *domain.Customer) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.customers {
		if existing.Email == c.Email {
			return repository.ErrCustomerAlreadyExists
		}
	}
	r.db.customers[c.ID] = *c
	return nil
}

func (r memCustomers) FindByEmail(_ context.Context, email string) (*domain.Customer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, c := range r.db.customers {
		if c.Email == email {
			c := c
			return &c, nil
		}
	}
	return nil, repository.ErrCustomerNotFound
}

func (r memCustomers) FindByID(_ context.Context, id uuid.UUID) (*domain.Customer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.customers[id]
	if !ok {
		return nil, repository.ErrCustomerNotFound
	}
	return &c, nil
}

func (r memCustomers) UpdatePushToken(_ context.Context, id uuid.UUID, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.customers[id]
	if !ok {
		return repository.ErrCustomerNotFound
	}
	c.PushToken = &token
	r.db.customers[id] = c
	return nil
}

type memAdmins struct {
	db *memDB
}

func (r memAdmins) Create(_ context.Context, a *domain.Administrator) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.admins {
		if existing.Email == a.Email {
			return repository.ErrAdministratorAlreadyExists
		}
	}
	r.db.admins[a.ID] = *a
	return nil
}

func (r memAdmins) FindByEmail(_ context.Context, email string) (*domain.Administrator, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range r.db.admins {
		if a.Email == email {
			a := a
			return &a, nil
		}
	}
	return nil, repository.ErrAdministratorNotFound
}

func (r memAdmins) FindByID(_ context.Context, id uuid.UUID) (*domain.Administrator, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.admins[id]
	if !ok {
		return nil, repository.ErrAdministratorNotFound
	}
	return &a, nil
}

func (r memAdmins) Count(_ context.Context) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return len(r.db.admins), nil
}

// Events

type memEvents struct {
	db *memDB
}

func (r memEvents) Create(_ context.Context, e *domain.Event) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.events {
		if existing.Name == e.Name {
			return repository.ErrEventAlreadyExists
		}
	}
	r.db.events[e.ID] = *e
	return nil
}

func (r memEvents) Update(_ context.Context, e *domain.Event) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.events[e.ID]; !ok {
		return repository.ErrEventNotFound
	}
	r.db.events[e.ID] = *e
	return nil
}

func (r memEvents) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.events[id]; !ok {
		return repository.ErrEventNotFound
	}
	delete(r.db.events, id)
	return nil
}

func (r memEvents) List(_ context.Context) ([]*domain.Event, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.Event
	for _, e := range r.db.events {
		e := e
		out = append(out, &e)
	}
	return out, nil
}

func (r memEvents) FindByID(_ context.Context, id uuid.UUID) (*domain.Event, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e, ok := r.db.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	return &e, nil
}

// Notifications

type memNotifications struct {
	db *memDB
}

func (r memNotifications) Enqueue(_ context.Context, _ *sql.Tx, ns ...*domain.Notification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, n := range ns {
		r.db.notifications = append(r.db.notifications, *n)
	}
	return nil
}

func (r memNotifications) ClaimBatch(context.Context, *sql.Tx, int, int) ([]*domain.Notification, error) {
	return nil, nil
}

func (r memNotifications) MarkDispatched(context.Context, *sql.Tx, uuid.UUID) error { return nil }

func (r memNotifications) MarkFailed(context.Context, *sql.Tx, uuid.UUID, string) error { return nil }

// Asset store

type fakeStore struct {
	mu      sync.Mutex
	uploads []storage.Folder
	err     error
}

func (s *fakeStore) Upload(_ context.Context, folder storage.Folder, file *storage.File) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.uploads = append(s.uploads, folder)
	return fmt.Sprintf("https://assets.test/%s/%s", folder, file.Name), nil
}

// Fixtures

type fixture struct {
	db    *memDB
	store *fakeStore
}

func newFixture() *fixture {
	return &fixture{db: newMemDB(), store: &fakeStore{}}
}

func (f *fixture) addProduct(name, price string, stock int) *domain.Product {
	p := domain.Product{
		ID:        uuid.New(),
		Name:      name,
		Artist:    "Various",
		Price:     decimal.RequireFromString(price),
		Genre:     "House",
		Stock:     stock,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.db.products[p.ID] = p
	return &p
}

func (f *fixture) addCustomer(pushToken *string) *domain.Customer {
	c := domain.Customer{
		ID:        uuid.New(),
		Name:      "Ana Torres",
		Email:     uuid.NewString() + "@example.com",
		Phone:     "0991234567",
		PushToken: pushToken,
	}
	f.db.customers[c.ID] = c
	return &c
}

func (f *fixture) product(id uuid.UUID) domain.Product {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.db.products[id]
}

func (f *fixture) cartService() CartService {
	return NewCartService(memTransactor{f.db}, memCarts{f.db}, memProducts{f.db})
}

func (f *fixture) orderDeps() OrderDeps {
	return OrderDeps{
		Transactor:    memTransactor{f.db},
		Carts:         memCarts{f.db},
		Products:      memProducts{f.db},
		Orders:        memOrders{f.db},
		Customers:     memCustomers{f.db},
		Notifications: memNotifications{f.db},
		Store:         f.store,
		MaxUpload:     5 << 20,
		OperatorEmail: "ops@store.example",
	}
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
