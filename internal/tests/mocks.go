package tests

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"delivery/internal/domain"
	"delivery/internal/geocoding"
	"delivery/internal/paystack"
	"delivery/internal/redis"
	"delivery/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK STORE
// ──────────────────────────────────────────────

// MockStore is an in-memory repository.Store. WithinTx runs one unit of
// work at a time and restores every repository on error, like a rollback.
type MockStore struct {
	txMu sync.Mutex

	Orders        *MockOrderRepository
	Users         *MockUserRepository
	Drivers       *MockDriverRepository
	Vehicles      *MockVehicleRepository
	Transactions  *MockTransactionRepository
	Cards         *MockCardRepository
	Accounts      *MockAccountRepository
	Notifications *MockNotificationRepository

	// Counters
	TxCount       int32
	RollbackCount int32
}

// NewMockStore creates a new mock store with empty repositories.
func NewMockStore() *MockStore {
	return &MockStore{
		Orders:        NewMockOrderRepository(),
		Users:         NewMockUserRepository(),
		Drivers:       NewMockDriverRepository(),
		Vehicles:      NewMockVehicleRepository(),
		Transactions:  NewMockTransactionRepository(),
		Cards:         NewMockCardRepository(),
		Accounts:      NewMockAccountRepository(),
		Notifications: NewMockNotificationRepository(),
	}
}

func (s *MockStore) Repos() repository.Repositories {
	return repository.Repositories{
		Orders:        s.Orders,
		Users:         s.Users,
		Drivers:       s.Drivers,
		Vehicles:      s.Vehicles,
		Transactions:  s.Transactions,
		Cards:         s.Cards,
		Accounts:      s.Accounts,
		Notifications: s.Notifications,
	}
}

func (s *MockStore) WithinTx(ctx context.Context, fn func(r repository.Repositories) error) (err error) {
	atomic.AddInt32(&s.TxCount, 1)
	s.txMu.Lock()
	defer s.txMu.Unlock()

	orders := s.Orders.snapshot()
	users := s.Users.snapshot()
	drivers := s.Drivers.snapshot()
	txs := s.Transactions.snapshot()
	cards := s.Cards.snapshot()
	accounts := s.Accounts.snapshot()
	notifications := s.Notifications.snapshot()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in transaction: %v", p)
		}
		if err != nil {
			atomic.AddInt32(&s.RollbackCount, 1)
			s.Orders.restore(orders)
			s.Users.restore(users)
			s.Drivers.restore(drivers)
			s.Transactions.restore(txs)
			s.Cards.restore(cards)
			s.Accounts.restore(accounts)
			s.Notifications.restore(notifications)
		}
	}()

	return fn(s.Repos())
}

// ──────────────────────────────────────────────
// MOCK ORDER REPOSITORY
// ──────────────────────────────────────────────

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order

	// Counters for verification
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockOrderRepository creates a new mock order repository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]*domain.Order),
	}
}

// AddOrder adds an order to the mock repository.
func (m *MockOrderRepository) AddOrder(order *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.StatusVersion == 0 {
		order.StatusVersion = 1
	}
	m.orders[order.ID] = order.Clone()
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order.StatusVersion = 1
	m.orders[order.ID] = order.Clone()
	return nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return order.Clone(), nil
}

func (m *MockOrderRepository) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return m.GetByID(ctx, id)
}

func (m *MockOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[order.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.StatusVersion != order.StatusVersion {
		return repository.ErrConflict
	}
	order.StatusVersion++
	m.orders[order.ID] = order.Clone()
	return nil
}

func (m *MockOrderRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Order
	for _, o := range m.orders {
		if o.Status == domain.OrderStatusPending && !o.StatusUpdatedAt.After(before) {
			result = append(result, o.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StatusUpdatedAt.Before(result[j].StatusUpdatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// BumpVersion simulates a concurrent writer changing the order.
func (m *MockOrderRepository) BumpVersion(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok {
		o.StatusVersion++
	}
}

// GetOrder returns order for test assertions.
func (m *MockOrderRepository) GetOrder(id string) *domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if o, ok := m.orders[id]; ok {
		return o.Clone()
	}
	return nil
}

// CountOrders returns the number of stored orders.
func (m *MockOrderRepository) CountOrders() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

func (m *MockOrderRepository) snapshot() map[string]*domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*domain.Order, len(m.orders))
	for id, o := range m.orders {
		out[id] = o.Clone()
	}
	return out
}

func (m *MockOrderRepository) restore(orders map[string]*domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = orders
}

// ──────────────────────────────────────────────
// MOCK USER REPOSITORY
// ──────────────────────────────────────────────

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User

	// Counters for verification
	DebitCallCount  int32
	CreditCallCount int32

	// Error injection
	DebitError  error
	CreditError error
}

// NewMockUserRepository creates a new mock user repository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]*domain.User),
	}
}

// AddUser adds a user to the mock repository.
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := *user
	m.users[user.ID] = &u
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := *user
	return &u, nil
}

func (m *MockUserRepository) Debit(ctx context.Context, userID string, change repository.BalanceChange) error {
	atomic.AddInt32(&m.DebitCallCount, 1)
	if m.DebitError != nil {
		return m.DebitError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if user.AvailableBalance < change.Available {
		return repository.ErrInsufficientBalance
	}
	user.AvailableBalance -= change.Available
	user.LedgerBalance -= change.Ledger
	return nil
}

func (m *MockUserRepository) Credit(ctx context.Context, userID string, change repository.BalanceChange) error {
	atomic.AddInt32(&m.CreditCallCount, 1)
	if m.CreditError != nil {
		return m.CreditError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	user.AvailableBalance += change.Available
	user.LedgerBalance += change.Ledger
	return nil
}

// Balances returns the available and ledger balances for test assertions.
func (m *MockUserRepository) Balances(id string) (int64, int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return 0, 0
	}
	return user.AvailableBalance, user.LedgerBalance
}

func (m *MockUserRepository) snapshot() map[string]domain.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]domain.User, len(m.users))
	for id, u := range m.users {
		out[id] = *u
	}
	return out
}

func (m *MockUserRepository) restore(users map[string]domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = make(map[string]*domain.User, len(users))
	for id, u := range users {
		u := u
		m.users[id] = &u
	}
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver

	// Counters for verification
	FindCandidatesCallCount int32

	// Error injection
	FindCandidatesError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		drivers: make(map[string]*domain.Driver),
	}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.UserID] = copyDriver(driver)
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyDriver(driver), nil
}

func (m *MockDriverRepository) FindCandidates(ctx context.Context, q repository.CandidateQuery) ([]*domain.Driver, error) {
	atomic.AddInt32(&m.FindCandidatesCallCount, 1)
	if m.FindCandidatesError != nil {
		return nil, m.FindCandidatesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Driver
	for _, d := range m.drivers {
		if !d.Eligible(q.VehicleID) || d.Location == nil || slices.Contains(q.Exclude, d.UserID) {
			continue
		}
		if d.Location.Lat < q.Bounds.LatMin || d.Location.Lat > q.Bounds.LatMax ||
			d.Location.Lng < q.Bounds.LonMin || d.Location.Lng > q.Bounds.LonMax {
			continue
		}
		result = append(result, copyDriver(d))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

func (m *MockDriverRepository) SetOnline(ctx context.Context, id string, online bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Online = online
	return nil
}

func (m *MockDriverRepository) UpdateLocation(ctx context.Context, id string, loc domain.Coordinates) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Location = &loc
	driver.LocationUpdatedAt = time.Now()
	return nil
}

func (m *MockDriverRepository) IncrementRejected(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.RejectedOrdersCount++
	return nil
}

func (m *MockDriverRepository) IncrementCompleted(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.CompletedOrdersCount++
	return nil
}

// GetDriver returns driver for test assertions.
func (m *MockDriverRepository) GetDriver(id string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.drivers[id]; ok {
		return copyDriver(d)
	}
	return nil
}

func (m *MockDriverRepository) snapshot() map[string]*domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*domain.Driver, len(m.drivers))
	for id, d := range m.drivers {
		out[id] = copyDriver(d)
	}
	return out
}

func (m *MockDriverRepository) restore(drivers map[string]*domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers = drivers
}

func copyDriver(d *domain.Driver) *domain.Driver {
	c := *d
	if d.Location != nil {
		loc := *d.Location
		c.Location = &loc
	}
	return &c
}

// ──────────────────────────────────────────────
// MOCK VEHICLE REPOSITORY
// ──────────────────────────────────────────────

// MockVehicleRepository is a mock implementation of VehicleRepository.
type MockVehicleRepository struct {
	mu       sync.RWMutex
	vehicles map[string]*domain.Vehicle

	// Counters for verification
	GetByIDCallCount int32
}

// NewMockVehicleRepository creates a new mock vehicle repository.
func NewMockVehicleRepository() *MockVehicleRepository {
	return &MockVehicleRepository{
		vehicles: make(map[string]*domain.Vehicle),
	}
}

// AddVehicle adds a vehicle to the mock repository.
func (m *MockVehicleRepository) AddVehicle(vehicle *domain.Vehicle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := *vehicle
	m.vehicles[vehicle.ID] = &v
}

func (m *MockVehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	atomic.AddInt32(&m.GetByIDCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	vehicle, ok := m.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	v := *vehicle
	return &v, nil
}

func (m *MockVehicleRepository) ListEnabled(ctx context.Context) ([]*domain.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Vehicle
	for _, v := range m.vehicles {
		if v.Enabled() {
			c := *v
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK TRANSACTION REPOSITORY
// ──────────────────────────────────────────────

// MockTransactionRepository is a mock implementation of TransactionRepository.
type MockTransactionRepository struct {
	mu  sync.RWMutex
	txs []*domain.Transaction

	// Error injection
	CreateError error
}

// NewMockTransactionRepository creates a new mock transaction repository.
func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{}
}

// AddTransaction adds a transaction to the mock repository.
func (m *MockTransactionRepository) AddTransaction(tx *domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs = append(m.txs, copyTransaction(tx))
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx.Reference != "" {
		for _, t := range m.txs {
			if t.Reference == tx.Reference {
				return repository.ErrDuplicate
			}
		}
	}
	m.txs = append(m.txs, copyTransaction(tx))
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.txs {
		if t.ID == id {
			return copyTransaction(t), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockTransactionRepository) GetForUpdate(ctx context.Context, id string) (*domain.Transaction, error) {
	return m.GetByID(ctx, id)
}

func (m *MockTransactionRepository) ExistsByReference(ctx context.Context, reference string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.txs {
		if t.Reference == reference {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockTransactionRepository) UpdateMeta(ctx context.Context, id string, meta domain.TransactionMeta, reference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.txs {
		if t.ID == id {
			t.Meta = &meta
			t.Reference = reference
			return nil
		}
	}
	return repository.ErrNotFound
}

// ByUser returns the transactions of userID for test assertions.
func (m *MockTransactionRepository) ByUser(userID string) []*domain.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Transaction
	for _, t := range m.txs {
		if t.UserID == userID {
			result = append(result, copyTransaction(t))
		}
	}
	return result
}

// CountTransactions returns the number of stored transactions.
func (m *MockTransactionRepository) CountTransactions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txs)
}

func (m *MockTransactionRepository) snapshot() []*domain.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Transaction, len(m.txs))
	for i, t := range m.txs {
		out[i] = copyTransaction(t)
	}
	return out
}

func (m *MockTransactionRepository) restore(txs []*domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs = txs
}

func copyTransaction(t *domain.Transaction) *domain.Transaction {
	c := *t
	if t.Meta != nil {
		meta := *t.Meta
		c.Meta = &meta
	}
	return &c
}

// ──────────────────────────────────────────────
// MOCK CARD REPOSITORY
// ──────────────────────────────────────────────

// MockCardRepository is a mock implementation of CardRepository.
type MockCardRepository struct {
	mu    sync.RWMutex
	cards map[string]*domain.Card
}

// NewMockCardRepository creates a new mock card repository.
func NewMockCardRepository() *MockCardRepository {
	return &MockCardRepository{
		cards: make(map[string]*domain.Card),
	}
}

// AddCard adds a card to the mock repository.
func (m *MockCardRepository) AddCard(card *domain.Card) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *card
	m.cards[card.ID] = &c
}

func (m *MockCardRepository) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	card, ok := m.cards[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *card
	return &c, nil
}

func (m *MockCardRepository) Save(ctx context.Context, card *domain.Card) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cards {
		if c.UserID == card.UserID && c.Signature == card.Signature {
			return false, nil
		}
	}
	c := *card
	m.cards[card.ID] = &c
	return true, nil
}

// CountCards returns the number of cards stored for userID.
func (m *MockCardRepository) CountCards(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.cards {
		if c.UserID == userID {
			n++
		}
	}
	return n
}

func (m *MockCardRepository) snapshot() map[string]domain.Card {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]domain.Card, len(m.cards))
	for id, c := range m.cards {
		out[id] = *c
	}
	return out
}

func (m *MockCardRepository) restore(cards map[string]domain.Card) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards = make(map[string]*domain.Card, len(cards))
	for id, c := range cards {
		c := c
		m.cards[id] = &c
	}
}

// ──────────────────────────────────────────────
// MOCK ACCOUNT REPOSITORY
// ──────────────────────────────────────────────

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
}

// NewMockAccountRepository creates a new mock account repository.
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[string]*domain.Account),
	}
}

// AddAccount adds an account to the mock repository.
func (m *MockAccountRepository) AddAccount(account *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := *account
	m.accounts[account.ID] = &a
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	a := *account
	return &a, nil
}

func (m *MockAccountRepository) SetRecipientCode(ctx context.Context, id string, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.RecipientCode = code
	return nil
}

func (m *MockAccountRepository) snapshot() map[string]domain.Account {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]domain.Account, len(m.accounts))
	for id, a := range m.accounts {
		out[id] = *a
	}
	return out
}

func (m *MockAccountRepository) restore(accounts map[string]domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = make(map[string]*domain.Account, len(accounts))
	for id, a := range accounts {
		a := a
		m.accounts[id] = &a
	}
}

// ──────────────────────────────────────────────
// MOCK NOTIFICATION REPOSITORY
// ──────────────────────────────────────────────

// MockNotificationRepository is a mock implementation of NotificationRepository.
type MockNotificationRepository struct {
	mu    sync.RWMutex
	inbox []*domain.Notification
	admin []*domain.Notification
}

// NewMockNotificationRepository creates a new mock notification repository.
func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{}
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *n
	m.inbox = append(m.inbox, &c)
	return nil
}

func (m *MockNotificationRepository) CreateAdmin(ctx context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *n
	m.admin = append(m.admin, &c)
	return nil
}

// ForUser returns the inbox titles of userID for test assertions.
func (m *MockNotificationRepository) ForUser(userID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var titles []string
	for _, n := range m.inbox {
		if n.UserID == userID {
			titles = append(titles, n.Title)
		}
	}
	return titles
}

// CountAdmin returns the number of admin notifications.
func (m *MockNotificationRepository) CountAdmin() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.admin)
}

type notificationSnapshot struct {
	inbox []*domain.Notification
	admin []*domain.Notification
}

func (m *MockNotificationRepository) snapshot() notificationSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return notificationSnapshot{
		inbox: slices.Clone(m.inbox),
		admin: slices.Clone(m.admin),
	}
}

func (m *MockNotificationRepository) restore(s notificationSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbox = s.inbox
	m.admin = s.admin
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of LocationStore.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations map[string]redis.DriverLocation

	// Counters
	UpdateCallCount int32
	RemoveCallCount int32

	// Error injection
	GetError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make(map[string]redis.DriverLocation),
	}
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[driverID] = redis.DriverLocation{DriverID: driverID, Lat: lat, Lng: lng, UpdatedAt: time.Now()}
	return nil
}

func (m *MockLocationStore) GetLocation(ctx context.Context, driverID string) (*redis.DriverLocation, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	loc, ok := m.locations[driverID]
	if !ok {
		return nil, nil
	}
	return &loc, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	atomic.AddInt32(&m.RemoveCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, driverID)
	return nil
}

// HasLocation checks if a driver is tracked.
func (m *MockLocationStore) HasLocation(driverID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.locations[driverID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]string

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]string),
	}
}

func (m *MockLockStore) Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[name]; held {
		return false, nil
	}
	m.locks[name] = owner
	return true, nil
}

func (m *MockLockStore) Release(ctx context.Context, name, owner string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[name] == owner {
		delete(m.locks, name)
	}
	return nil
}

// Hold takes a lock on behalf of another process.
func (m *MockLockStore) Hold(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[name] = "someone-else"
}

// IsLocked checks if a lock is held (for test assertions).
func (m *MockLockStore) IsLocked(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.locks[name]
	return held
}

// ──────────────────────────────────────────────
// MOCK PAYMENT GATEWAY
// ──────────────────────────────────────────────

// MockGateway is a mock payment gateway.
type MockGateway struct {
	mu sync.Mutex

	// Control behavior
	Decline        bool
	DeclineMessage string
	FailError      error

	charges   []paystack.ChargeRequest
	transfers []paystack.TransferRequest

	// Counters
	ChargeCallCount    int32
	RecipientCallCount int32
}

// NewMockGateway creates a new mock gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (m *MockGateway) Charge(ctx context.Context, req paystack.ChargeRequest) (*paystack.ChargeResult, error) {
	atomic.AddInt32(&m.ChargeCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.charges = append(m.charges, req)
	if m.FailError != nil {
		return nil, m.FailError
	}
	if m.Decline {
		return &paystack.ChargeResult{Reference: req.Reference, Message: m.DeclineMessage}, nil
	}
	return &paystack.ChargeResult{Success: true, Reference: req.Reference, Message: "Approved"}, nil
}

func (m *MockGateway) CreateTransferRecipient(ctx context.Context, req paystack.RecipientRequest) (string, error) {
	atomic.AddInt32(&m.RecipientCallCount, 1)
	if m.FailError != nil {
		return "", m.FailError
	}
	return "RCP_" + req.AccountNumber, nil
}

func (m *MockGateway) InitiateTransfer(ctx context.Context, req paystack.TransferRequest) (*paystack.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailError != nil {
		return nil, m.FailError
	}
	m.transfers = append(m.transfers, req)
	return &paystack.Transfer{Reference: req.Reference, TransferCode: "TRF_" + req.Reason, Status: "pending"}, nil
}

// SetFailure configures the gateway to decline charges or fail outright.
func (m *MockGateway) SetFailure(decline bool, message string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Decline = decline
	m.DeclineMessage = message
	m.FailError = err
}

// Charges returns the charge requests received.
func (m *MockGateway) Charges() []paystack.ChargeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.charges)
}

// Transfers returns the transfer requests received.
func (m *MockGateway) Transfers() []paystack.TransferRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.transfers)
}

// ──────────────────────────────────────────────
// MOCK PUBLISHER
// ──────────────────────────────────────────────

// MockPublisher records published pushes.
type MockPublisher struct {
	mu     sync.Mutex
	pushes []domain.Push

	// Error injection
	PublishError error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, pushes ...domain.Push) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushes = append(m.pushes, pushes...)
	return nil
}

// ForUser returns the pushes sent to userID.
func (m *MockPublisher) ForUser(userID string) []domain.Push {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Push
	for _, p := range m.pushes {
		if p.UserID == userID {
			result = append(result, p)
		}
	}
	return result
}

// ──────────────────────────────────────────────
// MOCK GEOCODER
// ──────────────────────────────────────────────

// MockGeocoder resolves addresses from a fixed table.
type MockGeocoder struct {
	mu     sync.Mutex
	places map[string]geocoding.Place

	// Control behavior
	LegMetres     int64
	WaypointOrder []int
	RouteError    error

	// Counters
	RouteCallCount int32
}

// NewMockGeocoder creates a new mock geocoder.
func NewMockGeocoder() *MockGeocoder {
	return &MockGeocoder{
		places:    make(map[string]geocoding.Place),
		LegMetres: 5_000,
	}
}

// AddPlace registers an address.
func (m *MockGeocoder) AddPlace(address string, lat, lng float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.places[address] = geocoding.Place{
		Location:         domain.Coordinates{Lat: lat, Lng: lng},
		FormattedAddress: address + ", Lagos",
	}
}

func (m *MockGeocoder) Geocode(ctx context.Context, address string) (*geocoding.Place, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	place, ok := m.places[address]
	if !ok {
		return nil, &geocoding.Error{Op: "geocode", Status: "ZERO_RESULTS", Err: geocoding.ErrNoResults}
	}
	return &place, nil
}

func (m *MockGeocoder) Route(ctx context.Context, origin domain.Coordinates, stops []domain.Coordinates) (*geocoding.Route, error) {
	atomic.AddInt32(&m.RouteCallCount, 1)
	if m.RouteError != nil {
		return nil, m.RouteError
	}
	route := &geocoding.Route{WaypointOrder: m.WaypointOrder}
	for range stops {
		route.Legs = append(route.Legs, geocoding.Leg{DistanceMetres: m.LegMetres, Duration: 10 * time.Minute})
	}
	return route, nil
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
