package tests

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is a mock implementation of RideRepository. Conditional
// updates keep the same win-or-conflict semantics as the SQL implementation
// so races can be exercised in-memory.
type MockRideRepository struct {
	mu    sync.RWMutex
	rides map[string]*domain.Ride

	// Counters for verification
	CreateCallCount        int32
	AssignDriverCallCount  int32
	AppendHistoryCallCount int32
	AppendNoteCallCount    int32
	DeleteCallCount        int32

	// Error injection
	CreateError        error
	AssignDriverError  error
	SetPaymentError    error
	AppendHistoryError error
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{
		rides: make(map[string]*domain.Ride),
	}
}

// AddRide seeds a ride into the mock repository.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = ride
}

// Ride returns the stored ride for test assertions.
func (m *MockRideRepository) Ride(id string) *domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rides[id]
}

func copyRide(r *domain.Ride) *domain.Ride {
	cp := *r
	cp.InterestedDrivers = append([]string(nil), r.InterestedDrivers...)
	cp.StatusHistory = append([]domain.StatusChange(nil), r.StatusHistory...)
	cp.AdminNotes = append([]domain.AdminNote(nil), r.AdminNotes...)
	return &cp
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = copyRide(ride)
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyRide(ride), nil
}

func (m *MockRideRepository) GetAll(ctx context.Context) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Ride, 0, len(m.rides))
	for _, r := range m.rides {
		result = append(result, copyRide(r))
	}
	return result, nil
}

func (m *MockRideRepository) GetByRider(ctx context.Context, riderID string) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Ride
	for _, r := range m.rides {
		if r.RiderID == riderID {
			result = append(result, copyRide(r))
		}
	}
	return result, nil
}

func (m *MockRideRepository) GetForDriver(ctx context.Context, driverID string) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Ride
	for _, r := range m.rides {
		if r.DriverID == driverID || r.Status == domain.RideStatusRequested {
			result = append(result, copyRide(r))
		}
	}
	return result, nil
}

func (m *MockRideRepository) GetActiveByRider(ctx context.Context, riderID string) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rides {
		if r.RiderID == riderID && !r.Status.Terminal() {
			return copyRide(r), nil
		}
	}
	return nil, nil
}

func (m *MockRideRepository) GetActiveByDriver(ctx context.Context, driverID string) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rides {
		if r.DriverID == driverID && r.Status.Active() {
			return copyRide(r), nil
		}
	}
	return nil, nil
}

func (m *MockRideRepository) UpdateStatusIf(ctx context.Context, id string, from, to domain.RideStatus, upd repository.RideUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[id]
	if !ok {
		return repository.ErrNotFound
	}
	if ride.Status != from {
		return repository.ErrConflict
	}
	ride.Status = to
	if upd.DriverID != "" {
		ride.DriverID = upd.DriverID
	}
	if !upd.PickupTime.IsZero() {
		ride.PickupTime = upd.PickupTime
	}
	if !upd.DropoffTime.IsZero() {
		ride.DropoffTime = upd.DropoffTime
	}
	return nil
}

func (m *MockRideRepository) driverBusyLocked(driverID, exceptRideID string) bool {
	for _, r := range m.rides {
		if r.ID != exceptRideID && r.DriverID == driverID && r.Status.Active() {
			return true
		}
	}
	return false
}

func (m *MockRideRepository) AssignDriverIf(ctx context.Context, rideID, driverID string, pickupTime time.Time) error {
	atomic.AddInt32(&m.AssignDriverCallCount, 1)
	if m.AssignDriverError != nil {
		return m.AssignDriverError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return repository.ErrNotFound
	}
	if ride.Status != domain.RideStatusRequested {
		return repository.ErrConflict
	}
	if m.driverBusyLocked(driverID, rideID) {
		return repository.ErrConflict
	}
	ride.Status = domain.RideStatusAccepted
	ride.DriverID = driverID
	ride.PickupTime = pickupTime
	return nil
}

func (m *MockRideRepository) ForceAssignDriver(ctx context.Context, rideID, driverID string, pickupTime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return repository.ErrNotFound
	}
	if m.driverBusyLocked(driverID, rideID) {
		return repository.ErrConflict
	}
	ride.Status = domain.RideStatusAccepted
	ride.DriverID = driverID
	ride.PickupTime = pickupTime
	return nil
}

func (m *MockRideRepository) SetStatus(ctx context.Context, id string, status domain.RideStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[id]
	if !ok {
		return repository.ErrNotFound
	}
	ride.Status = status
	return nil
}

func (m *MockRideRepository) AddInterestedDriver(ctx context.Context, rideID, driverID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return false, repository.ErrNotFound
	}
	for _, id := range ride.InterestedDrivers {
		if id == driverID {
			return false, nil
		}
	}
	ride.InterestedDrivers = append(ride.InterestedDrivers, driverID)
	return true, nil
}

func (m *MockRideRepository) RemoveInterestElsewhere(ctx context.Context, driverID, keepRideID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rides {
		if r.ID == keepRideID {
			continue
		}
		kept := r.InterestedDrivers[:0]
		for _, id := range r.InterestedDrivers {
			if id != driverID {
				kept = append(kept, id)
			}
		}
		r.InterestedDrivers = kept
	}
	return nil
}

func (m *MockRideRepository) SetPaymentFlags(ctx context.Context, rideID string, held, released bool) error {
	if m.SetPaymentError != nil {
		return m.SetPaymentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return repository.ErrNotFound
	}
	ride.PaymentHeld = held
	ride.PaymentReleased = released
	return nil
}

func (m *MockRideRepository) AppendStatusHistory(ctx context.Context, rideID string, entry domain.StatusChange) error {
	atomic.AddInt32(&m.AppendHistoryCallCount, 1)
	if m.AppendHistoryError != nil {
		return m.AppendHistoryError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return repository.ErrNotFound
	}
	ride.StatusHistory = append(ride.StatusHistory, entry)
	return nil
}

func (m *MockRideRepository) AppendAdminNote(ctx context.Context, rideID string, note domain.AdminNote) error {
	atomic.AddInt32(&m.AppendNoteCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return repository.ErrNotFound
	}
	ride.AdminNotes = append(ride.AdminNotes, note)
	return nil
}

func (m *MockRideRepository) ListByStatus(ctx context.Context, status domain.RideStatus) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Ride
	for _, r := range m.rides {
		if r.Status == status {
			result = append(result, copyRide(r))
		}
	}
	return result, nil
}

func (m *MockRideRepository) ListActive(ctx context.Context) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Ride
	for _, r := range m.rides {
		if !r.Status.Terminal() {
			result = append(result, copyRide(r))
		}
	}
	return result, nil
}

func (m *MockRideRepository) ListStaleRequested(ctx context.Context, before time.Time) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Ride
	for _, r := range m.rides {
		if r.Status == domain.RideStatusRequested && r.CreatedAt.Before(before) {
			result = append(result, copyRide(r))
		}
	}
	return result, nil
}

func (m *MockRideRepository) ListUnattendedRequested(ctx context.Context, before time.Time) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Ride
	for _, r := range m.rides {
		if r.Status == domain.RideStatusRequested && r.CreatedAt.Before(before) && len(r.InterestedDrivers) == 0 {
			result = append(result, copyRide(r))
		}
	}
	return result, nil
}

func (m *MockRideRepository) ListWithManyNotes(ctx context.Context, minNotes int) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Ride
	for _, r := range m.rides {
		if len(r.AdminNotes) >= minNotes {
			result = append(result, copyRide(r))
		}
	}
	return result, nil
}

func (m *MockRideRepository) Delete(ctx context.Context, id string) error {
	atomic.AddInt32(&m.DeleteCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rides, id)
	return nil
}

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of PaymentRepository.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment

	// Counters for verification
	CreateCallCount int32
	DeleteCallCount int32

	// Error injection
	CreateError       error
	MarkHeldError     error
	MarkReleasedError error
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]*domain.Payment),
	}
}

// AddPayment seeds a payment into the mock repository.
func (m *MockPaymentRepository) AddPayment(payment *domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[payment.ID] = payment
}

// Payment returns the stored payment for test assertions.
func (m *MockPaymentRepository) Payment(id string) *domain.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.payments[id]
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *payment
	m.payments[payment.ID] = &cp
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payment, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *payment
	return &cp, nil
}

func (m *MockPaymentRepository) GetByRideID(ctx context.Context, rideID string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.RideID == rideID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockPaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.TransactionID == transactionID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockPaymentRepository) SetRideID(ctx context.Context, paymentID, rideID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.payments[paymentID]
	if !ok {
		return repository.ErrNotFound
	}
	payment.RideID = rideID
	return nil
}

func (m *MockPaymentRepository) UpdateStatusIf(ctx context.Context, id string, from, to domain.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	if payment.Status != from {
		return repository.ErrConflict
	}
	payment.Status = to
	return nil
}

func (m *MockPaymentRepository) MarkHeldIf(ctx context.Context, id, driverID string, heldAt time.Time) error {
	if m.MarkHeldError != nil {
		return m.MarkHeldError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	if payment.Status != domain.PaymentStatusPaid {
		return repository.ErrConflict
	}
	payment.Status = domain.PaymentStatusHeld
	payment.DriverID = driverID
	payment.HeldAt = heldAt
	return nil
}

func (m *MockPaymentRepository) MarkReleasedIf(ctx context.Context, id string, releasedAt time.Time) error {
	if m.MarkReleasedError != nil {
		return m.MarkReleasedError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	if payment.Status != domain.PaymentStatusHeld {
		return repository.ErrConflict
	}
	payment.Status = domain.PaymentStatusReleased
	payment.ReleasedAt = releasedAt
	return nil
}

func (m *MockPaymentRepository) Delete(ctx context.Context, id string) error {
	atomic.AddInt32(&m.DeleteCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.payments, id)
	return nil
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver

	// Counters for verification
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		drivers: make(map[string]*domain.Driver),
	}
}

// AddDriver seeds a driver into the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

// Driver returns the stored driver for test assertions.
func (m *MockDriverRepository) Driver(id string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[id]
}

func (m *MockDriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *driver
	m.drivers[driver.ID] = &cp
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *driver
	return &cp, nil
}

func (m *MockDriverRepository) GetByUserID(ctx context.Context, userID string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.drivers {
		if d.UserID == userID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockDriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		cp := *d
		result = append(result, &cp)
	}
	return result, nil
}

func (m *MockDriverRepository) CountApprovedOnline(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, d := range m.drivers {
		if d.Eligible() {
			count++
		}
	}
	return count, nil
}

func (m *MockDriverRepository) UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Status = status
	return nil
}

func (m *MockDriverRepository) UpdateAvailability(ctx context.Context, id string, availability domain.Availability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Availability = availability
	return nil
}

// ──────────────────────────────────────────────
// MOCK USER REPOSITORY
// ──────────────────────────────────────────────

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

// NewMockUserRepository creates a new mock user repository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]*domain.User),
	}
}

// AddUser seeds a user into the mock repository.
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (m *MockUserRepository) GetAll(ctx context.Context) ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		result = append(result, &cp)
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is an in-memory implementation of the driver lock store.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]bool

	// Counters for verification
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]bool),
	}
}

func (m *MockLockStore) AcquireDriverLock(ctx context.Context, driverID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[driverID] {
		return false, nil
	}
	m.locks[driverID] = true
	return true, nil
}

func (m *MockLockStore) ReleaseDriverLock(ctx context.Context, driverID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, driverID)
	return nil
}

var _ redis.LockStoreInterface = (*MockLockStore)(nil)

// ──────────────────────────────────────────────
// MOCK AVAILABILITY STORE
// ──────────────────────────────────────────────

// MockAvailabilityStore is an in-memory driver availability mirror.
type MockAvailabilityStore struct {
	mu        sync.RWMutex
	online    map[string]bool
	positions map[string]domain.GeoPoint
}

// NewMockAvailabilityStore creates a new mock availability store.
func NewMockAvailabilityStore() *MockAvailabilityStore {
	return &MockAvailabilityStore{
		online:    make(map[string]bool),
		positions: make(map[string]domain.GeoPoint),
	}
}

func (m *MockAvailabilityStore) MarkOnline(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online[driverID] = true
	return nil
}

func (m *MockAvailabilityStore) MarkOffline(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.online, driverID)
	delete(m.positions, driverID)
	return nil
}

func (m *MockAvailabilityStore) IsOnline(ctx context.Context, driverID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online[driverID], nil
}

func (m *MockAvailabilityStore) OnlineDrivers(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]string, 0, len(m.online))
	for id := range m.online {
		result = append(result, id)
	}
	return result, nil
}

func (m *MockAvailabilityStore) UpdatePosition(ctx context.Context, driverID string, lat, lng float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[driverID] = domain.GeoPoint{Lat: lat, Lng: lng}
	return nil
}

func (m *MockAvailabilityStore) NearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]string, 0, len(m.positions))
	for id := range m.positions {
		result = append(result, id)
	}
	return result, nil
}

var _ redis.AvailabilityStoreInterface = (*MockAvailabilityStore)(nil)
