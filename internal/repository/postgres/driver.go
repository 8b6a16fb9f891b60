package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
// Reads join the users table so callers always see the account active flag
// next to approval and availability.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

const driverSelect = `
	SELECT d.id, d.user_id, COALESCE(d.name, ''), COALESCE(d.phone, ''),
		COALESCE(d.vehicle, ''), d.status, d.availability, u.active
	FROM drivers d
	JOIN users u ON u.id = d.user_id
`

// Create adds a new driver.
func (r *DriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	query := `
		INSERT INTO drivers (id, user_id, name, phone, vehicle, status, availability)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.q.ExecContext(ctx, query,
		driver.ID, driver.UserID, driver.Name, driver.Phone, driver.Vehicle,
		driver.Status, driver.Availability)
	return err
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	return r.scanDriver(r.q.QueryRowContext(ctx, driverSelect+` WHERE d.id = $1`, id))
}

// GetByUserID retrieves the driver record owned by a user account.
func (r *DriverRepository) GetByUserID(ctx context.Context, userID string) (*domain.Driver, error) {
	return r.scanDriver(r.q.QueryRowContext(ctx, driverSelect+` WHERE d.user_id = $1`, userID))
}

// GetAll retrieves all drivers.
func (r *DriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	rows, err := r.q.QueryContext(ctx, driverSelect+` ORDER BY d.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		driver, err := r.scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}
	return drivers, rows.Err()
}

// CountApprovedOnline counts matchable drivers.
func (r *DriverRepository) CountApprovedOnline(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM drivers d
		JOIN users u ON u.id = d.user_id
		WHERE d.status = $1 AND d.availability = $2 AND u.active
	`

	var count int
	err := r.q.QueryRowContext(ctx, query,
		domain.DriverStatusApproved, domain.AvailabilityOnline).Scan(&count)
	return count, err
}

// UpdateStatus updates a driver's approval status.
func (r *DriverRepository) UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error {
	return r.exec(ctx, `UPDATE drivers SET status = $1 WHERE id = $2`, status, id)
}

// UpdateAvailability updates a driver's online/offline availability.
func (r *DriverRepository) UpdateAvailability(ctx context.Context, id string, availability domain.Availability) error {
	return r.exec(ctx, `UPDATE drivers SET availability = $1 WHERE id = $2`, availability, id)
}

func (r *DriverRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *DriverRepository) scanDriver(row rowScanner) (*domain.Driver, error) {
	var driver domain.Driver
	err := row.Scan(
		&driver.ID,
		&driver.UserID,
		&driver.Name,
		&driver.Phone,
		&driver.Vehicle,
		&driver.Status,
		&driver.Availability,
		&driver.UserActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &driver, nil
}
