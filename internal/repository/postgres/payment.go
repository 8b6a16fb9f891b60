package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

const paymentColumns = `id, ride_id, driver_id, transaction_id, amount, status,
	held_at, released_at, created_at`

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, ride_id, driver_id, transaction_id, amount, status,
			held_at, released_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		payment.ID,
		nullString(payment.RideID),
		nullString(payment.DriverID),
		payment.TransactionID,
		payment.Amount,
		payment.Status,
		nullTime(payment.HeldAt),
		nullTime(payment.ReleasedAt),
		payment.CreatedAt,
	)

	return err
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.scanPayment(r.q.QueryRowContext(ctx, query, id))
}

// GetByRideID retrieves the payment linked to a ride.
func (r *PaymentRepository) GetByRideID(ctx context.Context, rideID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE ride_id = $1`
	return r.scanPayment(r.q.QueryRowContext(ctx, query, rideID))
}

// GetByTransactionID retrieves a payment by its unique transaction id.
func (r *PaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1`
	return r.scanPayment(r.q.QueryRowContext(ctx, query, transactionID))
}

// SetRideID backlinks a payment to its ride.
func (r *PaymentRepository) SetRideID(ctx context.Context, paymentID, rideID string) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE payments SET ride_id = $1 WHERE id = $2`, rideID, paymentID)
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

// UpdateStatusIf transitions the payment from one status to another.
func (r *PaymentRepository) UpdateStatusIf(ctx context.Context, id string, from, to domain.PaymentStatus) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE payments SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return err
	}

	return conflictOnZeroRows(result)
}

// MarkHeldIf transitions PAID -> HELD, binding the driver.
func (r *PaymentRepository) MarkHeldIf(ctx context.Context, id, driverID string, heldAt time.Time) error {
	query := `
		UPDATE payments
		SET status = $1, driver_id = $2, held_at = $3
		WHERE id = $4 AND status = $5
	`

	result, err := r.q.ExecContext(ctx, query,
		domain.PaymentStatusHeld, driverID, heldAt, id, domain.PaymentStatusPaid)
	if err != nil {
		return err
	}

	return conflictOnZeroRows(result)
}

// MarkReleasedIf transitions HELD -> RELEASED.
func (r *PaymentRepository) MarkReleasedIf(ctx context.Context, id string, releasedAt time.Time) error {
	query := `
		UPDATE payments
		SET status = $1, released_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.q.ExecContext(ctx, query,
		domain.PaymentStatusReleased, releasedAt, id, domain.PaymentStatusHeld)
	if err != nil {
		return err
	}

	return conflictOnZeroRows(result)
}

// Delete removes a payment.
func (r *PaymentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
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

func (r *PaymentRepository) scanPayment(row rowScanner) (*domain.Payment, error) {
	var payment domain.Payment
	var rideID, driverID sql.NullString
	var heldAt, releasedAt sql.NullTime

	err := row.Scan(
		&payment.ID,
		&rideID,
		&driverID,
		&payment.TransactionID,
		&payment.Amount,
		&payment.Status,
		&heldAt,
		&releasedAt,
		&payment.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	payment.RideID = rideID.String
	payment.DriverID = driverID.String
	if heldAt.Valid {
		payment.HeldAt = heldAt.Time
	}
	if releasedAt.Valid {
		payment.ReleasedAt = releasedAt.Time
	}

	return &payment, nil
}
