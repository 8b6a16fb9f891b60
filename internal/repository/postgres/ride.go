package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
//
// The ride row carries the scalar state; the interest list, status history
// and admin notes live in side tables (ride_interested_drivers,
// ride_status_history, ride_admin_notes) so concurrent mutations stay
// row-level and additive instead of overwriting a serialized list.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

const rideColumns = `id, rider_id, driver_id, status, pickup_lat, pickup_lng,
	destination_lat, destination_lng, price, payment_id, payment_held,
	payment_released, pickup_time, dropoff_time, created_at`

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (id, rider_id, driver_id, status, pickup_lat, pickup_lng,
			destination_lat, destination_lng, price, payment_id, payment_held,
			payment_released, pickup_time, dropoff_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.RiderID,
		nullString(ride.DriverID),
		ride.Status,
		ride.Pickup.Lat,
		ride.Pickup.Lng,
		ride.Destination.Lat,
		ride.Destination.Lng,
		ride.Price,
		nullString(ride.PaymentID),
		ride.PaymentHeld,
		ride.PaymentReleased,
		nullTime(ride.PickupTime),
		nullTime(ride.DropoffTime),
		ride.CreatedAt,
	)

	return err
}

// GetByID retrieves a ride with its interest list, history and notes.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`

	ride, err := r.scanRide(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if ride.InterestedDrivers, err = r.interestedDrivers(ctx, id); err != nil {
		return nil, err
	}
	if ride.StatusHistory, err = r.statusHistory(ctx, id); err != nil {
		return nil, err
	}
	if ride.AdminNotes, err = r.adminNotes(ctx, id); err != nil {
		return nil, err
	}

	return ride, nil
}

// GetAll retrieves all rides, newest first.
func (r *RideRepository) GetAll(ctx context.Context) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides ORDER BY created_at DESC LIMIT 100`
	return r.queryRides(ctx, query)
}

// GetByRider retrieves all rides requested by a rider.
func (r *RideRepository) GetByRider(ctx context.Context, riderID string) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE rider_id = $1 ORDER BY created_at DESC`
	return r.queryRides(ctx, query, riderID)
}

// GetForDriver retrieves the driver's assigned rides plus the REQUESTED pool.
func (r *RideRepository) GetForDriver(ctx context.Context, driverID string) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides
		WHERE driver_id = $1 OR status = $2
		ORDER BY created_at DESC`
	return r.queryRides(ctx, query, driverID, domain.RideStatusRequested)
}

// GetActiveByRider returns the rider's non-terminal ride, or nil.
func (r *RideRepository) GetActiveByRider(ctx context.Context, riderID string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides
		WHERE rider_id = $1 AND status IN ($2, $3, $4, $5)
		LIMIT 1`

	ride, err := r.scanRide(r.q.QueryRowContext(ctx, query, riderID,
		domain.RideStatusRequested, domain.RideStatusAccepted,
		domain.RideStatusPickedUp, domain.RideStatusInTransit))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return ride, err
}

// GetActiveByDriver returns the ride the driver is assigned to, or nil.
func (r *RideRepository) GetActiveByDriver(ctx context.Context, driverID string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides
		WHERE driver_id = $1 AND status IN ($2, $3, $4)
		LIMIT 1`

	ride, err := r.scanRide(r.q.QueryRowContext(ctx, query, driverID,
		domain.RideStatusAccepted, domain.RideStatusPickedUp, domain.RideStatusInTransit))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return ride, err
}

// UpdateStatusIf transitions the ride from one status to another.
func (r *RideRepository) UpdateStatusIf(ctx context.Context, id string, from, to domain.RideStatus, upd repository.RideUpdate) error {
	query := `
		UPDATE rides
		SET status = $1,
			driver_id = COALESCE($2, driver_id),
			pickup_time = COALESCE($3, pickup_time),
			dropoff_time = COALESCE($4, dropoff_time)
		WHERE id = $5 AND status = $6
	`

	result, err := r.q.ExecContext(ctx, query,
		to,
		nullString(upd.DriverID),
		nullTime(upd.PickupTime),
		nullTime(upd.DropoffTime),
		id,
		from,
	)
	if err != nil {
		return err
	}

	return conflictOnZeroRows(result)
}

// AssignDriverIf atomically commits a driver to a REQUESTED ride. The single
// statement enforces both the status precondition and driver uniqueness, so
// two concurrent acceptances converge to exactly one winner.
func (r *RideRepository) AssignDriverIf(ctx context.Context, rideID, driverID string, pickupTime time.Time) error {
	query := `
		UPDATE rides
		SET status = $1, driver_id = $2, pickup_time = $3
		WHERE id = $4 AND status = $5
		AND NOT EXISTS (
			SELECT 1 FROM rides busy
			WHERE busy.driver_id = $2 AND busy.status IN ($6, $7, $8)
		)
	`

	result, err := r.q.ExecContext(ctx, query,
		domain.RideStatusAccepted, driverID, pickupTime,
		rideID, domain.RideStatusRequested,
		domain.RideStatusAccepted, domain.RideStatusPickedUp, domain.RideStatusInTransit,
	)
	if err != nil {
		return err
	}

	return conflictOnZeroRows(result)
}

// ForceAssignDriver commits a driver regardless of ride status. Driver
// uniqueness remains a hard invariant even for overrides.
func (r *RideRepository) ForceAssignDriver(ctx context.Context, rideID, driverID string, pickupTime time.Time) error {
	query := `
		UPDATE rides
		SET status = $1, driver_id = $2, pickup_time = $3
		WHERE id = $4
		AND NOT EXISTS (
			SELECT 1 FROM rides busy
			WHERE busy.driver_id = $2 AND busy.id <> $4 AND busy.status IN ($5, $6, $7)
		)
	`

	result, err := r.q.ExecContext(ctx, query,
		domain.RideStatusAccepted, driverID, pickupTime, rideID,
		domain.RideStatusAccepted, domain.RideStatusPickedUp, domain.RideStatusInTransit,
	)
	if err != nil {
		return err
	}

	return conflictOnZeroRows(result)
}

// SetStatus sets the ride status unconditionally.
func (r *RideRepository) SetStatus(ctx context.Context, id string, status domain.RideStatus) error {
	result, err := r.q.ExecContext(ctx, `UPDATE rides SET status = $1 WHERE id = $2`, status, id)
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

// AddInterestedDriver adds a driver to the interest list with set semantics.
func (r *RideRepository) AddInterestedDriver(ctx context.Context, rideID, driverID string) (bool, error) {
	query := `
		INSERT INTO ride_interested_drivers (ride_id, driver_id)
		VALUES ($1, $2)
		ON CONFLICT (ride_id, driver_id) DO NOTHING
	`

	result, err := r.q.ExecContext(ctx, query, rideID, driverID)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// RemoveInterestElsewhere prunes the driver from every other interest list.
func (r *RideRepository) RemoveInterestElsewhere(ctx context.Context, driverID, keepRideID string) error {
	query := `DELETE FROM ride_interested_drivers WHERE driver_id = $1 AND ride_id <> $2`
	_, err := r.q.ExecContext(ctx, query, driverID, keepRideID)
	return err
}

// SetPaymentFlags updates the ride's payment mirror flags.
func (r *RideRepository) SetPaymentFlags(ctx context.Context, rideID string, held, released bool) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE rides SET payment_held = $1, payment_released = $2 WHERE id = $3`,
		held, released, rideID)
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

// AppendStatusHistory appends one entry to the ride's audit trail.
func (r *RideRepository) AppendStatusHistory(ctx context.Context, rideID string, entry domain.StatusChange) error {
	query := `
		INSERT INTO ride_status_history (ride_id, status, changed_by, changed_at, reason)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.q.ExecContext(ctx, query, rideID, entry.Status, entry.ChangedBy, entry.ChangedAt, entry.Reason)
	return err
}

// AppendAdminNote appends one operator note to the ride.
func (r *RideRepository) AppendAdminNote(ctx context.Context, rideID string, note domain.AdminNote) error {
	query := `
		INSERT INTO ride_admin_notes (ride_id, note, created_by, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.q.ExecContext(ctx, query, rideID, note.Note, note.CreatedBy, note.CreatedAt)
	return err
}

// ListByStatus retrieves rides in the given status, newest first.
func (r *RideRepository) ListByStatus(ctx context.Context, status domain.RideStatus) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE status = $1 ORDER BY created_at DESC`
	return r.queryRides(ctx, query, status)
}

// ListActive retrieves rides in a non-terminal status, newest first.
func (r *RideRepository) ListActive(ctx context.Context) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides
		WHERE status IN ($1, $2, $3, $4)
		ORDER BY created_at DESC`
	return r.queryRides(ctx, query,
		domain.RideStatusRequested, domain.RideStatusAccepted,
		domain.RideStatusPickedUp, domain.RideStatusInTransit)
}

// ListStaleRequested retrieves REQUESTED rides created before the cutoff.
func (r *RideRepository) ListStaleRequested(ctx context.Context, before time.Time) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides
		WHERE status = $1 AND created_at <= $2
		ORDER BY created_at DESC`
	return r.queryRides(ctx, query, domain.RideStatusRequested, before)
}

// ListUnattendedRequested retrieves stale REQUESTED rides with no interest.
func (r *RideRepository) ListUnattendedRequested(ctx context.Context, before time.Time) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides
		WHERE status = $1 AND created_at <= $2
		AND NOT EXISTS (
			SELECT 1 FROM ride_interested_drivers i WHERE i.ride_id = rides.id
		)
		ORDER BY created_at DESC`
	return r.queryRides(ctx, query, domain.RideStatusRequested, before)
}

// ListWithManyNotes retrieves rides carrying at least minNotes admin notes.
func (r *RideRepository) ListWithManyNotes(ctx context.Context, minNotes int) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides
		WHERE (SELECT COUNT(*) FROM ride_admin_notes n WHERE n.ride_id = rides.id) >= $1
		ORDER BY created_at DESC`
	return r.queryRides(ctx, query, minNotes)
}

// Delete removes the ride and its side-table rows.
func (r *RideRepository) Delete(ctx context.Context, id string) error {
	for _, query := range []string{
		`DELETE FROM ride_interested_drivers WHERE ride_id = $1`,
		`DELETE FROM ride_status_history WHERE ride_id = $1`,
		`DELETE FROM ride_admin_notes WHERE ride_id = $1`,
	} {
		if _, err := r.q.ExecContext(ctx, query, id); err != nil {
			return err
		}
	}

	result, err := r.q.ExecContext(ctx, `DELETE FROM rides WHERE id = $1`, id)
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

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *RideRepository) scanRide(row rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	var driverID, paymentID sql.NullString
	var pickupTime, dropoffTime sql.NullTime

	err := row.Scan(
		&ride.ID,
		&ride.RiderID,
		&driverID,
		&ride.Status,
		&ride.Pickup.Lat,
		&ride.Pickup.Lng,
		&ride.Destination.Lat,
		&ride.Destination.Lng,
		&ride.Price,
		&paymentID,
		&ride.PaymentHeld,
		&ride.PaymentReleased,
		&pickupTime,
		&dropoffTime,
		&ride.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	ride.DriverID = driverID.String
	ride.PaymentID = paymentID.String
	if pickupTime.Valid {
		ride.PickupTime = pickupTime.Time
	}
	if dropoffTime.Valid {
		ride.DropoffTime = dropoffTime.Time
	}

	return &ride, nil
}

func (r *RideRepository) queryRides(ctx context.Context, query string, args ...any) ([]*domain.Ride, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := r.scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

func (r *RideRepository) interestedDrivers(ctx context.Context, rideID string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT driver_id FROM ride_interested_drivers WHERE ride_id = $1`, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *RideRepository) statusHistory(ctx context.Context, rideID string) ([]domain.StatusChange, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT status, changed_by, changed_at, reason
		FROM ride_status_history WHERE ride_id = $1 ORDER BY changed_at`, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []domain.StatusChange
	for rows.Next() {
		var entry domain.StatusChange
		if err := rows.Scan(&entry.Status, &entry.ChangedBy, &entry.ChangedAt, &entry.Reason); err != nil {
			return nil, err
		}
		history = append(history, entry)
	}
	return history, rows.Err()
}

func (r *RideRepository) adminNotes(ctx context.Context, rideID string) ([]domain.AdminNote, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT note, created_by, created_at
		FROM ride_admin_notes WHERE ride_id = $1 ORDER BY created_at`, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []domain.AdminNote
	for rows.Next() {
		var note domain.AdminNote
		if err := rows.Scan(&note.Note, &note.CreatedBy, &note.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

func conflictOnZeroRows(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrConflict
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
