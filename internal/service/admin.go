package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

const (
	// staleRequestAge is how long a ride may sit in REQUESTED before it is
	// flagged for operators.
	staleRequestAge = 30 * time.Minute

	// unattendedAge is how long a REQUESTED ride may go without any driver
	// interest before it is flagged.
	unattendedAge = 15 * time.Minute

	// disputedNoteCount is the number of operator notes that marks a ride
	// as disputed.
	disputedNoteCount = 3
)

// AdminService implements the operator override surface. Overrides bypass
// the lifecycle's transition rules but every one of them leaves an audit
// trail entry and an operator note.
type AdminService struct {
	rides   repository.RideRepository
	drivers repository.DriverRepository
}

// NewAdminService creates a new AdminService.
func NewAdminService(rides repository.RideRepository, drivers repository.DriverRepository) *AdminService {
	return &AdminService{rides: rides, drivers: drivers}
}

var validStatuses = map[domain.RideStatus]bool{
	domain.RideStatusRequested: true,
	domain.RideStatusAccepted:  true,
	domain.RideStatusPickedUp:  true,
	domain.RideStatusInTransit: true,
	domain.RideStatusCompleted: true,
	domain.RideStatusCancelled: true,
}

// OverrideStatus forces a ride into the given status regardless of its
// current one. Exactly one history entry and one note record the override.
func (s *AdminService) OverrideStatus(ctx context.Context, adminID, rideID string, status domain.RideStatus, note string) (*domain.Ride, error) {
	if adminID == "" {
		return nil, ErrInvalidActor
	}
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if !validStatuses[status] {
		return nil, ErrInvalidStatus
	}
	if note == "" {
		return nil, ErrInvalidNote
	}

	if _, err := s.getRide(ctx, rideID); err != nil {
		return nil, err
	}

	if err := s.rides.SetStatus(ctx, rideID, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, fmt.Errorf("overriding ride status: %w", err)
	}

	now := time.Now().UTC()
	s.audit(ctx, rideID, domain.StatusChange{
		Status:    status,
		ChangedBy: adminID,
		ChangedAt: now,
		Reason:    note,
	}, domain.AdminNote{
		Note:      note,
		CreatedBy: adminID,
		CreatedAt: now,
	})

	return s.rides.GetByID(ctx, rideID)
}

// AssignDriver force-assigns a driver to a ride, skipping the interest and
// payment gates. The driver must still be approved on an active account and
// must not hold another active ride.
func (s *AdminService) AssignDriver(ctx context.Context, adminID, rideID, driverID, note string) (*domain.Ride, error) {
	if adminID == "" || driverID == "" {
		return nil, ErrInvalidActor
	}
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if note == "" {
		return nil, ErrInvalidNote
	}

	if _, err := s.getRide(ctx, rideID); err != nil {
		return nil, err
	}

	driver, err := s.drivers.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDriverNotFound
		}
		return nil, fmt.Errorf("loading driver: %w", err)
	}
	if driver.Status != domain.DriverStatusApproved {
		return nil, ErrDriverNotApproved
	}
	if !driver.UserActive {
		return nil, ErrDriverNotAvailable
	}

	now := time.Now().UTC()
	if err := s.rides.ForceAssignDriver(ctx, rideID, driverID, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrDriverBusy
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, fmt.Errorf("force-assigning driver: %w", err)
	}

	s.audit(ctx, rideID, domain.StatusChange{
		Status:    domain.RideStatusAccepted,
		ChangedBy: adminID,
		ChangedAt: now,
		Reason:    "admin assignment",
	}, domain.AdminNote{
		Note:      note,
		CreatedBy: adminID,
		CreatedAt: now,
	})

	return s.rides.GetByID(ctx, rideID)
}

// AddNote attaches an operator note to a ride.
func (s *AdminService) AddNote(ctx context.Context, adminID, rideID, note string) error {
	if adminID == "" {
		return ErrInvalidActor
	}
	if rideID == "" {
		return ErrInvalidRideID
	}
	if note == "" {
		return ErrInvalidNote
	}

	if _, err := s.getRide(ctx, rideID); err != nil {
		return err
	}

	return s.rides.AppendAdminNote(ctx, rideID, domain.AdminNote{
		Note:      note,
		CreatedBy: adminID,
		CreatedAt: time.Now().UTC(),
	})
}

// RideIssues groups the rides operators should look at.
type RideIssues struct {
	Cancelled    []*domain.Ride
	LongDuration []*domain.Ride
	NoDriver     []*domain.Ride
	Disputed     []*domain.Ride
}

// GetIssues collects problem rides: cancellations, requests stuck past the
// stale threshold, requests nobody bid on, and rides with enough operator
// notes to count as disputed.
func (s *AdminService) GetIssues(ctx context.Context) (*RideIssues, error) {
	now := time.Now().UTC()

	cancelled, err := s.rides.ListByStatus(ctx, domain.RideStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("listing cancelled rides: %w", err)
	}

	stale, err := s.rides.ListStaleRequested(ctx, now.Add(-staleRequestAge))
	if err != nil {
		return nil, fmt.Errorf("listing stale requests: %w", err)
	}

	unattended, err := s.rides.ListUnattendedRequested(ctx, now.Add(-unattendedAge))
	if err != nil {
		return nil, fmt.Errorf("listing unattended requests: %w", err)
	}

	disputed, err := s.rides.ListWithManyNotes(ctx, disputedNoteCount)
	if err != nil {
		return nil, fmt.Errorf("listing disputed rides: %w", err)
	}

	return &RideIssues{
		Cancelled:    cancelled,
		LongDuration: stale,
		NoDriver:     unattended,
		Disputed:     disputed,
	}, nil
}

// Overview summarizes the fleet state for the operator dashboard.
type Overview struct {
	TotalRides     int
	ActiveRides    int
	CompletedRides int
	CancelledRides int
	TotalDrivers   int
	OnlineDrivers  int
}

// GetOverview computes dashboard counters.
func (s *AdminService) GetOverview(ctx context.Context) (*Overview, error) {
	rides, err := s.rides.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing rides: %w", err)
	}

	ov := &Overview{TotalRides: len(rides)}
	for _, ride := range rides {
		switch {
		case ride.Status == domain.RideStatusCompleted:
			ov.CompletedRides++
		case ride.Status == domain.RideStatusCancelled:
			ov.CancelledRides++
		case !ride.Status.Terminal():
			ov.ActiveRides++
		}
	}

	drivers, err := s.drivers.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing drivers: %w", err)
	}
	ov.TotalDrivers = len(drivers)
	for _, driver := range drivers {
		if driver.Eligible() {
			ov.OnlineDrivers++
		}
	}
	return ov, nil
}

// GetActiveRides lists every ride still in flight.
func (s *AdminService) GetActiveRides(ctx context.Context) ([]*domain.Ride, error) {
	return s.rides.ListActive(ctx)
}

// DeletionRecord is the audit snapshot returned by ForceDelete.
type DeletionRecord struct {
	RideID    string
	RiderID   string
	DriverID  string
	Status    domain.RideStatus
	PaymentID string
	Reason    string
	DeletedBy string
	DeletedAt time.Time
}

// ForceDelete removes a ride and its side tables outright. The payment row
// is kept for ledger retention. The snapshot of what was removed, and the
// operator's reason, is logged and returned.
func (s *AdminService) ForceDelete(ctx context.Context, adminID, rideID, reason string) (*DeletionRecord, error) {
	if adminID == "" {
		return nil, ErrInvalidActor
	}
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if reason == "" {
		return nil, ErrInvalidNote
	}

	ride, err := s.getRide(ctx, rideID)
	if err != nil {
		return nil, err
	}

	record := &DeletionRecord{
		RideID:    ride.ID,
		RiderID:   ride.RiderID,
		DriverID:  ride.DriverID,
		Status:    ride.Status,
		PaymentID: ride.PaymentID,
		Reason:    reason,
		DeletedBy: adminID,
		DeletedAt: time.Now().UTC(),
	}

	log.Printf("admin %s force-deleting ride %s (rider=%s driver=%s status=%s payment=%s reason=%q)",
		adminID, ride.ID, ride.RiderID, ride.DriverID, ride.Status, ride.PaymentID, reason)

	if err := s.rides.Delete(ctx, rideID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, fmt.Errorf("deleting ride: %w", err)
	}
	return record, nil
}

func (s *AdminService) getRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, fmt.Errorf("loading ride: %w", err)
	}
	return ride, nil
}

// audit appends the paired history entry and note an override must leave.
// Failures are logged; the override itself already committed.
func (s *AdminService) audit(ctx context.Context, rideID string, entry domain.StatusChange, note domain.AdminNote) {
	if err := s.rides.AppendStatusHistory(ctx, rideID, entry); err != nil {
		log.Printf("admin audit: history on ride %s: %v", rideID, err)
	}
	if err := s.rides.AppendAdminNote(ctx, rideID, note); err != nil {
		log.Printf("admin audit: note on ride %s: %v", rideID, err)
	}
}
