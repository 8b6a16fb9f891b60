package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

type adminFixture struct {
	rides   *MockRideRepository
	drivers *MockDriverRepository
	svc     *service.AdminService
}

func newAdminFixture() *adminFixture {
	f := &adminFixture{
		rides:   NewMockRideRepository(),
		drivers: NewMockDriverRepository(),
	}
	f.svc = service.NewAdminService(f.rides, f.drivers)
	return f
}

func TestOverrideStatus(t *testing.T) {
	f := newAdminFixture()
	f.rides.AddRide(&domain.Ride{
		ID: "ride-1", RiderID: "rider-1", DriverID: "driver-1", Status: domain.RideStatusInTransit,
	})

	ride, err := f.svc.OverrideStatus(context.Background(), "ops-1", "ride-1", domain.RideStatusCompleted, "rider reported app crash at dropoff")
	if err != nil {
		t.Fatalf("OverrideStatus failed: %v", err)
	}
	if ride.Status != domain.RideStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", ride.Status)
	}

	// Exactly one history entry and one note per override.
	if len(ride.StatusHistory) != 1 {
		t.Errorf("expected 1 history entry, got %d", len(ride.StatusHistory))
	}
	if len(ride.AdminNotes) != 1 {
		t.Errorf("expected 1 admin note, got %d", len(ride.AdminNotes))
	}
	if ride.StatusHistory[0].ChangedBy != "ops-1" {
		t.Errorf("expected history attributed to ops-1, got %q", ride.StatusHistory[0].ChangedBy)
	}
	// The operator's reason lands on the history entry too, not only the note.
	if got := ride.StatusHistory[0].Reason; got != "rider reported app crash at dropoff" {
		t.Errorf("expected history reason to carry the operator note, got %q", got)
	}
}

func TestOverrideStatusBackwards(t *testing.T) {
	f := newAdminFixture()
	f.rides.AddRide(&domain.Ride{
		ID: "ride-1", RiderID: "rider-1", Status: domain.RideStatusCancelled,
	})

	// Overrides ignore the transition rules, including terminal states.
	ride, err := f.svc.OverrideStatus(context.Background(), "ops-1", "ride-1", domain.RideStatusRequested, "cancelled by mistake, reopening")
	if err != nil {
		t.Fatalf("OverrideStatus failed: %v", err)
	}
	if ride.Status != domain.RideStatusRequested {
		t.Fatalf("expected REQUESTED, got %s", ride.Status)
	}
}

func TestOverrideStatusValidation(t *testing.T) {
	f := newAdminFixture()
	f.rides.AddRide(&domain.Ride{ID: "ride-1", RiderID: "rider-1", Status: domain.RideStatusRequested})
	ctx := context.Background()

	if _, err := f.svc.OverrideStatus(ctx, "ops-1", "ride-1", "TELEPORTED", "note"); !errors.Is(err, service.ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := f.svc.OverrideStatus(ctx, "ops-1", "ride-1", domain.RideStatusCompleted, ""); !errors.Is(err, service.ErrInvalidNote) {
		t.Errorf("expected ErrInvalidNote, got %v", err)
	}
	if _, err := f.svc.OverrideStatus(ctx, "ops-1", "ghost", domain.RideStatusCompleted, "note"); !errors.Is(err, service.ErrRideNotFound) {
		t.Errorf("expected ErrRideNotFound, got %v", err)
	}
}

func TestAdminAssignDriver(t *testing.T) {
	f := newAdminFixture()
	f.rides.AddRide(&domain.Ride{ID: "ride-1", RiderID: "rider-1", Status: domain.RideStatusRequested})
	f.drivers.AddDriver(&domain.Driver{
		ID: "driver-1", Status: domain.DriverStatusApproved,
		Availability: domain.AvailabilityOffline, UserActive: true,
	})

	// Offline is fine for a forced assignment; approval and an active
	// account are the hard requirements.
	ride, err := f.svc.AssignDriver(context.Background(), "ops-1", "ride-1", "driver-1", "driver called in, assigning manually")
	if err != nil {
		t.Fatalf("AssignDriver failed: %v", err)
	}
	if ride.Status != domain.RideStatusAccepted || ride.DriverID != "driver-1" {
		t.Fatalf("expected ACCEPTED with driver-1, got %s/%q", ride.Status, ride.DriverID)
	}
	if len(ride.StatusHistory) != 1 || len(ride.AdminNotes) != 1 {
		t.Errorf("expected one history entry and one note, got %d/%d", len(ride.StatusHistory), len(ride.AdminNotes))
	}
}

func TestAdminAssignDriverHardChecks(t *testing.T) {
	f := newAdminFixture()
	f.rides.AddRide(&domain.Ride{ID: "ride-1", RiderID: "rider-1", Status: domain.RideStatusRequested})
	ctx := context.Background()

	f.drivers.AddDriver(&domain.Driver{
		ID: "pending", Status: domain.DriverStatusPending, UserActive: true,
	})
	if _, err := f.svc.AssignDriver(ctx, "ops-1", "ride-1", "pending", "note"); !errors.Is(err, service.ErrDriverNotApproved) {
		t.Errorf("expected ErrDriverNotApproved, got %v", err)
	}

	f.drivers.AddDriver(&domain.Driver{
		ID: "inactive", Status: domain.DriverStatusApproved, UserActive: false,
	})
	if _, err := f.svc.AssignDriver(ctx, "ops-1", "ride-1", "inactive", "note"); !errors.Is(err, service.ErrDriverNotAvailable) {
		t.Errorf("expected ErrDriverNotAvailable, got %v", err)
	}
}

func TestAdminAssignDriverBusy(t *testing.T) {
	f := newAdminFixture()
	f.rides.AddRide(&domain.Ride{ID: "ride-1", RiderID: "rider-1", Status: domain.RideStatusRequested})
	f.rides.AddRide(&domain.Ride{ID: "ride-2", RiderID: "rider-2", DriverID: "driver-1", Status: domain.RideStatusInTransit})
	f.drivers.AddDriver(&domain.Driver{
		ID: "driver-1", Status: domain.DriverStatusApproved,
		Availability: domain.AvailabilityOnline, UserActive: true,
	})

	_, err := f.svc.AssignDriver(context.Background(), "ops-1", "ride-1", "driver-1", "note")
	if !errors.Is(err, service.ErrDriverBusy) {
		t.Fatalf("expected ErrDriverBusy, got %v", err)
	}
}

func TestAddNote(t *testing.T) {
	f := newAdminFixture()
	f.rides.AddRide(&domain.Ride{ID: "ride-1", RiderID: "rider-1", Status: domain.RideStatusRequested})
	ctx := context.Background()

	if err := f.svc.AddNote(ctx, "ops-1", "ride-1", "rider disputes the fare"); err != nil {
		t.Fatalf("AddNote failed: %v", err)
	}
	if got := len(f.rides.Ride("ride-1").AdminNotes); got != 1 {
		t.Fatalf("expected 1 note, got %d", got)
	}
	if err := f.svc.AddNote(ctx, "ops-1", "ride-1", ""); !errors.Is(err, service.ErrInvalidNote) {
		t.Errorf("expected ErrInvalidNote, got %v", err)
	}
}

func TestGetIssues(t *testing.T) {
	f := newAdminFixture()
	now := time.Now().UTC()

	f.rides.AddRide(&domain.Ride{
		ID: "cancelled", Status: domain.RideStatusCancelled, CreatedAt: now,
	})
	f.rides.AddRide(&domain.Ride{
		ID: "stale", Status: domain.RideStatusRequested,
		InterestedDrivers: []string{"driver-1"},
		CreatedAt:         now.Add(-45 * time.Minute),
	})
	f.rides.AddRide(&domain.Ride{
		ID: "unattended", Status: domain.RideStatusRequested,
		CreatedAt: now.Add(-20 * time.Minute),
	})
	f.rides.AddRide(&domain.Ride{
		ID: "disputed", Status: domain.RideStatusCompleted, CreatedAt: now,
		AdminNotes: []domain.AdminNote{{Note: "a"}, {Note: "b"}, {Note: "c"}},
	})
	f.rides.AddRide(&domain.Ride{
		ID: "fresh", Status: domain.RideStatusRequested, CreatedAt: now,
	})

	issues, err := f.svc.GetIssues(context.Background())
	if err != nil {
		t.Fatalf("GetIssues failed: %v", err)
	}

	if len(issues.Cancelled) != 1 || issues.Cancelled[0].ID != "cancelled" {
		t.Errorf("unexpected cancelled set: %+v", issues.Cancelled)
	}
	// The 20 minute request is too young for the stale bucket but old
	// enough for the no-driver one.
	if len(issues.LongDuration) != 1 || issues.LongDuration[0].ID != "stale" {
		t.Errorf("unexpected stale set: %+v", issues.LongDuration)
	}
	if len(issues.NoDriver) != 1 || issues.NoDriver[0].ID != "unattended" {
		t.Errorf("unexpected no-driver set: %+v", issues.NoDriver)
	}
	if len(issues.Disputed) != 1 || issues.Disputed[0].ID != "disputed" {
		t.Errorf("unexpected disputed set: %+v", issues.Disputed)
	}
}

func TestGetOverview(t *testing.T) {
	f := newAdminFixture()
	f.rides.AddRide(&domain.Ride{ID: "r1", Status: domain.RideStatusRequested})
	f.rides.AddRide(&domain.Ride{ID: "r2", Status: domain.RideStatusInTransit})
	f.rides.AddRide(&domain.Ride{ID: "r3", Status: domain.RideStatusCompleted})
	f.rides.AddRide(&domain.Ride{ID: "r4", Status: domain.RideStatusCancelled})
	f.drivers.AddDriver(&domain.Driver{
		ID: "d1", Status: domain.DriverStatusApproved,
		Availability: domain.AvailabilityOnline, UserActive: true,
	})
	f.drivers.AddDriver(&domain.Driver{
		ID: "d2", Status: domain.DriverStatusApproved,
		Availability: domain.AvailabilityOffline, UserActive: true,
	})

	ov, err := f.svc.GetOverview(context.Background())
	if err != nil {
		t.Fatalf("GetOverview failed: %v", err)
	}
	if ov.TotalRides != 4 || ov.ActiveRides != 2 || ov.CompletedRides != 1 || ov.CancelledRides != 1 {
		t.Errorf("unexpected ride counters: %+v", ov)
	}
	if ov.TotalDrivers != 2 || ov.OnlineDrivers != 1 {
		t.Errorf("unexpected driver counters: %+v", ov)
	}
}

func TestForceDelete(t *testing.T) {
	f := newAdminFixture()
	f.rides.AddRide(&domain.Ride{
		ID: "ride-1", RiderID: "rider-1", DriverID: "driver-1",
		Status: domain.RideStatusCancelled, PaymentID: "pay-1",
	})

	record, err := f.svc.ForceDelete(context.Background(), "ops-1", "ride-1", "duplicate booking, rider confirmed")
	if err != nil {
		t.Fatalf("ForceDelete failed: %v", err)
	}
	if record.RideID != "ride-1" || record.Status != domain.RideStatusCancelled || record.DeletedBy != "ops-1" {
		t.Errorf("unexpected deletion record: %+v", record)
	}
	if record.Reason != "duplicate booking, rider confirmed" {
		t.Errorf("expected reason on the deletion record, got %q", record.Reason)
	}
	if f.rides.Ride("ride-1") != nil {
		t.Error("expected ride to be gone")
	}

	if _, err := f.svc.ForceDelete(context.Background(), "ops-1", "ride-1", "retry"); !errors.Is(err, service.ErrRideNotFound) {
		t.Errorf("expected ErrRideNotFound on repeat delete, got %v", err)
	}
}

func TestForceDeleteRequiresReason(t *testing.T) {
	f := newAdminFixture()
	f.rides.AddRide(&domain.Ride{ID: "ride-1", RiderID: "rider-1", Status: domain.RideStatusCancelled})

	if _, err := f.svc.ForceDelete(context.Background(), "ops-1", "ride-1", ""); !errors.Is(err, service.ErrInvalidNote) {
		t.Fatalf("expected ErrInvalidNote without a reason, got %v", err)
	}
	if f.rides.Ride("ride-1") == nil {
		t.Error("expected ride untouched when the reason is missing")
	}
}
