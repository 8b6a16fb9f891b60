package service

// Kind classifies a service error so the transport layer can pick a status
// code without inspecting individual errors.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindConflict
	KindForbidden
	KindPreconditionFailed
)

// Error is a typed service error. Errors are compared by identity, so the
// sentinels below work with errors.Is.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Ride lifecycle errors.
var (
	ErrNoDriversAvailable  = newError(KindPreconditionFailed, "NO_DRIVERS_AVAILABLE", "no approved drivers are currently online")
	ErrRiderAlreadyOnRide  = newError(KindConflict, "RIDER_ALREADY_ON_RIDE", "rider already has a ride in progress")
	ErrRideNotFound        = newError(KindNotFound, "RIDE_NOT_FOUND", "ride not found")
	ErrRideNotRequestable  = newError(KindConflict, "RIDE_NOT_REQUESTED", "ride is no longer accepting drivers")
	ErrAlreadyInterested   = newError(KindConflict, "ALREADY_INTERESTED", "driver already expressed interest in this ride")
	ErrRideNotAcceptable   = newError(KindConflict, "RIDE_NOT_ACCEPTABLE", "ride was accepted by another driver or is no longer open")
	ErrRideStateChanged    = newError(KindConflict, "RIDE_STATE_CHANGED", "ride status changed concurrently, retry with fresh state")
	ErrRideAlreadyTerminal = newError(KindConflict, "RIDE_ALREADY_TERMINAL", "ride is already completed or cancelled")
	ErrRideNotCancellable  = newError(KindConflict, "RIDE_NOT_CANCELLABLE", "ride can no longer be cancelled by the rider")
	ErrForbiddenTransition = newError(KindForbidden, "FORBIDDEN_TRANSITION", "actor is not allowed to perform this status transition")
	ErrNotRideOwner        = newError(KindForbidden, "NOT_RIDE_OWNER", "ride belongs to a different rider")
)

// Driver eligibility errors.
var (
	ErrDriverNotFound      = newError(KindNotFound, "DRIVER_NOT_FOUND", "driver not found")
	ErrDriverNotApproved   = newError(KindForbidden, "DRIVER_NOT_APPROVED", "driver is not approved")
	ErrDriverNotAvailable  = newError(KindPreconditionFailed, "DRIVER_NOT_AVAILABLE", "driver is offline or the account is deactivated")
	ErrDriverBusy          = newError(KindConflict, "DRIVER_BUSY", "driver is already assigned to another active ride")
	ErrDriverNotInterested = newError(KindPreconditionFailed, "DRIVER_NOT_INTERESTED", "driver has not expressed interest in this ride")
)

// Payment errors.
var (
	ErrPaymentNotFound      = newError(KindNotFound, "PAYMENT_NOT_FOUND", "payment not found")
	ErrPaymentNotReady      = newError(KindPreconditionFailed, "PAYMENT_NOT_SECURED", "payment has not been secured for this ride")
	ErrPaymentMismatch      = newError(KindValidation, "PAYMENT_MISMATCH", "payment does not belong to this ride")
	ErrPaymentNotHoldable   = newError(KindPreconditionFailed, "PAYMENT_NOT_HOLDABLE", "payment is not in a holdable state")
	ErrPaymentNotReleasable = newError(KindPreconditionFailed, "PAYMENT_NOT_RELEASABLE", "payment is not in a releasable state")
	ErrRideNotCompleted     = newError(KindPreconditionFailed, "RIDE_NOT_COMPLETED", "payment can only be released after the ride is completed")
	ErrPaymentNotPayable    = newError(KindConflict, "PAYMENT_NOT_PAYABLE", "payment is not awaiting gateway confirmation")
)

// Validation errors.
var (
	ErrInvalidPrice    = newError(KindValidation, "INVALID_PRICE", "price must be greater than zero")
	ErrInvalidLocation = newError(KindValidation, "INVALID_LOCATION", "pickup and destination coordinates are required")
	ErrInvalidActor    = newError(KindValidation, "INVALID_ACTOR", "actor id is required")
	ErrInvalidRideID   = newError(KindValidation, "INVALID_RIDE_ID", "ride id is required")
	ErrInvalidNote     = newError(KindValidation, "INVALID_NOTE", "note text is required")
	ErrInvalidStatus   = newError(KindValidation, "INVALID_STATUS", "unknown ride status")
)

// User errors.
var (
	ErrUserNotFound = newError(KindNotFound, "USER_NOT_FOUND", "user not found")
)
