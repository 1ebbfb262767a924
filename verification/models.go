package verification

import (
	"errors"
	"time"

	"shodesh/auth"
	"shodesh/event"
)

var (
	// ErrEventNotFound is returned when no event row exists for the identifier.
	ErrEventNotFound = errors.New("verification: event not found")
	// ErrStaffNotFound is returned when the staff account does not exist.
	ErrStaffNotFound = errors.New("verification: staff not found")
	// ErrInvalidTransition signals the action is not legal from the current state.
	ErrInvalidTransition = errors.New("verification: invalid transition")
	// ErrReasonRequired signals a staff rejection without a reason.
	ErrReasonRequired = errors.New("verification: rejection reason required")
	// ErrInvalidInput signals missing or malformed transition parameters.
	ErrInvalidInput = errors.New("verification: invalid input")
	// ErrStaffNotEligible signals the selected staff fails the division or
	// conflict-of-interest checks.
	ErrStaffNotEligible = errors.New("verification: staff not eligible")
	// ErrForbidden signals a role or assignment mismatch.
	ErrForbidden = errors.New("verification: forbidden")
	// ErrStoreUnavailable wraps persistence-layer failures.
	ErrStoreUnavailable = errors.New("verification: store unavailable")
)

// Actor identifies who invokes a transition, resolved by the auth layer.
type Actor struct {
	ID   string
	Role auth.Role
}

// AdminAction enumerates first-pass and final admin decisions.
type AdminAction string

const (
	AdminApprove      AdminAction = "approve"
	AdminReject       AdminAction = "reject"
	AdminRequestStaff AdminAction = "request_staff"
)

// StaffAction enumerates delegated reviewer decisions.
type StaffAction string

const (
	StaffApprove StaffAction = "approve"
	StaffReject  StaffAction = "reject"
)

// EventState is the slice of an event row the transition rules operate on.
type EventState struct {
	ID                         string
	Division                   string
	CreatorID                  string
	CreatorType                event.CreatorType
	Status                     event.VerificationStatus
	SecondVerificationRequired bool
}

// Decision reports the event's verification fields after a transition.
type Decision struct {
	Status                     event.VerificationStatus
	SecondVerificationRequired bool
}

// Assignment links a pending event to the staff reviewer responsible for it.
type Assignment struct {
	ID         string
	EventID    string
	StaffID    string
	AssignedAt time.Time
	ResolvedAt *time.Time
	Resolution *string
}

// Assignment resolutions recorded when an assignment is closed.
const (
	ResolutionApproved   = "approved"
	ResolutionRejected   = "rejected"
	ResolutionSuperseded = "superseded"
)

// StaffProfile is the reviewer data exposed to the admin assignment screen.
type StaffProfile struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Division  string    `json:"division"`
	CreatedAt time.Time `json:"created_at"`
}
