package event

import "time"

// VerificationStatus is the review lifecycle of a fundraising event.
type VerificationStatus string

const (
	StatusUnverified VerificationStatus = "unverified"
	StatusPending    VerificationStatus = "pending"
	StatusVerified   VerificationStatus = "verified"
	StatusRejected   VerificationStatus = "rejected"
)

// IsTerminal reports whether no further transition is defined from s.
func (s VerificationStatus) IsTerminal() bool {
	return s == StatusVerified || s == StatusRejected
}

// CreatorType distinguishes who submitted the event.
type CreatorType string

const (
	CreatorIndividual CreatorType = "individual"
	CreatorFoundation CreatorType = "foundation"
)

// Event mirrors the events table. Fundraising campaigns are called
// "creations" in the UI; the backend uses the event terminology throughout.
type Event struct {
	ID                         string             `json:"id"`
	Title                      string             `json:"title"`
	Description                string             `json:"description"`
	Category                   string             `json:"category"`
	Division                   string             `json:"division"`
	AmountNeeded               int64              `json:"amount_needed"`
	AmountReceived             int64              `json:"amount_received"`
	CreatorID                  string             `json:"creator_id"`
	CreatorType                CreatorType        `json:"creator_type"`
	VerificationStatus         VerificationStatus `json:"verification_status"`
	SecondVerificationRequired bool               `json:"second_verification_required"`
	RejectionReason            *string            `json:"rejection_reason,omitempty"`
	CreatedAt                  time.Time          `json:"created_at"`
	UpdatedAt                  time.Time          `json:"updated_at"`
}

// Filters narrows List results. Zero values mean "no constraint".
type Filters struct {
	Status      VerificationStatus
	Category    string
	Division    string
	CreatorType CreatorType
	CreatorID   string
	Page        int
	PageSize    int
	SortKey     string
	SortOrder   string
}
