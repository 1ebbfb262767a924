package donation

import "time"

// Record mirrors the donations table. DonorID is nil for anonymous gifts.
type Record struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	DonorID   *string   `json:"donor_id,omitempty"`
	Amount    int64     `json:"amount"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}
