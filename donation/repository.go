package donation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrEventNotFound = errors.New("donation: event not found")
	ErrNotAccepting  = errors.New("donation: event is not verified")
	ErrInvalidAmount = errors.New("donation: amount must be positive")
	// ErrStoreUnavailable wraps persistence-layer failures.
	ErrStoreUnavailable = errors.New("donation: store unavailable")
)

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Donate inserts the donation and bumps the event's received amount in one
// transaction. Only verified events accept donations; the event row lock keeps
// the counter consistent under concurrent gifts.
func (r *Repository) Donate(ctx context.Context, eventID string, donorID *string, amount int64, note string) (Record, error) {
	if amount <= 0 {
		return Record{}, ErrInvalidAmount
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Record{}, storeErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	var status string
	if err := tx.QueryRow(ctx, `SELECT verification_status::text FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrEventNotFound
		}
		return Record{}, storeErr("lock event", err)
	}
	if status != "verified" {
		return Record{}, ErrNotAccepting
	}

	const insertSQL = `
		INSERT INTO donations (event_id, donor_id, amount, note)
		VALUES ($1, $2, $3, $4)
		RETURNING id, event_id, donor_id, amount, note, created_at
	`
	var rec Record
	if err := tx.QueryRow(ctx, insertSQL, eventID, donorID, amount, note).
		Scan(&rec.ID, &rec.EventID, &rec.DonorID, &rec.Amount, &rec.Note, &rec.CreatedAt); err != nil {
		return Record{}, storeErr("insert", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE events
		SET amount_received = amount_received + $1, updated_at = now()
		WHERE id = $2
	`, amount, eventID); err != nil {
		return Record{}, storeErr("update received amount", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, storeErr("commit", err)
	}

	return rec, nil
}

// ListForEvent returns donations for an event, newest first.
func (r *Repository) ListForEvent(ctx context.Context, eventID string) ([]Record, error) {
	const query = `
		SELECT id, event_id, donor_id, amount, note, created_at
		FROM donations
		WHERE event_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, storeErr("list", err)
	}
	defer rows.Close()

	out := make([]Record, 0, 8)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.DonorID, &rec.Amount, &rec.Note, &rec.CreatedAt); err != nil {
			return nil, storeErr("scan", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate", err)
	}
	return out, nil
}
