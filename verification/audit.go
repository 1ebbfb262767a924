package verification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// AuditLog appends review-trail rows. Every write runs inside the caller's
// transaction so the trail never diverges from the state it describes.
type AuditLog struct{}

func NewAuditLog() AuditLog {
	return AuditLog{}
}

func (AuditLog) Append(ctx context.Context, tx pgx.Tx, eventID, entryType, actorID string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("verification: marshal audit payload: %w", err)
	}

	var actor any
	if actorID != "" {
		actor = actorID
	}

	const insertSQL = `
INSERT INTO review_events (event_id, type, actor_id, payload)
VALUES ($1, $2, $3::uuid, $4::jsonb)
`
	if _, err := tx.Exec(ctx, insertSQL, eventID, entryType, actor, body); err != nil {
		return fmt.Errorf("verification: insert audit row: %w", err)
	}
	return nil
}
