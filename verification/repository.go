package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shodesh/event"
)

// Repository defines the data access required by the transition service.
// Tx-scoped methods run under the caller's transaction so the event row lock
// covers every write of a transition.
type Repository interface {
	GetEventForUpdate(ctx context.Context, tx pgx.Tx, eventID string) (EventState, error)
	GetEventState(ctx context.Context, eventID string) (EventState, error)
	UpdateVerification(ctx context.Context, tx pgx.Tx, eventID string, d Decision, reason *string) error
	ActiveAssignment(ctx context.Context, tx pgx.Tx, eventID string) (Assignment, bool, error)
	CreateAssignment(ctx context.Context, tx pgx.Tx, eventID, staffID string) (Assignment, error)
	ResolveAssignment(ctx context.Context, tx pgx.Tx, assignmentID, resolution string) error
	SupersedeAssignments(ctx context.Context, tx pgx.Tx, eventID string) error
	CheckStaffEligible(ctx context.Context, tx pgx.Tx, staffID, division, creatorID string) error
	ListEligibleStaff(ctx context.Context, division, creatorID string) ([]StaffProfile, error)
	ListAssignedEvents(ctx context.Context, staffID string) ([]event.Event, error)
	AppendAudit(ctx context.Context, tx pgx.Tx, eventID, entryType, actorID string, payload map[string]any) error
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool  *pgxpool.Pool
	audit AuditLog
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

const eventStateSQL = `
SELECT id, division, creator_id, creator_type::text, verification_status::text, second_verification_required
FROM events
WHERE id = $1
`

func scanEventState(row pgx.Row) (EventState, error) {
	var st EventState
	err := row.Scan(
		&st.ID,
		&st.Division,
		&st.CreatorID,
		&st.CreatorType,
		&st.Status,
		&st.SecondVerificationRequired,
	)
	return st, err
}

// GetEventForUpdate locks the event row for the duration of the transaction,
// serializing concurrent transitions on the same event.
func (r *PGRepository) GetEventForUpdate(ctx context.Context, tx pgx.Tx, eventID string) (EventState, error) {
	st, err := scanEventState(tx.QueryRow(ctx, eventStateSQL+`FOR UPDATE`, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return EventState{}, ErrEventNotFound
		}
		return EventState{}, storeErr("lock event", err)
	}
	return st, nil
}

func (r *PGRepository) GetEventState(ctx context.Context, eventID string) (EventState, error) {
	st, err := scanEventState(r.pool.QueryRow(ctx, eventStateSQL, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return EventState{}, ErrEventNotFound
		}
		return EventState{}, storeErr("fetch event", err)
	}
	return st, nil
}

func (r *PGRepository) UpdateVerification(ctx context.Context, tx pgx.Tx, eventID string, d Decision, reason *string) error {
	const updateSQL = `
UPDATE events
SET verification_status = $1::event_verification_status,
    second_verification_required = $2,
    rejection_reason = COALESCE($3, rejection_reason),
    updated_at = now()
WHERE id = $4
`
	if _, err := tx.Exec(ctx, updateSQL, d.Status, d.SecondVerificationRequired, reason, eventID); err != nil {
		return storeErr("update verification", err)
	}
	return nil
}

const assignmentColumns = `id, event_id, staff_id, assigned_at, resolved_at, resolution`

func scanAssignment(row pgx.Row) (Assignment, error) {
	var a Assignment
	err := row.Scan(&a.ID, &a.EventID, &a.StaffID, &a.AssignedAt, &a.ResolvedAt, &a.Resolution)
	return a, err
}

func (r *PGRepository) ActiveAssignment(ctx context.Context, tx pgx.Tx, eventID string) (Assignment, bool, error) {
	const query = `
SELECT ` + assignmentColumns + `
FROM staff_assignments
WHERE event_id = $1 AND resolved_at IS NULL
`
	a, err := scanAssignment(tx.QueryRow(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Assignment{}, false, nil
		}
		return Assignment{}, false, storeErr("fetch active assignment", err)
	}
	return a, true, nil
}

func (r *PGRepository) CreateAssignment(ctx context.Context, tx pgx.Tx, eventID, staffID string) (Assignment, error) {
	const insertSQL = `
INSERT INTO staff_assignments (event_id, staff_id)
VALUES ($1, $2)
RETURNING ` + assignmentColumns

	a, err := scanAssignment(tx.QueryRow(ctx, insertSQL, eventID, staffID))
	if err != nil {
		return Assignment{}, storeErr("create assignment", err)
	}
	return a, nil
}

func (r *PGRepository) ResolveAssignment(ctx context.Context, tx pgx.Tx, assignmentID, resolution string) error {
	const updateSQL = `
UPDATE staff_assignments
SET resolved_at = now(), resolution = $2
WHERE id = $1 AND resolved_at IS NULL
`
	if _, err := tx.Exec(ctx, updateSQL, assignmentID, resolution); err != nil {
		return storeErr("resolve assignment", err)
	}
	return nil
}

// SupersedeAssignments closes any dangling assignment before the delegated
// stage is (re)opened, keeping at most one active assignment per event.
func (r *PGRepository) SupersedeAssignments(ctx context.Context, tx pgx.Tx, eventID string) error {
	const updateSQL = `
UPDATE staff_assignments
SET resolved_at = now(), resolution = $2
WHERE event_id = $1 AND resolved_at IS NULL
`
	if _, err := tx.Exec(ctx, updateSQL, eventID, ResolutionSuperseded); err != nil {
		return storeErr("supersede assignments", err)
	}
	return nil
}

// CheckStaffEligible enforces the division match and the conflict-of-interest
// rule: staff who assisted the creator's registration may not review them.
func (r *PGRepository) CheckStaffEligible(ctx context.Context, tx pgx.Tx, staffID, division, creatorID string) error {
	var staffDivision string
	err := tx.QueryRow(ctx, `SELECT division FROM users WHERE id = $1 AND role = 'staff'`, staffID).Scan(&staffDivision)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrStaffNotFound
		}
		return storeErr("fetch staff", err)
	}
	if staffDivision != division {
		return fmt.Errorf("%w: division mismatch", ErrStaffNotEligible)
	}

	var assisted bool
	err = tx.QueryRow(ctx, `
SELECT EXISTS (
    SELECT 1 FROM registration_assists
    WHERE staff_id = $1 AND individual_id = $2
)`, staffID, creatorID).Scan(&assisted)
	if err != nil {
		return storeErr("check registration assist", err)
	}
	if assisted {
		return fmt.Errorf("%w: assisted creator registration", ErrStaffNotEligible)
	}
	return nil
}

func (r *PGRepository) ListEligibleStaff(ctx context.Context, division, creatorID string) ([]StaffProfile, error) {
	const query = `
SELECT u.id, u.full_name, u.email, u.division, u.created_at
FROM users u
WHERE u.role = 'staff'
  AND u.division = $1
  AND NOT EXISTS (
      SELECT 1 FROM registration_assists ra
      WHERE ra.staff_id = u.id AND ra.individual_id = $2
  )
ORDER BY u.id
`
	rows, err := r.pool.Query(ctx, query, division, creatorID)
	if err != nil {
		return nil, storeErr("list eligible staff", err)
	}
	defer rows.Close()

	staff := make([]StaffProfile, 0, 8)
	for rows.Next() {
		var p StaffProfile
		if err := rows.Scan(&p.ID, &p.FullName, &p.Email, &p.Division, &p.CreatedAt); err != nil {
			return nil, storeErr("scan staff", err)
		}
		staff = append(staff, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate staff", err)
	}
	return staff, nil
}

func (r *PGRepository) ListAssignedEvents(ctx context.Context, staffID string) ([]event.Event, error) {
	const query = `
SELECT e.id, e.title, e.description, e.category, e.division, e.amount_needed, e.amount_received,
       e.creator_id, e.creator_type, e.verification_status, e.second_verification_required,
       e.rejection_reason, e.created_at, e.updated_at
FROM events e
JOIN staff_assignments sa ON sa.event_id = e.id
WHERE sa.staff_id = $1 AND sa.resolved_at IS NULL
ORDER BY sa.assigned_at DESC
`
	rows, err := r.pool.Query(ctx, query, staffID)
	if err != nil {
		return nil, storeErr("list assigned events", err)
	}
	defer rows.Close()

	events := make([]event.Event, 0, 8)
	for rows.Next() {
		var ev event.Event
		if err := rows.Scan(
			&ev.ID,
			&ev.Title,
			&ev.Description,
			&ev.Category,
			&ev.Division,
			&ev.AmountNeeded,
			&ev.AmountReceived,
			&ev.CreatorID,
			&ev.CreatorType,
			&ev.VerificationStatus,
			&ev.SecondVerificationRequired,
			&ev.RejectionReason,
			&ev.CreatedAt,
			&ev.UpdatedAt,
		); err != nil {
			return nil, storeErr("scan assigned event", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate assigned events", err)
	}
	return events, nil
}

func (r *PGRepository) AppendAudit(ctx context.Context, tx pgx.Tx, eventID, entryType, actorID string, payload map[string]any) error {
	return r.audit.Append(ctx, tx, eventID, entryType, actorID, payload)
}
