package event

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("event: not found")
	// ErrInvalidInput signals rejected submission parameters.
	ErrInvalidInput = errors.New("event: invalid input")
	// ErrStoreUnavailable wraps persistence-layer failures.
	ErrStoreUnavailable = errors.New("event: store unavailable")
)

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

const eventColumns = `id, title, description, category, division, amount_needed, amount_received,
            creator_id, creator_type, verification_status, second_verification_required,
            rejection_reason, created_at, updated_at`

type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, ev Event) (Event, error)
	List(ctx context.Context, filters Filters) ([]Event, int, error)
	GetByID(ctx context.Context, id string) (Event, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) Create(ctx context.Context, tx pgx.Tx, ev Event) (Event, error) {
	query := `
        INSERT INTO events (id, title, description, category, division, amount_needed,
            creator_id, creator_type, verification_status, second_verification_required)
        VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING ` + eventColumns

	row := tx.QueryRow(ctx, query,
		ev.ID,
		ev.Title,
		ev.Description,
		ev.Category,
		ev.Division,
		ev.AmountNeeded,
		ev.CreatorID,
		ev.CreatorType,
		ev.VerificationStatus,
		ev.SecondVerificationRequired,
	)

	created, err := scanEvent(row)
	if err != nil {
		return Event{}, storeErr("insert", err)
	}
	return created, nil
}

func (r *PGRepository) List(ctx context.Context, filters Filters) ([]Event, int, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 || filters.PageSize > 100 {
		filters.PageSize = 20
	}
	if filters.SortKey == "" {
		filters.SortKey = "created_at"
	}
	if filters.SortOrder == "" {
		filters.SortOrder = "desc"
	}

	base := `SELECT ` + eventColumns + ` FROM events`
	where := []string{"1=1"}
	args := []any{}

	if filters.Status != "" {
		where = append(where, fmt.Sprintf("verification_status=$%d", len(args)+1))
		args = append(args, filters.Status)
	}
	if filters.Category != "" {
		where = append(where, fmt.Sprintf("category=$%d", len(args)+1))
		args = append(args, filters.Category)
	}
	if filters.Division != "" {
		where = append(where, fmt.Sprintf("division=$%d", len(args)+1))
		args = append(args, filters.Division)
	}
	if filters.CreatorType != "" {
		where = append(where, fmt.Sprintf("creator_type=$%d", len(args)+1))
		args = append(args, filters.CreatorType)
	}
	if filters.CreatorID != "" {
		where = append(where, fmt.Sprintf("creator_id=$%d", len(args)+1))
		args = append(args, filters.CreatorID)
	}

	whereClause := " WHERE " + strings.Join(where, " AND ")

	sortKey := mapSortKey(filters.SortKey)
	sortOrder := strings.ToUpper(filters.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	query := fmt.Sprintf("%s%s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		base, whereClause, sortKey, sortOrder, len(args)+1, len(args)+2)
	listArgs := append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.pool.Query(ctx, query, listArgs...)
	if err != nil {
		return nil, 0, storeErr("list", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, 0, storeErr("scan", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storeErr("iterate", err)
	}

	countQuery := "SELECT COUNT(*) FROM events" + whereClause
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, storeErr("count", err)
	}

	return events, total, nil
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	ev, err := scanEvent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Event{}, ErrNotFound
		}
		return Event{}, storeErr("get by id", err)
	}
	return ev, nil
}

func mapSortKey(key string) string {
	switch key {
	case "amount_needed", "amount_received", "title", "updated_at", "created_at":
		return key
	default:
		return "created_at"
	}
}

func scanEvent(row pgx.Row) (Event, error) {
	var ev Event
	err := row.Scan(
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
	)
	if err != nil {
		return Event{}, err
	}
	return ev, nil
}
