package event

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditWriter appends a review-trail row inside the caller's transaction.
type AuditWriter interface {
	Append(ctx context.Context, tx pgx.Tx, eventID string, entryType string, actorID string, payload map[string]any) error
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Service struct {
	pool        txBeginner
	repo        Repository
	audit       AuditWriter
	idGenerator func() string
	now         func() time.Time
}

type SubmitParams struct {
	CreatorID    string
	CreatorType  CreatorType
	Title        string
	Description  string
	Category     string
	Division     string
	AmountNeeded int64
}

type ListResult struct {
	Items []Event
	Total int
}

func NewService(pool *pgxpool.Pool, repo Repository, audit AuditWriter) *Service {
	if repo == nil {
		repo = NewRepository(pool)
	}
	return &Service{
		pool:        pool,
		repo:        repo,
		audit:       audit,
		idGenerator: func() string { return uuid.NewString() },
		now:         time.Now,
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

// Submit registers a new fundraising event. Every event starts unverified and
// waits for an admin decision before it is visible to donors.
func (s *Service) Submit(ctx context.Context, params SubmitParams) (Event, error) {
	if params.CreatorID == "" {
		return Event{}, fmt.Errorf("%w: missing creator id", ErrInvalidInput)
	}
	if params.CreatorType != CreatorIndividual && params.CreatorType != CreatorFoundation {
		return Event{}, fmt.Errorf("%w: invalid creator type %q", ErrInvalidInput, params.CreatorType)
	}
	if strings.TrimSpace(params.Title) == "" {
		return Event{}, fmt.Errorf("%w: title required", ErrInvalidInput)
	}
	if params.Division == "" {
		return Event{}, fmt.Errorf("%w: division required", ErrInvalidInput)
	}
	if params.AmountNeeded <= 0 {
		return Event{}, fmt.Errorf("%w: invalid amount needed", ErrInvalidInput)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Event{}, storeErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	ev := Event{
		ID:                 s.idGenerator(),
		Title:              strings.TrimSpace(params.Title),
		Description:        params.Description,
		Category:           params.Category,
		Division:           params.Division,
		AmountNeeded:       params.AmountNeeded,
		CreatorID:          params.CreatorID,
		CreatorType:        params.CreatorType,
		VerificationStatus: StatusUnverified,
	}

	created, err := s.repo.Create(ctx, tx, ev)
	if err != nil {
		return Event{}, err
	}

	if s.audit != nil {
		payload := map[string]any{
			"title":         created.Title,
			"division":      created.Division,
			"creator_type":  created.CreatorType,
			"amount_needed": created.AmountNeeded,
		}
		if err := s.audit.Append(ctx, tx, created.ID, "EVENT_SUBMITTED", params.CreatorID, payload); err != nil {
			return Event{}, storeErr("append audit", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Event{}, storeErr("commit tx", err)
	}

	return created, nil
}

func (s *Service) List(ctx context.Context, filters Filters) (ListResult, error) {
	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total}, nil
}

func (s *Service) Get(ctx context.Context, id string) (Event, error) {
	if id == "" {
		return Event{}, fmt.Errorf("%w: missing id", ErrInvalidInput)
	}
	return s.repo.GetByID(ctx, id)
}
