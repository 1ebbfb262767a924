package verification

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"shodesh/auth"
	"shodesh/event"
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service applies review transitions to events. Every transition locks the
// event row, re-reads current state, and commits the status change together
// with assignment and audit writes.
type Service struct {
	pool TxBeginner
	repo Repository
}

func NewService(pool TxBeginner, repo Repository) *Service {
	return &Service{pool: pool, repo: repo}
}

type AdminTransitionParams struct {
	EventID string
	Action  AdminAction
	Actor   Actor
	Reason  *string
}

type AssignStaffParams struct {
	EventID string
	StaffID string
	Actor   Actor
}

type StaffTransitionParams struct {
	EventID string
	Action  StaffAction
	Reason  string
	Actor   Actor
}

// AdminTransition applies a first-pass or final admin decision.
func (s *Service) AdminTransition(ctx context.Context, params AdminTransitionParams) (Decision, error) {
	if params.EventID == "" {
		return Decision{}, fmt.Errorf("%w: missing event id", ErrInvalidInput)
	}
	if params.Actor.Role != auth.RoleAdmin {
		return Decision{}, fmt.Errorf("%w: admin role required", ErrForbidden)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Decision{}, storeErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	st, err := s.repo.GetEventForUpdate(ctx, tx, params.EventID)
	if err != nil {
		return Decision{}, err
	}

	decision, err := adminDecision(st, params.Action)
	if err != nil {
		return Decision{}, err
	}

	var reason *string
	if params.Action == AdminReject && params.Reason != nil {
		if trimmed := strings.TrimSpace(*params.Reason); trimmed != "" {
			reason = &trimmed
		}
	}

	if params.Action == AdminRequestStaff {
		// Dangling assignments from an earlier delegation round are closed
		// before the stage reopens.
		if err := s.repo.SupersedeAssignments(ctx, tx, params.EventID); err != nil {
			return Decision{}, err
		}
	}

	if err := s.repo.UpdateVerification(ctx, tx, params.EventID, decision, reason); err != nil {
		return Decision{}, err
	}

	payload := map[string]any{
		"previous_status": st.Status,
		"next_status":     decision.Status,
		"action":          params.Action,
	}
	if reason != nil {
		payload["reason"] = *reason
	}
	if err := s.repo.AppendAudit(ctx, tx, params.EventID, adminAuditType(params.Action), params.Actor.ID, payload); err != nil {
		return Decision{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Decision{}, storeErr("commit transition", err)
	}

	return decision, nil
}

// AssignStaff delegates a pending individual-creator event to a reviewer.
func (s *Service) AssignStaff(ctx context.Context, params AssignStaffParams) (Assignment, error) {
	if params.EventID == "" || params.StaffID == "" {
		return Assignment{}, fmt.Errorf("%w: event id and staff id required", ErrInvalidInput)
	}
	if params.Actor.Role != auth.RoleAdmin {
		return Assignment{}, fmt.Errorf("%w: admin role required", ErrForbidden)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Assignment{}, storeErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	st, err := s.repo.GetEventForUpdate(ctx, tx, params.EventID)
	if err != nil {
		return Assignment{}, err
	}
	if err := canAssignStaff(st); err != nil {
		return Assignment{}, err
	}

	if _, active, err := s.repo.ActiveAssignment(ctx, tx, params.EventID); err != nil {
		return Assignment{}, err
	} else if active {
		return Assignment{}, fmt.Errorf("%w: event already assigned", ErrInvalidTransition)
	}

	if err := s.repo.CheckStaffEligible(ctx, tx, params.StaffID, st.Division, st.CreatorID); err != nil {
		return Assignment{}, err
	}

	assignment, err := s.repo.CreateAssignment(ctx, tx, params.EventID, params.StaffID)
	if err != nil {
		return Assignment{}, err
	}

	payload := map[string]any{
		"staff_id":      params.StaffID,
		"assignment_id": assignment.ID,
	}
	if err := s.repo.AppendAudit(ctx, tx, params.EventID, "STAFF_ASSIGNED", params.Actor.ID, payload); err != nil {
		return Assignment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Assignment{}, storeErr("commit assignment", err)
	}

	return assignment, nil
}

// StaffTransition records the delegated reviewer's decision. Approval hands
// the event back to the admin; rejection is terminal and requires a reason.
func (s *Service) StaffTransition(ctx context.Context, params StaffTransitionParams) (Decision, error) {
	if params.EventID == "" {
		return Decision{}, fmt.Errorf("%w: missing event id", ErrInvalidInput)
	}
	if params.Actor.Role != auth.RoleStaff {
		return Decision{}, fmt.Errorf("%w: staff role required", ErrForbidden)
	}

	reason := strings.TrimSpace(params.Reason)
	if params.Action == StaffReject && reason == "" {
		return Decision{}, ErrReasonRequired
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Decision{}, storeErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	st, err := s.repo.GetEventForUpdate(ctx, tx, params.EventID)
	if err != nil {
		return Decision{}, err
	}

	decision, err := staffDecision(st, params.Action)
	if err != nil {
		return Decision{}, err
	}

	assignment, active, err := s.repo.ActiveAssignment(ctx, tx, params.EventID)
	if err != nil {
		return Decision{}, err
	}
	if !active {
		return Decision{}, fmt.Errorf("%w: no active assignment", ErrInvalidTransition)
	}
	if assignment.StaffID != params.Actor.ID {
		return Decision{}, fmt.Errorf("%w: event assigned to another reviewer", ErrForbidden)
	}

	var storedReason *string
	resolution := ResolutionApproved
	if params.Action == StaffReject {
		resolution = ResolutionRejected
		storedReason = &reason
	}

	if err := s.repo.ResolveAssignment(ctx, tx, assignment.ID, resolution); err != nil {
		return Decision{}, err
	}
	if err := s.repo.UpdateVerification(ctx, tx, params.EventID, decision, storedReason); err != nil {
		return Decision{}, err
	}

	payload := map[string]any{
		"previous_status": st.Status,
		"next_status":     decision.Status,
		"assignment_id":   assignment.ID,
		"action":          params.Action,
	}
	if storedReason != nil {
		payload["reason"] = *storedReason
	}
	if err := s.repo.AppendAudit(ctx, tx, params.EventID, staffAuditType(params.Action), params.Actor.ID, payload); err != nil {
		return Decision{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Decision{}, storeErr("commit staff decision", err)
	}

	return decision, nil
}

// ListEligibleStaff returns reviewers in the event's division who never
// assisted the creator's registration, ordered by staff id.
func (s *Service) ListEligibleStaff(ctx context.Context, eventID string) ([]StaffProfile, error) {
	if eventID == "" {
		return nil, fmt.Errorf("%w: missing event id", ErrInvalidInput)
	}
	st, err := s.repo.GetEventState(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListEligibleStaff(ctx, st.Division, st.CreatorID)
}

// ListAssignedEvents returns the events currently awaiting the reviewer.
func (s *Service) ListAssignedEvents(ctx context.Context, staffID string) ([]event.Event, error) {
	if staffID == "" {
		return nil, fmt.Errorf("%w: missing staff id", ErrInvalidInput)
	}
	return s.repo.ListAssignedEvents(ctx, staffID)
}

func adminAuditType(action AdminAction) string {
	switch action {
	case AdminApprove:
		return "ADMIN_APPROVED"
	case AdminReject:
		return "ADMIN_REJECTED"
	default:
		return "STAFF_REVIEW_REQUESTED"
	}
}

func staffAuditType(action StaffAction) string {
	if action == StaffReject {
		return "STAFF_REJECTED"
	}
	return "STAFF_APPROVED"
}
