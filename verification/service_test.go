package verification

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"shodesh/auth"
	"shodesh/event"
)

func admin() Actor { return Actor{ID: "admin-1", Role: auth.RoleAdmin} }

func TestAdminTransition_ApproveCommits(t *testing.T) {
	pool := &fakePool{}
	repo := newFakeRepo(EventState{
		ID:          "ev-1",
		Division:    "dhaka",
		CreatorID:   "ind-1",
		CreatorType: event.CreatorFoundation,
		Status:      event.StatusUnverified,
	})
	svc := NewService(pool, repo)

	d, err := svc.AdminTransition(context.Background(), AdminTransitionParams{
		EventID: "ev-1",
		Action:  AdminApprove,
		Actor:   admin(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Status != event.StatusVerified {
		t.Fatalf("expected verified, got %s", d.Status)
	}
	if !pool.tx.committed {
		t.Error("expected commit")
	}
	if len(repo.audits) != 1 || repo.audits[0] != "ADMIN_APPROVED" {
		t.Errorf("expected ADMIN_APPROVED audit, got %v", repo.audits)
	}
}

func TestAdminTransition_DoubleApproveFails(t *testing.T) {
	pool := &fakePool{}
	repo := newFakeRepo(EventState{ID: "ev-1", CreatorType: event.CreatorFoundation, Status: event.StatusUnverified})
	svc := NewService(pool, repo)

	if _, err := svc.AdminTransition(context.Background(), AdminTransitionParams{
		EventID: "ev-1", Action: AdminApprove, Actor: admin(),
	}); err != nil {
		t.Fatalf("first approve: %v", err)
	}

	_, err := svc.AdminTransition(context.Background(), AdminTransitionParams{
		EventID: "ev-1", Action: AdminApprove, Actor: admin(),
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on replay, got %v", err)
	}
	if pool.tx.committed {
		t.Error("expected rollback on invalid transition")
	}
}

func TestAdminTransition_ForbiddenRole(t *testing.T) {
	pool := &fakePool{}
	repo := newFakeRepo(EventState{ID: "ev-1", Status: event.StatusUnverified})
	svc := NewService(pool, repo)

	_, err := svc.AdminTransition(context.Background(), AdminTransitionParams{
		EventID: "ev-1",
		Action:  AdminApprove,
		Actor:   Actor{ID: "staff-1", Role: auth.RoleStaff},
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if pool.tx != nil {
		t.Error("expected no transaction for role failure")
	}
}

func TestAdminTransition_RequestStaffSupersedes(t *testing.T) {
	pool := &fakePool{}
	repo := newFakeRepo(EventState{
		ID:          "ev-1",
		CreatorType: event.CreatorIndividual,
		Status:      event.StatusUnverified,
	})
	svc := NewService(pool, repo)

	d, err := svc.AdminTransition(context.Background(), AdminTransitionParams{
		EventID: "ev-1", Action: AdminRequestStaff, Actor: admin(),
	})
	if err != nil {
		t.Fatalf("request staff: %v", err)
	}
	if d.Status != event.StatusPending || !d.SecondVerificationRequired {
		t.Fatalf("expected pending with flag, got %+v", d)
	}
	if !repo.superseded {
		t.Error("expected prior assignments to be superseded")
	}
}

func TestAssignStaff(t *testing.T) {
	pending := EventState{
		ID:                         "ev-1",
		Division:                   "dhaka",
		CreatorID:                  "ind-1",
		CreatorType:                event.CreatorIndividual,
		Status:                     event.StatusPending,
		SecondVerificationRequired: true,
	}

	t.Run("creates assignment", func(t *testing.T) {
		pool := &fakePool{}
		repo := newFakeRepo(pending)
		svc := NewService(pool, repo)

		a, err := svc.AssignStaff(context.Background(), AssignStaffParams{
			EventID: "ev-1", StaffID: "staff-1", Actor: admin(),
		})
		if err != nil {
			t.Fatalf("assign: %v", err)
		}
		if a.StaffID != "staff-1" {
			t.Fatalf("expected staff-1, got %s", a.StaffID)
		}
		if !pool.tx.committed {
			t.Error("expected commit")
		}
	})

	t.Run("rejects second assignment", func(t *testing.T) {
		pool := &fakePool{}
		repo := newFakeRepo(pending)
		repo.active = &Assignment{ID: "asg-0", EventID: "ev-1", StaffID: "staff-9"}
		svc := NewService(pool, repo)

		_, err := svc.AssignStaff(context.Background(), AssignStaffParams{
			EventID: "ev-1", StaffID: "staff-1", Actor: admin(),
		})
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("rejects ineligible staff", func(t *testing.T) {
		pool := &fakePool{}
		repo := newFakeRepo(pending)
		repo.eligibleErr = ErrStaffNotEligible
		svc := NewService(pool, repo)

		_, err := svc.AssignStaff(context.Background(), AssignStaffParams{
			EventID: "ev-1", StaffID: "staff-1", Actor: admin(),
		})
		if !errors.Is(err, ErrStaffNotEligible) {
			t.Fatalf("expected ErrStaffNotEligible, got %v", err)
		}
		if pool.tx.committed {
			t.Error("expected rollback")
		}
	})

	t.Run("rejects assignment outside staff stage", func(t *testing.T) {
		pool := &fakePool{}
		repo := newFakeRepo(EventState{ID: "ev-1", Status: event.StatusUnverified, CreatorType: event.CreatorIndividual})
		svc := NewService(pool, repo)

		_, err := svc.AssignStaff(context.Background(), AssignStaffParams{
			EventID: "ev-1", StaffID: "staff-1", Actor: admin(),
		})
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})
}

func TestStaffTransition(t *testing.T) {
	pending := EventState{
		ID:                         "ev-1",
		Division:                   "dhaka",
		CreatorID:                  "ind-1",
		CreatorType:                event.CreatorIndividual,
		Status:                     event.StatusPending,
		SecondVerificationRequired: true,
	}
	assigned := &Assignment{ID: "asg-1", EventID: "ev-1", StaffID: "staff-1"}
	staffActor := Actor{ID: "staff-1", Role: auth.RoleStaff}

	t.Run("approve clears flag and resolves assignment", func(t *testing.T) {
		pool := &fakePool{}
		repo := newFakeRepo(pending)
		repo.active = assigned
		svc := NewService(pool, repo)

		d, err := svc.StaffTransition(context.Background(), StaffTransitionParams{
			EventID: "ev-1", Action: StaffApprove, Actor: staffActor,
		})
		if err != nil {
			t.Fatalf("staff approve: %v", err)
		}
		if d.Status != event.StatusPending || d.SecondVerificationRequired {
			t.Fatalf("expected pending/flag-cleared, got %+v", d)
		}
		if len(repo.resolved) != 1 || repo.resolved[0] != ResolutionApproved {
			t.Fatalf("expected assignment resolved as approved, got %v", repo.resolved)
		}
	})

	t.Run("reject requires reason", func(t *testing.T) {
		pool := &fakePool{}
		repo := newFakeRepo(pending)
		repo.active = assigned
		svc := NewService(pool, repo)

		_, err := svc.StaffTransition(context.Background(), StaffTransitionParams{
			EventID: "ev-1", Action: StaffReject, Reason: "   ", Actor: staffActor,
		})
		if !errors.Is(err, ErrReasonRequired) {
			t.Fatalf("expected ErrReasonRequired, got %v", err)
		}
		if pool.tx != nil {
			t.Error("expected validation to fail before any store access")
		}
		if repo.updated != nil {
			t.Error("expected status unchanged")
		}
	})

	t.Run("reject stores reason", func(t *testing.T) {
		pool := &fakePool{}
		repo := newFakeRepo(pending)
		repo.active = assigned
		svc := NewService(pool, repo)

		d, err := svc.StaffTransition(context.Background(), StaffTransitionParams{
			EventID: "ev-1", Action: StaffReject, Reason: "documents do not match", Actor: staffActor,
		})
		if err != nil {
			t.Fatalf("staff reject: %v", err)
		}
		if d.Status != event.StatusRejected {
			t.Fatalf("expected rejected, got %s", d.Status)
		}
		if repo.updatedReason == nil || *repo.updatedReason != "documents do not match" {
			t.Fatalf("expected reason stored, got %v", repo.updatedReason)
		}
	})

	t.Run("other staff forbidden", func(t *testing.T) {
		pool := &fakePool{}
		repo := newFakeRepo(pending)
		repo.active = assigned
		svc := NewService(pool, repo)

		_, err := svc.StaffTransition(context.Background(), StaffTransitionParams{
			EventID: "ev-1", Action: StaffApprove, Actor: Actor{ID: "staff-2", Role: auth.RoleStaff},
		})
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		if pool.tx.committed {
			t.Error("expected rollback")
		}
	})

	t.Run("no assignment is invalid transition", func(t *testing.T) {
		pool := &fakePool{}
		repo := newFakeRepo(pending)
		svc := NewService(pool, repo)

		_, err := svc.StaffTransition(context.Background(), StaffTransitionParams{
			EventID: "ev-1", Action: StaffApprove, Actor: staffActor,
		})
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})
}

func TestAdminTransition_EventNotFound(t *testing.T) {
	pool := &fakePool{}
	repo := newFakeRepo(EventState{})
	repo.stateErr = ErrEventNotFound
	svc := NewService(pool, repo)

	_, err := svc.AdminTransition(context.Background(), AdminTransitionParams{
		EventID: "missing", Action: AdminApprove, Actor: admin(),
	})
	if !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

// fakeRepo keeps the event state in memory and mutates it on commit-path
// writes so replayed transitions observe the new state.
type fakeRepo struct {
	state         EventState
	stateErr      error
	active        *Assignment
	eligibleErr   error
	superseded    bool
	updated       *Decision
	updatedReason *string
	resolved      []string
	audits        []string
}

func newFakeRepo(state EventState) *fakeRepo {
	return &fakeRepo{state: state}
}

func (f *fakeRepo) GetEventForUpdate(ctx context.Context, tx pgx.Tx, eventID string) (EventState, error) {
	if f.stateErr != nil {
		return EventState{}, f.stateErr
	}
	return f.state, nil
}

func (f *fakeRepo) GetEventState(ctx context.Context, eventID string) (EventState, error) {
	return f.GetEventForUpdate(ctx, nil, eventID)
}

func (f *fakeRepo) UpdateVerification(ctx context.Context, tx pgx.Tx, eventID string, d Decision, reason *string) error {
	f.updated = &d
	f.updatedReason = reason
	f.state.Status = d.Status
	f.state.SecondVerificationRequired = d.SecondVerificationRequired
	return nil
}

func (f *fakeRepo) ActiveAssignment(ctx context.Context, tx pgx.Tx, eventID string) (Assignment, bool, error) {
	if f.active == nil {
		return Assignment{}, false, nil
	}
	return *f.active, true, nil
}

func (f *fakeRepo) CreateAssignment(ctx context.Context, tx pgx.Tx, eventID, staffID string) (Assignment, error) {
	a := Assignment{ID: "asg-new", EventID: eventID, StaffID: staffID}
	f.active = &a
	return a, nil
}

func (f *fakeRepo) ResolveAssignment(ctx context.Context, tx pgx.Tx, assignmentID, resolution string) error {
	f.resolved = append(f.resolved, resolution)
	f.active = nil
	return nil
}

func (f *fakeRepo) SupersedeAssignments(ctx context.Context, tx pgx.Tx, eventID string) error {
	f.superseded = true
	f.active = nil
	return nil
}

func (f *fakeRepo) CheckStaffEligible(ctx context.Context, tx pgx.Tx, staffID, division, creatorID string) error {
	return f.eligibleErr
}

func (f *fakeRepo) ListEligibleStaff(ctx context.Context, division, creatorID string) ([]StaffProfile, error) {
	return nil, nil
}

func (f *fakeRepo) ListAssignedEvents(ctx context.Context, staffID string) ([]event.Event, error) {
	return nil, nil
}

func (f *fakeRepo) AppendAudit(ctx context.Context, tx pgx.Tx, eventID, entryType, actorID string, payload map[string]any) error {
	f.audits = append(f.audits, entryType)
	return nil
}

type fakePool struct {
	tx *fakeTx
}

func (f *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	f.tx = &fakeTx{}
	return f.tx, nil
}

type fakeTx struct {
	rolled    bool
	committed bool
}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("fakeTx does not support nested transactions")
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolled = true
	return nil
}

func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}

func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}

func (f *fakeTx) LargeObjects() pgx.LargeObjects {
	panic("not implemented")
}

func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}

func (f *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}

func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not implemented")
}

func (f *fakeTx) Conn() *pgx.Conn {
	return nil
}
