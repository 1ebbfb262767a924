package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shodesh/auth"
	"shodesh/donation"
	"shodesh/event"
	"shodesh/verification"
)

// Submitter keeps feeding fresh events into the pipeline.
func Submitter(ctx context.Context, svc *event.Service, creatorID string, creatorType event.CreatorType, stop <-chan struct{}) error {
	divisions := []string{"dhaka", "chattogram", "sylhet"}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := svc.Submit(ctx, event.SubmitParams{
			CreatorID:    creatorID,
			CreatorType:  creatorType,
			Title:        fmt.Sprintf("Campaign %d", rand.Int63()),
			Division:     divisions[rand.Intn(len(divisions))],
			AmountNeeded: int64(1000 + rand.Intn(100000)),
		})
		if err != nil && errors.Is(err, context.Canceled) {
			return err
		}
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
}

// AdminReviewer picks open events and fires first-stage decisions at them.
// Transition refusals are expected under contention and ignored.
func AdminReviewer(ctx context.Context, pool *pgxpool.Pool, svc *verification.Service, adminID string, staffIDs []string, stop <-chan struct{}) error {
	actor := verification.Actor{ID: adminID, Role: auth.RoleAdmin}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		var eventID string
		err := pool.QueryRow(ctx, `
            SELECT id FROM events
            WHERE verification_status IN ('unverified', 'pending')
            ORDER BY random() LIMIT 1
        `).Scan(&eventID)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			time.Sleep(50 * time.Millisecond)
			continue
		}

		switch rand.Intn(4) {
		case 0:
			_, _ = svc.AdminTransition(ctx, verification.AdminTransitionParams{
				EventID: eventID, Action: verification.AdminApprove, Actor: actor,
			})
		case 1:
			reason := "spot check failed"
			_, _ = svc.AdminTransition(ctx, verification.AdminTransitionParams{
				EventID: eventID, Action: verification.AdminReject, Actor: actor, Reason: &reason,
			})
		case 2:
			_, _ = svc.AdminTransition(ctx, verification.AdminTransitionParams{
				EventID: eventID, Action: verification.AdminRequestStaff, Actor: actor,
			})
		default:
			staffID := staffIDs[rand.Intn(len(staffIDs))]
			_, _ = svc.AssignStaff(ctx, verification.AssignStaffParams{
				EventID: eventID, StaffID: staffID, Actor: actor,
			})
		}
		time.Sleep(time.Duration(10+rand.Intn(30)) * time.Millisecond)
	}
}

// StaffReviewer works through its assignment queue, approving most and
// rejecting the rest with a reason.
func StaffReviewer(ctx context.Context, svc *verification.Service, staffID string, stop <-chan struct{}) error {
	actor := verification.Actor{ID: staffID, Role: auth.RoleStaff}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		assigned, err := svc.ListAssignedEvents(ctx, staffID)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			time.Sleep(50 * time.Millisecond)
			continue
		}

		for _, ev := range assigned {
			if rand.Intn(4) == 0 {
				_, _ = svc.StaffTransition(ctx, verification.StaffTransitionParams{
					EventID: ev.ID, Action: verification.StaffReject,
					Reason: "field check failed", Actor: actor,
				})
			} else {
				_, _ = svc.StaffTransition(ctx, verification.StaffTransitionParams{
					EventID: ev.ID, Action: verification.StaffApprove, Actor: actor,
				})
			}
		}
		time.Sleep(time.Duration(30+rand.Intn(50)) * time.Millisecond)
	}
}

// Donor sprays donations at random verified events.
func Donor(ctx context.Context, pool *pgxpool.Pool, svc *donation.Service, donorID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		var eventID string
		err := pool.QueryRow(ctx, `
            SELECT id FROM events WHERE verification_status = 'verified'
            ORDER BY random() LIMIT 1
        `).Scan(&eventID)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			// no verified events yet, or transient failure
			if !errors.Is(err, pgx.ErrNoRows) {
				time.Sleep(20 * time.Millisecond)
			}
			time.Sleep(30 * time.Millisecond)
			continue
		}

		_, _ = svc.Donate(ctx, eventID, &donorID, int64(10+rand.Intn(1000)), "")
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
}
