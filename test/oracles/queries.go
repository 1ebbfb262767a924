package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

// All returns the invariant checks. Each query must return zero rows on a
// healthy database; any row is a violation.
func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_second_verification_flag",
			SQL: `SELECT id, verification_status, creator_type FROM events
                  WHERE second_verification_required
                    AND (verification_status <> 'pending' OR creator_type <> 'individual')`,
		},
		{
			Name: "O2_single_active_assignment",
			SQL: `SELECT event_id, COUNT(*) FROM staff_assignments
                  WHERE resolved_at IS NULL
                  GROUP BY event_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O3_assignment_only_in_staff_stage",
			SQL: `SELECT sa.id, e.verification_status, e.second_verification_required
                  FROM staff_assignments sa
                  JOIN events e ON e.id = sa.event_id
                  WHERE sa.resolved_at IS NULL
                    AND (e.verification_status <> 'pending' OR NOT e.second_verification_required)`,
		},
		{
			Name: "O4_resolution_values",
			SQL: `SELECT id, resolution FROM staff_assignments
                  WHERE resolved_at IS NOT NULL
                    AND resolution NOT IN ('approved', 'rejected', 'superseded')`,
		},
		{
			Name: "O5_donation_sum",
			SQL: `SELECT e.id, e.amount_received, COALESCE(SUM(d.amount), 0) AS donated
                  FROM events e
                  LEFT JOIN donations d ON d.event_id = e.id
                  GROUP BY e.id
                  HAVING e.amount_received <> COALESCE(SUM(d.amount), 0)`,
		},
		{
			Name: "O6_donations_only_verified",
			SQL: `SELECT d.id, e.verification_status FROM donations d
                  JOIN events e ON e.id = d.event_id
                  WHERE e.verification_status <> 'verified'`,
		},
		{
			Name: "O7_review_trail_present",
			SQL: `SELECT e.id, e.verification_status FROM events e
                  WHERE e.verification_status <> 'unverified'
                    AND NOT EXISTS (SELECT 1 FROM review_events r WHERE r.event_id = e.id)`,
		},
		{
			Name: "O8_staff_reject_has_reason",
			SQL: `SELECT e.id FROM events e
                  JOIN staff_assignments sa ON sa.event_id = e.id
                  WHERE sa.resolution = 'rejected'
                    AND e.verification_status = 'rejected'
                    AND (e.rejection_reason IS NULL OR e.rejection_reason = '')`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row
// text) or an empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		if rows.Next() {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
