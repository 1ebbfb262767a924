package test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"shodesh/donation"
	"shodesh/event"
	"shodesh/test/actors"
	"shodesh/test/chaos"
	"shodesh/test/infra"
	"shodesh/test/oracles"
	"shodesh/verification"
)

var (
	flDuration    = flag.Duration("duration", 90*time.Second, "how long to run stress")
	flConcurrency = flag.Int("concurrency", 8, "number of concurrent actors")
	flSeed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flDSN         = flag.String("dsn", "", "existing Postgres DSN to reuse (avoids Docker)")
)

func seedRNG(seed int64) { rand.Seed(seed) }

func TestReviewPipelineConcurrency(t *testing.T) {
	flag.Parse()
	seed := *flSeed
	seedRNG(seed)

	var (
		pgC        *infra.PGContainer
		dsn        string
		err        error
		usedShared bool
	)
	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+60*time.Second)
	defer cancel()

	switch {
	case *flDSN != "":
		dsn = *flDSN
		usedShared = true
		pgC = &infra.PGContainer{}
	case os.Getenv("STRESS_TEST_PG_DSN") != "":
		dsn = os.Getenv("STRESS_TEST_PG_DSN")
		usedShared = true
		pgC = &infra.PGContainer{}
	default:
		if dockerAvailable(ctx) {
			pgC, dsn, err = infra.StartPostgres16(ctx, "")
			if err != nil {
				t.Fatalf("start postgres: %v", err)
			}
		} else {
			dsn, err = infra.InitLocalDatabase(ctx)
			if err != nil {
				t.Fatalf("init local database: %v", err)
			}
			pgC = &infra.PGContainer{}
		}
	}
	defer pgC.Terminate(context.Background())

	pool, teardown, err := infra.ApplyMigrations(ctx, dsn, usedShared)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	defer pool.Close()
	defer func() {
		if err := teardown(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	}()

	seedData := mustSeed(t, ctx, pool)

	audit := verification.NewAuditLog()
	eventSvc := event.NewService(pool, nil, audit)
	reviewSvc := verification.NewService(pool, verification.NewRepository(pool))
	donationSvc := donation.NewService(donation.NewRepository(pool))

	g, ctx2 := errgroup.WithContext(ctx)
	stop := make(chan struct{})

	// submitters and admins battling over the same queue
	for i := 0; i < *flConcurrency; i++ {
		creatorType := event.CreatorIndividual
		creatorID := seedData.individualID
		if i%2 == 1 {
			creatorType = event.CreatorFoundation
			creatorID = seedData.foundationID
		}
		g.Go(func() error { return actors.Submitter(ctx2, eventSvc, creatorID, creatorType, stop) })
		g.Go(func() error {
			return actors.AdminReviewer(ctx2, pool, reviewSvc, seedData.adminID, seedData.staffIDs, stop)
		})
	}

	for _, staffID := range seedData.staffIDs {
		id := staffID
		g.Go(func() error { return actors.StaffReviewer(ctx2, reviewSvc, id, stop) })
	}

	g.Go(func() error { return actors.Donor(ctx2, pool, donationSvc, seedData.donorID, stop) })

	go chaos.TerminateRandomBackend(ctx2, pool, stop)

	deadline := time.Now().Add(*flDuration)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var failed bool
loop:
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			name, row, err := oracles.Run(ctx2, pool)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					break loop
				}
				t.Fatalf("oracle error: %v", err)
			}
			if name != "" {
				failed = true
				dumpRecent(t, ctx2, pool)
				t.Fatalf("Oracle %s failed. First row: %s (seed=%d)", name, row, seed)
			}
		}
	}

	close(stop)
	if err := g.Wait(); err != nil && !failed {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("actors errored: %v", err)
		}
	}
}

func dockerAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	c := exec.CommandContext(ctx, "docker", "info")
	c.Stdout = io.Discard
	c.Stderr = io.Discard
	return c.Run() == nil
}

type seedIDs struct {
	adminID      string
	individualID string
	foundationID string
	donorID      string
	staffIDs     []string
}

func mustSeed(t *testing.T, ctx context.Context, pool *pgxpool.Pool) seedIDs {
	t.Helper()
	var s seedIDs

	insertUser := func(role, division string) string {
		var id string
		var div any
		if division != "" {
			div = division
		}
		err := pool.QueryRow(ctx, `
            INSERT INTO users (email, full_name, role, division)
            VALUES ($1, $2, $3, $4) RETURNING id
        `, fmt.Sprintf("%s%d@example.com", role, rand.Int63()), "Stress "+role, role, div).Scan(&id)
		if err != nil {
			t.Fatalf("seed %s: %v", role, err)
		}
		return id
	}

	s.adminID = insertUser("admin", "")
	s.individualID = insertUser("individual", "dhaka")
	s.foundationID = insertUser("foundation", "dhaka")
	s.donorID = insertUser("donor", "")
	for _, division := range []string{"dhaka", "chattogram", "sylhet", "dhaka"} {
		s.staffIDs = append(s.staffIDs, insertUser("staff", division))
	}
	return s
}

func dumpRecent(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	type dump struct {
		name string
		sql  string
	}
	dumps := []dump{
		{"events", `SELECT id, verification_status, second_verification_required, creator_type, amount_received, updated_at FROM events ORDER BY updated_at DESC LIMIT 50`},
		{"staff_assignments", `SELECT id, event_id, staff_id, resolution, assigned_at, resolved_at FROM staff_assignments ORDER BY assigned_at DESC LIMIT 50`},
		{"review_events", `SELECT id, event_id, type, actor_id, created_at FROM review_events ORDER BY id DESC LIMIT 50`},
		{"donations", `SELECT id, event_id, amount, created_at FROM donations ORDER BY created_at DESC LIMIT 50`},
	}
	for _, d := range dumps {
		rows, err := pool.Query(ctx, d.sql)
		if err != nil {
			t.Logf("dump %s error: %v", d.name, err)
			continue
		}
		cols := rows.FieldDescriptions()
		t.Logf("-- %s --", d.name)
		for rows.Next() {
			vals, _ := rows.Values()
			buf := make([]any, 0, len(vals))
			for i := range vals {
				buf = append(buf, fmt.Sprintf("%s=%v", string(cols[i].Name), vals[i]))
			}
			t.Logf("%s", buf)
		}
		rows.Close()
	}
}
