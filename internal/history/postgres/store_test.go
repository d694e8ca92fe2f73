package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arnavam/zylo/internal/history"
	"github.com/arnavam/zylo/internal/history/postgres"
	"github.com/arnavam/zylo/internal/score"
)

const testProfileDim = 4

// testDSN returns the test database DSN from the environment, or skips the
// test if ZYLO_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("ZYLO_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ZYLO_TEST_POSTGRES_DSN not set — skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh [postgres.Store] with a clean attempts table.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)
	if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS attempts"); err != nil {
		t.Fatalf("drop attempts: %v", err)
	}

	store, err := postgres.NewStore(ctx, dsn, testProfileDim)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func testAttempt(learnerID string, profile []float32) *history.Attempt {
	p := 0.8
	return &history.Attempt{
		LearnerID:        learnerID,
		ReferenceText:    "hello world",
		ExpectedPhonemes: []string{"h", "ə", "l", "oʊ"},
		SpokenPhonemes:   []string{"h", "ə", "l", "oʊ"},
		SymbolScore:      0.91,
		ProbabilityScore: &p,
		SimilarityScore:  0.844,
		Status:           score.StatusCorrect,
		Profile:          profile,
	}
}

func TestSave_AssignsIDAndTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := testAttempt("learner-1", []float32{0.1, 0.2, 0.3, 0.4})
	if err := store.Save(ctx, a); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if a.ID == 0 {
		t.Error("ID not assigned")
	}
	if a.CreatedAt.IsZero() {
		t.Error("CreatedAt not assigned")
	}
}

func TestSave_NilProfile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := testAttempt("learner-1", nil)
	a.ProbabilityScore = nil
	if err := store.Save(ctx, a); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Recent(ctx, "learner-1", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d attempts, want 1", len(got))
	}
	if got[0].Profile != nil {
		t.Error("Profile should be nil")
	}
	if got[0].ProbabilityScore != nil {
		t.Error("ProbabilityScore should be nil")
	}
}

func TestRecent_ScopedToLearner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "a", "b"} {
		if err := store.Save(ctx, testAttempt(id, nil)); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	got, err := store.Recent(ctx, "a", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d attempts for learner a, want 2", len(got))
	}

	all, err := store.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d attempts total, want 3", len(all))
	}
}

func TestSimilarAttempts_OrdersByDistance(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	near := testAttempt("learner-1", []float32{1, 0, 0, 0})
	far := testAttempt("learner-1", []float32{0, 1, 0, 0})
	noProfile := testAttempt("learner-1", nil)
	for _, a := range []*history.Attempt{near, far, noProfile} {
		if err := store.Save(ctx, a); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	got, err := store.SimilarAttempts(ctx, []float32{0.9, 0.1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("SimilarAttempts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2 (profile-less attempt excluded)", len(got))
	}
	if got[0].Attempt.ID != near.ID {
		t.Errorf("closest attempt = %d, want %d", got[0].Attempt.ID, near.ID)
	}
	if got[0].Distance >= got[1].Distance {
		t.Errorf("distances not ascending: %v, %v", got[0].Distance, got[1].Distance)
	}
}
