package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/arnavam/zylo/internal/history"
)

// Compile-time interface check.
var _ history.Store = (*Store)(nil)

// Store is the PostgreSQL-backed attempt history. All operations are safe
// for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store, establishes a connection pool to the PostgreSQL
// database at dsn, registers pgvector types on every connection, and runs
// [Migrate] to ensure the schema exists.
//
// profileDimensions must match the acoustic model's phoneme vocabulary size
// (the length of [history.Attempt.Profile] vectors).
func NewStore(ctx context.Context, dsn string, profileDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("history store: parse dsn: %w", err)
	}

	// Register pgvector types on every new connection so profile columns
	// can be scanned into and inserted from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("history store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history store: ping: %w", err)
	}

	if err := Migrate(ctx, pool, profileDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Save implements [history.Store]. It inserts the attempt and fills in its
// ID and CreatedAt from the database.
func (s *Store) Save(ctx context.Context, attempt *history.Attempt) error {
	const q = `
		INSERT INTO attempts
		    (learner_id, reference_text, expected_phonemes, spoken_phonemes,
		     symbol_score, probability_score, similarity_score, status, profile)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	var profile any
	if attempt.Profile != nil {
		profile = pgvector.NewVector(attempt.Profile)
	}

	err := s.pool.QueryRow(ctx, q,
		attempt.LearnerID,
		attempt.ReferenceText,
		attempt.ExpectedPhonemes,
		attempt.SpokenPhonemes,
		attempt.SymbolScore,
		attempt.ProbabilityScore,
		attempt.SimilarityScore,
		string(attempt.Status),
		profile,
	).Scan(&attempt.ID, &attempt.CreatedAt)
	if err != nil {
		return fmt.Errorf("history store: save attempt: %w", err)
	}
	return nil
}

// Recent implements [history.Store]. It returns up to limit attempts, most
// recent first, optionally scoped to a single learner.
func (s *Store) Recent(ctx context.Context, learnerID string, limit int) ([]history.Attempt, error) {
	if limit <= 0 {
		limit = 20
	}

	q := `
		SELECT id, learner_id, reference_text, expected_phonemes, spoken_phonemes,
		       symbol_score, probability_score, similarity_score, status, profile, created_at
		FROM   attempts`
	args := []any{}
	if learnerID != "" {
		q += `
		WHERE  learner_id = $1`
		args = append(args, learnerID)
	}
	q += fmt.Sprintf(`
		ORDER  BY created_at DESC
		LIMIT  $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("history store: recent: %w", err)
	}

	attempts, err := pgx.CollectRows(rows, scanAttempt)
	if err != nil {
		return nil, fmt.Errorf("history store: scan rows: %w", err)
	}
	if attempts == nil {
		attempts = []history.Attempt{}
	}
	return attempts, nil
}

// SimilarAttempts implements [history.Store]. It finds the topK stored
// attempts whose profiles are closest (cosine distance) to profile.
func (s *Store) SimilarAttempts(ctx context.Context, profile []float32, topK int) ([]history.SimilarAttempt, error) {
	const q = `
		SELECT id, learner_id, reference_text, expected_phonemes, spoken_phonemes,
		       symbol_score, probability_score, similarity_score, status, profile, created_at,
		       profile <=> $1 AS distance
		FROM   attempts
		WHERE  profile IS NOT NULL
		ORDER  BY distance
		LIMIT  $2`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(profile), topK)
	if err != nil {
		return nil, fmt.Errorf("history store: similar attempts: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (history.SimilarAttempt, error) {
		var (
			sa  history.SimilarAttempt
			vec *pgvector.Vector
		)
		if err := row.Scan(
			&sa.Attempt.ID,
			&sa.Attempt.LearnerID,
			&sa.Attempt.ReferenceText,
			&sa.Attempt.ExpectedPhonemes,
			&sa.Attempt.SpokenPhonemes,
			&sa.Attempt.SymbolScore,
			&sa.Attempt.ProbabilityScore,
			&sa.Attempt.SimilarityScore,
			&sa.Attempt.Status,
			&vec,
			&sa.Attempt.CreatedAt,
			&sa.Distance,
		); err != nil {
			return history.SimilarAttempt{}, err
		}
		if vec != nil {
			sa.Attempt.Profile = vec.Slice()
		}
		return sa, nil
	})
	if err != nil {
		return nil, fmt.Errorf("history store: scan rows: %w", err)
	}
	if results == nil {
		results = []history.SimilarAttempt{}
	}
	return results, nil
}

// Ping implements [history.Store].
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements [history.Store]. It releases all pooled connections.
func (s *Store) Close() {
	s.pool.Close()
}

// scanAttempt scans one attempts row, tolerating a NULL profile column.
func scanAttempt(row pgx.CollectableRow) (history.Attempt, error) {
	var (
		a   history.Attempt
		vec *pgvector.Vector
	)
	if err := row.Scan(
		&a.ID,
		&a.LearnerID,
		&a.ReferenceText,
		&a.ExpectedPhonemes,
		&a.SpokenPhonemes,
		&a.SymbolScore,
		&a.ProbabilityScore,
		&a.SimilarityScore,
		&a.Status,
		&vec,
		&a.CreatedAt,
	); err != nil {
		return history.Attempt{}, err
	}
	if vec != nil {
		a.Profile = vec.Slice()
	}
	return a, nil
}
