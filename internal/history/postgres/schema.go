// Package postgres provides a PostgreSQL-backed implementation of
// [history.Store].
//
// Attempts are stored in a single table. Pronunciation profile vectors use
// the pgvector extension with an HNSW cosine index so similarity queries
// stay fast as history grows; [Migrate] installs the extension automatically
// via CREATE EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn, 392)
//	if err != nil { … }
//	defer store.Close()
//
//	_ = store.Save(ctx, &attempt)
//	similar, _ := store.SimilarAttempts(ctx, attempt.Profile, 5)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ddlAttempts returns the attempts DDL with the profile vector dimension
// substituted. The dimension is baked into the column type at schema
// creation time.
func ddlAttempts(profileDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS attempts (
    id                BIGSERIAL        PRIMARY KEY,
    learner_id        TEXT             NOT NULL DEFAULT '',
    reference_text    TEXT             NOT NULL,
    expected_phonemes TEXT[]           NOT NULL DEFAULT '{}',
    spoken_phonemes   TEXT[]           NOT NULL DEFAULT '{}',
    symbol_score      DOUBLE PRECISION NOT NULL,
    probability_score DOUBLE PRECISION,
    similarity_score  DOUBLE PRECISION NOT NULL,
    status            TEXT             NOT NULL,
    profile           vector(%d),
    created_at        TIMESTAMPTZ      NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_attempts_learner_id
    ON attempts (learner_id);

CREATE INDEX IF NOT EXISTS idx_attempts_created_at
    ON attempts (created_at);

CREATE INDEX IF NOT EXISTS idx_attempts_profile
    ON attempts USING hnsw (profile vector_cosine_ops);
`, profileDimensions)
}

// Migrate creates or ensures the attempts table and pgvector extension
// exist. It is idempotent and safe to call on every application start.
//
// profileDimensions must match the acoustic model's phoneme vocabulary size.
// Changing this value after the first migration requires a manual schema
// update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, profileDimensions int) error {
	if _, err := pool.Exec(ctx, ddlAttempts(profileDimensions)); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}
