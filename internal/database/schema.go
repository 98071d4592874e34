package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema creates the courses table. Links are unique so re-running a scrape
// never stores a course twice.
const Schema = `
CREATE TABLE IF NOT EXISTS courses (
	id         BIGSERIAL PRIMARY KEY,
	title      TEXT        NOT NULL,
	link       TEXT        NOT NULL UNIQUE,
	coupon     TEXT        NOT NULL,
	source     TEXT        NOT NULL DEFAULT '',
	date_found TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_courses_date_found ON courses (date_found DESC);
`

// EnsureSchema creates the tables the repository needs when missing.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
