package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/coupon-crawler/internal/domain"
)

// CourseRepository stores courses across runs. The scrape core never reads
// it; callers use it to drop courses found in earlier runs.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// AlreadyKnown reports whether link was stored by an earlier run.
func (r *CourseRepository) AlreadyKnown(ctx context.Context, link string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM courses WHERE link = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, link); err != nil {
		return false, fmt.Errorf("failed to check course link: %w", err)
	}

	return exists, nil
}

// KnownLinks returns the subset of links already stored.
func (r *CourseRepository) KnownLinks(ctx context.Context, links []string) (map[string]struct{}, error) {
	known := make(map[string]struct{})
	if len(links) == 0 {
		return known, nil
	}

	query := `SELECT link FROM courses WHERE link = ANY($1)`

	var found []string
	if err := r.db.SelectContext(ctx, &found, query, pq.Array(links)); err != nil {
		return nil, fmt.Errorf("failed to select known links: %w", err)
	}

	for _, l := range found {
		known[l] = struct{}{}
	}

	return known, nil
}

// SaveNew inserts candidates in one transaction and returns those that were
// actually inserted. Links already present are left untouched.
func (r *CourseRepository) SaveNew(ctx context.Context, candidates []domain.CourseCandidate) ([]domain.CourseCandidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO courses (title, link, coupon, source, date_found)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (link) DO NOTHING
	`

	saved := make([]domain.CourseCandidate, 0, len(candidates))
	for _, c := range candidates {
		res, execErr := tx.ExecContext(ctx, query, c.Title, c.Link, c.Coupon, c.Source, c.DateFound)
		if execErr != nil {
			return nil, fmt.Errorf("failed to insert course %s: %w", c.Link, execErr)
		}
		n, affectedErr := res.RowsAffected()
		if affectedErr != nil {
			return nil, fmt.Errorf("failed to read inserted rows: %w", affectedErr)
		}
		if n > 0 {
			saved = append(saved, c)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit courses: %w", err)
	}

	return saved, nil
}

// Count returns the number of stored courses.
func (r *CourseRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM courses`); err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return n, nil
}
