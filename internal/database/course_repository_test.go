package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/coupon-crawler/internal/config"
	"github.com/jonesrussell/coupon-crawler/internal/database"
	"github.com/jonesrussell/coupon-crawler/internal/domain"
)

func newCourseRepo(t *testing.T) (*database.CourseRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return database.NewCourseRepository(sqlx.NewDb(mockDB, "postgres")), mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestCourseRepository_AlreadyKnown(t *testing.T) {
	repo, mock := newCourseRepo(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("https://www.udemy.com/course/go/").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	known, err := repo.AlreadyKnown(context.Background(), "https://www.udemy.com/course/go/")
	require.NoError(t, err)
	assert.True(t, known)

	expectationsMet(t, mock)
}

func TestCourseRepository_AlreadyKnown_Error(t *testing.T) {
	repo, mock := newCourseRepo(t)

	mock.ExpectQuery("SELECT EXISTS").WillReturnError(errors.New("connection reset"))

	_, err := repo.AlreadyKnown(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check course link")

	expectationsMet(t, mock)
}

func TestCourseRepository_KnownLinks(t *testing.T) {
	repo, mock := newCourseRepo(t)

	links := []string{"a", "b", "c"}
	mock.ExpectQuery(`SELECT link FROM courses WHERE link = ANY\(\$1\)`).
		WithArgs(pq.Array(links)).
		WillReturnRows(sqlmock.NewRows([]string{"link"}).AddRow("b"))

	known, err := repo.KnownLinks(context.Background(), links)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"b": {}}, known)

	expectationsMet(t, mock)
}

func TestCourseRepository_KnownLinks_Empty(t *testing.T) {
	repo, mock := newCourseRepo(t)

	known, err := repo.KnownLinks(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, known)

	expectationsMet(t, mock)
}

func TestCourseRepository_SaveNew(t *testing.T) {
	repo, mock := newCourseRepo(t)

	found := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	candidates := []domain.CourseCandidate{
		{Title: "Go", Link: "l1", Coupon: "C1", Source: "discudemy", DateFound: found},
		{Title: "Rust", Link: "l2", Coupon: "C2", Source: "realdiscount", DateFound: found},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO courses").
		WithArgs("Go", "l1", "C1", "discudemy", found).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO courses").
		WithArgs("Rust", "l2", "C2", "realdiscount", found).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	saved, err := repo.SaveNew(context.Background(), candidates)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "l1", saved[0].Link)

	expectationsMet(t, mock)
}

func TestCourseRepository_SaveNew_RollsBackOnError(t *testing.T) {
	repo, mock := newCourseRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO courses").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.SaveNew(context.Background(), []domain.CourseCandidate{{Title: "Go", Link: "l1", Coupon: "C1"}})
	require.Error(t, err)

	expectationsMet(t, mock)
}

func TestCourseRepository_Count(t *testing.T) {
	repo, mock := newCourseRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM courses`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	expectationsMet(t, mock)
}

func TestEnsureSchema(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS courses").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, database.EnsureSchema(context.Background(), sqlx.NewDb(mockDB, "postgres")))
	expectationsMet(t, mock)
}

func TestDSN(t *testing.T) {
	dsn := database.DSN(config.DatabaseConfig{
		Host: "db", Port: "5432", User: "u", Password: "p", DBName: "courses", SSLMode: "disable",
	})

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=courses sslmode=disable", dsn)
}
