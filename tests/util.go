// Package testutil holds helpers shared by tests of several packages.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edupilot/core"
	"github.com/trezcool/edupilot/core/student"
	"github.com/trezcool/edupilot/storage/database"
)

// PrepareDB returns a migrated, empty test database. Skips the test unless TEST_DATABASE_HOST is set.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if os.Getenv("TEST_DATABASE_HOST") == "" {
		t.Skip("TEST_DATABASE_HOST is not set: skipping database test")
	}
	t.Setenv("ENV", "test")
	conf := core.NewConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, database.CreateIfNotExist(ctx, conf))
	db, err := database.Open(ctx, conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(ctx, db))
	_, err = db.ExecContext(ctx, "TRUNCATE lesson_plans, course_configs")
	require.NoError(t, err)
	return db
}

// CreateStudent stores a student with the given grades and attendance.
func CreateStudent(t *testing.T, repo student.Repository, id, name string, attrs map[string]interface{}) student.Student {
	t.Helper()
	s := student.Student{ID: id, Name: name, Email: id + "@escola.com", Attributes: map[string]interface{}{"role": "aluno"}}
	for k, v := range attrs {
		s.Attributes[k] = v
	}
	s, err := repo.Create(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}
