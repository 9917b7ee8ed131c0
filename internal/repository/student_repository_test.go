package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distrischool/student-service/internal/models"
	appErrors "github.com/distrischool/student-service/pkg/errors"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentRow(id int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "full_name", "cpf", "email", "phone", "birth_date", "registration_number", "course", "semester",
		"enrollment_date", "status", "auth_id", "notes", "created_at", "created_by", "updated_at", "updated_by",
		"deleted_at", "deleted_by",
	}).AddRow(
		id, "Maria da Silva", "11144477735", "maria@example.com", "11987654321",
		time.Date(2000, 3, 15, 0, 0, 0, 0, time.UTC), "202602000001", "Computer Science", 3,
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "ACTIVE", "auth0|abc123", "",
		now, "admin", now, "admin", nil, nil,
	)
}

func TestStudentRepositoryFindByIDExcludesDeleted(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM students WHERE id = \$1 AND deleted_at IS NULL`).
		WithArgs(int64(7)).
		WillReturnRows(studentRow(7))

	student, err := repo.FindByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), student.ID)
	assert.Equal(t, "202602000001", student.RegistrationNumber)
	assert.Equal(t, models.StatusActive, student.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByIDNoRows(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM students WHERE id = \$1 AND deleted_at IS NULL`).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, IsNoRows(err))
}

func TestStudentRepositoryFindByCPFIncludesDeleted(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	// No deleted_at filter: deleted rows keep their CPF reserved.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, cpf, email, phone, birth_date, registration_number, course, semester,\n        enrollment_date, status, auth_id, notes, created_at, created_by, updated_at, updated_by, deleted_at, deleted_by FROM students WHERE cpf = $1")).
		WithArgs("11144477735").
		WillReturnRows(studentRow(3))

	student, err := repo.FindByCPF(context.Background(), "11144477735")
	require.NoError(t, err)
	assert.Equal(t, int64(3), student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("INSERT INTO students").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	student := &models.Student{
		FullName:           "Maria da Silva",
		CPF:                "11144477735",
		Email:              "maria@example.com",
		RegistrationNumber: "202602000001",
		Course:             "Computer Science",
		Semester:           3,
		Status:             models.StatusActive,
		AuthID:             "auth0|abc123",
	}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.Equal(t, int64(11), student.ID)
	assert.False(t, student.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateUniqueViolation(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("INSERT INTO students").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "students_cpf_key"})

	err := repo.Create(context.Background(), &models.Student{CPF: "11144477735"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentRepositoryUpdateWritesSoftDeleteMarkers(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("UPDATE students SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	deletedAt := time.Now().UTC()
	deletedBy := "admin"
	student := &models.Student{
		ID:        5,
		FullName:  "Maria da Silva",
		CPF:       "11144477735",
		Email:     "maria@example.com",
		Status:    models.StatusActive,
		DeletedAt: &deletedAt,
		DeletedBy: &deletedBy,
	}
	require.NoError(t, repo.Update(context.Background(), student))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "full_name", "email", "registration_number", "course", "semester", "status"}).
		AddRow(int64(1), "Maria da Silva", "maria@example.com", "202602000001", "Computer Science", 3, "ACTIVE")

	mock.ExpectQuery(`SELECT id, full_name, email, registration_number, course, semester, status\s+FROM students WHERE deleted_at IS NULL AND LOWER\(full_name\) LIKE \$1 AND course = \$2 ORDER BY full_name ASC LIMIT 10 OFFSET 0`).
		WithArgs("%maria%", "Computer Science").
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM students WHERE deleted_at IS NULL AND LOWER\(full_name\) LIKE \$1 AND course = \$2`).
		WithArgs("%maria%", "Computer Science").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{
		Name:      "Maria",
		Course:    "Computer Science",
		Page:      1,
		PageSize:  10,
		SortBy:    "full_name",
		SortOrder: "asc",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, students, 1)
	assert.Equal(t, "202602000001", students[0].RegistrationNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListRejectsUnknownSort(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	// An unknown sort column falls back to created_at instead of being
	// interpolated into the query.
	mock.ExpectQuery(`SELECT id, full_name, email, registration_number, course, semester, status\s+FROM students WHERE deleted_at IS NULL ORDER BY created_at DESC LIMIT 20 OFFSET 0`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email", "registration_number", "course", "semester", "status"}))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM students WHERE deleted_at IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, total, err := repo.List(context.Background(), models.StudentFilter{SortBy: "cpf; DROP TABLE students"})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM students WHERE status = \$1`).
		WithArgs("GRADUATED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	total, err := repo.CountByStatus(context.Background(), models.StatusGraduated)
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
