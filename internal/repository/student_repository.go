package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/distrischool/student-service/internal/models"
	appErrors "github.com/distrischool/student-service/pkg/errors"
)

const studentColumns = `id, full_name, cpf, email, phone, birth_date, registration_number, course, semester,
        enrollment_date, status, auth_id, notes, created_at, created_by, updated_at, updated_by, deleted_at, deleted_by`

// StudentRepository manages persistence for student lifecycle records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID fetches a live student by ID. Soft-deleted rows behave as absent.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1 AND deleted_at IS NULL", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByIDIncludingDeleted fetches a student by ID regardless of deletion
// state. Used by restore.
func (r *StudentRepository) FindByIDIncludingDeleted(ctx context.Context, id int64) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByCPF returns the student holding the given CPF. Soft-deleted rows are
// included on purpose: their uniqueness keys stay reserved.
func (r *StudentRepository) FindByCPF(ctx context.Context, cpf string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE cpf = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, cpf); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByEmail returns the student holding the given email, including
// soft-deleted rows.
func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE email = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, email); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByRegistrationNumber fetches a live student by registration number.
func (r *StudentRepository) FindByRegistrationNumber(ctx context.Context, registrationNumber string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE registration_number = $1 AND deleted_at IS NULL", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, registrationNumber); err != nil {
		return nil, err
	}
	return &student, nil
}

// Count returns the total number of student rows, deleted included.
func (r *StudentRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students"); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return total, nil
}

// Create inserts a new student record and assigns the generated ID. A
// violated unique index surfaces as a conflict error.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (full_name, cpf, email, phone, birth_date, registration_number, course, semester,
        enrollment_date, status, auth_id, notes, created_at, created_by, updated_at, updated_by)
        VALUES (:full_name, :cpf, :email, :phone, :birth_date, :registration_number, :course, :semester,
        :enrollment_date, :status, :auth_id, :notes, :created_at, :created_by, :updated_at, :updated_by)
        RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, student)
	if err != nil {
		if isUniqueViolation(err) {
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "student already exists")
		}
		return fmt.Errorf("create student: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&student.ID); err != nil {
			return fmt.Errorf("scan student id: %w", err)
		}
	}
	return rows.Err()
}

// Update persists all mutable fields of an existing student, including the
// soft-delete markers. Identity, registration number, auth handle and the
// creation audit fields are never written.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET full_name = :full_name, cpf = :cpf, email = :email, phone = :phone,
        birth_date = :birth_date, course = :course, semester = :semester, enrollment_date = :enrollment_date,
        status = :status, notes = :notes, updated_at = :updated_at, updated_by = :updated_by,
        deleted_at = :deleted_at, deleted_by = :deleted_by
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "student already exists")
		}
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// List returns non-deleted students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentSummary, int, error) {
	base := "FROM students"
	args := []interface{}{}
	conditions := []string{"deleted_at IS NULL"}

	if filter.Name != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(full_name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Name)+"%")
	}
	if filter.Course != "" {
		conditions = append(conditions, fmt.Sprintf("course = $%d", len(args)+1))
		args = append(args, filter.Course)
	}
	if filter.Semester != nil {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, *filter.Semester)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"full_name":           "full_name",
		"registration_number": "registration_number",
		"course":              "course",
		"created_at":          "created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, full_name, email, registration_number, course, semester, status
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var students []models.StudentSummary
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// CountByStatus counts students currently holding the given status.
func (r *StudentRepository) CountByStatus(ctx context.Context, status models.StudentStatus) (int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students WHERE status = $1", status); err != nil {
		return 0, fmt.Errorf("count students by status: %w", err)
	}
	return total, nil
}

// CountByCourse counts students enrolled in the given course.
func (r *StudentRepository) CountByCourse(ctx context.Context, course string) (int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students WHERE course = $1", course); err != nil {
		return 0, fmt.Errorf("count students by course: %w", err)
	}
	return total, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// IsNoRows reports whether err means the row was absent.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
