package models

import "time"

// StudentStatus enumerates the lifecycle states of a student.
type StudentStatus string

const (
	StatusActive      StudentStatus = "ACTIVE"
	StatusInactive    StudentStatus = "INACTIVE"
	StatusGraduated   StudentStatus = "GRADUATED"
	StatusSuspended   StudentStatus = "SUSPENDED"
	StatusTransferred StudentStatus = "TRANSFERRED"
	StatusDropped     StudentStatus = "DROPPED"
)

// KnownStatus reports whether the value is one of the enumerated statuses.
func KnownStatus(s StudentStatus) bool {
	switch s {
	case StatusActive, StatusInactive, StatusGraduated, StatusSuspended, StatusTransferred, StatusDropped:
		return true
	}
	return false
}

// Student is the authoritative lifecycle record for a learner. The
// repository owns persisted copies; services hold transient working copies
// for the duration of a single operation.
type Student struct {
	ID                 int64         `db:"id" json:"id"`
	FullName           string        `db:"full_name" json:"full_name"`
	CPF                string        `db:"cpf" json:"cpf"`
	Email              string        `db:"email" json:"email"`
	Phone              string        `db:"phone" json:"phone,omitempty"`
	BirthDate          time.Time     `db:"birth_date" json:"birth_date"`
	RegistrationNumber string        `db:"registration_number" json:"registration_number"`
	Course             string        `db:"course" json:"course"`
	Semester           int           `db:"semester" json:"semester"`
	EnrollmentDate     time.Time     `db:"enrollment_date" json:"enrollment_date"`
	Status             StudentStatus `db:"status" json:"status"`
	AuthID             string        `db:"auth_id" json:"auth_id"`
	Notes              string        `db:"notes" json:"notes,omitempty"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
	CreatedBy          string        `db:"created_by" json:"created_by,omitempty"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updated_at"`
	UpdatedBy          string        `db:"updated_by" json:"updated_by,omitempty"`
	DeletedAt          *time.Time    `db:"deleted_at" json:"deleted_at,omitempty"`
	DeletedBy          *string       `db:"deleted_by" json:"deleted_by,omitempty"`
}

// IsDeleted reports whether the record has been soft-deleted.
func (s *Student) IsDeleted() bool {
	return s.DeletedAt != nil
}

// MarkDeleted flips the soft-delete fields.
func (s *Student) MarkDeleted(deletedBy string, at time.Time) {
	s.DeletedAt = &at
	s.DeletedBy = &deletedBy
}

// Restore clears the soft-delete fields.
func (s *Student) Restore() {
	s.DeletedAt = nil
	s.DeletedBy = nil
}

// StudentSummary is the reduced projection returned by listing endpoints.
type StudentSummary struct {
	ID                 int64         `db:"id" json:"id"`
	FullName           string        `db:"full_name" json:"full_name"`
	Email              string        `db:"email" json:"email"`
	RegistrationNumber string        `db:"registration_number" json:"registration_number"`
	Course             string        `db:"course" json:"course"`
	Semester           int           `db:"semester" json:"semester"`
	Status             StudentStatus `db:"status" json:"status"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Name      string
	Course    string
	Semester  *int
	Status    *StudentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentStatistics aggregates headline counts for dashboards.
type StudentStatistics struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Inactive  int64 `json:"inactive"`
	Graduated int64 `json:"graduated"`
	Suspended int64 `json:"suspended"`
}

// Pagination describes page metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
