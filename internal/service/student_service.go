package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	authclient "github.com/distrischool/student-service/internal/client/auth"
	"github.com/distrischool/student-service/internal/models"
	"github.com/distrischool/student-service/internal/repository"
	"github.com/distrischool/student-service/pkg/config"
	"github.com/distrischool/student-service/pkg/cpf"
	appErrors "github.com/distrischool/student-service/pkg/errors"
)

const (
	cacheKeyByID           = "students:id:%d"
	cacheKeyByRegistration = "students:reg:%s"
	cacheNamespacePattern  = "students:*"

	studentRole = "STUDENT"
	adminRole   = "ADMIN"

	oneTimePasswordLength = 16
)

type studentRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	FindByIDIncludingDeleted(ctx context.Context, id int64) (*models.Student, error)
	FindByCPF(ctx context.Context, cpf string) (*models.Student, error)
	FindByEmail(ctx context.Context, email string) (*models.Student, error)
	FindByRegistrationNumber(ctx context.Context, registrationNumber string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentSummary, int, error)
	CountByStatus(ctx context.Context, status models.StudentStatus) (int64, error)
	CountByCourse(ctx context.Context, course string) (int64, error)
}

type identityProvisioner interface {
	RegisterIdentity(ctx context.Context, authorization string, req authclient.RegisterUserRequest) (string, error)
	GetUserByAuthID(ctx context.Context, authID string) (*authclient.User, error)
	HasRole(ctx context.Context, userID int64, role string) (bool, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, topic string, event models.DomainEvent)
}

// StudentRequest holds the payload for creating and updating students.
type StudentRequest struct {
	FullName       string               `json:"full_name" validate:"required,min=3,max=255"`
	CPF            string               `json:"cpf" validate:"required"`
	Email          string               `json:"email" validate:"required,email"`
	Phone          string               `json:"phone" validate:"omitempty,numeric,min=10,max=11"`
	BirthDate      time.Time            `json:"birth_date" validate:"required"`
	Course         string               `json:"course" validate:"required,max=255"`
	Semester       int                  `json:"semester" validate:"required,min=1,max=20"`
	EnrollmentDate time.Time            `json:"enrollment_date" validate:"required"`
	Status         models.StudentStatus `json:"status"`
	Notes          string               `json:"notes"`
}

// StudentService orchestrates the student lifecycle: business validation,
// identity provisioning, persistence, cache invalidation and event
// publication. It is stateless and safe for concurrent use; the store's
// unique indexes are the only mutual-exclusion points it relies on.
type StudentService struct {
	repo        studentRepository
	regNumbers  *RegistrationNumberGenerator
	provisioner identityProvisioner
	cache       *CacheService
	publisher   eventPublisher
	metrics     *MetricsService
	topics      config.KafkaTopics
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewStudentService constructs the student lifecycle service.
func NewStudentService(
	repo studentRepository,
	regNumbers *RegistrationNumberGenerator,
	provisioner identityProvisioner,
	cache *CacheService,
	publisher eventPublisher,
	metrics *MetricsService,
	topics config.KafkaTopics,
	validate *validator.Validate,
	logger *zap.Logger,
) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:        repo,
		regNumbers:  regNumbers,
		provisioner: provisioner,
		cache:       cache,
		publisher:   publisher,
		metrics:     metrics,
		topics:      topics,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Create registers a new student. Identity provisioning in the auth service
// is a precondition: if it fails, nothing is persisted. If persistence fails
// afterwards, the remote identity is orphaned; this window is accepted and
// logged rather than compensated.
func (s *StudentService) Create(ctx context.Context, req StudentRequest, actor, authorization string) (*models.Student, error) {
	s.logger.Info("creating student", zap.String("email", req.Email))

	if err := s.validator.Struct(req); err != nil {
		s.recordOperation("create", "validation_error")
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.validateStudentData(req); err != nil {
		s.recordOperation("create", "validation_error")
		return nil, err
	}
	if err := s.checkUniqueness(ctx, req.CPF, req.Email, 0); err != nil {
		s.recordOperation("create", "conflict")
		return nil, err
	}

	authID, err := s.provisionIdentity(ctx, req, authorization)
	if err != nil {
		s.recordOperation("create", "provisioning_error")
		return nil, err
	}

	registrationNumber, err := s.regNumbers.Next(ctx)
	if err != nil {
		s.recordOperation("create", "failure")
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to derive registration number")
	}

	status := req.Status
	if status == "" {
		status = models.StatusActive
	}

	student := &models.Student{
		FullName:           req.FullName,
		CPF:                cpf.Strip(req.CPF),
		Email:              req.Email,
		Phone:              req.Phone,
		BirthDate:          req.BirthDate,
		RegistrationNumber: registrationNumber,
		Course:             req.Course,
		Semester:           req.Semester,
		EnrollmentDate:     req.EnrollmentDate,
		Status:             status,
		AuthID:             authID,
		Notes:              req.Notes,
		CreatedBy:          actor,
		UpdatedBy:          actor,
	}

	if err := s.repo.Create(ctx, student); err != nil {
		s.recordOperation("create", "failure")
		s.logger.Error("student insert failed after identity provisioning; remote identity is orphaned",
			zap.String("auth_id", authID),
			zap.String("email", req.Email),
			zap.Error(err))
		if appErrors.HasCode(err, appErrors.ErrConflict) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to persist student")
	}

	s.logger.Info("student created",
		zap.Int64("id", student.ID),
		zap.String("registration_number", student.RegistrationNumber),
		zap.String("auth_id", student.AuthID))

	s.invalidateCache(ctx)
	s.publish(ctx, s.topics.StudentCreated, models.EventStudentCreated, map[string]interface{}{
		"studentId":          student.ID,
		"fullName":           student.FullName,
		"email":              student.Email,
		"registrationNumber": student.RegistrationNumber,
		"course":             student.Course,
	})
	s.recordOperation("create", "success")

	return student, nil
}

// GetByID returns a live student, serving from cache when possible.
func (s *StudentService) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	key := fmt.Sprintf(cacheKeyByID, id)

	var cached models.Student
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student not found with id %d", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to load student")
	}

	_ = s.cache.Set(ctx, key, student, 0)
	return student, nil
}

// GetByRegistrationNumber returns a live student by registration number,
// serving from cache when possible.
func (s *StudentService) GetByRegistrationNumber(ctx context.Context, registrationNumber string) (*models.Student, error) {
	key := fmt.Sprintf(cacheKeyByRegistration, registrationNumber)

	var cached models.Student
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	student, err := s.repo.FindByRegistrationNumber(ctx, registrationNumber)
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student not found with registration number %s", registrationNumber))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to load student")
	}

	_ = s.cache.Set(ctx, key, student, 0)
	return student, nil
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentSummary, *models.Pagination, error) {
	if filter.Status != nil && !models.KnownStatus(*filter.Status) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", *filter.Status))
	}

	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to list students")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return students, pagination, nil
}

// Update overwrites the mutable fields of a live student. Identity,
// registration number, auth handle and creation audit fields are preserved
// regardless of the payload.
func (s *StudentService) Update(ctx context.Context, id int64, req StudentRequest, actor string) (*models.Student, error) {
	s.logger.Info("updating student", zap.Int64("id", id))

	if err := s.validator.Struct(req); err != nil {
		s.recordOperation("update", "validation_error")
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.loadLive(ctx, id)
	if err != nil {
		s.recordOperation("update", "not_found")
		return nil, err
	}

	if err := s.checkUniqueness(ctx, req.CPF, req.Email, id); err != nil {
		s.recordOperation("update", "conflict")
		return nil, err
	}
	if err := s.validateStudentData(req); err != nil {
		s.recordOperation("update", "validation_error")
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = student.Status
	}

	student.FullName = req.FullName
	student.CPF = cpf.Strip(req.CPF)
	student.Email = req.Email
	student.Phone = req.Phone
	student.BirthDate = req.BirthDate
	student.Course = req.Course
	student.Semester = req.Semester
	student.EnrollmentDate = req.EnrollmentDate
	student.Status = status
	student.Notes = req.Notes
	student.UpdatedBy = actor

	if err := s.repo.Update(ctx, student); err != nil {
		s.recordOperation("update", "failure")
		if appErrors.HasCode(err, appErrors.ErrConflict) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to update student")
	}

	s.invalidateCache(ctx)
	s.publish(ctx, s.topics.StudentUpdated, models.EventStudentUpdated, map[string]interface{}{
		"studentId": student.ID,
		"email":     student.Email,
	})
	s.recordOperation("update", "success")

	return student, nil
}

// ChangeStatus sets a new lifecycle status. Transitions are deliberately
// unconstrained: any status may follow any other.
func (s *StudentService) ChangeStatus(ctx context.Context, id int64, newStatus models.StudentStatus, actor string) (*models.Student, error) {
	if !models.KnownStatus(newStatus) {
		s.recordOperation("change_status", "validation_error")
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", newStatus))
	}

	student, err := s.loadLive(ctx, id)
	if err != nil {
		s.recordOperation("change_status", "not_found")
		return nil, err
	}

	oldStatus := student.Status
	student.Status = newStatus
	student.UpdatedBy = actor

	if err := s.repo.Update(ctx, student); err != nil {
		s.recordOperation("change_status", "failure")
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to update student status")
	}

	s.logger.Info("student status changed",
		zap.Int64("id", id),
		zap.String("old_status", string(oldStatus)),
		zap.String("new_status", string(newStatus)))

	s.invalidateCache(ctx)
	s.publish(ctx, s.topics.StudentStatusChanged, models.EventStudentStatusChanged, map[string]interface{}{
		"studentId":          student.ID,
		"oldStatus":          string(oldStatus),
		"newStatus":          string(newStatus),
		"registrationNumber": student.RegistrationNumber,
	})
	if s.metrics != nil {
		s.metrics.RecordStatusChange(newStatus)
	}
	s.recordOperation("change_status", "success")

	return student, nil
}

// Delete soft-deletes a student. The row is never physically removed.
func (s *StudentService) Delete(ctx context.Context, id int64, actor string) error {
	s.logger.Info("deleting student", zap.Int64("id", id))

	student, err := s.repo.FindByIDIncludingDeleted(ctx, id)
	if err != nil {
		s.recordOperation("delete", "not_found")
		if repository.IsNoRows(err) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student not found with id %d", id))
		}
		return appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to load student")
	}

	if student.IsDeleted() {
		s.recordOperation("delete", "business_rule_violation")
		return appErrors.Clone(appErrors.ErrBusinessRule, "student has already been deleted")
	}

	student.MarkDeleted(actor, s.now().UTC())
	if err := s.repo.Update(ctx, student); err != nil {
		s.recordOperation("delete", "failure")
		return appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to delete student")
	}

	s.invalidateCache(ctx)
	s.publish(ctx, s.topics.StudentDeleted, models.EventStudentDeleted, map[string]interface{}{
		"studentId":          student.ID,
		"fullName":           student.FullName,
		"registrationNumber": student.RegistrationNumber,
	})
	s.recordOperation("delete", "success")

	return nil
}

// Restore brings a soft-deleted student back. No event is emitted here,
// matching the behaviour of the rest of the platform's consumers.
func (s *StudentService) Restore(ctx context.Context, id int64, actor string) (*models.Student, error) {
	s.logger.Info("restoring student", zap.Int64("id", id))

	student, err := s.repo.FindByIDIncludingDeleted(ctx, id)
	if err != nil {
		s.recordOperation("restore", "not_found")
		if repository.IsNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student not found with id %d", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to load student")
	}

	if !student.IsDeleted() {
		s.recordOperation("restore", "business_rule_violation")
		return nil, appErrors.Clone(appErrors.ErrBusinessRule, "student is not deleted")
	}

	student.Restore()
	student.UpdatedBy = actor

	if err := s.repo.Update(ctx, student); err != nil {
		s.recordOperation("restore", "failure")
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to restore student")
	}

	s.invalidateCache(ctx)
	s.recordOperation("restore", "success")

	return student, nil
}

// CountByStatus counts students holding the given status.
func (s *StudentService) CountByStatus(ctx context.Context, status models.StudentStatus) (int64, error) {
	if !models.KnownStatus(status) {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", status))
	}
	total, err := s.repo.CountByStatus(ctx, status)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to count students by status")
	}
	return total, nil
}

// CountByCourse counts students enrolled in the given course.
func (s *StudentService) CountByCourse(ctx context.Context, course string) (int64, error) {
	total, err := s.repo.CountByCourse(ctx, course)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to count students by course")
	}
	return total, nil
}

// Statistics aggregates the headline per-status counts plus the total
// number of registered students, soft-deleted included.
func (s *StudentService) Statistics(ctx context.Context) (*models.StudentStatistics, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to count students")
	}

	stats := &models.StudentStatistics{Total: total}
	for _, entry := range []struct {
		status models.StudentStatus
		dest   *int64
	}{
		{models.StatusActive, &stats.Active},
		{models.StatusInactive, &stats.Inactive},
		{models.StatusGraduated, &stats.Graduated},
		{models.StatusSuspended, &stats.Suspended},
	} {
		count, err := s.repo.CountByStatus(ctx, entry.status)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to count students by status")
		}
		*entry.dest = count
	}

	return stats, nil
}

// IsAdmin reports whether the actor holds the ADMIN role in the auth
// service. Lookup failures degrade to false.
func (s *StudentService) IsAdmin(ctx context.Context, authID string) bool {
	user, err := s.provisioner.GetUserByAuthID(ctx, authID)
	if err != nil {
		s.logger.Warn("failed to resolve actor in auth service", zap.String("auth_id", authID), zap.Error(err))
		return false
	}
	isAdmin, err := s.provisioner.HasRole(ctx, user.ID, adminRole)
	if err != nil {
		s.logger.Warn("failed to check actor role", zap.String("auth_id", authID), zap.Error(err))
		return false
	}
	return isAdmin
}

func (s *StudentService) loadLive(ctx context.Context, id int64) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student not found with id %d", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to load student")
	}
	return student, nil
}

// checkUniqueness fails when another record already holds the CPF or email.
// Soft-deleted records keep their keys reserved on purpose.
func (s *StudentService) checkUniqueness(ctx context.Context, rawCPF, email string, excludeID int64) error {
	existing, err := s.repo.FindByCPF(ctx, cpf.Strip(rawCPF))
	if err != nil && !repository.IsNoRows(err) {
		return appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to check cpf uniqueness")
	}
	if err == nil && (excludeID == 0 || existing.ID != excludeID) {
		return appErrors.Clone(appErrors.ErrConflict, "a student is already registered with this cpf")
	}

	existing, err = s.repo.FindByEmail(ctx, email)
	if err != nil && !repository.IsNoRows(err) {
		return appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to check email uniqueness")
	}
	if err == nil && (excludeID == 0 || existing.ID != excludeID) {
		return appErrors.Clone(appErrors.ErrConflict, "a student is already registered with this email")
	}

	return nil
}

func (s *StudentService) validateStudentData(req StudentRequest) error {
	if !cpf.Valid(req.CPF) {
		return appErrors.Clone(appErrors.ErrValidation, "invalid cpf")
	}
	now := s.now()
	if req.EnrollmentDate.After(now) {
		return appErrors.Clone(appErrors.ErrValidation, "enrollment date cannot be in the future")
	}
	if !req.BirthDate.Before(now) {
		return appErrors.Clone(appErrors.ErrValidation, "birth date must be in the past")
	}
	if req.Status != "" && !models.KnownStatus(req.Status) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
	}
	return nil
}

// provisionIdentity creates the remote account. The one-time credential is
// generated here and never stored locally.
func (s *StudentService) provisionIdentity(ctx context.Context, req StudentRequest, authorization string) (string, error) {
	password, err := authclient.GeneratePassword(oneTimePasswordLength)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate credential")
	}

	firstName, lastName := splitFullName(req.FullName)

	authID, err := s.provisioner.RegisterIdentity(ctx, authorization, authclient.RegisterUserRequest{
		Email:           req.Email,
		Password:        password,
		ConfirmPassword: password,
		FirstName:       firstName,
		LastName:        lastName,
		Phone:           req.Phone,
		DocumentNumber:  cpf.Strip(req.CPF),
		Roles:           []string{studentRole},
	})
	if err != nil {
		s.logger.Error("identity provisioning failed", zap.String("email", req.Email), zap.Error(err))
		return "", appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to provision identity in auth service")
	}

	s.logger.Info("identity provisioned", zap.String("email", req.Email), zap.String("auth_id", authID))
	return authID, nil
}

// splitFullName divides a full name at its last space: everything before is
// the first name(s), the final token is the last name. A single word is all
// first name.
func splitFullName(fullName string) (string, string) {
	trimmed := strings.TrimSpace(fullName)
	if trimmed == "" {
		return "", ""
	}
	idx := strings.LastIndex(trimmed, " ")
	if idx < 0 {
		return trimmed, ""
	}
	return strings.TrimSpace(trimmed[:idx]), trimmed[idx+1:]
}

func (s *StudentService) invalidateCache(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, cacheNamespacePattern)
}

func (s *StudentService) publish(ctx context.Context, topic, eventType string, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	// The handler returning must not cancel a record that is still in flight.
	s.publisher.Publish(context.WithoutCancel(ctx), topic, models.NewDomainEvent(eventType, data))
}

func (s *StudentService) recordOperation(operation, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordOperation(operation, outcome)
	}
}
