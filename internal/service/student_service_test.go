package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	authclient "github.com/distrischool/student-service/internal/client/auth"
	"github.com/distrischool/student-service/internal/models"
	"github.com/distrischool/student-service/pkg/config"
	appErrors "github.com/distrischool/student-service/pkg/errors"
)

const (
	validCPF      = "111.444.777-35"
	otherValidCPF = "123.456.789-09"
)

type studentRepoStub struct {
	students  map[int64]*models.Student
	nextID    int64
	createErr error
	updateErr error
}

func newStudentRepoStub() *studentRepoStub {
	return &studentRepoStub{students: map[int64]*models.Student{}}
}

func (s *studentRepoStub) copyOf(st *models.Student) *models.Student {
	cp := *st
	return &cp
}

func (s *studentRepoStub) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	st, ok := s.students[id]
	if !ok || st.IsDeleted() {
		return nil, sql.ErrNoRows
	}
	return s.copyOf(st), nil
}

func (s *studentRepoStub) FindByIDIncludingDeleted(ctx context.Context, id int64) (*models.Student, error) {
	st, ok := s.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s.copyOf(st), nil
}

func (s *studentRepoStub) FindByCPF(ctx context.Context, cpf string) (*models.Student, error) {
	for _, st := range s.students {
		if st.CPF == cpf {
			return s.copyOf(st), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *studentRepoStub) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	for _, st := range s.students {
		if st.Email == email {
			return s.copyOf(st), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *studentRepoStub) FindByRegistrationNumber(ctx context.Context, registrationNumber string) (*models.Student, error) {
	for _, st := range s.students {
		if st.RegistrationNumber == registrationNumber && !st.IsDeleted() {
			return s.copyOf(st), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *studentRepoStub) Create(ctx context.Context, student *models.Student) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	student.ID = s.nextID
	student.CreatedAt = time.Now().UTC()
	student.UpdatedAt = student.CreatedAt
	s.students[student.ID] = s.copyOf(student)
	return nil
}

func (s *studentRepoStub) Update(ctx context.Context, student *models.Student) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	student.UpdatedAt = time.Now().UTC()
	s.students[student.ID] = s.copyOf(student)
	return nil
}

func (s *studentRepoStub) Count(ctx context.Context) (int64, error) {
	return int64(len(s.students)), nil
}

func (s *studentRepoStub) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentSummary, int, error) {
	var items []models.StudentSummary
	for _, st := range s.students {
		if st.IsDeleted() {
			continue
		}
		items = append(items, models.StudentSummary{
			ID:                 st.ID,
			FullName:           st.FullName,
			RegistrationNumber: st.RegistrationNumber,
			Course:             st.Course,
			Semester:           st.Semester,
			Status:             st.Status,
		})
	}
	return items, len(items), nil
}

func (s *studentRepoStub) CountByStatus(ctx context.Context, status models.StudentStatus) (int64, error) {
	var n int64
	for _, st := range s.students {
		if st.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *studentRepoStub) CountByCourse(ctx context.Context, course string) (int64, error) {
	var n int64
	for _, st := range s.students {
		if st.Course == course {
			n++
		}
	}
	return n, nil
}

type provisionerStub struct {
	authID   string
	err      error
	requests []authclient.RegisterUserRequest
	user     *authclient.User
	hasRole  bool
}

func (s *provisionerStub) RegisterIdentity(ctx context.Context, authorization string, req authclient.RegisterUserRequest) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.requests = append(s.requests, req)
	return s.authID, nil
}

func (s *provisionerStub) GetUserByAuthID(ctx context.Context, authID string) (*authclient.User, error) {
	if s.user == nil {
		return nil, fmt.Errorf("user not found")
	}
	return s.user, nil
}

func (s *provisionerStub) HasRole(ctx context.Context, userID int64, role string) (bool, error) {
	return s.hasRole, nil
}

type publisherStub struct {
	topics   []string
	events   []models.DomainEvent
	contexts []context.Context
}

func (s *publisherStub) Publish(ctx context.Context, topic string, event models.DomainEvent) {
	s.topics = append(s.topics, topic)
	s.events = append(s.events, event)
	s.contexts = append(s.contexts, ctx)
}

type cacheRepoStub struct {
	entries map[string][]byte
	deletes []string
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{entries: map[string][]byte{}}
}

func (s *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.entries[key] = raw
	return nil
}

func (s *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.deletes = append(s.deletes, pattern)
	s.entries = map[string][]byte{}
	return nil
}

var testTopics = config.KafkaTopics{
	StudentCreated:       "student.created.topic",
	StudentUpdated:       "student.updated.topic",
	StudentDeleted:       "student.deleted.topic",
	StudentStatusChanged: "student.status-changed.topic",
}

func newTestService(repo *studentRepoStub, prov *provisionerStub, pub *publisherStub, cacheRepo *cacheRepoStub) *StudentService {
	var cr CacheRepository
	enabled := false
	if cacheRepo != nil {
		cr = cacheRepo
		enabled = true
	}
	cacheSvc := NewCacheService(cr, nil, time.Minute, zap.NewNop(), enabled)
	return NewStudentService(
		repo,
		NewRegistrationNumberGenerator(repo),
		prov,
		cacheSvc,
		pub,
		nil,
		testTopics,
		nil,
		zap.NewNop(),
	)
}

func validRequest() StudentRequest {
	return StudentRequest{
		FullName:       "Maria da Silva",
		CPF:            validCPF,
		Email:          "maria.silva@example.com",
		Phone:          "11987654321",
		BirthDate:      time.Date(2000, 3, 15, 0, 0, 0, 0, time.UTC),
		Course:         "Computer Science",
		Semester:       3,
		EnrollmentDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestStudentServiceCreate(t *testing.T) {
	repo := newStudentRepoStub()
	prov := &provisionerStub{authID: "auth0|abc123"}
	pub := &publisherStub{}
	svc := newTestService(repo, prov, pub, nil)

	student, err := svc.Create(context.Background(), validRequest(), "admin@distrischool.com", "Bearer token")
	require.NoError(t, err)

	assert.Equal(t, int64(1), student.ID)
	assert.Equal(t, "11144477735", student.CPF)
	assert.Equal(t, models.StatusActive, student.Status)
	assert.Equal(t, "auth0|abc123", student.AuthID)
	assert.Equal(t, "admin@distrischool.com", student.CreatedBy)

	now := time.Now()
	expected := fmt.Sprintf("%04d%02d%06d", now.Year(), int(now.Month()), 1)
	assert.Equal(t, expected, student.RegistrationNumber)
	assert.Len(t, student.RegistrationNumber, 12)

	require.Len(t, prov.requests, 1)
	req := prov.requests[0]
	assert.Equal(t, "Maria da", req.FirstName)
	assert.Equal(t, "Silva", req.LastName)
	assert.Equal(t, "11144477735", req.DocumentNumber)
	assert.Equal(t, req.Password, req.ConfirmPassword)
	assert.NotEmpty(t, req.Password)
	assert.Equal(t, []string{"STUDENT"}, req.Roles)

	require.Len(t, pub.events, 1)
	assert.Equal(t, testTopics.StudentCreated, pub.topics[0])
	event := pub.events[0]
	assert.Equal(t, models.EventStudentCreated, event.EventType)
	assert.Equal(t, models.EventSource, event.Source)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, student.ID, event.Data["studentId"])
	assert.Equal(t, student.RegistrationNumber, event.Data["registrationNumber"])
	assert.Equal(t, "Computer Science", event.Data["course"])
}

func TestStudentServiceCreateInvalidCPF(t *testing.T) {
	repo := newStudentRepoStub()
	prov := &provisionerStub{authID: "auth0|abc123"}
	pub := &publisherStub{}
	svc := newTestService(repo, prov, pub, nil)

	req := validRequest()
	req.CPF = "111.111.111-11"

	_, err := svc.Create(context.Background(), req, "admin", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, prov.requests)
	assert.Empty(t, repo.students)
}

func TestStudentServiceCreateDuplicateEmail(t *testing.T) {
	repo := newStudentRepoStub()
	existing := validRequest()
	repo.students[1] = &models.Student{ID: 1, CPF: "99999999999", Email: existing.Email}
	repo.nextID = 1

	prov := &provisionerStub{authID: "auth0|abc123"}
	pub := &publisherStub{}
	svc := newTestService(repo, prov, pub, nil)

	_, err := svc.Create(context.Background(), existing, "admin", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, prov.requests, "identity must not be provisioned on conflict")
	assert.Len(t, repo.students, 1)
	assert.Empty(t, pub.events)
}

func TestStudentServiceCreateDuplicateCPFIncludesDeleted(t *testing.T) {
	repo := newStudentRepoStub()
	deletedAt := time.Now().UTC()
	deletedBy := "admin"
	repo.students[1] = &models.Student{
		ID:        1,
		CPF:       "11144477735",
		Email:     "someone.else@example.com",
		DeletedAt: &deletedAt,
		DeletedBy: &deletedBy,
	}
	repo.nextID = 1

	svc := newTestService(repo, &provisionerStub{authID: "x"}, &publisherStub{}, nil)

	_, err := svc.Create(context.Background(), validRequest(), "admin", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceCreateProvisioningFailure(t *testing.T) {
	repo := newStudentRepoStub()
	prov := &provisionerStub{err: fmt.Errorf("auth service down")}
	pub := &publisherStub{}
	svc := newTestService(repo, prov, pub, nil)

	_, err := svc.Create(context.Background(), validRequest(), "admin", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDependency.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.students, "nothing may be persisted when provisioning fails")
	assert.Empty(t, pub.events)
}

func TestStudentServiceCreateStoreConflict(t *testing.T) {
	repo := newStudentRepoStub()
	repo.createErr = appErrors.Clone(appErrors.ErrConflict, "student already exists")
	pub := &publisherStub{}
	svc := newTestService(repo, &provisionerStub{authID: "auth0|abc123"}, pub, nil)

	// A concurrent insert can slip past the uniqueness pre-check and hit
	// the unique index instead. The store's conflict must surface as-is.
	_, err := svc.Create(context.Background(), validRequest(), "admin", "")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Empty(t, pub.events)
}

func TestStudentServiceCreatePublishesWithDetachedContext(t *testing.T) {
	repo := newStudentRepoStub()
	pub := &publisherStub{}
	svc := newTestService(repo, &provisionerStub{authID: "auth0|abc123"}, pub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Create(ctx, validRequest(), "admin", "")
	require.NoError(t, err)
	require.Len(t, pub.contexts, 1)
	assert.NoError(t, pub.contexts[0].Err(), "event delivery must outlive the request context")
}

func TestStudentServiceGetByIDServesFromCache(t *testing.T) {
	repo := newStudentRepoStub()
	cacheRepo := newCacheRepoStub()
	svc := newTestService(repo, &provisionerStub{authID: "auth0|abc"}, &publisherStub{}, cacheRepo)

	created, err := svc.Create(context.Background(), validRequest(), "admin", "")
	require.NoError(t, err)

	first, err := svc.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.FullName, first.FullName)

	// Remove the row; the cached copy must still satisfy the read.
	delete(repo.students, created.ID)
	second, err := svc.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.RegistrationNumber, second.RegistrationNumber)
}

func TestStudentServiceGetByIDNotFound(t *testing.T) {
	svc := newTestService(newStudentRepoStub(), &provisionerStub{}, &publisherStub{}, nil)

	_, err := svc.GetByID(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceChangeStatus(t *testing.T) {
	repo := newStudentRepoStub()
	pub := &publisherStub{}
	svc := newTestService(repo, &provisionerStub{authID: "auth0|abc"}, pub, nil)

	created, err := svc.Create(context.Background(), validRequest(), "admin", "")
	require.NoError(t, err)
	pub.events = nil
	pub.topics = nil

	updated, err := svc.ChangeStatus(context.Background(), created.ID, models.StatusGraduated, "registrar")
	require.NoError(t, err)
	assert.Equal(t, models.StatusGraduated, updated.Status)
	assert.Equal(t, "registrar", updated.UpdatedBy)

	require.Len(t, pub.events, 1)
	assert.Equal(t, testTopics.StudentStatusChanged, pub.topics[0])
	event := pub.events[0]
	assert.Equal(t, models.EventStudentStatusChanged, event.EventType)
	assert.Equal(t, string(models.StatusActive), event.Data["oldStatus"])
	assert.Equal(t, string(models.StatusGraduated), event.Data["newStatus"])
	assert.Equal(t, created.RegistrationNumber, event.Data["registrationNumber"])
}

func TestStudentServiceChangeStatusUnknown(t *testing.T) {
	svc := newTestService(newStudentRepoStub(), &provisionerStub{}, &publisherStub{}, nil)

	_, err := svc.ChangeStatus(context.Background(), 1, models.StudentStatus("EXPELLED"), "registrar")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceDeleteThenGetNotFound(t *testing.T) {
	repo := newStudentRepoStub()
	pub := &publisherStub{}
	cacheRepo := newCacheRepoStub()
	svc := newTestService(repo, &provisionerStub{authID: "auth0|abc"}, pub, cacheRepo)

	created, err := svc.Create(context.Background(), validRequest(), "admin", "")
	require.NoError(t, err)

	// Warm the cache so deletion has something to invalidate.
	_, err = svc.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	pub.events = nil
	pub.topics = nil

	require.NoError(t, svc.Delete(context.Background(), created.ID, "admin"))

	stored := repo.students[created.ID]
	require.NotNil(t, stored.DeletedAt)
	require.NotNil(t, stored.DeletedBy)
	assert.Equal(t, "admin", *stored.DeletedBy)

	require.Len(t, pub.events, 1)
	assert.Equal(t, testTopics.StudentDeleted, pub.topics[0])
	assert.Equal(t, models.EventStudentDeleted, pub.events[0].EventType)
	assert.Equal(t, created.FullName, pub.events[0].Data["fullName"])

	_, err = svc.GetByID(context.Background(), created.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceDeleteAlreadyDeleted(t *testing.T) {
	repo := newStudentRepoStub()
	svc := newTestService(repo, &provisionerStub{authID: "auth0|abc"}, &publisherStub{}, nil)

	created, err := svc.Create(context.Background(), validRequest(), "admin", "")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), created.ID, "admin"))

	err = svc.Delete(context.Background(), created.ID, "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrBusinessRule.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceRestore(t *testing.T) {
	repo := newStudentRepoStub()
	pub := &publisherStub{}
	svc := newTestService(repo, &provisionerStub{authID: "auth0|abc"}, pub, nil)

	created, err := svc.Create(context.Background(), validRequest(), "admin", "")
	require.NoError(t, err)
	_, err = svc.ChangeStatus(context.Background(), created.ID, models.StatusSuspended, "registrar")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), created.ID, "admin"))
	pub.events = nil

	restored, err := svc.Restore(context.Background(), created.ID, "registrar")
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)
	assert.Nil(t, restored.DeletedBy)
	assert.Equal(t, models.StatusSuspended, restored.Status, "restore must keep the pre-deletion status")
	assert.Equal(t, "registrar", restored.UpdatedBy)
	assert.Empty(t, pub.events, "restore does not emit an event")

	fetched, err := svc.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.RegistrationNumber, fetched.RegistrationNumber)
}

func TestStudentServiceRestoreNotDeleted(t *testing.T) {
	repo := newStudentRepoStub()
	svc := newTestService(repo, &provisionerStub{authID: "auth0|abc"}, &publisherStub{}, nil)

	created, err := svc.Create(context.Background(), validRequest(), "admin", "")
	require.NoError(t, err)

	_, err = svc.Restore(context.Background(), created.ID, "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrBusinessRule.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUpdatePreservesIdentity(t *testing.T) {
	repo := newStudentRepoStub()
	pub := &publisherStub{}
	svc := newTestService(repo, &provisionerStub{authID: "auth0|abc"}, pub, nil)

	created, err := svc.Create(context.Background(), validRequest(), "admin", "")
	require.NoError(t, err)
	pub.events = nil
	pub.topics = nil

	req := validRequest()
	req.FullName = "Maria da Silva Santos"
	req.CPF = otherValidCPF
	req.Email = "maria.santos@example.com"
	req.Course = "Software Engineering"
	req.Semester = 4
	req.Status = models.StatusActive

	updated, err := svc.Update(context.Background(), created.ID, req, "registrar")
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.RegistrationNumber, updated.RegistrationNumber)
	assert.Equal(t, created.AuthID, updated.AuthID)
	assert.Equal(t, created.CreatedBy, updated.CreatedBy)
	assert.Equal(t, "12345678909", updated.CPF)
	assert.Equal(t, "maria.santos@example.com", updated.Email)
	assert.Equal(t, "registrar", updated.UpdatedBy)

	require.Len(t, pub.events, 1)
	assert.Equal(t, testTopics.StudentUpdated, pub.topics[0])
	assert.Equal(t, models.EventStudentUpdated, pub.events[0].EventType)
	assert.Equal(t, "maria.santos@example.com", pub.events[0].Data["email"])
}

func TestStudentServiceUpdateConflictWithOtherStudent(t *testing.T) {
	repo := newStudentRepoStub()
	svc := newTestService(repo, &provisionerStub{authID: "auth0|abc"}, &publisherStub{}, nil)

	first, err := svc.Create(context.Background(), validRequest(), "admin", "")
	require.NoError(t, err)

	other := validRequest()
	other.CPF = otherValidCPF
	other.Email = "other@example.com"
	second, err := svc.Create(context.Background(), other, "admin", "")
	require.NoError(t, err)

	// Updating the second student with the first one's email must fail.
	req := other
	req.Email = first.Email
	_, err = svc.Update(context.Background(), second.ID, req, "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUpdateKeepsStatusWhenOmitted(t *testing.T) {
	repo := newStudentRepoStub()
	svc := newTestService(repo, &provisionerStub{authID: "auth0|abc"}, &publisherStub{}, nil)

	created, err := svc.Create(context.Background(), validRequest(), "admin", "")
	require.NoError(t, err)
	_, err = svc.ChangeStatus(context.Background(), created.ID, models.StatusSuspended, "registrar")
	require.NoError(t, err)

	req := validRequest()
	req.Notes = "updated notes"
	updated, err := svc.Update(context.Background(), created.ID, req, "registrar")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuspended, updated.Status)
	assert.Equal(t, "updated notes", updated.Notes)
}

func TestStudentServiceCountByStatus(t *testing.T) {
	repo := newStudentRepoStub()
	repo.students[1] = &models.Student{ID: 1, Status: models.StatusActive}
	repo.students[2] = &models.Student{ID: 2, Status: models.StatusActive}
	repo.students[3] = &models.Student{ID: 3, Status: models.StatusGraduated}
	svc := newTestService(repo, &provisionerStub{}, &publisherStub{}, nil)

	count, err := svc.CountByStatus(context.Background(), models.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = svc.CountByStatus(context.Background(), models.StudentStatus("BOGUS"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceStatistics(t *testing.T) {
	repo := newStudentRepoStub()
	repo.students[1] = &models.Student{ID: 1, Status: models.StatusActive}
	repo.students[2] = &models.Student{ID: 2, Status: models.StatusActive}
	repo.students[3] = &models.Student{ID: 3, Status: models.StatusInactive}
	repo.students[4] = &models.Student{ID: 4, Status: models.StatusGraduated}
	repo.students[5] = &models.Student{ID: 5, Status: models.StatusSuspended}
	repo.students[6] = &models.Student{ID: 6, Status: models.StatusTransferred}
	svc := newTestService(repo, &provisionerStub{}, &publisherStub{}, nil)

	stats, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.Total)
	assert.Equal(t, int64(2), stats.Active)
	assert.Equal(t, int64(1), stats.Inactive)
	assert.Equal(t, int64(1), stats.Graduated)
	assert.Equal(t, int64(1), stats.Suspended)
}

func TestStudentServiceIsAdmin(t *testing.T) {
	prov := &provisionerStub{user: &authclient.User{ID: 42}, hasRole: true}
	svc := newTestService(newStudentRepoStub(), prov, &publisherStub{}, nil)
	assert.True(t, svc.IsAdmin(context.Background(), "auth0|admin"))

	svc = newTestService(newStudentRepoStub(), &provisionerStub{}, &publisherStub{}, nil)
	assert.False(t, svc.IsAdmin(context.Background(), "auth0|unknown"), "lookup failures degrade to false")
}

func TestSplitFullName(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		first string
		last  string
	}{
		{"two words", "Maria Silva", "Maria", "Silva"},
		{"compound first name", "Maria da Silva", "Maria da", "Silva"},
		{"single word", "Cher", "Cher", ""},
		{"surrounding spaces", "  Ana Souza  ", "Ana", "Souza"},
		{"empty", "", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			first, last := splitFullName(tc.in)
			assert.Equal(t, tc.first, first)
			assert.Equal(t, tc.last, last)
		})
	}
}
