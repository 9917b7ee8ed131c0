package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/distrischool/student-service/internal/models"
	"github.com/distrischool/student-service/internal/service"
	appErrors "github.com/distrischool/student-service/pkg/errors"
	"github.com/distrischool/student-service/pkg/response"
)

type studentService interface {
	Create(ctx context.Context, req service.StudentRequest, actor, authorization string) (*models.Student, error)
	GetByID(ctx context.Context, id int64) (*models.Student, error)
	GetByRegistrationNumber(ctx context.Context, registrationNumber string) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentSummary, *models.Pagination, error)
	Update(ctx context.Context, id int64, req service.StudentRequest, actor string) (*models.Student, error)
	ChangeStatus(ctx context.Context, id int64, status models.StudentStatus, actor string) (*models.Student, error)
	Delete(ctx context.Context, id int64, actor string) error
	Restore(ctx context.Context, id int64, actor string) (*models.Student, error)
	CountByStatus(ctx context.Context, status models.StudentStatus) (int64, error)
	CountByCourse(ctx context.Context, course string) (int64, error)
	Statistics(ctx context.Context) (*models.StudentStatistics, error)
	IsAdmin(ctx context.Context, authID string) bool
}

// StudentHandler exposes student lifecycle endpoints.
type StudentHandler struct {
	service studentService
}

// NewStudentHandler builds a new handler.
func NewStudentHandler(service studentService) *StudentHandler {
	return &StudentHandler{service: service}
}

type changeStatusRequest struct {
	Status models.StudentStatus `json:"status" binding:"required"`
}

// Create godoc
// @Summary Register a new student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.StudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	var req service.StudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}
	student, err := h.service.Create(c.Request.Context(), req, actorFromContext(c), c.GetHeader("Authorization"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Get godoc
// @Summary Get a student by ID
// @Tags Students
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// GetByRegistrationNumber godoc
// @Summary Get a student by registration number
// @Tags Students
// @Produce json
// @Param registrationNumber path string true "Registration number"
// @Success 200 {object} response.Envelope
// @Router /students/registration/{registrationNumber} [get]
func (h *StudentHandler) GetByRegistrationNumber(c *gin.Context) {
	student, err := h.service.GetByRegistrationNumber(c.Request.Context(), c.Param("registrationNumber"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Param sortBy query string false "Sort field"
// @Param sortOrder query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	students, pagination, err := h.service.List(c.Request.Context(), paginationFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Search godoc
// @Summary Search students by name, course, semester and status
// @Tags Students
// @Produce json
// @Param name query string false "Partial name, case-insensitive"
// @Param course query string false "Course filter"
// @Param semester query int false "Semester filter"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /students/search [get]
func (h *StudentHandler) Search(c *gin.Context) {
	filter := paginationFilter(c)
	filter.Name = c.Query("name")
	filter.Course = c.Query("course")
	if raw := c.Query("semester"); raw != "" {
		semester, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "semester must be an integer"))
			return
		}
		filter.Semester = &semester
	}
	if raw := c.Query("status"); raw != "" {
		status := models.StudentStatus(raw)
		filter.Status = &status
	}

	students, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Update godoc
// @Summary Update a student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path int true "Student ID"
// @Param payload body service.StudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	id, err := parseID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.StudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}
	student, err := h.service.Update(c.Request.Context(), id, req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// ChangeStatus godoc
// @Summary Change a student's lifecycle status
// @Tags Students
// @Accept json
// @Produce json
// @Param id path int true "Student ID"
// @Param payload body changeStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/status [patch]
func (h *StudentHandler) ChangeStatus(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	student, err := h.service.ChangeStatus(c.Request.Context(), id, req.Status, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Soft-delete a student
// @Tags Students
// @Param id path int true "Student ID"
// @Success 204
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	id, err := parseID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id, actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Restore godoc
// @Summary Restore a soft-deleted student
// @Tags Students
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/restore [post]
func (h *StudentHandler) Restore(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.service.Restore(c.Request.Context(), id, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// CountByStatus godoc
// @Summary Count students holding a status
// @Tags Students
// @Produce json
// @Param status path string true "Status"
// @Success 200 {object} response.Envelope
// @Router /students/count/status/{status} [get]
func (h *StudentHandler) CountByStatus(c *gin.Context) {
	status := models.StudentStatus(c.Param("status"))
	count, err := h.service.CountByStatus(c.Request.Context(), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": status, "count": count}, nil)
}

// Statistics godoc
// @Summary Aggregate per-status student counts
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/statistics [get]
func (h *StudentHandler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// CountByCourse godoc
// @Summary Count students enrolled in a course
// @Tags Students
// @Produce json
// @Param course path string true "Course"
// @Success 200 {object} response.Envelope
// @Router /students/count/course/{course} [get]
func (h *StudentHandler) CountByCourse(c *gin.Context) {
	course := c.Param("course")
	count, err := h.service.CountByCourse(c.Request.Context(), course)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"course": course, "count": count}, nil)
}

// requireAdmin rejects the request unless the auth service confirms the
// actor holds the ADMIN role.
func (h *StudentHandler) requireAdmin(c *gin.Context) bool {
	claims := claimsFromContext(c)
	if claims == nil || !h.service.IsAdmin(c.Request.Context(), claims.Subject()) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "admin role required"))
		return false
	}
	return true
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "id must be a positive integer")
	}
	return id, nil
}

func paginationFilter(c *gin.Context) models.StudentFilter {
	filter := models.StudentFilter{
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("pageSize", "20")); err == nil {
		filter.PageSize = size
	}
	return filter
}
