package controllers

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/diplomaregistry/internal/app/models/dto"
	"github.com/yigit/diplomaregistry/internal/middleware"
	"github.com/yigit/diplomaregistry/internal/pkg/apperrors"
	"github.com/yigit/diplomaregistry/internal/pkg/helpers"
)

// diplomaField is the multipart part holding the diploma file
const diplomaField = "diploma"

// IssuanceService is the write side used by the student routes
type IssuanceService interface {
	SubmitEnrollment(ctx context.Context, req *dto.EnrollmentRequest, upload *multipart.FileHeader) (*dto.EnrollmentResponse, error)
	MintCredential(ctx context.Context, studentID string, req *dto.MintRequest) (*dto.MintResponse, error)
	RemoveStudent(ctx context.Context, studentID string) (*dto.RemovalResponse, error)
	GetIssuance(ctx context.Context, id string) (*dto.IssuanceResponse, error)
}

// RegistryService is the read side used by the student routes
type RegistryService interface {
	ListEnrolled(ctx context.Context) ([]dto.StudentView, error)
	GetStudent(ctx context.Context, studentID string) (*dto.StudentView, error)
}

// StudentController handles enrollment, credential and registry endpoints
type StudentController struct {
	issuance       IssuanceService
	registry       RegistryService
	maxUploadBytes int64
	logger         zerolog.Logger
}

// NewStudentController creates a new StudentController. Uploads larger than maxUploadBytes
// are rejected; zero disables the check.
func NewStudentController(issuance IssuanceService, registry RegistryService, maxUploadBytes int64, logger zerolog.Logger) *StudentController {
	return &StudentController{
		issuance:       issuance,
		registry:       registry,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// SubmitEnrollment godoc
// @Summary Enroll a student
// @Description Publishes the diploma file and its metadata, then enrolls the student on the ledger
// @Tags students
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id formData string true "Student ID (decimal)"
// @Param name formData string true "Student name"
// @Param course formData string true "Program"
// @Param birthDate formData string true "Birth date"
// @Param grade formData string true "Grade (decimal)"
// @Param studentWallet formData string true "Student wallet address"
// @Param diploma formData file true "Diploma file"
// @Success 201 {object} dto.APIResponse{data=dto.EnrollmentResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid form data"
// @Failure 401 {object} dto.ErrorResponse
// @Failure 402 {object} dto.ErrorResponse "Signing wallet needs funding"
// @Failure 502 {object} dto.ErrorResponse "Publishing or ledger enrollment failed"
// @Router /students [post]
func (c *StudentController) SubmitEnrollment(ctx *gin.Context) {
	var req dto.EnrollmentRequest
	if err := ctx.ShouldBind(&req); err != nil {
		c.logger.Warn().Err(err).Msg("Invalid enrollment form")
		middleware.RespondBindingError(ctx, err)
		return
	}

	file, err := ctx.FormFile(diplomaField)
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError(diplomaField, "diploma file is required"))
		return
	}
	if c.maxUploadBytes > 0 && file.Size > c.maxUploadBytes {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError(diplomaField, "diploma file is too large"))
		return
	}

	resp, err := c.issuance.SubmitEnrollment(ctx.Request.Context(), &req, file)
	if err != nil {
		c.logger.Error().Err(err).Str("student_id", req.ID).Msg("Enrollment failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(resp))
}

// MintCredential godoc
// @Summary Mint diploma tokens
// @Description Mints a diploma token to the custody wallet, the student wallet, or both. A failed second mint returns the first one in data.
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param request body dto.MintRequest true "Metadata locator and recipient wallets"
// @Success 201 {object} dto.APIResponse{data=dto.MintResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 402 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Student is not enrolled"
// @Failure 502 {object} dto.APIResponse{data=dto.MintResponse,error=dto.ErrorDetail} "Mint failed, possibly after a partial success"
// @Router /students/{id}/credentials [post]
func (c *StudentController) MintCredential(ctx *gin.Context) {
	studentID := ctx.Param("id")

	var req dto.MintRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.RespondBindingError(ctx, err)
		return
	}

	resp, err := c.issuance.MintCredential(ctx.Request.Context(), studentID, &req)
	if err != nil {
		c.logger.Error().Err(err).Str("student_id", studentID).Msg("Credential mint failed")
		if resp != nil {
			middleware.RespondWithError(ctx, err, resp)
			return
		}
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(resp))
}

// RemoveStudent godoc
// @Summary Remove a student
// @Description Removes the student from the ledger registry
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} dto.APIResponse{data=dto.RemovalResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /students/{id} [delete]
func (c *StudentController) RemoveStudent(ctx *gin.Context) {
	studentID := ctx.Param("id")

	resp, err := c.issuance.RemoveStudent(ctx.Request.Context(), studentID)
	if err != nil {
		c.logger.Error().Err(err).Str("student_id", studentID).Msg("Student removal failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// ListStudents godoc
// @Summary List enrolled students
// @Description Reads every enrolled student from the ledger and resolves the diploma display link
// @Tags students
// @Produce json
// @Param page query int false "Page number, 1-based"
// @Param size query int false "Page size (max 100)"
// @Success 200 {object} dto.APIResponse{data=dto.StudentListResponse}
// @Failure 502 {object} dto.ErrorResponse "Ledger unavailable"
// @Router /students [get]
func (c *StudentController) ListStudents(ctx *gin.Context) {
	students, err := c.registry.ListEnrolled(ctx.Request.Context())
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to list students")
		middleware.HandleAPIError(ctx, err)
		return
	}
	if students == nil {
		students = []dto.StudentView{}
	}

	resp := dto.StudentListResponse{Students: students, Total: len(students)}
	if page, size, ok := helpers.ParsePaginationParams(ctx); ok {
		start, end := helpers.CalculateSliceIndices(page, size, len(students))
		info := helpers.NewPaginationInfo(len(students), page, size)
		resp.Students = students[start:end]
		resp.Pagination = &info
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// GetStudent godoc
// @Summary Get an enrolled student
// @Tags students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} dto.APIResponse{data=dto.StudentView}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /students/{id} [get]
func (c *StudentController) GetStudent(ctx *gin.Context) {
	student, err := c.registry.GetStudent(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(student))
}

// GetIssuance godoc
// @Summary Get an issuance journal entry
// @Description Returns how far an enrollment or mint got and why it stopped
// @Tags issuances
// @Produce json
// @Security BearerAuth
// @Param id path string true "Issuance ID (UUID)"
// @Success 200 {object} dto.APIResponse{data=dto.IssuanceResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /issuances/{id} [get]
func (c *StudentController) GetIssuance(ctx *gin.Context) {
	issuance, err := c.issuance.GetIssuance(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(issuance))
}
