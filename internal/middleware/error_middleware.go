package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/diplomaregistry/internal/app/models/dto"
	"github.com/yigit/diplomaregistry/internal/app/services"
	"github.com/yigit/diplomaregistry/internal/pkg/apperrors"
)

// HandleAPIError maps an error onto an HTTP status and error code and writes the response
func HandleAPIError(c *gin.Context, err error) {
	RespondWithError(c, err, nil)
}

// RespondWithError is HandleAPIError for operations that partially succeeded; data is sent
// next to the error so the caller can recover it.
func RespondWithError(c *gin.Context, err error, data interface{}) {
	status, detail := classify(err)
	detail = detail.WithKind(services.KindName(err))

	var appErr *apperrors.CustomError
	if errors.As(err, &appErr) {
		if appErr.Message != "" {
			detail.Message = appErr.Message
		}
		if field, ok := appErr.Details["field"].(string); ok {
			detail = detail.WithField(field)
		}
		if len(appErr.Details) > 0 {
			detail = detail.WithDetails(appErr.Details)
		}
		if gin.IsDebugging() && appErr.Cause != nil && !errors.Is(err, apperrors.ErrValidationFailed) {
			detail = detail.WithDebugInfo("%s", appErr.Cause.Error())
		}
	}

	c.JSON(status, dto.NewErrorResponse(detail, data))
}

func classify(err error) (int, *dto.ErrorDetail) {
	switch {
	case errors.Is(err, apperrors.ErrValidationFailed):
		return http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Validation failed")
	case errors.Is(err, apperrors.ErrBadRequest):
		return http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeBadRequest, "Bad request")
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeInvalidCredentials, "Invalid credentials")
	case errors.Is(err, apperrors.ErrTokenExpired):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeExpiredToken, "Token expired")
	case errors.Is(err, apperrors.ErrTokenInvalid), errors.Is(err, apperrors.ErrInvalidFormat):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Invalid token")
	case errors.Is(err, apperrors.ErrStudentNotFound):
		return http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Student not found")
	case errors.Is(err, apperrors.ErrIssuanceNotFound):
		return http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Issuance not found")
	case errors.Is(err, apperrors.ErrInsufficientFunds):
		return http.StatusPaymentRequired, dto.NewErrorDetail(dto.ErrorCodeInsufficientFunds, "Signing wallet needs funding to pay transaction fees")
	case errors.Is(err, apperrors.ErrNotEnrolled):
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeNotEnrolled, "Student is not enrolled")
	case errors.Is(err, apperrors.ErrPublishFailed):
		return http.StatusBadGateway, dto.NewErrorDetail(dto.ErrorCodePublishFailed, "Content publishing failed")
	case errors.Is(err, apperrors.ErrEnrollmentFailed):
		return http.StatusBadGateway, dto.NewErrorDetail(dto.ErrorCodeEnrollmentFailed, "Ledger enrollment failed")
	case errors.Is(err, apperrors.ErrMintFailed):
		return http.StatusBadGateway, dto.NewErrorDetail(dto.ErrorCodeMintFailed, "Credential mint failed")
	case errors.Is(err, apperrors.ErrRemovalFailed):
		return http.StatusBadGateway, dto.NewErrorDetail(dto.ErrorCodeRemovalFailed, "Student removal failed")
	case errors.Is(err, apperrors.ErrLedgerUnavailable):
		return http.StatusBadGateway, dto.NewErrorDetail(dto.ErrorCodeLedgerUnavailable, "Ledger read failed")
	default:
		return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")
	}
}
