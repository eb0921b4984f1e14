package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/quicktest-hq/quicktest/internal/datastore/repository"
	"github.com/quicktest-hq/quicktest/internal/errors"
	"github.com/quicktest-hq/quicktest/internal/logger"
	"github.com/quicktest-hq/quicktest/internal/observability/metrics"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString()[:8],
	}
}

// HandleError logs err and writes an ErrorResponse with the given status code.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", errorResp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		c.logger.Error("API Error", fields...)
	} else {
		c.logger.Debug("API Error", fields...)
	}

	return ctx.JSON(code, errorResp)
}

// handleDomainError maps repository and builder errors onto HTTP status codes.
// Unexpected failures are wrapped so they reach telemetry.
func (c *Controller) handleDomainError(ctx echo.Context, err error, message string) error {
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		err = errors.New(err).
			Component("api").
			Category(errors.CategoryHTTP).
			Context("path", ctx.Path()).
			Context("method", ctx.Request().Method).
			Build()
	}
	return c.HandleError(ctx, err, message, code)
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, repository.ErrSessionNotFound),
		errors.Is(err, repository.ErrCaseNotFound),
		errors.Is(err, repository.ErrFeedbackNotFound),
		errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrNotFeedbackOwner):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrInvalidInput),
		errors.IsCategory(err, errors.CategoryValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// metricStatus is the status label for a failed write.
func metricStatus(err error) string {
	if statusCode(err) == http.StatusNotFound {
		return metrics.StatusNotFound
	}
	return metrics.StatusError
}
