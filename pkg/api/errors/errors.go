// Package errors maps domain errors to HTTP responses. Internal details are
// logged, never returned to the client.
package errors

import (
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pulsecrm/backend/pkg/domain"
	"github.com/pulsecrm/backend/pkg/models"
)

// Respond writes the HTTP response for a domain error
func Respond(c echo.Context, err error) error {
	code := domain.CodeOf(err)
	status := statusFor(code)

	if status >= http.StatusInternalServerError {
		// Log the actual error for debugging
		log.Printf("[%s] Path: %s, Error: %v", code, c.Request().URL.Path, err)
	}

	return c.JSON(status, models.ErrorResponse{
		Error:   strings.ToLower(code),
		Message: domain.MessageOf(err),
	})
}

// ValidationError returns a 400 with the validation detail
func ValidationError(c echo.Context, err error) error {
	log.Printf("[VALIDATION ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)

	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "validation_error",
		Message: "Invalid request data. Please check your input and try again.",
	})
}

// UnauthorizedError returns a generic unauthorized error
func UnauthorizedError(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "unauthorized",
		Message: "You are not authorized to access this resource.",
	})
}

// ForbiddenError returns a generic forbidden error
func ForbiddenError(c echo.Context) error {
	return c.JSON(http.StatusForbidden, models.ErrorResponse{
		Error:   "forbidden",
		Message: "You do not have permission to access this resource.",
	})
}

func statusFor(code string) int {
	switch code {
	case domain.ErrCodeValidation, domain.ErrCodeBadRequest:
		return http.StatusBadRequest
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrCodeForbidden:
		return http.StatusForbidden
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeConflict:
		return http.StatusConflict
	case domain.ErrCodeUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
