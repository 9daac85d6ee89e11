package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/identity-api/pkg/apperror"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Code       int      `json:"code"`
	Message    string   `json:"message"`
	Violations []string `json:"violations,omitempty"`
	TraceID    string   `json:"trace_id,omitempty"`
}

// ErrorHandler translates service errors attached to the context into HTTP
// responses. Policy violations surface every broken rule at once.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		traceID := c.GetString(ContextRequestID)

		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("trace_id", traceID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("client_ip", c.ClientIP()).
				Msg("Request error")
		}

		lastErr := c.Errors.Last().Err

		var policyErr *apperror.PolicyViolationError
		if errors.As(lastErr, &policyErr) {
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
				Code:       http.StatusUnprocessableEntity,
				Message:    "password does not meet the strength policy",
				Violations: policyErr.Violations,
				TraceID:    traceID,
			})
			return
		}

		status := http.StatusInternalServerError
		message := "internal server error"

		var appErr *apperror.AppError
		if errors.As(lastErr, &appErr) {
			message = appErr.Message
			switch appErr.Code {
			case apperror.ErrNotFound:
				status = http.StatusNotFound
			case apperror.ErrBadRequest, apperror.ErrRoleInvalid:
				status = http.StatusBadRequest
			default:
				status = http.StatusInternalServerError
			}
		}

		c.JSON(status, ErrorResponse{
			Code:    status,
			Message: message,
			TraceID: traceID,
		})
	}
}
