package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/smallbiznis/praxis/internal/analytics/domain"
	assistantdomain "github.com/smallbiznis/praxis/internal/assistant/domain"
	clientdomain "github.com/smallbiznis/praxis/internal/client/domain"
	engagementdomain "github.com/smallbiznis/praxis/internal/engagement/domain"
	invoicedomain "github.com/smallbiznis/praxis/internal/invoice/domain"
	projectdomain "github.com/smallbiznis/praxis/internal/project/domain"
	timesheetdomain "github.com/smallbiznis/praxis/internal/timesheet/domain"
	wipdomain "github.com/smallbiznis/praxis/internal/wip/domain"
	"gorm.io/gorm"
)

var ErrInvalidRequest = errors.New("invalid_request")

type errorPayload struct {
	Type    string                          `json:"type"`
	Message string                          `json:"message"`
	Errors  []invoicedomain.ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return ErrInvalidRequest
}

func mapError(err error) (int, errorPayload) {
	if vErrs := asValidationErrors(err); vErrs != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErrs,
		}
	}

	switch {
	case isValidationError(err):
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []invoicedomain.ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, assistantdomain.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, assistantdomain.ErrNotConfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "assistant not configured",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) invoicedomain.ValidationErrors {
	var vErrs invoicedomain.ValidationErrors
	if errors.As(err, &vErrs) && len(vErrs) > 0 {
		return vErrs
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isClientValidationError(err),
		isProjectValidationError(err),
		isTimesheetValidationError(err),
		isWIPValidationError(err),
		isInvoiceValidationError(err),
		isEngagementValidationError(err),
		errors.Is(err, analyticsdomain.ErrInvalidClient),
		errors.Is(err, assistantdomain.ErrModelNotAllowed),
		errors.Is(err, assistantdomain.ErrEmptyMessages),
		errors.Is(err, assistantdomain.ErrInvalidRole):
		return true
	default:
		return false
	}
}

func isClientValidationError(err error) bool {
	switch {
	case errors.Is(err, clientdomain.ErrInvalidName),
		errors.Is(err, clientdomain.ErrInvalidEmail),
		errors.Is(err, clientdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isProjectValidationError(err error) bool {
	switch {
	case errors.Is(err, projectdomain.ErrInvalidClient),
		errors.Is(err, projectdomain.ErrInvalidName),
		errors.Is(err, projectdomain.ErrInvalidRate),
		errors.Is(err, projectdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isTimesheetValidationError(err error) bool {
	switch {
	case errors.Is(err, timesheetdomain.ErrInvalidProject),
		errors.Is(err, timesheetdomain.ErrInvalidTask),
		errors.Is(err, timesheetdomain.ErrInvalidUser),
		errors.Is(err, timesheetdomain.ErrInvalidDuration),
		errors.Is(err, timesheetdomain.ErrInvalidAmount),
		errors.Is(err, timesheetdomain.ErrInvalidStatus),
		errors.Is(err, timesheetdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isWIPValidationError(err error) bool {
	switch {
	case errors.Is(err, wipdomain.ErrInvalidProject),
		errors.Is(err, wipdomain.ErrInvalidTask),
		errors.Is(err, wipdomain.ErrInvalidReason):
		return true
	default:
		return false
	}
}

func isInvoiceValidationError(err error) bool {
	switch {
	case errors.Is(err, invoicedomain.ErrInvalidClient),
		errors.Is(err, invoicedomain.ErrInvalidProject),
		errors.Is(err, invoicedomain.ErrInvalidID),
		errors.Is(err, invoicedomain.ErrInvalidStatus):
		return true
	default:
		return false
	}
}

func isEngagementValidationError(err error) bool {
	switch {
	case errors.Is(err, engagementdomain.ErrInvalidClient),
		errors.Is(err, engagementdomain.ErrInvalidProject),
		errors.Is(err, engagementdomain.ErrInvalidTitle),
		errors.Is(err, engagementdomain.ErrInvalidScope),
		errors.Is(err, engagementdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, clientdomain.ErrNotFound),
		errors.Is(err, projectdomain.ErrNotFound),
		errors.Is(err, projectdomain.ErrTaskNotFound),
		errors.Is(err, timesheetdomain.ErrNotFound),
		errors.Is(err, wipdomain.ErrBucketNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, engagementdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, invoicedomain.ErrNotDraft),
		errors.Is(err, invoicedomain.ErrInvalidTransition),
		errors.Is(err, timesheetdomain.ErrEntryLocked):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		field := strings.TrimPrefix(code, "invalid_")
		if field == "request" {
			return "request"
		}
		return field
	}
	return ""
}

func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "internal", payload.Type
	case status == http.StatusNotFound:
		return "not_found", payload.Type
	case status == http.StatusConflict:
		return "conflict", payload.Type
	default:
		return "client", payload.Type
	}
}
