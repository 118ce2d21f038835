package transport

import (
	"errors"
	"net/http"

	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/ds124wfegd/campusres/internal/service"
	"github.com/ds124wfegd/campusres/pkg/queue"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, SuccessResponse{Success: true, Message: message, Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Success: false, Error: message})
}

// writeError maps a service error onto its HTTP status.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	respondError(c, status, message)
}

func statusFor(err error) int {
	var transitionErr *entity.TransitionError
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, entity.ErrSlotConflict),
		errors.Is(err, entity.ErrConcurrentUpdate),
		errors.Is(err, entity.ErrEmailExists):
		return http.StatusConflict

	case errors.Is(err, entity.ErrResourceNotFound),
		errors.Is(err, entity.ErrBookingNotFound),
		errors.Is(err, queue.ErrTaskNotFound):
		return http.StatusNotFound

	case errors.As(err, &transitionErr),
		errors.Is(err, entity.ErrPassUnavailable),
		errors.Is(err, entity.ErrResourceHasNoSlot):
		return http.StatusUnprocessableEntity

	case errors.As(err, &validationErrs),
		errors.Is(err, entity.ErrInvalidInput),
		errors.Is(err, entity.ErrInvalidDate),
		errors.Is(err, entity.ErrInvalidResourceType),
		errors.Is(err, entity.ErrInvalidBookingStatus),
		errors.Is(err, entity.ErrWeakPassword),
		errors.Is(err, entity.ErrResourceImageMissing),
		errors.Is(err, entity.ErrInvalidPass),
		errors.Is(err, service.ErrUnknownPlace):
		return http.StatusBadRequest

	case errors.Is(err, entity.ErrUnauthorized),
		errors.Is(err, entity.ErrInvalidCredentials),
		errors.Is(err, entity.ErrTokenInvalid):
		return http.StatusUnauthorized

	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, entity.ErrExternalService):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}
