package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"matricula_app_echo/internal/models"
	"matricula_app_echo/internal/services"
)

// CustomErrorHandler maps domain errors to JSON responses for Echo
func CustomErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	message := "Something went wrong. Please try again later."

	var stateErr *models.InvalidStateTransitionError
	var balanceErr *models.ExceedsPendingBalanceError
	var ownershipErr *models.OwnershipViolationError
	var gatewayErr *models.GatewayError
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &httpErr):
		code = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok && msg != "" {
			message = msg
		}
	case errors.Is(err, models.ErrNotFound):
		code = http.StatusNotFound
		message = "Resource not found."
	case errors.Is(err, models.ErrInvalidAmount):
		code = http.StatusBadRequest
		message = "Amount must be greater than zero."
	case errors.Is(err, models.ErrEmptyRejectionReason):
		code = http.StatusBadRequest
		message = "A rejection reason is required."
	case errors.Is(err, services.ErrActiveEnrollmentExists):
		code = http.StatusConflict
		message = "Student already has an active enrollment."
	case errors.Is(err, services.ErrEnrollmentLocked):
		code = http.StatusConflict
		message = "Another payment is being processed for this enrollment. Please retry."
	case errors.As(err, &balanceErr):
		code = http.StatusUnprocessableEntity
		message = balanceErr.Error()
	case errors.As(err, &stateErr):
		code = http.StatusConflict
		message = stateErr.Error()
	case errors.As(err, &ownershipErr):
		code = http.StatusForbidden
		message = "You don't have permission to access this resource."
	case errors.As(err, &gatewayErr):
		// Gateway details stay in the logs, not the response
		code = http.StatusBadGateway
		message = "The payment gateway could not process the request."
	}

	if code >= http.StatusInternalServerError {
		c.Logger().Error(err)
	}

	if c.Response().Committed {
		return
	}
	if writeErr := c.JSON(code, map[string]string{"error": message}); writeErr != nil {
		c.Logger().Error(writeErr)
	}
}
